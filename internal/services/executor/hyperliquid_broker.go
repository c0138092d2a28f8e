package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"github.com/korbanlabs/korban/internal/clients"
	"github.com/korbanlabs/korban/internal/domain"
)

const marketSlippage = 0.005 // 0.5%

// HyperliquidBroker emulates a market order with an IOC limit priced at a
// small slippage from mid.
type HyperliquidBroker struct {
	ex *hyperliquid.Exchange
}

// NewHyperliquidFactory returns a BrokerFactory building brokers against
// the given exchange base URL.
func NewHyperliquidFactory(baseURL string) BrokerFactory {
	return func(cred domain.AgentCredential, accountAddr string) (Broker, error) {
		client, err := clients.NewExchangeClient(cred.PrivateKey, baseURL, accountAddr)
		if err != nil {
			return nil, errors.Wrap(err, "build exchange client")
		}
		return &HyperliquidBroker{ex: client.Exchange()}, nil
	}
}

// PlaceMarketOrder places an IOC limit order at slippage price.
func (b *HyperliquidBroker) PlaceMarketOrder(ctx context.Context, coin string, isBuy bool, size float64, clientOrderID string) (any, error) {
	coin = strings.ToUpper(coin)

	px, err := b.ex.SlippagePrice(ctx, coin, isBuy, marketSlippage, nil)
	if err != nil {
		return nil, errors.Wrap(err, "slippage price")
	}

	cloid := cloidFromID(clientOrderID)
	req := hyperliquid.CreateOrderRequest{
		Coin:          coin,
		IsBuy:         isBuy,
		Price:         px,
		Size:          size,
		ClientOrderID: &cloid,
		OrderType: hyperliquid.OrderType{
			Limit: &hyperliquid.LimitOrderType{Tif: hyperliquid.TifIoc},
		},
	}

	resp, err := b.ex.Order(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// cloidFromID converts a free-form client ID into a valid Hyperliquid
// cloid (0x + 32 hex chars).
func cloidFromID(id string) string {
	s := strings.TrimSpace(id)
	if s == "" {
		s = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	sum := sha256.Sum256([]byte(s))
	return "0x" + hex.EncodeToString(sum[:16])
}
