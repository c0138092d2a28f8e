package clients

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	hyperliquid "github.com/sonirico/go-hyperliquid"
)

// ExchangeClient wraps the Hyperliquid exchange API signed by the agent
// credential. The agent key can place orders but has no withdrawal rights.
type ExchangeClient struct {
	exchange    *hyperliquid.Exchange
	accountAddr string
}

// NewExchangeClient derives the agent address from the private key and
// builds the exchange; meta is fetched lazily by the SDK.
func NewExchangeClient(privateKeyHex, baseURL, accountAddr string) (*ExchangeClient, error) {
	key := privateKeyHex
	if len(key) >= 2 && (key[:2] == "0x" || key[:2] == "0X") {
		key = key[2:]
	}

	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, err
	}

	pub := privateKey.Public()
	pubECDSA, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}
	// the master account address may differ from the agent's own address
	if accountAddr == "" {
		accountAddr = crypto.PubkeyToAddress(*pubECDSA).Hex()
	}

	ex := hyperliquid.NewExchange(
		context.Background(),
		privateKey,
		baseURL,
		nil,
		"",
		accountAddr,
		nil,
	)

	return &ExchangeClient{exchange: ex, accountAddr: accountAddr}, nil
}

func (c *ExchangeClient) Exchange() *hyperliquid.Exchange { return c.exchange }
func (c *ExchangeClient) AccountAddress() string          { return c.accountAddr }
