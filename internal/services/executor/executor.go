// Package executor places live orders for an authorized agent account and
// records the resulting trades.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/korbanlabs/korban/internal/domain"
)

// ErrAgentNotAuthorized is the hard precondition failure: no credential is
// bound to settings. Distinct from a broker-level rejection.
var ErrAgentNotAuthorized = errors.New("no trading agent authorized")

// Broker places a single market order on the venue.
type Broker interface {
	PlaceMarketOrder(ctx context.Context, coin string, isBuy bool, size float64, clientOrderID string) (any, error)
}

// BrokerFactory builds a broker signing with the given credential on
// behalf of the master account address.
type BrokerFactory func(cred domain.AgentCredential, accountAddr string) (Broker, error)

// TradeWriter persists executed trades.
type TradeWriter interface {
	Save(trade domain.Trade) error
}

// Result reports one execution attempt. A broker rejection is returned
// inside the result, never as a method error, so the caller can treat it
// as non-fatal to the turn.
type Result struct {
	Success        bool
	BrokerResponse any
	Err            error
	Trade          *domain.Trade
}

// Executor converts a directional signal into a live market order.
type Executor struct {
	newBroker BrokerFactory
	trades    TradeWriter
	logger    *zap.Logger

	mu      sync.Mutex
	brokers map[string]Broker
}

// New creates an executor.
func New(factory BrokerFactory, trades TradeWriter, logger *zap.Logger) *Executor {
	return &Executor{
		newBroker: factory,
		trades:    trades,
		logger:    logger,
		brokers:   make(map[string]Broker),
	}
}

// Execute places a market order for the symbol. The settings record must
// carry an authorized agent credential; its absence is a hard error. On
// broker success an OPEN trade is recorded with a zero entry price (the
// actual fill is reconciled later by an external process).
func (e *Executor) Execute(ctx context.Context, settings domain.Settings, symbol string, side domain.TradeSide, size decimal.Decimal) (Result, error) {
	cred := settings.AgentCredential
	if !cred.Authorized() {
		return Result{}, ErrAgentNotAuthorized
	}

	broker, err := e.brokerFor(*cred, settings.ActiveWallet)
	if err != nil {
		return Result{}, errors.Wrap(err, "build broker")
	}

	orderID := uuid.New().String()
	isBuy := side == domain.SideBuy
	sizeF, _ := size.Round(8).Float64()

	e.logger.Info("placing market order",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.String("size", size.String()),
		zap.String("order_id", orderID))

	resp, err := broker.PlaceMarketOrder(ctx, symbol, isBuy, sizeF, orderID)
	if err != nil {
		e.logger.Error("broker rejected order",
			zap.String("symbol", symbol),
			zap.String("order_id", orderID),
			zap.Error(err))
		return Result{Success: false, Err: err}, nil
	}

	trade := domain.Trade{
		ID:         orderID,
		Symbol:     symbol,
		Side:       side,
		EntryPrice: decimal.Zero,
		Amount:     size,
		Status:     domain.TradeOpen,
		OpenedAt:   time.Now(),
	}
	if err := e.trades.Save(trade); err != nil {
		// the order is live; surface the journal failure but keep the result
		e.logger.Error("failed to journal trade", zap.String("order_id", orderID), zap.Error(err))
		return Result{Success: true, BrokerResponse: resp, Err: errors.Wrap(err, "journal trade")}, nil
	}

	return Result{Success: true, BrokerResponse: resp, Trade: &trade}, nil
}

// brokerFor caches brokers per credential address so repeated turns do not
// rebuild the exchange client.
func (e *Executor) brokerFor(cred domain.AgentCredential, accountAddr string) (Broker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.brokers[cred.Address]; ok {
		return b, nil
	}
	b, err := e.newBroker(cred, accountAddr)
	if err != nil {
		return nil, err
	}
	e.brokers[cred.Address] = b
	return b, nil
}
