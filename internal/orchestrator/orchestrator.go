// Package orchestrator composes the trading core into turns: settings ->
// safety gate -> market data -> strategy engine -> signal store ->
// (executor + notifier) gated by policy.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/korbanlabs/korban/internal/domain"
	"github.com/korbanlabs/korban/internal/services/executor"
	"github.com/korbanlabs/korban/internal/services/gate"
	"github.com/korbanlabs/korban/internal/services/strategy"
)

// ExecutionThreshold is the minimum confidence required to convert a
// signal into a live order.
const ExecutionThreshold = 0.85

// MarketData is the venue read API consumed by a turn.
type MarketData interface {
	Candles(ctx context.Context, coin, interval string, lookback time.Duration) ([]domain.Candle, error)
	OrderBook(ctx context.Context, coin string) (domain.OrderBook, error)
	Balance(ctx context.Context, user string) (domain.Balance, error)
}

// SettingsReader supplies the singleton configuration record.
type SettingsReader interface {
	Get() (domain.Settings, error)
}

// SignalRecorder appends signals to the system of record.
type SignalRecorder interface {
	Record(signal domain.Signal) (uint64, error)
}

// OrderExecutor places live orders.
type OrderExecutor interface {
	Execute(ctx context.Context, settings domain.Settings, symbol string, side domain.TradeSide, size decimal.Decimal) (executor.Result, error)
}

// Notifier announces executed or high-confidence signals, best-effort.
type Notifier interface {
	Alert(ctx context.Context, message string)
}

// Config carries the per-turn market data parameters.
type Config struct {
	// Interval is the candle interval, e.g. "15m".
	Interval string
	// Lookback is the candle window fetched per turn.
	Lookback time.Duration
	// OrderSize is the base-asset size of every placed order.
	OrderSize decimal.Decimal
}

// Orchestrator runs the turn state machine. Turns for independent symbols
// may run concurrently; turns for the same symbol are serialized by a
// per-symbol lease so overlapping timer and manual triggers can never
// double-execute.
type Orchestrator struct {
	settings SettingsReader
	market   MarketData
	engine   strategy.Engine
	signals  SignalRecorder
	exec     OrderExecutor
	sink     Notifier
	cfg      Config
	logger   *zap.Logger

	leaseMu sync.Mutex
	leases  map[string]*sync.Mutex
}

// New creates an orchestrator.
func New(
	settings SettingsReader,
	market MarketData,
	engine strategy.Engine,
	signals SignalRecorder,
	exec OrderExecutor,
	sink Notifier,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.Interval == "" {
		cfg.Interval = "15m"
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 2 * time.Hour
	}
	return &Orchestrator{
		settings: settings,
		market:   market,
		engine:   engine,
		signals:  signals,
		exec:     exec,
		sink:     sink,
		cfg:      cfg,
		logger:   logger,
	}
}

// RunTurn executes one full turn for the symbol. Empty symbol or address
// fall back to the settings record. Only safety halts and market data
// unavailability end a turn early; reasoning, execution and notification
// failures degrade so the turn always completes with a defined status.
func (o *Orchestrator) RunTurn(ctx context.Context, symbol, userAddress string) (domain.TurnResult, error) {
	// RESOLVING_CONTEXT
	settings, err := o.settings.Get()
	if err != nil {
		return domain.TurnResult{}, errors.Wrap(err, "load settings")
	}

	if symbol == "" {
		symbol = settings.ActiveSymbol
	}
	if userAddress == "" {
		userAddress = settings.ActiveWallet
	}

	logger := o.logger.With(zap.String("symbol", symbol))

	if userAddress == "" {
		logger.Warn("turn halted: no active wallet authorized")
		return domain.TurnResult{
			Status: domain.TurnHalted,
			Symbol: symbol,
			Reason: gate.ReasonNoWallet,
		}, nil
	}

	release, acquired := o.acquireLease(symbol)
	if !acquired {
		logger.Info("turn skipped: another turn in flight")
		return domain.TurnResult{
			Status: domain.TurnSkipped,
			Symbol: symbol,
			Reason: "turn already in flight for symbol",
		}, nil
	}
	defer release()

	// SAFETY_CHECK: evaluate balance before paying for any reasoning call
	balance, err := o.market.Balance(ctx, userAddress)
	if err != nil {
		return domain.TurnResult{}, errors.Wrap(err, "fetch balance")
	}

	verdict := gate.Evaluate(balance.Withdrawable, settings)
	if !verdict.Proceed {
		logger.Warn("turn halted by safety gate", zap.String("reason", verdict.Reason))
		return domain.TurnResult{
			Status: domain.TurnHalted,
			Symbol: symbol,
			Reason: verdict.Reason,
		}, nil
	}

	// FETCHING_DATA
	candles, err := o.market.Candles(ctx, symbol, o.cfg.Interval, o.cfg.Lookback)
	if err != nil {
		return domain.TurnResult{}, errors.Wrap(err, "fetch candles")
	}
	book, err := o.market.OrderBook(ctx, symbol)
	if err != nil {
		return domain.TurnResult{}, errors.Wrap(err, "fetch order book")
	}

	// ANALYZING
	signal := o.engine.Analyze(ctx, symbol, candles, book)

	// the store records every signal, WAIT included: it is the system of
	// record for what the engine thought, independent of execution
	if _, err := o.signals.Record(signal); err != nil {
		return domain.TurnResult{}, errors.Wrap(err, "record signal")
	}

	logger.Info("signal generated",
		zap.String("action", string(signal.Action)),
		zap.Float64("confidence", signal.Confidence))

	if signal.Action == domain.ActionWait {
		return domain.TurnResult{
			Status: domain.TurnMonitoring,
			Symbol: symbol,
			Action: signal.Action,
			Reason: signal.Reasoning,
		}, nil
	}

	// EXECUTING, gated by policy
	executed := false
	if o.shouldExecute(settings, balance.Withdrawable, signal.Confidence) {
		executed = o.executeAndAnnounce(ctx, settings, symbol, signal)
	} else if signal.Confidence > ExecutionThreshold {
		logger.Info("execution skipped by policy",
			zap.Bool("auto_trading", settings.IsAutoTrading),
			zap.String("balance", balance.Withdrawable.String()))
	}

	return domain.TurnResult{
		Status:   domain.TurnSignalGenerated,
		Symbol:   symbol,
		Action:   signal.Action,
		Reason:   signal.Reasoning,
		Executed: executed,
	}, nil
}

func (o *Orchestrator) shouldExecute(settings domain.Settings, balance decimal.Decimal, confidence float64) bool {
	return settings.IsAutoTrading &&
		balance.GreaterThanOrEqual(settings.MinBalanceThreshold) &&
		confidence > ExecutionThreshold
}

// executeAndAnnounce fires the executor and then the notifier. The alert
// goes out regardless of the executor outcome; neither failure ends the
// turn.
func (o *Orchestrator) executeAndAnnounce(ctx context.Context, settings domain.Settings, symbol string, signal domain.Signal) bool {
	logger := o.logger.With(zap.String("symbol", symbol))

	executed := false
	side, err := domain.SideFromAction(signal.Action)
	if err != nil {
		logger.Error("unexpected action for execution", zap.Error(err))
		return false
	}

	result, err := o.exec.Execute(ctx, settings, symbol, side, o.cfg.OrderSize)
	switch {
	case errors.Is(err, executor.ErrAgentNotAuthorized):
		logger.Warn("execution blocked: authorize the agent first")
	case err != nil:
		logger.Error("executor failed", zap.Error(err))
	case !result.Success:
		logger.Warn("broker rejected order", zap.Error(result.Err))
	default:
		executed = true
	}

	o.sink.Alert(ctx, buildAlert(symbol, signal))
	return executed
}

func buildAlert(symbol string, signal domain.Signal) string {
	setup := signal.SetupType
	if setup == "" {
		setup = "Professional Logic"
	}
	return fmt.Sprintf(
		"🚀 *KORBAN ALERT: %s %s*\n\n"+
			"🎯 *Setup*: %s\n"+
			"🧠 *Reasoning*: %s\n"+
			"💰 *TP*: %s | *SL*: %s\n\n"+
			"Confidence: %.0f%%",
		signal.Action, symbol, setup, signal.Reasoning,
		signal.TakeProfit, signal.StopLoss, signal.Confidence*100)
}

// acquireLease grants the per-symbol execution lease without blocking.
func (o *Orchestrator) acquireLease(symbol string) (func(), bool) {
	o.leaseMu.Lock()
	if o.leases == nil {
		o.leases = make(map[string]*sync.Mutex)
	}
	lease, ok := o.leases[symbol]
	if !ok {
		lease = &sync.Mutex{}
		o.leases[symbol] = lease
	}
	o.leaseMu.Unlock()

	if !lease.TryLock() {
		return nil, false
	}
	return lease.Unlock, true
}
