package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/korbanlabs/korban/internal/clients"
	"github.com/korbanlabs/korban/internal/domain"
	"github.com/korbanlabs/korban/internal/services/executor"
	"github.com/korbanlabs/korban/internal/services/gate"
)

type fakeMarket struct {
	mu           sync.Mutex
	balance      domain.Balance
	balanceErr   error
	candlesErr   error
	bookErr      error
	balanceCalls int
}

func (f *fakeMarket) Candles(ctx context.Context, coin, interval string, lookback time.Duration) ([]domain.Candle, error) {
	if f.candlesErr != nil {
		return nil, f.candlesErr
	}
	price := decimal.NewFromFloat(25.0)
	return []domain.Candle{{
		OpenTime: time.Now().Add(-15 * time.Minute),
		Open:     price, High: price, Low: price, Close: price,
		Volume:    decimal.NewFromInt(100),
		CloseTime: time.Now(),
	}}, nil
}

func (f *fakeMarket) OrderBook(ctx context.Context, coin string) (domain.OrderBook, error) {
	if f.bookErr != nil {
		return domain.OrderBook{}, f.bookErr
	}
	return domain.OrderBook{Coin: coin, Time: time.Now()}, nil
}

func (f *fakeMarket) Balance(ctx context.Context, user string) (domain.Balance, error) {
	f.mu.Lock()
	f.balanceCalls++
	f.mu.Unlock()
	return f.balance, f.balanceErr
}

type fakeSettings struct {
	settings domain.Settings
	err      error
}

func (f *fakeSettings) Get() (domain.Settings, error) { return f.settings, f.err }

// blockingEngine returns the prepared signal, optionally parking inside
// Analyze until released so overlapping turns can be provoked.
type blockingEngine struct {
	signal   domain.Signal
	entered  chan struct{}
	release  chan struct{}
	mu       sync.Mutex
	analyzed int
}

func (e *blockingEngine) Analyze(ctx context.Context, symbol string, candles []domain.Candle, book domain.OrderBook) domain.Signal {
	e.mu.Lock()
	e.analyzed++
	e.mu.Unlock()
	if e.entered != nil {
		e.entered <- struct{}{}
	}
	if e.release != nil {
		<-e.release
	}
	sig := e.signal
	sig.Symbol = symbol
	return sig
}

func (e *blockingEngine) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyzed
}

type fakeRecorder struct {
	mu       sync.Mutex
	recorded []domain.Signal
	err      error
}

func (f *fakeRecorder) Record(signal domain.Signal) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, signal)
	return uint64(len(f.recorded)), nil
}

type fakeExecutor struct {
	mu     sync.Mutex
	calls  int
	result executor.Result
	err    error
}

func (f *fakeExecutor) Execute(ctx context.Context, settings domain.Settings, symbol string, side domain.TradeSide, size decimal.Decimal) (executor.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

type fakeSink struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeSink) Alert(ctx context.Context, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

type fixture struct {
	settings *fakeSettings
	market   *fakeMarket
	engine   *blockingEngine
	recorder *fakeRecorder
	exec     *fakeExecutor
	sink     *fakeSink
	orch     *Orchestrator
}

func newFixture(signal domain.Signal) *fixture {
	settings := domain.DefaultSettings()
	settings.IsAutoTrading = true
	settings.ActiveWallet = "0xmaster"
	settings.AgentCredential = &domain.AgentCredential{Address: "0xagent", PrivateKey: "0xsecret"}

	f := &fixture{
		settings: &fakeSettings{settings: settings},
		market: &fakeMarket{balance: domain.Balance{
			AccountValue: decimal.NewFromInt(1000),
			Withdrawable: decimal.NewFromInt(800),
		}},
		engine:   &blockingEngine{signal: signal},
		recorder: &fakeRecorder{},
		exec:     &fakeExecutor{result: executor.Result{Success: true}},
		sink:     &fakeSink{},
	}
	f.orch = New(f.settings, f.market, f.engine, f.recorder, f.exec, f.sink, Config{
		Interval:  "15m",
		Lookback:  2 * time.Hour,
		OrderSize: decimal.NewFromInt(1),
	}, zap.NewNop())
	return f
}

func buySignal(confidence float64) domain.Signal {
	return domain.Signal{
		Action:     domain.ActionBuy,
		Confidence: confidence,
		Reasoning:  "swept liquidity, reclaimed range",
		TakeProfit: "26.8",
		StopLoss:   "24.5",
		Timestamp:  time.Now(),
	}
}

func TestRunTurn_HaltsWithoutWallet(t *testing.T) {
	f := newFixture(buySignal(0.9))
	f.settings.settings.ActiveWallet = ""

	result, err := f.orch.RunTurn(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, domain.TurnHalted, result.Status)
	require.Equal(t, gate.ReasonNoWallet, result.Reason)
	require.Zero(t, f.engine.calls())
	require.Empty(t, f.recorder.recorded)
}

func TestRunTurn_GateHaltsBeforeReasoningCall(t *testing.T) {
	f := newFixture(buySignal(0.9))
	f.market.balance.Withdrawable = decimal.NewFromFloat(0.05)

	result, err := f.orch.RunTurn(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, domain.TurnHalted, result.Status)
	require.Equal(t, gate.ReasonInsufficientBalance, result.Reason)

	// cost control: the provider is never consulted on a halted turn
	require.Zero(t, f.engine.calls())
	require.Zero(t, f.exec.calls)
	require.Empty(t, f.sink.messages)
}

func TestRunTurn_DataUnavailableAbortsTurn(t *testing.T) {
	f := newFixture(buySignal(0.9))
	f.market.candlesErr = errors.Wrap(clients.ErrDataUnavailable, "venue down")

	_, err := f.orch.RunTurn(context.Background(), "", "")
	require.Error(t, err)
	require.ErrorIs(t, err, clients.ErrDataUnavailable)
	require.Zero(t, f.engine.calls())
}

func TestRunTurn_WaitSignalEndsInMonitoring(t *testing.T) {
	f := newFixture(domain.Signal{
		Action:    domain.ActionWait,
		Reasoning: "conditions unclear",
		Timestamp: time.Now(),
	})

	result, err := f.orch.RunTurn(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, domain.TurnMonitoring, result.Status)
	require.Equal(t, domain.ActionWait, result.Action)

	// WAIT is still recorded: the store is the system of record for
	// what the engine thought
	require.Len(t, f.recorder.recorded, 1)
	require.Equal(t, domain.ActionWait, f.recorder.recorded[0].Action)

	require.Zero(t, f.exec.calls)
	require.Empty(t, f.sink.messages)
}

func TestRunTurn_HighConfidenceExecutesAndAnnouncesOnce(t *testing.T) {
	f := newFixture(buySignal(0.92))

	result, err := f.orch.RunTurn(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, domain.TurnSignalGenerated, result.Status)
	require.Equal(t, domain.ActionBuy, result.Action)
	require.True(t, result.Executed)

	require.Equal(t, 1, f.exec.calls)
	require.Len(t, f.sink.messages, 1)
	require.Contains(t, f.sink.messages[0], "KORBAN ALERT: BUY HYPE")
	require.Contains(t, f.sink.messages[0], "26.8")
	require.Len(t, f.recorder.recorded, 1)
}

func TestRunTurn_AutoTradingOffNeverExecutes(t *testing.T) {
	f := newFixture(buySignal(0.95))
	f.settings.settings.IsAutoTrading = false

	result, err := f.orch.RunTurn(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, domain.TurnSignalGenerated, result.Status)
	require.False(t, result.Executed)
	require.Zero(t, f.exec.calls)

	// the signal is still journaled for the operator to act on
	require.Len(t, f.recorder.recorded, 1)
}

func TestRunTurn_ConfidenceAtThresholdDoesNotExecute(t *testing.T) {
	f := newFixture(buySignal(ExecutionThreshold))

	result, err := f.orch.RunTurn(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, domain.TurnSignalGenerated, result.Status)
	require.False(t, result.Executed, "threshold is strict: confidence must exceed it")
	require.Zero(t, f.exec.calls)
}

func TestRunTurn_BrokerRejectionStillReportsSignalGenerated(t *testing.T) {
	f := newFixture(buySignal(0.92))
	f.exec.result = executor.Result{Success: false, Err: errors.New("insufficient margin")}

	result, err := f.orch.RunTurn(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, domain.TurnSignalGenerated, result.Status)
	require.False(t, result.Executed)

	// the alert still fires regardless of the executor outcome
	require.Len(t, f.sink.messages, 1)
}

func TestRunTurn_UnauthorizedAgentDegrades(t *testing.T) {
	f := newFixture(buySignal(0.92))
	f.exec.err = executor.ErrAgentNotAuthorized

	result, err := f.orch.RunTurn(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, domain.TurnSignalGenerated, result.Status)
	require.False(t, result.Executed)
	require.Len(t, f.sink.messages, 1)
}

func TestRunTurn_RecorderFailureAbortsTurn(t *testing.T) {
	f := newFixture(buySignal(0.92))
	f.recorder.err = errors.New("wal full")

	_, err := f.orch.RunTurn(context.Background(), "", "")
	require.Error(t, err)
	require.Zero(t, f.exec.calls)
}

func TestRunTurn_ExplicitArgumentsOverrideSettings(t *testing.T) {
	f := newFixture(buySignal(0.92))

	result, err := f.orch.RunTurn(context.Background(), "SOL", "0xother")
	require.NoError(t, err)
	require.Equal(t, "SOL", result.Symbol)
	require.Len(t, f.recorder.recorded, 1)
	require.Equal(t, "SOL", f.recorder.recorded[0].Symbol)
}

func TestRunTurn_ConcurrentSameSymbolTurnsNeverDoubleExecute(t *testing.T) {
	f := newFixture(buySignal(0.92))
	f.engine.entered = make(chan struct{}, 2)
	f.engine.release = make(chan struct{})

	first := make(chan domain.TurnResult, 1)
	go func() {
		result, err := f.orch.RunTurn(context.Background(), "HYPE", "")
		require.NoError(t, err)
		first <- result
	}()

	// wait until the first turn holds the lease inside ANALYZING
	<-f.engine.entered

	second, err := f.orch.RunTurn(context.Background(), "HYPE", "")
	require.NoError(t, err)
	require.Equal(t, domain.TurnSkipped, second.Status)

	close(f.engine.release)
	firstResult := <-first
	require.Equal(t, domain.TurnSignalGenerated, firstResult.Status)
	require.True(t, firstResult.Executed)

	require.Equal(t, 1, f.exec.calls, "overlapping turns must not double-execute")
	require.Len(t, f.sink.messages, 1)
}

func TestRunTurn_IndependentSymbolsRunConcurrently(t *testing.T) {
	f := newFixture(buySignal(0.92))
	f.engine.entered = make(chan struct{}, 2)
	f.engine.release = make(chan struct{})

	first := make(chan struct{})
	go func() {
		defer close(first)
		_, err := f.orch.RunTurn(context.Background(), "HYPE", "")
		require.NoError(t, err)
	}()
	<-f.engine.entered

	done := make(chan domain.TurnResult, 1)
	go func() {
		result, err := f.orch.RunTurn(context.Background(), "BTC", "")
		require.NoError(t, err)
		done <- result
	}()

	// the BTC turn reaches ANALYZING while HYPE is still in flight,
	// proving leases are per symbol
	select {
	case <-f.engine.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("BTC turn blocked behind an unrelated symbol's lease")
	}

	close(f.engine.release)
	<-first
	result := <-done
	require.NotEqual(t, domain.TurnSkipped, result.Status)
}
