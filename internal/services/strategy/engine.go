// Package strategy turns market data into trading signals via an external
// reasoning provider.
package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/korbanlabs/korban/internal/clients"
	"github.com/korbanlabs/korban/internal/domain"
	"github.com/korbanlabs/korban/internal/services/indicators"
	"github.com/korbanlabs/korban/internal/services/promptbuilder"
)

// Engine is the reasoning capability. Implementations are selected by
// configuration, not by branching in the orchestrator.
type Engine interface {
	// Analyze produces a signal for the symbol. It never fails: any
	// provider misbehavior degrades to a WAIT signal carrying a
	// diagnostic, so a turn never aborts mid-pipeline.
	Analyze(ctx context.Context, symbol string, candles []domain.Candle, book domain.OrderBook) domain.Signal
}

// decision is the strict response schema demanded from the provider.
type decision struct {
	Action     string  `json:"action" validate:"required,oneof=BUY SELL WAIT"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	SetupType  string  `json:"setup_type"`
	EntryZone  string  `json:"entry_zone"`
	StopLoss   string  `json:"stop_loss"`
	TakeProfit string  `json:"take_profit"`
	Reasoning  string  `json:"reasoning" validate:"required"`
}

// LLMEngine implements Engine over an OpenAI-compatible chat API.
// Side-effect-free with respect to trading; signal persistence is the
// orchestrator's job.
type LLMEngine struct {
	llm           clients.LLMClient
	promptBuilder *promptbuilder.PromptBuilder
	validate      *validator.Validate
	logger        *zap.Logger
}

// NewLLMEngine creates the LLM-backed strategy engine.
func NewLLMEngine(llm clients.LLMClient, logger *zap.Logger) *LLMEngine {
	return &LLMEngine{
		llm:           llm,
		promptBuilder: promptbuilder.NewPromptBuilder(),
		validate:      validator.New(),
		logger:        logger,
	}
}

// Analyze asks the provider for a directional call on the symbol.
func (e *LLMEngine) Analyze(ctx context.Context, symbol string, candles []domain.Candle, book domain.OrderBook) domain.Signal {
	mc := promptbuilder.MarketContext{
		Symbol:  symbol,
		Candles: candles,
		Book:    book,
	}

	// indicator enrichment is best-effort; short series just omit it
	if snapshot, err := indicators.Compute(candles); err == nil {
		mc.Indicators = &snapshot
	} else {
		e.logger.Debug("skipping indicator enrichment", zap.String("symbol", symbol), zap.Error(err))
	}

	response, err := e.llm.Chat(ctx, promptbuilder.SystemPrompt, e.promptBuilder.BuildUserPrompt(mc))
	if err != nil {
		e.logger.Warn("reasoning provider call failed",
			zap.String("symbol", symbol),
			zap.Error(err))
		return domain.WaitSignal(symbol, fmt.Sprintf("reasoning provider unavailable: %v", err))
	}

	dec, err := e.parseDecision(response)
	if err != nil {
		e.logger.Warn("reasoning provider returned malformed decision",
			zap.String("symbol", symbol),
			zap.String("response", response),
			zap.Error(err))
		return domain.WaitSignal(symbol, fmt.Sprintf("malformed decision: %v", err))
	}

	signal := domain.WaitSignal(symbol, dec.Reasoning)
	signal.Action = domain.SignalAction(dec.Action)
	signal.Confidence = dec.Confidence
	signal.SetupType = dec.SetupType
	signal.EntryZone = dec.EntryZone
	signal.StopLoss = dec.StopLoss
	signal.TakeProfit = dec.TakeProfit
	return signal
}

// parseDecision parses and validates the provider response against the
// strict schema. Markdown fences are tolerated, trailing commentary is not.
func (e *LLMEngine) parseDecision(response string) (*decision, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	if !json.Valid([]byte(response)) {
		return nil, fmt.Errorf("invalid JSON structure")
	}

	var dec decision
	if err := json.Unmarshal([]byte(response), &dec); err != nil {
		return nil, fmt.Errorf("unmarshal decision: %w", err)
	}

	if err := e.validate.Struct(&dec); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	return &dec, nil
}
