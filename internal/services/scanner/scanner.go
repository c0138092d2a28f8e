// Package scanner sweeps listed markets and refocuses the bot on the
// symbol with the cleanest setup.
package scanner

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/korbanlabs/korban/internal/clients"
	"github.com/korbanlabs/korban/internal/domain"
	"github.com/korbanlabs/korban/internal/services/promptbuilder"
)

// Scan outcome statuses.
const (
	StatusScanning = "SCANNING"
	StatusStopped  = "STOPPED"
)

// MarketData is the venue read API the scanner needs.
type MarketData interface {
	Balance(ctx context.Context, user string) (domain.Balance, error)
	AssetContexts(ctx context.Context) ([]domain.AssetContext, error)
}

// SettingsStore reads and refocuses the singleton configuration.
type SettingsStore interface {
	Get() (domain.Settings, error)
	SetActiveSymbol(symbol string) error
}

// Result reports one market sweep.
type Result struct {
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	BestPair string `json:"best_pair,omitempty"`
}

// Scanner asks the reasoning provider to pick the best market among the
// allowed symbols. A misbehaving provider leaves the active symbol as is.
type Scanner struct {
	market        MarketData
	llm           clients.LLMClient
	settings      SettingsStore
	promptBuilder *promptbuilder.PromptBuilder
	logger        *zap.Logger
}

// New creates a scanner.
func New(market MarketData, llm clients.LLMClient, settings SettingsStore, logger *zap.Logger) *Scanner {
	return &Scanner{
		market:        market,
		llm:           llm,
		settings:      settings,
		promptBuilder: promptbuilder.NewPromptBuilder(),
		logger:        logger,
	}
}

type pickResponse struct {
	BestPair string `json:"best_pair"`
	Reason   string `json:"reason"`
}

// Scan checks the balance first, then sweeps asset contexts and updates
// the active symbol when the provider picks an allowed one.
func (s *Scanner) Scan(ctx context.Context, userAddress string) (Result, error) {
	settings, err := s.settings.Get()
	if err != nil {
		return Result{}, errors.Wrap(err, "load settings")
	}
	if userAddress == "" {
		userAddress = settings.ActiveWallet
	}
	if userAddress == "" {
		return Result{Status: StatusStopped, Reason: "NO_WALLET"}, nil
	}

	balance, err := s.market.Balance(ctx, userAddress)
	if err != nil {
		return Result{}, errors.Wrap(err, "fetch balance")
	}
	if balance.Withdrawable.LessThan(settings.MinBalanceThreshold) {
		s.logger.Warn("scan stopped: balance below threshold",
			zap.String("balance", balance.Withdrawable.String()),
			zap.String("threshold", settings.MinBalanceThreshold.String()))
		return Result{Status: StatusStopped, Reason: "INSUFFICIENT_BALANCE"}, nil
	}

	contexts, err := s.market.AssetContexts(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "fetch asset contexts")
	}
	allowed := filterAllowed(contexts, settings.AllowedSymbols)
	if len(allowed) == 0 {
		return Result{Status: StatusScanning, BestPair: settings.ActiveSymbol}, nil
	}

	prompt := s.promptBuilder.BuildScannerPrompt(allowed, balance.Withdrawable.String())
	response, err := s.llm.Chat(ctx, promptbuilder.SystemPrompt, prompt)
	if err != nil {
		s.logger.Warn("scanner provider call failed, keeping active symbol", zap.Error(err))
		return Result{Status: StatusScanning, BestPair: settings.ActiveSymbol}, nil
	}

	pick, ok := s.parsePick(response, settings)
	if !ok {
		return Result{Status: StatusScanning, BestPair: settings.ActiveSymbol}, nil
	}

	if pick.BestPair != settings.ActiveSymbol {
		if err := s.settings.SetActiveSymbol(pick.BestPair); err != nil {
			return Result{}, errors.Wrap(err, "refocus active symbol")
		}
		s.logger.Info("refocused active symbol",
			zap.String("from", settings.ActiveSymbol),
			zap.String("to", pick.BestPair),
			zap.String("reason", pick.Reason))
	}

	return Result{Status: StatusScanning, BestPair: pick.BestPair, Reason: pick.Reason}, nil
}

func (s *Scanner) parsePick(response string, settings domain.Settings) (pickResponse, bool) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")

	var pick pickResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &pick); err != nil {
		s.logger.Warn("scanner returned malformed pick", zap.String("response", response), zap.Error(err))
		return pickResponse{}, false
	}
	pick.BestPair = strings.ToUpper(strings.TrimSpace(pick.BestPair))
	if !settings.SymbolAllowed(pick.BestPair) {
		s.logger.Warn("scanner picked a symbol outside the allowed set", zap.String("pick", pick.BestPair))
		return pickResponse{}, false
	}
	return pick, true
}

func filterAllowed(contexts []domain.AssetContext, allowed []string) []domain.AssetContext {
	set := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		set[s] = struct{}{}
	}
	out := make([]domain.AssetContext, 0, len(allowed))
	for _, c := range contexts {
		if _, ok := set[c.Coin]; ok {
			out = append(out, c)
		}
	}
	return out
}
