package internal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/korbanlabs/korban/internal/domain"
	"github.com/korbanlabs/korban/internal/services/scanner"
)

// Brain runs one decision turn. Satisfied by orchestrator.Orchestrator.
type Brain interface {
	RunTurn(ctx context.Context, symbol, userAddress string) (domain.TurnResult, error)
}

// MarketScanner sweeps listed markets and may refocus the active symbol.
type MarketScanner interface {
	Scan(ctx context.Context, userAddress string) (scanner.Result, error)
}

// StatsReader summarizes realized trading performance.
type StatsReader interface {
	Stats() (domain.TradeStats, error)
}

// Bot drives the heartbeat: every poll interval it runs one brain turn
// for the active symbol, optionally sweeping markets first.
type Bot struct {
	brain     Brain
	scanner   MarketScanner
	stats     StatsReader
	interval  time.Duration
	scanEvery int
	logger    *zap.Logger
}

// NewBot creates the heartbeat runner. scanEvery <= 0 disables scanning;
// otherwise a market sweep precedes every scanEvery-th turn.
func NewBot(brain Brain, marketScanner MarketScanner, stats StatsReader, interval time.Duration, scanEvery int, logger *zap.Logger) *Bot {
	return &Bot{
		brain:     brain,
		scanner:   marketScanner,
		stats:     stats,
		interval:  interval,
		scanEvery: scanEvery,
		logger:    logger,
	}
}

// Run executes turns until the context is cancelled. Turn failures are
// logged and the loop keeps going; only cancellation stops it.
func (b *Bot) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("starting decision loop", zap.Duration("poll_interval", b.interval))

	tick := 0
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("context done, stopping decision loop")
			return ctx.Err()
		case <-ticker.C:
			tick++
			b.runOnce(ctx, tick)
		}
	}
}

func (b *Bot) runOnce(ctx context.Context, tick int) {
	if b.scanner != nil && b.scanEvery > 0 && tick%b.scanEvery == 0 {
		if res, err := b.scanner.Scan(ctx, ""); err != nil {
			b.logger.Error("market sweep failed", zap.Error(err))
		} else {
			b.logger.Debug("market sweep done", zap.String("status", res.Status), zap.String("best_pair", res.BestPair))
		}
	}

	// empty symbol and address fall back to the stored settings
	result, err := b.brain.RunTurn(ctx, "", "")
	if err != nil {
		b.logger.Error("brain turn failed", zap.Error(err))
		return
	}

	b.logger.Info("brain turn complete",
		zap.String("status", string(result.Status)),
		zap.String("symbol", result.Symbol),
		zap.String("action", string(result.Action)),
		zap.Bool("executed", result.Executed))

	if result.Executed && b.stats != nil {
		if stats, err := b.stats.Stats(); err == nil {
			b.logger.Info("performance summary",
				zap.Float64("win_rate", stats.WinRate),
				zap.String("total_pnl", stats.TotalPnL.String()),
				zap.Int("closed_trades", stats.Count))
		}
	}
}
