// Command korban runs the autonomous trading brain for Hyperliquid.
// Every poll interval it gathers market data, asks the reasoning
// provider for a decision, journals the signal and, when auto-trading
// is enabled and confidence is high enough, places the order through
// the approved agent key.
//
// Usage:
//
//	korban --config config.yaml
//	korban --authorize   (one-time agent key approval, requires KORBAN_MASTER_KEY)
//
// Environment variables:
//
//	KORBAN_LLM_API_KEY  reasoning provider API key (required)
//	TELEGRAM_BOT_TOKEN  Telegram bot token (optional, disables alerts when empty)
//	TELEGRAM_CHAT_ID    Telegram chat to alert (optional)
//	KORBAN_MASTER_KEY   master wallet private key, only for --authorize
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/korbanlabs/korban/config"
	"github.com/korbanlabs/korban/internal"
	"github.com/korbanlabs/korban/internal/agent"
	"github.com/korbanlabs/korban/internal/clients"
	"github.com/korbanlabs/korban/internal/domain"
	"github.com/korbanlabs/korban/internal/orchestrator"
	"github.com/korbanlabs/korban/internal/services/executor"
	"github.com/korbanlabs/korban/internal/services/notifier"
	"github.com/korbanlabs/korban/internal/services/scanner"
	"github.com/korbanlabs/korban/internal/services/strategy"
	"github.com/korbanlabs/korban/internal/storage/settings"
	"github.com/korbanlabs/korban/internal/storage/signals"
	"github.com/korbanlabs/korban/internal/storage/trades"
)

const marketDataTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	conf, err := config.Get()
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	settingsStore, err := settings.NewStore(conf.StateDir)
	if err != nil {
		logger.Fatal("failed to open settings store", zap.Error(err))
	}
	if _, err := settingsStore.Ensure(); err != nil {
		logger.Fatal("failed to initialize settings", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if conf.Authorize {
		runAuthorize(ctx, conf, settingsStore, logger)
		return
	}

	if conf.LLMAPIKey == "" {
		logger.Fatal("KORBAN_LLM_API_KEY env is not set")
	}

	signalStore, err := signals.NewWALStore(filepath.Join(conf.DataDir, "signals"))
	if err != nil {
		logger.Fatal("failed to open signal journal", zap.Error(err))
	}
	defer signalStore.Close()

	tradeStore, err := trades.NewWALStore(filepath.Join(conf.DataDir, "trades"))
	if err != nil {
		logger.Fatal("failed to open trade journal", zap.Error(err))
	}
	defer tradeStore.Close()

	market := clients.NewInfoClient(conf.InfoURL, marketDataTimeout)
	llm := clients.NewOpenAICompatibleClient(conf.LLMAPIURL, conf.LLMAPIKey, conf.LLMModel)
	engine := strategy.NewLLMEngine(llm, logger)

	exec := executor.New(executor.NewHyperliquidFactory(conf.ExchangeURL), tradeStore, logger)

	var sink orchestrator.Notifier = notifier.Noop{}
	if conf.TelegramBotToken != "" && conf.TelegramChatID != "" {
		sink = notifier.NewTelegramNotifier("", conf.TelegramBotToken, conf.TelegramChatID, logger)
	} else {
		logger.Warn("telegram credentials not set, alerts disabled")
	}

	orch := orchestrator.New(settingsStore, market, engine, signalStore, exec, sink, orchestrator.Config{
		Interval:  conf.CandleInterval,
		Lookback:  conf.Lookback,
		OrderSize: conf.OrderSize,
	}, logger)

	var sweeper internal.MarketScanner
	if conf.ScanEvery > 0 {
		sweeper = scanner.New(market, llm, settingsStore, logger)
	}

	bot := internal.NewBot(orch, sweeper, tradeStore, conf.PollInterval, conf.ScanEvery, logger)

	if conf.Symbol != "" {
		if err := settingsStore.SetActiveSymbol(conf.Symbol); err != nil {
			logger.Fatal("failed to set active symbol", zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(gctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("decision loop failed", zap.Error(err))
	}
}

// runAuthorize performs the one-time agent approval: generates a fresh
// agent key, signs the approval with the master key, submits it to the
// venue and persists the credential.
func runAuthorize(ctx context.Context, conf config.Config, settingsStore *settings.Store, logger *zap.Logger) {
	masterKey := os.Getenv("KORBAN_MASTER_KEY")
	if masterKey == "" {
		logger.Fatal("KORBAN_MASTER_KEY env is not set")
	}

	approval, err := agent.Authorize(masterKey)
	if err != nil {
		logger.Fatal("failed to sign agent approval", zap.Error(err))
	}

	if err := agent.Submit(ctx, conf.ExchangeURL, approval); err != nil {
		logger.Fatal("venue rejected agent approval", zap.Error(err))
	}

	if err := settingsStore.SaveAgentCredential(approval.Credential.Address, approval.Credential.PrivateKey); err != nil {
		logger.Fatal("failed to persist agent credential", zap.Error(err))
	}
	if _, err := settingsStore.Update(func(s *domain.Settings) {
		s.ActiveWallet = approval.MasterAddress
	}); err != nil {
		logger.Fatal("failed to persist active wallet", zap.Error(err))
	}

	logger.Info("trading agent approved",
		zap.String("agent_address", approval.Credential.Address),
		zap.String("master_address", approval.MasterAddress))
}
