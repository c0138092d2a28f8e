package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultInfoURL     = "https://api.hyperliquid.xyz/info"
	defaultExchangeURL = "https://api.hyperliquid.xyz"
	defaultLLMAPIURL   = "https://api.moonshot.cn/v1/chat/completions"
	defaultLLMModel    = "kimi-k2-0711-preview"
)

// Config holds the full runtime configuration. Secrets come from the
// environment, everything else from the YAML file or defaults.
type Config struct {
	Symbol         string
	CandleInterval string
	Lookback       time.Duration
	PollInterval   time.Duration
	ScanEvery      int
	OrderSize      decimal.Decimal

	InfoURL     string
	ExchangeURL string
	StateDir    string
	DataDir     string

	LLMAPIURL string
	LLMAPIKey string
	LLMModel  string

	TelegramBotToken string
	TelegramChatID   string

	// Authorize runs the one-time agent approval handshake and exits.
	Authorize bool
}

type configTmp struct {
	Symbol         string        `yaml:"symbol,omitempty"`
	CandleInterval string        `yaml:"candle_interval,omitempty"`
	Lookback       time.Duration `yaml:"lookback,omitempty"`
	PollInterval   time.Duration `yaml:"poll_interval,omitempty"`
	ScanEvery      int           `yaml:"scan_every,omitempty"`
	OrderSizeStr   string        `yaml:"order_size,omitempty"`
	InfoURL        string        `yaml:"info_url,omitempty"`
	ExchangeURL    string        `yaml:"exchange_url,omitempty"`
	StateDir       string        `yaml:"state_dir,omitempty"`
	DataDir        string        `yaml:"data_dir,omitempty"`
	LLMAPIURL      string        `yaml:"llm_api_url,omitempty"`
	LLMModel       string        `yaml:"llm_model,omitempty"`
}

// Get parses the --config flag, reads the YAML file if provided, applies
// defaults and overlays secrets from the environment.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	authorize := flag.Bool("authorize", false, "approve a fresh trading agent key and exit")
	flag.Parse()

	var tmp configTmp
	if *configPath != "" {
		f, err := os.ReadFile(*configPath)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(f, &tmp); err != nil {
			return Config{}, fmt.Errorf("parse yaml config: %w", err)
		}
	}

	conf := Config{
		Symbol:         tmp.Symbol,
		CandleInterval: orDefault(tmp.CandleInterval, "15m"),
		Lookback:       tmp.Lookback,
		PollInterval:   tmp.PollInterval,
		ScanEvery:      tmp.ScanEvery,
		InfoURL:        orDefault(tmp.InfoURL, defaultInfoURL),
		ExchangeURL:    orDefault(tmp.ExchangeURL, defaultExchangeURL),
		StateDir:       orDefault(tmp.StateDir, "./state"),
		DataDir:        orDefault(tmp.DataDir, "./data"),
		LLMAPIURL:      orDefault(tmp.LLMAPIURL, defaultLLMAPIURL),
		LLMModel:       orDefault(tmp.LLMModel, defaultLLMModel),

		Authorize: *authorize,

		LLMAPIKey:        os.Getenv("KORBAN_LLM_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}
	if conf.Lookback == 0 {
		conf.Lookback = 2 * time.Hour
	}
	if conf.PollInterval == 0 {
		conf.PollInterval = 15 * time.Minute
	}

	if tmp.OrderSizeStr == "" {
		conf.OrderSize = decimal.NewFromInt(1)
	} else {
		size, err := decimal.NewFromString(tmp.OrderSizeStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'order_size' param in yaml config (must be a decimal): %w", err)
		}
		if !size.IsPositive() {
			return Config{}, fmt.Errorf("'order_size' must be positive, got %s", size)
		}
		conf.OrderSize = size
	}

	return conf, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
