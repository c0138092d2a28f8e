package promptbuilder

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/korbanlabs/korban/internal/domain"
	"github.com/korbanlabs/korban/internal/services/indicators"
)

func TestBuildUserPrompt(t *testing.T) {
	builder := NewPromptBuilder()

	mc := MarketContext{
		Symbol: "HYPE",
		Candles: []domain.Candle{{
			OpenTime: time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC),
			Open:     decimal.NewFromFloat(25.1),
			High:     decimal.NewFromFloat(25.6),
			Low:      decimal.NewFromFloat(24.9),
			Close:    decimal.NewFromFloat(25.4),
			Volume:   decimal.NewFromInt(1000),
		}},
		Book: domain.OrderBook{
			Bids: []domain.BookLevel{{Price: decimal.NewFromFloat(25.3), Size: decimal.NewFromInt(100)}},
			Asks: []domain.BookLevel{{Price: decimal.NewFromFloat(25.5), Size: decimal.NewFromInt(80)}},
		},
		Indicators: &indicators.Snapshot{
			EMA20: decimal.NewFromFloat(25.2),
			EMA50: decimal.NewFromFloat(24.8),
			RSI14: decimal.NewFromFloat(61.5),
			ATR14: decimal.NewFromFloat(0.45),
		},
	}

	prompt := builder.BuildUserPrompt(mc)

	require.Contains(t, prompt, "Analyze HYPE")
	require.Contains(t, prompt, "o=25.1 h=25.6 l=24.9 c=25.4 v=1000")
	require.Contains(t, prompt, "BIDS: 100@25.3")
	require.Contains(t, prompt, "ASKS: 80@25.5")
	require.Contains(t, prompt, "RSI14=61.50")
}

func TestBuildUserPrompt_CapsSerializedData(t *testing.T) {
	builder := NewPromptBuilder()

	candles := make([]domain.Candle, 100)
	for i := range candles {
		candles[i] = domain.Candle{
			OpenTime: time.Now(),
			Open:     decimal.NewFromInt(int64(i)),
			High:     decimal.NewFromInt(int64(i)),
			Low:      decimal.NewFromInt(int64(i)),
			Close:    decimal.NewFromInt(int64(i)),
			Volume:   decimal.NewFromInt(1),
		}
	}
	levels := make([]domain.BookLevel, 50)
	for i := range levels {
		levels[i] = domain.BookLevel{Price: decimal.NewFromInt(int64(i)), Size: decimal.NewFromInt(1)}
	}

	prompt := builder.BuildUserPrompt(MarketContext{
		Symbol:  "BTC",
		Candles: candles,
		Book:    domain.OrderBook{Bids: levels, Asks: levels},
	})

	require.Equal(t, promptCandles, strings.Count(prompt, "o="), "candle serialization must be capped")
	// only the most recent bars survive the cap
	require.Contains(t, prompt, "c=99")
	require.NotContains(t, prompt, "c=84\n")
}

func TestBuildScannerPrompt(t *testing.T) {
	builder := NewPromptBuilder()

	prompt := builder.BuildScannerPrompt([]domain.AssetContext{
		{Coin: "HYPE", MarkPrice: decimal.NewFromFloat(25.5), DayVolume: decimal.NewFromInt(1000000), Funding: decimal.NewFromFloat(0.0001)},
		{Coin: "BTC", MarkPrice: decimal.NewFromInt(97000), DayVolume: decimal.NewFromInt(5000000), Funding: decimal.NewFromFloat(0.00005)},
	}, "1200.50")

	require.Contains(t, prompt, "HYPE mark=25.5")
	require.Contains(t, prompt, "BTC mark=97000")
	require.Contains(t, prompt, "$1200.50")
	require.Contains(t, prompt, `"best_pair"`)
}

func TestSystemPromptDemandsStrictJSON(t *testing.T) {
	require.Contains(t, SystemPrompt, "BUY")
	require.Contains(t, SystemPrompt, "SELL")
	require.Contains(t, SystemPrompt, "WAIT")
	require.Contains(t, SystemPrompt, "confidence")
	require.Contains(t, SystemPrompt, "JSON")
}
