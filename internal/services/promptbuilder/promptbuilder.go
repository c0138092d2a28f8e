// Package promptbuilder formats market data into token-efficient prompts
// for LLM consumption.
package promptbuilder

import (
	"fmt"
	"strings"

	"github.com/korbanlabs/korban/internal/domain"
	"github.com/korbanlabs/korban/internal/services/indicators"
)

const (
	// promptCandles caps how many recent bars are serialized.
	promptCandles = 15
	// promptBookDepth caps how many book levels per side are serialized.
	promptBookDepth = 10
)

// MarketContext carries everything the engine knows about a symbol
// for one analysis run.
type MarketContext struct {
	Symbol     string
	Candles    []domain.Candle
	Book       domain.OrderBook
	Indicators *indicators.Snapshot
}

// PromptBuilder generates the user prompt for a trading decision.
type PromptBuilder struct{}

// NewPromptBuilder creates a prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildUserPrompt renders the market context into the analysis request.
func (b *PromptBuilder) BuildUserPrompt(mc MarketContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze %s for a trading decision.\n\n", mc.Symbol)

	sb.WriteString("CANDLES (OHLCV, ascending time):\n")
	candles := mc.Candles
	if len(candles) > promptCandles {
		candles = candles[len(candles)-promptCandles:]
	}
	for _, c := range candles {
		fmt.Fprintf(&sb, "%s o=%s h=%s l=%s c=%s v=%s\n",
			c.OpenTime.UTC().Format("01-02 15:04"),
			c.Open.String(), c.High.String(), c.Low.String(), c.Close.String(), c.Volume.String())
	}

	sb.WriteString("\nL2 BOOK (liquidity & order blocks):\n")
	b.writeSide(&sb, "BIDS", mc.Book.Bids)
	b.writeSide(&sb, "ASKS", mc.Book.Asks)

	if mc.Indicators != nil {
		sb.WriteString("\nINDICATORS:\n")
		fmt.Fprintf(&sb, "EMA20=%s EMA50=%s RSI14=%s ATR14=%s\n",
			mc.Indicators.EMA20.StringFixed(4),
			mc.Indicators.EMA50.StringFixed(4),
			mc.Indicators.RSI14.StringFixed(2),
			mc.Indicators.ATR14.StringFixed(4))
	}

	return sb.String()
}

func (b *PromptBuilder) writeSide(sb *strings.Builder, name string, levels []domain.BookLevel) {
	fmt.Fprintf(sb, "%s:", name)
	n := len(levels)
	if n > promptBookDepth {
		n = promptBookDepth
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(sb, " %s@%s", levels[i].Size.String(), levels[i].Price.String())
	}
	sb.WriteString("\n")
}

// BuildScannerPrompt renders the market sweep used to pick the cleanest setup.
func (b *PromptBuilder) BuildScannerPrompt(contexts []domain.AssetContext, balance string) string {
	var sb strings.Builder

	sb.WriteString("Analyze these markets and identify which asset has the cleanest institutional order block or liquidity sweep setup.\n\n")
	for _, c := range contexts {
		fmt.Fprintf(&sb, "%s mark=%s dayVol=%s funding=%s\n",
			c.Coin, c.MarkPrice.String(), c.DayVolume.String(), c.Funding.String())
	}
	fmt.Fprintf(&sb, "\nCurrent balance: $%s\n", balance)
	sb.WriteString("\nReturn strict JSON: {\"best_pair\": \"SYMBOL\", \"reason\": \"why\"}\n")

	return sb.String()
}
