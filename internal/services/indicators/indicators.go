// Package indicators computes technical indicators from candle data using
// the cinar/indicator library.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/shopspring/decimal"

	"github.com/korbanlabs/korban/internal/domain"
)

// minCandles is the warmup needed for the slowest indicator (EMA50).
const minCandles = 50

// Snapshot holds the latest indicator values for a candle series.
type Snapshot struct {
	EMA20 decimal.Decimal
	EMA50 decimal.Decimal
	RSI14 decimal.Decimal
	ATR14 decimal.Decimal
}

// Compute returns the most recent indicator values for the series.
func Compute(candles []domain.Candle) (Snapshot, error) {
	if len(candles) < minCandles {
		return Snapshot{}, fmt.Errorf("not enough candles: need %d, got %d", minCandles, len(candles))
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i], _ = c.Close.Float64()
		highs[i], _ = c.High.Float64()
		lows[i], _ = c.Low.Float64()
	}

	ema20 := last(trend.NewEmaWithPeriod[float64](20).Compute(helper.SliceToChan(closes)))
	ema50 := last(trend.NewEmaWithPeriod[float64](50).Compute(helper.SliceToChan(closes)))
	rsi14 := last(momentum.NewRsiWithPeriod[float64](14).Compute(helper.SliceToChan(closes)))
	atr14 := last(volatility.NewAtrWithPeriod[float64](14).Compute(
		helper.SliceToChan(highs),
		helper.SliceToChan(lows),
		helper.SliceToChan(closes),
	))

	return Snapshot{
		EMA20: decimal.NewFromFloat(ema20),
		EMA50: decimal.NewFromFloat(ema50),
		RSI14: decimal.NewFromFloat(rsi14),
		ATR14: decimal.NewFromFloat(atr14),
	}, nil
}

func last(ch <-chan float64) float64 {
	values := helper.ChanToSlice(ch)
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
