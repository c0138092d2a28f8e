package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar.
type Candle struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
}

// BookLevel is a single price level of the order book.
type BookLevel struct {
	Price  decimal.Decimal
	Size   decimal.Decimal
	Orders int
}

// OrderBook is an L2 depth snapshot.
type OrderBook struct {
	Coin string
	Time time.Time
	Bids []BookLevel
	Asks []BookLevel
}

// Balance is the account state relevant to the safety gate.
type Balance struct {
	AccountValue decimal.Decimal
	Withdrawable decimal.Decimal
}

// AssetContext is a per-market summary used by the scanner.
type AssetContext struct {
	Coin      string
	MarkPrice decimal.Decimal
	DayVolume decimal.Decimal
	Funding   decimal.Decimal
}
