package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of an executed order.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// SideFromAction maps a signal action to an order side.
func SideFromAction(a SignalAction) (TradeSide, error) {
	switch a {
	case ActionBuy:
		return SideBuy, nil
	case ActionSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("action %s has no order side", a)
	}
}

// TradeStatus is the lifecycle state of a trade.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// Trade is a record of a placed order. Created only by a successful
// executor call; moves OPEN -> CLOSED on external fill reconciliation.
type Trade struct {
	ID     string    `json:"id"`
	Symbol string    `json:"symbol"`
	Side   TradeSide `json:"side"`
	// EntryPrice is zero at creation; the actual fill price is reconciled
	// later by an external process.
	EntryPrice decimal.Decimal  `json:"entry_price"`
	Amount     decimal.Decimal  `json:"amount"`
	Status     TradeStatus      `json:"status"`
	PnL        *decimal.Decimal `json:"pnl,omitempty"`
	OpenedAt   time.Time        `json:"opened_at"`
	ClosedAt   *time.Time       `json:"closed_at,omitempty"`
}

// TradeStats aggregates closed-trade performance.
type TradeStats struct {
	WinRate  float64         `json:"win_rate"`
	LossRate float64         `json:"loss_rate"`
	TotalPnL decimal.Decimal `json:"total_pnl"`
	Count    int             `json:"count"`
}
