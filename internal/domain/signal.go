// Package domain defines core data structures used throughout the trading core.
package domain

import (
	"time"
)

// SignalAction is the directional call produced by the strategy engine.
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionWait SignalAction = "WAIT"
)

// Valid reports whether the action is one of the known values.
func (a SignalAction) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionWait:
		return true
	}
	return false
}

// Signal is the structured output of one strategy engine run.
// Signals are immutable once recorded; the signal store is append-only.
type Signal struct {
	// Symbol is the coin the signal was generated for, e.g. "HYPE".
	Symbol string `json:"symbol"`
	// Action is the directional call.
	Action SignalAction `json:"action"`
	// Confidence in [0, 1].
	Confidence float64 `json:"confidence"`
	// Reasoning is the model's rationale, or a diagnostic on soft failure.
	Reasoning string `json:"reasoning"`
	// SetupType names the pattern behind the call, e.g. "Liquidity Sweep".
	SetupType string `json:"setup_type,omitempty"`
	// EntryZone, StopLoss and TakeProfit are price strings as returned on the wire.
	EntryZone  string `json:"entry_zone,omitempty"`
	StopLoss   string `json:"stop_loss,omitempty"`
	TakeProfit string `json:"take_profit,omitempty"`
	// Timestamp orders signals within a symbol; latest = max timestamp.
	Timestamp time.Time `json:"timestamp"`
	// Processed marks whether execution has consumed the signal.
	Processed bool `json:"processed"`
}

// WaitSignal builds a well-formed WAIT signal carrying a diagnostic reason.
// Used when the reasoning provider misbehaves so a turn never aborts mid-pipeline.
func WaitSignal(symbol, reason string) Signal {
	return Signal{
		Symbol:     symbol,
		Action:     ActionWait,
		Confidence: 0,
		Reasoning:  reason,
		Timestamp:  time.Now(),
	}
}
