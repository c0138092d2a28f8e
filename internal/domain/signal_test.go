package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalAction_Valid(t *testing.T) {
	tests := []struct {
		name   string
		action SignalAction
		valid  bool
	}{
		{"buy", ActionBuy, true},
		{"sell", ActionSell, true},
		{"wait", ActionWait, true},
		{"empty", SignalAction(""), false},
		{"lowercase", SignalAction("buy"), false},
		{"unknown", SignalAction("HOLD"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.action.Valid())
		})
	}
}

func TestWaitSignal(t *testing.T) {
	signal := WaitSignal("HYPE", "reasoning provider unavailable")

	require.Equal(t, "HYPE", signal.Symbol)
	require.Equal(t, ActionWait, signal.Action)
	require.Zero(t, signal.Confidence)
	require.Equal(t, "reasoning provider unavailable", signal.Reasoning)
	require.False(t, signal.Timestamp.IsZero())
	require.False(t, signal.Processed)
}
