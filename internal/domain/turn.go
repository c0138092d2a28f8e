package domain

// TurnStatus is the terminal state of one orchestrator turn.
type TurnStatus string

const (
	// TurnHalted means the safety gate stopped the turn before analysis.
	TurnHalted TurnStatus = "HALTED"
	// TurnMonitoring means the engine chose WAIT; no execution considered.
	TurnMonitoring TurnStatus = "MONITORING"
	// TurnSignalGenerated means a directional signal was produced,
	// whether or not execution policy fired.
	TurnSignalGenerated TurnStatus = "SIGNAL_GENERATED"
	// TurnSkipped means another turn for the same symbol was in flight.
	TurnSkipped TurnStatus = "SKIPPED"
)

// TurnResult reports the outcome of one orchestrator turn.
type TurnResult struct {
	Status   TurnStatus   `json:"status"`
	Symbol   string       `json:"symbol"`
	Action   SignalAction `json:"action,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Executed bool         `json:"executed"`
}
