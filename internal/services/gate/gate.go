// Package gate implements the pre-trade safety check.
package gate

import (
	"github.com/shopspring/decimal"

	"github.com/korbanlabs/korban/internal/domain"
)

// Halt reasons surfaced to the caller.
const (
	ReasonNoWallet            = "no active wallet authorized"
	ReasonInsufficientBalance = "insufficient balance"
)

// Verdict is the outcome of a safety evaluation.
type Verdict struct {
	Proceed bool
	Reason  string
}

// Evaluate decides whether a turn may proceed to analysis and execution.
// Pure function, no I/O: (a) a missing wallet or agent credential halts;
// (b) a balance below the configured threshold halts; otherwise proceed.
func Evaluate(balance decimal.Decimal, settings domain.Settings) Verdict {
	if settings.ActiveWallet == "" || !settings.AgentCredential.Authorized() {
		return Verdict{Proceed: false, Reason: ReasonNoWallet}
	}
	if balance.LessThan(settings.MinBalanceThreshold) {
		return Verdict{Proceed: false, Reason: ReasonInsufficientBalance}
	}
	return Verdict{Proceed: true}
}
