package domain

import "github.com/shopspring/decimal"

// AgentCredential is a delegated signing key authorized to trade on behalf
// of a user without withdrawal rights. Settings exclusively owns the current
// credential; replacing it logically invalidates the previous one.
type AgentCredential struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

// Authorized reports whether the credential can be used to sign orders.
func (c *AgentCredential) Authorized() bool {
	return c != nil && c.Address != "" && c.PrivateKey != ""
}

// Settings is the singleton bot configuration. Exactly one record exists at
// any time; creation is idempotent and updates are in-place field patches.
type Settings struct {
	IsAutoTrading       bool             `json:"is_auto_trading"`
	ActiveSymbol        string           `json:"active_symbol"`
	ActiveWallet        string           `json:"active_wallet,omitempty"`
	AgentCredential     *AgentCredential `json:"agent_credential,omitempty"`
	MinBalanceThreshold decimal.Decimal  `json:"min_balance_threshold"`
	MaxLeverage         decimal.Decimal  `json:"max_leverage"`
	StopLossPercent     decimal.Decimal  `json:"stop_loss_percent"`
	TakeProfitPercent   decimal.Decimal  `json:"take_profit_percent"`
	AllowedSymbols      []string         `json:"allowed_symbols"`
}

// DefaultSettings returns the initial singleton record.
func DefaultSettings() Settings {
	return Settings{
		IsAutoTrading:       false,
		ActiveSymbol:        "HYPE",
		MinBalanceThreshold: decimal.NewFromFloat(0.1),
		MaxLeverage:         decimal.NewFromInt(10),
		StopLossPercent:     decimal.NewFromInt(2),
		TakeProfitPercent:   decimal.NewFromInt(5),
		AllowedSymbols:      []string{"HYPE", "BTC", "ETH", "SOL"},
	}
}

// SymbolAllowed reports whether the symbol is in the allowed set.
func (s *Settings) SymbolAllowed(symbol string) bool {
	for _, allowed := range s.AllowedSymbols {
		if allowed == symbol {
			return true
		}
	}
	return false
}
