package notifier

import "context"

// Noop discards alerts. Used when no Telegram credentials are configured.
type Noop struct{}

func (Noop) Alert(context.Context, string) {}
