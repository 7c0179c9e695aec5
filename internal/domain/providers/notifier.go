package providers

import "context"

// Notifier delivers a plain text message to operators outside the portal
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
