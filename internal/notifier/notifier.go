package notifier

import "context"

// Notifier delivers a text message to the operator.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// NoopNotifier is used when Telegram is not configured.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier { return &NoopNotifier{} }

func (n *NoopNotifier) Send(_ context.Context, _ string) error { return nil }
