package notifier

import "context"

// TextSender delivers a pre-rendered text message.
type TextSender interface {
	SendText(ctx context.Context, text string) error
}

// Notifier receives calculation notices. Implementations must return quickly;
// slow transports go behind a Queue.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}
