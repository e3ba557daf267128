package progress

import "context"

// Sink consumes batches of progress events. Implementations must be safe for
// repeated calls and honor ctx deadlines.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Reporter receives one Event per completed batch. Hub satisfies it; callers
// that do not care about progress pass nil.
type Reporter interface {
	Report(evt Event)
}
