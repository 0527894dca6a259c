package bridge

import (
	"context"

	"github.com/gabe/mobwatch/internal/protocol"
)

// Source kinds accepted in configuration.
const (
	SourceSimulated = "simulated"
	SourceHTTP      = "http"
	SourceSpool     = "spool"
)

// Source yields the events that follow cursor. Implementations may block;
// the bridge calls Poll off the owner goroutine.
type Source interface {
	Poll(ctx context.Context, cursor uint64) (protocol.Batch, error)
}

// Commander delivers an outbound command. An explicit refusal by the far
// end wraps ErrCommandRejected; any other error is a transport failure.
type Commander interface {
	Send(ctx context.Context, cmd protocol.Command) error
}

// Watcher is implemented by sources that can tell when new events are
// likely available, letting the bridge poll ahead of its interval.
type Watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}
