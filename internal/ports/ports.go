package ports

import (
	"context"

	"github.com/mikey-austin/lumen/pkg/lumen"
)

// Broker publishes commands and reads retained state/presence.
type Broker interface {
	ReplyTopic() string
	PublishCommand(ctx context.Context, nodeID string, cmd lumen.CommandEnvelope) (lumen.ReplyEnvelope, error)
	ListPresence(ctx context.Context) ([]lumen.Presence, error)
	GetHostState(ctx context.Context, nodeID string) (lumen.HostState, error)
	WatchHost(ctx context.Context, nodeID string) (<-chan lumen.HostState, <-chan error)
}

// Clock returns the current unix time in seconds.
type Clock interface {
	NowUnix() int64
}

// IDGen returns unique correlation IDs.
type IDGen interface {
	NewID() string
}
