package consumer

import (
	"context"
	"time"

	"github.com/librenews/skywire/internal/model"
	"github.com/librenews/skywire/internal/store"
	"github.com/librenews/skywire/internal/stream"
)

// StreamClient is the consumer-group view of the match stream.
type StreamClient interface {
	EnsureGroup(ctx context.Context) error
	Read(ctx context.Context, start string) ([]stream.Entry, error)
	Ack(ctx context.Context, ids ...string) error
	Pending(ctx context.Context) (int64, error)
	ClaimStale(ctx context.Context, minIdle time.Duration, count int64) ([]string, error)
}

// Mirrors store.Stores.
type StoreProvider interface {
	Subscriptions() store.SubscriptionStore
	Matches() store.MatchStore
	Deliveries() store.DeliveryStore
}

type Dispatcher interface {
	DispatchAll(ctx context.Context, sub *model.Subscription, channels []model.DeliveryChannel, match *model.Match)
}
