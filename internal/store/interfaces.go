package store

import (
	"context"
	"errors"

	"github.com/librenews/skywire/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// SubscriptionStore resolves subscriptions by the id the matcher knows them by.
type SubscriptionStore interface {
	GetByExternalID(ctx context.Context, externalID string) (*model.Subscription, error)
}

// MatchStore persists matches. Create is a single insert and returns any
// failure unchanged so the caller can withhold the stream ack.
type MatchStore interface {
	Create(ctx context.Context, match *model.Match) error
}

// DeliveryStore lists the channels a match fans out to
type DeliveryStore interface {
	ListActiveBySubscription(ctx context.Context, subscriptionID int64) ([]model.DeliveryChannel, error)
}
