package store

import (
	"github.com/librenews/skywire/core/db/sqlc"
)

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Subscriptions() SubscriptionStore {
	return newSubscriptionStore(s.queries)
}

func (s *Stores) Matches() MatchStore {
	return newMatchStore(s.queries)
}

func (s *Stores) Deliveries() DeliveryStore {
	return newDeliveryStore(s.queries)
}
