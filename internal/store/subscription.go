package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/librenews/skywire/core/db/sqlc"
	"github.com/librenews/skywire/internal/model"
)

type subscriptionStore struct {
	queries *sqlc.Queries
}

func newSubscriptionStore(queries *sqlc.Queries) SubscriptionStore {
	return &subscriptionStore{queries: queries}
}

func (s *subscriptionStore) GetByExternalID(ctx context.Context, externalID string) (*model.Subscription, error) {
	row, err := s.queries.GetSubscriptionByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toSubscriptionModel(row), nil
}

func toSubscriptionModel(row sqlc.Subscription) *model.Subscription {
	return &model.Subscription{
		ID:         row.ID,
		ExternalID: row.ExternalID,
		UserID:     row.UserID,
		Name:       row.Name,
		Query:      row.Query,
		Keywords:   row.Keywords,
		Threshold:  row.Threshold,
		Status:     model.SubscriptionStatus(row.Status),
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}
}
