package store

import (
	"context"
	"encoding/json"

	"github.com/librenews/skywire/core/db/sqlc"
	"github.com/librenews/skywire/internal/model"
)

type matchStore struct {
	queries *sqlc.Queries
}

func newMatchStore(queries *sqlc.Queries) MatchStore {
	return &matchStore{queries: queries}
}

func (s *matchStore) Create(ctx context.Context, match *model.Match) error {
	row, err := s.queries.CreateMatch(ctx, sqlc.CreateMatchParams{
		ID:             match.ID,
		SubscriptionID: match.SubscriptionID,
		Data:           []byte(match.Data),
	})
	if err != nil {
		return err
	}
	*match = *toMatchModel(row)
	return nil
}

func toMatchModel(row sqlc.Match) *model.Match {
	return &model.Match{
		ID:             row.ID,
		SubscriptionID: row.SubscriptionID,
		Data:           json.RawMessage(row.Data),
		CreatedAt:      row.CreatedAt.Time,
	}
}
