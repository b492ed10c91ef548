package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/librenews/skywire/core/db/sqlc"
	"github.com/librenews/skywire/internal/model"
)

type deliveryStore struct {
	queries *sqlc.Queries
}

func newDeliveryStore(queries *sqlc.Queries) DeliveryStore {
	return &deliveryStore{queries: queries}
}

// ListActiveBySubscription skips rows that do not form a valid channel; the
// table constraints should make that impossible, but one bad row must not
// hide the subscription's other channels.
func (s *deliveryStore) ListActiveBySubscription(ctx context.Context, subscriptionID int64) ([]model.DeliveryChannel, error) {
	rows, err := s.queries.ListActiveDeliveriesBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	result := make([]model.DeliveryChannel, 0, len(rows))
	for _, row := range rows {
		ch, err := toDeliveryModel(row)
		if err != nil {
			slog.WarnContext(ctx, "skipping invalid delivery channel",
				"channel_id", row.ID.String(),
				"error", err)
			continue
		}
		result = append(result, ch)
	}
	return result, nil
}

func toDeliveryModel(row sqlc.Delivery) (model.DeliveryChannel, error) {
	if kind := model.ChannelKind(row.Kind); !kind.IsValid() {
		return model.DeliveryChannel{}, fmt.Errorf("%w: unknown kind %q", model.ErrInvalidChannel, row.Kind)
	}

	ch := model.DeliveryChannel{
		ID:             row.ID,
		SubscriptionID: row.SubscriptionID,
		Kind:           model.ChannelKind(row.Kind),
		Active:         row.Active,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}

	switch ch.Kind {
	case model.ChannelKindEmail:
		ch.Email = &model.EmailChannel{
			Address:   deref(row.Email),
			Frequency: model.EmailFrequency(deref(row.Frequency)),
		}
	case model.ChannelKindSMS:
		ch.SMS = &model.SMSChannel{Phone: deref(row.Phone)}
	case model.ChannelKindWebhook:
		ch.Webhook = &model.WebhookChannel{
			URL:    deref(row.Url),
			Secret: deref(row.Secret),
		}
	}

	if err := ch.Validate(); err != nil {
		return model.DeliveryChannel{}, err
	}
	return ch, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
