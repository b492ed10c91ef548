package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "pending"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusError    SubscriptionStatus = "error"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusPending, SubscriptionStatusActive, SubscriptionStatusError, SubscriptionStatusInactive:
		return true
	}
	return false
}

// Subscription is a user's standing query against the upstream matcher.
// Only ExternalID ever appears on the stream.
type Subscription struct {
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Name       string             `json:"name"`
	Query      string             `json:"query"`
	Status     SubscriptionStatus `json:"status"`
	Keywords   []string           `json:"keywords"`
	Threshold  float64            `json:"threshold"`
	ID         int64              `json:"id"`
	UserID     int64              `json:"user_id"`
	ExternalID string             `json:"external_id"`
}
