package logger

import (
	"context"
	"unicode/utf8"
)

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// The consumer enriches the context once per stream entry and once per delivery channel,
// so downstream log lines carry subscription, match and channel identity without
// repeating them at every call site.
type LogFields struct {
	SubscriptionID *string // Subscription external id (never the internal id)
	MatchID        *int64  // Persisted match id
	MessageID      *string // Redis stream entry id
	ChannelID      *string // Delivery channel id
	ChannelKind    *string // email, sms or webhook
	Component      string  // Component name (OTel semantic convention style, e.g., "skywire.consumer")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.SubscriptionID != nil {
		result.SubscriptionID = new.SubscriptionID
	}
	if new.MatchID != nil {
		result.MatchID = new.MatchID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.ChannelID != nil {
		result.ChannelID = new.ChannelID
	}
	if new.ChannelKind != nil {
		result.ChannelKind = new.ChannelKind
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{MessageID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to at most maxLen bytes without splitting a
// UTF-8 sequence, appending "..." if truncated.
// Used for raw stream payloads that end up in error logs.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := max(maxLen, 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
