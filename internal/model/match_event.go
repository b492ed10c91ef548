package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrMalformedEvent = errors.New("malformed match event")

// MatchEvent is the JSON document carried in the "data" field of a stream entry.
// Only the subscription id is decoded strictly; the post is kept as sent and
// Raw keeps the full payload, including fields this service does not model.
type MatchEvent struct {
	SubscriptionID string          `json:"subscription_id"`
	Post           json.RawMessage `json:"post"`
	Raw            json.RawMessage `json:"-"`
}

// DecodeMatchEvent parses a stream payload. The payload must be a JSON object.
func DecodeMatchEvent(data []byte) (*MatchEvent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrMalformedEvent)
	}

	var event MatchEvent
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	event.Raw = append(json.RawMessage(nil), trimmed...)
	return &event, nil
}

// EventTime returns when the network indexed the post, falling back to the
// record's own createdAt. ok is false when neither parses.
func (e *MatchEvent) EventTime() (t time.Time, ok bool) {
	post := decodePost(e.Post)
	if t, ok := post.timestamp("indexed_at"); ok {
		return t, true
	}
	return post.object("raw_record").timestamp("createdAt")
}
