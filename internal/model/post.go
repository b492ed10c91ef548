package model

import (
	"encoding/json"
	"errors"
	"time"
)

// postFields is a lenient view of a post object. The matcher forwards posts
// as it receives them, so a field of an unexpected JSON type reads as empty
// instead of failing the whole decode.
type postFields map[string]json.RawMessage

func decodePost(raw json.RawMessage) postFields {
	var fields postFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}

func (p postFields) str(key string) string {
	var s string
	if err := json.Unmarshal(p[key], &s); err != nil {
		return ""
	}
	return s
}

func (p postFields) object(key string) postFields {
	return decodePost(p[key])
}

// author accepts either a bare DID or an author object carrying one.
func (p postFields) author() string {
	if did := p.str("author"); did != "" {
		return did
	}
	return p.object("author").str("did")
}

// timestamp reads an RFC 3339 string or a number of Unix seconds.
func (p postFields) timestamp(key string) (time.Time, bool) {
	raw, ok := p[key]
	if !ok {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, err := parseTimestamp(s)
		return t, err == nil
	}
	var secs float64
	if err := json.Unmarshal(raw, &secs); err == nil && secs > 0 {
		whole := int64(secs)
		return time.Unix(whole, int64((secs-float64(whole))*float64(time.Second))).UTC(), true
	}
	return time.Time{}, false
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	return time.Parse(time.RFC3339Nano, s)
}
