package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Match is one stream event persisted against its subscription. Data holds the
// decoded event verbatim and is never rewritten after insert.
type Match struct {
	CreatedAt      time.Time       `json:"created_at"`
	Data           json.RawMessage `json:"data"`
	ID             int64           `json:"id"`
	SubscriptionID int64           `json:"subscription_id"`
}

// post decodes on every call; matches are read concurrently by the
// per-channel dispatch goroutines.
func (m *Match) post() postFields {
	var envelope struct {
		Post json.RawMessage `json:"post"`
	}
	if err := json.Unmarshal(m.Data, &envelope); err != nil {
		return nil
	}
	return decodePost(envelope.Post)
}

// Text returns the post body, falling back to the embedded record text.
func (m *Match) Text() string {
	p := m.post()
	if text := p.str("text"); text != "" {
		return text
	}
	return p.object("record").str("text")
}

func (m *Match) AuthorDID() string {
	return m.post().author()
}

// PostURL converts at://did/app.bsky.feed.post/rkey into a bsky.app link.
func (m *Match) PostURL() string {
	p := m.post()
	uri := p.str("uri")
	if uri == "" {
		return ""
	}
	did := p.author()
	if did == "" {
		did = didFromURI(uri)
	}
	rkey := uri[strings.LastIndex(uri, "/")+1:]
	if did == "" || rkey == "" {
		return ""
	}
	return "https://bsky.app/profile/" + did + "/post/" + rkey
}

// IndexedAt is when the network saw the post, or CreatedAt if the payload has
// no usable timestamp.
func (m *Match) IndexedAt() time.Time {
	p := m.post()
	if t, ok := p.timestamp("indexed_at"); ok {
		return t
	}
	if t, ok := p.object("record").timestamp("createdAt"); ok {
		return t
	}
	if t, ok := p.object("raw_record").timestamp("createdAt"); ok {
		return t
	}
	return m.CreatedAt
}

func didFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, "at://")
	if !ok {
		return ""
	}
	did, _, _ := strings.Cut(rest, "/")
	return did
}
