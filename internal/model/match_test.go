package model_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/librenews/skywire/internal/model"
)

var _ = Describe("Match", func() {
	It("reads post fields from the stored payload", func() {
		m := &model.Match{Data: json.RawMessage(`{"post":{"uri":"at://did:plc:abc/app.bsky.feed.post/3kq2","text":"hi there","author":"did:plc:abc"}}`)}

		Expect(m.Text()).To(Equal("hi there"))
		Expect(m.AuthorDID()).To(Equal("did:plc:abc"))
		Expect(m.PostURL()).To(Equal("https://bsky.app/profile/did:plc:abc/post/3kq2"))
	})

	It("falls back to the record text and the did in the uri", func() {
		m := &model.Match{Data: json.RawMessage(`{"post":{"uri":"at://did:plc:xyz/app.bsky.feed.post/9","record":{"text":"from record"}}}`)}

		Expect(m.Text()).To(Equal("from record"))
		Expect(m.PostURL()).To(Equal("https://bsky.app/profile/did:plc:xyz/post/9"))
	})

	It("has no link without a uri", func() {
		m := &model.Match{Data: json.RawMessage(`{"post":{"text":"x"}}`)}
		Expect(m.PostURL()).To(BeEmpty())
	})

	It("tolerates payloads that are not objects", func() {
		m := &model.Match{Data: json.RawMessage(`[1]`)}
		Expect(m.Text()).To(BeEmpty())
		Expect(m.PostURL()).To(BeEmpty())
	})

	Describe("IndexedAt", func() {
		created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

		It("prefers indexed_at", func() {
			m := &model.Match{CreatedAt: created, Data: json.RawMessage(`{"post":{"indexed_at":"2026-10-18T11:59:58.5Z","raw_record":{"createdAt":"2026-10-18T11:00:00Z"}}}`)}
			Expect(m.IndexedAt()).To(BeTemporally("==", time.Date(2026, 10, 18, 11, 59, 58, 500000000, time.UTC)))
		})

		It("falls back to the raw record", func() {
			m := &model.Match{CreatedAt: created, Data: json.RawMessage(`{"post":{"raw_record":{"createdAt":"2026-10-18T11:00:00Z"}}}`)}
			Expect(m.IndexedAt()).To(BeTemporally("==", time.Date(2026, 10, 18, 11, 0, 0, 0, time.UTC)))
		})

		It("falls back to the row timestamp", func() {
			m := &model.Match{CreatedAt: created, Data: json.RawMessage(`{"post":{"indexed_at":"soon"}}`)}
			Expect(m.IndexedAt()).To(BeTemporally("==", created))
		})
	})
})
