package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/librenews/skywire/common/logger"
)

var _ = Describe("TraceHandler", func() {
	var (
		buf *bytes.Buffer
		log *slog.Logger
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		log = slog.New(logger.NewTraceHandler(slog.NewJSONHandler(buf, nil)))
	})

	decode := func() map[string]any {
		var record map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
		return record
	}

	It("adds context log fields to the record", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			Component: "skywire.consumer",
			MessageID: logger.Ptr("1700000000000-0"),
		})
		ctx = logger.WithLogFields(ctx, logger.LogFields{
			SubscriptionID: logger.Ptr("S1"),
			MatchID:        logger.Ptr(int64(42)),
		})

		log.InfoContext(ctx, "match stored")

		record := decode()
		Expect(record).To(HaveKeyWithValue("component", "skywire.consumer"))
		Expect(record).To(HaveKeyWithValue("message_id", "1700000000000-0"))
		Expect(record).To(HaveKeyWithValue("subscription_id", "S1"))
		Expect(record).To(HaveKeyWithValue("match_id", BeNumerically("==", 42)))
		Expect(record).NotTo(HaveKey("channel_id"))
	})

	It("lets newer fields win when merging", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{Component: "a"})
		ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "b", ChannelKind: logger.Ptr("webhook")})

		fields := logger.GetLogFields(ctx)
		Expect(fields.Component).To(Equal("b"))
		Expect(*fields.ChannelKind).To(Equal("webhook"))
	})

	It("leaves records without context fields untouched", func() {
		log.InfoContext(context.Background(), "idle")

		record := decode()
		Expect(record).NotTo(HaveKey("component"))
		Expect(record).NotTo(HaveKey("trace_id"))
	})
})

var _ = Describe("Truncate", func() {
	It("keeps short strings", func() {
		Expect(logger.Truncate("abc", 5)).To(Equal("abc"))
	})

	It("cuts long strings", func() {
		Expect(logger.Truncate("abcdefgh", 3)).To(Equal("abc..."))
	})

	It("never splits a multi-byte character", func() {
		got := logger.Truncate("héllo", 2)
		Expect(got).To(Equal("h..."))
		Expect(utf8.ValidString(got)).To(BeTrue())

		Expect(logger.Truncate("日本語", 4)).To(Equal("日..."))
	})
})
