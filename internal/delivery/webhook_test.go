package delivery_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/librenews/skywire/internal/delivery"
	"github.com/librenews/skywire/internal/model"
)

var _ = Describe("HTTPPoster", func() {
	var (
		server   *httptest.Server
		received *http.Request
		body     []byte
		status   int
		delay    time.Duration
	)

	BeforeEach(func() {
		status = http.StatusOK
		delay = 0
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received = r
			body, _ = io.ReadAll(r.Body)
			if delay > 0 {
				time.Sleep(delay)
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte("nope"))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("posts the body with headers and user agent", func() {
		poster := delivery.NewHTTPPoster(delivery.WithUserAgent("skywire-track/1.2.3"))

		err := poster.Post(context.Background(), server.URL+"/hook", []byte(`{"a":1}`), map[string]string{
			"Content-Type":     "application/json",
			"X-Skywire-Secret": "s3cret",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(received.Method).To(Equal(http.MethodPost))
		Expect(received.URL.Path).To(Equal("/hook"))
		Expect(received.Header.Get("Content-Type")).To(Equal("application/json"))
		Expect(received.Header.Get("X-Skywire-Secret")).To(Equal("s3cret"))
		Expect(received.Header.Get("User-Agent")).To(Equal("skywire-track/1.2.3"))
		Expect(body).To(MatchJSON(`{"a":1}`))
	})

	DescribeTable("treats non-2xx as an error",
		func(code int) {
			status = code
			err := delivery.NewHTTPPoster().Post(context.Background(), server.URL, []byte(`{}`), nil)
			Expect(errors.Is(err, delivery.ErrUnexpectedStatus)).To(BeTrue())
		},
		Entry("redirect", http.StatusFound),
		Entry("client error", http.StatusBadRequest),
		Entry("server error", http.StatusBadGateway),
	)

	It("accepts any 2xx", func() {
		status = http.StatusAccepted
		Expect(delivery.NewHTTPPoster().Post(context.Background(), server.URL, []byte(`{}`), nil)).To(Succeed())
	})

	It("gives up after the timeout", func() {
		delay = 200 * time.Millisecond
		poster := delivery.NewHTTPPoster(delivery.WithTimeout(20 * time.Millisecond))

		err := poster.Post(context.Background(), server.URL, []byte(`{}`), nil)

		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, delivery.ErrUnexpectedStatus)).To(BeFalse())
	})

	It("carries the concrete scenario end to end", func() {
		dispatcher := delivery.NewDispatcher(nil, delivery.NewHTTPPoster(), delivery.Config{}, nil)
		sub := &model.Subscription{
			ID:         1,
			ExternalID: "S1",
			Name:       "Nm",
		}
		payload := `{"subscription_id":"S1","post":{"uri":"at://x/1","text":"hi"}}`
		match := &model.Match{ID: 7, SubscriptionID: 1, Data: json.RawMessage(payload)}
		ch, err := model.NewWebhookChannel(1, server.URL+"/hook", "")
		Expect(err).NotTo(HaveOccurred())

		dispatcher.Dispatch(context.Background(), sub, ch, match)

		Expect(received.Header.Get("Content-Type")).To(Equal("application/json"))
		Expect(received.Header.Values("X-Skywire-Secret")).To(BeEmpty())
		Expect(body).To(MatchJSON(`{"event":"match_found","track":{"id":"S1","name":"Nm"},"match":` + payload + `}`))
	})
})

var _ = Describe("NewWebhookPayload", func() {
	It("encodes a missing payload as null", func() {
		p := delivery.NewWebhookPayload(&model.Subscription{Name: "n"}, &model.Match{})
		encoded, err := json.Marshal(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(encoded).To(MatchJSON(`{"event":"match_found","track":{"id":"","name":"n"},"match":null}`))
	})
})

var _ = Describe("LogMailer", func() {
	It("never fails", func() {
		m := delivery.NewLogMailer(nil)
		Expect(m.Send(context.Background(), delivery.Email{To: "a@example.com", Subject: "s"})).To(Succeed())
	})
})
