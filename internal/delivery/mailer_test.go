package delivery_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/librenews/skywire/internal/delivery"
	"github.com/librenews/skywire/internal/model"
)

// sendGridStub records the recipients of each mail send request.
type sendGridStub struct {
	mu         sync.Mutex
	recipients []string
	auth       []string
}

func (s *sendGridStub) handler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
	}
	if r.URL.Path != "/v3/mail/send" || json.NewDecoder(r.Body).Decode(&body) != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	for _, p := range body.Personalizations {
		for _, to := range p.To {
			s.recipients = append(s.recipients, to.Email)
		}
	}
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	s.mu.Unlock()

	w.WriteHeader(http.StatusAccepted)
}

func (s *sendGridStub) Auth() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auth...)
}

func (s *sendGridStub) Recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recipients...)
}

var _ = Describe("SendGridMailer", func() {
	var (
		stub   *sendGridStub
		server *httptest.Server
	)

	BeforeEach(func() {
		stub = &sendGridStub{}
		server = httptest.NewServer(http.HandlerFunc(stub.handler))
		DeferCleanup(server.Close)
	})

	It("sends one request per email with the api key", func() {
		m := delivery.NewSendGridMailer("SG.key", "notify@track.example", "app@track.example",
			delivery.WithSendGridHost(server.URL))

		err := m.Send(context.Background(), delivery.Email{To: "a@example.com", Subject: "s", Text: "t", HTML: "<p>t</p>"})

		Expect(err).NotTo(HaveOccurred())
		Expect(stub.Recipients()).To(Equal([]string{"a@example.com"}))
		Expect(stub.Auth()).To(Equal([]string{"Bearer SG.key"}))
	})

	It("reports error statuses", func() {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		DeferCleanup(failing.Close)
		m := delivery.NewSendGridMailer("bad", "notify@track.example", "", delivery.WithSendGridHost(failing.URL))

		err := m.Send(context.Background(), delivery.Email{To: "a@example.com", Subject: "s", Text: "t"})

		Expect(errors.Is(err, delivery.ErrUnexpectedStatus)).To(BeTrue())
	})

	It("delivers each instant email channel its own message when dispatched together", func() {
		m := delivery.NewSendGridMailer("SG.key", "notify@track.example", "", delivery.WithSendGridHost(server.URL))
		dispatcher := delivery.NewDispatcher(m, &mockPoster{}, delivery.Config{}, nil)
		sub := &model.Subscription{ID: 1, ExternalID: "S1", Name: "Nm"}
		match := &model.Match{ID: 7, SubscriptionID: 1, Data: json.RawMessage(`{"subscription_id":"S1","post":{"text":"hi"}}`)}
		first, err := model.NewEmailChannel(1, "first@example.com", model.EmailFrequencyInstant)
		Expect(err).NotTo(HaveOccurred())
		second, err := model.NewEmailChannel(1, "second@example.com", model.EmailFrequencyInstant)
		Expect(err).NotTo(HaveOccurred())

		const rounds = 50
		for i := 0; i < rounds; i++ {
			dispatcher.DispatchAll(context.Background(), sub, []model.DeliveryChannel{first, second}, match)
		}

		recipients := stub.Recipients()
		Expect(recipients).To(HaveLen(2 * rounds))
		counts := map[string]int{}
		for _, r := range recipients {
			counts[r]++
		}
		Expect(counts).To(Equal(map[string]int{"first@example.com": rounds, "second@example.com": rounds}))
	})

	It("gives up on a provider that never answers", func() {
		release := make(chan struct{})
		hanging := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		DeferCleanup(hanging.Close)
		DeferCleanup(func() { close(release) })
		m := delivery.NewSendGridMailer("SG.key", "notify@track.example", "",
			delivery.WithSendGridHost(hanging.URL),
			delivery.WithMailTimeout(50*time.Millisecond))

		done := make(chan error, 1)
		go func() {
			done <- m.Send(context.Background(), delivery.Email{To: "a@example.com", Subject: "s", Text: "t"})
		}()

		Eventually(done, 2*time.Second).Should(Receive(MatchError(context.DeadlineExceeded)))
	})
})
