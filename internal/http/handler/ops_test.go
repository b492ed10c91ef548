package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/librenews/skywire/internal/consumer"
	"github.com/librenews/skywire/internal/http/handler"
)

type mockStatusSource struct {
	status consumer.Status
}

func (m *mockStatusSource) Status() consumer.Status {
	return m.status
}

var _ = Describe("OpsHandler", func() {
	var (
		router *gin.Engine
		redis  handler.PingerFunc
		pg     handler.PingerFunc
		source *mockStatusSource
	)

	ok := func(context.Context) error { return nil }

	BeforeEach(func() {
		redis = ok
		pg = ok
		source = &mockStatusSource{status: consumer.Status{
			Stream:   "skywire:matches",
			Group:    "track_app",
			Consumer: "worker_host_1",
			Mode:     "new",
			Batches:  12,
			Pending:  3,
		}}
	})

	serve := func(path string) *httptest.ResponseRecorder {
		h := handler.NewOpsHandler(map[string]handler.Pinger{
			"redis":    redis,
			"postgres": pg,
		}, source, "1.2.3")
		router = gin.New()
		router.GET("/health", h.Health)
		router.GET("/status", h.Status)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		return w
	}

	Describe("Health", func() {
		It("returns 200 when every dependency answers", func() {
			w := serve("/health")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"status":"ok","checks":{"redis":"ok","postgres":"ok"}}`))
		})

		It("returns 503 naming the failing dependency", func() {
			pg = func(context.Context) error { return errors.New("connection refused") }

			w := serve("/health")

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(w.Body.String()).To(MatchJSON(`{"status":"unavailable","checks":{"redis":"ok","postgres":"connection refused"}}`))
		})

		It("bounds each ping with a deadline", func() {
			var hadDeadline bool
			redis = func(ctx context.Context) error {
				_, hadDeadline = ctx.Deadline()
				return nil
			}

			serve("/health")

			Expect(hadDeadline).To(BeTrue())
		})
	})

	Describe("Status", func() {
		It("reports the consumer snapshot", func() {
			w := serve("/status")

			Expect(w.Code).To(Equal(http.StatusOK))
			var body struct {
				Version  string          `json:"version"`
				Consumer consumer.Status `json:"consumer"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Version).To(Equal("1.2.3"))
			Expect(body.Consumer.Consumer).To(Equal("worker_host_1"))
			Expect(body.Consumer.Mode).To(Equal("new"))
			Expect(body.Consumer.Pending).To(Equal(int64(3)))
		})

		It("returns 503 without a consumer", func() {
			h := handler.NewOpsHandler(nil, nil, "dev")
			router = gin.New()
			router.GET("/status", h.Status)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})
})
