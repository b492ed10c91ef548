package metrics_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/librenews/skywire/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var (
		reg *prometheus.Registry
		m   *metrics.Metrics
	)

	BeforeEach(func() {
		reg = prometheus.NewRegistry()
		m = metrics.NewMetrics(reg)
	})

	It("counts entries by outcome", func() {
		m.IncEntry("stored")
		m.IncEntry("stored")
		m.IncEntry("malformed")

		expected := `
# HELP skywire_entries_total Stream entries processed, by outcome.
# TYPE skywire_entries_total counter
skywire_entries_total{outcome="malformed"} 1
skywire_entries_total{outcome="stored"} 2
`
		Expect(testutil.GatherAndCompare(reg, strings.NewReader(expected), "skywire_entries_total")).To(Succeed())
	})

	It("counts deliveries by kind and result", func() {
		m.IncDelivery("webhook", "failed")
		m.IncDelivery("email", "sent")
		m.IncDelivery("", "skipped")

		Expect(testutil.CollectAndCount(reg, "skywire_deliveries_total")).To(Equal(3))
	})

	It("records latency with its class", func() {
		m.ObserveLatency(7*time.Second, "slow")

		Expect(testutil.CollectAndCount(reg, "skywire_event_latency_seconds")).To(Equal(1))
		Expect(testutil.CollectAndCount(reg, "skywire_latency_class_total")).To(Equal(1))
	})

	It("tracks the pending gauge and backlog warnings", func() {
		m.SetPending(150)
		m.IncBacklogWarning()

		expected := `
# HELP skywire_backlog_warnings_total Backlog checks that found the pending count above threshold.
# TYPE skywire_backlog_warnings_total counter
skywire_backlog_warnings_total 1
# HELP skywire_pending_entries Consumer group pending count at the last backlog check.
# TYPE skywire_pending_entries gauge
skywire_pending_entries 150
`
		Expect(testutil.GatherAndCompare(reg, strings.NewReader(expected),
			"skywire_pending_entries", "skywire_backlog_warnings_total")).To(Succeed())
	})

	It("is a no-op when nil or unregistered", func() {
		var nilMetrics *metrics.Metrics
		Expect(func() {
			nilMetrics.IncEntry("stored")
			nilMetrics.IncDelivery("sms", "skipped")
			nilMetrics.ObserveLatency(time.Second, "ok")
			nilMetrics.SetPending(1)
			nilMetrics.IncBacklogWarning()

			empty := metrics.NewMetrics(nil)
			empty.IncEntry("stored")
			empty.ObserveLatency(time.Second, "ok")
		}).NotTo(Panic())
	})
})
