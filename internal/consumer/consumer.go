package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/librenews/skywire/common/id"
	"github.com/librenews/skywire/common/logger"
	"github.com/librenews/skywire/internal/metrics"
	"github.com/librenews/skywire/internal/model"
	"github.com/librenews/skywire/internal/store"
	"github.com/librenews/skywire/internal/stream"
)

const (
	highLatency     = 60 * time.Second
	elevatedLatency = 5 * time.Second

	payloadLogLimit = 512
)

var errEntriesPending = errors.New("entries left pending")

type Config struct {
	Stream   string
	Group    string
	Consumer string

	StartDelay   time.Duration // Wait before the first read, lets the app finish booting
	ConnBackoff  time.Duration // Sleep after a connection-level error
	ErrorBackoff time.Duration // Sleep after any other loop error

	BacklogEvery     int   // Check XPENDING every N non-empty batches
	BacklogThreshold int64 // Warn when pending exceeds this

	ReclaimInterval  time.Duration
	ReclaimMinIdle   time.Duration
	ReclaimBatchSize int64
}

func (c *Config) setDefaults() {
	if c.ConnBackoff <= 0 {
		c.ConnBackoff = 5 * time.Second
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = time.Second
	}
	if c.BacklogEvery <= 0 {
		c.BacklogEvery = 10
	}
	if c.BacklogThreshold <= 0 {
		c.BacklogThreshold = 100
	}
	if c.ReclaimBatchSize <= 0 {
		c.ReclaimBatchSize = 100
	}
}

// Status is a point-in-time view of the loop for the operational endpoint.
type Status struct {
	Stream           string            `json:"stream"`
	Group            string            `json:"group"`
	Consumer         string            `json:"consumer"`
	Mode             string            `json:"mode"`
	StartedAt        time.Time         `json:"started_at"`
	Batches          int64             `json:"batches"`
	Pending          int64             `json:"pending"`
	LastPendingCheck time.Time         `json:"last_pending_check"`
	LastReclaim      time.Time         `json:"last_reclaim"`
	Outcomes         map[Outcome]int64 `json:"outcomes"`
}

// Consumer reads match events from the stream, persists them, fans them out
// to delivery channels and acks each entry once its match is stored.
type Consumer struct {
	stream     StreamClient
	stores     StoreProvider
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	cfg        Config

	// Loop state, only touched from Poll.
	draining    bool
	cursor      string
	needGroup   bool
	batches     int64
	lastReclaim time.Time

	mu     sync.RWMutex
	status Status

	started   atomic.Bool
	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(client StreamClient, stores StoreProvider, dispatcher Dispatcher, m *metrics.Metrics, cfg Config) *Consumer {
	cfg.setDefaults()
	now := time.Now()
	return &Consumer{
		stream:     client,
		stores:     stores,
		dispatcher: dispatcher,
		metrics:    m,
		cfg:        cfg,
		// Entries left pending by a previous run of this consumer are drained first.
		draining:    true,
		cursor:      stream.ReadPending,
		lastReclaim: now,
		status: Status{
			Stream:    cfg.Stream,
			Group:     cfg.Group,
			Consumer:  cfg.Consumer,
			Mode:      "draining",
			StartedAt: now,
			Outcomes:  map[Outcome]int64{},
		},
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or Stop is called. Loop errors are logged
// and retried after a backoff; they never end the loop.
func (c *Consumer) Run(ctx context.Context) error {
	c.started.Store(true)
	defer close(c.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "skywire.consumer",
	})

	slog.InfoContext(ctx, "consumer starting",
		"stream", c.cfg.Stream,
		"group", c.cfg.Group,
		"consumer", c.cfg.Consumer,
		"start_delay", c.cfg.StartDelay)

	if !c.sleep(ctx, c.cfg.StartDelay) {
		return ctx.Err()
	}

	// A failure here is logged only; the first read surfaces connectivity errors.
	_ = c.ensureGroup(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			slog.InfoContext(ctx, "consumer stopping")
			return nil
		default:
		}

		if err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			backoff := c.cfg.ErrorBackoff
			if stream.IsConnectionError(err) {
				backoff = c.cfg.ConnBackoff
				slog.ErrorContext(ctx, "redis connection error, retrying", "error", err, "backoff", backoff)
			} else if errors.Is(err, errEntriesPending) {
				slog.WarnContext(ctx, "batch left entries pending, retrying", "error", err, "backoff", backoff)
			} else {
				slog.ErrorContext(ctx, "stream error, retrying", "error", err, "backoff", backoff)
			}
			c.sleep(ctx, backoff)
		}
	}
}

// Stop signals the loop and waits for Run to return. Safe to call more than once.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if c.started.Load() {
		<-c.stoppedCh
	}
}

func (c *Consumer) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.status
	s.Outcomes = make(map[Outcome]int64, len(c.status.Outcomes))
	for k, v := range c.status.Outcomes {
		s.Outcomes[k] = v
	}
	return s
}

// Poll runs a single loop iteration: group recovery, reclaim when due, one
// read, and processing of the returned batch in stream order.
func (c *Consumer) Poll(ctx context.Context) error {
	if c.needGroup {
		if err := c.ensureGroup(ctx); err != nil {
			return err
		}
	}

	if c.reclaimDue() {
		c.reclaim(ctx)
	}

	start := stream.ReadNew
	if c.draining {
		start = c.cursor
	}

	entries, err := c.stream.Read(ctx, start)
	if err != nil {
		if stream.IsNoGroup(err) {
			slog.WarnContext(ctx, "consumer group missing, recreating", "error", err)
			c.needGroup = true
		}
		return fmt.Errorf("reading stream: %w", err)
	}

	if len(entries) == 0 {
		if c.draining {
			c.finishDrain(ctx)
		}
		return nil
	}

	c.batches++
	unacked := 0
	for _, entry := range entries {
		outcome := c.processEntrySafe(ctx, entry)
		c.recordOutcome(outcome)

		if outcome.Acknowledge() {
			if err := c.stream.Ack(ctx, entry.ID); err != nil {
				slog.WarnContext(ctx, "failed to ack entry", "error", err, "message_id", entry.ID)
				unacked++
			}
		} else {
			unacked++
		}

		if c.draining {
			c.cursor = entry.ID
		}
	}

	if c.batches%int64(c.cfg.BacklogEvery) == 0 {
		c.checkBacklog(ctx)
	}

	c.mu.Lock()
	c.status.Batches = c.batches
	c.mu.Unlock()

	if unacked > 0 {
		if !c.draining {
			c.startDrain()
		}
		return fmt.Errorf("%w: %d of %d", errEntriesPending, unacked, len(entries))
	}
	return nil
}

func (c *Consumer) processEntrySafe(ctx context.Context, entry stream.Entry) (outcome Outcome) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: logger.Ptr(entry.ID),
	})

	sc := logger.StartSpan(ctx, "consumer.process_entry",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "redis"),
			attribute.String("messaging.destination.name", c.cfg.Stream),
			attribute.String("messaging.message.id", entry.ID),
		))
	defer sc.End()
	ctx = sc.Context()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			slog.ErrorContext(ctx, "panic recovered in entry processing", "panic", r)
			sc.RecordError(err)
			outcome = OutcomeFailed
		}
		sc.Span().SetAttributes(attribute.String("skywire.outcome", string(outcome)))
	}()

	outcome, err := c.processEntry(ctx, entry)
	if err != nil {
		sc.RecordError(err)
	}
	return outcome
}

func (c *Consumer) processEntry(ctx context.Context, entry stream.Entry) (Outcome, error) {
	data, ok := entry.Data()
	if !ok {
		slog.ErrorContext(ctx, "stream entry without data field", "fields", len(entry.Values))
		return OutcomeMalformed, nil
	}

	event, err := model.DecodeMatchEvent(data)
	if err != nil {
		slog.ErrorContext(ctx, "failed to decode match event",
			"error", err,
			"payload", logger.Truncate(string(data), payloadLogLimit))
		return OutcomeMalformed, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SubscriptionID: logger.Ptr(event.SubscriptionID),
	})

	if event.SubscriptionID == "" {
		slog.WarnContext(ctx, "match received for unknown subscription", "reason", "missing subscription_id")
		return OutcomeUnknownSubscription, nil
	}

	sub, err := c.stores.Subscriptions().GetByExternalID(ctx, event.SubscriptionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "match received for unknown subscription")
			return OutcomeUnknownSubscription, nil
		}
		slog.ErrorContext(ctx, "subscription lookup failed", "error", err)
		return OutcomeFailed, fmt.Errorf("looking up subscription: %w", err)
	}

	match := &model.Match{
		ID:             id.New(),
		SubscriptionID: sub.ID,
		Data:           event.Raw,
	}
	if err := c.stores.Matches().Create(ctx, match); err != nil {
		slog.ErrorContext(ctx, "failed to persist match", "error", err)
		return OutcomePersistFailed, fmt.Errorf("persisting match: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MatchID: logger.Ptr(match.ID),
	})
	slog.InfoContext(ctx, "match stored", "subscription", sub.ID, "query", sub.Query)

	c.recordLatency(ctx, event)

	// The match is stored, so the entry is acked whatever happens from here.
	channels, err := c.stores.Deliveries().ListActiveBySubscription(ctx, sub.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list delivery channels, skipping delivery", "error", err)
		return OutcomeStored, nil
	}
	c.dispatcher.DispatchAll(ctx, sub, channels, match)

	return OutcomeStored, nil
}

// recordLatency must never affect the entry's outcome.
func (c *Consumer) recordLatency(ctx context.Context, event *model.MatchEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.DebugContext(ctx, "latency telemetry failed", "panic", r)
		}
	}()

	at, ok := event.EventTime()
	if !ok {
		return
	}
	latency := time.Since(at)

	class := "ok"
	switch {
	case latency > highLatency:
		class = "high"
		slog.WarnContext(ctx, "high latency behind firehose", "latency_seconds", roundSeconds(latency))
	case latency > elevatedLatency:
		class = "slow"
		slog.InfoContext(ctx, "elevated latency", "latency_seconds", roundSeconds(latency))
	}
	c.metrics.ObserveLatency(latency, class)
}

func (c *Consumer) checkBacklog(ctx context.Context) {
	pending, err := c.stream.Pending(ctx)
	if err != nil {
		slog.WarnContext(ctx, "backlog check failed", "error", err)
		return
	}

	c.metrics.SetPending(pending)
	c.mu.Lock()
	c.status.Pending = pending
	c.status.LastPendingCheck = time.Now()
	c.mu.Unlock()

	if pending > c.cfg.BacklogThreshold {
		c.metrics.IncBacklogWarning()
		slog.WarnContext(ctx, "backlog growing", "pending", pending, "threshold", c.cfg.BacklogThreshold)
	}
}

func (c *Consumer) reclaimDue() bool {
	return c.cfg.ReclaimInterval > 0 && time.Since(c.lastReclaim) >= c.cfg.ReclaimInterval
}

// reclaim takes over entries idle past ReclaimMinIdle, including ones left by
// consumers that no longer exist, and drains them on the following reads.
func (c *Consumer) reclaim(ctx context.Context) {
	c.lastReclaim = time.Now()
	c.mu.Lock()
	c.status.LastReclaim = c.lastReclaim
	c.mu.Unlock()

	ids, err := c.stream.ClaimStale(ctx, c.cfg.ReclaimMinIdle, c.cfg.ReclaimBatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	slog.InfoContext(ctx, "reclaimed stale pending entries", "count", len(ids))
	c.startDrain()
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.stream.EnsureGroup(ctx)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "created consumer group", "group", c.cfg.Group, "stream", c.cfg.Stream)
	case errors.Is(err, stream.ErrGroupExists):
		slog.InfoContext(ctx, "consumer group already exists", "group", c.cfg.Group)
	default:
		slog.ErrorContext(ctx, "consumer group creation failed", "error", err, "group", c.cfg.Group)
		return err
	}

	if c.needGroup {
		// A recreated group starts with an empty pending list.
		c.needGroup = false
		c.draining = false
		c.setMode("new")
	}
	return nil
}

func (c *Consumer) startDrain() {
	c.draining = true
	c.cursor = stream.ReadPending
	c.setMode("draining")
}

func (c *Consumer) finishDrain(ctx context.Context) {
	slog.DebugContext(ctx, "pending entries drained")
	c.draining = false
	c.cursor = ""
	c.setMode("new")
}

func (c *Consumer) setMode(mode string) {
	c.mu.Lock()
	c.status.Mode = mode
	c.mu.Unlock()
}

func (c *Consumer) recordOutcome(o Outcome) {
	c.metrics.IncEntry(string(o))
	c.mu.Lock()
	c.status.Outcomes[o]++
	c.mu.Unlock()
}

// sleep waits for d and reports false if the loop was asked to stop meanwhile.
func (c *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-c.stopCh:
		return false
	case <-t.C:
		return true
	}
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Round(10*time.Millisecond)) / float64(time.Second)
}
