package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/librenews/skywire/common/logger"
	"github.com/librenews/skywire/internal/metrics"
	"github.com/librenews/skywire/internal/model"
)

const DefaultSecretHeader = "X-Skywire-Secret"

// Delivery results, used as the metrics "result" label.
const (
	resultSent    = "sent"
	resultSkipped = "skipped"
	resultFailed  = "failed"
)

type Config struct {
	SecretHeader string // Header carrying a webhook channel's secret
	AppURL       string // Base URL for links back to the app in emails
}

// Dispatcher sends one persisted match to a subscription's delivery channels.
// Failures are logged per channel and never returned to the caller.
type Dispatcher struct {
	mailer  Mailer
	poster  Poster
	cfg     Config
	metrics *metrics.Metrics
}

func NewDispatcher(mailer Mailer, poster Poster, cfg Config, m *metrics.Metrics) *Dispatcher {
	if cfg.SecretHeader == "" {
		cfg.SecretHeader = DefaultSecretHeader
	}
	return &Dispatcher{
		mailer:  mailer,
		poster:  poster,
		cfg:     cfg,
		metrics: m,
	}
}

// DispatchAll delivers to every channel concurrently and waits for all of them.
func (d *Dispatcher) DispatchAll(ctx context.Context, sub *model.Subscription, channels []model.DeliveryChannel, match *model.Match) {
	if len(channels) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch model.DeliveryChannel) {
			defer wg.Done()
			d.Dispatch(ctx, sub, ch, match)
		}(ch)
	}
	wg.Wait()
}

func (d *Dispatcher) Dispatch(ctx context.Context, sub *model.Subscription, ch model.DeliveryChannel, match *model.Match) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ChannelID:   logger.Ptr(ch.ID.String()),
		ChannelKind: logger.Ptr(string(ch.Kind)),
		Component:   "skywire.delivery",
	})

	sc := logger.StartSpan(ctx, "delivery.dispatch")
	defer sc.End()
	ctx = sc.Context()

	result, err := d.dispatch(ctx, sub, ch, match)
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "delivery failed",
			"error", err,
			"channel_id", ch.ID.String(),
			"kind", ch.Kind)
	}
	d.metrics.IncDelivery(string(ch.Kind), result)
}

func (d *Dispatcher) dispatch(ctx context.Context, sub *model.Subscription, ch model.DeliveryChannel, match *model.Match) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = resultFailed, fmt.Errorf("panic during dispatch: %v", r)
		}
	}()

	switch ch.Kind {
	case model.ChannelKindEmail:
		return d.sendEmail(ctx, sub, ch, match)
	case model.ChannelKindSMS:
		return d.sendSMS(ctx, ch)
	case model.ChannelKindWebhook:
		return d.sendWebhook(ctx, sub, ch, match)
	default:
		return resultFailed, fmt.Errorf("%w: unknown kind %q", model.ErrInvalidChannel, ch.Kind)
	}
}

func (d *Dispatcher) sendEmail(ctx context.Context, sub *model.Subscription, ch model.DeliveryChannel, match *model.Match) (string, error) {
	if ch.Email == nil {
		return resultFailed, fmt.Errorf("%w: email channel without settings", model.ErrInvalidChannel)
	}
	// Daily and weekly digests are built elsewhere.
	if ch.Email.Frequency != model.EmailFrequencyInstant {
		slog.DebugContext(ctx, "email deferred to digest", "frequency", ch.Email.Frequency)
		return resultSkipped, nil
	}

	email, err := renderEmail(ch.Email.Address, sub, match, d.cfg.AppURL)
	if err != nil {
		return resultFailed, err
	}
	if err := d.mailer.Send(ctx, email); err != nil {
		return resultFailed, fmt.Errorf("sending email: %w", err)
	}
	slog.InfoContext(ctx, "match email sent", "to", ch.Email.Address)
	return resultSent, nil
}

func (d *Dispatcher) sendSMS(ctx context.Context, ch model.DeliveryChannel) (string, error) {
	phone := ""
	if ch.SMS != nil {
		phone = ch.SMS.Phone
	}
	slog.InfoContext(ctx, "sms dispatch not yet implemented", "phone", phone)
	return resultSkipped, nil
}

func (d *Dispatcher) sendWebhook(ctx context.Context, sub *model.Subscription, ch model.DeliveryChannel, match *model.Match) (string, error) {
	if ch.Webhook == nil {
		return resultFailed, fmt.Errorf("%w: webhook channel without settings", model.ErrInvalidChannel)
	}

	body, err := json.Marshal(NewWebhookPayload(sub, match))
	if err != nil {
		return resultFailed, fmt.Errorf("encoding webhook payload: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if ch.Webhook.Secret != "" {
		headers[d.cfg.SecretHeader] = ch.Webhook.Secret
	}

	if err := d.poster.Post(ctx, ch.Webhook.URL, body, headers); err != nil {
		return resultFailed, err
	}
	slog.InfoContext(ctx, "webhook delivered", "url", ch.Webhook.URL)
	return resultSent, nil
}
