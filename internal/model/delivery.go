package model

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

var ErrInvalidChannel = errors.New("invalid delivery channel")

type ChannelKind string

const (
	ChannelKindEmail   ChannelKind = "email"
	ChannelKindSMS     ChannelKind = "sms"
	ChannelKindWebhook ChannelKind = "webhook"
)

func (k ChannelKind) IsValid() bool {
	switch k {
	case ChannelKindEmail, ChannelKindSMS, ChannelKindWebhook:
		return true
	}
	return false
}

type EmailFrequency string

const (
	EmailFrequencyInstant EmailFrequency = "instant"
	EmailFrequencyDaily   EmailFrequency = "daily"
	EmailFrequencyWeekly  EmailFrequency = "weekly"
)

// DeliveryChannel is a destination for a subscription's matches. Exactly one of
// Email, SMS or Webhook is set, and it must agree with Kind.
type DeliveryChannel struct {
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Email          *EmailChannel   `json:"email,omitempty"`
	SMS            *SMSChannel     `json:"sms,omitempty"`
	Webhook        *WebhookChannel `json:"webhook,omitempty"`
	Kind           ChannelKind     `json:"kind"`
	SubscriptionID int64           `json:"subscription_id"`
	ID             uuid.UUID       `json:"id"`
	Active         bool            `json:"active"`
}

type EmailChannel struct {
	Address   string         `json:"address"`
	Frequency EmailFrequency `json:"frequency"`
}

type SMSChannel struct {
	Phone string `json:"phone"`
}

type WebhookChannel struct {
	URL    string `json:"url"`
	Secret string `json:"secret,omitempty"`
}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,19}$`)

func (e EmailChannel) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Address, validation.Required, is.EmailFormat),
		validation.Field(&e.Frequency, validation.Required,
			validation.In(EmailFrequencyInstant, EmailFrequencyDaily, EmailFrequencyWeekly)),
	)
}

func (s SMSChannel) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Phone, validation.Required, validation.Match(phonePattern)),
	)
}

func (w WebhookChannel) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.URL, validation.Required, validation.By(httpURL)),
		validation.Field(&w.Secret, validation.Length(0, 255)),
	)
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

// Validate checks the variant invariant and the variant's own fields.
func (c DeliveryChannel) Validate() error {
	populated := 0
	for _, set := range []bool{c.Email != nil, c.SMS != nil, c.Webhook != nil} {
		if set {
			populated++
		}
	}
	if populated != 1 {
		return fmt.Errorf("%w: %d variants populated, want exactly one", ErrInvalidChannel, populated)
	}

	var err error
	switch c.Kind {
	case ChannelKindEmail:
		if c.Email == nil {
			return fmt.Errorf("%w: kind %s without email settings", ErrInvalidChannel, c.Kind)
		}
		err = c.Email.Validate()
	case ChannelKindSMS:
		if c.SMS == nil {
			return fmt.Errorf("%w: kind %s without sms settings", ErrInvalidChannel, c.Kind)
		}
		err = c.SMS.Validate()
	case ChannelKindWebhook:
		if c.Webhook == nil {
			return fmt.Errorf("%w: kind %s without webhook settings", ErrInvalidChannel, c.Kind)
		}
		err = c.Webhook.Validate()
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidChannel, c.Kind)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChannel, err)
	}
	return nil
}

func NewEmailChannel(subscriptionID int64, address string, frequency EmailFrequency) (DeliveryChannel, error) {
	return newChannel(subscriptionID, DeliveryChannel{
		Kind:  ChannelKindEmail,
		Email: &EmailChannel{Address: address, Frequency: frequency},
	})
}

func NewSMSChannel(subscriptionID int64, phone string) (DeliveryChannel, error) {
	return newChannel(subscriptionID, DeliveryChannel{
		Kind: ChannelKindSMS,
		SMS:  &SMSChannel{Phone: phone},
	})
}

// NewWebhookChannel builds a webhook channel; an empty secret means no
// authenticity header is sent.
func NewWebhookChannel(subscriptionID int64, rawURL, secret string) (DeliveryChannel, error) {
	return newChannel(subscriptionID, DeliveryChannel{
		Kind:    ChannelKindWebhook,
		Webhook: &WebhookChannel{URL: rawURL, Secret: secret},
	})
}

func newChannel(subscriptionID int64, c DeliveryChannel) (DeliveryChannel, error) {
	now := time.Now().UTC()
	c.ID = uuid.New()
	c.SubscriptionID = subscriptionID
	c.Active = true
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := c.Validate(); err != nil {
		return DeliveryChannel{}, err
	}
	return c, nil
}
