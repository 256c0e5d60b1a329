// Package notification sends best-effort customer and admin messages over
// WhatsApp, SMS and email with channel fallback.
package notification

import (
	"context"
	"errors"
	"time"

	"glasserp/pkg/logger"
)

// Channel is a delivery medium.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
)

// DefaultOrder is the fallback preference.
var DefaultOrder = []Channel{ChannelWhatsApp, ChannelSMS, ChannelEmail}

// DefaultTimeout bounds each send.
const DefaultTimeout = 10 * time.Second

// Recipient is who a message goes to. Empty addresses skip their channels.
type Recipient struct {
	Name  string
	Phone string
	Email string
}

// Message is a rendered notification. Subject is used by email only.
type Message struct {
	Subject string
	Body    string
}

// Sender delivers a message over one channel.
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, to Recipient, msg Message) error
}

// Attempt is the outcome of one channel.
type Attempt struct {
	Attempted bool   `json:"attempted"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// Result reports every channel and whether any succeeded.
type Result struct {
	Channels   map[Channel]Attempt `json:"channels"`
	AnySuccess bool                `json:"any_success"`
}

// Err returns an error when channels were attempted and all failed.
func (r Result) Err() error {
	if r.AnySuccess {
		return nil
	}
	for _, a := range r.Channels {
		if a.Attempted {
			return errors.New("all notification channels failed")
		}
	}
	return nil
}

// Recorder observes delivery attempts (metrics).
type Recorder interface {
	NotificationAttempt(channel string, success bool)
}

// Dispatcher tries channels in preference order and stops at the first success.
type Dispatcher struct {
	senders  map[Channel]Sender
	order    []Channel
	timeout  time.Duration
	recorder Recorder
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithOrder overrides the fallback preference.
func WithOrder(order ...Channel) Option {
	return func(d *Dispatcher) { d.order = order }
}

// WithTimeout overrides the per-send timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// NewDispatcher creates a dispatcher over the configured senders. Nil senders
// are ignored, so unconfigured channels are simply never attempted.
func NewDispatcher(senders []Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		senders: make(map[Channel]Sender),
		order:   DefaultOrder,
		timeout: DefaultTimeout,
	}
	for _, s := range senders {
		if s != nil {
			d.senders[s.Channel()] = s
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send delivers msg to the first channel that accepts it.
func (d *Dispatcher) Send(ctx context.Context, to Recipient, msg Message) Result {
	return d.send(ctx, to, msg, d.order)
}

// SendVia restricts delivery to the given channels, still in fallback order.
func (d *Dispatcher) SendVia(ctx context.Context, to Recipient, msg Message, channels ...Channel) Result {
	return d.send(ctx, to, msg, channels)
}

func (d *Dispatcher) send(ctx context.Context, to Recipient, msg Message, order []Channel) Result {
	res := Result{Channels: make(map[Channel]Attempt, len(order))}
	for _, ch := range order {
		sender, ok := d.senders[ch]
		if !ok || !reachable(ch, to) {
			res.Channels[ch] = Attempt{}
			continue
		}
		if res.AnySuccess {
			res.Channels[ch] = Attempt{}
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := sender.Send(sendCtx, to, msg)
		cancel()

		attempt := Attempt{Attempted: true, Success: err == nil}
		if err != nil {
			attempt.Error = err.Error()
			logger.Warn(ctx, "notification channel failed", "channel", ch, "error", err)
		}
		if d.recorder != nil {
			d.recorder.NotificationAttempt(string(ch), err == nil)
		}
		res.Channels[ch] = attempt
		res.AnySuccess = res.AnySuccess || attempt.Success
	}
	return res
}

func reachable(ch Channel, to Recipient) bool {
	if ch == ChannelEmail {
		return to.Email != ""
	}
	return to.Phone != ""
}
