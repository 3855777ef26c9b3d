package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/delayqueue"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/throttle"
)

// Limiter grants send tokens for a channel. *throttle.Bucket implements it.
type Limiter interface {
	Allow(ctx context.Context, key string) (*throttle.Result, error)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTransport registers the transport for ch. Channels without one are
// recorded as unattributed failures by DispatchAll.
func WithTransport(ch notifications.Channel, t channel.Transport) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.transports[ch] = t
		}
	}
}

func WithAddressBook(b AddressBook) Option {
	return func(d *Dispatcher) {
		if b != nil {
			d.addresses = b
		}
	}
}

// WithThrottle rate limits sends on ch.
func WithThrottle(ch notifications.Channel, l Limiter) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.limiters[ch] = l
		}
	}
}

// WithDelayQueue replaces the in-process retry queue.
func WithDelayQueue(q delayqueue.Queue) Option {
	return func(d *Dispatcher) {
		if q != nil {
			d.delay = q
		}
	}
}

func WithBackoff(b Backoff) Option {
	return func(d *Dispatcher) {
		if b != nil {
			d.backoff = b
		}
	}
}

// WithRegisterer registers metrics with reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(d *Dispatcher) {
		if reg != nil {
			d.registerer = reg
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}
