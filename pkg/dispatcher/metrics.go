package dispatcher

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the dispatcher's prometheus collectors.
type Metrics struct {
	Attempts *prometheus.CounterVec
	Retries  *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight *prometheus.GaugeVec
}

// NewMetrics registers the collectors with reg. Collectors already
// registered by another dispatcher are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	const ns, sub = "notifykit", "dispatcher"

	attempts, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub, Name: "attempts_total",
		Help: "Delivery attempts by channel and outcome.",
	}, []string{"channel", "outcome"}))
	if err != nil {
		return nil, err
	}

	retries, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub, Name: "retries_scheduled_total",
		Help: "Retries placed on the delay queue by channel.",
	}, []string{"channel"}))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: sub, Name: "attempt_duration_seconds",
		Help:    "Transport call latency by channel.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"channel"}))
	if err != nil {
		return nil, err
	}

	inflight, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns, Subsystem: sub, Name: "in_flight",
		Help: "Transport calls currently running by channel.",
	}, []string{"channel"}))
	if err != nil {
		return nil, err
	}

	return &Metrics{Attempts: attempts, Retries: retries, Duration: duration, InFlight: inflight}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
