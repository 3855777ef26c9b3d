package dispatcher

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Config tunes pools, retries and timeouts.
type Config struct {
	// Workers is the pool size for channels missing from ChannelWorkers.
	Workers int `env:"DISPATCH_WORKERS" envDefault:"4"`
	// ChannelWorkers overrides Workers per channel, e.g. "email:8,sms:2".
	ChannelWorkers map[string]int `env:"DISPATCH_CHANNEL_WORKERS" envSeparator:"," envKeyValSeparator:":"`
	QueueSize      int            `env:"DISPATCH_QUEUE_SIZE" envDefault:"256"`

	MaxAttempts    int           `env:"DISPATCH_MAX_ATTEMPTS" envDefault:"5"`
	BaseDelay      time.Duration `env:"DISPATCH_BASE_DELAY" envDefault:"2s"`
	MaxDelay       time.Duration `env:"DISPATCH_MAX_DELAY" envDefault:"5m"`
	Jitter         float64       `env:"DISPATCH_JITTER" envDefault:"0.2"`
	AttemptTimeout time.Duration `env:"DISPATCH_ATTEMPT_TIMEOUT" envDefault:"10s"`
}

func DefaultConfig() Config {
	return Config{
		Workers:        4,
		QueueSize:      256,
		MaxAttempts:    5,
		BaseDelay:      2 * time.Second,
		MaxDelay:       5 * time.Minute,
		Jitter:         0.2,
		AttemptTimeout: 10 * time.Second,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.MaxAttempts <= 0:
		return fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalidConfig, c.MaxAttempts)
	case c.AttemptTimeout <= 0:
		return fmt.Errorf("%w: attempt timeout must be positive, got %v", ErrInvalidConfig, c.AttemptTimeout)
	case c.Jitter < 0 || c.Jitter >= 1:
		return fmt.Errorf("%w: jitter must be in [0, 1), got %v", ErrInvalidConfig, c.Jitter)
	}
	for ch, n := range c.ChannelWorkers {
		if n <= 0 {
			return fmt.Errorf("%w: workers for %s must be positive, got %d", ErrInvalidConfig, ch, n)
		}
	}
	return nil
}

func (c Config) workersFor(ch notifications.Channel) int {
	if n, ok := c.ChannelWorkers[string(ch)]; ok {
		return n
	}
	return c.Workers
}
