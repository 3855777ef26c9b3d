package throttle

import (
	"context"
	"fmt"
	"time"
)

// Config is a token bucket shape. Embed it with an envPrefix to configure one
// bucket per channel.
type Config struct {
	Capacity       int           `env:"CAPACITY" envDefault:"50"`
	RefillRate     int           `env:"REFILL_RATE" envDefault:"10"`
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"1s"`
}

func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Store keeps bucket state. Take refills the bucket for now, then removes n
// tokens if that many are available. It returns the tokens left and, when
// denied, the wait until n tokens will be available.
type Store interface {
	Take(ctx context.Context, key string, n int, cfg Config, now time.Time) (remaining int, retryAfter time.Duration, err error)
	Reset(ctx context.Context, key string) error
}

// Bucket applies one Config to any number of keys.
type Bucket struct {
	store Store
	cfg   Config
	now   func() time.Time
}

type BucketOption func(*Bucket)

// WithClock overrides the time source.
func WithClock(now func() time.Time) BucketOption {
	return func(b *Bucket) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBucket(store Store, cfg Config, opts ...BucketOption) (*Bucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Bucket{store: store, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.AllowN(ctx, key, 1)
}

func (b *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 || n > b.cfg.Capacity {
		return nil, fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidTokenCount, b.cfg.Capacity, n)
	}

	remaining, retryAfter, err := b.store.Take(ctx, key, n, b.cfg, b.now())
	if err != nil {
		return nil, err
	}
	return &Result{
		Allowed:    retryAfter <= 0,
		Limit:      b.cfg.Capacity,
		Remaining:  remaining,
		RetryAfter: max(retryAfter, 0),
	}, nil
}

func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}
