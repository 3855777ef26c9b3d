// Package throttle limits how fast messages leave through a channel using a
// token bucket per key.
//
// A Bucket refills RefillRate tokens every RefillInterval up to Capacity.
// Denied calls consume nothing and report how long to wait before enough
// tokens are available. State lives in a Store: MemoryStore for a single
// process, RedisStore to share one budget across replicas.
//
//	b, _ := throttle.NewBucket(throttle.NewMemoryStore(), throttle.Config{Capacity: 10, RefillRate: 1, RefillInterval: time.Second})
//	res, err := b.Allow(ctx, "sms")
//	if err == nil && !res.Allowed {
//		time.Sleep(res.RetryAfter)
//	}
package throttle
