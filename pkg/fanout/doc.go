// Package fanout creates one recipient record per (notification, user).
//
// FanOut is idempotent: a unique conflict from the store means the record
// already exists and is loaded instead of reported. Creation for different
// users runs concurrently, and correctness under concurrent callers rests on
// the storage uniqueness constraint alone, so a partially failed fan-out is
// retried by calling FanOut again with the same input.
package fanout
