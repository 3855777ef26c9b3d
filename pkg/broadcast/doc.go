// Package broadcast fans messages out to in-process subscribers grouped by
// topic.
//
// Publishing never blocks: a subscriber whose buffer is full misses the
// message and is removed. Subscriptions end when their context is cancelled,
// when Close is called on them, or when the hub is closed.
package broadcast
