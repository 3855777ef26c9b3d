// Package delayqueue holds delivery retries until they are due.
//
// A Queue accepts entries with a due time and hands each one to the handler
// passed to Run once that time has passed. TimerQueue keeps entries in
// process memory and loses them on restart. RedisQueue keeps them in a sorted
// set, so they survive restarts and any replica may run a due entry; removing
// the member from the set is the claim, so each entry runs exactly once.
package delayqueue
