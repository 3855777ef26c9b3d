// Package dispatcher delivers fanned-out notifications over their channels
// and records every attempt in the delivery log.
//
// Each (recipient, channel) pair is a unit of work. A unit is claimed when it
// is submitted and stays claimed through retries until it reaches a terminal
// outcome, so two workers never run the same unit at once. Each channel has
// its own bounded worker pool; a slow or failing provider only backs up its
// own queue.
//
// One attempt moves the log to pending, resolves the address, asks the
// channel throttle for a token and calls the transport under a per-attempt
// timeout. Success marks the log sent. A transient failure (timeouts
// included) marks it failed and schedules the next attempt on the delay
// queue after exponential backoff, until MaxAttempts is reached. A permanent
// failure is terminal. Error messages from earlier attempts stay on the log
// after a later success.
//
// Withdrawing a notification stops every attempt that has not yet called its
// transport. Sends already in flight complete.
//
//	d, err := dispatcher.New(store, dispatcher.DefaultConfig(),
//		dispatcher.WithTransport(notifications.ChannelEmail, emailTransport),
//		dispatcher.WithAddressBook(contacts),
//	)
//	g.Go(d.Run(ctx))
//	report, err := d.DispatchAll(ctx, n, recipients)
package dispatcher
