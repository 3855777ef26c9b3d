// Package channel defines the provider-facing Transport contract and its
// implementations for email, SMS, push, in-app and webhook delivery.
//
// Every transport failure is classified as transient or permanent. Wrap a
// failure with Transient or Permanent when the provider tells you which it
// is; Classify maps everything else (including context deadline errors) to
// transient so the dispatcher retries it.
//
//	tr := channel.NewPostmarkTransport(client, channel.PostmarkConfig{From: "school@example.com"})
//	ack, err := tr.Send(ctx, channel.Message{Address: "parent@example.com", Subject: "Hi", Body: "..."})
//	if channel.IsPermanent(err) {
//		// do not retry
//	}
package channel
