// Package readreceipt records that a recipient has seen a notification.
//
// Read state is one-way and independent of delivery status: a recipient may
// read an in-app notification whose email failed. The first read time wins;
// marking again returns it unchanged.
//
//	tr := readreceipt.NewTracker(store)
//	at, err := tr.MarkRead(ctx, recipientID, time.Time{})
package readreceipt
