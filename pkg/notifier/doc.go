// Package notifier ties the engine together behind one Service.
//
// Send renders the content (from a stored template or ad hoc), resolves the
// audience, persists the notification, creates one recipient record per
// user and hands every (recipient, channel) unit to the dispatcher.
// Rendering and audience errors abort before anything is stored.
//
//	svc := notifier.New(store, tmpl, aud, disp)
//	res, err := svc.Send(ctx, notifier.Request{
//	    TemplateID: "report-cards",
//	    Variables:  map[string]string{"term": "Fall"},
//	    Target:     audience.Role("parent"),
//	    Channels:   []notifications.Channel{notifications.ChannelEmail, notifications.ChannelInApp},
//	})
//
// Delivery is asynchronous: Send returns once work is queued. Summary
// reports the per-recipient delivery state derived from the delivery logs.
package notifier
