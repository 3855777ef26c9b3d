// Package hooks exposes the engine's inbound HTTP endpoints on a chi router.
//
//	POST /notifications                send a notification
//	POST /notifications/{id}/withdraw  stop pending dispatch
//	POST /deliveries/ack               provider delivery receipt, signed
//	POST /recipients/{id}/read         mark a recipient read
//	GET  /notifications/{id}/summary   derived delivery state
//	GET  /users/{id}/unread            unread count for a user
//	GET  /users/{id}/stream            in-app messages as server-sent events
//
// Delivery receipts carry a webhook signature over the raw body in the
// X-Webhook-Signature and X-Webhook-Timestamp headers; unsigned or stale
// requests get 401.
package hooks
