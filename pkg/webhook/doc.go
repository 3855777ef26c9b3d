// Package webhook signs, verifies and posts JSON webhook payloads.
//
// Signatures are HMAC-SHA256 over "<unix timestamp>.<body>", hex encoded and
// carried in the X-Webhook-Signature and X-Webhook-Timestamp headers. The same
// scheme is used for outbound integration calls and for inbound delivery
// receipts, so a provider relay can be configured with one shared secret.
//
// Sender makes exactly one attempt per call. Retrying is left to the caller,
// which classifies the returned error with errors.Is against ErrPermanentFailure
// and ErrTemporaryFailure.
package webhook
