// Package notifications holds the notification domain model and its storage
// contracts.
//
// A Notification is the rendered, immutable record of one send. Fan-out
// attaches one Recipient per user, and dispatch keeps one DeliveryLog per
// (notification, recipient, channel) lineage, moving it through
//
//	pending -> sent -> delivered
//	pending -> failed -> pending (retry)
//
// Logs with a nil RecipientID record channel-level failures that happened
// before any recipient was attached. A recipient's overall delivery state is
// derived from its logs by Aggregate and never stored.
//
// MemoryStorage and PostgresStorage implement Storage. Both enforce the
// (notification_id, user_id) uniqueness and report a conflict as
// ErrDuplicateRecipient. The SQL schema for PostgresStorage is embedded in
// Migrations and applied with pg.Migrate.
package notifications
