// Package logger builds the structured loggers used across notifykit.
//
// New returns a *slog.Logger configured through Option functions: output
// format (text or json), level, writer, static attributes and
// ContextExtractor callbacks. Extractors run on every record, so values
// stored in a context.Context (for example the notification being
// dispatched) show up on log lines without threading them through every
// call.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "notifyd"),
//	    logger.WithContextExtractors(logger.NotificationIDExtractor()),
//	)
//	ctx = logger.WithNotificationID(ctx, n.ID)
//	log.InfoContext(ctx, "dispatch scheduled", logger.Channel("email"))
//
// Attribute helpers (Error, NotificationID, RecipientID, Channel, ...) keep
// key names stable across packages. Helpers that receive a nil value return
// an empty slog.Attr, which slog drops.
package logger
