package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// PostgresStorage implements Storage on the schema in Migrations.
type PostgresStorage struct {
	db pg.DB
}

func NewPostgresStorage(db pg.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

const (
	recipientColumns = `id::text, notification_id::text, user_id, read, read_at, created_at, updated_at`
	logColumns       = `id::text, notification_id::text, recipient_id::text, channel, status::text, error_message, sent_at, created_at, updated_at`
)

func (s *PostgresStorage) CreateNotification(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	channels := make([]string, len(n.Channels))
	for i, ch := range n.Channels {
		channels[i] = string(ch)
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO notifications (id, template_id, subject, body, channels, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.TemplateID, n.Subject, n.Body, channels, n.CreatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return ErrDuplicateNotification
	}
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

func (s *PostgresStorage) GetNotification(ctx context.Context, id string) (Notification, error) {
	var (
		n        Notification
		channels []string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id::text, template_id, subject, body, channels, created_at
		 FROM notifications WHERE id = $1`, id,
	).Scan(&n.ID, &n.TemplateID, &n.Subject, &n.Body, &channels, &n.CreatedAt)
	if notFound(err) {
		return Notification{}, ErrNotificationNotFound
	}
	if err != nil {
		return Notification{}, errors.Join(ErrStorage, err)
	}

	n.Channels = make([]Channel, len(channels))
	for i, ch := range channels {
		n.Channels[i] = Channel(ch)
	}
	return n, nil
}

func (s *PostgresStorage) WithdrawNotification(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO notification_withdrawals (notification_id, withdrawn_at)
		 VALUES ($1, $2) ON CONFLICT (notification_id) DO NOTHING`, id, at,
	)
	if pg.IsForeignKeyViolationError(err) || pg.IsInvalidTextError(err) {
		return ErrNotificationNotFound
	}
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

func (s *PostgresStorage) IsWithdrawn(ctx context.Context, id string) (bool, error) {
	var withdrawn bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notification_withdrawals WHERE notification_id = $1)`, id,
	).Scan(&withdrawn)
	if pg.IsInvalidTextError(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Join(ErrStorage, err)
	}
	return withdrawn, nil
}

func (s *PostgresStorage) CreateRecipient(ctx context.Context, r Recipient) (Recipient, error) {
	if r.NotificationID == "" || r.UserID == "" {
		return Recipient{}, fmt.Errorf("%w: notification id and user id are required", ErrInvalidRecipient)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	row := s.db.QueryRow(ctx,
		`INSERT INTO notification_recipients (id, notification_id, user_id)
		 VALUES ($1, $2, $3)
		 RETURNING `+recipientColumns,
		r.ID, r.NotificationID, r.UserID,
	)
	out, err := scanRecipient(row)
	switch {
	case pg.IsDuplicateKeyError(err):
		return Recipient{}, ErrDuplicateRecipient
	case pg.IsForeignKeyViolationError(err), pg.IsInvalidTextError(err):
		return Recipient{}, ErrNotificationNotFound
	case err != nil:
		return Recipient{}, errors.Join(ErrStorage, err)
	}
	return out, nil
}

func (s *PostgresStorage) GetRecipient(ctx context.Context, id string) (Recipient, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+recipientColumns+` FROM notification_recipients WHERE id = $1`, id)
	return recipientOrNotFound(scanRecipient(row))
}

func (s *PostgresStorage) GetRecipientByUser(ctx context.Context, notificationID, userID string) (Recipient, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+recipientColumns+` FROM notification_recipients
		 WHERE notification_id = $1 AND user_id = $2`, notificationID, userID)
	return recipientOrNotFound(scanRecipient(row))
}

func (s *PostgresStorage) ListRecipients(ctx context.Context, notificationID string) ([]Recipient, error) {
	if uuid.Validate(notificationID) != nil {
		return []Recipient{}, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+recipientColumns+` FROM notification_recipients
		 WHERE notification_id = $1 ORDER BY created_at, user_id`, notificationID)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return collectRecipients(rows)
}

func (s *PostgresStorage) ListRecipientsByUser(ctx context.Context, userID string, opts ListOptions) ([]Recipient, error) {
	var limit *int
	if opts.Limit > 0 {
		limit = &opts.Limit
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+recipientColumns+` FROM notification_recipients
		 WHERE user_id = $1 AND (NOT $2 OR NOT read)
		 ORDER BY created_at DESC, id
		 LIMIT $3 OFFSET $4`, userID, opts.OnlyUnread, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return collectRecipients(rows)
}

func (s *PostgresStorage) MarkRead(ctx context.Context, id string, at time.Time) (time.Time, error) {
	// The conditional update wins at most once. A caller that loses reads the
	// winner's timestamp in a second statement, which sees the committed row.
	var readAt time.Time
	err := s.db.QueryRow(ctx,
		`UPDATE notification_recipients
		 SET read = TRUE, read_at = $2, updated_at = now()
		 WHERE id = $1 AND NOT read
		 RETURNING read_at`, id, at,
	).Scan(&readAt)
	if err == nil {
		return readAt, nil
	}
	if !notFound(err) {
		return time.Time{}, errors.Join(ErrStorage, err)
	}

	var stored *time.Time
	err = s.db.QueryRow(ctx,
		`SELECT read_at FROM notification_recipients WHERE id = $1`, id,
	).Scan(&stored)
	if notFound(err) {
		return time.Time{}, ErrRecipientNotFound
	}
	if err != nil {
		return time.Time{}, errors.Join(ErrStorage, err)
	}
	if stored == nil {
		// Unreachable while read and read_at are written together.
		return time.Time{}, errors.Join(ErrStorage, fmt.Errorf("recipient %s is read without a timestamp", id))
	}
	return *stored, nil
}

func (s *PostgresStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM notification_recipients WHERE user_id = $1 AND NOT read`, userID,
	).Scan(&n)
	if err != nil {
		return 0, errors.Join(ErrStorage, err)
	}
	return n, nil
}

func (s *PostgresStorage) UpsertDeliveryLog(ctx context.Context, notificationID, recipientID string, ch Channel) (DeliveryLog, error) {
	if notificationID == "" || recipientID == "" || ch == "" {
		return DeliveryLog{}, fmt.Errorf("%w: notification, recipient and channel are required", ErrInvalidDeliveryLog)
	}

	row := s.db.QueryRow(ctx,
		`INSERT INTO notification_delivery_logs (id, notification_id, recipient_id, channel, status)
		 VALUES ($1, $2, $3, $4, 'pending')
		 ON CONFLICT (notification_id, recipient_id, channel) WHERE recipient_id IS NOT NULL
		 DO UPDATE SET status = 'pending', updated_at = now()
		 WHERE notification_delivery_logs.status IN ('pending', 'failed')
		 RETURNING `+logColumns,
		uuid.NewString(), notificationID, recipientID, string(ch),
	)
	l, err := scanLog(row)
	if err == nil {
		return l, nil
	}
	if !pg.IsNotFoundError(err) {
		if pg.IsForeignKeyViolationError(err) || pg.IsInvalidTextError(err) {
			return DeliveryLog{}, ErrRecipientNotFound
		}
		return DeliveryLog{}, errors.Join(ErrStorage, err)
	}

	// Conflict with a sent or delivered row: nothing was returned.
	existing, err := s.FindDeliveryLog(ctx, notificationID, recipientID, ch)
	if err != nil {
		return DeliveryLog{}, err
	}
	return existing, CheckTransition(existing.Status, StatusPending)
}

func (s *PostgresStorage) AppendDeliveryLog(ctx context.Context, l DeliveryLog) (DeliveryLog, error) {
	if l.NotificationID == "" || l.Channel == "" {
		return DeliveryLog{}, fmt.Errorf("%w: notification and channel are required", ErrInvalidDeliveryLog)
	}
	if l.RecipientID != nil {
		return DeliveryLog{}, fmt.Errorf("%w: appended logs must be unattributed", ErrInvalidDeliveryLog)
	}
	if !l.Status.Valid() {
		return DeliveryLog{}, fmt.Errorf("%w: unknown status %q", ErrInvalidDeliveryLog, l.Status)
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	row := s.db.QueryRow(ctx,
		`INSERT INTO notification_delivery_logs (id, notification_id, channel, status, error_message, sent_at)
		 VALUES ($1, $2, $3, $4::notification_delivery_status, $5, $6)
		 RETURNING `+logColumns,
		l.ID, l.NotificationID, string(l.Channel), string(l.Status), l.ErrorMessage, l.SentAt,
	)
	out, err := scanLog(row)
	if pg.IsForeignKeyViolationError(err) || pg.IsInvalidTextError(err) {
		return DeliveryLog{}, ErrNotificationNotFound
	}
	if err != nil {
		return DeliveryLog{}, errors.Join(ErrStorage, err)
	}
	return out, nil
}

func (s *PostgresStorage) UpdateDeliveryLog(ctx context.Context, id string, u LogUpdate) (DeliveryLog, error) {
	if err := CheckTransition(u.From, u.To); err != nil {
		return DeliveryLog{}, err
	}

	row := s.db.QueryRow(ctx,
		`UPDATE notification_delivery_logs
		 SET status = $3::notification_delivery_status,
		     error_message = COALESCE($4, error_message),
		     sent_at = COALESCE($5, sent_at),
		     updated_at = now()
		 WHERE id = $1 AND status = $2::notification_delivery_status
		 RETURNING `+logColumns,
		id, string(u.From), string(u.To), u.ErrorMessage, u.SentAt,
	)
	l, err := scanLog(row)
	if err == nil {
		return l, nil
	}
	if pg.IsInvalidTextError(err) {
		return DeliveryLog{}, ErrDeliveryLogNotFound
	}
	if !pg.IsNotFoundError(err) {
		return DeliveryLog{}, errors.Join(ErrStorage, err)
	}

	current, err := s.GetDeliveryLog(ctx, id)
	if err != nil {
		return DeliveryLog{}, err
	}
	return current, fmt.Errorf("%w: stored status is %s, expected %s", ErrInvalidTransition, current.Status, u.From)
}

func (s *PostgresStorage) GetDeliveryLog(ctx context.Context, id string) (DeliveryLog, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+logColumns+` FROM notification_delivery_logs WHERE id = $1`, id)
	return logOrNotFound(scanLog(row))
}

func (s *PostgresStorage) FindDeliveryLog(ctx context.Context, notificationID, recipientID string, ch Channel) (DeliveryLog, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+logColumns+` FROM notification_delivery_logs
		 WHERE notification_id = $1 AND recipient_id = $2 AND channel = $3`,
		notificationID, recipientID, string(ch))
	return logOrNotFound(scanLog(row))
}

func (s *PostgresStorage) ListDeliveryLogs(ctx context.Context, notificationID string) ([]DeliveryLog, error) {
	if uuid.Validate(notificationID) != nil {
		return []DeliveryLog{}, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+logColumns+` FROM notification_delivery_logs
		 WHERE notification_id = $1 ORDER BY created_at, id`, notificationID)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	defer rows.Close()

	out := make([]DeliveryLog, 0)
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, errors.Join(ErrStorage, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return out, nil
}

func scanRecipient(row pgx.Row) (Recipient, error) {
	var r Recipient
	err := row.Scan(&r.ID, &r.NotificationID, &r.UserID, &r.Read, &r.ReadAt, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func recipientOrNotFound(r Recipient, err error) (Recipient, error) {
	if notFound(err) {
		return Recipient{}, ErrRecipientNotFound
	}
	if err != nil {
		return Recipient{}, errors.Join(ErrStorage, err)
	}
	return r, nil
}

func collectRecipients(rows pgx.Rows) ([]Recipient, error) {
	defer rows.Close()

	out := make([]Recipient, 0)
	for rows.Next() {
		r, err := scanRecipient(rows)
		if err != nil {
			return nil, errors.Join(ErrStorage, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return out, nil
}

func scanLog(row pgx.Row) (DeliveryLog, error) {
	var (
		l       DeliveryLog
		channel string
		status  string
	)
	err := row.Scan(&l.ID, &l.NotificationID, &l.RecipientID, &channel, &status,
		&l.ErrorMessage, &l.SentAt, &l.CreatedAt, &l.UpdatedAt)
	l.Channel = Channel(channel)
	l.Status = DeliveryStatus(status)
	return l, err
}

func logOrNotFound(l DeliveryLog, err error) (DeliveryLog, error) {
	if notFound(err) {
		return DeliveryLog{}, ErrDeliveryLogNotFound
	}
	if err != nil {
		return DeliveryLog{}, errors.Join(ErrStorage, err)
	}
	return l, nil
}

// notFound treats a malformed uuid like a missing row; such an id can never
// match.
func notFound(err error) bool {
	return pg.IsNotFoundError(err) || pg.IsInvalidTextError(err)
}
