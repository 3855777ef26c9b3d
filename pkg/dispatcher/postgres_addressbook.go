package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// PostgresAddressBook reads addresses from the notification_contacts table.
type PostgresAddressBook struct {
	db pg.DB
}

func NewPostgresAddressBook(db pg.DB) *PostgresAddressBook {
	return &PostgresAddressBook{db: db}
}

func (b *PostgresAddressBook) Address(ctx context.Context, userID string, ch notifications.Channel) (string, error) {
	var addr string
	err := b.db.QueryRow(ctx,
		`SELECT address FROM notification_contacts WHERE user_id = $1 AND channel = $2`,
		userID, string(ch),
	).Scan(&addr)
	if pg.IsNotFoundError(err) {
		return "", fmt.Errorf("%w: user %s, channel %s", ErrNoAddress, userID, ch)
	}
	if err != nil {
		return "", errors.Join(notifications.ErrStorage, err)
	}
	return addr, nil
}

// Put creates or replaces the address for (userID, ch).
func (b *PostgresAddressBook) Put(ctx context.Context, userID string, ch notifications.Channel, address string) error {
	_, err := b.db.Exec(ctx,
		`INSERT INTO notification_contacts (user_id, channel, address)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, channel) DO UPDATE SET address = EXCLUDED.address, updated_at = now()`,
		userID, string(ch), address,
	)
	if err != nil {
		return errors.Join(notifications.ErrStorage, err)
	}
	return nil
}

// Delete removes the address for (userID, ch).
func (b *PostgresAddressBook) Delete(ctx context.Context, userID string, ch notifications.Channel) error {
	_, err := b.db.Exec(ctx,
		`DELETE FROM notification_contacts WHERE user_id = $1 AND channel = $2`,
		userID, string(ch),
	)
	if err != nil {
		return errors.Join(notifications.ErrStorage, err)
	}
	return nil
}
