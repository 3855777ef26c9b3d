package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// AddressBook resolves where a user is reached on a channel. Implementations
// return an error wrapping ErrNoAddress when the user has none.
type AddressBook interface {
	Address(ctx context.Context, userID string, ch notifications.Channel) (string, error)
}

// MemoryAddressBook is an AddressBook backed by a map.
type MemoryAddressBook struct {
	mu      sync.RWMutex
	entries map[string]map[notifications.Channel]string
}

func NewMemoryAddressBook() *MemoryAddressBook {
	return &MemoryAddressBook{entries: make(map[string]map[notifications.Channel]string)}
}

// Set stores address for (userID, ch). An empty address removes it.
func (b *MemoryAddressBook) Set(userID string, ch notifications.Channel, address string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if address == "" {
		delete(b.entries[userID], ch)
		return
	}
	m, ok := b.entries[userID]
	if !ok {
		m = make(map[notifications.Channel]string)
		b.entries[userID] = m
	}
	m[ch] = address
}

func (b *MemoryAddressBook) Address(_ context.Context, userID string, ch notifications.Channel) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if addr, ok := b.entries[userID][ch]; ok {
		return addr, nil
	}
	return "", fmt.Errorf("%w: user %s, channel %s", ErrNoAddress, userID, ch)
}
