package notifications

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type lineageKey struct {
	notificationID string
	recipientID    string
	channel        Channel
}

type userKey struct {
	notificationID string
	userID         string
}

// MemoryStorage implements Storage in process memory. It applies the same
// uniqueness rules as the SQL schema and returns copies, so callers never
// share state with the store.
type MemoryStorage struct {
	mu sync.RWMutex

	notifications map[string]Notification
	withdrawn     map[string]time.Time

	recipients      map[string]Recipient
	recipientByUser map[userKey]string

	logs          map[string]DeliveryLog
	logByLineage  map[lineageKey]string
	logsByNotifID map[string][]string

	now func() time.Time
}

// MemoryStorageOption configures a MemoryStorage.
type MemoryStorageOption func(*MemoryStorage)

// WithMemoryClock overrides the timestamp source.
func WithMemoryClock(now func() time.Time) MemoryStorageOption {
	return func(s *MemoryStorage) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	s := &MemoryStorage{
		notifications:   make(map[string]Notification),
		withdrawn:       make(map[string]time.Time),
		recipients:      make(map[string]Recipient),
		recipientByUser: make(map[userKey]string),
		logs:            make(map[string]DeliveryLog),
		logByLineage:    make(map[lineageKey]string),
		logsByNotifID:   make(map[string][]string),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStorage) CreateNotification(_ context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifications[n.ID]; ok {
		return ErrDuplicateNotification
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	n.Channels = slices.Clone(n.Channels)
	s.notifications[n.ID] = n
	return nil
}

func (s *MemoryStorage) GetNotification(_ context.Context, id string) (Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return Notification{}, ErrNotificationNotFound
	}
	n.Channels = slices.Clone(n.Channels)
	return n, nil
}

func (s *MemoryStorage) WithdrawNotification(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifications[id]; !ok {
		return ErrNotificationNotFound
	}
	if _, ok := s.withdrawn[id]; !ok {
		s.withdrawn[id] = at
	}
	return nil
}

func (s *MemoryStorage) IsWithdrawn(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.withdrawn[id]
	return ok, nil
}

func (s *MemoryStorage) CreateRecipient(_ context.Context, r Recipient) (Recipient, error) {
	if r.NotificationID == "" || r.UserID == "" {
		return Recipient{}, fmt.Errorf("%w: notification id and user id are required", ErrInvalidRecipient)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifications[r.NotificationID]; !ok {
		return Recipient{}, ErrNotificationNotFound
	}
	key := userKey{r.NotificationID, r.UserID}
	if _, ok := s.recipientByUser[key]; ok {
		return Recipient{}, ErrDuplicateRecipient
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now
	r.Read, r.ReadAt = false, nil

	s.recipients[r.ID] = r
	s.recipientByUser[key] = r.ID
	return r, nil
}

func (s *MemoryStorage) GetRecipient(_ context.Context, id string) (Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipients[id]
	if !ok {
		return Recipient{}, ErrRecipientNotFound
	}
	return copyRecipient(r), nil
}

func (s *MemoryStorage) GetRecipientByUser(_ context.Context, notificationID, userID string) (Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.recipientByUser[userKey{notificationID, userID}]
	if !ok {
		return Recipient{}, ErrRecipientNotFound
	}
	return copyRecipient(s.recipients[id]), nil
}

func (s *MemoryStorage) ListRecipients(_ context.Context, notificationID string) ([]Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Recipient, 0)
	for _, r := range s.recipients {
		if r.NotificationID == notificationID {
			out = append(out, copyRecipient(r))
		}
	}
	slices.SortFunc(out, func(a, b Recipient) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.UserID, b.UserID))
	})
	return out, nil
}

func (s *MemoryStorage) ListRecipientsByUser(_ context.Context, userID string, opts ListOptions) ([]Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Recipient, 0)
	for _, r := range s.recipients {
		if r.UserID != userID || (opts.OnlyUnread && r.Read) {
			continue
		}
		out = append(out, copyRecipient(r))
	}
	slices.SortFunc(out, func(a, b Recipient) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []Recipient{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *MemoryStorage) MarkRead(_ context.Context, id string, at time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipients[id]
	if !ok {
		return time.Time{}, ErrRecipientNotFound
	}
	if r.Read && r.ReadAt != nil {
		return *r.ReadAt, nil
	}

	r.Read = true
	r.ReadAt = &at
	r.UpdatedAt = s.now()
	s.recipients[id] = r
	return at, nil
}

func (s *MemoryStorage) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.recipients {
		if r.UserID == userID && !r.Read {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) UpsertDeliveryLog(_ context.Context, notificationID, recipientID string, ch Channel) (DeliveryLog, error) {
	if notificationID == "" || recipientID == "" || ch == "" {
		return DeliveryLog{}, fmt.Errorf("%w: notification, recipient and channel are required", ErrInvalidDeliveryLog)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := lineageKey{notificationID, recipientID, ch}
	now := s.now()

	if id, ok := s.logByLineage[key]; ok {
		l := s.logs[id]
		if err := CheckTransition(l.Status, StatusPending); err != nil {
			return copyLog(l), err
		}
		l.Status = StatusPending
		l.UpdatedAt = now
		s.logs[id] = l
		return copyLog(l), nil
	}

	rid := recipientID
	l := DeliveryLog{
		ID:             uuid.NewString(),
		NotificationID: notificationID,
		RecipientID:    &rid,
		Channel:        ch,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.logs[l.ID] = l
	s.logByLineage[key] = l.ID
	s.logsByNotifID[notificationID] = append(s.logsByNotifID[notificationID], l.ID)
	return copyLog(l), nil
}

func (s *MemoryStorage) AppendDeliveryLog(_ context.Context, l DeliveryLog) (DeliveryLog, error) {
	if l.NotificationID == "" || l.Channel == "" {
		return DeliveryLog{}, fmt.Errorf("%w: notification and channel are required", ErrInvalidDeliveryLog)
	}
	if l.RecipientID != nil {
		return DeliveryLog{}, fmt.Errorf("%w: appended logs must be unattributed", ErrInvalidDeliveryLog)
	}
	if !l.Status.Valid() {
		return DeliveryLog{}, fmt.Errorf("%w: unknown status %q", ErrInvalidDeliveryLog, l.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := s.now()
	l.CreatedAt, l.UpdatedAt = now, now
	l = copyLog(l)

	s.logs[l.ID] = l
	s.logsByNotifID[l.NotificationID] = append(s.logsByNotifID[l.NotificationID], l.ID)
	return copyLog(l), nil
}

func (s *MemoryStorage) UpdateDeliveryLog(_ context.Context, id string, u LogUpdate) (DeliveryLog, error) {
	if err := CheckTransition(u.From, u.To); err != nil {
		return DeliveryLog{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[id]
	if !ok {
		return DeliveryLog{}, ErrDeliveryLogNotFound
	}
	if l.Status != u.From {
		return copyLog(l), fmt.Errorf("%w: stored status is %s, expected %s", ErrInvalidTransition, l.Status, u.From)
	}

	l.Status = u.To
	if u.ErrorMessage != nil {
		msg := *u.ErrorMessage
		l.ErrorMessage = &msg
	}
	if u.SentAt != nil {
		at := *u.SentAt
		l.SentAt = &at
	}
	l.UpdatedAt = s.now()
	s.logs[id] = l
	return copyLog(l), nil
}

func (s *MemoryStorage) GetDeliveryLog(_ context.Context, id string) (DeliveryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.logs[id]
	if !ok {
		return DeliveryLog{}, ErrDeliveryLogNotFound
	}
	return copyLog(l), nil
}

func (s *MemoryStorage) FindDeliveryLog(_ context.Context, notificationID, recipientID string, ch Channel) (DeliveryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.logByLineage[lineageKey{notificationID, recipientID, ch}]
	if !ok {
		return DeliveryLog{}, ErrDeliveryLogNotFound
	}
	return copyLog(s.logs[id]), nil
}

func (s *MemoryStorage) ListDeliveryLogs(_ context.Context, notificationID string) ([]DeliveryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.logsByNotifID[notificationID]
	out := make([]DeliveryLog, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyLog(s.logs[id]))
	}
	return out, nil
}

func copyRecipient(r Recipient) Recipient {
	if r.ReadAt != nil {
		at := *r.ReadAt
		r.ReadAt = &at
	}
	return r
}

func copyLog(l DeliveryLog) DeliveryLog {
	if l.RecipientID != nil {
		id := *l.RecipientID
		l.RecipientID = &id
	}
	if l.ErrorMessage != nil {
		msg := *l.ErrorMessage
		l.ErrorMessage = &msg
	}
	if l.SentAt != nil {
		at := *l.SentAt
		l.SentAt = &at
	}
	return l
}
