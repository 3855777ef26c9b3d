package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/audience"
	"github.com/dmitrymomot/notifykit/pkg/broadcast"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifier"
	"github.com/dmitrymomot/notifykit/pkg/readreceipt"
	"github.com/dmitrymomot/notifykit/pkg/templates"
	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

const maxBodySize = 64 << 10

// Acknowledger applies delivery receipts. *dispatcher.Dispatcher implements it.
type Acknowledger interface {
	Acknowledge(ctx context.Context, logID string, status notifications.DeliveryStatus) (notifications.DeliveryLog, error)
}

// Service is the engine facade. *notifier.Service implements it.
type Service interface {
	Send(ctx context.Context, req notifier.Request) (*notifier.Result, error)
	Withdraw(ctx context.Context, notificationID string) error
	MarkRead(ctx context.Context, recipientID string, at time.Time) (time.Time, error)
	Summary(ctx context.Context, notificationID string) (notifications.Summary, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// InAppSubscriber opens live in-app sessions. *channel.InAppTransport
// implements it.
type InAppSubscriber interface {
	Subscribe(ctx context.Context, userID string) (broadcast.Subscriber[channel.InAppMessage], error)
}

type Handler struct {
	ack    Acknowledger
	svc    Service
	inApp  InAppSubscriber
	secret string
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMaxAge sets how old a receipt signature may be. Default 5m.
func WithMaxAge(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.maxAge = d
		}
	}
}

// WithInApp enables the in-app event stream.
func WithInApp(sub InAppSubscriber) Option {
	return func(h *Handler) {
		if sub != nil {
			h.inApp = sub
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler builds the hooks. secret verifies delivery receipts.
func NewHandler(secret string, ack Acknowledger, svc Service, opts ...Option) *Handler {
	h := &Handler{
		ack:    ack,
		svc:    svc,
		secret: secret,
		maxAge: 5 * time.Minute,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns a router to mount, e.g. r.Mount("/hooks", h.Routes()).
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/notifications", h.send)
	r.Post("/notifications/{id}/withdraw", h.withdraw)
	r.Post("/deliveries/ack", h.acknowledge)
	r.Post("/recipients/{id}/read", h.markRead)
	r.Get("/notifications/{id}/summary", h.summary)
	r.Get("/users/{id}/unread", h.unread)
	if h.inApp != nil {
		r.Get("/users/{id}/stream", h.stream)
	}
	return r
}

type targetRequest struct {
	Users  []string `json:"users,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

func (t targetRequest) target() audience.Target {
	parts := []audience.Target{audience.List(t.Users...)}
	for _, role := range t.Roles {
		parts = append(parts, audience.Role(role))
	}
	for _, group := range t.Groups {
		parts = append(parts, audience.Group(group))
	}
	return audience.Union(parts...)
}

type sendRequest struct {
	ID         string                  `json:"id,omitempty"`
	TemplateID string                  `json:"template_id,omitempty"`
	Variables  map[string]string       `json:"variables,omitempty"`
	Subject    string                  `json:"subject,omitempty"`
	Body       string                  `json:"body,omitempty"`
	Target     targetRequest           `json:"target"`
	Channels   []notifications.Channel `json:"channels"`
}

type sendResponse struct {
	NotificationID string                  `json:"notification_id"`
	Recipients     int                     `json:"recipients"`
	Submitted      int                     `json:"submitted"`
	Unsupported    []notifications.Channel `json:"unsupported,omitempty"`
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.Send(r.Context(), notifier.Request{
		ID:         req.ID,
		TemplateID: req.TemplateID,
		Variables:  req.Variables,
		Subject:    req.Subject,
		Body:       req.Body,
		Target:     req.Target.target(),
		Channels:   req.Channels,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sendResponse{
		NotificationID: res.Notification.ID,
		Recipients:     len(res.Recipients),
		Submitted:      res.Report.Submitted,
		Unsupported:    res.Report.Unsupported,
	})
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Withdraw(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ackRequest struct {
	LogID  string                       `json:"log_id"`
	Status notifications.DeliveryStatus `json:"status"`
}

func (h *Handler) acknowledge(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	sig, err := webhook.FromHeader(r.Header)
	if err == nil {
		err = webhook.Verify(h.secret, body, sig, h.maxAge, h.now())
	}
	if err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelWarn, "rejected delivery receipt",
			logger.Component("hooks"), logger.Error(err))
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var req ackRequest
	if err := json.Unmarshal(body, &req); err != nil || req.LogID == "" {
		writeError(w, http.StatusBadRequest, "log_id and status are required")
		return
	}

	l, err := h.ack.Acknowledge(r.Context(), req.LogID, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type readRequest struct {
	ReadAt *time.Time `json:"read_at,omitempty"`
}

type readResponse struct {
	RecipientID string    `json:"recipient_id"`
	ReadAt      time.Time `json:"read_at"`
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req readRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	var at time.Time
	if req.ReadAt != nil {
		at = *req.ReadAt
	}

	stored, err := h.svc.MarkRead(r.Context(), id, at)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, readResponse{RecipientID: id, ReadAt: stored})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) unread(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	n, err := h.svc.CountUnread(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "unread": n})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "hook failed",
			logger.Component("hooks"), slog.String("path", r.URL.Path), logger.Error(err))
		writeError(w, code, http.StatusText(code))
		return
	}
	writeError(w, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, notifications.ErrNotificationNotFound),
		errors.Is(err, notifications.ErrRecipientNotFound),
		errors.Is(err, notifications.ErrDeliveryLogNotFound):
		return http.StatusNotFound
	case errors.Is(err, templates.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, notifications.ErrInvalidTransition),
		errors.Is(err, notifications.ErrDuplicateNotification):
		return http.StatusConflict
	case errors.Is(err, notifier.ErrInvalidRequest),
		errors.Is(err, templates.ErrMissingVariable),
		errors.Is(err, audience.ErrInvalidTarget):
		return http.StatusUnprocessableEntity
	case errors.Is(err, readreceipt.ErrInvalidRecipient),
		errors.Is(err, readreceipt.ErrInvalidUser):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
