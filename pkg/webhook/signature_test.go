package webhook_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_760_000_000, 0)
	payload := []byte(`{"log_id":"l1","status":"delivered"}`)

	sig, err := webhook.Sign("s3cret", payload, now)
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), sig.Timestamp)
	assert.Len(t, sig.Value, 64)
	assert.NotEmpty(t, sig.ID)

	tests := []struct {
		name    string
		secret  string
		payload []byte
		sig     webhook.Signature
		now     time.Time
		wantErr error
	}{
		{name: "valid", secret: "s3cret", payload: payload, sig: sig, now: now},
		{name: "wrong secret", secret: "other", payload: payload, sig: sig, now: now, wantErr: webhook.ErrInvalidSignature},
		{name: "tampered payload", secret: "s3cret", payload: []byte(`{"log_id":"l2"}`), sig: sig, now: now, wantErr: webhook.ErrInvalidSignature},
		{name: "expired", secret: "s3cret", payload: payload, sig: sig, now: now.Add(10 * time.Minute), wantErr: webhook.ErrInvalidSignature},
		{name: "future", secret: "s3cret", payload: payload, sig: sig, now: now.Add(-2 * time.Minute), wantErr: webhook.ErrInvalidSignature},
		{name: "missing secret", payload: payload, sig: sig, now: now, wantErr: webhook.ErrInvalidConfiguration},
		{name: "empty payload", secret: "s3cret", sig: sig, now: now, wantErr: webhook.ErrInvalidPayload},
		{name: "missing signature", secret: "s3cret", payload: payload, now: now, wantErr: webhook.ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := webhook.Verify(tt.secret, tt.payload, tt.sig, 5*time.Minute, tt.now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSign_Errors(t *testing.T) {
	t.Parallel()

	_, err := webhook.Sign("", []byte("x"), time.Now())
	assert.ErrorIs(t, err, webhook.ErrInvalidConfiguration)

	_, err = webhook.Sign("s", nil, time.Now())
	assert.ErrorIs(t, err, webhook.ErrInvalidPayload)
}

func TestFromHeader(t *testing.T) {
	t.Parallel()

	sig, err := webhook.Sign("s3cret", []byte("body"), time.Unix(100, 0))
	require.NoError(t, err)

	h := http.Header{}
	sig.Apply(h)

	got, err := webhook.FromHeader(h)
	require.NoError(t, err)
	assert.Equal(t, sig, got)

	t.Run("missing signature", func(t *testing.T) {
		t.Parallel()
		h := http.Header{}
		h.Set(webhook.HeaderTimestamp, "100")
		_, err := webhook.FromHeader(h)
		assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		t.Parallel()
		h := http.Header{}
		h.Set(webhook.HeaderSignature, "abc")
		h.Set(webhook.HeaderTimestamp, "yesterday")
		_, err := webhook.FromHeader(h)
		assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
	})
}
