package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Sender posts signed JSON payloads. Zero value is not usable; use NewSender.
type Sender struct {
	client    *http.Client
	secret    string
	userAgent string
	now       func() time.Time
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) SenderOption {
	return func(s *Sender) {
		if c != nil {
			s.client = c
		}
	}
}

// WithSecret enables payload signing.
func WithSecret(secret string) SenderOption {
	return func(s *Sender) { s.secret = secret }
}

func WithUserAgent(ua string) SenderOption {
	return func(s *Sender) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

func WithSenderClock(now func() time.Time) SenderOption {
	return func(s *Sender) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSender(opts ...SenderOption) *Sender {
	s := &Sender{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: "notifykit-webhook/1.0",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Response describes a completed HTTP exchange.
type Response struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Send marshals data to JSON and posts it once. Non-2xx responses return an
// error joined with ErrPermanentFailure for 4xx codes other than 408 and 429,
// and with ErrTemporaryFailure otherwise. Transport errors are temporary.
func (s *Sender) Send(ctx context.Context, target string, data any) (Response, error) {
	if err := validateURL(target); err != nil {
		return Response{}, err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return Response{}, errors.Join(ErrInvalidPayload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return Response{}, errors.Join(ErrInvalidURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	if s.secret != "" {
		sig, err := Sign(s.secret, payload, s.now())
		if err != nil {
			return Response{}, err
		}
		sig.Apply(req.Header)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return Response{Duration: time.Since(start)}, errors.Join(ErrTemporaryFailure, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	out := Response{StatusCode: resp.StatusCode, Body: body, Duration: time.Since(start)}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return out, nil
	}

	statusErr := fmt.Errorf("webhook returned status %d", resp.StatusCode)
	if isPermanentStatus(resp.StatusCode) {
		return out, errors.Join(ErrPermanentFailure, statusErr)
	}
	return out, errors.Join(ErrTemporaryFailure, statusErr)
}

func isPermanentStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}

func validateURL(target string) error {
	if target == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	u, err := url.Parse(target)
	if err != nil {
		return errors.Join(ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return nil
}
