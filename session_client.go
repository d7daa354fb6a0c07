package authsync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultHTTPTimeout is applied when the host config does not set one.
const DefaultHTTPTimeout = 10 * time.Second

// SessionClientOption customizes the session client.
type SessionClientOption func(*SessionClient)

// WithSessionHTTPClient overrides the underlying HTTP client.
func WithSessionHTTPClient(client *http.Client) SessionClientOption {
	return func(c *SessionClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithSessionLogger overrides the default logger.
func WithSessionLogger(logger Logger) SessionClientOption {
	return func(c *SessionClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSessionClock injects a custom clock (useful for tests).
func WithSessionClock(clock func() time.Time) SessionClientOption {
	return func(c *SessionClient) {
		if clock != nil {
			c.now = clock
		}
	}
}

// SessionClient implements SessionFetcher against the backend session
// endpoint. HTTP 401 maps to ErrUnauthorized; every other failure mode
// (transport error, non-2xx status, malformed body, success=false) maps to
// ErrTransient so an ordinary network blip can never sign a user out.
type SessionClient struct {
	baseURL string
	client  *http.Client
	logger  Logger
	now     func() time.Time
}

var _ SessionFetcher = (*SessionClient)(nil)

// NewSessionClient creates a session client from the host config.
func NewSessionClient(cfg Config, opts ...SessionClientOption) *SessionClient {
	timeout := DefaultHTTPTimeout
	base := ""
	if cfg != nil {
		base = cfg.GetSessionEndpoint()
		if cfg.GetHTTPTimeout() > 0 {
			timeout = cfg.GetHTTPTimeout()
		}
	}

	c := &SessionClient{
		baseURL: strings.TrimSuffix(base, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  defLogger{},
		now:     time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

type meResponse struct {
	Success          bool           `json:"success"`
	OnboardingStatus string         `json:"onboardingStatus"`
	HasPaymentMethod bool           `json:"hasPaymentMethod"`
	Resy             *meResyProfile `json:"resy"`
	Error            string         `json:"error,omitempty"`
}

type meResyProfile struct {
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	PaymentMethodID string `json:"paymentMethodId"`
}

// FetchSession implements SessionFetcher.
func (c *SessionClient) FetchSession(ctx context.Context, uid, token string) (*SessionRecord, error) {
	requestID := uuid.NewString()

	endpoint := c.baseURL + "/me?uid=" + url.QueryEscape(uid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, ErrTransient.Clone().WithMetadata(map[string]any{
			"request_id": requestID,
			"cause":      err.Error(),
		})
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("session fetch transport error request_id=%s: %v", requestID, err)
		return nil, ErrTransient.Clone().WithMetadata(map[string]any{
			"request_id": requestID,
			"cause":      err.Error(),
		})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrTransient.Clone().WithMetadata(map[string]any{
			"request_id": requestID,
			"cause":      err.Error(),
		})
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("session endpoint returned 401 request_id=%s", requestID)
		return nil, ErrUnauthorized.Clone().WithMetadata(map[string]any{
			"request_id": requestID,
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ErrTransient.Clone().WithMetadata(map[string]any{
			"request_id": requestID,
			"status":     resp.StatusCode,
		})
	}

	var payload meResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, ErrTransient.Clone().WithMetadata(map[string]any{
			"request_id": requestID,
			"cause":      "malformed session body: " + err.Error(),
		})
	}

	if !payload.Success {
		return nil, ErrTransient.Clone().WithMetadata(map[string]any{
			"request_id": requestID,
			"cause":      payload.Error,
		})
	}

	record := &SessionRecord{
		OnboardingStatus: ParseOnboardingStatus(payload.OnboardingStatus),
		HasPaymentMethod: payload.HasPaymentMethod,
		FetchedAt:        c.now(),
	}
	if payload.Resy != nil {
		record.Resy = &LinkedAccount{
			Email:           payload.Resy.Email,
			FirstName:       payload.Resy.FirstName,
			LastName:        payload.Resy.LastName,
			PaymentMethodID: payload.Resy.PaymentMethodID,
		}
	}

	return record, nil
}
