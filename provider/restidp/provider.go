package restidp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tablekeep/go-authsync"
)

// Account is the provider-issued identity for the active credential. It is
// replaced wholesale on every sign-in and implements authsync.Identity.
type Account struct {
	uid          string
	displayName  string
	email        string
	idToken      string
	refreshToken string
	expiresAt    time.Time
}

func (a *Account) ID() string          { return a.uid }
func (a *Account) DisplayName() string { return a.displayName }
func (a *Account) Email() string       { return a.email }

// Provider implements authsync.Provider against a REST identity-toolkit
// API (password and federated sign-in, sign-up, token refresh). Auth
// change listeners are dispatched asynchronously, once immediately on
// registration and again after every sign-in and sign-out.
type Provider struct {
	config     Config
	httpClient *http.Client
	logger     authsync.Logger
	now        func() time.Time

	mu        sync.Mutex
	current   *Account
	listeners map[int]authsync.AuthChangeFunc
	nextID    int
}

var _ authsync.Provider = (*Provider)(nil)

// New creates an identity-toolkit provider.
func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("restidp: API key is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
		logger:     logger,
		now:        time.Now,
		listeners:  map[int]authsync.AuthChangeFunc{},
	}, nil
}

// OnAuthChanged implements authsync.Provider. The listener is invoked
// asynchronously with the current state before any subsequent events.
func (p *Provider) OnAuthChanged(fn authsync.AuthChangeFunc) authsync.Unsubscribe {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	current := p.current
	p.mu.Unlock()

	go dispatch(fn, current)

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// SignInPassword implements authsync.Provider.
func (p *Provider) SignInPassword(ctx context.Context, email, password string) (authsync.Identity, error) {
	var payload tokenPayload
	err := p.post(ctx, p.config.signInURL(), map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &payload)
	if err != nil {
		return nil, err
	}

	account, err := p.accountFromPayload(&payload)
	if err != nil {
		return nil, err
	}

	p.setCurrent(account)
	return account, nil
}

// SignInFederated implements authsync.Provider. The interactive federated
// flow happens in the host; this exchanges the credential it produced.
func (p *Provider) SignInFederated(ctx context.Context, credential authsync.FederatedCredential) (authsync.Identity, error) {
	postBody := url.Values{"providerId": {credential.ProviderID}}
	if credential.IDToken != "" {
		postBody.Set("id_token", credential.IDToken)
	}
	if credential.AccessToken != "" {
		postBody.Set("access_token", credential.AccessToken)
	}

	requestURI := credential.RequestURI
	if requestURI == "" {
		requestURI = "http://localhost"
	}

	var payload tokenPayload
	err := p.post(ctx, p.config.federatedURL(), map[string]any{
		"postBody":          postBody.Encode(),
		"requestUri":        requestURI,
		"returnSecureToken": true,
	}, &payload)
	if err != nil {
		return nil, err
	}

	account, err := p.accountFromPayload(&payload)
	if err != nil {
		return nil, err
	}

	p.setCurrent(account)
	return account, nil
}

// SignUp implements authsync.Provider.
func (p *Provider) SignUp(ctx context.Context, email, password, displayName string) (authsync.Identity, error) {
	var payload tokenPayload
	err := p.post(ctx, p.config.signUpURL(), map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &payload)
	if err != nil {
		return nil, err
	}

	account, err := p.accountFromPayload(&payload)
	if err != nil {
		return nil, err
	}

	if displayName != "" {
		// Best effort: a failed profile update should not fail the sign-up.
		var updated tokenPayload
		if err := p.post(ctx, p.config.updateURL(), map[string]any{
			"idToken":           account.idToken,
			"displayName":       displayName,
			"returnSecureToken": false,
		}, &updated); err != nil {
			p.logger.Warn("restidp: display name update failed: %v", err)
		} else {
			account.displayName = displayName
		}
	}

	p.setCurrent(account)
	return account, nil
}

// SignOut implements authsync.Provider. It drops the local credential and
// notifies listeners; the identity-toolkit API has no server-side session
// to destroy.
func (p *Provider) SignOut(ctx context.Context) error {
	p.setCurrent(nil)
	return nil
}

// Token implements authsync.Provider. The cached ID token is reused while
// it has more than the configured slack of validity left; otherwise it is
// re-derived through the refresh-token grant.
func (p *Provider) Token(ctx context.Context, identity authsync.Identity) (string, error) {
	if identity == nil {
		return "", authsync.ErrTokenUnavailable
	}

	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if current == nil || current.uid != identity.ID() {
		return "", authsync.ErrTokenUnavailable.Clone().WithMetadata(map[string]any{
			"uid": identity.ID(),
		})
	}

	if current.idToken != "" && p.now().Add(p.config.tokenSlack()).Before(current.expiresAt) {
		return current.idToken, nil
	}

	return p.refreshToken(ctx, current)
}

func (p *Provider) refreshToken(ctx context.Context, account *Account) (string, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {account.refreshToken},
	}

	endpoint := p.config.refreshURL() + "?key=" + url.QueryEscape(p.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", authsync.ErrProvider.Clone().WithMetadata(map[string]any{"cause": err.Error()})
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", authsync.ErrNetwork.Clone().WithMetadata(map[string]any{"cause": err.Error()})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", authsync.ErrNetwork.Clone().WithMetadata(map[string]any{"cause": err.Error()})
	}

	if resp.StatusCode != http.StatusOK {
		message := apiErrorMessage(body)
		p.logger.Warn("restidp: token refresh rejected: %s", message)
		return "", authsync.ErrTokenUnavailable.Clone().WithMetadata(map[string]any{
			"status":  resp.StatusCode,
			"message": message,
		})
	}

	var refreshed refreshPayload
	if err := json.Unmarshal(body, &refreshed); err != nil {
		return "", authsync.ErrProvider.Clone().WithMetadata(map[string]any{"cause": err.Error()})
	}

	expiresAt := p.now().Add(parseExpiresIn(refreshed.ExpiresIn))

	p.mu.Lock()
	if p.current != nil && p.current.uid == account.uid {
		p.current.idToken = refreshed.IDToken
		if refreshed.RefreshToken != "" {
			p.current.refreshToken = refreshed.RefreshToken
		}
		p.current.expiresAt = expiresAt
	}
	p.mu.Unlock()

	return refreshed.IDToken, nil
}

func (p *Provider) setCurrent(account *Account) {
	p.mu.Lock()
	p.current = account
	listeners := make([]authsync.AuthChangeFunc, 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		go dispatch(fn, account)
	}
}

// dispatch passes a typed nil through as an untyped nil interface so
// listeners can compare against nil directly.
func dispatch(fn authsync.AuthChangeFunc, account *Account) {
	if account == nil {
		fn(nil)
		return
	}
	fn(account)
}

func (p *Provider) accountFromPayload(payload *tokenPayload) (*Account, error) {
	account := &Account{
		uid:          payload.LocalID,
		displayName:  payload.DisplayName,
		email:        payload.Email,
		idToken:      payload.IDToken,
		refreshToken: payload.RefreshToken,
		expiresAt:    p.now().Add(parseExpiresIn(payload.ExpiresIn)),
	}

	claims, err := p.tokenClaims(payload.IDToken)
	if err != nil {
		return nil, err
	}
	if claims != nil {
		if account.uid == "" && claims.UserID != "" {
			account.uid = claims.UserID
		}
		if account.displayName == "" {
			account.displayName = claims.Name
		}
		if account.email == "" {
			account.email = claims.Email
		}
	}

	if account.uid == "" {
		return nil, authsync.ErrProvider.Clone().WithMetadata(map[string]any{
			"cause": "response carried no user id",
		})
	}

	return account, nil
}

func (p *Provider) tokenClaims(idToken string) (*IDTokenClaims, error) {
	if idToken == "" {
		return nil, nil
	}

	if p.config.Validator != nil {
		claims, err := p.config.Validator.Validate(idToken)
		if err != nil {
			return nil, authsync.ErrProvider.Clone().WithMetadata(map[string]any{
				"cause": "id token failed verification: " + err.Error(),
			})
		}
		return claims, nil
	}

	return parseUnverifiedClaims(idToken), nil
}

func (p *Provider) post(ctx context.Context, endpoint string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return authsync.ErrProvider.Clone().WithMetadata(map[string]any{"cause": err.Error()})
	}

	target := endpoint + "?key=" + url.QueryEscape(p.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(raw))
	if err != nil {
		return authsync.ErrProvider.Clone().WithMetadata(map[string]any{"cause": err.Error()})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return authsync.ErrNetwork.Clone().WithMetadata(map[string]any{"cause": err.Error()})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return authsync.ErrNetwork.Clone().WithMetadata(map[string]any{"cause": err.Error()})
	}

	if resp.StatusCode != http.StatusOK {
		return classifyAPIError(resp.StatusCode, apiErrorMessage(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return authsync.ErrProvider.Clone().WithMetadata(map[string]any{
			"cause": "malformed provider response: " + err.Error(),
		})
	}

	return nil
}

type tokenPayload struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type refreshPayload struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func apiErrorMessage(body []byte) string {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return strings.TrimSpace(string(body))
	}
	return parsed.Error.Message
}

// classifyAPIError maps identity-toolkit error messages onto the shared
// taxonomy. Credential-shaped rejections surface as ErrInvalidCredentials
// for form-level display; everything else is a provider fault.
func classifyAPIError(status int, message string) error {
	normalized := message
	if idx := strings.IndexAny(normalized, " :"); idx > 0 {
		normalized = normalized[:idx]
	}

	switch normalized {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS",
		"INVALID_EMAIL", "USER_DISABLED", "EMAIL_EXISTS", "WEAK_PASSWORD":
		return authsync.ErrInvalidCredentials.Clone().WithMetadata(map[string]any{
			"status":  status,
			"message": message,
		})
	default:
		return authsync.ErrProvider.Clone().WithMetadata(map[string]any{
			"status":  status,
			"message": message,
		})
	}
}

func parseExpiresIn(raw string) time.Duration {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return time.Hour
	}
	return time.Duration(seconds) * time.Second
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
