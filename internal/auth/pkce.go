package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	verifierBytes = 64
	stateBytes    = 32

	defaultExchangeTimeout = 10 * time.Second
	defaultStateTTL        = 10 * time.Minute
	maxResponseBytes       = 1 << 20
)

// FlowState is the lifecycle position of one login attempt.
type FlowState int

const (
	FlowInitiated FlowState = iota
	FlowAwaitingCallback
	FlowExchanged
	FlowCompleted
	FlowFailed
)

func (s FlowState) String() string {
	switch s {
	case FlowInitiated:
		return "initiated"
	case FlowAwaitingCallback:
		return "awaiting_callback"
	case FlowExchanged:
		return "exchanged"
	case FlowCompleted:
		return "completed"
	case FlowFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProviderConfig describes the OAuth client registration and provider endpoints.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
	ProfileURL   string
	Scopes       []string
	Timeout      time.Duration
	StateTTL     time.Duration
}

// MicrosoftEndpoints returns the v2.0 authorize and token endpoints of a tenant.
func MicrosoftEndpoints(authority, tenant string) (authorizeURL, tokenURL string) {
	base := strings.TrimRight(authority, "/") + "/" + strings.Trim(tenant, "/")
	return base + "/oauth2/v2.0/authorize", base + "/oauth2/v2.0/token"
}

// PKCEState is the per-attempt secret material. It is keyed by State and
// must be consumed at most once.
type PKCEState struct {
	Verifier    string    `json:"verifier"`
	Challenge   string    `json:"challenge"`
	State       string    `json:"state"`
	RedirectURI string    `json:"redirect_uri"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the attempt outlived its TTL at now.
func (s PKCEState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Attempt tracks one login attempt through the flow states.
type Attempt struct {
	AuthorizationURL string
	PKCE             PKCEState
	state            FlowState
}

// State returns the current flow state.
func (a *Attempt) State() FlowState {
	return a.state
}

// Complete marks an exchanged attempt as finished.
func (a *Attempt) Complete() error {
	if a.state != FlowExchanged {
		return fmt.Errorf("cannot complete attempt in state %s", a.state)
	}
	a.state = FlowCompleted
	return nil
}

// Fail moves the attempt to the terminal failed state.
func (a *Attempt) Fail() {
	a.state = FlowFailed
}

// TokenResult is the parsed token endpoint response.
type TokenResult struct {
	AccessToken string
	IDToken     string
	TokenType   string
	Scope       string
	ExpiresIn   int64
	Claims      Claims
}

// PKCEFlow runs the Authorization Code + PKCE exchange against one provider. The
// client secret is optional; without it the flow runs as a public client.
type PKCEFlow struct {
	cfg        ProviderConfig
	httpClient *http.Client
	tracer     trace.Tracer
	now        func() time.Time
}

// NewPKCEFlow validates cfg and builds a flow. A nil client gets one with the
// configured timeout.
func NewPKCEFlow(cfg ProviderConfig, client *http.Client) (*PKCEFlow, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("oauth client id must not be empty")
	}
	if cfg.AuthorizeURL == "" || cfg.TokenURL == "" {
		return nil, errors.New("oauth endpoints must be configured")
	}
	if cfg.RedirectURI == "" {
		return nil, errors.New("oauth redirect uri must be configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultExchangeTimeout
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = defaultStateTTL
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &PKCEFlow{
		cfg:        cfg,
		httpClient: client,
		tracer:     otel.Tracer("github.com/noah-isme/extension-hours-api/internal/auth/pkce"),
		now:        time.Now,
	}, nil
}

// PublicClient reports whether the exchange omits the client secret.
func (f *PKCEFlow) PublicClient() bool {
	return strings.TrimSpace(f.cfg.ClientSecret) == ""
}

// StateTTL returns how long an attempt may wait for its callback.
func (f *PKCEFlow) StateTTL() time.Duration {
	return f.cfg.StateTTL
}

// Start generates fresh PKCE material and the provider authorization URL.
func (f *PKCEFlow) Start() (*Attempt, error) {
	attempt := &Attempt{state: FlowInitiated}

	verifier, err := GenerateCodeVerifier()
	if err != nil {
		attempt.Fail()
		return attempt, err
	}
	state, err := randomToken(stateBytes)
	if err != nil {
		attempt.Fail()
		return attempt, err
	}

	now := f.now().UTC()
	attempt.PKCE = PKCEState{
		Verifier:    verifier,
		Challenge:   ComputeS256Challenge(verifier),
		State:       state,
		RedirectURI: f.cfg.RedirectURI,
		CreatedAt:   now,
		ExpiresAt:   now.Add(f.cfg.StateTTL),
	}

	authURL, err := f.authorizationURL(attempt.PKCE)
	if err != nil {
		attempt.Fail()
		return attempt, err
	}
	attempt.AuthorizationURL = authURL
	attempt.state = FlowAwaitingCallback
	return attempt, nil
}

// Resume rebuilds an attempt from stored PKCE material for the callback leg.
func (f *PKCEFlow) Resume(stored PKCEState) *Attempt {
	return &Attempt{PKCE: stored, state: FlowAwaitingCallback}
}

func (f *PKCEFlow) authorizationURL(pkce PKCEState) (string, error) {
	parsed, err := url.Parse(f.cfg.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorize url: %w", err)
	}
	query := parsed.Query()
	query.Set("client_id", f.cfg.ClientID)
	query.Set("response_type", "code")
	query.Set("redirect_uri", pkce.RedirectURI)
	query.Set("response_mode", "query")
	if len(f.cfg.Scopes) > 0 {
		query.Set("scope", strings.Join(f.cfg.Scopes, " "))
	}
	query.Set("state", pkce.State)
	query.Set("code_challenge", pkce.Challenge)
	query.Set("code_challenge_method", "S256")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// CompleteCallback checks the returned state against the attempt and redeems the
// code. Any state problem yields StateMismatch before the provider is contacted.
func (f *PKCEFlow) CompleteCallback(ctx context.Context, attempt *Attempt, code, returnedState string) (TokenResult, error) {
	if attempt == nil || attempt.state != FlowAwaitingCallback {
		return TokenResult{}, NewFailure(ErrStateMismatch, errors.New("attempt is not awaiting a callback"))
	}

	stored := attempt.PKCE
	if returnedState == "" || stored.State == "" ||
		subtle.ConstantTimeCompare([]byte(returnedState), []byte(stored.State)) != 1 {
		attempt.Fail()
		return TokenResult{}, NewFailure(ErrStateMismatch, nil)
	}
	if stored.Expired(f.now()) {
		attempt.Fail()
		return TokenResult{}, NewFailure(ErrStateMismatch, errors.New("attempt expired"))
	}
	if strings.TrimSpace(code) == "" {
		attempt.Fail()
		return TokenResult{}, NewFailure(ErrProviderError, errors.New("missing authorization code"))
	}

	result, err := f.exchange(ctx, code, stored)
	if err != nil {
		attempt.Fail()
		return TokenResult{}, NewFailure(ErrProviderError, err)
	}

	attempt.state = FlowExchanged
	return result, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (f *PKCEFlow) exchange(ctx context.Context, code string, stored PKCEState) (TokenResult, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	ctx, span := f.tracer.Start(ctx, "oauth.token_exchange", trace.WithAttributes(
		attribute.Bool("oauth.public_client", f.PublicClient()),
	))
	defer span.End()

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", f.cfg.ClientID)
	form.Set("code", code)
	form.Set("redirect_uri", stored.RedirectURI)
	form.Set("code_verifier", stored.Verifier)
	if len(f.cfg.Scopes) > 0 {
		form.Set("scope", strings.Join(f.cfg.Scopes, " "))
	}
	if !f.PublicClient() {
		form.Set("client_secret", f.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenResult{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return TokenResult{}, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return TokenResult{}, fmt.Errorf("read token response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return TokenResult{}, fmt.Errorf("token exchange failed (%d): %s", resp.StatusCode, truncate(string(body), 256))
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return TokenResult{}, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return TokenResult{}, errors.New("token response missing access_token")
	}

	claims, err := claimsFromIDToken(payload.IDToken)
	if err != nil {
		return TokenResult{}, err
	}

	return TokenResult{
		AccessToken: payload.AccessToken,
		IDToken:     payload.IDToken,
		TokenType:   payload.TokenType,
		Scope:       payload.Scope,
		ExpiresIn:   payload.ExpiresIn,
		Claims:      claims,
	}, nil
}

// claimsFromIDToken reads identity claims from an id_token received directly from
// the token endpoint over TLS; the back channel authenticates the issuer.
func claimsFromIDToken(idToken string) (Claims, error) {
	if strings.TrimSpace(idToken) == "" {
		return Claims{}, nil
	}
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, mapClaims); err != nil {
		return Claims{}, fmt.Errorf("parse id_token: %w", err)
	}
	return Claims{
		Email:       firstClaim(mapClaims, "email", "preferred_username", "upn"),
		DisplayName: firstClaim(mapClaims, "name"),
	}, nil
}

type graphProfile struct {
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
}

// FetchProfile reads the signed-in user's profile from the Graph-style endpoint.
func (f *PKCEFlow) FetchProfile(ctx context.Context, accessToken string) (Claims, error) {
	if f.cfg.ProfileURL == "" {
		return Claims{}, NewFailure(ErrProviderError, errors.New("profile endpoint not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	ctx, span := f.tracer.Start(ctx, "oauth.fetch_profile")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.ProfileURL, nil)
	if err != nil {
		return Claims{}, NewFailure(ErrProviderError, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return Claims{}, NewFailure(ErrProviderError, fmt.Errorf("fetch profile: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Claims{}, NewFailure(ErrProviderError, fmt.Errorf("profile request failed (%d)", resp.StatusCode))
	}

	var profile graphProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&profile); err != nil {
		return Claims{}, NewFailure(ErrProviderError, fmt.Errorf("decode profile: %w", err))
	}

	email := strings.TrimSpace(profile.Mail)
	if email == "" {
		email = strings.TrimSpace(profile.UserPrincipalName)
	}
	if email == "" {
		return Claims{}, NewFailure(ErrProviderError, errors.New("profile has no email"))
	}

	return Claims{Email: email, DisplayName: strings.TrimSpace(profile.DisplayName)}, nil
}

// GenerateCodeVerifier returns a high-entropy verifier of 86 unreserved characters.
func GenerateCodeVerifier() (string, error) {
	return randomToken(verifierBytes)
}

// ComputeS256Challenge computes the S256 PKCE challenge from a code verifier.
func ComputeS256Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

func randomToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func firstClaim(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if value, ok := claims[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
