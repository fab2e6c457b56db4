package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu       sync.Mutex
	server   *httptest.Server
	forms    []url.Values
	status   int
	idClaims jwt.MapClaims
	profile  map[string]string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		p.mu.Lock()
		p.forms = append(p.forms, r.PostForm)
		status := p.status
		claims := p.idClaims
		p.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		payload := map[string]any{"access_token": "access-123", "token_type": "Bearer", "expires_in": 3600}
		if claims != nil {
			idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("provider-key"))
			require.NoError(t, err)
			payload["id_token"] = idToken
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		p.mu.Lock()
		profile := p.profile
		p.mu.Unlock()
		_ = json.NewEncoder(w).Encode(profile)
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) lastForm() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.forms) == 0 {
		return nil
	}
	return p.forms[len(p.forms)-1]
}

func (p *fakeProvider) requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.forms)
}

func newTestFlow(t *testing.T, provider *fakeProvider, secret string) *PKCEFlow {
	t.Helper()
	flow, err := NewPKCEFlow(ProviderConfig{
		ClientID:     "client-123",
		ClientSecret: secret,
		RedirectURI:  "http://localhost/callback",
		AuthorizeURL: provider.server.URL + "/authorize",
		TokenURL:     provider.server.URL + "/token",
		ProfileURL:   provider.server.URL + "/me",
		Scopes:       []string{"openid", "email"},
	}, provider.server.Client())
	require.NoError(t, err)
	return flow
}

func TestComputeS256Challenge(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)
	require.Len(t, verifier, 86)

	sum := sha256.Sum256([]byte(verifier))
	require.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), ComputeS256Challenge(verifier))

	// RFC 7636 appendix B.
	require.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		ComputeS256Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
}

func TestMicrosoftEndpoints(t *testing.T) {
	authorize, token := MicrosoftEndpoints("https://login.microsoftonline.com/", "common")
	require.Equal(t, "https://login.microsoftonline.com/common/oauth2/v2.0/authorize", authorize)
	require.Equal(t, "https://login.microsoftonline.com/common/oauth2/v2.0/token", token)
}

func TestStartBuildsAuthorizationURL(t *testing.T) {
	provider := newFakeProvider(t)
	flow := newTestFlow(t, provider, "")

	attempt, err := flow.Start()
	require.NoError(t, err)
	require.Equal(t, FlowAwaitingCallback, attempt.State())

	parsed, err := url.Parse(attempt.AuthorizationURL)
	require.NoError(t, err)
	query := parsed.Query()
	require.Equal(t, "client-123", query.Get("client_id"))
	require.Equal(t, "code", query.Get("response_type"))
	require.Equal(t, "S256", query.Get("code_challenge_method"))
	require.Equal(t, attempt.PKCE.Challenge, query.Get("code_challenge"))
	require.Equal(t, attempt.PKCE.State, query.Get("state"))
	require.Equal(t, ComputeS256Challenge(attempt.PKCE.Verifier), attempt.PKCE.Challenge)
	require.True(t, attempt.PKCE.ExpiresAt.After(attempt.PKCE.CreatedAt))

	other, err := flow.Start()
	require.NoError(t, err)
	require.NotEqual(t, attempt.PKCE.State, other.PKCE.State)
	require.NotEqual(t, attempt.PKCE.Verifier, other.PKCE.Verifier)
}

func TestCompleteCallbackPublicClient(t *testing.T) {
	provider := newFakeProvider(t)
	provider.idClaims = jwt.MapClaims{"preferred_username": "jua21001@uvg.edu.gt", "name": "Juan"}
	flow := newTestFlow(t, provider, "")
	require.True(t, flow.PublicClient())

	attempt, err := flow.Start()
	require.NoError(t, err)

	result, err := flow.CompleteCallback(context.Background(), attempt, "code-xyz", attempt.PKCE.State)
	require.NoError(t, err)
	require.Equal(t, FlowExchanged, attempt.State())
	require.Equal(t, "access-123", result.AccessToken)
	require.Equal(t, "jua21001@uvg.edu.gt", result.Claims.Email)
	require.Equal(t, "Juan", result.Claims.DisplayName)

	form := provider.lastForm()
	require.Equal(t, "authorization_code", form.Get("grant_type"))
	require.Equal(t, "code-xyz", form.Get("code"))
	require.Equal(t, attempt.PKCE.Verifier, form.Get("code_verifier"))
	require.False(t, form.Has("client_secret"))

	require.NoError(t, attempt.Complete())
	require.Equal(t, FlowCompleted, attempt.State())
}

func TestCompleteCallbackConfidentialClient(t *testing.T) {
	provider := newFakeProvider(t)
	flow := newTestFlow(t, provider, "shh")

	attempt, err := flow.Start()
	require.NoError(t, err)

	_, err = flow.CompleteCallback(context.Background(), attempt, "code-xyz", attempt.PKCE.State)
	require.NoError(t, err)

	form := provider.lastForm()
	require.Equal(t, "shh", form.Get("client_secret"))
	require.Equal(t, attempt.PKCE.Verifier, form.Get("code_verifier"))
}

func TestCompleteCallbackStateMismatch(t *testing.T) {
	provider := newFakeProvider(t)
	flow := newTestFlow(t, provider, "")

	attempt, err := flow.Start()
	require.NoError(t, err)

	_, err = flow.CompleteCallback(context.Background(), attempt, "code-xyz", "forged")
	require.ErrorIs(t, err, ErrStateMismatch)
	require.Equal(t, FlowFailed, attempt.State())
	require.Zero(t, provider.requests())

	// A failed attempt cannot be retried.
	_, err = flow.CompleteCallback(context.Background(), attempt, "code-xyz", attempt.PKCE.State)
	require.ErrorIs(t, err, ErrStateMismatch)
	require.Zero(t, provider.requests())
}

func TestCompleteCallbackExpiredState(t *testing.T) {
	provider := newFakeProvider(t)
	flow := newTestFlow(t, provider, "")

	attempt, err := flow.Start()
	require.NoError(t, err)

	flow.now = func() time.Time { return attempt.PKCE.ExpiresAt.Add(time.Second) }
	_, err = flow.CompleteCallback(context.Background(), attempt, "code-xyz", attempt.PKCE.State)
	require.ErrorIs(t, err, ErrStateMismatch)
	require.Zero(t, provider.requests())
}

func TestCompleteCallbackProviderError(t *testing.T) {
	provider := newFakeProvider(t)
	provider.status = http.StatusBadRequest
	flow := newTestFlow(t, provider, "")

	attempt, err := flow.Start()
	require.NoError(t, err)

	_, err = flow.CompleteCallback(context.Background(), attempt, "code-xyz", attempt.PKCE.State)
	require.ErrorIs(t, err, ErrProviderError)
	require.Equal(t, FlowFailed, attempt.State())
	require.Error(t, attempt.Complete())
}

func TestCompleteCallbackMissingCode(t *testing.T) {
	provider := newFakeProvider(t)
	flow := newTestFlow(t, provider, "")

	attempt, err := flow.Start()
	require.NoError(t, err)

	_, err = flow.CompleteCallback(context.Background(), attempt, " ", attempt.PKCE.State)
	require.ErrorIs(t, err, ErrProviderError)
}

func TestFetchProfileFallsBackToPrincipalName(t *testing.T) {
	provider := newFakeProvider(t)
	provider.profile = map[string]string{"userPrincipalName": "perez@uvg.edu.gt", "displayName": "Ana Perez"}
	flow := newTestFlow(t, provider, "")

	claims, err := flow.FetchProfile(context.Background(), "access-123")
	require.NoError(t, err)
	require.Equal(t, "perez@uvg.edu.gt", claims.Email)
	require.Equal(t, "Ana Perez", claims.DisplayName)

	_, err = flow.FetchProfile(context.Background(), "wrong")
	require.ErrorIs(t, err, ErrProviderError)
}

func TestResumeRestoresAwaitingAttempt(t *testing.T) {
	provider := newFakeProvider(t)
	flow := newTestFlow(t, provider, "")

	attempt, err := flow.Start()
	require.NoError(t, err)

	resumed := flow.Resume(attempt.PKCE)
	require.Equal(t, FlowAwaitingCallback, resumed.State())
	_, err = flow.CompleteCallback(context.Background(), resumed, "code-xyz", attempt.PKCE.State)
	require.NoError(t, err)
}
