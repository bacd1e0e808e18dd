package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskmanager.org/internal/auth"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
	store   *auth.MemoryStore
}

func newTestAPI(t *testing.T) *apiClient {
	return newTestAPIWithLimiter(t, NewLoginRateLimiter(1000, 1000))
}

func newTestAPIWithLimiter(t *testing.T, limiter *LoginRateLimiter) *apiClient {
	t.Helper()

	ctx := context.Background()
	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
	store := auth.NewMemoryStore()
	if _, err := auth.Bootstrap(ctx, store, hasher, "admin@mail.com", "admin#pass1"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	hash, err := hasher.Hash("user#pass1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := store.Create(ctx, &auth.Account{Subject: "user@mail.com", PasswordHash: hash, Roles: []string{auth.RoleUser}}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	codec, err := auth.NewCodec(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	api := New(Options{
		Version: "test",
		Service: auth.NewService(store, hasher, codec),
		Authenticator: auth.NewAuthenticator(codec, store, auth.AuthenticatorConfig{
			APIPrefix:    "/api/",
			SkipPrefixes: []string{"/v3/api-docs", "/swagger-ui", "/webjars/"},
		}),
		Registrar: auth.NewRegistrar(store, hasher),
		Limiter:   limiter,
	})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
		store:   store,
	}
}

func (c *apiClient) do(method, path string, body []byte, headers map[string]string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		c.t.Fatalf("marshal body: %v", err)
	}
	return c.do(http.MethodPost, path, payload, headers)
}

func (c *apiClient) get(path string, headers map[string]string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodGet, path, nil, headers)
}

func (c *apiClient) login(email, password string) string {
	c.t.Helper()
	resp := c.post("/api/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.t.Fatalf("unexpected login status: %d", resp.StatusCode)
	}
	payload := decode[loginResponse](c.t, resp)
	if payload.Token == "" {
		c.t.Fatalf("empty token issued")
	}
	return payload.Token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestLoginIssuesToken(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/auth/login", map[string]any{
		"email":    "user@mail.com",
		"password": "user#pass1",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	payload := decode[map[string]any](t, resp)
	if payload["token"] == "" {
		t.Fatal("missing token")
	}
	if payload["expiresIn"] != float64(3600000) {
		t.Fatalf("unexpected expiresIn: %v", payload["expiresIn"])
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	api := newTestAPI(t)

	wrong := api.post("/api/auth/login", map[string]any{"email": "user@mail.com", "password": "nope"}, nil)
	unknown := api.post("/api/auth/login", map[string]any{"email": "ghost@mail.com", "password": "nope"}, nil)
	if wrong.StatusCode != http.StatusUnauthorized || unknown.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401s, got %d and %d", wrong.StatusCode, unknown.StatusCode)
	}
	a := decode[map[string]any](t, wrong)
	b := decode[map[string]any](t, unknown)
	if a["error"] != "invalid login credentials" || a["error"] != b["error"] {
		t.Fatalf("login failures differ: %v vs %v", a, b)
	}
}

func TestLoginValidation(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodPost, "/api/auth/login", []byte(`{"email":`), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for broken json, got %d", resp.StatusCode)
	}

	resp = api.do(http.MethodPost, "/api/auth/login", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", resp.StatusCode)
	}

	resp = api.get("/api/auth/login", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Allow") != http.MethodPost {
		t.Fatalf("unexpected Allow header: %q", resp.Header.Get("Allow"))
	}
}

func TestTokenGrantsRoleGatedAccess(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("user@mail.com", "user#pass1")

	resp := api.get("/api/me", bearer(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	me := decode[accountResponse](t, resp)
	if me.Email != "user@mail.com" {
		t.Fatalf("unexpected subject: %q", me.Email)
	}
	if len(me.Roles) != 1 || me.Roles[0] != auth.RoleUser {
		t.Fatalf("unexpected roles: %v", me.Roles)
	}

	resp = api.get("/api/admin/ping", bearer(token))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for user on admin route, got %d", resp.StatusCode)
	}

	admin := api.login("admin@mail.com", "admin#pass1")
	resp = api.get("/api/admin/ping", bearer(admin))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", resp.StatusCode)
	}
	ping := decode[map[string]any](t, resp)
	if ping["subject"] != "admin@mail.com" {
		t.Fatalf("unexpected ping payload: %v", ping)
	}
}

func TestMissingAndInvalidTokensBehaveAlike(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("user@mail.com", "user#pass1")
	tampered := []byte(token)
	i := len(tampered) - 5
	if tampered[i] == 'A' {
		tampered[i] = 'B'
	} else {
		tampered[i] = 'A'
	}

	expired, err := auth.NewCodec(testSecret, -time.Second)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	stale, err := expired.Issue("user@mail.com", []string{auth.RoleUser}, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cases := map[string]map[string]string{
		"missing":   nil,
		"scheme":    {"Authorization": "Token " + token},
		"malformed": bearer("abc.def"),
		"tampered":  bearer(string(tampered)),
		"expired":   bearer(stale),
	}
	for name, headers := range cases {
		resp := api.get("/api/me", headers)
		if resp.StatusCode != http.StatusForbidden {
			resp.Body.Close()
			t.Fatalf("%s: expected 403, got %d", name, resp.StatusCode)
		}
		if got := resp.Header.Get("WWW-Authenticate"); got == "" {
			t.Fatalf("%s: expected WWW-Authenticate header", name)
		}
		body := decode[map[string]any](t, resp)
		if body["error"] != "access denied" {
			t.Fatalf("%s: unexpected body: %v", name, body)
		}
		if len(body) != 2 {
			t.Fatalf("%s: unexpected fields in body: %v", name, body)
		}
	}
}

func TestSkippedPathsBypassGate(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/swagger-ui/index.html", bearer("garbage"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unrouted public path, got %d", resp.StatusCode)
	}

	resp = api.get("/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected healthz status: %d", resp.StatusCode)
	}
	health := decode[map[string]any](t, resp)
	if health["status"] != "ok" || health["version"] != "test" {
		t.Fatalf("unexpected healthz payload: %v", health)
	}

	resp = api.get("/readyz", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected readyz status: %d", resp.StatusCode)
	}
}

func TestRegisterThenLogin(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/auth/register", map[string]any{
		"email":    "New@Mail.com",
		"password": "n3w!password",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	created := decode[accountResponse](t, resp)
	if created.Email != "new@mail.com" || created.ID == "" {
		t.Fatalf("unexpected account: %+v", created)
	}

	token := api.login("new@mail.com", "n3w!password")
	resp = api.get("/api/me", bearer(token))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = api.post("/api/auth/register", map[string]any{
		"email":    "new@mail.com",
		"password": "an0ther!pass",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	for _, password := range []string{"weak", "Abcdef1!" + strings.Repeat("x", 88)} {
		resp = api.post("/api/auth/register", map[string]any{
			"email":    "weak@mail.com",
			"password": password,
		}, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("password of %d bytes: expected 400, got %d", len(password), resp.StatusCode)
		}
	}
}

func TestLoginRateLimited(t *testing.T) {
	api := newTestAPIWithLimiter(t, NewLoginRateLimiter(0.001, 2))

	for i := 0; i < 2; i++ {
		resp := api.post("/api/auth/login", map[string]any{"email": "user@mail.com", "password": "nope"}, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, resp.StatusCode)
		}
	}
	resp := api.post("/api/auth/login", map[string]any{"email": "user@mail.com", "password": "user#pass1"}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
}
