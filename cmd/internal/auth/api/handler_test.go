package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"stash/cmd/identity"
	"stash/cmd/internal/auth/session"
)

// fakeStore is an in-memory identity.Store for handler tests.
type fakeStore struct {
	mu      sync.Mutex
	users   map[string]identity.User
	byEmail map[string]string

	getUserErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]identity.User{}, byEmail: map[string]string{}}
}

func (f *fakeStore) CreateUser(_ context.Context, in identity.CreateUserInput) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	norm := identity.NormalizeEmail(in.Email)
	if _, exists := f.byEmail[norm]; exists {
		return identity.User{}, identity.ConflictError{Op: "fakestore.CreateUser", Field: "email"}
	}
	id, err := identity.NewULID(in.Now)
	if err != nil {
		return identity.User{}, err
	}
	avatar := in.AvatarURL
	if avatar == "" {
		avatar = identity.AvatarURL(in.Email)
	}
	u := identity.User{
		ID:           id,
		Email:        in.Email,
		EmailNorm:    norm,
		FullName:     in.FullName,
		AvatarURL:    avatar,
		PasswordHash: in.PasswordHash,
		CreatedAt:    in.Now,
		UpdatedAt:    in.Now,
	}
	f.users[id] = u
	f.byEmail[norm] = id
	return u, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getUserErr != nil {
		return identity.User{}, f.getUserErr
	}
	u, ok := f.users[id]
	if !ok {
		return identity.User{}, identity.NotFoundError{Op: "fakestore.GetUserByID", Resource: "user"}
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byEmail[identity.NormalizeEmail(email)]
	if !ok {
		return identity.User{}, identity.NotFoundError{Op: "fakestore.GetUserByEmail", Resource: "user"}
	}
	return f.users[id], nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, userID string, in identity.UpdateProfileInput) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return identity.User{}, identity.NotFoundError{Op: "fakestore.UpdateProfile", Resource: "user"}
	}
	if in.Email != nil {
		norm := identity.NormalizeEmail(*in.Email)
		if other, exists := f.byEmail[norm]; exists && other != userID {
			return identity.User{}, identity.ConflictError{Op: "fakestore.UpdateProfile", Field: "email"}
		}
		delete(f.byEmail, u.EmailNorm)
		u.Email = *in.Email
		u.EmailNorm = norm
		f.byEmail[norm] = userID
	}
	if in.FullName != nil {
		u.FullName = *in.FullName
	}
	u.UpdatedAt = in.Now
	f.users[userID] = u
	return u, nil
}

func (f *fakeStore) SetRefreshTokenHash(_ context.Context, userID, hashHex string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return identity.NotFoundError{Op: "fakestore.SetRefreshTokenHash", Resource: "user"}
	}
	u.RefreshTokenHash = &hashHex
	u.UpdatedAt = now
	f.users[userID] = u
	return nil
}

func (f *fakeStore) ClearRefreshTokenHash(_ context.Context, userID string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return identity.NotFoundError{Op: "fakestore.ClearRefreshTokenHash", Resource: "user"}
	}
	u.RefreshTokenHash = nil
	u.UpdatedAt = now
	f.users[userID] = u
	return nil
}

func (f *fakeStore) SetPasswordHash(_ context.Context, userID, hashHex string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return identity.NotFoundError{Op: "fakestore.SetPasswordHash", Resource: "user"}
	}
	u.PasswordHash = hashHex
	u.UpdatedAt = now
	f.users[userID] = u
	return nil
}

// ---- test harness ----

func testSessionConfig() session.Config {
	return session.Config{
		Issuer:             "stash-test",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		AccessTokenSecret:  "access-secret-0123456789abcdef0123456789",
		RefreshTokenSecret: "refresh-secret-0123456789abcdef012345678",
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	srv, c, _ := newTestHarness(t)
	return srv, c
}

func newTestHarness(t *testing.T) (*httptest.Server, *http.Client, *fakeStore) {
	t.Helper()
	t.Setenv("STASH_PASSWORD_BCRYPT_COST", "4")

	cfg := testSessionConfig()
	mgr, err := session.NewJWTManager(cfg)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	store := newFakeStore()
	svc := session.NewService(cfg, nil, store, mgr)

	apiCfg := DefaultConfig()
	apiCfg.CookieSecure = false // httptest serves plain HTTP
	h, err := NewHandler(nil, apiCfg, svc)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return srv, &http.Client{Jar: jar}, store
}

type envelopeOut struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func postJSON(t *testing.T, c *http.Client, url string, body any) (*http.Response, envelopeOut) {
	t.Helper()
	return doJSON(t, c, http.MethodPost, url, body)
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any) (*http.Response, envelopeOut) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelopeOut
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func mustRegister(t *testing.T, c *http.Client, base, fullName, email, password string) {
	t.Helper()
	resp, env := postJSON(t, c, base+BasePath+"/register", registerRequest{
		FullName: fullName, Email: email, Password: password,
	})
	if resp.StatusCode != http.StatusCreated || !env.Success {
		t.Fatalf("register: status %d, envelope %+v", resp.StatusCode, env)
	}
}

// ---- tests ----

func TestRegister_EnvelopeAndConflict(t *testing.T) {
	srv, c := newTestServer(t)

	resp, env := postJSON(t, c, srv.URL+BasePath+"/register", registerRequest{
		FullName: "Alice", Email: "alice@x.com", Password: "Secret123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if !env.Success || env.StatusCode != http.StatusCreated {
		t.Fatalf("envelope: %+v", env)
	}
	if strings.Contains(string(env.Data), "password") || strings.Contains(string(env.Data), "refreshToken") {
		t.Fatalf("profile payload must not carry secret fields: %s", env.Data)
	}
	var p identity.Profile
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p.ID == "" || p.Email != "alice@x.com" || p.AvatarURL == "" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	// Registration issues no cookies.
	if len(resp.Cookies()) != 0 {
		t.Fatalf("register must not set cookies, got %v", resp.Cookies())
	}

	// Same email, different case.
	resp, env = postJSON(t, c, srv.URL+BasePath+"/register", registerRequest{
		FullName: "Alice Again", Email: "ALICE@X.COM", Password: "Other123",
	})
	if resp.StatusCode != http.StatusConflict || env.Success {
		t.Fatalf("duplicate register: status %d, envelope %+v", resp.StatusCode, env)
	}
	if env.Data != nil && string(env.Data) != "null" {
		t.Fatalf("error envelope data must be null, got %s", env.Data)
	}
}

func TestErrorEnvelopeCarriesErrorsList(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+BasePath+"/register", "application/json",
		strings.NewReader(`{"fullName":"","email":"a@x.com","password":"pw"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	errsField, ok := raw["errors"]
	if !ok {
		t.Fatalf("failure envelope must carry an errors field: %v", raw)
	}
	var errs []string
	if err := json.Unmarshal(errsField, &errs); err != nil || errs == nil {
		t.Fatalf("errors must be a list, got %s", errsField)
	}
	if string(raw["data"]) != "null" {
		t.Fatalf("failure envelope data must be null, got %s", raw["data"])
	}
}

func TestRegister_Validation(t *testing.T) {
	srv, c := newTestServer(t)

	for _, req := range []registerRequest{
		{FullName: "", Email: "a@x.com", Password: "pw"},
		{FullName: "Alice", Email: "bad-email", Password: "pw"},
		{FullName: "Alice", Email: "a@x.com", Password: ""},
		{FullName: "Alice", Email: "a@x.com", Password: strings.Repeat("a", 73)},
	} {
		resp, env := postJSON(t, c, srv.URL+BasePath+"/register", req)
		if resp.StatusCode != http.StatusBadRequest || env.Success {
			t.Fatalf("register %+v: status %d, envelope %+v", req, resp.StatusCode, env)
		}
	}
}

func TestLogin_SetsCookiesAndBodyTokens(t *testing.T) {
	srv, c := newTestServer(t)
	mustRegister(t, c, srv.URL, "Alice", "alice@x.com", "Secret123")

	resp, env := postJSON(t, c, srv.URL+BasePath+"/login", loginRequest{
		Email: "alice@x.com", Password: "Secret123",
	})
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("login: status %d, envelope %+v", resp.StatusCode, env)
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode login data: %v", err)
	}
	if data.AccessToken == "" || data.RefreshToken == "" {
		t.Fatalf("login body must carry both tokens")
	}

	var haveAccess, haveRefresh bool
	for _, ck := range resp.Cookies() {
		switch ck.Name {
		case "accessToken":
			haveAccess = ck.HttpOnly && ck.Value == data.AccessToken
		case "refreshToken":
			haveRefresh = ck.HttpOnly && ck.Value == data.RefreshToken
		}
	}
	if !haveAccess || !haveRefresh {
		t.Fatalf("expected HttpOnly accessToken and refreshToken cookies matching the body")
	}
}

func TestLogin_NoCredentialOracle(t *testing.T) {
	srv, c := newTestServer(t)
	mustRegister(t, c, srv.URL, "Alice", "alice@x.com", "Secret123")

	respWrongPw, envWrongPw := postJSON(t, c, srv.URL+BasePath+"/login", loginRequest{Email: "alice@x.com", Password: "nope"})
	respNoUser, envNoUser := postJSON(t, c, srv.URL+BasePath+"/login", loginRequest{Email: "nobody@x.com", Password: "nope"})

	if respWrongPw.StatusCode != http.StatusBadRequest || respNoUser.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: %d vs %d, want both 400", respWrongPw.StatusCode, respNoUser.StatusCode)
	}
	if envWrongPw.Message != envNoUser.Message {
		t.Fatalf("responses must be indistinguishable: %q vs %q", envWrongPw.Message, envNoUser.Message)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	srv, c := newTestServer(t)

	resp, _ := postJSON(t, c, srv.URL+BasePath+"/login", loginRequest{Email: "", Password: ""})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthenticatedFlow_CookieAndLogout(t *testing.T) {
	srv, c := newTestServer(t)
	mustRegister(t, c, srv.URL, "Alice", "alice@x.com", "Secret123")

	if resp, _ := postJSON(t, c, srv.URL+BasePath+"/login", loginRequest{Email: "alice@x.com", Password: "Secret123"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	// The cookie jar now carries the access token.
	resp, env := doJSON(t, c, http.MethodGet, srv.URL+BasePath+"/me", nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("me: status %d, envelope %+v", resp.StatusCode, env)
	}
	var p identity.Profile
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p.Email != "alice@x.com" {
		t.Fatalf("me returned wrong user: %+v", p)
	}

	resp, _ = postJSON(t, c, srv.URL+BasePath+"/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: status %d", resp.StatusCode)
	}
	for _, ck := range resp.Cookies() {
		if (ck.Name == "accessToken" || ck.Name == "refreshToken") && ck.MaxAge >= 0 && ck.Value != "" {
			t.Fatalf("logout must expire cookie %s", ck.Name)
		}
	}

	// The jar dropped the expired cookies, so the next call is anonymous.
	resp, _ = doJSON(t, c, http.MethodGet, srv.URL+BasePath+"/me", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout: status %d, want 401", resp.StatusCode)
	}
}

func TestBearerTransportWithoutCookies(t *testing.T) {
	srv, c := newTestServer(t)
	mustRegister(t, c, srv.URL, "Alice", "alice@x.com", "Secret123")

	_, env := postJSON(t, c, srv.URL+BasePath+"/login", loginRequest{Email: "alice@x.com", Password: "Secret123"})
	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode login data: %v", err)
	}

	// A jar-less client with only the Authorization header.
	req, err := http.NewRequest(http.MethodGet, srv.URL+BasePath+"/me", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+data.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bearer me: status %d, want 200", resp.StatusCode)
	}

	// A refresh token in the Authorization slot must not pass.
	req, _ = http.NewRequest(http.MethodGet, srv.URL+BasePath+"/me", nil)
	req.Header.Set("Authorization", "Bearer "+data.RefreshToken)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh token as bearer: status %d, want 401", resp2.StatusCode)
	}
}

func TestRefresh_CookieRotationAndReuse(t *testing.T) {
	srv, c := newTestServer(t)
	mustRegister(t, c, srv.URL, "Alice", "alice@x.com", "Secret123")

	_, env := postJSON(t, c, srv.URL+BasePath+"/login", loginRequest{Email: "alice@x.com", Password: "Secret123"})
	var first loginData
	if err := json.Unmarshal(env.Data, &first); err != nil {
		t.Fatalf("decode login data: %v", err)
	}

	// JWT issue times are second-granular; a later now produces a new token.
	time.Sleep(1100 * time.Millisecond)

	// Cookie-only refresh: empty body, token from the jar.
	resp, env := postJSON(t, c, srv.URL+BasePath+"/refresh-token", nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("refresh: status %d, envelope %+v", resp.StatusCode, env)
	}
	var second loginData
	if err := json.Unmarshal(env.Data, &second); err != nil {
		t.Fatalf("decode refresh data: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh must rotate the refresh token")
	}

	// The superseded token is dead, body transport this time.
	resp, _ = postJSON(t, &http.Client{}, srv.URL+BasePath+"/refresh-token", refreshRequest{RefreshToken: first.RefreshToken})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("stale refresh: status %d, want 401", resp.StatusCode)
	}

	// The live token still rotates.
	resp, _ = postJSON(t, &http.Client{}, srv.URL+BasePath+"/refresh-token", refreshRequest{RefreshToken: second.RefreshToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("live refresh: status %d, want 200", resp.StatusCode)
	}
}

func TestRefresh_CookieWinsOverBody(t *testing.T) {
	srv, c := newTestServer(t)
	mustRegister(t, c, srv.URL, "Alice", "alice@x.com", "Secret123")
	if resp, _ := postJSON(t, c, srv.URL+BasePath+"/login", loginRequest{Email: "alice@x.com", Password: "Secret123"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	// The jar holds a live refresh cookie; a garbage body token must not
	// shadow it.
	resp, env := postJSON(t, c, srv.URL+BasePath+"/refresh-token", refreshRequest{RefreshToken: "garbage"})
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("cookie-backed refresh: status %d, envelope %+v", resp.StatusCode, env)
	}
}

func TestRefresh_Rejections(t *testing.T) {
	srv, c := newTestServer(t)
	mustRegister(t, c, srv.URL, "Alice", "alice@x.com", "Secret123")

	// No token anywhere.
	resp, _ := postJSON(t, &http.Client{}, srv.URL+BasePath+"/refresh-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d, want 401", resp.StatusCode)
	}

	// An access token is the wrong kind.
	_, env := postJSON(t, c, srv.URL+BasePath+"/login", loginRequest{Email: "alice@x.com", Password: "Secret123"})
	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode login data: %v", err)
	}
	resp, _ = postJSON(t, &http.Client{}, srv.URL+BasePath+"/refresh-token", refreshRequest{RefreshToken: data.AccessToken})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong-kind token: status %d, want 401", resp.StatusCode)
	}
}

func TestAuthenticate_StoreFaultIsNotUnauthorized(t *testing.T) {
	srv, c, store := newTestHarness(t)
	mustRegister(t, c, srv.URL, "Alice", "alice@x.com", "Secret123")
	if resp, _ := postJSON(t, c, srv.URL+BasePath+"/login", loginRequest{Email: "alice@x.com", Password: "Secret123"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	store.mu.Lock()
	store.getUserErr = errors.New("connection pool exhausted")
	store.mu.Unlock()

	// Valid token, broken store: the caller did nothing wrong.
	resp, env := doJSON(t, c, http.MethodGet, srv.URL+BasePath+"/me", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("me with failing store: status %d, want 500", resp.StatusCode)
	}
	if env.Success {
		t.Fatalf("failure envelope expected, got %+v", env)
	}
}

func TestChangePassword_Endpoint(t *testing.T) {
	srv, c := newTestServer(t)
	mustRegister(t, c, srv.URL, "Alice", "alice@x.com", "Secret123")
	if resp, _ := postJSON(t, c, srv.URL+BasePath+"/login", loginRequest{Email: "alice@x.com", Password: "Secret123"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	resp, _ := postJSON(t, c, srv.URL+BasePath+"/change-password", changePasswordRequest{
		OldPassword: "Secret123", NewPassword: "NewPass1", ConfirmPassword: "Mismatch",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("mismatch: status %d, want 400", resp.StatusCode)
	}

	resp, _ = postJSON(t, c, srv.URL+BasePath+"/change-password", changePasswordRequest{
		OldPassword: "WrongOld", NewPassword: "NewPass1", ConfirmPassword: "NewPass1",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("wrong old password: status %d, want 400", resp.StatusCode)
	}

	resp, _ = postJSON(t, c, srv.URL+BasePath+"/change-password", changePasswordRequest{
		OldPassword: "Secret123", NewPassword: "NewPass1", ConfirmPassword: "NewPass1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change password: status %d, want 200", resp.StatusCode)
	}

	// The new password is live immediately.
	resp, _ = postJSON(t, &http.Client{}, srv.URL+BasePath+"/login", loginRequest{Email: "alice@x.com", Password: "NewPass1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login with new password: status %d, want 200", resp.StatusCode)
	}
}

func TestUpdateProfile_Endpoint(t *testing.T) {
	srv, c := newTestServer(t)
	mustRegister(t, c, srv.URL, "Alice", "alice@x.com", "Secret123")
	mustRegister(t, c, srv.URL, "Bob", "bob@x.com", "Secret123")
	if resp, _ := postJSON(t, c, srv.URL+BasePath+"/login", loginRequest{Email: "alice@x.com", Password: "Secret123"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	// No fields.
	resp, _ := doJSON(t, c, http.MethodPatch, srv.URL+BasePath+"/profile", updateProfileRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty patch: status %d, want 400", resp.StatusCode)
	}

	// Taken email.
	taken := "bob@x.com"
	resp, _ = doJSON(t, c, http.MethodPatch, srv.URL+BasePath+"/profile", updateProfileRequest{Email: &taken})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("taken email: status %d, want 409", resp.StatusCode)
	}

	name := "Alice Cooper"
	resp, env := doJSON(t, c, http.MethodPatch, srv.URL+BasePath+"/profile", updateProfileRequest{FullName: &name})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: status %d, want 200", resp.StatusCode)
	}
	var p identity.Profile
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p.FullName != "Alice Cooper" || p.Email != "alice@x.com" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestBodyLimitAndUnknownFields(t *testing.T) {
	srv, _ := newTestServer(t)

	// Over the 16 KiB cap.
	big := fmt.Sprintf(`{"fullName":%q,"email":"a@x.com","password":"pw"}`, strings.Repeat("A", 32<<10))
	resp, err := http.Post(srv.URL+BasePath+"/register", "application/json", strings.NewReader(big))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversized body: status %d, want 400", resp.StatusCode)
	}

	resp2, err := http.Post(srv.URL+BasePath+"/register", "application/json",
		strings.NewReader(`{"fullName":"A","email":"a@x.com","password":"pw","admin":true}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field: status %d, want 400", resp2.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, c := newTestServer(t)

	resp, err := c.Get(srv.URL + BasePath + "/register")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET register: status %d, want 405", resp.StatusCode)
	}
}
