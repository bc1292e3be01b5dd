package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/codetype/internal/model"
)

type fakeUsers struct {
	calls int
}

func (f *fakeUsers) EnsureUser(_ context.Context, username string) (model.User, error) {
	f.calls++
	return model.User{ID: "id-" + username, Username: username}, nil
}

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return issuer
}

func TestIssueAndVerify(t *testing.T) {
	issuer := newTestIssuer(t)
	token, issued, err := issuer.Issue("u1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.UserID != "u1" || got.Username != "alice" {
		t.Fatalf("unexpected identity %+v", got)
	}
	if !got.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Fatalf("expiry mismatch %v vs %v", got.ExpiresAt, issued.ExpiresAt)
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	issuer := newTestIssuer(t)
	token, _, err := issuer.Issue("u1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, err := NewIssuer([]byte("other"), time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := issuer.Verify("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	issuer := newTestIssuer(t)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := issuer.Issue("u1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	issuer.now = time.Now
	if _, err := issuer.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestProviderSignInOut(t *testing.T) {
	issuer := newTestIssuer(t)
	users := &fakeUsers{}
	path := filepath.Join(t.TempDir(), "token")
	provider := NewProvider(issuer, users, path)

	ident, err := provider.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ident != nil {
		t.Fatalf("expected no identity before sign in")
	}

	var changes []*Identity
	provider.OnChange(func(i *Identity) {
		changes = append(changes, i)
	})

	signed, err := provider.SignIn(context.Background(), " bob ")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if signed.UserID != "id-bob" || users.calls != 1 {
		t.Fatalf("unexpected sign in %+v calls=%d", signed, users.calls)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat token: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected token mode 0600, got %v", info.Mode().Perm())
	}

	reloaded := NewProvider(issuer, users, path)
	got, err := reloaded.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got == nil || got.Username != "bob" {
		t.Fatalf("expected stored identity, got %+v", got)
	}

	if err := provider.SignOut(); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if provider.Current() != nil {
		t.Fatalf("expected signed out")
	}
	if len(changes) != 2 || changes[0] == nil || changes[1] != nil {
		t.Fatalf("unexpected change notifications %v", changes)
	}
	if _, err := provider.SignIn(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty username")
	}
}

func TestProviderLoadInvalidTokenIsSignedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("not-a-token"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	provider := NewProvider(newTestIssuer(t), &fakeUsers{}, path)
	ident, err := provider.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ident != nil {
		t.Fatalf("expected nil identity for invalid token")
	}
}

func TestLoadOrCreateSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")
	first, err := LoadOrCreateSecret("", path)
	if err != nil {
		t.Fatalf("create secret: %v", err)
	}
	second, err := LoadOrCreateSecret("", path)
	if err != nil {
		t.Fatalf("load secret: %v", err)
	}
	if string(first) != string(second) || len(first) != 2*secretBytes {
		t.Fatalf("expected persisted secret, got %q and %q", first, second)
	}
	configured, err := LoadOrCreateSecret(" explicit ", path)
	if err != nil {
		t.Fatalf("configured secret: %v", err)
	}
	if string(configured) != "explicit" {
		t.Fatalf("expected configured secret, got %q", configured)
	}
}

func TestMiddleware(t *testing.T) {
	issuer := newTestIssuer(t)
	token, _, err := issuer.Issue("u1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	var seen Identity
	var ok bool
	handler := Middleware(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, ok = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !ok || seen.UserID != "u1" {
		t.Fatalf("expected identity from header, got %+v ok=%v", seen, ok)
	}

	ok = false
	req = httptest.NewRequest(http.MethodGet, "/ws/practice?token="+token, nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !ok {
		t.Fatalf("expected identity from query token")
	}

	ok = false
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer bad")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if ok {
		t.Fatalf("expected anonymous request for bad token")
	}
}

func TestRequireIdentity(t *testing.T) {
	handler := RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u1"}))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("expected a hash, got the password")
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	for _, wrong := range []string{"", "correct horsE"} {
		if err := CheckPassword(hash, wrong); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("password %q: expected ErrInvalidCredentials, got %v", wrong, err)
		}
	}
	if err := CheckPassword("", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected empty hash to never match, got %v", err)
	}
}
