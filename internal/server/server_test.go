package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/verte-zerg/codetype/internal/identity"
	"github.com/verte-zerg/codetype/internal/logging"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/session"
	"github.com/verte-zerg/codetype/internal/store"
)

type testEnv struct {
	store  *store.Store
	issuer *identity.Issuer
	srv    *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "codetype.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	if _, err := st.InsertPrompts(context.Background(), []model.Prompt{
		{Category: "js", Text: "let a = 1;"},
		{Category: "py", Text: "a = 1"},
	}); err != nil {
		t.Fatalf("insert prompts: %v", err)
	}
	issuer, err := identity.NewIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	s := New(Config{AllowedOrigins: []string{"http://app.example"}}, st, st, issuer, logging.Discard())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{store: st, issuer: issuer, srv: srv}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

const testPassword = "hunter2hunter2"

func loginBody(username, password string) string {
	return `{"username":"` + username + `","password":"` + password + `"}`
}

func (e *testEnv) login(t *testing.T, username string) loginResponse {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/login", "", loginBody(username, testPassword))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	var out loginResponse
	decode(t, resp, &out)
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestLoginAndMe(t *testing.T) {
	env := newTestEnv(t)
	login := env.login(t, "alice")
	if login.Token == "" || login.UserID == "" || login.Username != "alice" {
		t.Fatalf("unexpected login response %+v", login)
	}
	again := env.login(t, "alice")
	if again.UserID != login.UserID {
		t.Fatalf("expected stable user id, got %s and %s", login.UserID, again.UserID)
	}

	resp := env.do(t, http.MethodGet, "/api/me", login.Token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status %d", resp.StatusCode)
	}
	var me map[string]any
	decode(t, resp, &me)
	if me["username"] != "alice" {
		t.Fatalf("unexpected me response %v", me)
	}
}

func TestLoginRejectsBlankUsername(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"  "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLoginRequiresPasswordForExistingUser(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "alice")

	cases := map[string]int{
		`{"username":"alice"}`:            http.StatusBadRequest,
		loginBody("alice", "not-the-one"): http.StatusUnauthorized,
	}
	for body, want := range cases {
		resp := env.do(t, http.MethodPost, "/api/auth/login", "", body)
		if resp.StatusCode != want {
			t.Fatalf("%s: expected %d, got %d", body, want, resp.StatusCode)
		}
		var out map[string]any
		decode(t, resp, &out)
		if _, ok := out["token"]; ok {
			t.Fatalf("%s: token issued without valid password", body)
		}
	}
}

func TestLoginRejectsUserWithoutPassword(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.store.EnsureUser(context.Background(), "dave"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	resp := env.do(t, http.MethodPost, "/api/auth/login", "", loginBody("dave", testPassword))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a user without a password, got %d", resp.StatusCode)
	}
}

func TestLoginRejectsShortPassword(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/auth/login", "", loginBody("erin", "short"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	if resp := env.do(t, http.MethodGet, "/api/me", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/me", "garbage", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", resp.StatusCode)
	}
}

func TestPromptsAndCategories(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/prompts?category=Python", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("prompts status %d", resp.StatusCode)
	}
	var list []promptResponse
	decode(t, resp, &list)
	if len(list) != 1 || list[0].Text != "a = 1" || list[0].Category != "py" {
		t.Fatalf("unexpected prompts %+v", list)
	}

	resp = env.do(t, http.MethodGet, "/api/prompts?category=cpp", "", "")
	decode(t, resp, &list)
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}

	resp = env.do(t, http.MethodGet, "/api/categories", "", "")
	var cats []string
	decode(t, resp, &cats)
	if len(cats) != 2 || cats[0] != "js" || cats[1] != "py" {
		t.Fatalf("unexpected categories %v", cats)
	}
}

func TestSessionsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	login := env.login(t, "bob")
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, wpm := range []int{20, 30, 40} {
		rec := model.SessionRecord{
			UserID:          login.UserID,
			WPM:             wpm,
			Accuracy:        90,
			DurationSeconds: 30,
			Category:        "js",
			CompletedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if _, err := env.store.SaveSession(context.Background(), rec); err != nil {
			t.Fatalf("save session: %v", err)
		}
	}
	if _, err := env.store.SaveSession(context.Background(), model.SessionRecord{UserID: "other", WPM: 99, Category: "js"}); err != nil {
		t.Fatalf("save other session: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/api/sessions", login.Token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sessions status %d", resp.StatusCode)
	}
	var out []sessionResponse
	decode(t, resp, &out)
	if len(out) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(out))
	}
	if out[0].WPM != 40 || out[2].WPM != 20 {
		t.Fatalf("expected newest first, got %+v", out)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/auth/login", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "http://app.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://app.example" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/practice"
	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		_ = conn.Close()
		t.Fatalf("expected upgrade to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(session.Event) bool) session.Event {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	for {
		var ev session.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		if match(ev) {
			return ev
		}
	}
}

func TestPracticeWebSocket(t *testing.T) {
	env := newTestEnv(t)
	login := env.login(t, "carol")
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/practice?category=js&duration=30&token=" + login.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	prompt := readUntil(t, conn, func(ev session.Event) bool { return ev.Type == session.EventPrompt })
	if prompt.Prompt != "let a = 1;" || prompt.Category != "js" {
		t.Fatalf("unexpected prompt event %+v", prompt)
	}

	if err := conn.WriteJSON(clientMessage{Type: "key", Key: "l"}); err != nil {
		t.Fatalf("write key: %v", err)
	}
	state := readUntil(t, conn, func(ev session.Event) bool {
		return ev.Type == session.EventState && ev.Status == "inProgress"
	})
	if state.Typed != "l" || state.TotalTyped != 1 || state.Duration != 30 {
		t.Fatalf("unexpected state %+v", state)
	}

	if err := conn.WriteJSON(clientMessage{Type: "settings", Category: "py"}); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	switched := readUntil(t, conn, func(ev session.Event) bool { return ev.Type == session.EventPrompt })
	if switched.Prompt != "a = 1" || switched.Category != "py" {
		t.Fatalf("unexpected prompt after category change %+v", switched)
	}
}
