package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/verte-zerg/codetype/internal/identity"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/prompts"
	"github.com/verte-zerg/codetype/internal/store"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type promptResponse struct {
	ID       int64  `json:"id,omitempty"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

type sessionResponse struct {
	ID              int64     `json:"id"`
	WPM             int       `json:"wpm"`
	Accuracy        float64   `json:"accuracy"`
	TotalTyped      int       `json:"total_typed"`
	TotalErrors     int       `json:"total_errors"`
	DurationSeconds int       `json:"duration_seconds"`
	Category        string    `json:"category"`
	CompletedAt     time.Time `json:"completed_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		Error(w, http.StatusBadRequest, "username is required")
		return
	}
	if req.Password == "" {
		Error(w, http.StatusBadRequest, "password is required")
		return
	}
	user, status, err := s.authenticate(r.Context(), username, req.Password)
	if err != nil {
		if status == http.StatusInternalServerError {
			s.logger.Error("failed to sign in", "error", err)
			Error(w, status, "failed to sign in")
			return
		}
		s.logger.Info("sign in rejected", "username", username, "reason", err)
		Error(w, status, err.Error())
		return
	}
	token, ident, err := s.issuer.Issue(user.ID, user.Username)
	if err != nil {
		s.logger.Error("failed to issue token", "error", err, "user_id", user.ID)
		Error(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	s.logger.Info("user signed in", "user_id", user.ID)
	JSON(w, http.StatusOK, loginResponse{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: ident.ExpiresAt,
	})
}

// authenticate checks the password of an existing user or registers a new
// one. The status is meaningful only when err is set.
func (s *Server) authenticate(ctx context.Context, username, password string) (model.User, int, error) {
	user, hash, err := s.store.Credentials(ctx, username)
	switch {
	case err == nil:
		if err := identity.CheckPassword(hash, password); err != nil {
			return model.User{}, http.StatusUnauthorized, err
		}
		return user, http.StatusOK, nil
	case !errors.Is(err, store.ErrNotFound):
		return model.User{}, http.StatusInternalServerError, err
	}

	hash, err = identity.HashPassword(password)
	if err != nil {
		if errors.Is(err, identity.ErrWeakPassword) {
			return model.User{}, http.StatusBadRequest, err
		}
		return model.User{}, http.StatusInternalServerError, err
	}
	user, err = s.store.CreateUser(ctx, username, hash)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return model.User{}, http.StatusUnauthorized, identity.ErrInvalidCredentials
		}
		return model.User{}, http.StatusInternalServerError, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, http.StatusOK, nil
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ident, _ := identity.FromContext(r.Context())
	user, err := s.store.GetUser(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusUnauthorized, "user not found")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"user_id":    user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
		"expires_at": ident.ExpiresAt,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.Categories(r.Context())
	if err != nil {
		s.logger.Error("failed to list categories", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if len(cats) == 0 {
		cats = prompts.Categories
	}
	JSON(w, http.StatusOK, cats)
}

func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	category := prompts.NormalizeCategory(r.URL.Query().Get("category"))
	if category == "" {
		category = prompts.DefaultCategory
	}
	list, err := s.source.FetchPrompts(r.Context(), category)
	if err != nil {
		s.logger.Error("failed to fetch prompts", "error", err, "category", category)
		Error(w, http.StatusBadGateway, "failed to fetch prompts")
		return
	}
	out := make([]promptResponse, 0, len(list))
	for _, p := range list {
		out = append(out, promptResponse{ID: p.ID, Category: p.Category, Text: p.Text})
	}
	JSON(w, http.StatusOK, out)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	ident, _ := identity.FromContext(r.Context())
	filter := model.HistoryFilter{
		UserID:   ident.UserID,
		Category: prompts.NormalizeCategory(r.URL.Query().Get("category")),
	}
	records, err := s.store.ListSessions(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err, "user_id", ident.UserID)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	out := make([]sessionResponse, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		out = append(out, sessionResponse{
			ID:              rec.ID,
			WPM:             rec.WPM,
			Accuracy:        rec.Accuracy,
			TotalTyped:      rec.TotalTyped,
			TotalErrors:     rec.TotalErrors,
			DurationSeconds: rec.DurationSeconds,
			Category:        rec.Category,
			CompletedAt:     rec.CompletedAt,
		})
	}
	JSON(w, http.StatusOK, out)
}
