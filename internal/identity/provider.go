package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/verte-zerg/codetype/internal/model"
)

// UserStore resolves usernames to stored users.
type UserStore interface {
	EnsureUser(ctx context.Context, username string) (model.User, error)
}

// Provider keeps the current identity in a token file.
type Provider struct {
	issuer    *Issuer
	users     UserStore
	tokenPath string

	mu        sync.Mutex
	current   *Identity
	listeners []func(*Identity)
}

// NewProvider returns a Provider. Call Load to pick up a stored sign-in.
func NewProvider(issuer *Issuer, users UserStore, tokenPath string) *Provider {
	return &Provider{issuer: issuer, users: users, tokenPath: tokenPath}
}

// Load reads the token file. A missing, expired or invalid token leaves the
// provider signed out and is not an error.
func (p *Provider) Load() (*Identity, error) {
	data, err := os.ReadFile(p.tokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			p.set(nil)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	ident, err := p.issuer.Verify(strings.TrimSpace(string(data)))
	if err != nil {
		if errors.Is(err, ErrExpiredToken) || errors.Is(err, ErrInvalidToken) {
			p.set(nil)
			return nil, nil
		}
		return nil, err
	}
	p.set(&ident)
	return p.Current(), nil
}

// SignIn ensures the user exists, issues a token and stores it.
func (p *Provider) SignIn(ctx context.Context, username string) (Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Identity{}, fmt.Errorf("username is required")
	}
	user, err := p.users.EnsureUser(ctx, username)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to ensure user: %w", err)
	}
	token, ident, err := p.issuer.Issue(user.ID, user.Username)
	if err != nil {
		return Identity{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p.tokenPath), 0o700); err != nil {
		return Identity{}, fmt.Errorf("failed to create token dir: %w", err)
	}
	if err := os.WriteFile(p.tokenPath, []byte(token+"\n"), 0o600); err != nil {
		return Identity{}, fmt.Errorf("failed to write token: %w", err)
	}
	p.set(&ident)
	return ident, nil
}

// SignOut removes the stored token.
func (p *Provider) SignOut() error {
	if err := os.Remove(p.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	p.set(nil)
	return nil
}

// Current returns a copy of the signed-in identity, or nil.
func (p *Provider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	ident := *p.current
	return &ident
}

// OnChange registers fn to be called after every sign-in or sign-out.
func (p *Provider) OnChange(fn func(*Identity)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *Provider) set(ident *Identity) {
	p.mu.Lock()
	changed := !sameIdentity(p.current, ident)
	if ident == nil {
		p.current = nil
	} else {
		copied := *ident
		p.current = &copied
	}
	listeners := append([]func(*Identity){}, p.listeners...)
	p.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		if ident == nil {
			fn(nil)
			continue
		}
		copied := *ident
		fn(&copied)
	}
}

func sameIdentity(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UserID == b.UserID
}
