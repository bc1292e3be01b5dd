package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/codetype/internal/config"
	"github.com/verte-zerg/codetype/internal/identity"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/prompts"
)

func TestDefaultConfigTemplateIsValidTOML(t *testing.T) {
	var cfg config.FileConfig
	if _, err := toml.Decode(defaultConfigTemplate(), &cfg); err != nil {
		t.Fatalf("decode template: %v", err)
	}
	if cfg.Practice.Duration != nil || cfg.Server.Addr != nil {
		t.Fatalf("expected commented template to leave values unset, got %+v", cfg)
	}
}

func TestApplyIntConfigRespectsFlags(t *testing.T) {
	cmd := newRootCmd()
	value := 120
	target := defaultDuration
	applyIntConfig(cmd, "duration", &target, &value)
	if target != 120 {
		t.Fatalf("expected config value applied, got %d", target)
	}

	if err := cmd.Flags().Set("duration", "15"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	target = 15
	applyIntConfig(cmd, "duration", &target, &value)
	if target != 15 {
		t.Fatalf("expected flag to win, got %d", target)
	}
}

func TestOpenStoreSeedsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codetype.db")
	cfg := config.FileConfig{DBPath: &path}
	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	first, err := st.CountPrompts(ctx)
	if err != nil {
		t.Fatalf("count prompts: %v", err)
	}
	if first == 0 {
		t.Fatalf("expected built-in prompts to be seeded")
	}
	closeQuietly(st)

	st, err = openStore(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer closeQuietly(st)
	second, err := st.CountPrompts(ctx)
	if err != nil {
		t.Fatalf("count prompts: %v", err)
	}
	if second != first {
		t.Fatalf("expected %d prompts after reopen, got %d", first, second)
	}
}

func TestKnownCategoriesAppendsImported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codetype.db")
	ctx := context.Background()
	st, err := openStore(ctx, config.FileConfig{DBPath: &path})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer closeQuietly(st)

	if _, err := st.InsertPrompts(ctx, []model.Prompt{{Category: "go", Text: "x := 1"}}); err != nil {
		t.Fatalf("insert prompts: %v", err)
	}
	cats := knownCategories(ctx, st)
	if len(cats) != len(prompts.Categories)+1 {
		t.Fatalf("unexpected categories %v", cats)
	}
	if cats[0] != prompts.Categories[0] || cats[len(cats)-1] != "go" {
		t.Fatalf("expected built-ins first and go last, got %v", cats)
	}
}

func TestSetPasswordFromStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codetype.db")
	ctx := context.Background()
	st, err := openStore(ctx, config.FileConfig{DBPath: &path})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer closeQuietly(st)
	user, err := st.EnsureUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	password, err := readPassword(strings.NewReader("open sesame\r\nignored\n"), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("read password: %v", err)
	}
	if password != "open sesame" {
		t.Fatalf("unexpected password %q", password)
	}
	if err := setPassword(ctx, st, user.ID, "short"); !errors.Is(err, identity.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := setPassword(ctx, st, user.ID, password); err != nil {
		t.Fatalf("set password: %v", err)
	}
	_, hash, err := st.Credentials(ctx, "alice")
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if err := identity.CheckPassword(hash, "open sesame"); err != nil {
		t.Fatalf("expected stored password to match: %v", err)
	}
}
