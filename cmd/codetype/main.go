// Package main provides the CLI entrypoint for codetype.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/codetype/internal/config"
	"github.com/verte-zerg/codetype/internal/engine"
	"github.com/verte-zerg/codetype/internal/identity"
	"github.com/verte-zerg/codetype/internal/logging"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/prompts"
	"github.com/verte-zerg/codetype/internal/session"
	"github.com/verte-zerg/codetype/internal/store"
	"github.com/verte-zerg/codetype/internal/tui"
)

const (
	defaultDuration    = engine.DefaultDuration
	defaultCurveWindow = 10
	defaultAddr        = ":8080"
)

var (
	practiceDuration int
	practiceCategory string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "codetype",
		Short:         "Code typing practice",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().IntVar(&practiceDuration, "duration", defaultDuration, "test duration in seconds")
	rootCmd.Flags().StringVar(&practiceCategory, "category", prompts.DefaultCategory, "prompt category (js, py, cpp, html)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCategoriesCmd())
	rootCmd.AddCommand(newPromptsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "duration", &practiceDuration, fileCfg.Practice.Duration)
	applyStringConfig(cmd, "category", &practiceCategory, fileCfg.Practice.Category)

	cfg := model.Config{
		Duration: practiceDuration,
		Category: prompts.NormalizeCategory(practiceCategory),
	}
	if cfg.Duration < 1 {
		logErrf("ignoring duration %d, using %d\n", cfg.Duration, defaultDuration)
		cfg.Duration = defaultDuration
	}
	if cfg.Category == "" {
		cfg.Category = prompts.DefaultCategory
	}

	logger, logCloser, err := logging.OpenFile(config.DefaultLogPath(), slog.LevelInfo)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer closeQuietly(logCloser)

	st, err := openStore(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	defer closeQuietly(st)

	provider, err := newProvider(fileCfg, st)
	if err != nil {
		return err
	}
	provider.OnChange(func(ident *identity.Identity) {
		if ident == nil {
			logger.Info("signed out")
			return
		}
		logger.Info("signed in", "user_id", ident.UserID, "username", ident.Username)
	})
	if _, err := provider.Load(); err != nil {
		logger.Warn("failed to load identity", "error", err)
	}

	source, closeSource, err := openPromptSource(cmd.Context(), fileCfg, st)
	if err != nil {
		return err
	}
	defer closeSource()

	m := tui.NewModel(tui.Options{
		Config:     cfg,
		Source:     source,
		History:    st,
		Recorder:   session.NewRecorder(st, logger),
		Auth:       provider,
		Categories: knownCategories(cmd.Context(), st),
		Logger:     logger,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// loadConfig reads the config file and applies CODETYPE_* overrides.
func loadConfig() (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	env, err := config.LoadEnv()
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to read environment: %w", err)
	}
	env.Apply(&fileCfg)
	return fileCfg, nil
}

// openStore opens the database and seeds the built-in prompts into an
// empty prompt table.
func openStore(ctx context.Context, fileCfg config.FileConfig) (*store.Store, error) {
	path := config.DefaultDBPath()
	if v := stringValue(fileCfg.DBPath); v != "" {
		path = v
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := ensureSeeded(ctx, st); err != nil {
		closeQuietly(st)
		return nil, err
	}
	return st, nil
}

func ensureSeeded(ctx context.Context, st *store.Store) error {
	count, err := st.CountPrompts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count prompts: %w", err)
	}
	if count > 0 {
		return nil
	}
	_, err = seedDefaults(ctx, st)
	return err
}

func seedDefaults(ctx context.Context, st *store.Store) (int, error) {
	defaults, err := prompts.Defaults()
	if err != nil {
		return 0, fmt.Errorf("failed to load built-in prompts: %w", err)
	}
	n, err := st.InsertPrompts(ctx, defaults)
	if err != nil {
		return 0, fmt.Errorf("failed to seed prompts: %w", err)
	}
	return n, nil
}

func newIssuer(fileCfg config.FileConfig) (*identity.Issuer, error) {
	secret, err := identity.LoadOrCreateSecret(stringValue(fileCfg.Auth.Secret), config.DefaultSecretPath())
	if err != nil {
		return nil, err
	}
	ttl := identity.DefaultTokenTTL
	if v := stringValue(fileCfg.Auth.TokenTTL); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			logErrf("ignoring invalid token-ttl %q\n", v)
		} else {
			ttl = parsed
		}
	}
	issuer, err := identity.NewIssuer(secret, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	return issuer, nil
}

func newProvider(fileCfg config.FileConfig, st *store.Store) (*identity.Provider, error) {
	issuer, err := newIssuer(fileCfg)
	if err != nil {
		return nil, err
	}
	return identity.NewProvider(issuer, st, config.DefaultTokenPath()), nil
}

// openPromptSource returns the MongoDB source when configured, otherwise
// the local store.
func openPromptSource(ctx context.Context, fileCfg config.FileConfig, st *store.Store) (prompts.Source, func(), error) {
	if !strings.EqualFold(stringValue(fileCfg.Prompts.Source), "mongo") {
		return st, func() {}, nil
	}
	src, err := prompts.OpenMongo(ctx, prompts.MongoConfig{
		URI:        stringValue(fileCfg.Prompts.MongoURI),
		Database:   stringValue(fileCfg.Prompts.MongoDatabase),
		Collection: stringValue(fileCfg.Prompts.MongoCollection),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := src.Close(ctx); err != nil {
			logErrf("failed to close mongo: %v\n", err)
		}
	}
	return src, closeFn, nil
}

// knownCategories lists the built-in categories first, followed by any
// imported ones.
func knownCategories(ctx context.Context, st *store.Store) []string {
	result := append([]string(nil), prompts.Categories...)
	stored, err := st.Categories(ctx)
	if err != nil {
		return result
	}
	var extra []string
	for _, c := range stored {
		if !prompts.IsKnownCategory(c) {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(result, extra...)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# codetype configuration
# Uncomment a value to enable it. CLI flags and CODETYPE_* variables override config values.

# db-path = "%s"

[practice]
# duration = %d            # Test duration in seconds
# category = %q          # js, py, cpp or html

[server]
# addr = %q
# allowed-origins = ["http://localhost:3000"]

[auth]
# secret = ""              # Token signing secret (generated when empty)
# token-ttl = "720h"       # Session token lifetime

[prompts]
# source = "local"         # local or mongo
# mongo-uri = "mongodb://localhost:27017"
# mongo-database = "codetype"
# mongo-collection = "prompts"
`,
		config.DefaultDBPath(),
		defaultDuration,
		prompts.DefaultCategory,
		defaultAddr,
	)
}

type closer interface {
	Close() error
}

func closeQuietly(c closer) {
	if err := c.Close(); err != nil {
		logErrf("failed to close: %v\n", err)
	}
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
