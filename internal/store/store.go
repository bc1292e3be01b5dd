// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/codetype/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("user already exists")
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for users, prompts and sessions.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS prompts (
			id INTEGER PRIMARY KEY,
			category TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (category, text)
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			wpm INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			total_typed INTEGER NOT NULL,
			total_errors INTEGER NOT NULL,
			duration_seconds INTEGER NOT NULL,
			category TEXT NOT NULL,
			completed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_prompts_category ON prompts(category);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_completed ON sessions(user_id, completed_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return s.addPasswordColumn()
}

// addPasswordColumn upgrades databases created before password login.
func (s *Store) addPasswordColumn() error {
	var n int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('users') WHERE name = 'password_hash'`,
	).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := s.db.Exec(`ALTER TABLE users ADD COLUMN password_hash TEXT NOT NULL DEFAULT ''`)
	return err
}

// EnsureUser returns the user with the given name, creating it if needed.
func (s *Store) EnsureUser(ctx context.Context, username string) (model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.User{}, fmt.Errorf("username is required")
	}
	user, err := s.userByName(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.User{}, err
	}

	user = model.User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(username) DO NOTHING`,
		user.ID, user.Username, user.CreatedAt.Format(timeLayout),
	); err != nil {
		return model.User{}, err
	}
	// Another writer may have won the insert.
	return s.userByName(ctx, username)
}

// CreateUser registers a new user with a password hash. It returns
// ErrUserExists when the username is taken.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.User{}, fmt.Errorf("username is required")
	}
	user := model.User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: s.now().UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(username) DO NOTHING`,
		user.ID, user.Username, passwordHash, user.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return model.User{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.User{}, err
	}
	if n == 0 {
		return model.User{}, ErrUserExists
	}
	return user, nil
}

// Credentials returns the user and stored password hash for username. The
// hash is empty for users that never set a password.
func (s *Store) Credentials(ctx context.Context, username string) (model.User, string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, created_at, password_hash FROM users WHERE username = ?`,
		strings.TrimSpace(username))
	var hash string
	user, err := scanUser(row, &hash)
	if err != nil {
		return model.User{}, "", err
	}
	return user, hash, nil
}

// SetPasswordHash replaces the password hash of a user.
func (s *Store) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) userByName(ctx context.Context, username string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row, extra ...any) (model.User, error) {
	var user model.User
	var createdAt string
	dest := append([]any{&user.ID, &user.Username, &createdAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.User{}, err
	}
	user.CreatedAt = parsed
	return user, nil
}

// InsertPrompts stores prompts, skipping duplicates. It returns the number
// of newly inserted prompts.
func (s *Store) InsertPrompts(ctx context.Context, prompts []model.Prompt) (n int, err error) {
	if len(prompts) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO prompts (category, text, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(category, text) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	now := s.now().UTC().Format(timeLayout)
	for _, p := range prompts {
		if strings.TrimSpace(p.Category) == "" || strings.TrimSpace(p.Text) == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx, p.Category, p.Text, now)
		if err != nil {
			return 0, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		n += int(affected)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// CountPrompts returns the number of stored prompts.
func (s *Store) CountPrompts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FetchPrompts returns all prompts tagged with category.
func (s *Store) FetchPrompts(ctx context.Context, category string) ([]model.Prompt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, text FROM prompts WHERE category = ? ORDER BY id ASC`, category)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.Prompt
	for rows.Next() {
		var p model.Prompt
		if err := rows.Scan(&p.ID, &p.Category, &p.Text); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Categories lists categories that have at least one prompt.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM prompts ORDER BY category ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SaveSession stores one completed attempt.
func (s *Store) SaveSession(ctx context.Context, rec model.SessionRecord) (int64, error) {
	if rec.UserID == "" {
		return 0, fmt.Errorf("session user id is required")
	}
	completedAt := rec.CompletedAt
	if completedAt.IsZero() {
		completedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, wpm, accuracy, total_typed, total_errors, duration_seconds, category, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID,
		rec.WPM,
		rec.Accuracy,
		rec.TotalTyped,
		rec.TotalErrors,
		rec.DurationSeconds,
		rec.Category,
		completedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSessions returns session records matching the filter, oldest first.
func (s *Store) ListSessions(ctx context.Context, filter model.HistoryFilter) ([]model.SessionRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Since != nil {
		clauses = append(clauses, "completed_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	query := fmt.Sprintf(`SELECT id, user_id, wpm, accuracy, total_typed, total_errors, duration_seconds, category, completed_at
		FROM sessions
		WHERE %s
		ORDER BY completed_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		var completedAt string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.WPM, &rec.Accuracy, &rec.TotalTyped, &rec.TotalErrors, &rec.DurationSeconds, &rec.Category, &completedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, completedAt)
		if err != nil {
			return nil, err
		}
		rec.CompletedAt = parsed
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.Last > 0 && len(sessions) > filter.Last {
		sessions = sessions[len(sessions)-filter.Last:]
	}
	return sessions, nil
}
