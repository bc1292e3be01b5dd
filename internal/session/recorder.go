package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/verte-zerg/codetype/internal/engine"
	"github.com/verte-zerg/codetype/internal/identity"
	"github.com/verte-zerg/codetype/internal/model"
)

const saveTimeout = 10 * time.Second

// Saver persists session records.
type Saver interface {
	SaveSession(ctx context.Context, rec model.SessionRecord) (int64, error)
}

// Recorder turns finished attempts into stored session records.
type Recorder struct {
	saver  Saver
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder returns a Recorder writing through saver.
func NewRecorder(saver Saver, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{saver: saver, logger: logger, now: time.Now}
}

// BuildRecord maps an engine result onto a session record.
func BuildRecord(userID string, res engine.Result, completedAt time.Time) model.SessionRecord {
	return model.SessionRecord{
		UserID:          userID,
		WPM:             res.WPM,
		Accuracy:        res.Accuracy,
		TotalTyped:      res.TotalTyped,
		TotalErrors:     res.TotalErrors,
		DurationSeconds: res.DurationSeconds,
		Category:        res.Category,
		CompletedAt:     completedAt,
	}
}

// Record saves res for ident. Anonymous attempts and attempts with no
// elapsed time are skipped. Failures are logged and reported as false.
func (r *Recorder) Record(ctx context.Context, ident *identity.Identity, res engine.Result) bool {
	if ident == nil || ident.UserID == "" {
		return false
	}
	if res.ElapsedSeconds <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	rec := BuildRecord(ident.UserID, res, r.now().UTC())
	id, err := r.saver.SaveSession(ctx, rec)
	if err != nil {
		r.logger.Error("failed to save session", "user_id", ident.UserID, "error", err)
		return false
	}
	r.logger.Info("session saved", "id", id, "user_id", ident.UserID, "wpm", rec.WPM, "accuracy", rec.Accuracy)
	return true
}
