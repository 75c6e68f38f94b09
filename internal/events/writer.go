// Package events appends run records to the local run log. Recording is
// best effort: the log is bookkeeping, never a reason to fail a verb.
package events

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"testbuilder/internal/domain"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

// Record appends one run entry and returns it. With a nil DB it is a
// no-op, so components work without a run log attached.
func (w Writer) Record(ctx context.Context, verb, model, status, detail string) (domain.Run, error) {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	run := domain.Run{
		ID:     uuid.New().String(),
		TS:     now().UTC().Format(time.RFC3339),
		Verb:   verb,
		Model:  model,
		Status: status,
		Detail: detail,
	}
	if w.DB == nil {
		return run, nil
	}
	_, err := w.DB.ExecContext(ctx, `INSERT INTO runs(id,ts,verb,model,status,detail) VALUES (?,?,?,?,?,?)`,
		run.ID, run.TS, run.Verb, nullable(run.Model), run.Status, nullable(run.Detail))
	return run, err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
