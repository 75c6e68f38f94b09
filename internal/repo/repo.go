package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"testbuilder/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// LatestRuns returns up to n most recent run entries, optionally filtered
// by verb and model.
func (r Repo) LatestRuns(ctx context.Context, n int, verb, model string) ([]domain.Run, error) {
	if n <= 0 {
		n = 20
	}
	query := `SELECT id,ts,verb,COALESCE(model,'') AS model,status,COALESCE(detail,'') AS detail FROM runs`
	var (
		conds []string
		args  []any
	)
	if verb != "" {
		conds = append(conds, "verb=?")
		args = append(args, verb)
	}
	if model != "" {
		conds = append(conds, "model=?")
		args = append(args, model)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts DESC, id DESC LIMIT ?"
	args = append(args, n)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Run
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(&run.ID, &run.TS, &run.Verb, &run.Model, &run.Status, &run.Detail); err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

// GetRun returns one run entry by id.
func (r Repo) GetRun(ctx context.Context, id string) (domain.Run, error) {
	var run domain.Run
	err := r.DB.QueryRowContext(ctx,
		`SELECT id,ts,verb,COALESCE(model,'') AS model,status,COALESCE(detail,'') AS detail FROM runs WHERE id=?`, id).
		Scan(&run.ID, &run.TS, &run.Verb, &run.Model, &run.Status, &run.Detail)
	if err == sql.ErrNoRows {
		return run, ErrNotFound
	}
	return run, err
}

// CountRuns returns the total number of recorded runs.
func (r Repo) CountRuns(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}
