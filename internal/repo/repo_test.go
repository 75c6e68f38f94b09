package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"testbuilder/internal/db"
	"testbuilder/internal/domain"
	"testbuilder/internal/events"
	"testbuilder/internal/migrate"
	"testbuilder/internal/repo"
)

type testEnv struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workdir: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	tick := 0
	w := events.Writer{DB: conn, Now: func() time.Time {
		tick++
		return time.Date(2024, 1, 1, 0, 0, tick, 0, time.UTC)
	}}
	return testEnv{DB: conn, Repo: repo.Repo{DB: conn}, Events: w, Ctx: context.Background()}
}

func TestRecordAndTail(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Events.Record(env.Ctx, "generate", "chains", domain.RunOK, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Events.Record(env.Ctx, "copy", "chains", domain.RunOK, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Events.Record(env.Ctx, "generate", "events", domain.RunFailed, "model events is not ready"); err != nil {
		t.Fatal(err)
	}

	runs, err := env.Repo.LatestRuns(env.Ctx, 10, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %v", runs)
	}
	// Newest first.
	if runs[0].Verb != "generate" || runs[0].Model != "events" || runs[0].Status != domain.RunFailed {
		t.Fatalf("latest = %+v", runs[0])
	}

	runs, err = env.Repo.LatestRuns(env.Ctx, 10, "generate", "chains")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Model != "chains" {
		t.Fatalf("filtered = %v", runs)
	}

	n, err := env.Repo.CountRuns(env.Ctx)
	if err != nil || n != 3 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestGetRun(t *testing.T) {
	env := newTestEnv(t)
	run, err := env.Events.Record(env.Ctx, "zero", "", domain.RunOK, "")
	if err != nil {
		t.Fatal(err)
	}
	got, err := env.Repo.GetRun(env.Ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Verb != "zero" || got.Model != "" {
		t.Fatalf("got = %+v", got)
	}
	if _, err := env.Repo.GetRun(env.Ctx, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordWithoutDB(t *testing.T) {
	w := events.Writer{}
	run, err := w.Record(context.Background(), "clean", "chains", domain.RunOK, "")
	if err != nil {
		t.Fatal(err)
	}
	if run.ID == "" || run.Verb != "clean" {
		t.Fatalf("run = %+v", run)
	}
}
