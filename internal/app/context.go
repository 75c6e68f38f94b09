package app

import (
	"database/sql"

	"testbuilder/internal/config"
	"testbuilder/internal/db"
	"testbuilder/internal/events"
	"testbuilder/internal/migrate"
	"testbuilder/internal/repo"
	"testbuilder/internal/runner"
)

// Context bundles what every CLI verb needs: the loaded settings, the
// explicit working directory, a process runner and the run log.
type Context struct {
	Workdir string
	Config  *config.Config
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Runner  runner.Runner
}

// Load reads the settings file at cfgPath, opens the run log under
// workdir and returns a ready Context. Close releases the run log.
func Load(workdir, cfgPath string) (*Context, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workdir: workdir})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &Context{
		Workdir: workdir,
		Config:  cfg,
		DB:      conn,
		Repo:    repo.Repo{DB: conn},
		Events:  events.Writer{DB: conn},
		Runner:  runner.Exec{},
	}, nil
}

func (c *Context) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
}
