package cli

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"

	"clok/internal/adapter/sqlstore"
	"clok/internal/app"
	"clok/internal/config"
	"clok/internal/domain"
)

// env is the wired application for one command invocation.
type env struct {
	cfg      config.Config
	loc      *time.Location
	now      domain.Clock
	store    *sqlstore.DB
	sessions *sqlstore.SessionRepo

	clock   *app.ClockService
	reports *app.ReportService
	dir     *app.DirectoryService
	auth    *app.AuthService

	format string
	out    io.Writer
}

func openEnv(cmd *cobra.Command, opts *RootOptions) (*env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}
	if opts.User != "" {
		cfg.User = opts.User
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}

	store, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening database", err)
	}
	sessions := sqlstore.NewSessionRepo(store)

	now := opts.clock
	if now == nil {
		now = domain.SystemClock{}
	}
	svcOpts := []app.Option{app.WithLocation(loc), app.WithClock(now)}

	return &env{
		cfg:      cfg,
		loc:      loc,
		now:      now,
		store:    store,
		sessions: sessions,
		clock:    app.NewClockService(store, store, store, store, svcOpts...),
		reports:  app.NewReportService(store, store, store, svcOpts...),
		dir:      app.NewDirectoryService(store, store, store, store),
		auth:     app.NewAuthService(store, sessions).WithSessionTTL(cfg.SessionTTL),
		format:   opts.Format,
		out:      cmd.OutOrStdout(),
	}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}

// withUser runs fn with an open env and the user the CLI acts as.
func withUser(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, e *env, u *domain.User) error) error {
	e, err := openEnv(cmd, opts)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	if e.cfg.User == "" {
		return NewExitError(ExitCommandError, "no user selected: pass --user or set CLOK_USER")
	}
	ctx := cmd.Context()
	u, err := e.dir.UserByName(ctx, e.cfg.User)
	if err != nil {
		return err
	}
	return fn(ctx, e, u)
}

// jobID resolves a job name. Empty means the user's active job.
func (e *env) jobID(ctx context.Context, userID int64, name string) (int64, error) {
	if name == "" {
		return 0, nil
	}
	job, err := e.dir.JobByName(ctx, userID, name)
	if err != nil {
		return 0, err
	}
	return job.ID, nil
}

func (e *env) jobNames(ctx context.Context, userID int64) (map[int64]string, error) {
	jobs, err := e.dir.ListJobs(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(jobs))
	for _, j := range jobs {
		names[j.ID] = j.Name
	}
	return names, nil
}

func (e *env) scope(ctx context.Context, userID int64, job string, all bool) (domain.Scope, error) {
	if all {
		return domain.Scope{AllJobs: true}, nil
	}
	id, err := e.jobID(ctx, userID, job)
	if err != nil {
		return domain.Scope{}, err
	}
	return domain.Scope{JobID: id}, nil
}

// parseTime parses a --at style flag. Empty means now.
func (e *env) parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return domain.ParseTimestamp(s, e.loc)
}

// emit writes v as JSON or calls text for the human format.
func (e *env) emit(v any, text func(w io.Writer)) error {
	if e.format == "json" {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(e.out)
	return nil
}
