package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"clok/internal/domain"
)

func newStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the open session and today's, this week's and this month's hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				summary, err := e.reports.Summary(ctx, u.ID, domain.Scope{})
				if err != nil {
					return err
				}
				var job string
				if u.ActiveJobID != nil {
					names, err := e.jobNames(ctx, u.ID)
					if err != nil {
						return err
					}
					job = jobLabel(names, *u.ActiveJobID)
				}
				return e.emit(map[string]any{"job": job, "summary": summary}, func(w io.Writer) {
					renderStatus(w, job, summary, e.loc)
				})
			})
		},
	}
}

type scopeFlags struct {
	job string
	all bool
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.job, "job", "j", "", "job to count (default: the active job)")
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "count every job")
}

func (f *scopeFlags) label(names map[int64]string, s domain.Scope, u *domain.User) string {
	switch {
	case s.AllJobs:
		return "all jobs"
	case s.JobID != 0:
		return jobLabel(names, s.JobID)
	case u.ActiveJobID != nil:
		return jobLabel(names, *u.ActiveJobID)
	}
	return "no active job"
}

func newHoursCommand(opts *RootOptions) *cobra.Command {
	var (
		key   string
		scope scopeFlags
	)
	cmd := &cobra.Command{
		Use:       "hours [day|week|month]",
		Short:     "Sum the hours of a day, ISO week or month",
		Long:      "Sum the hours of a day, ISO week or month. --key takes a bucket key (20240101, 202401) or any date inside the bucket.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var period string
			if len(args) == 1 {
				period = args[0]
			}
			p, err := domain.ParsePeriod(period)
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				k := 0
				if key != "" {
					if k, err = domain.ParseKey(p, key, e.loc); err != nil {
						return err
					}
				}
				s, err := e.scope(ctx, u.ID, scope.job, scope.all)
				if err != nil {
					return err
				}
				seconds, err := e.reports.HoursFor(ctx, u.ID, p, k, s)
				if err != nil {
					return err
				}
				if k == 0 {
					k = p.KeyFor(e.now.Now().In(e.loc))
				}
				names, err := e.jobNames(ctx, u.ID)
				if err != nil {
					return err
				}
				return e.emit(map[string]any{"period": p.String(), "key": k, "seconds": seconds, "hours": domain.Hours(seconds)}, func(w io.Writer) {
					renderTotal(w, fmt.Sprintf("%s %d, %s", p, k, scope.label(names, s, u)), seconds)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "bucket key or a date inside it (default: now)")
	scope.register(cmd)
	return cmd
}

func newRangeCommand(opts *RootOptions) *cobra.Command {
	var (
		start, end string
		scope      scopeFlags
	)
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Sum the hours of sessions that started strictly between two instants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				from, err := domain.ParseTimestamp(start, e.loc)
				if err != nil {
					return err
				}
				to, err := domain.ParseTimestamp(end, e.loc)
				if err != nil {
					return err
				}
				s, err := e.scope(ctx, u.ID, scope.job, scope.all)
				if err != nil {
					return err
				}
				seconds, err := e.reports.HoursForRange(ctx, u.ID, from, to, s)
				if err != nil {
					return err
				}
				names, err := e.jobNames(ctx, u.ID)
				if err != nil {
					return err
				}
				return e.emit(map[string]any{"start": from, "end": to, "seconds": seconds, "hours": domain.Hours(seconds)}, func(w io.Writer) {
					label := fmt.Sprintf("%s to %s, %s", from.In(e.loc).Format(stamp), to.In(e.loc).Format(stamp), scope.label(names, s, u))
					renderTotal(w, label, seconds)
				})
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "lower bound, exclusive")
	cmd.Flags().StringVar(&end, "end", "", "upper bound, exclusive")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	scope.register(cmd)
	return cmd
}

func newDailyCommand(opts *RootOptions) *cobra.Command {
	var (
		days  int
		scope scopeFlags
	)
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Show per-day totals for the last days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				s, err := e.scope(ctx, u.ID, scope.job, scope.all)
				if err != nil {
					return err
				}
				points, err := e.reports.Daily(ctx, u.ID, days, s)
				if err != nil {
					return err
				}
				return e.emit(map[string]any{"points": points}, func(w io.Writer) {
					renderDaily(w, points)
				})
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 7, "number of days, ending today")
	scope.register(cmd)
	return cmd
}

func newLogCommand(opts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List the most recent clock entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				entries, err := e.clock.Recent(ctx, u.ID, limit)
				if err != nil {
					return err
				}
				names, err := e.jobNames(ctx, u.ID)
				if err != nil {
					return err
				}
				return e.emit(map[string]any{"items": entries}, func(w io.Writer) {
					renderEntries(w, entries, names, e.loc)
				})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of entries")
	return cmd
}

func newExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Dump the user's jobs, entries and notes as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				export, err := e.dir.Export(ctx, u.ID)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				return enc.Encode(export)
			})
		},
	}
}
