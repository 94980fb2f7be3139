package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clok/internal/domain"
)

type transition func(ctx context.Context, userID, jobID int64, when time.Time) (*domain.ClockEntry, error)

func clockCommand(opts *RootOptions, use, short string, pick func(e *env) transition, done func(w io.Writer, job string, c *domain.ClockEntry, loc *time.Location)) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   use + " [job]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				var name string
				if len(args) == 1 {
					name = args[0]
				}
				jobID, err := e.jobID(ctx, u.ID, name)
				if err != nil {
					return err
				}
				when, err := e.parseTime(at)
				if err != nil {
					return err
				}
				entry, err := pick(e)(ctx, u.ID, jobID, when)
				if err != nil {
					return err
				}
				names, err := e.jobNames(ctx, u.ID)
				if err != nil {
					return err
				}
				return e.emit(entry, func(w io.Writer) {
					done(w, jobLabel(names, entry.JobID), entry, e.loc)
				})
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "timestamp to record instead of now")
	return cmd
}

func newInCommand(opts *RootOptions) *cobra.Command {
	return clockCommand(opts, "in", "Clock in to a job (default: the active job)",
		func(e *env) transition { return e.clock.ClockIn },
		func(w io.Writer, job string, c *domain.ClockEntry, loc *time.Location) {
			fmt.Fprintf(w, "Clocked in to %s at %s\n", job, c.TimeIn.In(loc).Format(stamp))
		})
}

func newOutCommand(opts *RootOptions) *cobra.Command {
	return clockCommand(opts, "out", "Clock out of a job (default: the active job)",
		func(e *env) transition { return e.clock.ClockOut },
		func(w io.Writer, job string, c *domain.ClockEntry, loc *time.Location) {
			fmt.Fprintf(w, "Clocked out of %s at %s after %s\n", job, c.TimeOut.In(loc).Format(stamp), domain.FormatDuration(c.TimeSpan))
		})
}

func newSessionCommand(opts *RootOptions) *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "session <job>",
		Short: "Record a finished session in one step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				jobID, err := e.jobID(ctx, u.ID, args[0])
				if err != nil {
					return err
				}
				tin, err := domain.ParseTimestamp(in, e.loc)
				if err != nil {
					return err
				}
				tout, err := domain.ParseTimestamp(out, e.loc)
				if err != nil {
					return err
				}
				entry, err := e.clock.RecordSession(ctx, u.ID, jobID, tin, tout)
				if err != nil {
					return err
				}
				return e.emit(entry, func(w io.Writer) {
					fmt.Fprintf(w, "Recorded %s on %s\n", domain.FormatDuration(entry.TimeSpan), entry.TimeIn.In(e.loc).Format("2006-01-02"))
				})
			})
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "clock-in time")
	cmd.Flags().StringVar(&out, "out", "", "clock-out time")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newJournalCommand(opts *RootOptions) *cobra.Command {
	var (
		clockID int64
		at      string
	)
	cmd := &cobra.Command{
		Use:   "journal [message...]",
		Short: "Add a note to a clock entry, or list notes when no message is given",
		Long: `Add a note to a clock entry. Without --clock the note goes to the entry the
user last clocked in to on the active job. Without a message the entry's
notes are listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				if clockID == 0 {
					last, err := e.clock.LastRecord(ctx, u.ID, 0)
					if err != nil {
						return err
					}
					if last == nil {
						return domain.ErrNoOpenSession
					}
					clockID = last.ID
				}

				if len(args) == 0 {
					journals, err := e.clock.Journals(ctx, u.ID, clockID)
					if err != nil {
						return err
					}
					return e.emit(map[string]any{"items": journals}, func(w io.Writer) {
						renderJournals(w, journals, e.loc)
					})
				}

				when, err := e.parseTime(at)
				if err != nil {
					return err
				}
				j, err := e.clock.AddJournal(ctx, u.ID, clockID, strings.Join(args, " "), when)
				if err != nil {
					return err
				}
				return e.emit(j, func(w io.Writer) {
					fmt.Fprintf(w, "Noted on entry %d at %s\n", j.ClockID, j.Time.In(e.loc).Format(stamp))
				})
			})
		},
	}
	cmd.Flags().Int64Var(&clockID, "clock", 0, "clock entry id (default: the last entry)")
	cmd.Flags().StringVar(&at, "at", "", "timestamp of the note instead of now")
	return cmd
}
