package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"clok/internal/domain"
)

func newJobCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage jobs",
	}

	var use bool
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				job, err := e.dir.CreateJob(ctx, u.ID, args[0])
				if err != nil {
					return err
				}
				if use {
					if _, err := e.dir.SetActiveJob(ctx, u.ID, job.ID); err != nil {
						return err
					}
				}
				return e.emit(job, func(w io.Writer) {
					fmt.Fprintf(w, "Created job %s\n", job.Name)
				})
			})
		},
	}
	add.Flags().BoolVar(&use, "use", false, "make the new job the active one")

	list := &cobra.Command{
		Use:   "list",
		Short: "List jobs; the active one is starred",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				jobs, err := e.dir.ListJobs(ctx, u.ID)
				if err != nil {
					return err
				}
				return e.emit(map[string]any{"items": jobs, "activeJobId": u.ActiveJobID}, func(w io.Writer) {
					renderJobs(w, jobs, u.ActiveJobID)
				})
			})
		},
	}

	useCmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Switch the active job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				id, err := e.jobID(ctx, u.ID, args[0])
				if err != nil {
					return err
				}
				job, err := e.dir.SetActiveJob(ctx, u.ID, id)
				if err != nil {
					return err
				}
				return e.emit(job, func(w io.Writer) {
					fmt.Fprintf(w, "Active job is now %s\n", job.Name)
				})
			})
		},
	}

	rename := &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, opts, func(ctx context.Context, e *env, u *domain.User) error {
				id, err := e.jobID(ctx, u.ID, args[0])
				if err != nil {
					return err
				}
				job, err := e.dir.RenameJob(ctx, u.ID, id, args[1])
				if err != nil {
					return err
				}
				return e.emit(job, func(w io.Writer) {
					fmt.Fprintf(w, "Renamed %s to %s\n", args[0], job.Name)
				})
			})
		},
	}

	cmd.AddCommand(add, list, useCmd, rename)
	return cmd
}
