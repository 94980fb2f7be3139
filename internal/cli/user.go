package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"clok/internal/app"
	"clok/internal/domain"
)

func newUserCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserAddCommand(opts))
	return cmd
}

func newUserAddCommand(opts *RootOptions) *cobra.Command {
	var noPassword bool
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Long: `Create an account. The password is read from the terminal, or from the
first line of stdin when it is not a terminal. Accounts created with
--no-password can only be used from the CLI or through forward auth.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			ctx := cmd.Context()
			var user *domain.User
			if noPassword {
				name := domain.NormalizeUsername(args[0])
				if name == "" {
					return app.ErrInvalidCredentials
				}
				user, err = e.store.Create(ctx, name, "")
				if errors.Is(err, domain.ErrStoreConflict) {
					err = app.ErrUserExists
				}
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				password, perr := readPassword(cmd.InOrStdin())
				fmt.Fprintln(cmd.ErrOrStderr())
				if perr != nil {
					return WrapExitError(ExitCommandError, "reading password", perr)
				}
				user, err = e.auth.Register(ctx, args[0], password)
			}
			if err != nil {
				return err
			}

			return e.emit(user, func(w io.Writer) {
				fmt.Fprintf(w, "User %s created with ID %d\n", user.Username, user.ID)
			})
		},
	}
	cmd.Flags().BoolVar(&noPassword, "no-password", false, "create the account without a password")
	return cmd
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Pipes and tests.
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
