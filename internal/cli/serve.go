package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	adapthttp "clok/internal/adapter/http"
)

const sessionSweepInterval = time.Hour

func newServeCommand(opts *RootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()
			if addr != "" {
				e.cfg.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h, err := e.handler(ctx)
			if err != nil {
				return err
			}
			go e.sweepSessions(ctx)
			return serve(ctx, e.cfg.Addr, h)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ADDR)")
	return cmd
}

func (e *env) handler(ctx context.Context) (http.Handler, error) {
	srv := adapthttp.New(e.clock, e.reports, e.dir, e.auth).
		WithLocation(e.loc).
		WithForwardAuth(e.cfg.ForwardAuth)

	if o := e.cfg.OIDC; o.Enabled() {
		oc, err := adapthttp.NewOIDCConfig(ctx, o.Issuer, o.ClientID, o.ClientSecret, o.RedirectURL)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "configuring sso", err)
		}
		srv = srv.WithOIDC(oc)
		log.Printf("sso enabled via %s", o.Issuer)
	}
	return srv.Handler(), nil
}

func (e *env) sweepSessions(ctx context.Context) {
	t := time.NewTicker(sessionSweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := e.sessions.DeleteExpired(ctx); err != nil && ctx.Err() == nil {
				log.Printf("session sweep: %v", err)
			}
		}
	}
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
