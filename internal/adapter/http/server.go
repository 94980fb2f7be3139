package adapthttp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"clok/internal/app"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig carries the single sign-on provider. The zero value disables SSO.
type OIDCConfig struct {
	Enabled      bool
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// NewOIDCConfig discovers the issuer and builds the OAuth2 client.
func NewOIDCConfig(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (OIDCConfig, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return OIDCConfig{}, fmt.Errorf("oidc discovery: %w", err)
	}
	return OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	clock   *app.ClockService
	reports *app.ReportService
	dir     *app.DirectoryService
	authSvc *app.AuthService

	oidcConfig  OIDCConfig
	forwardAuth bool
	loc         *time.Location

	// disableAuth serves every request as devUserID.
	disableAuth bool
	devUserID   int64
}

// New creates a Server wired to the given application services.
func New(cs *app.ClockService, rs *app.ReportService, ds *app.DirectoryService, as *app.AuthService) *Server {
	return &Server{clock: cs, reports: rs, dir: ds, authSvc: as, loc: time.Local}
}

// WithOIDC enables SSO login.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidcConfig = cfg
	return s
}

// WithForwardAuth trusts the Remote-User header set by an authenticating proxy.
func (s *Server) WithForwardAuth(enabled bool) *Server {
	s.forwardAuth = enabled
	return s
}

// WithLocation sets the zone used to read zone-less timestamps.
func (s *Server) WithLocation(loc *time.Location) *Server {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// WithoutAuth skips authentication and acts as userID on every request.
func (s *Server) WithoutAuth(userID int64) *Server {
	s.disableAuth = true
	s.devUserID = userID
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	protected := http.NewServeMux()
	protected.HandleFunc("GET /jobs", s.handleListJobs)
	protected.HandleFunc("POST /jobs", s.handleCreateJob)
	protected.HandleFunc("PUT /jobs/{id}", s.handleRenameJob)
	protected.HandleFunc("POST /jobs/active", s.handleSetActiveJob)

	protected.HandleFunc("POST /clock/in", s.handleClockIn)
	protected.HandleFunc("POST /clock/out", s.handleClockOut)
	protected.HandleFunc("POST /clock/session", s.handleRecordSession)
	protected.HandleFunc("GET /clock/status", s.handleClockStatus)
	protected.HandleFunc("GET /clock/recent", s.handleClockRecent)
	protected.HandleFunc("GET /clock/{id}/journal", s.handleListJournal)
	protected.HandleFunc("POST /clock/{id}/journal", s.handleAddJournal)

	protected.HandleFunc("GET /hours/{period}", s.handleHours)
	protected.HandleFunc("GET /hours/range", s.handleHoursRange)
	protected.HandleFunc("GET /hours/daily", s.handleHoursDaily)

	protected.HandleFunc("GET /export", s.handleExport)

	api := http.NewServeMux()
	api.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	api.HandleFunc("POST /auth/register", s.handleRegister)
	api.HandleFunc("POST /auth/login", s.handleLogin)
	api.HandleFunc("POST /auth/logout", s.handleLogout)
	api.HandleFunc("GET /auth/config", s.handleConfig)
	api.HandleFunc("GET /auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("GET /auth/sso/callback", s.handleSSOCallback)
	api.Handle("/", s.authMiddleware(protected))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	return s.loggingMiddleware(withNoCache(root))
}
