// Package httpapi exposes the authentication services over HTTP using gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/trainerauth/internal/logging"
	"github.com/dmitrijs2005/trainerauth/internal/server/audit"
	"github.com/dmitrijs2005/trainerauth/internal/server/auth"
	"github.com/dmitrijs2005/trainerauth/internal/server/metrics"
	"github.com/dmitrijs2005/trainerauth/internal/server/ratelimit"
	"github.com/dmitrijs2005/trainerauth/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// AuditReader serves the grouped activity view.
type AuditReader interface {
	Recent(ctx context.Context, limit int) (*audit.Groups, error)
}

// AuditArchiver exports grouped activity and returns the stored object key.
type AuditArchiver interface {
	Archive(ctx context.Context, g *audit.Groups) (string, error)
}

// Deps are the collaborators a Server routes requests to. Archiver may be
// nil, in which case the archive endpoint reports the feature as disabled.
type Deps struct {
	Accounts       *services.AccountService
	Resets         *services.ResetService
	Issuer         *auth.SessionIssuer
	Audit          AuditReader
	Archiver       AuditArchiver
	AuthLimiter    ratelimit.Limiter
	GeneralLimiter ratelimit.Limiter
	Metrics        *metrics.Metrics
	Logger         logging.Logger
}

type Server struct {
	address        string
	accounts       *services.AccountService
	resets         *services.ResetService
	issuer         *auth.SessionIssuer
	audit          AuditReader
	archiver       AuditArchiver
	authLimiter    ratelimit.Limiter
	generalLimiter ratelimit.Limiter
	metrics        *metrics.Metrics
	logger         logging.Logger
	now            func() time.Time
	engine         *gin.Engine
}

func NewServer(address string, d Deps) *Server {
	s := &Server{
		address:        address,
		accounts:       d.Accounts,
		resets:         d.Resets,
		issuer:         d.Issuer,
		audit:          d.Audit,
		archiver:       d.Archiver,
		authLimiter:    d.AuthLimiter,
		generalLimiter: d.GeneralLimiter,
		metrics:        d.Metrics,
		logger:         d.Logger.With("module", "http_server"),
		now:            time.Now,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
