// Package server wires configuration, storage and services into the
// running HTTP application and handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/trainerauth/internal/logging"
	"github.com/dmitrijs2005/trainerauth/internal/server/archive"
	"github.com/dmitrijs2005/trainerauth/internal/server/audit"
	"github.com/dmitrijs2005/trainerauth/internal/server/auth"
	"github.com/dmitrijs2005/trainerauth/internal/server/config"
	"github.com/dmitrijs2005/trainerauth/internal/server/httpapi"
	"github.com/dmitrijs2005/trainerauth/internal/server/lockout"
	"github.com/dmitrijs2005/trainerauth/internal/server/metrics"
	"github.com/dmitrijs2005/trainerauth/internal/server/notify"
	"github.com/dmitrijs2005/trainerauth/internal/server/ratelimit"
	"github.com/dmitrijs2005/trainerauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/trainerauth/internal/server/services"
)

// Stack is the storage and service graph shared by the HTTP server and the
// admin CLI.
type Stack struct {
	Repos    repomanager.RepositoryManager
	Metrics  *metrics.Metrics
	Audit    *audit.Log
	Issuer   *auth.SessionIssuer
	Accounts *services.AccountService
	Resets   *services.ResetService
}

// NewStack opens the configured store and builds the services on top of it.
// Reset links are written to mail. Migrations are not run here.
func NewStack(c *config.Config, logger logging.Logger, mail io.Writer) (*Stack, error) {
	hasher, err := auth.NewMultiHasher(c.PasswordHashAlgorithm, c.BcryptCost)
	if err != nil {
		return nil, err
	}

	repos, err := repomanager.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if c.DatabaseDSN == "" {
		logger.Warn(context.Background(), "no database configured, using the in-memory store")
	}

	m := metrics.New()
	auditLog := audit.NewLog(repos.AuditLog(), logger.With("module", "audit"), m.AuditWriteFailures)
	issuer := auth.NewSessionIssuer([]byte(c.SecretKey), c.SessionTTL, nil)
	policy := lockout.NewPolicy(
		lockout.WithThreshold(c.LockoutThreshold),
		lockout.WithDuration(c.LockoutDuration),
	)

	return &Stack{
		Repos:    repos,
		Metrics:  m,
		Audit:    auditLog,
		Issuer:   issuer,
		Accounts: services.NewAccountService(repos.Accounts(), hasher, policy, issuer, auditLog, logger.With("module", "accounts")),
		Resets: services.NewResetService(repos.Accounts(), hasher, auditLog, notify.NewWriterNotifier(mail),
			logger.With("module", "reset"), c.ResetTokenTTL, c.ResetURLBase),
	}, nil
}

func (s *Stack) Close() error {
	return s.Repos.Close()
}

type App struct {
	config *config.Config
	logger logging.Logger
	mail   io.Closer
	stack  *Stack
	http   *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}

	mail, err := notify.OpenSink(c.ResetMailOutput)
	if err != nil {
		return nil, err
	}
	if c.ResetMailOutput == notify.SinkStdout {
		logger.Warn(ctx, "reset mail shares stdout with the log stream, use only in development")
	}

	stack, err := NewStack(c, logger, mail)
	if err != nil {
		_ = mail.Close()
		return nil, err
	}

	if err := stack.Repos.RunMigrations(ctx); err != nil {
		_ = stack.Close()
		_ = mail.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	archiver, err := archive.New(ctx, archive.Settings{
		Bucket:    c.AuditArchiveBucket,
		Region:    c.S3Region,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Endpoint:  c.S3BaseEndpoint,
	})
	if err != nil {
		_ = stack.Close()
		_ = mail.Close()
		return nil, err
	}

	srv := httpapi.NewServer(c.HTTPAddr, httpapi.Deps{
		Accounts:       stack.Accounts,
		Resets:         stack.Resets,
		Issuer:         stack.Issuer,
		Audit:          stack.Audit,
		Archiver:       archiver,
		AuthLimiter:    ratelimit.NewWindowLimiter(c.AuthRateLimit, c.AuthRateWindow),
		GeneralLimiter: ratelimit.NewBucketLimiter(c.GeneralRateLimit, c.GeneralRateWindow),
		Metrics:        stack.Metrics,
		Logger:         logger,
	})

	return &App{config: c, logger: logger, mail: mail, stack: stack, http: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the store and the reset mail sink.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	runErr := app.http.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, "http server failed", "error", runErr)
	}

	closeErr := errors.Join(app.stack.Close(), app.mail.Close())
	if z, ok := app.logger.(*logging.ZapLogger); ok {
		_ = z.Sync()
	}

	return errors.Join(runErr, closeErr)
}
