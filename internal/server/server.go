// Package server exposes the scoring engine over HTTP.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/spigell/ats-scorer/internal/ai"
	"github.com/spigell/ats-scorer/internal/ats"
	"github.com/spigell/ats-scorer/internal/dictionary"
)

const (
	DefaultAddr      = ":8080"
	defaultBodyLimit = 4 * 1024 * 1024
	shutdownTimeout  = 10 * time.Second
	healthTimeout    = time.Second
)

// Options configures the HTTP server.
type Options struct {
	Addr         string        `mapstructure:"addr"`
	BodyLimit    int           `mapstructure:"body-limit"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	MaxJobs      int           `mapstructure:"max-jobs"`
}

type Server struct {
	app    *fiber.App
	opts   Options
	logger *zap.Logger
}

// HealthCheck is a dependency reported by GET /health. A failing check
// marks the service degraded but never unhealthy, since every dependency is
// optional.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// New builds the fiber application. dict is the base dictionary that
// per request configuration overrides are applied to.
func New(engine *ats.Engine, dict *dictionary.Dictionary, elaborator ai.Elaborator, opts Options, logger *zap.Logger, checks ...HealthCheck) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = defaultBodyLimit
	}
	if opts.MaxJobs <= 0 {
		opts.MaxJobs = defaultMaxJobs
	}

	app := fiber.New(fiber.Config{
		AppName:      "ats-scorer",
		BodyLimit:    opts.BodyLimit,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	app.Use(accessLogMiddleware(logger))
	app.Use(errorMiddleware(logger))

	h := &handler{
		engine:     engine,
		dict:       dict,
		elaborator: elaborator,
		maxJobs:    opts.MaxJobs,
		checks:     checks,
		logger:     logger,
	}
	h.register(app)

	return &Server{app: app, opts: opts, logger: logger}
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.opts.Addr))
		errCh <- s.app.Listen(s.opts.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.app.ShutdownWithContext(shutdownCtx)
}
