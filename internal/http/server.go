package http

import (
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"markwiki/app/internal/backup"
	"markwiki/app/internal/dbservice"
)

// Options configures the HTTP server wiring.
type Options struct {
	Service     dbservice.Service
	Database    *gorm.DB
	Backup      *backup.Client
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	RateLimiter RateLimiterSettings
}

// RateLimiterSettings configures the HTTP rate limiter behaviour. Zero
// values fall back to the defaults below.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

const (
	defaultRateLimitRPS   = 10
	defaultRateLimitBurst = 20
	defaultClientTTL      = 5 * time.Minute
)

// Server wires the HTTP transport layer: huma operations for the GET routes
// and plain mux handlers for the form posts.
type Server struct {
	api         huma.API
	mux         *stdhttp.ServeMux
	service     dbservice.Service
	backup      *backup.Client
	markdown    *MarkdownRenderer
	logger      *logrus.Logger
	sentry      *sentry.Hub
	db          *gorm.DB
	rateLimiter *RateLimiter
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, eris.New("database service is required")
	}
	if opts.Database == nil {
		return nil, eris.New("database is required")
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Markwiki", "1.0.0")
	api := humago.New(mux, config)

	srv := &Server{
		api:      api,
		mux:      mux,
		service:  opts.Service,
		backup:   opts.Backup,
		markdown: NewMarkdownRenderer(),
		logger:   opts.Logger,
		sentry:   opts.SentryHub,
		db:       opts.Database,
	}

	settings := opts.RateLimiter
	if settings.RequestsPerSecond <= 0 {
		settings.RequestsPerSecond = defaultRateLimitRPS
	}
	if settings.Burst <= 0 {
		settings.Burst = defaultRateLimitBurst
	}
	if settings.ClientTTL <= 0 {
		settings.ClientTTL = defaultClientTTL
	}

	srv.rateLimiter = NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL)

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.loggingMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.registerIndexRoute()
	s.registerWikiRoute()
	s.registerBackupRoute()
	s.registerHealthRoute()
	s.registerFormRoutes()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
