// Package api serves image conversion over HTTP.
//
// # Routes
//
//	GET  /healthz      liveness and build info
//	GET  /v1/presets   available presets with their resolved options
//	POST /v1/convert   multipart upload (field "image"), returns the artifact
//
// Conversion parameters for /v1/convert are query parameters named like the
// JSON fields of [pipeline.Options] (line_spacing, amplitude_scale,
// darkness_threshold, min_clearance, segmented, organic, seed, stroke_width,
// max_width) plus preset and format. The response body is the artifact in
// the requested format; collision counters are returned as headers.
//
// Every response carries an X-Request-ID header. A valid UUID supplied by the
// client is echoed back; otherwise a new one is generated.
package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/polargraph/pkg/config"
	"github.com/matzehuels/polargraph/pkg/pipeline"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":8080"

	// DefaultMaxUpload bounds the request body of /v1/convert.
	DefaultMaxUpload int64 = 32 << 20

	shutdownTimeout = 10 * time.Second
)

// Server is the HTTP front end of a pipeline runner.
type Server struct {
	runner    *pipeline.Runner
	config    *config.Config
	logger    *log.Logger
	maxUpload int64
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUpload sets the request body limit for uploads.
func WithMaxUpload(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

// New creates a server. A nil config means built-in presets only.
func New(runner *pipeline.Runner, cfg *config.Config, logger *log.Logger, opts ...Option) *Server {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner:    runner,
		config:    cfg,
		logger:    logger,
		maxUpload: DefaultMaxUpload,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/presets", s.handlePresets)
		r.Post("/convert", s.handleConvert)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed")
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
