// Package server exposes extraction over HTTP: scores are uploaded,
// inspected, previewed and extracted, and the outputs downloaded.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	bandpart "github.com/wadansyaku/band-part-key-app"
	"github.com/wadansyaku/band-part-key-app/cache"
	"github.com/wadansyaku/band-part-key-app/config"
	"github.com/wadansyaku/band-part-key-app/ocr"
	"github.com/wadansyaku/band-part-key-app/raster"
	"github.com/wadansyaku/band-part-key-app/store"
)

// ExtractorOpener returns an Extractor for a stored score.
type ExtractorOpener func(path string) *bandpart.Extractor

// Score is a stored score opened for rendering and text inspection.
type Score interface {
	bandpart.Source
	HasTextLayer(page int) bool
}

// SourceOpener opens a stored score.
type SourceOpener func(path string) (Score, error)

// Server serves the extraction API.
type Server struct {
	cfg        *config.Config
	store      *store.Store
	regions    *cache.Regions
	recognizer ocr.Recognizer
	log        zerolog.Logger

	openExtractor ExtractorOpener
	openSource    SourceOpener

	sem      *semaphore.Weighted
	limiters *limiterSet
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithRecognizer sets the recognizer used for scanned scores.
func WithRecognizer(r ocr.Recognizer) Option {
	return func(s *Server) { s.recognizer = r }
}

// WithRegionCache enables reuse of region selections.
func WithRegionCache(regions *cache.Regions) Option {
	return func(s *Server) { s.regions = regions }
}

// WithOpeners replaces how stored scores are opened.
func WithOpeners(ext ExtractorOpener, src SourceOpener) Option {
	return func(s *Server) {
		s.openExtractor = ext
		s.openSource = src
	}
}

// New returns a server over st.
func New(cfg *config.Config, st *store.Store, opts ...Option) *Server {
	s := &Server{
		cfg:           cfg,
		store:         st,
		log:           zerolog.Nop(),
		openExtractor: bandpart.Open,
		openSource: func(path string) (Score, error) {
			doc, err := raster.Open(path)
			if err != nil {
				return nil, err
			}
			return doc, nil
		},
		sem:      semaphore.NewWeighted(int64(cfg.Server.MaxConcurrent)),
		limiters: newLimiterSet(cfg.Server.RateLimit, cfg.Server.RateBurst),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with all routes configured.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(cors(s.cfg.Server.AllowedOrigins))
	r.Use(chimiddleware.Timeout(s.cfg.Server.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": s.cfg.Logging.Service})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/upload", s.handleUpload)
		r.Get("/analyze/{fileID}", s.handleAnalyze)
		r.Post("/extract", s.handleExtract)
		r.Get("/download/{outputID}", s.handleDownload)
		r.Get("/preview/{fileID}/{page}", s.handlePreview)
		r.Post("/cleanup", s.handleCleanup)
	})

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully. Expired
// files are purged in the background while the server runs.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	go s.store.Janitor(ctx, s.cfg.Storage.CleanupInterval, s.cfg.Storage.Retention, s.log, s.forgetRegions)
	go s.limiters.sweep(ctx, 5*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.GracefulShutdown)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
