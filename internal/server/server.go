// Package server exposes the pricing calculator and the quotation PDF over
// HTTP, so web front ends show the same numbers as the terminal.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mikelcalvo/quotedesk/internal/quotepdf"
)

// Config is what the server needs from the application configuration.
type Config struct {
	Addr          string
	InternalToken string // empty disables the token check
	Brand         string
	Company       string
	DefaultTax    string
}

type Server struct {
	cfg Config
	log *zap.Logger
	pdf *quotepdf.Generator
}

func New(cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return &Server{cfg: cfg, log: log, pdf: quotepdf.New()}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(InternalAuth(s.cfg.InternalToken))

		r.Post("/pricing/totals", s.Totals)
		r.Post("/quotations/pdf", s.QuotationPDF)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
