// Package health serves the keepalive endpoint. It shares no state with the bot.
package health

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/menacebot/core/logger"
)

// Handler answers GET / and GET /health with a plain "OK".
func Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/", ok)
	r.Get("/health", ok)
	return r
}

func ok(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Server is the keepalive listener.
type Server struct {
	srv  *http.Server
	done chan struct{}
}

// New prepares a server on all interfaces at port.
func New(port int) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              net.JoinHostPort("0.0.0.0", strconv.Itoa(port)),
			Handler:           Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		done: make(chan struct{}),
	}
}

// Start serves in its own goroutine until ctx is done or Shutdown is called.
// Listen failures are logged and never reach the caller.
func (s *Server) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		logger.Info(ctx, logger.CompHealth, "health.listen",
			slog.String("status", "ok"),
			slog.String("addr", s.srv.Addr),
		)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn(ctx, logger.CompHealth, "health.listen",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Shutdown(shutdownCtx)
		case <-s.done:
		}
	}()
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
