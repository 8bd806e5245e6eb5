// Package api serves the coordinator over HTTP, on a unix socket or a TCP
// address, and provides the matching client.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/powerhintd/internal/errors"
	"codeberg.org/mutker/powerhintd/internal/logger"
	"codeberg.org/mutker/powerhintd/internal/power"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	unixScheme      = "unix://"
	shutdownTimeout = 5 * time.Second
)

// Service is the request surface the server exposes.
type Service interface {
	SetMode(mode power.Mode, enabled bool) error
	SetBoost(boost power.Boost, durationMs int32) error
	IsModeSupported(mode power.Mode) bool
	IsBoostSupported(boost power.Boost) bool
	HintSessionPreferredRate() (int64, error)
	CreateHintSession(cfg power.SessionConfig) (power.SessionInfo, error)
	CloseHintSession(handle string) error
	Dump(w io.Writer) error
}

// Server is the powerhintd HTTP API server.
type Server struct {
	svc Service
	log logger.Logger
}

func NewServer(svc Service, log logger.Logger) *Server {
	return &Server{svc: svc, log: log.With("api")}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Put("/modes/{mode}", s.handleSetMode)
		r.Get("/modes/{mode}/supported", s.handleModeSupported)
		r.Put("/boosts/{boost}", s.handleSetBoost)
		r.Get("/boosts/{boost}/supported", s.handleBoostSupported)
		r.Get("/dump", s.handleDump)

		r.Get("/sessions/preferred-rate", s.handlePreferredRate)
		r.Post("/sessions", s.handleCreateSession)
		r.Delete("/sessions/{handle}", s.handleCloseSession)
	})

	return r
}

// Serve listens on addr until ctx is cancelled. addr is either
// unix:///path/to.sock or host:port.
func (s *Server) Serve(ctx context.Context, addr string) error {
	errFactory := errors.New()

	ln, err := listen(addr)
	if err != nil {
		return errFactory.Wrap(errors.ErrServe, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.log.Info().Str("addr", addr).Msg("API listening")

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errFactory.Wrap(errors.ErrServe, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}

func listen(addr string) (net.Listener, error) {
	if path, ok := strings.CutPrefix(addr, unixScheme); ok {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		ln, err := net.Listen("unix", path)
		if err != nil {
			return nil, err
		}
		if err := os.Chmod(path, 0o660); err != nil {
			ln.Close()
			return nil, err
		}
		return ln, nil
	}

	return net.Listen("tcp", addr)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request")
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON error envelope. Type carries the error code.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code errors.ErrorCode, msg string) {
	var body errorBody
	body.Error.Message = msg
	body.Error.Type = string(code)
	writeJSON(w, status, body)
}

// writeErr maps a coded error onto its HTTP status.
func writeErr(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	writeError(w, statusFor(code), code, err.Error())
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrUnsupportedOperation:
		return http.StatusNotImplemented
	case errors.ErrIllegalArgument, errors.ErrInvalidArgument:
		return http.StatusBadRequest
	case errors.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func unknownName(kind, name, suggestion string) string {
	msg := fmt.Sprintf("unknown %s %q", kind, name)
	if suggestion != "" {
		msg += fmt.Sprintf(", did you mean %q?", suggestion)
	}

	return msg
}
