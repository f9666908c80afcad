// Package api serves the wordmask HTTP interface: text sanitization, word
// management and a health probe.
package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/go-ports/wordmask/internal/config"
	"github.com/go-ports/wordmask/internal/service"
)

const (
	// maxBodyBytes caps request bodies.
	maxBodyBytes = 4 << 20

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Service is the subset of *service.Service the handlers use.
type Service interface {
	Sanitize(ctx context.Context, text string) (string, error)
	SanitizeBatch(ctx context.Context, texts []string) ([]string, error)
	ListWords(ctx context.Context) ([]string, error)
	GetWord(ctx context.Context, id int64) (string, error)
	CreateWord(ctx context.Context, word string) (int64, error)
	UpdateWord(ctx context.Context, id int64, word string) (int64, error)
	DeleteWord(ctx context.Context, id int64) error
	Health(ctx context.Context) service.Health
}

var _ Service = (*service.Service)(nil)

// Server is the HTTP front end. Create it with New.
type Server struct {
	svc     Service
	cfg     config.ServerConfig
	logger  *zap.Logger
	limiter *rate.Limiter
	router  *mux.Router
	handler http.Handler
}

// New builds the router and middleware chain for svc.
func New(svc Service, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger.Named("http"),
		router: mux.NewRouter(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.HandleFunc("/sanitize", s.handleSanitize).Methods(http.MethodPost)
	r.HandleFunc("/sanitize/batch", s.handleSanitizeBatch).Methods(http.MethodPost)

	r.HandleFunc("/words", s.handleListWords).Methods(http.MethodGet)
	r.HandleFunc("/words", s.handleCreateWord).Methods(http.MethodPost)
	r.HandleFunc("/words/{id}", s.handleGetWord).Methods(http.MethodGet)
	r.HandleFunc("/words/{id}", s.handleUpdateWord).Methods(http.MethodPut)
	r.HandleFunc("/words/{id}", s.handleDeleteWord).Methods(http.MethodDelete)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// The chain also covers unmatched 404 and 405 responses.
	s.handler = s.recoverPanics(s.requestID(s.logRequests(s.rateLimit(r))))
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on cfg.Addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "api.ListenAndServe: listen %s", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		ErrorLog:          zap.NewStdLog(s.logger),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "api.Serve")
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "api.Serve: shutdown")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Sanitize handlers
// ---------------------------------------------------------------------------

func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	text, err := readText(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.svc.Sanitize(r.Context(), text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, out)
}

func (s *Server) handleSanitizeBatch(w http.ResponseWriter, r *http.Request) {
	texts, err := readTextArray(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.svc.SanitizeBatch(r.Context(), texts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// ---------------------------------------------------------------------------
// Word handlers
// ---------------------------------------------------------------------------

func (s *Server) handleListWords(w http.ResponseWriter, r *http.Request) {
	words, err := s.svc.ListWords(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, words)
}

func (s *Server) handleGetWord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	word, err := s.svc.GetWord(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, word)
}

func (s *Server) handleCreateWord(w http.ResponseWriter, r *http.Request) {
	word, err := readText(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.svc.CreateWord(r.Context(), word)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", wordURL(id))
	s.writeJSON(w, http.StatusCreated, id)
}

func (s *Server) handleUpdateWord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	word, err := readText(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.svc.UpdateWord(r.Context(), id, word)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteWord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteWord(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.svc.Health(r.Context())
	status := http.StatusOK
	if !h.Store {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, h)
}

func wordURL(id int64) string {
	return "/words/" + strconv.FormatInt(id, 10)
}
