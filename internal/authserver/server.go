// Package authserver exposes the authorization flow over HTTP: a landing
// page, the redirect to the provider, the provider callback, and a health
// check.
package authserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/shotty/internal/authsession"
)

// SessionCookie names the cookie carrying the session ID.
const SessionCookie = "shotty_session"

// Server lifecycle constants.
const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	janitorInterval   = time.Minute
)

// Options configures a Server.
type Options struct {
	// CallbackPath is the path of the registered redirect URL.
	CallbackPath string
	// CookieSecure marks the session cookie Secure (HTTPS deployments).
	CookieSecure bool
	// ExchangeTimeout bounds the code-for-token request to the provider.
	ExchangeTimeout time.Duration
}

// Server serves the authorization flow for one OAuth2 client.
type Server struct {
	manager *authsession.Manager
	store   *authsession.Store
	opts    Options
	logger  *slog.Logger
	router  *mux.Router
}

// New creates a Server and registers its routes.
func New(manager *authsession.Manager, store *authsession.Store, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.CallbackPath == "" {
		opts.CallbackPath = "/callback"
	}

	s := &Server{
		manager: manager,
		store:   store,
		opts:    opts,
		logger:  logger,
	}

	s.router = s.routes()

	return s
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/authorize", s.handleAuthorize).Methods(http.MethodGet)
	r.HandleFunc(s.opts.CallbackPath, s.handleCallback).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	return r
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully. Expired sessions are swept in the background meanwhile.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("auth server listening", slog.String("addr", ln.Addr().String()))

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("authserver: serving: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Info("auth server shutting down")

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("authserver: shutdown: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		s.store.RunJanitor(gctx, janitorInterval)
		return nil
	})

	return g.Wait()
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("authserver: listening on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		// The query carries the code and state; only the path is logged.
		s.logger.Debug("request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}
