// ABOUTME: HTTP gateway orchestrating sessions, CSRF, rate limiting, and credentials
// ABOUTME: Every request resolves a session first; auth endpoints pass further gates in order

package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/opslog/opslog/internal/assets"
	"github.com/opslog/opslog/internal/creds"
	"github.com/opslog/opslog/internal/ratelimit"
	"github.com/opslog/opslog/internal/session"
	"github.com/opslog/opslog/internal/store"
	"github.com/opslog/opslog/internal/tokens"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "opslog_session"

	// CSRFHeaderName carries the caller-supplied CSRF token
	CSRFHeaderName = "X-CSRF-Token"

	// maxBodyBytes caps request bodies; anything larger is rejected before
	// any state mutation
	maxBodyBytes = 10_000
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const sessionContextKey contextKey = "session"

// LogStore is the subset of the log store the gateway needs.
type LogStore interface {
	CreateLogEntry(ctx context.Context, entry *store.LogEntry) error
	ListLogEntries(ctx context.Context, owner string, filter store.LogFilter) ([]*store.LogEntry, error)
	SeedDemoEntries(ctx context.Context, owner string) error
}

// Config holds gateway configuration
type Config struct {
	// CookieSecure marks the session cookie Secure; enable behind TLS.
	CookieSecure bool
}

// Server handles the authentication API and the embedded frontend.
type Server struct {
	creds    *creds.Store
	sessions *session.Store
	limiter  *ratelimit.Limiter
	logs     LogStore
	minter   *tokens.Minter
	config   Config
	logger   *slog.Logger
}

// New creates a gateway server over the given stores.
func New(credStore *creds.Store, sessions *session.Store, limiter *ratelimit.Limiter, logs LogStore, minter *tokens.Minter, cfg Config) *Server {
	return &Server{
		creds:    credStore,
		sessions: sessions,
		limiter:  limiter,
		logs:     logs,
		minter:   minter,
		config:   cfg,
		logger:   slog.Default().With("component", "web"),
	}
}

// Handler returns the fully wired HTTP handler: hardening headers and
// session resolution wrap everything, including the static frontend, so a
// CSRF token exists before the first login attempt.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/csrf", s.handleCSRF)
	mux.HandleFunc("GET /api/me", s.handleMe)
	mux.HandleFunc("POST /api/signup", s.requireCSRF(s.handleSignup))
	mux.HandleFunc("POST /api/login", s.requireCSRF(s.handleLogin))
	mux.HandleFunc("POST /api/logout", s.requireCSRF(s.handleLogout))
	mux.HandleFunc("GET /api/token", s.requireAuth(s.handleToken))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleLogsList))
	mux.HandleFunc("POST /api/logs", s.requireCSRF(s.requireAuth(s.handleLogsCreate)))
	mux.HandleFunc("/api/", s.handleAPINotFound)

	mux.Handle("/", assets.FileServer())

	return s.withSecurityHeaders(s.withSession(mux))
}

// withSecurityHeaders sets the response-policy constants on every response:
// no caching, no MIME sniffing, no referrer leakage, restricted sources.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'")
		next.ServeHTTP(w, r)
	})
}

// withSession resolves the caller's session before anything else runs.
// When the store created a replacement (absent, unknown, or expired
// reference), the new cookie is set on the response; the business handlers
// never decide about cookies themselves.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ref string
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			ref = cookie.Value
		}

		sess, isNew := s.sessions.Resolve(ref)
		if isNew {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    sess.ID,
				Path:     "/",
				MaxAge:   int(session.TTL.Seconds()),
				HttpOnly: true,
				Secure:   s.config.CookieSecure,
				SameSite: http.SameSiteStrictMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromContext retrieves the resolved session from the request context
func sessionFromContext(r *http.Request) session.Session {
	sess, _ := r.Context().Value(sessionContextKey).(session.Session)
	return sess
}

// requireCSRF compares the caller-supplied token against the session's
// current token. Mismatch or absence fails closed with 403, a distinct
// class from authentication failure: the client should refresh its token
// and retry, not re-enter credentials.
func (s *Server) requireCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r)
		supplied := r.Header.Get(CSRFHeaderName)
		if supplied == "" || supplied != sess.CSRF {
			s.writeError(w, http.StatusForbidden, "Invalid CSRF token.")
			return
		}
		next(w, r)
	}
}

// requireAuth rejects requests whose session has no bound principal.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !sessionFromContext(r).Authenticated() {
			s.writeError(w, http.StatusUnauthorized, "Not authenticated.")
			return
		}
		next(w, r)
	}
}

// rateGate records an attempt for the caller's source address and reports
// whether the request was rejected. Keyed by address, not identifier, to
// resist both credential stuffing and identifier enumeration. Runs before
// any credential work so abusive traffic never costs a hash derivation.
func (s *Server) rateGate(w http.ResponseWriter, r *http.Request) bool {
	addr := clientAddr(r)
	if s.limiter.CheckAndRecord(addr) {
		s.logger.Warn("auth attempt rate limited", "addr", addr)
		s.writeError(w, http.StatusTooManyRequests, "Too many attempts. Try again later.")
		return true
	}
	return false
}

// clientAddr returns the source host with the ephemeral port stripped, so
// one client machine maps to one rate window.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}

// credentialRequest is the body shape shared by signup and login.
type credentialRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// decodeBody decodes a JSON body with the size cap applied. Returns false
// after writing the error response when the payload is malformed or
// oversized; nothing has been mutated at that point.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusBadRequest, "Payload too large.")
		} else {
			s.writeError(w, http.StatusBadRequest, "Invalid JSON payload.")
		}
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// ListenAndServe runs the gateway until ctx is cancelled, then shuts the
// server down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
