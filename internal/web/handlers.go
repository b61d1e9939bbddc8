// ABOUTME: HTTP handlers for the authentication API and the customer-log endpoints
// ABOUTME: Maps gate outcomes to the stable status codes of the public contract

package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/opslog/opslog/internal/creds"
	"github.com/opslog/opslog/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCSRF rotates and returns the session's CSRF token. Rotation on
// fetch means a leaked token from an earlier page load goes stale as soon
// as the client refreshes.
func (s *Server) handleCSRF(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)

	token, err := s.sessions.RotateCSRF(sess.ID)
	if err != nil {
		// The middleware resolved this session moments ago; losing it here
		// means it expired in between. Hand the client its current token.
		token = sess.CSRF
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

// handleMe reports the trusted identity for the caller's session. Anonymous
// sessions get a bare 401 with no detail beyond the authentication boundary.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	if !sess.Authenticated() {
		s.writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"email": sess.Identity})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if s.rateGate(w, r) {
		return
	}

	var req credentialRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	principal, err := s.creds.Register(req.Email, req.Password)
	switch {
	case errors.Is(err, creds.ErrPolicyViolation):
		// Deliberately vague: a legitimate client gets enough to fix the
		// input without the response enumerating which rule failed.
		s.writeError(w, http.StatusBadRequest, "Invalid email or password policy not met.")
		return
	case errors.Is(err, creds.ErrAlreadyExists):
		s.writeError(w, http.StatusConflict, "Account already exists.")
		return
	case err != nil:
		s.logger.Error("registration failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "An error occurred.")
		return
	}

	sess := sessionFromContext(r)
	if _, err := s.sessions.BindAndRotate(sess.ID, principal.Identifier); err != nil {
		s.logger.Error("failed to bind session after signup", "error", err)
		s.writeError(w, http.StatusInternalServerError, "An error occurred.")
		return
	}

	if s.logs != nil {
		if err := s.logs.SeedDemoEntries(r.Context(), principal.Identifier); err != nil {
			s.logger.Warn("failed to seed demo entries", "error", err)
		}
	}

	s.logger.Info("signup successful", "identifier", principal.Identifier)
	s.writeJSON(w, http.StatusCreated, map[string]string{"message": "Signup successful."})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.rateGate(w, r) {
		return
	}

	var req credentialRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	// Unknown identifier and wrong secret produce identical responses so
	// the endpoint cannot be used to enumerate accounts.
	if !s.creds.Verify(req.Email, req.Password) {
		s.writeError(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	sess := sessionFromContext(r)
	identifier := creds.Normalize(req.Email)
	if _, err := s.sessions.BindAndRotate(sess.ID, identifier); err != nil {
		s.logger.Error("failed to bind session after login", "error", err)
		s.writeError(w, http.StatusInternalServerError, "An error occurred.")
		return
	}

	s.logger.Info("login successful", "identifier", identifier)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Login successful."})
}

// handleLogout clears the identity binding but keeps the session record
// alive as anonymous. Idempotent: logging out an anonymous session is
// still a success.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	if _, err := s.sessions.ClearAndRotate(sess.ID); err != nil {
		s.logger.Error("failed to clear session", "error", err)
		s.writeError(w, http.StatusInternalServerError, "An error occurred.")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out."})
}

// handleToken mints a short-lived bearer token for the session's bound
// identity, for callers that need to talk to token-authenticated services.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)

	token, expiresAt, err := s.minter.Mint(sess.Identity)
	if err != nil {
		s.logger.Error("failed to mint token", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to mint token.")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

// logEntryResponse is the wire shape of a customer log entry.
type logEntryResponse struct {
	ID               string    `json:"id"`
	CustomerName     string    `json:"customerName"`
	CustomerEmail    string    `json:"customerEmail"`
	EventType        string    `json:"eventType"`
	Message          string    `json:"message"`
	Severity         string    `json:"severity"`
	FollowUpRequired bool      `json:"followUpRequired"`
	AssignedOwner    string    `json:"assignedOwner,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toLogEntryResponse(e *store.LogEntry) logEntryResponse {
	return logEntryResponse{
		ID:               e.ID,
		CustomerName:     e.CustomerName,
		CustomerEmail:    e.CustomerEmail,
		EventType:        e.EventType,
		Message:          e.Message,
		Severity:         e.Severity,
		FollowUpRequired: e.FollowUpRequired,
		AssignedOwner:    e.AssignedOwner,
		CreatedAt:        e.CreatedAt,
	}
}

func (s *Server) handleLogsList(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)

	q := r.URL.Query()
	filter := store.LogFilter{
		Search:       q.Get("search"),
		FollowUpOnly: q.Get("follow_up_only") == "true",
	}
	if sev := q.Get("severity"); sev != "" && sev != "all" {
		if !store.ValidSeverity(sev) {
			s.writeError(w, http.StatusBadRequest, "Unknown severity.")
			return
		}
		filter.Severity = sev
	}

	entries, err := s.logs.ListLogEntries(r.Context(), sess.Identity, filter)
	if err != nil {
		s.logger.Error("failed to list log entries", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load logs.")
		return
	}

	out := make([]logEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLogEntryResponse(e))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"logs":        out,
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// logCreateRequest is the body shape for creating a log entry.
type logCreateRequest struct {
	CustomerName     string `json:"customerName"`
	CustomerEmail    string `json:"customerEmail"`
	EventType        string `json:"eventType"`
	Message          string `json:"message"`
	Severity         string `json:"severity"`
	FollowUpRequired bool   `json:"followUpRequired"`
	AssignedOwner    string `json:"assignedOwner"`
}

func (s *Server) handleLogsCreate(w http.ResponseWriter, r *http.Request) {
	var req logCreateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if req.CustomerName == "" || req.CustomerEmail == "" || req.EventType == "" || req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "customerName, customerEmail, eventType, and message are required.")
		return
	}
	if !store.ValidSeverity(req.Severity) {
		s.writeError(w, http.StatusBadRequest, "Unknown severity.")
		return
	}

	entry := &store.LogEntry{
		Owner:            sessionFromContext(r).Identity,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		EventType:        req.EventType,
		Message:          req.Message,
		Severity:         req.Severity,
		FollowUpRequired: req.FollowUpRequired,
		AssignedOwner:    req.AssignedOwner,
	}

	if err := s.logs.CreateLogEntry(r.Context(), entry); err != nil {
		s.logger.Error("failed to create log entry", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to create log entry.")
		return
	}

	s.writeJSON(w, http.StatusCreated, toLogEntryResponse(entry))
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "Not found.")
}
