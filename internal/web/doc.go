// Package web is the HTTP gateway for opslog.
//
// Every request passes the same ordered gates, each depending on the one
// before it:
//
//  1. Session resolution: the session cookie is resolved (or a fresh
//     anonymous session is created) before anything else, so a CSRF token
//     exists even for first-time visitors.
//  2. CSRF verification: state-changing authentication endpoints compare
//     the X-CSRF-Token header against the session's current token and fail
//     closed with 403.
//  3. Rate limiting: signup and login record an attempt against the
//     caller's source address before any credential work runs.
//  4. Credential operation: registration or verification against the
//     credential store.
//  5. Session mutation: on success the identity is bound (or cleared) and
//     the CSRF token rotated in a single critical section.
//
// Endpoints:
//
//   - GET  /api/health - liveness check
//   - GET  /api/csrf   - rotate and return the session's CSRF token
//   - GET  /api/me     - identity bound to the session, 401 if anonymous
//   - POST /api/signup - register a principal (201/400/403/409/429)
//   - POST /api/login  - authenticate (200/401/403/429)
//   - POST /api/logout - clear the binding, always 200 (403 on bad CSRF)
//   - GET  /api/token  - mint a short-lived bearer token (auth required)
//   - GET  /api/logs   - list the caller's customer log entries
//   - POST /api/logs   - create a customer log entry
//   - /                - embedded frontend
package web
