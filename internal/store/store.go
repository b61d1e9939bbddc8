// ABOUTME: Store types and errors for customer-log persistence
// ABOUTME: Defines LogEntry, severity constants, and list filtering

package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidSeverity is returned when a log entry carries an unknown severity
var ErrInvalidSeverity = errors.New("invalid severity")

// Severity levels for customer log entries
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// ValidSeverity reports whether s is a known severity level.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// LogEntry represents a single customer activity log record owned by a
// registered principal.
type LogEntry struct {
	ID               string
	Owner            string // principal identifier the entry belongs to
	CustomerName     string
	CustomerEmail    string
	EventType        string
	Message          string
	Severity         string
	FollowUpRequired bool
	AssignedOwner    string
	CreatedAt        time.Time
}

// LogFilter narrows ListLogEntries results. Zero values mean "no filter".
type LogFilter struct {
	Search       string // case-insensitive substring over name, email, message
	Severity     string // one of the severity constants
	FollowUpOnly bool
	Limit        int // 0 = no limit
}
