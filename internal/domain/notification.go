package domain

import "time"

// Severity classifies a user-facing notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarn    Severity = "warn"
	SeverityError   Severity = "error"
)

// Notification is a transient banner shown to the user. Duration 0 means
// sticky: the banner stays visible until explicitly closed.
type Notification struct {
	Message  string
	Severity Severity
	Duration time.Duration
	Visible  bool
	RaisedAt time.Time
}
