package domain

import "time"

// EventType groups system log rows for the admin dashboard.
type EventType string

const (
	EventSubmission     EventType = "submission"
	EventPDFGeneration  EventType = "pdf_generation"
	EventAdminApproval  EventType = "admin_approval"
	EventAuth           EventType = "auth_event"
	EventUserManagement EventType = "user_management"
)

func (t EventType) Valid() bool {
	switch t {
	case EventSubmission, EventPDFGeneration, EventAdminApproval, EventAuth, EventUserManagement:
		return true
	}
	return false
}

// SystemLog is one audit row.
type SystemLog struct {
	ID           string         `json:"id"`
	EventType    EventType      `json:"eventType"`
	Action       string         `json:"action"`
	UserID       string         `json:"userId,omitempty"`
	UserName     string         `json:"userName,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// RequestMeta carries caller attributes recorded alongside audit rows.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

const (
	DefaultLogLimit = 100
	MaxLogLimit     = 500
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)
