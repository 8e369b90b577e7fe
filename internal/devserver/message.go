package devserver

import (
	"time"

	"github.com/pelusa-v/mailgram/internal/events"
)

type UserRecord struct {
	ID       string
	Name     string
	Username string
	Email    string
	Phone    string
	Active   bool
	Created  time.Time
}

// MessageRecord is one relayed message. Exactly one of ReceiverID and
// GroupID is set.
type MessageRecord struct {
	ID         string
	SenderID   string
	ReceiverID string
	GroupID    string
	Kind       events.Kind
	Content    string
	Time       time.Time
}

type GroupRecord struct {
	ID        string
	Name      string
	CreatorID string
	Created   time.Time
}

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportReviewed ReportStatus = "reviewed"
	ReportResolved ReportStatus = "resolved"
)

type ReportRecord struct {
	ID         string
	ReporterID string
	ReportedID string
	Reason     string
	Status     ReportStatus
	Time       time.Time
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

// bulkRequest and bulkResponse are the admin bulk-action wire format.
type bulkRequest struct {
	Action string   `json:"action"`
	Items  []string `json:"items"`
}

type bulkResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type uploadResponse struct {
	Success bool   `json:"success"`
	FileURL string `json:"file_url,omitempty"`
	Error   string `json:"error,omitempty"`
}
