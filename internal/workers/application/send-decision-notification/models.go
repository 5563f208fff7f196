// internal/workers/application/send-decision-notification/models.go
package senddecisionnotification

type Input struct {
	ApplicationID string `json:"applicationId"`
	UserID        string `json:"userId"`
	Status        string `json:"status"`
	ProjectTitle  string `json:"projectTitle,omitempty"`
	ReviewNotes   string `json:"reviewNotes,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"` // "sent", "failed", "disabled"
	Channels       []string `json:"channels,omitempty"`
	SentAt         string   `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type template struct {
	Subject string
	Body    string
	SMS     string
}
