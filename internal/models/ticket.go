package models

import (
	"time"

	"github.com/lib/pq"
)

type TicketStatus string

const (
	StatusNew    TicketStatus = "NEW"
	StatusOpen   TicketStatus = "OPEN"
	StatusClosed TicketStatus = "CLOSED"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Ticket is one customer inquiry thread. AI-derived fields (summary,
// sentiment, priority, suggested answer) are only set when canonical text is
// non-empty.
type Ticket struct {
	ID       string       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID string       `gorm:"column:tenant_id;type:uuid;index" json:"tenant_id"`
	Status   TicketStatus `gorm:"column:status;type:text" json:"status"`

	CustomerEmail string `gorm:"column:customer_email;type:text" json:"customer_email,omitempty"`
	CustomerName  string `gorm:"column:customer_name;type:text" json:"customer_name,omitempty"`

	OriginalText string `gorm:"column:original_text;type:text" json:"original_text"`
	AudioPath    string `gorm:"column:audio_path;type:text" json:"audio_path,omitempty"`
	ImagePath    string `gorm:"column:image_path;type:text" json:"image_path,omitempty"`
	Transcript   string `gorm:"column:transcript;type:text" json:"transcript,omitempty"`

	AISummary       string    `gorm:"column:ai_summary;type:text" json:"ai_summary,omitempty"`
	Sentiment       Sentiment `gorm:"column:sentiment;type:text" json:"sentiment,omitempty"`
	SentimentScore  float64   `gorm:"column:sentiment_score;type:numeric(3,2)" json:"sentiment_score"`
	Priority        Priority  `gorm:"column:priority;type:text" json:"priority,omitempty"`
	SuggestedAnswer string    `gorm:"column:suggested_answer;type:text" json:"suggested_answer,omitempty"`

	// SessionID groups tickets coming from one client device.
	SessionID string `gorm:"column:session_id;type:text;index" json:"session_id"`
	IsClosed  bool   `gorm:"column:is_closed" json:"is_closed"`

	// Accumulator: ordered client message ids pending since the last
	// operator reply. Emptied atomically when an operator message lands.
	PendingMessageIDs   pq.StringArray `gorm:"column:pending_message_ids;type:text[]" json:"pending_message_ids"`
	LastOperatorReplyAt *time.Time     `gorm:"column:last_operator_reply_at;type:timestamptz" json:"last_operator_reply_at,omitempty"`

	CreatedAt time.Time  `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
	ClosedAt  *time.Time `gorm:"column:closed_at;type:timestamptz" json:"closed_at,omitempty"`
}

func (Ticket) TableName() string { return "tickets" }
