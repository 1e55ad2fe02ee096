package models

import (
	"time"

	"gorm.io/datatypes"
)

type SenderRole string

const (
	SenderClient   SenderRole = "CLIENT"
	SenderOperator SenderRole = "OPERATOR"
)

// MessageAnnotations is the side-channel metadata attached to a message.
// Exactly two keys are recognized; neither is ever merged into the message
// body.
type MessageAnnotations struct {
	Transcript   string `json:"transcript,omitempty"`
	ImageCaption string `json:"image_caption,omitempty"`
}

func (a MessageAnnotations) Empty() bool {
	return a.Transcript == "" && a.ImageCaption == ""
}

// ChatMessage is one turn in a ticket's conversation. Immutable once created.
type ChatMessage struct {
	ID         string     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TicketID   string     `gorm:"column:ticket_id;type:uuid;index" json:"ticket_id"`
	SenderRole SenderRole `gorm:"column:sender_role;type:text" json:"sender_role"`
	SenderName string     `gorm:"column:sender_name;type:text" json:"sender_name,omitempty"`
	Body       string     `gorm:"column:body;type:text" json:"body"`

	AudioPath string `gorm:"column:audio_path;type:text" json:"audio_path,omitempty"`
	ImagePath string `gorm:"column:image_path;type:text" json:"image_path,omitempty"`

	Annotations datatypes.JSONType[MessageAnnotations] `gorm:"column:annotations;type:jsonb" json:"annotations"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
