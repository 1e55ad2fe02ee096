package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SuggestionRecord is the audit trail of one generated suggested answer.
// Documents expire via the TTL index on expires_at.
type SuggestionRecord struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TicketID string             `bson:"ticket_id" json:"ticket_id"`

	Answer          string   `bson:"answer" json:"answer"`
	MessagesCount   int      `bson:"messages_count" json:"messages_count"`
	MessageIDs      []string `bson:"message_ids,omitempty" json:"message_ids,omitempty"`
	IsFirstResponse bool     `bson:"is_first_response" json:"is_first_response"`

	ProcessingTimeMS int64     `bson:"processing_time_ms,omitempty" json:"processing_time_ms,omitempty"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
