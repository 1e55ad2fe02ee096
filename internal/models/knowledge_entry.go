package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingDims is the fixed dimensionality of all stored vectors.
const EmbeddingDims = 768

// KnowledgeEntry is one retrievable unit of tenant knowledge. The embedding
// always covers title+content together and is regenerated before any update
// becomes visible to retrieval.
type KnowledgeEntry struct {
	ID       string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID string `gorm:"column:tenant_id;type:uuid;index" json:"tenant_id"`

	Title   string `gorm:"column:title;type:text" json:"title"`
	Content string `gorm:"column:content;type:text" json:"content"`

	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"-"`

	SourceType string `gorm:"column:source_type;type:text" json:"source_type,omitempty"`
	SourceURL  string `gorm:"column:source_url;type:text" json:"source_url,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (KnowledgeEntry) TableName() string { return "knowledge_entries" }
