package models

import "time"

// Tenant is an independent business using the support service. Widget
// requests authenticate with the tenant's API key.
type Tenant struct {
	ID         string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name       string `gorm:"column:name;type:text" json:"name"`
	APIKey     string `gorm:"column:api_key;type:text;uniqueIndex" json:"api_key"`
	WebsiteURL string `gorm:"column:website_url;type:text" json:"website_url,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }
