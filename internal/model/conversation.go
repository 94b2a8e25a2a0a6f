package model

import "time"

// Session is one chat conversation. Its turns are Messages.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn. Assistant turns carry the route that produced them.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Role      string    `gorm:"size:16;not null;index" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	QueryType string    `gorm:"size:16" json:"query_type,omitempty"`
	ToolsUsed []string  `gorm:"type:text;serializer:json" json:"tools_used,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
