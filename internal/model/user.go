package model

import "time"

// User owns chat sessions and ingestion records. The uploaded content itself is shared.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Holds reports which of the two login identifiers this account already uses.
func (u *User) Holds(username, email string) (sameName, sameEmail bool) {
	return u.Username == username, u.Email == email
}
