package models

import "time"

// GoogleCredential holds a user's Calendar OAuth tokens. The OAuth client
// (id, secret, endpoints) is process configuration; only per-user tokens
// live here.
type GoogleCredential struct {
	UserID       string    `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	AccessToken  string    `gorm:"column:access_token;type:text" json:"-"`
	RefreshToken string    `gorm:"column:refresh_token;type:text" json:"-"`
	ExpiresAt    time.Time `gorm:"column:expires_at;type:timestamptz" json:"expires_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (GoogleCredential) TableName() string { return "google_credentials" }

// SquareCredential holds a user's Square OAuth tokens for the bookings
// integration.
type SquareCredential struct {
	UserID       string    `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	MerchantID   string    `gorm:"column:merchant_id;type:text" json:"merchant_id"`
	AccessToken  string    `gorm:"column:access_token;type:text" json:"-"`
	RefreshToken string    `gorm:"column:refresh_token;type:text" json:"-"`
	ExpiresAt    time.Time `gorm:"column:expires_at;type:timestamptz" json:"expires_at"`
	LastUsedAt   time.Time `gorm:"column:last_used_at;type:timestamptz" json:"last_used_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (SquareCredential) TableName() string { return "square_credentials" }
