package models

import "time"

type Profile struct {
	UserID string `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`

	SubscriptionTier   string `gorm:"column:subscription_tier;type:text" json:"subscription_tier"`     // free|pro
	SubscriptionStatus string `gorm:"column:subscription_status;type:text" json:"subscription_status"` // active|overdue

	// Accumulated call seconds for the current billing month.
	MonthlyDuration int64 `gorm:"column:monthly_duration" json:"monthly_duration"`

	StripeCustomerID string `gorm:"column:stripe_customer_id;type:text" json:"stripe_customer_id"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
