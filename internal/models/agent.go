package models

import (
	"time"

	"github.com/lib/pq"
)

type Agent struct {
	ID             string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID         string `gorm:"column:user_id;type:uuid" json:"user_id"`
	Prompt         string `gorm:"column:prompt;type:text" json:"prompt"`
	WelcomeMessage string `gorm:"column:welcome_message;type:text" json:"welcome_message"`

	// Tool names this agent may call during a conversation.
	EnabledTools pq.StringArray `gorm:"column:enabled_tools;type:text[]" json:"enabled_tools"`

	Voice string `gorm:"column:voice;type:text" json:"voice"`

	// Inbound Twilio number routed to this agent.
	PhoneNumber string `gorm:"column:phone_number;type:text" json:"phone_number"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Agent) TableName() string { return "agents" }
