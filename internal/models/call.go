package models

import (
	"time"

	"gorm.io/datatypes"
)

// Call dispositions written at call end.
const (
	DispositionSuccess   = "success"
	DispositionNoAnswer  = "no_answer"
	DispositionVoicemail = "voicemail"
	DispositionFailed    = "failed"
)

type Call struct {
	ID      string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	AgentID string `gorm:"column:agent_id;type:uuid" json:"agent_id"`
	UserID  string `gorm:"column:user_id;type:uuid" json:"user_id"`

	TwilioCallSid string `gorm:"column:twilio_call_sid;type:text" json:"twilio_call_sid"`
	FromNumber    string `gorm:"column:from_number;type:text" json:"from_number"`
	ToNumber      string `gorm:"column:to_number;type:text" json:"to_number"`

	CallStatus  string `gorm:"column:call_status;type:text" json:"call_status"` // in-progress|answered|failed
	Transcript  string `gorm:"column:transcript;type:text" json:"transcript"`
	Intent      string `gorm:"column:intent;type:text" json:"intent"`
	Disposition string `gorm:"column:disposition;type:text" json:"disposition"`

	RecordingURL      string  `gorm:"column:recording_url;type:text" json:"recording_url"`
	RecordingDuration float64 `gorm:"column:recording_duration" json:"recording_duration"`
	DurationSec       int64   `gorm:"column:duration_sec" json:"duration_sec"`

	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Call) TableName() string { return "calls" }
