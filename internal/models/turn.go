package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Turn is one finalized conversation turn archived during a live call.
// Turns are inserted fail-soft; the live audio path never blocks on them.
type Turn struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CallID string             `bson:"call_id" json:"call_id"`

	Seq  int64  `bson:"seq" json:"seq"`
	Role string `bson:"role" json:"role"` // user|assistant|tool
	Text string `bson:"text" json:"text"`

	// Tool turns only.
	ToolName string `bson:"tool_name,omitempty" json:"tool_name,omitempty"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
