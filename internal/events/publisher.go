// Package events publishes live call-status updates to Redis channels so
// dashboards can follow a call without touching the media path.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status values published over a call's channel.
const (
	StatusStarted           = "started"
	StatusUserSpeaking      = "user_speaking"
	StatusAssistantSpeaking = "assistant_speaking"
	StatusTool              = "tool"
	StatusEnded             = "ended"
)

type statusEvent struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	TsUnix  int64  `json:"ts_unix"`
}

// Publisher fans call lifecycle events out on "call:{id}:status". Publishing
// is fail-soft: a Redis outage never disturbs the live call.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Publish(ctx context.Context, callID, status, message string) {
	if p == nil || p.rdb == nil {
		return
	}
	payload, err := json.Marshal(statusEvent{
		Type:    "status",
		Status:  status,
		Message: message,
		TsUnix:  time.Now().UTC().Unix(),
	})
	if err != nil {
		return
	}
	_ = p.rdb.Publish(ctx, "call:"+callID+":status", payload).Err()
}
