package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// EndCallName is checked by the session relay: a finished end_call job makes
// the relay hang up after the goodbye finishes playing out.
const EndCallName = "end_call"

// Mailer is the interface boundary to the outbound email collaborator.
type Mailer interface {
	SendSimple(ctx context.Context, to, subject, message string) error
}

// EndCallTool lets the model terminate the call, recording what an unwanted
// caller was trying to sell and notifying the configured recipient.
type EndCallTool struct {
	Mailer   Mailer
	NotifyTo string
}

func (t *EndCallTool) Name() string { return EndCallName }

func (t *EndCallTool) Description() string { return "End the call" }

func (t *EndCallTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sales_item": map[string]any{"type": "string"},
			"summary":    map[string]any{"type": "string"},
		},
		"required": []string{},
	}
}

func (t *EndCallTool) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		SalesItem string `json:"sales_item"`
		Summary   string `json:"summary"`
		// Injected by the session.
		CallerNumber string `json:"caller_number"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &args)
	}

	if args.Summary != "" && t.Mailer != nil && t.NotifyTo != "" {
		caller := args.CallerNumber
		if caller == "" {
			caller = "Unknown"
		}
		body := fmt.Sprintf("Caller Number: %s\n\n%s", caller, args.Summary)
		// Best effort: a failed notification must not block the hangup.
		_ = t.Mailer.SendSimple(ctx, t.NotifyTo, "Sales Inquiry", body)
	}

	return map[string]string{"message": "Thank you for your time. Have a great day!"}, nil
}
