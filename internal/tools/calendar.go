package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/MKA06/luron-voice/internal/utils"
)

// CalendarProvider resolves an authorized Calendar API client for a user.
// Token storage and OAuth refresh live outside this package.
type CalendarProvider interface {
	Service(ctx context.Context, userID string) (*calendar.Service, error)
}

// AvailabilityTool summarizes a user's busy/free windows over the next days
// via the Calendar FreeBusy API.
type AvailabilityTool struct {
	Calendars CalendarProvider
}

func (t *AvailabilityTool) Name() string { return "get_availability" }

func (t *AvailabilityTool) Description() string { return "Check calendar availability" }

func (t *AvailabilityTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id":    map[string]any{"type": "string"},
			"days_ahead": map[string]any{"type": "integer", "description": "Days ahead (default 7)"},
		},
		"required": []string{},
	}
}

type availabilityArgs struct {
	UserID    string `json:"user_id"`
	DaysAhead int    `json:"days_ahead"`
}

func (t *AvailabilityTool) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "AvailabilityTool.Execute"

	var args availabilityArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "invalid arguments", err)
		}
	}
	if args.UserID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required for availability check", nil)
	}
	if args.DaysAhead <= 0 {
		args.DaysAhead = 7
	}

	svc, err := t.Calendars.Service(ctx, args.UserID)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "calendar not connected", err)
	}

	now := time.Now().UTC()
	max := now.AddDate(0, 0, args.DaysAhead)
	resp, err := svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: now.Format(time.RFC3339),
		TimeMax: max.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: "primary"}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "freebusy query failed", err)
	}

	summary := summarizeBusy(resp, now, max)
	return map[string]string{"availability": summary}, nil
}

func summarizeBusy(resp *calendar.FreeBusyResponse, from, to time.Time) string {
	var busy []string
	for _, cal := range resp.Calendars {
		for _, b := range cal.Busy {
			start, err1 := time.Parse(time.RFC3339, b.Start)
			end, err2 := time.Parse(time.RFC3339, b.End)
			if err1 != nil || err2 != nil {
				continue
			}
			busy = append(busy, fmt.Sprintf("%s to %s",
				start.Format("Mon Jan 2 15:04"), end.Format("15:04")))
		}
	}
	if len(busy) == 0 {
		return fmt.Sprintf("No events between %s and %s; free the whole period.",
			from.Format("Jan 2"), to.Format("Jan 2"))
	}
	return "Busy: " + strings.Join(busy, ", ") + ". Otherwise free."
}

// MeetingTool creates an event on the user's primary calendar.
type MeetingTool struct {
	Calendars CalendarProvider
}

func (t *MeetingTool) Name() string { return "set_meeting" }

func (t *MeetingTool) Description() string { return "Schedule a meeting" }

func (t *MeetingTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id":          map[string]any{"type": "string"},
			"meeting_name":     map[string]any{"type": "string"},
			"meeting_time":     map[string]any{"type": "string", "description": "RFC 3339 start time"},
			"duration_minutes": map[string]any{"type": "integer"},
			"description":      map[string]any{"type": "string"},
			"location":         map[string]any{"type": "string"},
		},
		"required": []string{"meeting_name", "meeting_time"},
	}
}

type meetingArgs struct {
	UserID          string `json:"user_id"`
	MeetingName     string `json:"meeting_name"`
	MeetingTime     string `json:"meeting_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Description     string `json:"description"`
	Location        string `json:"location"`
}

func (t *MeetingTool) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "MeetingTool.Execute"

	var args meetingArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "invalid arguments", err)
		}
	}
	switch {
	case args.UserID == "":
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required for meeting scheduling", nil)
	case args.MeetingName == "":
		return nil, utils.E(utils.CodeInvalidArgument, op, "meeting_name is required", nil)
	case args.MeetingTime == "":
		return nil, utils.E(utils.CodeInvalidArgument, op, "meeting_time is required", nil)
	}
	if args.DurationMinutes <= 0 {
		args.DurationMinutes = 60
	}

	start, err := time.Parse(time.RFC3339, args.MeetingTime)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "meeting_time must be RFC 3339", err)
	}
	end := start.Add(time.Duration(args.DurationMinutes) * time.Minute)

	svc, err := t.Calendars.Service(ctx, args.UserID)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "calendar not connected", err)
	}

	event, err := svc.Events.Insert("primary", &calendar.Event{
		Summary:     args.MeetingName,
		Description: args.Description,
		Location:    args.Location,
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "event insert failed", err)
	}

	return map[string]string{
		"meeting": fmt.Sprintf("Created %q at %s (%d minutes)", args.MeetingName,
			start.Format("Mon Jan 2 15:04"), args.DurationMinutes),
		"event_id": event.Id,
	}, nil
}
