package tools

import (
	"context"
	"encoding/json"

	"github.com/MKA06/luron-voice/internal/utils"
)

// BookingAPI is the interface boundary to the merchant booking backend.
// Only the call/response contract matters here; credentials and vendor
// specifics live behind the implementation.
type BookingAPI interface {
	Availability(ctx context.Context, userID string, daysAhead int, locationID string) (string, error)
	CreateBooking(ctx context.Context, req BookingRequest) (string, error)
}

type BookingRequest struct {
	UserID        string `json:"user_id"`
	BookingTime   string `json:"booking_time"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`
	CustomerNote  string `json:"customer_note"`
	LocationID    string `json:"location_id"`
}

// BookingAvailabilityTool checks open booking slots.
type BookingAvailabilityTool struct {
	API BookingAPI
}

func (t *BookingAvailabilityTool) Name() string { return "get_booking_availability" }

func (t *BookingAvailabilityTool) Description() string { return "Check booking availability" }

func (t *BookingAvailabilityTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id":     map[string]any{"type": "string"},
			"days_ahead":  map[string]any{"type": "integer", "description": "Days ahead (default 7)"},
			"location_id": map[string]any{"type": "string"},
		},
		"required": []string{},
	}
}

func (t *BookingAvailabilityTool) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "BookingAvailabilityTool.Execute"

	var args struct {
		UserID     string `json:"user_id"`
		DaysAhead  int    `json:"days_ahead"`
		LocationID string `json:"location_id"`
	}
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

	out, err := t.API.Availability(ctx, args.UserID, args.DaysAhead, args.LocationID)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "availability lookup failed", err)
	}
	return map[string]string{"availability": out}, nil
}

// CreateBookingTool books an appointment on behalf of the caller.
type CreateBookingTool struct {
	API BookingAPI
}

func (t *CreateBookingTool) Name() string { return "create_booking" }

func (t *CreateBookingTool) Description() string { return "Create a booking" }

func (t *CreateBookingTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id":        map[string]any{"type": "string"},
			"booking_time":   map[string]any{"type": "string"},
			"customer_name":  map[string]any{"type": "string"},
			"customer_phone": map[string]any{"type": "string"},
			"customer_email": map[string]any{"type": "string"},
			"customer_note":  map[string]any{"type": "string"},
			"location_id":    map[string]any{"type": "string"},
		},
		"required": []string{"booking_time", "customer_name"},
	}
}

func (t *CreateBookingTool) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "CreateBookingTool.Execute"

	var args struct {
		BookingRequest
		// Injected by the session so the model does not have to ask for it.
		CallerNumber string `json:"caller_number"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "invalid arguments", err)
		}
	}
	req := args.BookingRequest
	if req.UserID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required for booking creation", nil)
	}
	if req.BookingTime == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "booking_time is required", nil)
	}
	if req.CustomerPhone == "" {
		req.CustomerPhone = args.CallerNumber
	}

	out, err := t.API.CreateBooking(ctx, req)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "booking creation failed", err)
	}
	return map[string]string{"booking": out}, nil
}
