// Package billing posts metered call usage to Stripe.
package billing

import (
	"context"
	"math"
	"strconv"
	"time"

	stripe "github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/billing/meterevent"

	"github.com/MKA06/luron-voice/internal/utils"
)

// UsagePoster records billable call minutes.
type UsagePoster interface {
	// PostCallMinutes reports usage for one finished call. Safe to retry:
	// the call SID dedupes repeated submissions.
	PostCallMinutes(ctx context.Context, customerID, callSid string, durationSec float64) error
}

// StripeUsage posts meter events against a configured billing meter.
type StripeUsage struct {
	// MeterEventName matches the meter configured in the Stripe dashboard.
	MeterEventName string
}

func NewStripeUsage(apiKey, meterEventName string) *StripeUsage {
	stripe.Key = apiKey
	if meterEventName == "" {
		meterEventName = "call_minutes"
	}
	return &StripeUsage{MeterEventName: meterEventName}
}

func (s *StripeUsage) PostCallMinutes(ctx context.Context, customerID, callSid string, durationSec float64) error {
	const op = "StripeUsage.PostCallMinutes"

	if customerID == "" || callSid == "" {
		return nil
	}
	minutes := int64(math.Ceil(math.Max(0, durationSec) / 60.0))
	if minutes == 0 {
		return nil
	}

	params := &stripe.BillingMeterEventParams{
		EventName: stripe.String(s.MeterEventName),
		// The identifier dedupes: resubmitting the same call is a no-op.
		Identifier: stripe.String("usage:" + callSid),
		Timestamp:  stripe.Int64(time.Now().UTC().Unix()),
		Payload: map[string]string{
			"stripe_customer_id": customerID,
			"value":              strconv.FormatInt(minutes, 10),
		},
	}
	params.Context = ctx

	if _, err := meterevent.New(params); err != nil {
		return utils.E(utils.CodeUnavailable, op, "stripe meter event failed", err)
	}
	return nil
}
