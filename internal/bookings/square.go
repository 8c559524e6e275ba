package bookings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	pgrepo "github.com/MKA06/luron-voice/internal/repositories/postgres"
	"github.com/MKA06/luron-voice/internal/tools"
	"github.com/MKA06/luron-voice/internal/utils"
)

const (
	productionBaseURL = "https://connect.squareup.com"
	sandboxBaseURL    = "https://connect.squareupsandbox.com"

	apiVersion = "2024-12-18"

	// Tokens expiring within this window are refreshed up front so a call
	// does not fail halfway through a multi-request operation.
	refreshSkew = 5 * time.Minute

	maxSlotsInSummary = 20
)

// SquareClient implements the bookings tool contract against the Square
// Bookings API using each user's stored OAuth tokens.
type SquareClient struct {
	creds        pgrepo.CredentialRepository
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client
	log          *logrus.Entry
}

func NewSquareClient(creds pgrepo.CredentialRepository, clientID, clientSecret string, sandbox bool, log *logrus.Entry) *SquareClient {
	base := productionBaseURL
	if sandbox {
		base = sandboxBaseURL
	}
	return &SquareClient{
		creds:        creds,
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      base,
		http:         &http.Client{Timeout: 15 * time.Second},
		log:          log,
	}
}

var _ tools.BookingAPI = (*SquareClient)(nil)

// Availability lists open slots over the next daysAhead days and renders
// them as a short summary the model can read out loud.
func (c *SquareClient) Availability(ctx context.Context, userID string, daysAhead int, locationID string) (string, error) {
	const op = "SquareClient.Availability"

	token, err := c.accessToken(ctx, userID)
	if err != nil {
		return "", err
	}

	if locationID == "" {
		locationID, err = c.firstLocation(ctx, token)
		if err != nil {
			return "", utils.E(utils.CodeUnavailable, op, "location lookup failed", err)
		}
	}
	serviceID, err := c.firstServiceVariation(ctx, token)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "no bookable services configured", err)
	}

	now := time.Now().UTC()
	body := map[string]any{
		"query": map[string]any{
			"filter": map[string]any{
				"location_id": locationID,
				"start_at_range": map[string]any{
					"start_at": now.Format(time.RFC3339),
					"end_at":   now.AddDate(0, 0, daysAhead).Format(time.RFC3339),
				},
				"segment_filters": []map[string]any{
					{"service_variation_id": serviceID},
				},
			},
		},
	}

	var resp struct {
		Availabilities []slot `json:"availabilities"`
	}
	if err := c.do(ctx, token, http.MethodPost, "/v2/bookings/availability/search", body, &resp); err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "availability search failed", err)
	}

	_ = c.creds.TouchSquare(ctx, userID)
	return summarizeSlots(resp.Availabilities, daysAhead), nil
}

// CreateBooking creates a Square customer when needed and books the first
// available service at the requested time.
func (c *SquareClient) CreateBooking(ctx context.Context, req tools.BookingRequest) (string, error) {
	const op = "SquareClient.CreateBooking"

	token, err := c.accessToken(ctx, req.UserID)
	if err != nil {
		return "", err
	}

	start, err := time.Parse(time.RFC3339, req.BookingTime)
	if err != nil {
		return "", utils.E(utils.CodeInvalidArgument, op, "booking_time must be RFC 3339", err)
	}

	locationID := req.LocationID
	if locationID == "" {
		locationID, err = c.firstLocation(ctx, token)
		if err != nil {
			return "", utils.E(utils.CodeUnavailable, op, "location lookup failed", err)
		}
	}

	customerID, err := c.createCustomer(ctx, token, req)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "customer creation failed", err)
	}

	booking := map[string]any{
		"location_id": locationID,
		"start_at":    start.UTC().Format(time.RFC3339),
		"customer_id": customerID,
	}
	if req.CustomerNote != "" {
		booking["customer_note"] = req.CustomerNote
	}

	var resp struct {
		Booking struct {
			ID      string `json:"id"`
			StartAt string `json:"start_at"`
		} `json:"booking"`
	}
	if err := c.do(ctx, token, http.MethodPost, "/v2/bookings", map[string]any{"booking": booking}, &resp); err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "booking request failed", err)
	}

	_ = c.creds.TouchSquare(ctx, req.UserID)
	return fmt.Sprintf("Booked %s for %s at %s (confirmation %s)",
		req.CustomerName, start.Format("Monday, January 2"), start.Format("3:04 PM"), resp.Booking.ID), nil
}

// accessToken returns a valid token for the user, refreshing and persisting
// it when expired or close to expiry.
func (c *SquareClient) accessToken(ctx context.Context, userID string) (string, error) {
	const op = "SquareClient.accessToken"

	cred, err := c.creds.GetSquare(ctx, userID)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "no square credentials for user", err)
	}
	if cred.ExpiresAt.IsZero() || time.Until(cred.ExpiresAt) > refreshSkew {
		return cred.AccessToken, nil
	}
	if cred.RefreshToken == "" {
		return "", utils.E(utils.CodeUnavailable, op, "token expired and no refresh token stored", nil)
	}

	body := map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"grant_type":    "refresh_token",
		"refresh_token": cred.RefreshToken,
	}
	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresAt    string `json:"expires_at"`
	}
	if err := c.do(ctx, "", http.MethodPost, "/oauth2/token", body, &resp); err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "token refresh failed, user must re-authenticate", err)
	}

	expiresAt, _ := time.Parse(time.RFC3339, resp.ExpiresAt)
	if err := c.creds.SaveSquareToken(ctx, userID, resp.AccessToken, resp.RefreshToken, expiresAt); err != nil {
		c.log.WithError(err).WithField("user_id", userID).Warn("failed to persist refreshed square token")
	}
	return resp.AccessToken, nil
}

func (c *SquareClient) firstLocation(ctx context.Context, token string) (string, error) {
	var resp struct {
		Locations []struct {
			ID string `json:"id"`
		} `json:"locations"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/v2/locations", nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Locations) == 0 {
		return "", fmt.Errorf("merchant has no locations")
	}
	return resp.Locations[0].ID, nil
}

// firstServiceVariation picks the first appointment service in the catalog.
// Availability search requires a segment filter even when the merchant only
// offers one service.
func (c *SquareClient) firstServiceVariation(ctx context.Context, token string) (string, error) {
	var resp struct {
		Objects []struct {
			Type     string `json:"type"`
			ItemData struct {
				Variations []struct {
					ID string `json:"id"`
				} `json:"variations"`
			} `json:"item_data"`
		} `json:"objects"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/v2/catalog/list?types=ITEM", nil, &resp); err != nil {
		return "", err
	}
	for _, obj := range resp.Objects {
		if obj.Type == "ITEM" && len(obj.ItemData.Variations) > 0 {
			return obj.ItemData.Variations[0].ID, nil
		}
	}
	return "", fmt.Errorf("no bookable service variations in catalog")
}

func (c *SquareClient) createCustomer(ctx context.Context, token string, req tools.BookingRequest) (string, error) {
	given, family := splitName(req.CustomerName)
	body := map[string]any{
		"given_name":  given,
		"family_name": family,
		"note":        "Created by voice agent",
	}
	if req.CustomerEmail != "" {
		body["email_address"] = req.CustomerEmail
	}
	if req.CustomerPhone != "" {
		body["phone_number"] = req.CustomerPhone
	}

	var resp struct {
		Customer struct {
			ID string `json:"id"`
		} `json:"customer"`
	}
	if err := c.do(ctx, token, http.MethodPost, "/v2/customers", body, &resp); err != nil {
		return "", err
	}
	return resp.Customer.ID, nil
}

func (c *SquareClient) do(ctx context.Context, token, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Square-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("square api %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(payload, out)
}

type slot struct {
	StartAt string `json:"start_at"`
}

func summarizeSlots(slots []slot, daysAhead int) string {
	if len(slots) == 0 {
		return fmt.Sprintf("No open booking slots in the next %d days.", daysAhead)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d open slots in the next %d days.", len(slots), daysAhead)

	currentDay := ""
	shown := 0
	for _, slot := range slots {
		t, err := time.Parse(time.RFC3339, slot.StartAt)
		if err != nil {
			continue
		}
		day := t.Format("Monday, January 2")
		if day != currentDay {
			currentDay = day
			fmt.Fprintf(&b, " %s:", day)
		}
		fmt.Fprintf(&b, " %s", t.Format("3:04 PM"))
		shown++
		if shown >= maxSlotsInSummary {
			break
		}
	}
	return b.String()
}

func splitName(full string) (given, family string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "Guest", "Customer"
	case 1:
		return parts[0], "Customer"
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
