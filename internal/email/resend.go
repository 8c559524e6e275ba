package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MKA06/luron-voice/internal/utils"
)

const resendURL = "https://api.resend.com/emails"

// ResendMailer sends transactional email through the Resend HTTP API.
type ResendMailer struct {
	apiKey string
	from   string
	http   *http.Client
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	if from == "" {
		from = "Luron <voice@info.luron.ai>"
	}
	return &ResendMailer{
		apiKey: apiKey,
		from:   from,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SendSimple sends a plain text message, mirrored into minimal HTML so mail
// clients that ignore the text part still render it.
func (m *ResendMailer) SendSimple(ctx context.Context, to, subject, message string) error {
	const op = "ResendMailer.SendSimple"

	payload := map[string]any{
		"from":    m.from,
		"to":      []string{to},
		"subject": subject,
		"text":    message,
		"html":    "<p>" + strings.ReplaceAll(message, "\n", "<br>") + "</p>",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "marshal failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendURL, bytes.NewReader(body))
	if err != nil {
		return utils.E(utils.CodeInternal, op, "request build failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "send failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return utils.E(utils.CodeUnavailable, op,
			fmt.Sprintf("resend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
	}
	return nil
}
