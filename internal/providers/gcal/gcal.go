package gcal

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	pgrepo "github.com/MKA06/luron-voice/internal/repositories/postgres"
	"github.com/MKA06/luron-voice/internal/utils"
)

// Provider builds an authorized Calendar client from a user's stored OAuth
// tokens, refreshing and persisting the access token when it has expired.
type Provider struct {
	creds        pgrepo.CredentialRepository
	clientID     string
	clientSecret string
	log          *logrus.Entry
}

func NewProvider(creds pgrepo.CredentialRepository, clientID, clientSecret string, log *logrus.Entry) *Provider {
	return &Provider{creds: creds, clientID: clientID, clientSecret: clientSecret, log: log}
}

func (p *Provider) Service(ctx context.Context, userID string) (*calendar.Service, error) {
	const op = "gcal.Provider.Service"

	stored, err := p.creds.GetGoogle(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "no google credentials for user", err)
	}

	conf := &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarScope},
	}
	tok := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		Expiry:       stored.ExpiresAt,
		TokenType:    "Bearer",
	}

	src := conf.TokenSource(ctx, tok)
	fresh, err := src.Token()
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "token refresh failed, user must re-authenticate", err)
	}
	if fresh.AccessToken != stored.AccessToken {
		// Persisting is best effort; a write failure only costs one extra
		// refresh on the next call.
		if err := p.creds.SaveGoogleToken(ctx, userID, fresh.AccessToken, fresh.RefreshToken, fresh.Expiry); err != nil {
			p.log.WithError(err).WithField("user_id", userID).Warn("failed to persist refreshed google token")
		}
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(fresh)))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "calendar client init failed", err)
	}
	return svc, nil
}
