package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/MKA06/luron-voice/internal/models"
	"github.com/MKA06/luron-voice/internal/utils"
)

// CredentialRepository stores per-user OAuth tokens for the calendar and
// bookings integrations. Token refresh happens in the provider packages;
// refreshed tokens are written back here.
type CredentialRepository interface {
	GetGoogle(ctx context.Context, userID string) (*models.GoogleCredential, error)
	SaveGoogleToken(ctx context.Context, userID, accessToken, refreshToken string, expiresAt time.Time) error

	GetSquare(ctx context.Context, userID string) (*models.SquareCredential, error)
	SaveSquareToken(ctx context.Context, userID, accessToken, refreshToken string, expiresAt time.Time) error
	TouchSquare(ctx context.Context, userID string) error
}

type credentialRepo struct {
	db *gorm.DB
}

func NewCredentialRepo(db *gorm.DB) CredentialRepository {
	return &credentialRepo{db: db}
}

func (r *credentialRepo) GetGoogle(ctx context.Context, userID string) (*models.GoogleCredential, error) {
	var c models.GoogleCredential
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &c, err
}

func (r *credentialRepo) SaveGoogleToken(ctx context.Context, userID, accessToken, refreshToken string, expiresAt time.Time) error {
	updates := map[string]any{
		"access_token": accessToken,
		"expires_at":   expiresAt,
		"updated_at":   time.Now().UTC(),
	}
	// Some refresh responses omit the refresh token; keep the stored one.
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	return r.db.WithContext(ctx).
		Model(&models.GoogleCredential{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

func (r *credentialRepo) GetSquare(ctx context.Context, userID string) (*models.SquareCredential, error) {
	var c models.SquareCredential
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &c, err
}

func (r *credentialRepo) SaveSquareToken(ctx context.Context, userID, accessToken, refreshToken string, expiresAt time.Time) error {
	updates := map[string]any{
		"access_token": accessToken,
		"expires_at":   expiresAt,
		"updated_at":   time.Now().UTC(),
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	return r.db.WithContext(ctx).
		Model(&models.SquareCredential{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

func (r *credentialRepo) TouchSquare(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Model(&models.SquareCredential{}).
		Where("user_id = ?", userID).
		Update("last_used_at", time.Now().UTC()).Error
}
