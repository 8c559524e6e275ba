package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/MKA06/luron-voice/internal/models"
	"github.com/MKA06/luron-voice/internal/utils"
)

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	// AddMonthlyDuration atomically adds seconds to the profile's monthly
	// usage and returns the updated row.
	AddMonthlyDuration(ctx context.Context, userID string, seconds int64) (*models.Profile, error)
	SetSubscriptionStatus(ctx context.Context, userID, status string) error
}

type profileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *profileRepo) AddMonthlyDuration(ctx context.Context, userID string, seconds int64) (*models.Profile, error) {
	err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("monthly_duration", gorm.Expr("monthly_duration + ?", seconds)).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

func (r *profileRepo) SetSubscriptionStatus(ctx context.Context, userID, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("subscription_status", status).Error
}
