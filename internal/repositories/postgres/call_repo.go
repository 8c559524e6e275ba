package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/MKA06/luron-voice/internal/models"
	"github.com/MKA06/luron-voice/internal/utils"
)

type CallRepository interface {
	Insert(ctx context.Context, call *models.Call) error
	GetByID(ctx context.Context, id string) (*models.Call, error)
	GetByTwilioSid(ctx context.Context, sid string) (*models.Call, error)
	Update(ctx context.Context, call *models.Call) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Call, error)
}

type callRepo struct {
	db *gorm.DB
}

func NewCallRepo(db *gorm.DB) CallRepository {
	return &callRepo{db: db}
}

func (r *callRepo) Insert(ctx context.Context, call *models.Call) error {
	return r.db.WithContext(ctx).Create(call).Error
}

func (r *callRepo) GetByID(ctx context.Context, id string) (*models.Call, error) {
	var c models.Call
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &c, err
}

func (r *callRepo) GetByTwilioSid(ctx context.Context, sid string) (*models.Call, error) {
	var c models.Call
	err := r.db.WithContext(ctx).Where("twilio_call_sid = ?", sid).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &c, err
}

func (r *callRepo) Update(ctx context.Context, call *models.Call) error {
	return r.db.WithContext(ctx).Save(call).Error
}

func (r *callRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Call, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Call
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
