package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/MKA06/luron-voice/internal/models"
	"github.com/MKA06/luron-voice/internal/utils"
)

type AgentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Agent, error)
	GetByPhoneNumber(ctx context.Context, number string) (*models.Agent, error)
}

type agentRepo struct {
	db *gorm.DB
}

func NewAgentRepo(db *gorm.DB) AgentRepository {
	return &agentRepo{db: db}
}

func (r *agentRepo) GetByID(ctx context.Context, id string) (*models.Agent, error) {
	var a models.Agent
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &a, err
}

func (r *agentRepo) GetByPhoneNumber(ctx context.Context, number string) (*models.Agent, error) {
	var a models.Agent
	err := r.db.WithContext(ctx).Where("phone_number = ?", number).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &a, err
}
