package services

import (
	"context"
	"errors"
	"time"

	"github.com/MKA06/luron-voice/internal/cache"
	"github.com/MKA06/luron-voice/internal/models"
	pgrepo "github.com/MKA06/luron-voice/internal/repositories/postgres"
	"github.com/MKA06/luron-voice/internal/utils"
)

type AgentService interface {
	Get(ctx context.Context, agentID string) (*models.Agent, error)
	GetByPhoneNumber(ctx context.Context, number string) (*models.Agent, error)
}

type agentService struct {
	agents pgrepo.AgentRepository
	cache  cache.Cache
}

const agentCacheTTL = 5 * time.Minute

func NewAgentService(agents pgrepo.AgentRepository, c cache.Cache) AgentService {
	return &agentService{agents: agents, cache: c}
}

// Get fetches an agent config, read-through cached. Agent configs are read
// once per call, at intake, so a short TTL is plenty.
func (s *agentService) Get(ctx context.Context, agentID string) (*models.Agent, error) {
	const op = "AgentService.Get"

	if agentID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "agent_id is required", nil)
	}

	key := "agent:" + agentID
	if s.cache != nil {
		var a models.Agent
		if hit, err := s.cache.GetJSON(ctx, key, &a); err == nil && hit {
			return &a, nil
		}
	}

	a, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "agent not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get agent", err)
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, a, agentCacheTTL)
	}
	return a, nil
}

func (s *agentService) GetByPhoneNumber(ctx context.Context, number string) (*models.Agent, error) {
	const op = "AgentService.GetByPhoneNumber"

	if number == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "phone number is required", nil)
	}

	a, err := s.agents.GetByPhoneNumber(ctx, number)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "no agent for number", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to resolve agent", err)
	}
	return a, nil
}
