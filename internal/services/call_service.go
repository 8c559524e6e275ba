package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MKA06/luron-voice/internal/models"
	pgrepo "github.com/MKA06/luron-voice/internal/repositories/postgres"
	"github.com/MKA06/luron-voice/internal/utils"
)

type CallService interface {
	// Create records an answered inbound call at intake time.
	Create(ctx context.Context, agent *models.Agent, twilioCallSid, from, to string) (*models.Call, error)
	GetByTwilioSid(ctx context.Context, sid string) (*models.Call, error)
	Get(ctx context.Context, id string) (*models.Call, error)
	// Finalize writes the post-call fields once at call end.
	Finalize(ctx context.Context, call *models.Call) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Call, error)
}

type callService struct {
	calls pgrepo.CallRepository
}

func NewCallService(calls pgrepo.CallRepository) CallService {
	return &callService{calls: calls}
}

func (s *callService) Create(ctx context.Context, agent *models.Agent, twilioCallSid, from, to string) (*models.Call, error) {
	const op = "CallService.Create"

	if agent == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "agent is required", nil)
	}
	if twilioCallSid == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "twilio call sid is required", nil)
	}

	call := &models.Call{
		ID:            uuid.NewString(),
		AgentID:       agent.ID,
		UserID:        agent.UserID,
		TwilioCallSid: twilioCallSid,
		FromNumber:    from,
		ToNumber:      to,
		CallStatus:    "in-progress",
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.calls.Insert(ctx, call); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert call", err)
	}
	return call, nil
}

func (s *callService) GetByTwilioSid(ctx context.Context, sid string) (*models.Call, error) {
	const op = "CallService.GetByTwilioSid"

	if sid == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "twilio call sid is required", nil)
	}
	c, err := s.calls.GetByTwilioSid(ctx, sid)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "call not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get call", err)
	}
	return c, nil
}

func (s *callService) Get(ctx context.Context, id string) (*models.Call, error) {
	const op = "CallService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call id is required", nil)
	}
	c, err := s.calls.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "call not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get call", err)
	}
	return c, nil
}

func (s *callService) Finalize(ctx context.Context, call *models.Call) error {
	const op = "CallService.Finalize"

	if call == nil || call.ID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "call is required", nil)
	}
	if err := s.calls.Update(ctx, call); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update call", err)
	}
	return nil
}

func (s *callService) ListByUser(ctx context.Context, userID string, limit int) ([]models.Call, error) {
	const op = "CallService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.calls.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list calls", err)
	}
	return rows, nil
}
