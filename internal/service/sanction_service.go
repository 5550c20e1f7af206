package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/lumostories/telemetry-api/internal/dto"
	"github.com/lumostories/telemetry-api/internal/models"
	"github.com/lumostories/telemetry-api/internal/repository"
)

// Actor is the authenticated operator performing a governance action.
type Actor struct {
	ID   string
	Role string
}

// SanctionService applies and lifts user sanctions. Each transition writes
// the new state to the identity-claims store and then emits a moderation
// log entry. The two writes are sequential, not transactional: state
// correctness is prioritized over a perfect audit trail, and a failed log
// write is absorbed by the sink rather than rolling the state back.
type SanctionService interface {
	Apply(ctx context.Context, uid string, payload dto.SanctionApplyRequest, actor Actor) (dto.SanctionResponse, error)
	Lift(ctx context.Context, uid string, actor Actor) (dto.SanctionResponse, error)
	Get(ctx context.Context, uid string) (dto.SanctionResponse, error)
}

type sanctionService struct {
	claims    repository.ClaimsStore
	log       LogService
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSanctionService constructs the sanction service.
func NewSanctionService(claims repository.ClaimsStore, log LogService, validate *validator.Validate, logger zerolog.Logger) SanctionService {
	return &sanctionService{
		claims:    claims,
		log:       log,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "sanction_service").Logger(),
		now:       time.Now,
	}
}

func (s *sanctionService) Apply(ctx context.Context, uid string, payload dto.SanctionApplyRequest, actor Actor) (dto.SanctionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SanctionResponse{}, err
	}

	if strings.TrimSpace(actor.ID) == "" {
		return dto.SanctionResponse{}, validationErrorf("applied_by is required for sanction transitions")
	}

	kind := models.SanctionKind(payload.Kind)
	reason := models.SanctionReason(payload.Reason)
	duration := models.SanctionDuration(payload.Duration)
	if !kind.Valid() || !reason.Valid() || !duration.Valid() {
		return dto.SanctionResponse{}, validationErrorf("invalid sanction payload")
	}

	note := strings.TrimSpace(s.sanitizer.Sanitize(payload.Note))
	if reason == models.ReasonOther && note == "" {
		return dto.SanctionResponse{}, validationErrorf("reason %q requires a note", models.ReasonOther)
	}

	claims, err := s.claims.Get(ctx, uid)
	if err != nil {
		return dto.SanctionResponse{}, err
	}

	previous := string(models.SanctionNone)
	if claims.Sanction != nil {
		previous = string(claims.Sanction.Kind)
	}

	now := s.now().UTC()
	state := models.SanctionState{
		Kind:      kind,
		Reason:    reason,
		Note:      note,
		Duration:  duration,
		ContextID: strings.TrimSpace(payload.ContextID),
		AppliedBy: actor.ID,
		AppliedAt: now,
	}
	// The expiry instant is fixed here, at apply time, and never
	// re-derived. Expired sanctions stay recorded until the next
	// transition; consumers treat past expiry as equivalent to none.
	if window, ok := duration.Window(); ok {
		expires := now.Add(window)
		state.ExpiresAt = &expires
	}

	claims.Sanction = &state
	if err := s.claims.Set(ctx, uid, claims); err != nil {
		return dto.SanctionResponse{}, err
	}

	s.recordTransition(ctx, "sanction apply", uid, actor, state, previous)

	return dto.NewSanctionResponse(uid, &state, now), nil
}

func (s *sanctionService) Lift(ctx context.Context, uid string, actor Actor) (dto.SanctionResponse, error) {
	if strings.TrimSpace(actor.ID) == "" {
		return dto.SanctionResponse{}, validationErrorf("applied_by is required for sanction transitions")
	}

	claims, err := s.claims.Get(ctx, uid)
	if err != nil {
		return dto.SanctionResponse{}, err
	}

	previous := string(models.SanctionNone)
	if claims.Sanction != nil {
		previous = string(claims.Sanction.Kind)
	}

	claims.Sanction = nil
	if err := s.claims.Set(ctx, uid, claims); err != nil {
		return dto.SanctionResponse{}, err
	}

	s.recordTransition(ctx, "sanction lift", uid, actor, models.SanctionState{Kind: models.SanctionNone}, previous)

	return dto.NewSanctionResponse(uid, nil, s.now().UTC()), nil
}

func (s *sanctionService) Get(ctx context.Context, uid string) (dto.SanctionResponse, error) {
	claims, err := s.claims.Get(ctx, uid)
	if err != nil {
		return dto.SanctionResponse{}, err
	}

	return dto.NewSanctionResponse(uid, claims.Sanction, s.now().UTC()), nil
}

func (s *sanctionService) recordTransition(ctx context.Context, action, uid string, actor Actor, state models.SanctionState, previous string) {
	metadata := map[string]interface{}{"previous": previous}
	if state.ContextID != "" {
		metadata["context_id"] = state.ContextID
	}
	if state.Note != "" {
		metadata["note"] = state.Note
	}
	if state.ExpiresAt != nil {
		metadata["expires_at"] = state.ExpiresAt.Format(time.RFC3339)
	}

	response, err := s.log.Record(ctx, RawEvent{
		Type:     string(models.EventTypeModeration),
		Action:   action,
		Result:   string(models.ResultSuccess),
		ActorID:  actor.ID,
		Params:   []string{uid, string(state.Kind), string(state.Reason), string(state.Duration), previous},
		Metadata: metadata,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record sanction transition")
		return
	}
	if response.WriteStatus != string(WriteOK) {
		s.logger.Warn().Str("action", action).Str("write_status", response.WriteStatus).Msg("sanction transition not durably logged")
	}
}
