package dto

import (
	"time"

	"github.com/lumostories/telemetry-api/internal/models"
)

// SanctionApplyRequest is the payload for placing a sanction on a user.
type SanctionApplyRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=mute ban"`
	Reason    string `json:"reason" validate:"required,oneof=spam abuse safety copyright user_request other"`
	Duration  string `json:"duration" validate:"required,oneof=permanent 24h 7d 30d"`
	Note      string `json:"note" validate:"omitempty,max=500"`
	ContextID string `json:"context_id" validate:"omitempty,max=255"`
}

// SanctionResponse is the current sanction projection for a user. Expired
// is advisory: the state store is never swept, consumers decide.
type SanctionResponse struct {
	UID       string     `json:"uid"`
	Kind      string     `json:"kind"`
	Reason    string     `json:"reason,omitempty"`
	Note      string     `json:"note,omitempty"`
	Duration  string     `json:"duration,omitempty"`
	ContextID string     `json:"context_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	AppliedBy string     `json:"applied_by,omitempty"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
	Expired   bool       `json:"expired"`
}

// NewSanctionResponse converts a sanction state into a DTO. A nil state
// yields the "none" projection.
func NewSanctionResponse(uid string, state *models.SanctionState, now time.Time) SanctionResponse {
	if state == nil {
		return SanctionResponse{UID: uid, Kind: string(models.SanctionNone)}
	}

	appliedAt := state.AppliedAt
	return SanctionResponse{
		UID:       uid,
		Kind:      string(state.Kind),
		Reason:    string(state.Reason),
		Note:      state.Note,
		Duration:  string(state.Duration),
		ContextID: state.ContextID,
		ExpiresAt: state.ExpiresAt,
		AppliedBy: state.AppliedBy,
		AppliedAt: &appliedAt,
		Expired:   state.ExpiredAt(now),
	}
}
