package models

import "time"

// SanctionKind identifies the restriction placed on a user identity.
type SanctionKind string

const (
	SanctionNone SanctionKind = "none"
	SanctionMute SanctionKind = "mute"
	SanctionBan  SanctionKind = "ban"
)

// Valid reports whether the kind is an applicable sanction. "none" is a
// projection value, not something an operator applies directly.
func (k SanctionKind) Valid() bool {
	return k == SanctionMute || k == SanctionBan
}

// SanctionReason is the moderation reason code attached to a sanction.
type SanctionReason string

const (
	ReasonSpam        SanctionReason = "spam"
	ReasonAbuse       SanctionReason = "abuse"
	ReasonSafety      SanctionReason = "safety"
	ReasonCopyright   SanctionReason = "copyright"
	ReasonUserRequest SanctionReason = "user_request"
	ReasonOther       SanctionReason = "other"
)

// Valid reports whether the reason is a recognized code.
func (r SanctionReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonAbuse, ReasonSafety, ReasonCopyright, ReasonUserRequest, ReasonOther:
		return true
	default:
		return false
	}
}

// SanctionDuration is one of the preset durations an operator may pick.
type SanctionDuration string

const (
	DurationPermanent SanctionDuration = "permanent"
	Duration24h       SanctionDuration = "24h"
	Duration7d        SanctionDuration = "7d"
	Duration30d       SanctionDuration = "30d"
)

// Window returns the concrete time span for the duration, or false for
// permanent sanctions.
func (d SanctionDuration) Window() (time.Duration, bool) {
	switch d {
	case Duration24h:
		return 24 * time.Hour, true
	case Duration7d:
		return 7 * 24 * time.Hour, true
	case Duration30d:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Valid reports whether the duration is a recognized preset.
func (d SanctionDuration) Valid() bool {
	switch d {
	case DurationPermanent, Duration24h, Duration7d, Duration30d:
		return true
	default:
		return false
	}
}

// SanctionState is the current-state projection stored on the user's
// identity claims. The activity log keeps the full history; this document
// only ever holds the latest sanction. A nil ExpiresAt means permanent.
type SanctionState struct {
	Kind      SanctionKind     `json:"kind"`
	Reason    SanctionReason   `json:"reason"`
	Note      string           `json:"note,omitempty"`
	Duration  SanctionDuration `json:"duration"`
	ContextID string           `json:"context_id,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	AppliedBy string           `json:"applied_by"`
	AppliedAt time.Time        `json:"applied_at"`
}

// ExpiredAt reports whether the sanction's advisory expiry has passed.
// Expiry is never swept by this service; consumers decide how to treat it.
func (s SanctionState) ExpiredAt(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// UserClaims is the identity-claims document this service reads and writes
// for a user. The claims store itself is external and eventually consistent.
type UserClaims struct {
	Role     string         `json:"role,omitempty"`
	Sanction *SanctionState `json:"sanction,omitempty"`
}
