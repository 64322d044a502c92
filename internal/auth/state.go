package auth

import "time"

// Phase is the position of a session in the login sequence.
type Phase int

const (
	// PhaseAnonymous carries no principal.
	PhaseAnonymous Phase = iota
	// PhasePendingSecondFactor has passed the password step and awaits a TOTP code.
	PhasePendingSecondFactor
	// PhaseAuthenticated has completed both steps.
	PhaseAuthenticated
)

// String returns the phase name used in logs and API responses.
func (p Phase) String() string {
	switch p {
	case PhasePendingSecondFactor:
		return "pending_second_factor"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// State is the server-held state of one session.
// Build values with Anonymous, PendingSecondFactor or Authenticated; every
// transition replaces the whole value.
type State struct {
	Phase       Phase     `json:"phase"`
	PrincipalID uint64    `json:"principal_id,omitempty"`
	IssuedAt    time.Time `json:"issued_at,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Anonymous returns the empty state.
func Anonymous() State {
	return State{Phase: PhaseAnonymous}
}

// PendingSecondFactor binds principalID to a state awaiting the TOTP step.
func PendingSecondFactor(principalID uint64, issuedAt time.Time, ttl time.Duration) State {
	return State{
		Phase:       PhasePendingSecondFactor,
		PrincipalID: principalID,
		IssuedAt:    issuedAt.UTC(),
		ExpiresAt:   issuedAt.UTC().Add(ttl),
	}
}

// Authenticated binds principalID to a fully authenticated state with an absolute lifetime.
func Authenticated(principalID uint64, issuedAt time.Time, ttl time.Duration) State {
	return State{
		Phase:       PhaseAuthenticated,
		PrincipalID: principalID,
		IssuedAt:    issuedAt.UTC(),
		ExpiresAt:   issuedAt.UTC().Add(ttl),
	}
}

// Expired reports whether the state has passed its expiry at now.
// Anonymous states never expire.
func (s State) Expired(now time.Time) bool {
	if s.Phase == PhaseAnonymous {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// Valid reports whether the state is well formed.
func (s State) Valid() bool {
	switch s.Phase {
	case PhaseAnonymous:
		return s.PrincipalID == 0
	case PhasePendingSecondFactor, PhaseAuthenticated:
		return s.PrincipalID != 0 && !s.ExpiresAt.IsZero()
	default:
		return false
	}
}

// IsAuthenticated reports whether the state grants privileged access at now.
func (s State) IsAuthenticated(now time.Time) bool {
	return s.Phase == PhaseAuthenticated && s.Valid() && !s.Expired(now)
}
