// models/phase.go - Competition lifecycle phase resolution
package models

import (
	"time"
)

// Phase is the lifecycle stage of a competition, derived purely from the
// current time versus the stored timestamps. Phases are totally ordered so
// callers can compare them; a competition never moves backwards in time.
type Phase int

const (
	PhaseDraft Phase = iota
	// PhaseUpcoming completes the total order between Draft and the
	// registration window. ResolvePhase reports the pre-start window as
	// RegistrationOpen or RegistrationClosed, never Upcoming.
	PhaseUpcoming
	PhaseRegistrationOpen
	PhaseRegistrationClosed
	PhaseOngoing
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseDraft:
		return "draft"
	case PhaseUpcoming:
		return "upcoming"
	case PhaseRegistrationOpen:
		return "registration_open"
	case PhaseRegistrationClosed:
		return "registration_closed"
	case PhaseOngoing:
		return "ongoing"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// ResolvePhase maps a competition's timestamps and the current time to a
// phase. Pure and deterministic: nothing is persisted, every client
// recomputes on its own clock so there is no stored state machine to drift.
//
// Before start_at the pre-start window is reported as RegistrationOpen or
// RegistrationClosed depending on registration_ends_at. If
// registration_ends_at lies after start_at, Ongoing wins once start_at
// passes; eligibility for new registrations is a separate check
// (IsRegistrationOpen) and closes at start_at regardless.
func ResolvePhase(c *Competition, now time.Time) Phase {
	if c.Draft {
		return PhaseDraft
	}
	if !now.Before(c.EndAt) {
		return PhaseEnded
	}
	if !now.Before(c.StartAt) {
		return PhaseOngoing
	}
	if c.RegistrationEndsAt == nil || now.Before(*c.RegistrationEndsAt) {
		return PhaseRegistrationOpen
	}
	return PhaseRegistrationClosed
}

// IsRegistrationOpen reports whether a new registration is accepted at now.
// Registration always closes at start_at, even when registration_ends_at is
// unset or extends beyond it: joining an ongoing competition is for users
// who already registered, not a way to register late.
func IsRegistrationOpen(c *Competition, now time.Time) bool {
	if c.Draft {
		return false
	}
	if !now.Before(c.StartAt) {
		return false
	}
	if c.RegistrationEndsAt != nil && !now.Before(*c.RegistrationEndsAt) {
		return false
	}
	return true
}

// IsAccessible is the orthogonal access-control bit: a hidden competition
// stays reachable for its organizer and for platform admins.
func IsAccessible(c *Competition, viewerID uint, isAdmin bool) bool {
	if c.Visible {
		return true
	}
	if isAdmin {
		return true
	}
	return viewerID != 0 && viewerID == c.OrganizerID
}
