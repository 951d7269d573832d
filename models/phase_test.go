package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestPhaseTotalOrder(t *testing.T) {
	order := []Phase{
		PhaseDraft, PhaseUpcoming, PhaseRegistrationOpen,
		PhaseRegistrationClosed, PhaseOngoing, PhaseEnded,
	}
	for i := 1; i < len(order); i++ {
		assert.Less(t, int(order[i-1]), int(order[i]),
			"%s must order before %s", order[i-1], order[i])
	}
	assert.Equal(t, "upcoming", PhaseUpcoming.String())
}

func TestResolvePhaseLifecycle(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	comp := &Competition{
		StartAt:            base.Add(2 * time.Hour),
		EndAt:              base.Add(3 * time.Hour),
		RegistrationEndsAt: timePtr(base.Add(time.Hour)),
	}

	assert.Equal(t, PhaseRegistrationOpen, ResolvePhase(comp, base))
	assert.Equal(t, PhaseRegistrationOpen, ResolvePhase(comp, base.Add(59*time.Minute)))
	assert.Equal(t, PhaseRegistrationClosed, ResolvePhase(comp, base.Add(time.Hour)))
	assert.Equal(t, PhaseRegistrationClosed, ResolvePhase(comp, base.Add(90*time.Minute)))
	assert.Equal(t, PhaseOngoing, ResolvePhase(comp, base.Add(2*time.Hour)))
	assert.Equal(t, PhaseOngoing, ResolvePhase(comp, base.Add(2*time.Hour+59*time.Minute)))
	assert.Equal(t, PhaseEnded, ResolvePhase(comp, base.Add(3*time.Hour)))
	assert.Equal(t, PhaseEnded, ResolvePhase(comp, base.Add(24*time.Hour)))
}

func TestResolvePhaseDraftAlwaysWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	comp := &Competition{
		StartAt: base.Add(-2 * time.Hour),
		EndAt:   base.Add(-time.Hour),
		Draft:   true,
	}

	// Timestamps say long over, but an unpublished competition has no
	// lifecycle yet.
	assert.Equal(t, PhaseDraft, ResolvePhase(comp, base))
}

func TestResolvePhaseNoRegistrationDeadline(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	comp := &Competition{
		StartAt: base.Add(time.Hour),
		EndAt:   base.Add(2 * time.Hour),
	}

	// With no explicit deadline registration stays open right up to start.
	assert.Equal(t, PhaseRegistrationOpen, ResolvePhase(comp, base))
	assert.Equal(t, PhaseRegistrationOpen, ResolvePhase(comp, base.Add(59*time.Minute)))
	assert.Equal(t, PhaseOngoing, ResolvePhase(comp, base.Add(time.Hour)))
}

func TestResolvePhaseDeadlineAfterStart(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	comp := &Competition{
		StartAt:            base.Add(time.Hour),
		EndAt:              base.Add(3 * time.Hour),
		RegistrationEndsAt: timePtr(base.Add(2 * time.Hour)),
	}

	// Ongoing takes over at start even though the deadline lies beyond it.
	assert.Equal(t, PhaseRegistrationOpen, ResolvePhase(comp, base.Add(59*time.Minute)))
	assert.Equal(t, PhaseOngoing, ResolvePhase(comp, base.Add(time.Hour)))
	assert.Equal(t, PhaseOngoing, ResolvePhase(comp, base.Add(90*time.Minute)))
}

func TestResolvePhaseNeverMovesBackwards(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	comp := &Competition{
		StartAt:            base.Add(6 * time.Hour),
		EndAt:              base.Add(8 * time.Hour),
		RegistrationEndsAt: timePtr(base.Add(4 * time.Hour)),
	}

	prev := ResolvePhase(comp, base)
	for mins := 1; mins <= 10*60; mins++ {
		now := base.Add(time.Duration(mins) * time.Minute)
		phase := ResolvePhase(comp, now)
		assert.GreaterOrEqual(t, int(phase), int(prev),
			"phase regressed at %s: %s -> %s", now, prev, phase)
		prev = phase
	}
	assert.Equal(t, PhaseEnded, prev)
}

func TestIsRegistrationOpen(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("closes at deadline", func(t *testing.T) {
		comp := &Competition{
			StartAt:            base.Add(2 * time.Hour),
			EndAt:              base.Add(3 * time.Hour),
			RegistrationEndsAt: timePtr(base.Add(time.Hour)),
		}
		assert.True(t, IsRegistrationOpen(comp, base))
		assert.False(t, IsRegistrationOpen(comp, base.Add(time.Hour)))
	})

	t.Run("closes at start even without deadline", func(t *testing.T) {
		comp := &Competition{
			StartAt: base.Add(time.Hour),
			EndAt:   base.Add(2 * time.Hour),
		}
		assert.True(t, IsRegistrationOpen(comp, base.Add(59*time.Minute)))
		assert.False(t, IsRegistrationOpen(comp, base.Add(time.Hour)))
	})

	t.Run("closes at start even when deadline extends past it", func(t *testing.T) {
		comp := &Competition{
			StartAt:            base.Add(time.Hour),
			EndAt:              base.Add(3 * time.Hour),
			RegistrationEndsAt: timePtr(base.Add(2 * time.Hour)),
		}
		assert.False(t, IsRegistrationOpen(comp, base.Add(90*time.Minute)))
	})

	t.Run("never open for drafts", func(t *testing.T) {
		comp := &Competition{
			StartAt: base.Add(time.Hour),
			EndAt:   base.Add(2 * time.Hour),
			Draft:   true,
		}
		assert.False(t, IsRegistrationOpen(comp, base))
	})
}

func TestIsAccessible(t *testing.T) {
	visible := &Competition{Visible: true, OrganizerID: 7}
	hidden := &Competition{Visible: false, OrganizerID: 7}

	assert.True(t, IsAccessible(visible, 0, false), "anonymous sees visible")
	assert.False(t, IsAccessible(hidden, 0, false), "anonymous blocked from hidden")
	assert.False(t, IsAccessible(hidden, 3, false), "other users blocked from hidden")
	assert.True(t, IsAccessible(hidden, 7, false), "organizer sees own hidden")
	assert.True(t, IsAccessible(hidden, 3, true), "admins see everything")
}
