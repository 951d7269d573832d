package services

import (
	"quizarena/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseWatcherBroadcastsEnd(t *testing.T) {
	InitHub()
	w := &PhaseWatcher{watches: make(map[uint]*phaseWatch)}
	defer w.Stop()

	comp := &models.Competition{
		ID:      42,
		StartAt: time.Now().Add(-time.Minute),
		EndAt:   time.Now().Add(1500 * time.Millisecond),
	}

	sub := GetHub().Subscribe(CompetitionTopic(comp.ID))
	defer sub.Close()

	w.Watch(comp)

	select {
	case ev := <-sub.C:
		require.Equal(t, "phase", ev.Type)
		payload, ok := ev.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "ended", payload["phase"])
	case <-time.After(5 * time.Second):
		t.Fatal("no phase transition broadcast")
	}

	// The loop removes itself once the competition is over.
	assert.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		_, ok := w.watches[comp.ID]
		return !ok
	}, 2*time.Second, 50*time.Millisecond)
}

func TestPhaseWatcherRefreshReplacesSnapshot(t *testing.T) {
	w := &PhaseWatcher{watches: make(map[uint]*phaseWatch)}
	defer w.Stop()

	comp := &models.Competition{
		ID:      7,
		StartAt: time.Now().Add(time.Hour),
		EndAt:   time.Now().Add(2 * time.Hour),
	}
	w.Watch(comp)

	moved := *comp
	moved.StartAt = time.Now().Add(3 * time.Hour)
	moved.EndAt = time.Now().Add(4 * time.Hour)
	w.Refresh(&moved)

	w.mu.Lock()
	watch := w.watches[comp.ID]
	w.mu.Unlock()
	require.NotNil(t, watch)

	watch.mu.Lock()
	got := watch.comp.StartAt
	watch.mu.Unlock()
	assert.Equal(t, moved.StartAt, got)
}

func TestPhaseWatcherStaleLoopKeepsNewerWatch(t *testing.T) {
	w := &PhaseWatcher{watches: make(map[uint]*phaseWatch)}
	defer w.Stop()

	comp := &models.Competition{
		ID:      5,
		StartAt: time.Now().Add(time.Hour),
		EndAt:   time.Now().Add(2 * time.Hour),
	}

	w.Watch(comp)
	w.mu.Lock()
	stale := w.watches[comp.ID]
	w.mu.Unlock()

	// Unwatch/Watch cycle replaces the entry under the same ID.
	w.Unwatch(comp.ID)
	w.Watch(comp)
	w.mu.Lock()
	fresh := w.watches[comp.ID]
	w.mu.Unlock()
	require.NotSame(t, stale, fresh)

	// A loop retiring with the stale handle must leave the newer watch
	// registered and uncancelled.
	w.removeWatch(comp.ID, stale)

	w.mu.Lock()
	current := w.watches[comp.ID]
	w.mu.Unlock()
	assert.Same(t, fresh, current)

	select {
	case <-fresh.cancel:
		t.Fatal("newer watch was cancelled by a stale loop")
	default:
	}

	w.removeWatch(comp.ID, fresh)
	w.mu.Lock()
	_, still := w.watches[comp.ID]
	w.mu.Unlock()
	assert.False(t, still)
}

func TestPhaseWatcherUnwatch(t *testing.T) {
	w := &PhaseWatcher{watches: make(map[uint]*phaseWatch)}

	comp := &models.Competition{
		ID:      9,
		StartAt: time.Now().Add(time.Hour),
		EndAt:   time.Now().Add(2 * time.Hour),
	}
	w.Watch(comp)
	w.Unwatch(comp.ID)

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.watches)
}
