// services/phase_watcher.go - Periodic phase re-evaluation
package services

import (
	"log"
	"quizarena/models"
	"sync"
	"time"
)

const phaseTickInterval = time.Second

// PhaseWatcher re-resolves the phase of watched competitions once per
// second against the local clock and broadcasts transitions over the hub.
// The phase itself is never persisted; every evaluation starts from the
// stored timestamps, so clients with skewed clocks cannot diverge through
// stale stored state.
type PhaseWatcher struct {
	mu      sync.Mutex
	watches map[uint]*phaseWatch
}

type phaseWatch struct {
	comp   models.Competition
	last   models.Phase
	cancel chan struct{}
	mu     sync.Mutex
}

var phaseWatcher *PhaseWatcher

// InitPhaseWatcher initializes the singleton watcher.
func InitPhaseWatcher() {
	phaseWatcher = &PhaseWatcher{watches: make(map[uint]*phaseWatch)}
}

// GetPhaseWatcher returns the initialized watcher.
func GetPhaseWatcher() *PhaseWatcher {
	return phaseWatcher
}

// Watch starts (or refreshes) the 1-second re-evaluation loop for a
// competition. Watching an ended or draft competition is a no-op beyond a
// single broadcast; the loop stops itself once Ended is reached.
func (w *PhaseWatcher) Watch(c *models.Competition) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.watches[c.ID]; ok {
		existing.mu.Lock()
		existing.comp = *c
		existing.mu.Unlock()
		return
	}

	watch := &phaseWatch{
		comp:   *c,
		last:   models.ResolvePhase(c, time.Now()),
		cancel: make(chan struct{}),
	}
	w.watches[c.ID] = watch

	go w.run(watch)
}

// Refresh updates the stored snapshot after an organizer edit so the next
// tick evaluates the new timestamps.
func (w *PhaseWatcher) Refresh(c *models.Competition) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if watch, ok := w.watches[c.ID]; ok {
		watch.mu.Lock()
		watch.comp = *c
		watch.mu.Unlock()
	}
}

// Unwatch cancels the loop for a competition.
func (w *PhaseWatcher) Unwatch(competitionID uint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.remove(competitionID)
}

func (w *PhaseWatcher) remove(competitionID uint) {
	if watch, ok := w.watches[competitionID]; ok {
		close(watch.cancel)
		delete(w.watches, competitionID)
	}
}

// removeWatch removes the entry only while the given watch still owns it.
// A loop retiring at Ended must not cancel a newer watch registered under
// the same ID after an Unwatch/Watch cycle.
func (w *PhaseWatcher) removeWatch(competitionID uint, watch *phaseWatch) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if current, ok := w.watches[competitionID]; ok && current == watch {
		close(current.cancel)
		delete(w.watches, competitionID)
	}
}

// Stop cancels every watch. Called on shutdown; timers must not outlive
// the process teardown.
func (w *PhaseWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id := range w.watches {
		w.remove(id)
	}
	log.Println("Phase watcher stopped")
}

func (w *PhaseWatcher) run(watch *phaseWatch) {
	ticker := time.NewTicker(phaseTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-watch.cancel:
			return
		case now := <-ticker.C:
			watch.mu.Lock()
			comp := watch.comp
			phase := models.ResolvePhase(&comp, now)
			changed := phase != watch.last
			watch.last = phase
			watch.mu.Unlock()

			if changed {
				publish(CompetitionTopic(comp.ID), Event{
					Type: "phase",
					Payload: map[string]interface{}{
						"competition_id": comp.ID,
						"phase":          phase.String(),
					},
				})
			}

			if phase == models.PhaseEnded {
				w.removeWatch(comp.ID, watch)
				return
			}
		}
	}
}
