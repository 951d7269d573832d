// services/hub.go - Realtime fan-out of competition events
package services

import (
	"fmt"
	"sync"
)

// Event is a single message pushed to subscribed clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Subscriber receives events for one topic on a buffered channel. Callers
// must Close() on teardown; abandoned subscribers leak and go stale.
type Subscriber struct {
	Topic string
	C     chan Event
	hub   *Hub
	once  sync.Once
}

func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// Hub is an in-process publish/subscribe broker. It carries the change
// notifications the competition engine needs: phase transitions,
// registration activity for the organizer's moderation view, and
// leaderboard updates.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscriber]struct{}
}

var hub *Hub

// InitHub initializes the singleton hub.
func InitHub() {
	hub = &Hub{topics: make(map[string]map[*Subscriber]struct{})}
}

// GetHub returns the initialized hub, or nil before InitHub.
func GetHub() *Hub {
	return hub
}

func (h *Hub) Subscribe(topic string) *Subscriber {
	sub := &Subscriber{
		Topic: topic,
		C:     make(chan Event, 16),
		hub:   h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}

	return sub
}

func (h *Hub) unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[sub.Topic]
	if !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.topics, sub.Topic)
	}
	close(sub.C)
}

// Publish delivers an event to every subscriber of the topic. Slow
// consumers are skipped instead of blocking the publisher; a client that
// misses a tick catches up on the next one.
func (h *Hub) Publish(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.topics[topic] {
		select {
		case sub.C <- event:
		default:
		}
	}
}

// publish is a nil-safe helper for services running without a hub (tests).
func publish(topic string, event Event) {
	if hub != nil {
		hub.Publish(topic, event)
	}
}

// CompetitionTopic carries phase transitions and leaderboard updates.
func CompetitionTopic(competitionID uint) string {
	return fmt.Sprintf("competition:%d", competitionID)
}

// RegistrationTopic carries registration activity for the organizer's
// moderation view.
func RegistrationTopic(competitionID uint) string {
	return fmt.Sprintf("competition:%d:registrations", competitionID)
}
