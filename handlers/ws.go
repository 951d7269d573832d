// handlers/ws.go - Realtime competition stream
package handlers

import (
	"log"
	"quizarena/database"
	"quizarena/models"
	"quizarena/services"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 15 * time.Second
)

// StreamUpgrade rejects plain HTTP requests on the stream routes.
func StreamUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// CompetitionStream pushes phase transitions and score submissions for one
// competition; organizers additionally receive registration activity for
// the moderation view. Subscriptions and the connection are torn down
// together; a closed socket must not keep receiving fan-out.
var CompetitionStream = websocket.New(func(conn *websocket.Conn) {
	defer conn.Close()

	compID64, err := strconv.ParseUint(conn.Params("id"), 10, 32)
	if err != nil {
		_ = conn.WriteJSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
		return
	}
	compID := uint(compID64)

	viewerID := localsUserID(conn)
	isAdmin := localsIsAdmin(conn)

	db := database.GetDB()
	var comp models.Competition
	if err := db.First(&comp, compID).Error; err != nil {
		_ = conn.WriteJSON(fiber.Map{"success": false, "error": "Competition not found"})
		return
	}
	if !models.IsAccessible(&comp, viewerID, isAdmin) {
		_ = conn.WriteJSON(fiber.Map{"success": false, "error": "Competition not found"})
		return
	}

	hub := services.GetHub()
	if hub == nil {
		return
	}

	if w := services.GetPhaseWatcher(); w != nil && !comp.Draft {
		w.Watch(&comp)
	}

	sub := hub.Subscribe(services.CompetitionTopic(compID))
	defer sub.Close()

	var regEvents chan services.Event
	if viewerID == comp.OrganizerID || isAdmin {
		regSub := hub.Subscribe(services.RegistrationTopic(compID))
		defer regSub.Close()
		regEvents = regSub.C
	}

	// Initial snapshot so the client renders without waiting for the
	// first transition.
	now := time.Now()
	_ = conn.WriteJSON(services.Event{
		Type: "phase",
		Payload: fiber.Map{
			"competition_id":    compID,
			"phase":             models.ResolvePhase(&comp, now).String(),
			"registration_open": models.IsRegistrationOpen(&comp, now),
		},
	})

	// Reader: only used to detect the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeEvent(conn, event); err != nil {
				return
			}
		case event, ok := <-regEvents:
			if !ok {
				return
			}
			if err := writeEvent(conn, event); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
})

func writeEvent(conn *websocket.Conn, event services.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(event); err != nil {
		log.Printf("stream write failed: %v", err)
		return err
	}
	return nil
}

func localsUserID(conn *websocket.Conn) uint {
	switch v := conn.Locals("userId").(type) {
	case float64:
		return uint(v)
	case uint:
		return v
	default:
		return 0
	}
}

func localsIsAdmin(conn *websocket.Conn) bool {
	if admin, ok := conn.Locals("isAdmin").(bool); ok {
		return admin
	}
	return false
}
