// handlers/attempts.go - Attempt tracking endpoints
package handlers

import (
	"fmt"
	"quizarena/database"
	"quizarena/middleware"
	"quizarena/models"
	"time"

	"github.com/gofiber/fiber/v2"
)

type StartAttemptRequest struct {
	Name string `json:"name,omitempty"`
}

// StartAttempt starts (or restarts) the user's attempt. The tracker's
// upsert is permissive; this handler is the gate that requires an ongoing
// phase and a verified registration. "Already started" state is derived
// fresh from the Score record, never from client memory.
// POST /api/competitions/:id/attempts/start
func StartAttempt(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	compID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
	}

	var req StartAttemptRequest
	_ = c.BodyParser(&req)

	db := database.GetDB()
	var comp models.Competition
	if err := db.First(&comp, compID).Error; err != nil {
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}

	if !models.IsAccessible(&comp, userID, middleware.IsAdmin(c)) {
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}

	if phase := models.ResolvePhase(&comp, time.Now()); phase != models.PhaseOngoing {
		return fail(c, fmt.Errorf("competition is %s, not ongoing: %w", phase, models.ErrWindowClosed))
	}

	if !registrationService.HasVerifiedRegistration(compID, userID) {
		return fail(c, fmt.Errorf("a verified registration is required to participate: %w", models.ErrForbidden))
	}

	if scoringService.HasSubmitted(compID, userID) {
		return fail(c, models.ErrAlreadySubmitted)
	}

	attempt, err := attemptService.Start(compID, userID, req.Name)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"attempt": attempt,
	})
}

// GetMyAttempt returns the caller's attempt record
// GET /api/competitions/:id/attempts/me
func GetMyAttempt(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	compID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
	}

	attempt, err := attemptService.Get(compID, userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"attempt":   attempt,
		"submitted": scoringService.HasSubmitted(compID, userID),
	})
}
