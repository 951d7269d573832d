// handlers/leaderboard.go - Score submission and leaderboard projection
package handlers

import (
	"fmt"
	"quizarena/database"
	"quizarena/middleware"
	"quizarena/models"
	"time"

	"github.com/gofiber/fiber/v2"
)

type SubmitScoreRequest struct {
	Name    string    `json:"name,omitempty"`
	Answers []*string `json:"answers"`
}

// SubmitScore scores the submitted answers against the competition's quiz
// and records the result. One score per user per competition: a repeat
// submission is rejected with a conflict, the client retries only on
// store failure.
// POST /api/competitions/:id/scores
func SubmitScore(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	compID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
	}

	var req SubmitScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	if req.Answers == nil {
		return fail(c, fmt.Errorf("answers are required: %w", models.ErrValidation))
	}

	db := database.GetDB()
	var comp models.Competition
	if err := db.First(&comp, compID).Error; err != nil {
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}
	if comp.Draft || !models.IsAccessible(&comp, userID, middleware.IsAdmin(c)) {
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}

	score, err := scoringService.Submit(compID, userID, req.Name, req.Answers)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"score":   score,
	})
}

// GetLeaderboard returns the ranked top entries and the aggregate view.
// Visible to the organizer, verified registrants, and anyone who already
// submitted a score.
// GET /api/competitions/:id/leaderboard
func GetLeaderboard(c *fiber.Ctx) error {
	compID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
	}

	viewerID := middleware.ViewerID(c)
	isAdmin := middleware.IsAdmin(c)

	db := database.GetDB()
	var comp models.Competition
	if err := db.First(&comp, compID).Error; err != nil {
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}
	if !models.IsAccessible(&comp, viewerID, isAdmin) {
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}

	if !scoringService.CanViewLeaderboard(&comp, viewerID, isAdmin) {
		return fail(c, fmt.Errorf("leaderboard is restricted to participants: %w", models.ErrForbidden))
	}

	ranked, stats, err := scoringService.Leaderboard(compID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"leaderboard": ranked,
		"stats":       stats,
		"phase":       models.ResolvePhase(&comp, time.Now()).String(),
	})
}
