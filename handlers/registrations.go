// handlers/registrations.go - Registration and moderation endpoints
package handlers

import (
	"quizarena/middleware"
	"quizarena/services"

	"github.com/gofiber/fiber/v2"
)

type RegisterCompetitionRequest struct {
	Name       string `json:"name"`
	PaymentTxn string `json:"payment_txn,omitempty"`
	PayerPhone string `json:"payer_phone,omitempty"`
	FBProfile  string `json:"fb_profile,omitempty"`
}

// RegisterForCompetition registers the authenticated user
// POST /api/competitions/:id/register
func RegisterForCompetition(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	compID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
	}

	var req RegisterCompetitionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	reg, err := registrationService.Register(compID, userID, services.RegisterInput{
		Name:       req.Name,
		PaymentTxn: req.PaymentTxn,
		PayerPhone: req.PayerPhone,
		FBProfile:  req.FBProfile,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success":      true,
		"registration": reg,
	})
}

// ListRegistrations returns the organizer's moderation view, oldest first.
// Live updates stream over the competition's registration topic (ws.go).
// GET /api/competitions/:id/registrations
func ListRegistrations(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	compID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
	}

	regs, err := registrationService.ListRegistrations(compID, userID, middleware.IsAdmin(c))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"registrations": regs,
		"count":         len(regs),
	})
}

type VerifyRequest struct {
	Approve bool `json:"approve"`
}

// VerifyRegistration approves or rejects a registration
// PUT /api/competitions/:id/registrations/:regID/verify
func VerifyRegistration(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	compID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
	}

	regID, err := idParam(c, "regID")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid registration ID"})
	}

	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	reg, err := registrationService.Verify(compID, regID, userID, middleware.IsAdmin(c), req.Approve)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"registration": reg,
	})
}
