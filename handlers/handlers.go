// handlers/handlers.go - Shared handler wiring and error mapping
package handlers

import (
	"errors"
	"log"
	"quizarena/database"
	"quizarena/models"
	"quizarena/services"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var (
	registrationService *services.RegistrationService
	attemptService      *services.AttemptService
	scoringService      *services.ScoringService

	validate = validator.New()
)

// InitCompetitionHandlers wires the services against the shared database.
func InitCompetitionHandlers() {
	db := database.GetDB()
	if db == nil {
		panic("Database not initialized before InitCompetitionHandlers")
	}
	registrationService = services.NewRegistrationService(db)
	attemptService = services.NewAttemptService(db)
	scoringService = services.NewScoringService(db)
}

// idParam parses a numeric path parameter.
func idParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// fail maps a domain error onto the JSON error envelope. Errors outside
// the taxonomy are store errors: logged, surfaced as a 500 with a generic
// message, and never retried on behalf of the caller.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, models.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, models.ErrWindowClosed):
		status = fiber.StatusBadRequest
	case errors.Is(err, models.ErrSelfRegistration):
		status = fiber.StatusForbidden
	case errors.Is(err, models.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, models.ErrAlreadySubmitted):
		status = fiber.StatusConflict
	case errors.Is(err, models.ErrQuizInUse):
		status = fiber.StatusConflict
	default:
		log.Printf("store error: %v", err)
		message = "Internal server error"
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
