// handlers/competitions.go - Competition lifecycle endpoints
package handlers

import (
	"fmt"
	"quizarena/database"
	"quizarena/middleware"
	"quizarena/models"
	"quizarena/services"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateCompetitionRequest struct {
	Title              string     `json:"title" validate:"required,max=200"`
	QuizID             uint       `json:"quiz_id" validate:"required"`
	StartAt            time.Time  `json:"start_at" validate:"required"`
	EndAt              time.Time  `json:"end_at" validate:"required"`
	RegistrationEndsAt *time.Time `json:"registration_ends_at,omitempty"`
	IsPaid             bool       `json:"is_paid"`
	Fee                int        `json:"fee"`
	OrganizerPhone     string     `json:"organizer_phone"`
	Visible            *bool      `json:"visible,omitempty"`
	Draft              bool       `json:"draft"`
}

// CreateCompetition creates a competition, published or draft
// POST /api/competitions
func CreateCompetition(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	var req CreateCompetitionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return fail(c, fmt.Errorf("%v: %w", err, models.ErrValidation))
	}

	if !req.StartAt.Before(req.EndAt) {
		return fail(c, fmt.Errorf("start_at must be before end_at: %w", models.ErrValidation))
	}
	if req.IsPaid && req.Fee <= 0 {
		return fail(c, fmt.Errorf("paid competition requires a positive fee: %w", models.ErrValidation))
	}

	db := database.GetDB()

	var quiz models.Quiz
	if err := db.First(&quiz, req.QuizID).Error; err != nil {
		return fail(c, fmt.Errorf("quiz %d: %w", req.QuizID, models.ErrNotFound))
	}
	if quiz.OrganizerID != userID {
		return fail(c, fmt.Errorf("quiz belongs to another organizer: %w", models.ErrForbidden))
	}

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	comp := models.Competition{
		PublicID:           uuid.New().String(),
		QuizID:             req.QuizID,
		OrganizerID:        userID,
		Title:              req.Title,
		StartAt:            req.StartAt,
		EndAt:              req.EndAt,
		RegistrationEndsAt: req.RegistrationEndsAt,
		IsPaid:             req.IsPaid,
		Fee:                req.Fee,
		OrganizerPhone:     req.OrganizerPhone,
		Visible:            visible,
		Draft:              req.Draft,
		CreatedAt:          time.Now(),
	}

	if err := db.Create(&comp).Error; err != nil {
		return fail(c, err)
	}

	if !comp.Draft {
		if w := services.GetPhaseWatcher(); w != nil {
			w.Watch(&comp)
		}
	}

	return c.Status(201).JSON(competitionResponse(&comp, userID, middleware.IsAdmin(c)))
}

// ListCompetitions lists published competitions visible to the viewer.
// Organizers see their own hidden and draft competitions; admins see all.
// GET /api/competitions
func ListCompetitions(c *fiber.Ctx) error {
	viewerID := middleware.ViewerID(c)
	isAdmin := middleware.IsAdmin(c)

	db := database.GetDB()
	query := db.Model(&models.Competition{})

	switch {
	case isAdmin:
		// no filter
	case viewerID != 0:
		query = query.Where("(visible = ? AND draft = ?) OR organizer_id = ?", true, false, viewerID)
	default:
		query = query.Where("visible = ? AND draft = ?", true, false)
	}

	var comps []models.Competition
	if err := query.Order("start_at DESC").Find(&comps).Error; err != nil {
		return fail(c, err)
	}

	now := time.Now()
	entries := make([]fiber.Map, 0, len(comps))
	for i := range comps {
		entries = append(entries, fiber.Map{
			"competition":       comps[i],
			"phase":             models.ResolvePhase(&comps[i], now).String(),
			"registration_open": models.IsRegistrationOpen(&comps[i], now),
		})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"competitions": entries,
		"count":        len(entries),
	})
}

// GetCompetition retrieves a competition with its quiz joined in
// GET /api/competitions/:id
func GetCompetition(c *fiber.Ctx) error {
	compID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
	}

	viewerID := middleware.ViewerID(c)
	isAdmin := middleware.IsAdmin(c)

	db := database.GetDB()
	var comp models.Competition
	err = db.Preload("Quiz.Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Preload("Participants").First(&comp, compID).Error
	if err != nil {
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}

	if !models.IsAccessible(&comp, viewerID, isAdmin) {
		// Hidden competitions do not exist for outsiders.
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}
	if comp.Draft && viewerID != comp.OrganizerID && !isAdmin {
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}

	// Participants take the quiz blind; answers stay with the organizer.
	if comp.Quiz != nil && viewerID != comp.OrganizerID && !isAdmin {
		for i := range comp.Quiz.Questions {
			comp.Quiz.Questions[i].Answer = ""
		}
	}

	return c.JSON(competitionResponse(&comp, viewerID, isAdmin))
}

// UpdateCompetition edits a draft competition, including repointing it at
// a different quiz
// PUT /api/competitions/:id
func UpdateCompetition(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	compID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
	}

	db := database.GetDB()
	var comp models.Competition
	if err := db.First(&comp, compID).Error; err != nil {
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}

	if comp.OrganizerID != userID && !middleware.IsAdmin(c) {
		return fail(c, fmt.Errorf("not the organizer: %w", models.ErrForbidden))
	}
	if !comp.Draft {
		return fail(c, fmt.Errorf("only draft competitions are editable: %w", models.ErrValidation))
	}

	var req CreateCompetitionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return fail(c, fmt.Errorf("%v: %w", err, models.ErrValidation))
	}
	if !req.StartAt.Before(req.EndAt) {
		return fail(c, fmt.Errorf("start_at must be before end_at: %w", models.ErrValidation))
	}

	var quiz models.Quiz
	if err := db.First(&quiz, req.QuizID).Error; err != nil {
		return fail(c, fmt.Errorf("quiz %d: %w", req.QuizID, models.ErrNotFound))
	}
	if quiz.OrganizerID != comp.OrganizerID {
		return fail(c, fmt.Errorf("quiz belongs to another organizer: %w", models.ErrForbidden))
	}

	updates := map[string]interface{}{
		"title":                req.Title,
		"quiz_id":              req.QuizID,
		"start_at":             req.StartAt,
		"end_at":               req.EndAt,
		"registration_ends_at": req.RegistrationEndsAt,
		"is_paid":              req.IsPaid,
		"fee":                  req.Fee,
		"organizer_phone":      req.OrganizerPhone,
		"updated_at":           time.Now(),
	}
	if req.Visible != nil {
		updates["visible"] = *req.Visible
	}

	if err := db.Model(&comp).Updates(updates).Error; err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Competition updated successfully",
	})
}

type PublishRequest struct {
	// TargetID optionally names a live competition to receive the draft's
	// fields; without it the draft itself goes live.
	TargetID uint `json:"target_id,omitempty"`
}

// PublishCompetition takes a draft live, either in place or by copying its
// fields onto an existing live record
// POST /api/competitions/:id/publish
func PublishCompetition(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	compID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
	}

	var req PublishRequest
	_ = c.BodyParser(&req)

	db := database.GetDB()
	var draft models.Competition
	if err := db.First(&draft, compID).Error; err != nil {
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}

	if draft.OrganizerID != userID {
		return fail(c, fmt.Errorf("not the organizer: %w", models.ErrForbidden))
	}
	if !draft.Draft {
		return fail(c, fmt.Errorf("competition is already published: %w", models.ErrValidation))
	}

	var published models.Competition

	if req.TargetID != 0 {
		var target models.Competition
		if err := db.First(&target, req.TargetID).Error; err != nil {
			return fail(c, fmt.Errorf("target competition %d: %w", req.TargetID, models.ErrNotFound))
		}
		if target.OrganizerID != userID {
			return fail(c, fmt.Errorf("target belongs to another organizer: %w", models.ErrForbidden))
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&target).Updates(map[string]interface{}{
				"title":                draft.Title,
				"quiz_id":              draft.QuizID,
				"start_at":             draft.StartAt,
				"end_at":               draft.EndAt,
				"registration_ends_at": draft.RegistrationEndsAt,
				"is_paid":              draft.IsPaid,
				"fee":                  draft.Fee,
				"organizer_phone":      draft.OrganizerPhone,
				"updated_at":           time.Now(),
			}).Error; err != nil {
				return err
			}
			return tx.Delete(&draft).Error
		})
		if err != nil {
			return fail(c, err)
		}

		db.First(&published, target.ID)
	} else {
		if err := db.Model(&draft).Updates(map[string]interface{}{
			"draft":      false,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return fail(c, err)
		}
		db.First(&published, draft.ID)
	}

	// Watch refreshes the snapshot when the competition is already watched.
	if w := services.GetPhaseWatcher(); w != nil {
		w.Watch(&published)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Competition published successfully",
		"competition": published,
	})
}

type VisibilityRequest struct {
	Visible bool `json:"visible"`
}

// UpdateVisibility toggles the access-control bit. Organizer or admin, at
// any lifecycle point; an administrative override, not a phase.
// PUT /api/competitions/:id/visibility
func UpdateVisibility(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	compID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
	}

	var req VisibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	db := database.GetDB()
	var comp models.Competition
	if err := db.First(&comp, compID).Error; err != nil {
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}

	if comp.OrganizerID != userID && !middleware.IsAdmin(c) {
		return fail(c, fmt.Errorf("not the organizer: %w", models.ErrForbidden))
	}

	if err := db.Model(&comp).Update("visible", req.Visible).Error; err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"visible": req.Visible,
	})
}

// DeleteCompetition removes a competition and its artifacts. Organizer or
// admin, at any lifecycle point.
// DELETE /api/competitions/:id
func DeleteCompetition(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	compID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid competition ID"})
	}

	db := database.GetDB()
	var comp models.Competition
	if err := db.First(&comp, compID).Error; err != nil {
		return fail(c, fmt.Errorf("competition %d: %w", compID, models.ErrNotFound))
	}

	if comp.OrganizerID != userID && !middleware.IsAdmin(c) {
		return fail(c, fmt.Errorf("not the organizer: %w", models.ErrForbidden))
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("competition_id = ?", compID).Delete(&models.Score{}).Error; err != nil {
			return err
		}
		if err := tx.Where("competition_id = ?", compID).Delete(&models.Attempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("competition_id = ?", compID).Delete(&models.Registration{}).Error; err != nil {
			return err
		}
		if err := tx.Where("competition_id = ?", compID).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&comp).Error
	})
	if err != nil {
		return fail(c, err)
	}

	if w := services.GetPhaseWatcher(); w != nil {
		w.Unwatch(compID)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Competition deleted successfully",
	})
}

func competitionResponse(comp *models.Competition, viewerID uint, isAdmin bool) fiber.Map {
	now := time.Now()
	return fiber.Map{
		"success":           true,
		"competition":       comp,
		"phase":             models.ResolvePhase(comp, now).String(),
		"registration_open": models.IsRegistrationOpen(comp, now),
		"is_organizer":      viewerID != 0 && viewerID == comp.OrganizerID,
		"is_admin":          isAdmin,
	}
}
