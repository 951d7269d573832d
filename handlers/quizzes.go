// handlers/quizzes.go - Quiz authoring endpoints
package handlers

import (
	"fmt"
	"quizarena/database"
	"quizarena/middleware"
	"quizarena/models"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuestionInput struct {
	Text    string   `json:"text" validate:"required"`
	Options []string `json:"options" validate:"required,min=2"`
	Answer  string   `json:"answer" validate:"required"`
}

type CreateQuizRequest struct {
	Title     string          `json:"title" validate:"required,max=200"`
	Questions []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// CreateQuiz creates a quiz owned by the authenticated organizer
// POST /api/quizzes
func CreateQuiz(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	var req CreateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if err := validate.Struct(req); err != nil {
		return fail(c, fmt.Errorf("%v: %w", err, models.ErrValidation))
	}

	for i, q := range req.Questions {
		if !contains(q.Options, q.Answer) {
			return fail(c, fmt.Errorf("question %d: answer must be one of the options: %w", i+1, models.ErrValidation))
		}
	}

	quiz := models.Quiz{
		PublicID:    uuid.New().String(),
		Title:       req.Title,
		OrganizerID: userID,
		CreatedAt:   time.Now(),
	}

	db := database.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&quiz).Error; err != nil {
			return err
		}

		for i, q := range req.Questions {
			question := models.QuizQuestion{
				QuizID:   quiz.ID,
				Position: i,
				Text:     q.Text,
				Answer:   q.Answer,
			}
			if err := question.SetOptions(q.Options); err != nil {
				return err
			}
			if err := tx.Create(&question).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"quiz":    quiz,
	})
}

// GetQuizzes lists quizzes owned by the authenticated organizer
// GET /api/quizzes
func GetQuizzes(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	db := database.GetDB()
	var quizzes []models.Quiz
	if err := db.Where("organizer_id = ?", userID).
		Order("created_at DESC").
		Find(&quizzes).Error; err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"quizzes": quizzes,
		"count":   len(quizzes),
	})
}

// GetQuiz retrieves a quiz with its questions
// GET /api/quizzes/:id
func GetQuiz(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	quizID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid quiz ID"})
	}

	db := database.GetDB()
	var quiz models.Quiz
	if err := db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&quiz, quizID).Error; err != nil {
		return fail(c, fmt.Errorf("quiz %d: %w", quizID, models.ErrNotFound))
	}

	// Correct answers are only the organizer's business.
	if quiz.OrganizerID != userID && !middleware.IsAdmin(c) {
		for i := range quiz.Questions {
			quiz.Questions[i].Answer = ""
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"quiz":    quiz,
	})
}

// UpdateQuiz replaces a quiz's title and questions. A quiz referenced by a
// published competition is immutable: publish a new quiz and repoint the
// draft competition instead.
// PUT /api/quizzes/:id
func UpdateQuiz(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	quizID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid quiz ID"})
	}

	db := database.GetDB()
	var quiz models.Quiz
	if err := db.First(&quiz, quizID).Error; err != nil {
		return fail(c, fmt.Errorf("quiz %d: %w", quizID, models.ErrNotFound))
	}

	if quiz.OrganizerID != userID {
		return fail(c, fmt.Errorf("not the quiz owner: %w", models.ErrForbidden))
	}

	var referencing int64
	db.Model(&models.Competition{}).
		Where("quiz_id = ? AND draft = ?", quizID, false).
		Count(&referencing)
	if referencing > 0 {
		return fail(c, models.ErrQuizInUse)
	}

	var req CreateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return fail(c, fmt.Errorf("%v: %w", err, models.ErrValidation))
	}
	for i, q := range req.Questions {
		if !contains(q.Options, q.Answer) {
			return fail(c, fmt.Errorf("question %d: answer must be one of the options: %w", i+1, models.ErrValidation))
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&quiz).Updates(map[string]interface{}{
			"title":      req.Title,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return err
		}

		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.QuizQuestion{}).Error; err != nil {
			return err
		}

		for i, q := range req.Questions {
			question := models.QuizQuestion{
				QuizID:   quiz.ID,
				Position: i,
				Text:     q.Text,
				Answer:   q.Answer,
			}
			if err := question.SetOptions(q.Options); err != nil {
				return err
			}
			if err := tx.Create(&question).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Quiz updated successfully",
	})
}

// DeleteQuiz removes a quiz that no competition references
// DELETE /api/quizzes/:id
func DeleteQuiz(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	quizID, err := idParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid quiz ID"})
	}

	db := database.GetDB()
	var quiz models.Quiz
	if err := db.First(&quiz, quizID).Error; err != nil {
		return fail(c, fmt.Errorf("quiz %d: %w", quizID, models.ErrNotFound))
	}

	if quiz.OrganizerID != userID && !middleware.IsAdmin(c) {
		return fail(c, fmt.Errorf("not the quiz owner: %w", models.ErrForbidden))
	}

	var referencing int64
	db.Model(&models.Competition{}).Where("quiz_id = ?", quizID).Count(&referencing)
	if referencing > 0 {
		return fail(c, models.ErrQuizInUse)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.QuizQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&quiz).Error
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Quiz deleted successfully",
	})
}

func contains(options []string, answer string) bool {
	for _, o := range options {
		if o == answer {
			return true
		}
	}
	return false
}
