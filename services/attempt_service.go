// services/attempt_service.go - Per-user attempt tracking
package services

import (
	"errors"
	"fmt"
	"quizarena/models"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptService struct {
	db *gorm.DB
}

func NewAttemptService(db *gorm.DB) *AttemptService {
	return &AttemptService{db: db}
}

// Start upserts the user's attempt record for a competition. Idempotent by
// design: a second start overwrites started_at and name instead of
// erroring or creating a duplicate. The tracker itself does not enforce
// the play window; callers gate on the resolved phase, and the score
// uniqueness check is what ultimately prevents a finished participant from
// competing twice.
func (s *AttemptService) Start(competitionID, userID uint, name string) (*models.Attempt, error) {
	now := time.Now()
	attempt := models.Attempt{
		CompetitionID: competitionID,
		UserID:        userID,
		Name:          name,
		StartedAt:     now,
		Status:        models.AttemptStatusStarted,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "competition_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":       name,
			"started_at": now,
			"status":     models.AttemptStatusStarted,
		}),
	}).Create(&attempt).Error
	if err != nil {
		return nil, err
	}

	// The upsert path does not fill ID on conflict; reload the row.
	var stored models.Attempt
	if err := s.db.Where("competition_id = ? AND user_id = ?", competitionID, userID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// Get returns the user's attempt for a competition.
func (s *AttemptService) Get(competitionID, userID uint) (*models.Attempt, error) {
	var attempt models.Attempt
	err := s.db.Where("competition_id = ? AND user_id = ?", competitionID, userID).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt for user %d: %w", userID, models.ErrNotFound)
		}
		return nil, err
	}
	return &attempt, nil
}
