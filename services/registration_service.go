// services/registration_service.go - Registration workflow
package services

import (
	"errors"
	"fmt"
	"quizarena/models"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegistrationService struct {
	db *gorm.DB
}

func NewRegistrationService(db *gorm.DB) *RegistrationService {
	return &RegistrationService{db: db}
}

// RegisterInput carries the registration payload. Paid competitions
// require the payment reference fields; free ones only need a name.
type RegisterInput struct {
	Name       string
	PaymentTxn string
	PayerPhone string
	FBProfile  string
}

// Register creates a registration for a user. Free competitions are
// auto-verified and the user joins the participant set immediately; paid
// ones sit unverified until the organizer approves. Registering twice
// returns the existing record unchanged.
func (s *RegistrationService) Register(competitionID, userID uint, in RegisterInput) (*models.Registration, error) {
	var comp models.Competition
	if err := s.db.First(&comp, competitionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("competition %d: %w", competitionID, models.ErrNotFound)
		}
		return nil, err
	}

	if comp.Draft {
		return nil, fmt.Errorf("competition %d is a draft: %w", competitionID, models.ErrNotFound)
	}

	if userID == comp.OrganizerID {
		return nil, models.ErrSelfRegistration
	}

	now := time.Now()
	if !models.IsRegistrationOpen(&comp, now) {
		return nil, fmt.Errorf("registration period elapsed: %w", models.ErrWindowClosed)
	}

	var existing models.Registration
	err := s.db.Where("competition_id = ? AND user_id = ?", competitionID, userID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if comp.IsPaid {
		if in.PaymentTxn == "" || in.PayerPhone == "" || in.FBProfile == "" {
			return nil, fmt.Errorf("paid competition requires payment_txn, payer_phone and fb_profile: %w", models.ErrValidation)
		}
	}

	name := in.Name
	if name == "" {
		var user models.User
		if err := s.db.First(&user, userID).Error; err == nil {
			name = user.PublicName()
		}
	}

	reg := models.Registration{
		CompetitionID: competitionID,
		UserID:        userID,
		Name:          name,
		PaymentTxn:    in.PaymentTxn,
		PayerPhone:    in.PayerPhone,
		FBProfile:     in.FBProfile,
		Verified:      false,
		RegisteredAt:  now,
	}

	// Insert-on-conflict-do-nothing so two racing first registrations
	// cannot both pass the existence check and trip the unique index; the
	// loser gets the stored row, same as an ordinary re-register.
	created := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reg)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		created = true

		// Free competitions auto-verify as a second step and join the
		// participant set right away.
		if !comp.IsPaid {
			if err := tx.Model(&reg).Update("verified", true).Error; err != nil {
				return err
			}
			reg.Verified = true
			return addParticipant(tx, competitionID, userID, name, in.FBProfile)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !created {
		var stored models.Registration
		if err := s.db.Where("competition_id = ? AND user_id = ?", competitionID, userID).First(&stored).Error; err != nil {
			return nil, err
		}
		return &stored, nil
	}

	publish(RegistrationTopic(competitionID), Event{
		Type:    "registration_created",
		Payload: reg,
	})

	return &reg, nil
}

// Verify approves or rejects a registration. Organizer (or admin) only.
// Approval appends the user to the participant set; the union insert makes
// repeated or racing approvals harmless. Rejection is terminal in this
// model: there is no transition back to pending.
func (s *RegistrationService) Verify(competitionID, registrationID, reviewerID uint, isAdmin, approve bool) (*models.Registration, error) {
	var comp models.Competition
	if err := s.db.First(&comp, competitionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("competition %d: %w", competitionID, models.ErrNotFound)
		}
		return nil, err
	}

	if reviewerID != comp.OrganizerID && !isAdmin {
		return nil, fmt.Errorf("only the organizer can verify registrations: %w", models.ErrForbidden)
	}

	var reg models.Registration
	if err := s.db.Where("id = ? AND competition_id = ?", registrationID, competitionID).First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("registration %d: %w", registrationID, models.ErrNotFound)
		}
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&reg).Update("verified", approve).Error; err != nil {
			return err
		}
		reg.Verified = approve

		if approve {
			return addParticipant(tx, competitionID, reg.UserID, reg.Name, reg.FBProfile)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(RegistrationTopic(competitionID), Event{
		Type:    "registration_verified",
		Payload: reg,
	})

	return &reg, nil
}

// ListRegistrations returns the moderation view, oldest first.
func (s *RegistrationService) ListRegistrations(competitionID, reviewerID uint, isAdmin bool) ([]models.Registration, error) {
	var comp models.Competition
	if err := s.db.First(&comp, competitionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("competition %d: %w", competitionID, models.ErrNotFound)
		}
		return nil, err
	}

	if reviewerID != comp.OrganizerID && !isAdmin {
		return nil, fmt.Errorf("only the organizer can list registrations: %w", models.ErrForbidden)
	}

	var regs []models.Registration
	err := s.db.Where("competition_id = ?", competitionID).
		Order("registered_at ASC").
		Find(&regs).Error
	return regs, err
}

// HasVerifiedRegistration reports whether the user holds an effective
// registration for the competition.
func (s *RegistrationService) HasVerifiedRegistration(competitionID, userID uint) bool {
	var count int64
	s.db.Model(&models.Registration{}).
		Where("competition_id = ? AND user_id = ? AND verified = ?", competitionID, userID, true).
		Count(&count)
	return count > 0
}

// addParticipant is the union-append primitive: insert keyed by
// (competition_id, user_id), do nothing on conflict. Never a full
// overwrite of the membership set.
func addParticipant(tx *gorm.DB, competitionID, userID uint, name, fbProfile string) error {
	p := models.Participant{
		CompetitionID: competitionID,
		UserID:        userID,
		Name:          name,
		FBProfile:     fbProfile,
		JoinedAt:      time.Now(),
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error
}
