// models/competition.go - Competition engine data models
package models

import (
	"time"
)

// Attempt status constants
const (
	AttemptStatusStarted  = "started"
	AttemptStatusFinished = "finished"
)

// Competition is a time-windowed quiz event. The lifecycle phase is never
// stored on the row; it is recomputed from the timestamps (see phase.go).
type Competition struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	PublicID           string     `json:"public_id" gorm:"uniqueIndex;not null;size:40"`
	QuizID             uint       `json:"quiz_id" gorm:"not null;index"`
	Quiz               *Quiz      `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
	OrganizerID        uint       `json:"organizer_id" gorm:"not null;index"`
	Organizer          *User      `json:"organizer,omitempty" gorm:"foreignKey:OrganizerID"`
	Title              string     `json:"title" gorm:"not null;size:200"`
	StartAt            time.Time  `json:"start_at" gorm:"not null"`
	EndAt              time.Time  `json:"end_at" gorm:"not null"`
	RegistrationEndsAt *time.Time `json:"registration_ends_at,omitempty"`
	IsPaid             bool       `json:"is_paid" gorm:"default:false"`
	Fee                int        `json:"fee" gorm:"default:0"`
	OrganizerPhone     string     `json:"organizer_phone,omitempty" gorm:"size:30"`
	Visible            bool       `json:"visible" gorm:"default:true"`
	Draft              bool       `json:"draft" gorm:"default:false;index"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:CompetitionID"`
}

// Participant is one entry of the competition's membership set. The unique
// (competition_id, user_id) index plus insert-on-conflict-do-nothing gives
// the set union-append semantics: concurrent verifications cannot duplicate
// a user or clobber the list.
type Participant struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	CompetitionID uint      `json:"competition_id" gorm:"not null;uniqueIndex:idx_participant_once"`
	UserID        uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_participant_once"`
	Name          string    `json:"name" gorm:"size:100"`
	FBProfile     string    `json:"fb_profile,omitempty" gorm:"size:300"`
	JoinedAt      time.Time `json:"joined_at"`
}

// Registration is a user's entry request. Free competitions are verified at
// creation time; paid ones wait for the organizer to match the payment
// transaction and approve.
type Registration struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	CompetitionID uint      `json:"competition_id" gorm:"not null;uniqueIndex:idx_registration_once"`
	UserID        uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_registration_once"`
	User          *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Name          string    `json:"name" gorm:"size:100"`
	PaymentTxn    string    `json:"payment_txn,omitempty" gorm:"size:100"`
	PayerPhone    string    `json:"payer_phone,omitempty" gorm:"size:30"`
	FBProfile     string    `json:"fb_profile,omitempty" gorm:"size:300"`
	Verified      bool      `json:"verified" gorm:"default:false"`
	RegisteredAt  time.Time `json:"registered_at" gorm:"index"`
}

// Attempt records one quiz-taking session, keyed by user. Starting is an
// upsert: a second start overwrites started_at rather than erroring or
// duplicating the row.
type Attempt struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	CompetitionID uint       `json:"competition_id" gorm:"not null;uniqueIndex:idx_attempt_once"`
	UserID        uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_attempt_once"`
	Name          string     `json:"name" gorm:"size:100"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	ElapsedMs     *int64     `json:"elapsed_ms,omitempty"`
	Status        string     `json:"status" gorm:"default:'started';size:20"`
}

// Score is the submitted result of an attempt. The unique
// (competition_id, user_id) index makes submission create-if-absent: a
// second submission for the same user is rejected, not appended.
type Score struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	CompetitionID uint      `json:"competition_id" gorm:"not null;uniqueIndex:idx_score_once"`
	UserID        uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_score_once"`
	Name          string    `json:"name" gorm:"size:100"`
	Score         int       `json:"score" gorm:"not null;default:0"`
	ElapsedMs     *int64    `json:"elapsed_ms,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

func (Competition) TableName() string {
	return "competitions"
}

func (Participant) TableName() string {
	return "competition_participants"
}

func (Registration) TableName() string {
	return "competition_registrations"
}

func (Attempt) TableName() string {
	return "competition_attempts"
}

func (Score) TableName() string {
	return "competition_scores"
}
