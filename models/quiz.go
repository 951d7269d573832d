// models/quiz.go - Quiz and question models
package models

import (
	"encoding/json"
	"time"
)

// Quiz is an organizer-owned question set. Once a published competition
// references a quiz it is treated as immutable; organizers publish a new
// quiz and repoint a draft competition instead of editing in place.
type Quiz struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	PublicID    string         `json:"public_id" gorm:"uniqueIndex;not null;size:40"`
	Title       string         `json:"title" gorm:"not null;size:200"`
	OrganizerID uint           `json:"organizer_id" gorm:"not null;index"`
	Organizer   *User          `json:"organizer,omitempty" gorm:"foreignKey:OrganizerID"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Questions   []QuizQuestion `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}

// QuizQuestion is a single multiple-choice question within a quiz.
type QuizQuestion struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	QuizID      uint   `json:"quiz_id" gorm:"not null;index"`
	Position    int    `json:"position" gorm:"not null;default:0"`
	Text        string `json:"text" gorm:"not null;type:text"`
	OptionsJSON string `json:"-" gorm:"column:options;type:text"`
	Answer      string `json:"answer" gorm:"not null;size:500"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

func (q *QuizQuestion) GetOptions() ([]string, error) {
	var options []string
	if q.OptionsJSON == "" {
		return options, nil
	}
	err := json.Unmarshal([]byte(q.OptionsJSON), &options)
	return options, err
}

func (q *QuizQuestion) SetOptions(options []string) error {
	data, err := json.Marshal(options)
	if err != nil {
		return err
	}
	q.OptionsJSON = string(data)
	return nil
}
