package services

import (
	"fmt"
	"quizarena/models"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	// A second pooled connection would see its own empty in-memory
	// database, so pin the pool to one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.Competition{},
		&models.Participant{},
		&models.Registration{},
		&models.Attempt{},
		&models.Score{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{
		Username:    username,
		DisplayName: username,
		Password:    "x",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &user
}

func createTestQuiz(t *testing.T, db *gorm.DB, organizerID uint, answers ...string) *models.Quiz {
	t.Helper()
	quiz := models.Quiz{
		PublicID:    fmt.Sprintf("quiz-%d-%d", organizerID, time.Now().UnixNano()),
		Title:       "General Knowledge",
		OrganizerID: organizerID,
	}
	if err := db.Create(&quiz).Error; err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	for i, answer := range answers {
		q := models.QuizQuestion{
			QuizID:   quiz.ID,
			Position: i,
			Text:     fmt.Sprintf("Question %d", i+1),
			Answer:   answer,
		}
		if err := q.SetOptions([]string{answer, "wrong"}); err != nil {
			t.Fatalf("set options: %v", err)
		}
		if err := db.Create(&q).Error; err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	return &quiz
}

type testCompetitionOpts struct {
	startAt time.Time
	endAt   time.Time
	regEnds *time.Time
	isPaid  bool
	fee     int
	draft   bool
	visible bool
	answers []string
}

func createTestCompetition(t *testing.T, db *gorm.DB, organizerID uint, opts testCompetitionOpts) *models.Competition {
	t.Helper()

	if opts.startAt.IsZero() {
		opts.startAt = time.Now().Add(time.Hour)
	}
	if opts.endAt.IsZero() {
		opts.endAt = opts.startAt.Add(time.Hour)
	}
	if opts.answers == nil {
		opts.answers = []string{"a", "b", "c"}
	}

	quiz := createTestQuiz(t, db, organizerID, opts.answers...)

	comp := models.Competition{
		PublicID:           fmt.Sprintf("comp-%d-%d", organizerID, time.Now().UnixNano()),
		QuizID:             quiz.ID,
		OrganizerID:        organizerID,
		Title:              "Friday Night Quiz",
		StartAt:            opts.startAt,
		EndAt:              opts.endAt,
		RegistrationEndsAt: opts.regEnds,
		IsPaid:             opts.isPaid,
		Fee:                opts.fee,
		Draft:              opts.draft,
		Visible:            opts.visible || !opts.draft,
	}
	if err := db.Create(&comp).Error; err != nil {
		t.Fatalf("create competition: %v", err)
	}
	return &comp
}
