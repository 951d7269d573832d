// database/migrate.go - Database Migration Runner
package database

import (
	"log"
	"quizarena/models"
)

// RunMigrations runs all database migrations
func RunMigrations() {
	db := GetDB()
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.Competition{},
		&models.Participant{},
		&models.Registration{},
		&models.Attempt{},
		&models.Score{},
	); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	createIndexes()

	log.Println("✅ All migrations completed successfully")
}

// createIndexes creates the lookup indexes AutoMigrate does not cover.
// The uniqueness indexes that back union-append and create-if-absent
// semantics come from the model tags.
func createIndexes() {
	db := GetDB()

	// User indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_guest ON users(is_guest)")

	// Quiz indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_quizzes_organizer ON quizzes(organizer_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_quiz_questions_quiz ON quiz_questions(quiz_id, position)")

	// Competition window lookups
	db.Exec("CREATE INDEX IF NOT EXISTS idx_competitions_start ON competitions(start_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_competitions_end ON competitions(end_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_competitions_visible ON competitions(visible, draft)")

	// Moderation view ordering
	db.Exec("CREATE INDEX IF NOT EXISTS idx_registrations_registered ON competition_registrations(competition_id, registered_at)")

	// Leaderboard fetch: the store orders by score only, the full tiebreak
	// chain is re-sorted in process.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_scores_score ON competition_scores(competition_id, score DESC)")
}
