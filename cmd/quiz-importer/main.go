package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"quizarena/database"
	"quizarena/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONQuiz is the on-disk import format. Each file holds an array of
// quizzes; question options are plain string arrays and the answer must
// be one of the options.
type JSONQuiz struct {
	Title     string         `json:"title"`
	Questions []JSONQuestion `json:"questions"`
}

type JSONQuestion struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: quiz-importer <organizer-username> <quizzes.json>")
		os.Exit(1)
	}
	organizerName := os.Args[1]
	jsonPath := os.Args[2]

	database.InitDB()
	defer database.CloseDB()
	db := database.GetDB()

	var organizer models.User
	if err := db.Where("username = ?", organizerName).First(&organizer).Error; err != nil {
		log.Fatalf("Organizer %q not found: %v", organizerName, err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		log.Fatal("Failed to read JSON file:", err)
	}

	var quizzes []JSONQuiz
	if err := json.Unmarshal(data, &quizzes); err != nil {
		log.Fatal("Failed to parse JSON:", err)
	}

	fmt.Printf("Found %d quizzes\n\n", len(quizzes))

	imported := 0
	for _, q := range quizzes {
		if err := importQuiz(db, organizer.ID, q); err != nil {
			log.Printf("Skipping %q: %v\n", q.Title, err)
			continue
		}
		fmt.Printf("Imported: %s (%d questions)\n", q.Title, len(q.Questions))
		imported++
	}

	fmt.Printf("\n✓ Imported %d/%d quizzes\n", imported, len(quizzes))
}

func importQuiz(db *gorm.DB, organizerID uint, in JSONQuiz) error {
	if in.Title == "" {
		return fmt.Errorf("missing title")
	}
	if len(in.Questions) == 0 {
		return fmt.Errorf("no questions")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		quiz := models.Quiz{
			PublicID:    uuid.New().String(),
			Title:       in.Title,
			OrganizerID: organizerID,
		}
		if err := tx.Create(&quiz).Error; err != nil {
			return err
		}

		for i, jq := range in.Questions {
			if jq.Text == "" || len(jq.Options) < 2 {
				return fmt.Errorf("question %d is malformed", i+1)
			}
			if !containsOption(jq.Options, jq.Answer) {
				return fmt.Errorf("question %d: answer not among options", i+1)
			}

			question := models.QuizQuestion{
				QuizID:   quiz.ID,
				Position: i,
				Text:     jq.Text,
				Answer:   jq.Answer,
			}
			if err := question.SetOptions(jq.Options); err != nil {
				return err
			}
			if err := tx.Create(&question).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func containsOption(options []string, answer string) bool {
	for _, o := range options {
		if o == answer {
			return true
		}
	}
	return false
}
