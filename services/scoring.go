// services/scoring.go - Scoring, ranking and leaderboard projection
package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"quizarena/models"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardSize limits the displayed leaderboard. Truncation happens
// after the full ranking pass, never before.
const LeaderboardSize = 15

const histogramBuckets = 5

type ScoringService struct {
	db *gorm.DB
}

func NewScoringService(db *gorm.DB) *ScoringService {
	return &ScoringService{db: db}
}

// ComputeScore counts the positions where the answer matches the
// question's correct answer. A nil answer never matches. Extra answers
// beyond the question list are ignored.
func ComputeScore(answers []*string, questions []models.QuizQuestion) int {
	score := 0
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		if answers[i] != nil && *answers[i] == q.Answer {
			score++
		}
	}
	return score
}

// RankScores produces the total order of the tiebreak chain: score
// descending, elapsed time ascending with missing values last, submission
// time ascending with missing values last. The backing store only orders
// by score, so callers must always run fetched rows through this.
// Re-ranking ranked input is a no-op.
func RankScores(scores []models.Score) []models.Score {
	ranked := make([]models.Score, len(scores))
	copy(ranked, scores)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}

		ea, eb := elapsedOrMax(a), elapsedOrMax(b)
		if ea != eb {
			return ea < eb
		}

		za, zb := a.SubmittedAt.IsZero(), b.SubmittedAt.IsZero()
		if za != zb {
			return zb // the one with a timestamp wins the tie
		}
		return a.SubmittedAt.Before(b.SubmittedAt)
	})

	return ranked
}

func elapsedOrMax(s models.Score) int64 {
	if s.ElapsedMs == nil {
		return math.MaxInt64
	}
	return *s.ElapsedMs
}

// LeaderboardStats aggregates the score distribution for the projection
// view: participant count, top score, mean, and a fixed five-bucket
// frequency histogram.
type LeaderboardStats struct {
	Participants int                   `json:"participants"`
	TopScore     int                   `json:"top_score"`
	MeanScore    float64               `json:"mean_score"`
	BucketWidth  int                   `json:"bucket_width"`
	Histogram    [histogramBuckets]int `json:"histogram"`
}

// ComputeStats builds the aggregates over submitted scores. Bucket width
// is ceil((max+1)/5) with a minimum of 1; a score lands in bucket
// floor(score/width), clamped to the last bucket.
func ComputeStats(scores []models.Score) LeaderboardStats {
	stats := LeaderboardStats{BucketWidth: 1}
	if len(scores) == 0 {
		return stats
	}

	stats.Participants = len(scores)

	sum := 0
	for _, s := range scores {
		sum += s.Score
		if s.Score > stats.TopScore {
			stats.TopScore = s.Score
		}
	}
	stats.MeanScore = float64(sum) / float64(len(scores))

	width := (stats.TopScore + 1 + histogramBuckets - 1) / histogramBuckets
	if width < 1 {
		width = 1
	}
	stats.BucketWidth = width

	for _, s := range scores {
		idx := s.Score / width
		if idx < 0 {
			idx = 0
		}
		if idx >= histogramBuckets {
			idx = histogramBuckets - 1
		}
		stats.Histogram[idx]++
	}

	return stats
}

// Submit records the result of an attempt. The score is computed
// server-side from the submitted answers against the competition's quiz.
// The insert is create-if-absent on (competition_id, user_id): a second
// submission is rejected outright instead of appending a duplicate row.
// The attempt mirror update is best-effort; a score row with a stale
// attempt is an eventually-reconcilable inconsistency, not a rollback.
func (s *ScoringService) Submit(competitionID, userID uint, name string, answers []*string) (*models.Score, error) {
	var comp models.Competition
	err := s.db.Preload("Quiz.Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&comp, competitionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("competition %d: %w", competitionID, models.ErrNotFound)
		}
		return nil, err
	}
	if comp.Quiz == nil {
		return nil, fmt.Errorf("competition %d has no quiz: %w", competitionID, models.ErrNotFound)
	}

	points := ComputeScore(answers, comp.Quiz.Questions)

	// Best-effort display name: fall back to the profile name when the
	// caller passed nothing useful, then to the passed value.
	if name == "" || name == "Anonymous" {
		var user models.User
		if err := s.db.First(&user, userID).Error; err == nil && user.PublicName() != "" {
			name = user.PublicName()
		}
	}

	now := time.Now()

	// Elapsed time relative to the competition start; left unset rather
	// than stored wrong when the start time cannot anchor it.
	var elapsedMs *int64
	if !comp.StartAt.IsZero() && now.After(comp.StartAt) {
		ms := now.Sub(comp.StartAt).Milliseconds()
		elapsedMs = &ms
	}

	score := models.Score{
		CompetitionID: competitionID,
		UserID:        userID,
		Name:          name,
		Score:         points,
		ElapsedMs:     elapsedMs,
		SubmittedAt:   now,
	}

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&score)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("user %d already has a score for competition %d: %w",
			userID, competitionID, models.ErrAlreadySubmitted)
	}

	// Mirror timing into the attempt record.
	mirrorErr := s.db.Model(&models.Attempt{}).
		Where("competition_id = ? AND user_id = ?", competitionID, userID).
		Updates(map[string]interface{}{
			"finished_at": now,
			"elapsed_ms":  elapsedMs,
			"status":      models.AttemptStatusFinished,
		}).Error
	if mirrorErr != nil {
		log.Printf("Failed to mirror score into attempt (competition %d, user %d): %v",
			competitionID, userID, mirrorErr)
	}

	publish(CompetitionTopic(competitionID), Event{
		Type:    "score_submitted",
		Payload: score,
	})

	return &score, nil
}

// HasSubmitted reports whether the user already has a score recorded.
func (s *ScoringService) HasSubmitted(competitionID, userID uint) bool {
	var count int64
	s.db.Model(&models.Score{}).
		Where("competition_id = ? AND user_id = ?", competitionID, userID).
		Count(&count)
	return count > 0
}

// Leaderboard returns the ranked top entries plus the aggregates computed
// over the full score set. The store's score-only ordering is a partial
// order at best; the full tiebreak chain is applied here.
func (s *ScoringService) Leaderboard(competitionID uint) ([]models.Score, LeaderboardStats, error) {
	var scores []models.Score
	err := s.db.Where("competition_id = ?", competitionID).
		Order("score DESC").
		Find(&scores).Error
	if err != nil {
		return nil, LeaderboardStats{}, err
	}

	ranked := RankScores(scores)
	stats := ComputeStats(ranked)

	if len(ranked) > LeaderboardSize {
		ranked = ranked[:LeaderboardSize]
	}
	return ranked, stats, nil
}

// CanViewLeaderboard applies the visibility relaxation: the organizer,
// verified registrants, and anyone who already submitted a score can see
// the board, so a participant can always find their own result even when
// registration bookkeeping went sideways.
func (s *ScoringService) CanViewLeaderboard(comp *models.Competition, viewerID uint, isAdmin bool) bool {
	if isAdmin || (viewerID != 0 && viewerID == comp.OrganizerID) {
		return true
	}
	if viewerID == 0 {
		return false
	}

	var count int64
	s.db.Model(&models.Registration{}).
		Where("competition_id = ? AND user_id = ? AND verified = ?", comp.ID, viewerID, true).
		Count(&count)
	if count > 0 {
		return true
	}

	return s.HasSubmitted(comp.ID, viewerID)
}
