package services

import (
	"errors"
	"quizarena/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAttemptCreatesRow(t *testing.T) {
	db := testDB(t)
	svc := NewAttemptService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(-time.Minute),
		endAt:   time.Now().Add(time.Hour),
	})

	attempt, err := svc.Start(comp.ID, player.ID, "Player")
	require.NoError(t, err)

	assert.NotZero(t, attempt.ID)
	assert.Equal(t, models.AttemptStatusStarted, attempt.Status)
	assert.Equal(t, "Player", attempt.Name)
	assert.False(t, attempt.StartedAt.IsZero())
}

func TestStartAttemptIsIdempotent(t *testing.T) {
	db := testDB(t)
	svc := NewAttemptService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(-time.Minute),
		endAt:   time.Now().Add(time.Hour),
	})

	first, err := svc.Start(comp.ID, player.ID, "Player")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	second, err := svc.Start(comp.ID, player.ID, "Renamed")
	require.NoError(t, err)

	// Same row, refreshed fields.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Renamed", second.Name)
	assert.True(t, second.StartedAt.After(first.StartedAt) || second.StartedAt.Equal(first.StartedAt))

	var count int64
	db.Model(&models.Attempt{}).Where("competition_id = ?", comp.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestStartAttemptResetsFinishedStatus(t *testing.T) {
	db := testDB(t)
	svc := NewAttemptService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(-time.Minute),
		endAt:   time.Now().Add(time.Hour),
	})

	_, err := svc.Start(comp.ID, player.ID, "Player")
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Attempt{}).
		Where("competition_id = ? AND user_id = ?", comp.ID, player.ID).
		Update("status", models.AttemptStatusFinished).Error)

	restarted, err := svc.Start(comp.ID, player.ID, "Player")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStatusStarted, restarted.Status)
}

func TestGetAttempt(t *testing.T) {
	db := testDB(t)
	svc := NewAttemptService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(-time.Minute),
		endAt:   time.Now().Add(time.Hour),
	})

	_, err := svc.Get(comp.ID, player.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	started, err := svc.Start(comp.ID, player.ID, "Player")
	require.NoError(t, err)

	got, err := svc.Get(comp.ID, player.ID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, got.ID)
}
