package services

import (
	"errors"
	"quizarena/models"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterFreeCompetitionAutoVerifies(t *testing.T) {
	db := testDB(t)
	svc := NewRegistrationService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(time.Hour),
		endAt:   time.Now().Add(2 * time.Hour),
	})

	reg, err := svc.Register(comp.ID, player.ID, RegisterInput{Name: "Player One"})
	require.NoError(t, err)

	assert.True(t, reg.Verified)
	assert.Equal(t, "Player One", reg.Name)

	var participants []models.Participant
	require.NoError(t, db.Where("competition_id = ?", comp.ID).Find(&participants).Error)
	require.Len(t, participants, 1)
	assert.Equal(t, player.ID, participants[0].UserID)
}

func TestRegisterPaidCompetitionStaysPending(t *testing.T) {
	db := testDB(t)
	svc := NewRegistrationService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(time.Hour),
		endAt:   time.Now().Add(2 * time.Hour),
		isPaid:  true,
		fee:     50,
	})

	reg, err := svc.Register(comp.ID, player.ID, RegisterInput{
		Name:       "Player",
		PaymentTxn: "TXN123",
		PayerPhone: "0170000000",
		FBProfile:  "https://fb.example/player",
	})
	require.NoError(t, err)

	assert.False(t, reg.Verified)

	// No participant row until the organizer approves.
	var count int64
	db.Model(&models.Participant{}).Where("competition_id = ?", comp.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestRegisterPaidCompetitionRequiresPaymentFields(t *testing.T) {
	db := testDB(t)
	svc := NewRegistrationService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(time.Hour),
		endAt:   time.Now().Add(2 * time.Hour),
		isPaid:  true,
		fee:     50,
	})

	_, err := svc.Register(comp.ID, player.ID, RegisterInput{Name: "Player", PaymentTxn: "TXN123"})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestRegisterBlocksOrganizer(t *testing.T) {
	db := testDB(t)
	svc := NewRegistrationService(db)

	organizer := createTestUser(t, db, "organizer")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(time.Hour),
		endAt:   time.Now().Add(2 * time.Hour),
	})

	_, err := svc.Register(comp.ID, organizer.ID, RegisterInput{Name: "Me"})
	assert.True(t, errors.Is(err, models.ErrSelfRegistration))
}

func TestRegisterAfterWindowClosed(t *testing.T) {
	db := testDB(t)
	svc := NewRegistrationService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")

	t.Run("past deadline", func(t *testing.T) {
		deadline := time.Now().Add(-time.Minute)
		comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
			startAt: time.Now().Add(time.Hour),
			endAt:   time.Now().Add(2 * time.Hour),
			regEnds: &deadline,
		})

		_, err := svc.Register(comp.ID, player.ID, RegisterInput{Name: "Late"})
		assert.True(t, errors.Is(err, models.ErrWindowClosed))
	})

	t.Run("already started", func(t *testing.T) {
		comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
			startAt: time.Now().Add(-time.Minute),
			endAt:   time.Now().Add(time.Hour),
		})

		_, err := svc.Register(comp.ID, player.ID, RegisterInput{Name: "Late"})
		assert.True(t, errors.Is(err, models.ErrWindowClosed))
	})
}

func TestRegisterTwiceReturnsExisting(t *testing.T) {
	db := testDB(t)
	svc := NewRegistrationService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(time.Hour),
		endAt:   time.Now().Add(2 * time.Hour),
	})

	first, err := svc.Register(comp.ID, player.ID, RegisterInput{Name: "First Name"})
	require.NoError(t, err)

	second, err := svc.Register(comp.ID, player.ID, RegisterInput{Name: "Changed Name"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "First Name", second.Name)

	var count int64
	db.Model(&models.Registration{}).Where("competition_id = ?", comp.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRegisterConcurrentFirstRegistrations(t *testing.T) {
	db := testDB(t)
	svc := NewRegistrationService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(time.Hour),
		endAt:   time.Now().Add(2 * time.Hour),
	})

	// Both callers may pass the existence check before either insert
	// lands; the loser must get the stored row back, not a store error.
	var start sync.WaitGroup
	start.Add(1)
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			start.Wait()
			_, err := svc.Register(comp.ID, player.ID, RegisterInput{Name: "Player"})
			results <- err
		}()
	}
	start.Done()

	for i := 0; i < 2; i++ {
		require.NoError(t, <-results)
	}

	var count int64
	db.Model(&models.Registration{}).Where("competition_id = ?", comp.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRegisterDraftCompetitionNotFound(t *testing.T) {
	db := testDB(t)
	svc := NewRegistrationService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(time.Hour),
		endAt:   time.Now().Add(2 * time.Hour),
		draft:   true,
	})

	_, err := svc.Register(comp.ID, player.ID, RegisterInput{Name: "Player"})
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestVerifyApprovesAndJoinsParticipants(t *testing.T) {
	db := testDB(t)
	svc := NewRegistrationService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(time.Hour),
		endAt:   time.Now().Add(2 * time.Hour),
		isPaid:  true,
		fee:     20,
	})

	reg, err := svc.Register(comp.ID, player.ID, RegisterInput{
		Name:       "Player",
		PaymentTxn: "TXN9",
		PayerPhone: "0171111111",
		FBProfile:  "https://fb.example/p",
	})
	require.NoError(t, err)

	approved, err := svc.Verify(comp.ID, reg.ID, organizer.ID, false, true)
	require.NoError(t, err)
	assert.True(t, approved.Verified)

	// Approving again is harmless: the participant set stays a set.
	_, err = svc.Verify(comp.ID, reg.ID, organizer.ID, false, true)
	require.NoError(t, err)

	var count int64
	db.Model(&models.Participant{}).Where("competition_id = ?", comp.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	assert.True(t, svc.HasVerifiedRegistration(comp.ID, player.ID))
}

func TestVerifyRejectRevokes(t *testing.T) {
	db := testDB(t)
	svc := NewRegistrationService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(time.Hour),
		endAt:   time.Now().Add(2 * time.Hour),
		isPaid:  true,
		fee:     20,
	})

	reg, err := svc.Register(comp.ID, player.ID, RegisterInput{
		Name:       "Player",
		PaymentTxn: "TXN9",
		PayerPhone: "0171111111",
		FBProfile:  "https://fb.example/p",
	})
	require.NoError(t, err)

	rejected, err := svc.Verify(comp.ID, reg.ID, organizer.ID, false, false)
	require.NoError(t, err)
	assert.False(t, rejected.Verified)
	assert.False(t, svc.HasVerifiedRegistration(comp.ID, player.ID))
}

func TestVerifyRequiresOrganizer(t *testing.T) {
	db := testDB(t)
	svc := NewRegistrationService(db)

	organizer := createTestUser(t, db, "organizer")
	player := createTestUser(t, db, "player")
	stranger := createTestUser(t, db, "stranger")
	admin := createTestUser(t, db, "admin")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(time.Hour),
		endAt:   time.Now().Add(2 * time.Hour),
		isPaid:  true,
		fee:     20,
	})

	reg, err := svc.Register(comp.ID, player.ID, RegisterInput{
		Name:       "Player",
		PaymentTxn: "TXN9",
		PayerPhone: "0171111111",
		FBProfile:  "https://fb.example/p",
	})
	require.NoError(t, err)

	_, err = svc.Verify(comp.ID, reg.ID, stranger.ID, false, true)
	assert.True(t, errors.Is(err, models.ErrForbidden))

	_, err = svc.Verify(comp.ID, reg.ID, admin.ID, true, true)
	assert.NoError(t, err)
}

func TestListRegistrationsOrganizerOnly(t *testing.T) {
	db := testDB(t)
	svc := NewRegistrationService(db)

	organizer := createTestUser(t, db, "organizer")
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	comp := createTestCompetition(t, db, organizer.ID, testCompetitionOpts{
		startAt: time.Now().Add(time.Hour),
		endAt:   time.Now().Add(2 * time.Hour),
	})

	_, err := svc.Register(comp.ID, alice.ID, RegisterInput{Name: "Alice"})
	require.NoError(t, err)
	_, err = svc.Register(comp.ID, bob.ID, RegisterInput{Name: "Bob"})
	require.NoError(t, err)

	regs, err := svc.ListRegistrations(comp.ID, organizer.ID, false)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, "Alice", regs[0].Name)
	assert.Equal(t, "Bob", regs[1].Name)

	_, err = svc.ListRegistrations(comp.ID, alice.ID, false)
	assert.True(t, errors.Is(err, models.ErrForbidden))
}
