package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dwill458/Anchor--sub003/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubGen fails the first failUntil calls, then returns image bytes.
type stubGen struct {
	calls     atomic.Int32
	failUntil int32
}

func (g *stubGen) Generate(ctx context.Context, prompt string, seed int64) ([]byte, string, error) {
	n := g.calls.Add(1)
	if n <= g.failUntil {
		return nil, "", errors.New("model is loading")
	}
	return []byte(fmt.Sprintf("png:%d", seed)), "image/png", nil
}

// stubMod rejects the first rejectFirst images it sees.
type stubMod struct {
	calls       atomic.Int32
	rejectFirst int32
}

func (m *stubMod) Review(ctx context.Context, img []byte) (bool, string, error) {
	n := m.calls.Add(1)
	if n <= m.rejectFirst {
		return false, "Rude Gestures", nil
	}
	return true, "", nil
}

type stubStore struct {
	saved atomic.Int32
}

func (s *stubStore) SaveImage(img []byte, contentType, keyPrefix string) (string, error) {
	n := s.saved.Add(1)
	return fmt.Sprintf("https://cdn.example/%s/%d.png", keyPrefix, n), nil
}

func testEnhancementConfig() EnhancementConfig {
	return EnhancementConfig{
		Workers:        2,
		QueueSize:      8,
		Variations:     3,
		MaxAttempts:    2,
		BackoffBase:    time.Millisecond,
		BackoffMax:     10 * time.Millisecond,
		LeaseTTL:       time.Minute,
		SweepEvery:     10 * time.Millisecond,
		FreeDailyQuota: 10,
	}
}

func newTestEnhancement(t *testing.T, db *gorm.DB, cfg EnhancementConfig, gen ImageGenerator, mod ImageModerator) (*EnhancementService, *stubStore) {
	t.Helper()
	store := &stubStore{}
	svc := NewEnhancementService(db, gen, mod, store, cfg)
	return svc, store
}

func createChargedAnchor(t *testing.T, db *gorm.DB, userID uint) *models.Anchor {
	t.Helper()
	anchor, err := CreateAnchor(userID, CreateAnchorInput{
		IntentionText: "enhance this glyph",
		Category:      "focus",
	})
	require.NoError(t, err)
	return anchor
}

func TestRetryBackoff(t *testing.T) {
	base, max := 5*time.Second, 5*time.Minute
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{7, 5 * time.Minute}, // capped
		{40, 5 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryBackoff(tt.attempt, base, max), "attempt %d", tt.attempt)
	}
}

func TestEnhancementSuccess(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e1@example.com", models.TierFree)
	anchor := createChargedAnchor(t, db, user.ID)

	svc, store := newTestEnhancement(t, db, testEnhancementConfig(), &stubGen{}, &stubMod{})
	svc.Start()
	defer svc.Stop()

	job, err := svc.Enqueue(user.ID, anchor.PublicID, "gold-ink")
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, job.Status)
	assert.NotEmpty(t, job.Prompt)

	done, err := svc.Await(user.ID, job.PublicID, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, done.Status)

	var urls []string
	require.NoError(t, json.Unmarshal([]byte(done.Variations), &urls))
	assert.Len(t, urls, 3)
	assert.EqualValues(t, 3, store.saved.Load())

	var events int64
	db.Model(&models.AnchorEvent{}).Where("kind = ?", models.EventEnhancementReady).Count(&events)
	assert.EqualValues(t, 1, events)
}

func TestEnhancementRetriesThenSucceeds(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e2@example.com", models.TierFree)
	anchor := createChargedAnchor(t, db, user.ID)

	// first generate call fails, the sweeper requeues, second attempt works
	svc, _ := newTestEnhancement(t, db, testEnhancementConfig(), &stubGen{failUntil: 1}, &stubMod{})
	svc.Start()
	defer svc.Stop()

	job, err := svc.Enqueue(user.ID, anchor.PublicID, "")
	require.NoError(t, err)

	done, err := svc.Await(user.ID, job.PublicID, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, done.Status)
	assert.Equal(t, 2, done.Attempts)
}

func TestEnhancementFailsAfterMaxAttempts(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e3@example.com", models.TierFree)
	anchor := createChargedAnchor(t, db, user.ID)

	svc, _ := newTestEnhancement(t, db, testEnhancementConfig(), &stubGen{failUntil: 100}, &stubMod{})
	svc.Start()
	defer svc.Stop()

	job, err := svc.Enqueue(user.ID, anchor.PublicID, "")
	require.NoError(t, err)

	done, err := svc.Await(user.ID, job.PublicID, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, done.Status)
	assert.Equal(t, 2, done.Attempts)
	assert.Contains(t, done.LastError, "model is loading")

	var events int64
	db.Model(&models.AnchorEvent{}).Where("kind = ?", models.EventEnhancementFailed).Count(&events)
	assert.EqualValues(t, 1, events)
}

func TestEnhancementModerationRejectionIsPermanent(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e4@example.com", models.TierFree)
	anchor := createChargedAnchor(t, db, user.ID)

	// every variation rejected: fail immediately, no retry
	svc, store := newTestEnhancement(t, db, testEnhancementConfig(), &stubGen{}, &stubMod{rejectFirst: 100})
	svc.Start()
	defer svc.Stop()

	job, err := svc.Enqueue(user.ID, anchor.PublicID, "")
	require.NoError(t, err)

	done, err := svc.Await(user.ID, job.PublicID, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, done.Status)
	assert.Equal(t, 1, done.Attempts, "moderation rejection must not retry")
	assert.Contains(t, done.LastError, "rejected by moderation")
	assert.Zero(t, store.saved.Load())
}

func TestEnhancementPartialModerationKeepsRest(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e5@example.com", models.TierFree)
	anchor := createChargedAnchor(t, db, user.ID)

	svc, store := newTestEnhancement(t, db, testEnhancementConfig(), &stubGen{}, &stubMod{rejectFirst: 1})
	svc.Start()
	defer svc.Stop()

	job, err := svc.Enqueue(user.ID, anchor.PublicID, "")
	require.NoError(t, err)

	done, err := svc.Await(user.ID, job.PublicID, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, done.Status)

	var urls []string
	require.NoError(t, json.Unmarshal([]byte(done.Variations), &urls))
	assert.Len(t, urls, 2, "rejected variation is dropped, the rest ship")
	assert.EqualValues(t, 2, store.saved.Load())
}

func TestEnqueueBackpressure(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e6@example.com", models.TierPlus)
	anchor := createChargedAnchor(t, db, user.ID)

	cfg := testEnhancementConfig()
	cfg.QueueSize = 1
	// workers never started: the channel fills and stays full
	svc, _ := newTestEnhancement(t, db, cfg, &stubGen{}, &stubMod{})

	_, err := svc.Enqueue(user.ID, anchor.PublicID, "")
	require.NoError(t, err)

	_, err = svc.Enqueue(user.ID, anchor.PublicID, "")
	assert.ErrorIs(t, err, ErrQueueFull)

	// the rejected job row is rolled back
	var count int64
	db.Model(&models.EnhancementJob{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestEnqueueFreeTierQuota(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e7@example.com", models.TierFree)
	anchor := createChargedAnchor(t, db, user.ID)

	cfg := testEnhancementConfig()
	cfg.FreeDailyQuota = 1
	svc, _ := newTestEnhancement(t, db, cfg, &stubGen{}, &stubMod{})

	_, err := svc.Enqueue(user.ID, anchor.PublicID, "")
	require.NoError(t, err)

	_, err = svc.Enqueue(user.ID, anchor.PublicID, "")
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// plus tier ignores the daily cap
	plus := createTestUser(t, db, "e7plus@example.com", models.TierPlus)
	plusAnchor := createChargedAnchor(t, db, plus.ID)
	for i := 0; i < 3; i++ {
		_, err := svc.Enqueue(plus.ID, plusAnchor.PublicID, "")
		require.NoError(t, err)
	}
}

func TestCancelQueuedJob(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e8@example.com", models.TierFree)
	anchor := createChargedAnchor(t, db, user.ID)

	svc, _ := newTestEnhancement(t, db, testEnhancementConfig(), &stubGen{}, &stubMod{})
	// not started: job stays queued

	job, err := svc.Enqueue(user.ID, anchor.PublicID, "")
	require.NoError(t, err)

	canceled, err := svc.Cancel(user.ID, job.PublicID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCanceled, canceled.Status)

	// canceling a settled job is a no-op
	again, err := svc.Cancel(user.ID, job.PublicID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCanceled, again.Status)

	// a canceled job is never claimed
	svc.process(job.ID)
	fresh, err := svc.GetJob(user.ID, job.PublicID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCanceled, fresh.Status)
	assert.Zero(t, fresh.Attempts)
}

func TestProcessClaimsJobOnce(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e9@example.com", models.TierFree)
	anchor := createChargedAnchor(t, db, user.ID)

	gen := &stubGen{}
	svc, _ := newTestEnhancement(t, db, testEnhancementConfig(), gen, &stubMod{})

	job, err := svc.Enqueue(user.ID, anchor.PublicID, "")
	require.NoError(t, err)

	svc.process(job.ID)
	svc.process(job.ID) // double dispatch must be a no-op

	done, err := svc.GetJob(user.ID, job.PublicID)
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, done.Status)
	assert.Equal(t, 1, done.Attempts)
	assert.EqualValues(t, 3, gen.calls.Load(), "variations generated exactly once")
}

func TestSweepRequeuesDueAndReclaimsExpired(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e10@example.com", models.TierFree)
	anchor := createChargedAnchor(t, db, user.ID)

	svc, _ := newTestEnhancement(t, db, testEnhancementConfig(), &stubGen{}, &stubMod{})

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	mk := func(id, status string, nextRun time.Time) *models.EnhancementJob {
		j := &models.EnhancementJob{
			PublicID: id, AnchorID: anchor.ID, UserID: user.ID,
			Status: status, MaxAttempts: 2, NextRunAt: nextRun,
		}
		require.NoError(t, db.Create(j).Error)
		return j
	}

	due := mk("due", models.JobQueued, past)
	mk("later", models.JobQueued, future)
	stale := mk("stale-running", models.JobRunning, past) // abandoned by a dead worker
	mk("done", models.JobSucceeded, past)

	svc.sweep()

	// due + reclaimed jobs were dispatched to the channel
	assert.Len(t, svc.pending, 2)

	var reclaimed models.EnhancementJob
	require.NoError(t, db.First(&reclaimed, stale.ID).Error)
	assert.Equal(t, models.JobQueued, reclaimed.Status)

	var untouched models.EnhancementJob
	require.NoError(t, db.Where("public_id = ?", "later").First(&untouched).Error)
	assert.Equal(t, models.JobQueued, untouched.Status)

	drained := map[uint]bool{}
	for len(svc.pending) > 0 {
		drained[<-svc.pending] = true
	}
	assert.True(t, drained[due.ID])
	assert.True(t, drained[stale.ID])
}

func TestSweepFailsExpiredJobOutOfAttempts(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e13@example.com", models.TierFree)
	anchor := createChargedAnchor(t, db, user.ID)

	svc, _ := newTestEnhancement(t, db, testEnhancementConfig(), &stubGen{}, &stubMod{})

	past := time.Now().Add(-time.Minute)

	// worker died during the final attempt: no attempts left to retry
	spent := &models.EnhancementJob{
		PublicID: "spent", AnchorID: anchor.ID, UserID: user.ID,
		Status: models.JobRunning, Attempts: 2, MaxAttempts: 2, NextRunAt: past,
	}
	require.NoError(t, db.Create(spent).Error)

	// worker died mid-run with an attempt left
	retryable := &models.EnhancementJob{
		PublicID: "retryable", AnchorID: anchor.ID, UserID: user.ID,
		Status: models.JobRunning, Attempts: 1, MaxAttempts: 2, NextRunAt: past,
	}
	require.NoError(t, db.Create(retryable).Error)

	svc.sweep()

	var failed models.EnhancementJob
	require.NoError(t, db.First(&failed, spent.ID).Error)
	assert.Equal(t, models.JobFailed, failed.Status)
	assert.Contains(t, failed.LastError, "lease expired")

	var requeued models.EnhancementJob
	require.NoError(t, db.First(&requeued, retryable.ID).Error)
	assert.Equal(t, models.JobQueued, requeued.Status)

	drained := map[uint]bool{}
	for len(svc.pending) > 0 {
		drained[<-svc.pending] = true
	}
	assert.True(t, drained[retryable.ID])
	assert.False(t, drained[spent.ID], "a failed job must not be redispatched")
}

func TestRunInline(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e11@example.com", models.TierFree)
	anchor := createChargedAnchor(t, db, user.ID)

	svc, _ := newTestEnhancement(t, db, testEnhancementConfig(), &stubGen{}, &stubMod{})

	job, err := svc.RunInline(user.ID, anchor.PublicID, "engraved")
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, job.Status)
	assert.Contains(t, job.Prompt, "engraved")
}

func TestStopRejectsNewWork(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "e12@example.com", models.TierFree)
	anchor := createChargedAnchor(t, db, user.ID)

	svc, _ := newTestEnhancement(t, db, testEnhancementConfig(), &stubGen{}, &stubMod{})
	svc.Start()
	svc.Stop()

	_, err := svc.Enqueue(user.ID, anchor.PublicID, "")
	assert.ErrorIs(t, err, ErrQueueFull)
}
