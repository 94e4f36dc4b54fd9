package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dwill458/Anchor--sub003/models"
	"github.com/dwill458/Anchor--sub003/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	ErrQueueFull     = errors.New("enhancement queue is full")
	ErrQuotaExceeded = errors.New("daily enhancement quota reached")
	ErrJobNotFound   = errors.New("enhancement job not found")
	ErrJobRunning    = errors.New("job already running")
	ErrAwaitTimeout  = errors.New("timed out waiting for enhancement")
)

// ImageGenerator renders a prompt into image bytes. Seed keeps retries
// reproducible.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, seed int64) ([]byte, string, error)
}

// ImageModerator screens a generated image before it is stored.
type ImageModerator interface {
	Review(ctx context.Context, img []byte) (bool, string, error)
}

// ImageStore persists image bytes and returns a public URL.
type ImageStore interface {
	SaveImage(img []byte, contentType, keyPrefix string) (string, error)
}

type EnhancementConfig struct {
	Workers        int
	QueueSize      int
	Variations     int
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	LeaseTTL       time.Duration
	SweepEvery     time.Duration
	FreeDailyQuota int
}

func EnhancementConfigFromEnv() EnhancementConfig {
	return EnhancementConfig{
		Workers:        envInt("ENHANCE_WORKERS", 2),
		QueueSize:      envInt("ENHANCE_QUEUE_SIZE", 32),
		Variations:     envInt("ENHANCE_VARIATIONS", 3),
		MaxAttempts:    envInt("ENHANCE_MAX_ATTEMPTS", 4),
		BackoffBase:    envDuration("ENHANCE_BACKOFF_BASE", 5*time.Second),
		BackoffMax:     envDuration("ENHANCE_BACKOFF_MAX", 5*time.Minute),
		LeaseTTL:       envDuration("ENHANCE_LEASE_TTL", 2*time.Minute),
		SweepEvery:     envDuration("ENHANCE_SWEEP_EVERY", 30*time.Second),
		FreeDailyQuota: envInt("FREE_DAILY_ENHANCEMENTS", 3),
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// EnhancementService runs the AI enhancement pipeline: a bounded in-memory
// dispatch channel in front of a DB-backed durable queue, a small worker
// pool, and a sweeper that requeues due retries and reclaims jobs whose
// worker died mid-run.
type EnhancementService struct {
	db    *gorm.DB
	gen   ImageGenerator
	mod   ImageModerator
	store ImageStore
	cfg   EnhancementConfig

	pending chan uint

	mu      sync.Mutex
	waiters map[uint][]chan *models.EnhancementJob
	started bool
	stopped bool

	stop chan struct{}
	grp  *errgroup.Group
}

func NewEnhancementService(db *gorm.DB, gen ImageGenerator, mod ImageModerator, store ImageStore, cfg EnhancementConfig) *EnhancementService {
	return &EnhancementService{
		db:      db,
		gen:     gen,
		mod:     mod,
		store:   store,
		cfg:     cfg,
		pending: make(chan uint, cfg.QueueSize),
		waiters: make(map[uint][]chan *models.EnhancementJob),
		stop:    make(chan struct{}),
	}
}

// Start launches the worker pool and the sweeper. Jobs left queued or
// running by a previous process are picked up by the first sweep.
func (s *EnhancementService) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.grp = &errgroup.Group{}
	for i := 0; i < s.cfg.Workers; i++ {
		s.grp.Go(s.worker)
	}
	s.grp.Go(s.sweeper)
	log.Printf("enhancement: started %d workers, queue size %d", s.cfg.Workers, s.cfg.QueueSize)
}

// Stop signals workers and the sweeper to exit and waits for them. In-flight
// jobs finish; anything still pending is re-dispatched on next start by the
// sweeper.
func (s *EnhancementService) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stop)
	_ = s.grp.Wait()
	log.Printf("enhancement: stopped")
}

// Enqueue creates a job for the anchor and hands it to the worker pool.
// When the dispatch channel is full the job is rolled back and ErrQueueFull
// returned so the API can tell the client to retry later.
func (s *EnhancementService) Enqueue(userID uint, anchorPublicID, renderStyle string) (*models.EnhancementJob, error) {
	var anchor models.Anchor
	if err := s.db.Where("public_id = ? AND user_id = ?", anchorPublicID, userID).First(&anchor).Error; err != nil {
		return nil, err
	}

	if err := s.checkQuota(userID); err != nil {
		return nil, err
	}

	analysis := utils.Analyze(anchor.Style, anchor.DistilledLetters, anchor.BaseSigilSvg)
	prompt := utils.BuildEnhancementPrompt(anchor.Category, renderStyle, analysis)

	job := &models.EnhancementJob{
		PublicID:    uuid.NewString(),
		AnchorID:    anchor.ID,
		UserID:      userID,
		Status:      models.JobQueued,
		MaxAttempts: s.cfg.MaxAttempts,
		NextRunAt:   time.Now(),
		Prompt:      prompt,
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, err
	}

	s.mu.Lock()
	rejected := s.stopped
	s.mu.Unlock()
	if rejected {
		s.db.Delete(job)
		return nil, ErrQueueFull
	}

	select {
	case s.pending <- job.ID:
	default:
		s.db.Delete(job)
		return nil, ErrQueueFull
	}

	EmitAnchorEvent(userID, anchor.ID, models.EventEnhancementQueued, job.PublicID)
	return job, nil
}

func (s *EnhancementService) checkQuota(userID uint) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return err
	}
	if user.Tier == models.TierPlus {
		return nil
	}

	today := time.Now()
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	var count int64
	if err := s.db.Model(&models.EnhancementJob{}).
		Where("user_id = ? AND created_at >= ? AND status <> ?", userID, start, models.JobCanceled).
		Count(&count).Error; err != nil {
		return err
	}
	if count >= int64(s.cfg.FreeDailyQuota) {
		return ErrQuotaExceeded
	}
	return nil
}

// GetJob loads a job owned by the user.
func (s *EnhancementService) GetJob(userID uint, publicID string) (*models.EnhancementJob, error) {
	var job models.EnhancementJob
	err := s.db.Where("public_id = ? AND user_id = ?", publicID, userID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobsForAnchor returns the user's jobs for one anchor, newest first.
func (s *EnhancementService) ListJobsForAnchor(userID uint, anchorPublicID string) ([]models.EnhancementJob, error) {
	var anchor models.Anchor
	if err := s.db.Where("public_id = ? AND user_id = ?", anchorPublicID, userID).First(&anchor).Error; err != nil {
		return nil, err
	}
	var jobs []models.EnhancementJob
	err := s.db.Where("anchor_id = ? AND user_id = ?", anchor.ID, userID).
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}

// Cancel stops a job that has not started. Running jobs can't be canceled:
// the worker already holds it.
func (s *EnhancementService) Cancel(userID uint, publicID string) (*models.EnhancementJob, error) {
	job, err := s.GetJob(userID, publicID)
	if err != nil {
		return nil, err
	}
	res := s.db.Model(&models.EnhancementJob{}).
		Where("id = ? AND status = ?", job.ID, models.JobQueued).
		Updates(map[string]any{"status": models.JobCanceled})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if job.Status == models.JobRunning {
			return nil, ErrJobRunning
		}
		return job, nil // already terminal, treat as settled
	}
	job.Status = models.JobCanceled
	s.notifyWaiters(job)
	return job, nil
}

// Await blocks until the job reaches a terminal status or the timeout
// elapses. The waiter channel is registered before the status re-read so a
// completion between the two can't be missed.
func (s *EnhancementService) Await(userID uint, publicID string, timeout time.Duration) (*models.EnhancementJob, error) {
	job, err := s.GetJob(userID, publicID)
	if err != nil {
		return nil, err
	}
	if job.Terminal() {
		return job, nil
	}

	ch := make(chan *models.EnhancementJob, 1)
	s.mu.Lock()
	s.waiters[job.ID] = append(s.waiters[job.ID], ch)
	s.mu.Unlock()
	defer s.dropWaiter(job.ID, ch)

	// Re-read after registering: the job may have finished in between.
	if fresh, err := s.GetJob(userID, publicID); err == nil && fresh.Terminal() {
		return fresh, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case done := <-ch:
		return done, nil
	case <-timer.C:
		return nil, ErrAwaitTimeout
	}
}

func (s *EnhancementService) dropWaiter(jobID uint, ch chan *models.EnhancementJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.waiters[jobID]
	for i, w := range list {
		if w == ch {
			s.waiters[jobID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(s.waiters[jobID]) == 0 {
		delete(s.waiters, jobID)
	}
}

func (s *EnhancementService) notifyWaiters(job *models.EnhancementJob) {
	s.mu.Lock()
	list := s.waiters[job.ID]
	delete(s.waiters, job.ID)
	s.mu.Unlock()
	for _, ch := range list {
		select {
		case ch <- job:
		default:
		}
	}
}

// RunInline executes a job synchronously on the caller's goroutine,
// bypassing the queue. Dev tooling only.
func (s *EnhancementService) RunInline(userID uint, anchorPublicID, renderStyle string) (*models.EnhancementJob, error) {
	var anchor models.Anchor
	if err := s.db.Where("public_id = ? AND user_id = ?", anchorPublicID, userID).First(&anchor).Error; err != nil {
		return nil, err
	}
	analysis := utils.Analyze(anchor.Style, anchor.DistilledLetters, anchor.BaseSigilSvg)
	job := &models.EnhancementJob{
		PublicID:    uuid.NewString(),
		AnchorID:    anchor.ID,
		UserID:      userID,
		Status:      models.JobQueued,
		MaxAttempts: 1,
		NextRunAt:   time.Now(),
		Prompt:      utils.BuildEnhancementPrompt(anchor.Category, renderStyle, analysis),
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, err
	}
	s.process(job.ID)
	return s.GetJob(userID, job.PublicID)
}

func (s *EnhancementService) worker() error {
	for {
		select {
		case <-s.stop:
			return nil
		case id := <-s.pending:
			s.process(id)
		}
	}
}

// sweeper periodically reclaims running jobs whose lease expired and
// re-dispatches queued jobs that are due (retries, restarts, overflow).
func (s *EnhancementService) sweeper() error {
	ticker := time.NewTicker(s.cfg.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *EnhancementService) sweep() {
	now := time.Now()

	// Workers that died mid-job leave status=running past the lease. A job
	// that crashed on its final attempt has no attempts left, so it fails
	// here instead of being requeued.
	spent := s.db.Model(&models.EnhancementJob{}).
		Where("status = ? AND next_run_at <= ? AND attempts >= max_attempts", models.JobRunning, now).
		Updates(map[string]any{
			"status":     models.JobFailed,
			"last_error": "lease expired on final attempt",
		})
	if spent.Error == nil && spent.RowsAffected > 0 {
		log.Printf("enhancement: failed %d expired jobs out of attempts", spent.RowsAffected)
	}

	res := s.db.Model(&models.EnhancementJob{}).
		Where("status = ? AND next_run_at <= ? AND attempts < max_attempts", models.JobRunning, now).
		Updates(map[string]any{"status": models.JobQueued, "next_run_at": now})
	if res.Error == nil && res.RowsAffected > 0 {
		log.Printf("enhancement: reclaimed %d expired jobs", res.RowsAffected)
	}

	var due []uint
	if err := s.db.Model(&models.EnhancementJob{}).
		Where("status = ? AND next_run_at <= ?", models.JobQueued, now).
		Order("next_run_at ASC").
		Limit(s.cfg.QueueSize).
		Pluck("id", &due).Error; err != nil {
		log.Printf("enhancement: sweep query failed: %v", err)
		return
	}
	for _, id := range due {
		select {
		case s.pending <- id:
		default:
			return // channel full, next sweep will catch the rest
		}
	}
}

// process claims and runs one job. The claim is a conditional update, so a
// job dispatched twice (sweeper plus channel) runs only once.
func (s *EnhancementService) process(jobID uint) {
	now := time.Now()
	res := s.db.Model(&models.EnhancementJob{}).
		Where("id = ? AND status = ?", jobID, models.JobQueued).
		Updates(map[string]any{
			"status":      models.JobRunning,
			"attempts":    gorm.Expr("attempts + 1"),
			"next_run_at": now.Add(s.cfg.LeaseTTL),
		})
	if res.Error != nil || res.RowsAffected == 0 {
		return // claimed elsewhere, canceled, or gone
	}

	var job models.EnhancementJob
	if err := s.db.First(&job, jobID).Error; err != nil {
		return
	}
	var anchor models.Anchor
	if err := s.db.First(&anchor, job.AnchorID).Error; err != nil {
		s.fail(&job, "anchor no longer exists")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LeaseTTL)
	defer cancel()

	baseSeed := utils.SigilSeed(anchor.DistilledLetters)
	keyPrefix := "enhanced-sigils/" + anchor.PublicID

	var urls []string
	rejections := 0
	for i := 0; i < s.cfg.Variations; i++ {
		seed := baseSeed + int64(i)*1000003
		img, contentType, err := s.gen.Generate(ctx, job.Prompt, seed)
		if err != nil {
			s.retryOrFail(&job, anchor.UserID, fmt.Sprintf("generate variation %d: %v", i+1, err))
			return
		}
		ok, label, err := s.mod.Review(ctx, img)
		if err != nil {
			s.retryOrFail(&job, anchor.UserID, fmt.Sprintf("moderate variation %d: %v", i+1, err))
			return
		}
		if !ok {
			log.Printf("enhancement: job %s variation %d rejected (%s)", job.PublicID, i+1, label)
			rejections++
			continue
		}
		url, err := s.store.SaveImage(img, contentType, keyPrefix)
		if err != nil {
			s.retryOrFail(&job, anchor.UserID, fmt.Sprintf("store variation %d: %v", i+1, err))
			return
		}
		urls = append(urls, url)
	}

	if len(urls) == 0 {
		// Every variation tripped moderation; retrying the same prompt
		// will not change that.
		s.fail(&job, fmt.Sprintf("all %d variations rejected by moderation", rejections))
		EmitAnchorEvent(anchor.UserID, anchor.ID, models.EventEnhancementFailed, job.PublicID)
		return
	}

	raw, _ := json.Marshal(urls)
	job.Status = models.JobSucceeded
	job.Variations = string(raw)
	job.LastError = ""
	if err := s.db.Save(&job).Error; err != nil {
		log.Printf("enhancement: job %s save failed: %v", job.PublicID, err)
		return
	}
	EmitAnchorEvent(anchor.UserID, anchor.ID, models.EventEnhancementReady, job.PublicID)
	s.notifyWaiters(&job)
}

// retryOrFail requeues the job with backoff, or fails it permanently when
// attempts are exhausted.
func (s *EnhancementService) retryOrFail(job *models.EnhancementJob, userID uint, reason string) {
	if job.Attempts >= job.MaxAttempts {
		s.fail(job, reason)
		EmitAnchorEvent(userID, job.AnchorID, models.EventEnhancementFailed, job.PublicID)
		return
	}
	delay := retryBackoff(job.Attempts, s.cfg.BackoffBase, s.cfg.BackoffMax)
	job.Status = models.JobQueued
	job.NextRunAt = time.Now().Add(delay)
	job.LastError = reason
	if err := s.db.Save(job).Error; err != nil {
		log.Printf("enhancement: job %s requeue failed: %v", job.PublicID, err)
	}
	log.Printf("enhancement: job %s attempt %d/%d failed, retrying in %s: %s",
		job.PublicID, job.Attempts, job.MaxAttempts, delay, reason)
}

func (s *EnhancementService) fail(job *models.EnhancementJob, reason string) {
	job.Status = models.JobFailed
	job.LastError = reason
	if err := s.db.Save(job).Error; err != nil {
		log.Printf("enhancement: job %s fail-save failed: %v", job.PublicID, err)
	}
	log.Printf("enhancement: job %s failed permanently: %s", job.PublicID, reason)
	s.notifyWaiters(job)
}

// retryBackoff doubles the base per prior attempt and caps at max.
func retryBackoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > 16 {
		shift = 16
	}
	d := base * (1 << shift)
	if d > max || d <= 0 {
		return max
	}
	return d
}
