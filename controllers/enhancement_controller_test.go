package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dwill458/Anchor--sub003/models"
	"github.com/dwill458/Anchor--sub003/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGen struct{ fail bool }

func (g fakeGen) Generate(ctx context.Context, prompt string, seed int64) ([]byte, string, error) {
	if g.fail {
		return nil, "", errors.New("model exploded")
	}
	return []byte("png"), "image/png", nil
}

type approveAll struct{}

func (approveAll) Review(ctx context.Context, img []byte) (bool, string, error) {
	return true, "", nil
}

type memStore struct{ n int }

func (s *memStore) SaveImage(img []byte, contentType, keyPrefix string) (string, error) {
	s.n++
	return fmt.Sprintf("https://cdn.example/%s/%d.png", keyPrefix, s.n), nil
}

func enhancementFixture(t *testing.T, db *gorm.DB, gen services.ImageGenerator) (*services.EnhancementService, *models.User, *models.Anchor) {
	t.Helper()

	user := &models.User{Email: "app@example.com", Password: "x", Tier: models.TierPlus}
	require.NoError(t, db.Create(user).Error)
	anchor, err := services.CreateAnchor(user.ID, services.CreateAnchorInput{
		IntentionText: "steady focus",
		Category:      "focus",
	})
	require.NoError(t, err)

	svc := services.NewEnhancementService(db, gen, approveAll{}, &memStore{}, services.EnhancementConfig{
		Workers:        1,
		QueueSize:      4,
		Variations:     2,
		MaxAttempts:    1,
		BackoffBase:    time.Millisecond,
		BackoffMax:     time.Millisecond,
		LeaseTTL:       time.Minute,
		SweepEvery:     10 * time.Millisecond,
		FreeDailyQuota: 10,
	})
	svc.Start()
	t.Cleanup(svc.Stop)
	return svc, user, anchor
}

func enhanceBody(userID uint, anchorID, svg string) string {
	b, _ := json.Marshal(map[string]any{
		"sigilSvg": svg,
		"analysis": map[string]any{"letterCount": 3, "strokeCount": 5},
		"userId":   userID,
		"anchorId": anchorID,
	})
	return string(b)
}

func TestEnhanceSyncContract(t *testing.T) {
	db := setupTestDB(t)
	svc, user, anchor := enhancementFixture(t, db, fakeGen{})

	r := newTestRouter()
	r.POST("/api/ai/enhance", authAs(user.ID, user.Email), NewEnhancementController(svc).EnhanceSync)

	req := httptest.NewRequest("POST", "/api/ai/enhance",
		strings.NewReader(enhanceBody(user.ID, anchor.PublicID, anchor.BaseSigilSvg)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Variations []string `json:"variations"`
		Prompt     string   `json:"prompt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out.Variations, 2)
	assert.NotEmpty(t, out.Prompt)
	assert.NotContains(t, out.Prompt, "steady focus", "intention text must not leak into the prompt")
}

func TestEnhanceSyncRejectsMismatchedUser(t *testing.T) {
	db := setupTestDB(t)
	svc, user, anchor := enhancementFixture(t, db, fakeGen{})

	r := newTestRouter()
	r.POST("/api/ai/enhance", authAs(user.ID, user.Email), NewEnhancementController(svc).EnhanceSync)

	req := httptest.NewRequest("POST", "/api/ai/enhance",
		strings.NewReader(enhanceBody(user.ID+1, anchor.PublicID, anchor.BaseSigilSvg)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEnhanceSyncUnknownAnchor(t *testing.T) {
	db := setupTestDB(t)
	svc, user, _ := enhancementFixture(t, db, fakeGen{})

	r := newTestRouter()
	r.POST("/api/ai/enhance", authAs(user.ID, user.Email), NewEnhancementController(svc).EnhanceSync)

	req := httptest.NewRequest("POST", "/api/ai/enhance",
		strings.NewReader(enhanceBody(user.ID, "no-such-anchor", "<svg/>")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnhanceSyncSurfacesGenerationFailure(t *testing.T) {
	db := setupTestDB(t)
	svc, user, anchor := enhancementFixture(t, db, fakeGen{fail: true})

	r := newTestRouter()
	r.POST("/api/ai/enhance", authAs(user.ID, user.Email), NewEnhancementController(svc).EnhanceSync)

	req := httptest.NewRequest("POST", "/api/ai/enhance",
		strings.NewReader(enhanceBody(user.ID, anchor.PublicID, anchor.BaseSigilSvg)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "job_id")
}

func TestEnhanceAsyncAndPolling(t *testing.T) {
	db := setupTestDB(t)
	svc, user, anchor := enhancementFixture(t, db, fakeGen{})

	ec := NewEnhancementController(svc)
	r := newTestRouter()
	grp := r.Group("", authAs(user.ID, user.Email))
	grp.POST("/enhancements", ec.EnhanceAsync)
	grp.GET("/enhancements/:id", ec.GetJob)

	body, _ := json.Marshal(map[string]string{"anchor_id": anchor.PublicID, "render_style": "neon"})
	req := httptest.NewRequest("POST", "/enhancements", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var accepted struct {
		Job struct {
			JobID string `json:"job_id"`
		} `json:"job"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.Job.JobID)

	// poll until the worker settles it
	deadline := time.Now().Add(5 * time.Second)
	for {
		req = httptest.NewRequest("GET", "/enhancements/"+accepted.Job.JobID, nil)
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var out struct {
			Job struct {
				Status string `json:"status"`
			} `json:"job"`
			Variations []string `json:"variations"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		if out.Job.Status == models.JobSucceeded {
			assert.Len(t, out.Variations, 2)
			break
		}
		require.True(t, time.Now().Before(deadline), "job never settled")
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetJobUnknownID(t *testing.T) {
	db := setupTestDB(t)
	svc, user, _ := enhancementFixture(t, db, fakeGen{})

	r := newTestRouter()
	r.GET("/enhancements/:id", authAs(user.ID, user.Email), NewEnhancementController(svc).GetJob)

	req := httptest.NewRequest("GET", "/enhancements/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
