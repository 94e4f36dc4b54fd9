package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dwill458/Anchor--sub003/models"
	"github.com/dwill458/Anchor--sub003/services"
	"github.com/dwill458/Anchor--sub003/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type EnhancementController struct {
	Svc *services.EnhancementService
}

func NewEnhancementController(svc *services.EnhancementService) *EnhancementController {
	return &EnhancementController{Svc: svc}
}

// syncAwaitTimeout bounds the blocking enhance call. Jobs that outlive it
// keep running; the client gets the job id and polls.
const syncAwaitTimeout = 90 * time.Second

// enhanceRequest is the app's AI enhancement contract. Field names are
// camelCase and must stay that way: released clients depend on them.
type enhanceRequest struct {
	SigilSvg string              `json:"sigilSvg" binding:"required"`
	Analysis utils.SigilAnalysis `json:"analysis"`
	UserID   uint                `json:"userId" binding:"required"`
	AnchorID string              `json:"anchorId" binding:"required"`
}

// EnhanceSync handles POST /api/ai/enhance: enqueue, then block until the
// job settles or the timeout passes.
func (ec *EnhancementController) EnhanceSync(c *gin.Context) {
	uid := c.GetUint("userID")

	var req enhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID != uid {
		c.JSON(http.StatusForbidden, gin.H{"error": "userId does not match authenticated user"})
		return
	}

	job, err := ec.Svc.Enqueue(uid, req.AnchorID, "")
	if err != nil {
		ec.writeEnqueueError(c, err)
		return
	}

	done, err := ec.Svc.Await(uid, job.PublicID, syncAwaitTimeout)
	if errors.Is(err, services.ErrAwaitTimeout) {
		c.Header("Retry-After", "10")
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":  "enhancement still in progress",
			"job_id": job.PublicID,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	switch done.Status {
	case models.JobSucceeded:
		c.JSON(http.StatusOK, gin.H{
			"variations": decodeVariations(done),
			"prompt":     done.Prompt,
		})
	case models.JobCanceled:
		c.JSON(http.StatusConflict, gin.H{"error": "job was canceled", "job_id": done.PublicID})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": done.LastError, "job_id": done.PublicID})
	}
}

type enqueueInput struct {
	AnchorID    string `json:"anchor_id" binding:"required"`
	RenderStyle string `json:"render_style"`
}

// EnhanceAsync handles POST /enhancements: accept the job and return
// immediately; progress arrives over the events websocket.
func (ec *EnhancementController) EnhanceAsync(c *gin.Context) {
	uid := c.GetUint("userID")

	var input enqueueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := ec.Svc.Enqueue(uid, input.AnchorID, input.RenderStyle)
	if err != nil {
		ec.writeEnqueueError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (ec *EnhancementController) GetJob(c *gin.Context) {
	uid := c.GetUint("userID")

	job, err := ec.Svc.GetJob(uid, c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := gin.H{"job": job}
	if job.Status == models.JobSucceeded {
		out["variations"] = decodeVariations(job)
	}
	c.JSON(http.StatusOK, out)
}

func (ec *EnhancementController) ListForAnchor(c *gin.Context) {
	uid := c.GetUint("userID")

	jobs, err := ec.Svc.ListJobsForAnchor(uid, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "anchor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (ec *EnhancementController) CancelJob(c *gin.Context) {
	uid := c.GetUint("userID")

	job, err := ec.Svc.Cancel(uid, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrJobRunning):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

func (ec *EnhancementController) writeEnqueueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrQueueFull):
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "anchor not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func decodeVariations(job *models.EnhancementJob) []string {
	var urls []string
	_ = json.Unmarshal([]byte(job.Variations), &urls)
	if urls == nil {
		urls = []string{}
	}
	return urls
}
