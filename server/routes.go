package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/m-ahsan-nazer/cacophony-api/constant"
	"github.com/m-ahsan-nazer/cacophony-api/dto"
	"github.com/m-ahsan-nazer/cacophony-api/entities"
	"github.com/m-ahsan-nazer/cacophony-api/repository"
	"github.com/m-ahsan-nazer/cacophony-api/service"
)

// Thin plumbing over the core services. Authentication and full request
// validation live at the API gateway boundary; these routes only parse.
type routeDeps struct {
	store       repository.RecordingStore
	coordinator *service.Coordinator
	query       *service.QueryService
	ingest      *service.IngestService
}

func registerRoutes(r *gin.Engine, deps *routeDeps) {
	r.POST("/processing/claim", deps.claim)
	r.POST("/processing/:id/report", deps.report)
	r.POST("/recordings/:id/reprocess", deps.reprocess)
	r.GET("/recordings", deps.listRecordings)
	r.PATCH("/recordings/:id", deps.updateRecording)
}

func (d *routeDeps) claim(c *gin.Context) {
	typ := constant.RecordingType(c.Query("type"))
	stage := constant.ProcessingState(c.Query("state"))

	rec, err := d.coordinator.Claim(c.Request.Context(), typ, stage)
	if errors.Is(err, entities.ErrNoClaimableRecording) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (d *routeDeps) report(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recording id"})
		return
	}
	var report dto.JobReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = d.coordinator.Report(c.Request.Context(), id, report)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, entities.ErrJobKeyMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, entities.ErrRecordingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, entities.ErrInvalidState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (d *routeDeps) reprocess(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recording id"})
		return
	}
	err = d.coordinator.Reprocess(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, entities.ErrRecordingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (d *routeDeps) listRecordings(c *gin.Context) {
	user, ok := d.principal(c)
	if !ok {
		return
	}

	var q dto.RecordingQuery
	if raw := c.Query("query"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := d.query.Query(c.Request.Context(), user, q)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, entities.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (d *routeDeps) updateRecording(c *gin.Context) {
	user, ok := d.principal(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recording id"})
		return
	}
	var update dto.RecordingUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := d.ingest.UpdateRecording(c.Request.Context(), user, id, update)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, rec)
	case errors.Is(err, entities.ErrAuthorizationDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, entities.ErrRecordingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// principal resolves the already-authenticated user forwarded by the
// gateway. JWT verification happens upstream.
func (d *routeDeps) principal(c *gin.Context) (*entities.User, bool) {
	userID, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
		return nil, false
	}
	user, err := d.store.LoadUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return nil, false
	}
	return user, true
}
