package handlers

import (
	"errors"
	"net/http"

	"panelgrid-backend/shared/activity"
	"panelgrid-backend/shared/database/models/audit"
	"panelgrid-backend/shared/utils/query"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityHandler struct {
	store *activity.Store
	db    *gorm.DB
}

func NewActivityHandler(store *activity.Store, db *gorm.DB) *ActivityHandler {
	return &ActivityHandler{
		store: store,
		db:    db,
	}
}

// RecordRequest represents the request body for logging one activity event
type RecordRequest struct {
	Event       string                 `json:"event" binding:"required"`
	IP          string                 `json:"ip"`
	Description string                 `json:"description"`
	ActorType   string                 `json:"actor_type"`
	ActorID     string                 `json:"actor_id"`
	APIKeyID    string                 `json:"api_key_id"`
	Batch       string                 `json:"batch"`
	Properties  map[string]interface{} `json:"properties"`
	Subjects    []SubjectRequest       `json:"subjects"`
}

// SubjectRequest is one polymorphic entity reference attached to a record
type SubjectRequest struct {
	Type string `json:"type" binding:"required"`
	ID   string `json:"id" binding:"required"`
}

// RecordActivity logs one audit event
// @Summary Record activity
// @Description Creates one immutable activity record with optional actor, batch and subject references
// @Tags activity
// @Accept json
// @Produce json
// @Param request body RecordRequest true "Activity event data"
// @Success 201 {object} audit.ActivityLog "Created record"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 500 {object} map[string]string "Failed to store record"
// @Router /activity [post]
func (h *ActivityHandler) RecordActivity(c *gin.Context) {
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := activity.RecordInput{
		Event:       req.Event,
		IP:          req.IP,
		Description: req.Description,
		Properties:  req.Properties,
	}

	// Internal callers that don't know the original client address fall
	// back to their own
	if input.IP == "" {
		input.IP = c.ClientIP()
	}

	if req.ActorID != "" {
		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid actor ID"})
			return
		}
		if req.ActorType == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Actor type is required when actor ID is set"})
			return
		}
		input.Actor = &activity.ActorRef{Type: req.ActorType, ID: actorID}
	}

	if req.APIKeyID != "" {
		keyID, err := uuid.Parse(req.APIKeyID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid API key ID"})
			return
		}
		input.APIKeyID = &keyID
	}

	if req.Batch != "" {
		batchID, err := uuid.Parse(req.Batch)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid batch ID"})
			return
		}
		input.Batch = &batchID
	}

	for _, subject := range req.Subjects {
		subjectID, err := uuid.Parse(subject.ID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subject ID"})
			return
		}
		input.Subjects = append(input.Subjects, activity.SubjectRef{
			Type: subject.Type,
			ID:   subjectID,
		})
	}

	rec, err := h.store.Record(input)
	if err != nil {
		if errors.Is(err, activity.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not store activity record"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": rec})
}

// GetActivities lists activity records with filtering and pagination
// @Summary List activity records
// @Description Returns activity records newest first; events on the disabled list are excluded
// @Tags activity
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(25)
// @Param filters[event] query string false "Filter by event tag"
// @Param filters[actor_type] query string false "Filter by actor type"
// @Param filters[actor_id] query string false "Filter by actor ID"
// @Param filters[batch] query string false "Filter by batch ID"
// @Success 200 {object} map[string]interface{} "Records with pagination"
// @Failure 500 {object} map[string]string "Failed to fetch records"
// @Router /activity [get]
func (h *ActivityHandler) GetActivities(c *gin.Context) {
	params := query.ParseQueryParams(c)

	allowedFilters := map[string]string{
		"event":      "event",
		"actor_type": "actor_type",
		"actor_id":   "actor_id",
		"batch":      "batch",
		"ip":         "ip",
	}
	allowedSortFields := map[string]string{
		"timestamp": "timestamp",
		"event":     "event",
	}

	baseQuery := h.db.Model(&audit.ActivityLog{})
	// Hidden events stay in storage; they are filtered out only on the
	// way to readers
	if disabled := h.store.DisabledEvents(); len(disabled) > 0 {
		baseQuery = baseQuery.Where("event NOT IN ?", disabled)
	}

	baseQuery = query.ApplyFilters(baseQuery, params.Filters, allowedFilters)

	var total int64
	if err := baseQuery.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not count activity records"})
		return
	}

	baseQuery = query.ApplySort(baseQuery, params.Sort, allowedSortFields)
	baseQuery = query.ApplyPagination(baseQuery, params.Page, params.Limit)

	var logs []audit.ActivityLog
	if err := baseQuery.Preload("Subjects").Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch activity records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       logs,
		"pagination": query.BuildPaginationResponse(params.Page, params.Limit, total),
	})
}

// GetActivitiesByEvent lists records with an exact event tag match
// @Summary List activity records for one event
// @Tags activity
// @Produce json
// @Param event path string true "Event tag"
// @Success 200 {object} map[string]interface{} "Matching records"
// @Failure 500 {object} map[string]string "Failed to fetch records"
// @Router /activity/events/{event} [get]
func (h *ActivityHandler) GetActivitiesByEvent(c *gin.Context) {
	event := c.Param("event")

	logs, err := h.store.ForEvent(event)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch activity records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

// GetActivitiesByActor lists records performed by one actor
// @Summary List activity records for one actor
// @Description Records survive the actor being deleted; the log keeps its own reference
// @Tags activity
// @Produce json
// @Param type path string true "Actor type tag"
// @Param id path string true "Actor ID"
// @Success 200 {object} map[string]interface{} "Matching records"
// @Failure 400 {object} map[string]string "Invalid actor ID"
// @Failure 500 {object} map[string]string "Failed to fetch records"
// @Router /activity/actors/{type}/{id} [get]
func (h *ActivityHandler) GetActivitiesByActor(c *gin.Context) {
	actorType := c.Param("type")
	actorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid actor ID"})
		return
	}

	logs, err := h.store.ForActor(actorType, actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch activity records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

// GetActivitySummary renders one record as the panel's feed HTML fragment
// @Summary Render activity summary
// @Tags activity
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} map[string]string "Rendered HTML fragment"
// @Failure 400 {object} map[string]string "Invalid record ID"
// @Failure 404 {object} map[string]string "Record not found"
// @Router /activity/records/{id}/summary [get]
func (h *ActivityHandler) GetActivitySummary(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record ID"})
		return
	}

	rec, err := h.store.Find(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Activity record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch activity record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"html": h.store.RenderSummary(rec)})
}
