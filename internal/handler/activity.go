package handler

import (
	"net/http"
	"time"

	"gmcore/internal/apierror"
	"gmcore/internal/dto"
	"gmcore/internal/model"
	"gmcore/internal/repository"
	"gmcore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ActivityHandler struct {
	svc   service.ActivityService
	usage service.UsageService
}

func NewActivityHandler(svc service.ActivityService, usage service.UsageService) *ActivityHandler {
	return &ActivityHandler{svc: svc, usage: usage}
}

func (h *ActivityHandler) ListForUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user_id"))
		return
	}
	filter := repository.ActivityFilter{
		Type:     c.Query("type"),
		Category: c.Query("category"),
	}
	entries, err := h.svc.ListForUser(c.Request.Context(), userID, filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entriesToDTO(entries))
}

func (h *ActivityHandler) ListRecent(c *gin.Context) {
	filter := repository.ActivityFilter{
		Type:     c.Query("type"),
		Category: c.Query("category"),
	}
	entries, err := h.svc.ListRecent(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entriesToDTO(entries))
}

func (h *ActivityHandler) OpenSession(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	session, err := h.svc.OpenSession(c.Request.Context(), req.UserID, req.LoginMethod,
		&service.RequestInfo{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.OpenSessionResponse{
		Token:   session.SessionToken,
		LoginAt: session.LoginAt,
	})
}

func (h *ActivityHandler) CloseSession(c *gin.Context) {
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.CloseSession(c.Request.Context(), req.Token, req.Reason); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Usage returns rollup buckets for a date range (YYYY-MM-DD, inclusive from,
// exclusive to).
func (h *ActivityHandler) Usage(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid from date"))
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid to date"))
		return
	}
	buckets, err := h.usage.ListRange(c.Request.Context(), from, to)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]dto.UsageBucketResponse, 0, len(buckets))
	for _, b := range buckets {
		var hour *int
		if b.Hour != model.HourWholeDay {
			h := b.Hour
			hour = &h
		}
		out = append(out, dto.UsageBucketResponse{
			Date:             b.Date,
			Hour:             hour,
			ActiveUsers:      b.ActiveUsers,
			NewRegistrations: b.NewRegistrations,
			Logins:           b.Logins,
			FailedLogins:     b.FailedLogins,
			PageViews:        b.PageViews,
			ServiceActions:   b.ServiceActions,
			Errors:           b.Errors,
			AvgResponseMs:    b.AvgResponseMs,
		})
	}
	c.JSON(http.StatusOK, out)
}

func entriesToDTO(entries []model.ActivityEntry) []dto.ActivityResponse {
	out := make([]dto.ActivityResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.ActivityResponse{
			ID:         e.ID,
			SubjectID:  e.SubjectID,
			ActorID:    e.ActorID,
			Type:       e.Type,
			Action:     e.Action,
			Category:   e.Category,
			Success:    e.Success,
			Metadata:   e.Metadata,
			DurationMs: e.DurationMs,
			OccurredAt: e.OccurredAt,
		})
	}
	return out
}
