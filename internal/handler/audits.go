package handler

import (
	"net/http"

	"gmcore/internal/apierror"
	"gmcore/internal/dto"
	"gmcore/internal/middleware"
	"gmcore/internal/model"
	"gmcore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuditHandler struct{ svc service.AuditService }

func NewAuditHandler(svc service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

func (h *AuditHandler) Plan(c *gin.Context) {
	var req dto.PlanAuditRequest
	if !bindAndValidate(c, &req) {
		return
	}
	middleware.MarkActivity(c, "audit.plan", "inventory")
	audit, err := h.svc.Plan(c.Request.Context(), req.LocationID, actorID(c), req.Kind, req.ScheduledOn)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, auditToDTO(audit))
}

func (h *AuditHandler) Start(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	middleware.MarkActivity(c, "audit.start", "inventory")
	audit, err := h.svc.Start(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, auditToDTO(audit))
}

func (h *AuditHandler) Count(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.CountRequest
	if !bindAndValidate(c, &req) {
		return
	}
	middleware.MarkActivity(c, "audit.count", "inventory")
	line, err := h.svc.Count(c.Request.Context(), id, req.ItemID, req.PhysicalCount, req.Notes)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, lineToDTO(line))
}

func (h *AuditHandler) Accept(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	middleware.MarkActivity(c, "audit.accept", "inventory")
	audit, err := h.svc.Accept(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, auditToDTO(audit))
}

func (h *AuditHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	middleware.MarkActivity(c, "audit.cancel", "inventory")
	if err := h.svc.Cancel(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuditHandler) Variances(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	lines, err := h.svc.ListVariances(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]dto.AuditLineResponse, 0, len(lines))
	for i := range lines {
		out = append(out, lineToDTO(&lines[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *AuditHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	audit, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, auditToDTO(audit))
}

func auditToDTO(a *model.InventoryAudit) dto.AuditResponse {
	return dto.AuditResponse{
		ID:              a.ID,
		LocationID:      a.LocationID,
		AuditorID:       a.AuditorID,
		Kind:            a.Kind,
		Status:          a.Status,
		ScheduledOn:     a.ScheduledOn,
		StartedAt:       a.StartedAt,
		CompletedAt:     a.CompletedAt,
		ItemsCounted:    a.ItemsCounted,
		Discrepancies:   a.Discrepancies,
		ValueDifference: a.ValueDifference,
	}
}

func lineToDTO(l *model.AuditLine) dto.AuditLineResponse {
	return dto.AuditLineResponse{
		ItemID:        l.ItemID,
		SystemCount:   l.SystemCount,
		PhysicalCount: l.PhysicalCount,
		Variance:      l.Variance,
		ValueVariance: l.ValueVariance,
		Counted:       l.Counted,
		CountedAt:     l.CountedAt,
		Notes:         l.Notes,
	}
}
