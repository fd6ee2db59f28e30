package handler

import (
	"net/http"

	"gmcore/internal/apierror"
	"gmcore/internal/dto"
	"gmcore/internal/middleware"
	"gmcore/internal/model"
	"gmcore/internal/repository"
	"gmcore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AlertHandler struct{ svc service.AlertService }

func NewAlertHandler(svc service.AlertService) *AlertHandler {
	return &AlertHandler{svc: svc}
}

// ListActive returns active alerts. Staff see alerts for their assigned
// locations only; admins see everything, optionally filtered.
func (h *AlertHandler) ListActive(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var alerts []model.LowStockAlert
	var err error
	if claims != nil && claims.Role == "staff" {
		staffID, parseErr := uuid.Parse(claims.UserID)
		if parseErr != nil {
			c.JSON(http.StatusUnauthorized, apierror.New("invalid token subject"))
			return
		}
		alerts, err = h.svc.ListActiveForStaff(c.Request.Context(), staffID)
	} else {
		filter := repository.AlertFilter{Level: c.Query("level")}
		if loc := c.Query("location_id"); loc != "" {
			id, parseErr := uuid.Parse(loc)
			if parseErr != nil {
				c.JSON(http.StatusBadRequest, apierror.New("invalid location_id"))
				return
			}
			filter.LocationID = &id
		}
		alerts, err = h.svc.ListActive(c.Request.Context(), filter)
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}

	out := make([]dto.AlertResponse, 0, len(alerts))
	for i := range alerts {
		out = append(out, alertToDTO(&alerts[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *AlertHandler) Acknowledge(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	middleware.MarkActivity(c, "alert.acknowledge", "inventory")
	if err := h.svc.Acknowledge(c.Request.Context(), id, actorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AlertHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	middleware.MarkActivity(c, "alert.resolve", "inventory")
	if err := h.svc.Resolve(c.Request.Context(), id, actorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Sweep triggers a one-shot reconciliation pass (admin only).
func (h *AlertHandler) Sweep(c *gin.Context) {
	result, err := h.svc.Sweep(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"created":  result.Created,
		"updated":  result.Updated,
		"resolved": result.Resolved,
		"errors":   result.Errors,
	})
}

func alertToDTO(a *model.LowStockAlert) dto.AlertResponse {
	out := dto.AlertResponse{
		ID:             a.ID,
		ItemID:         a.ItemID,
		Level:          a.Level,
		CurrentStock:   a.CurrentStock,
		AvailableStock: a.AvailableStock,
		ReorderPoint:   a.ReorderPoint,
		Status:         a.Status,
		AcknowledgedAt: a.AcknowledgedAt,
		ResolvedAt:     a.ResolvedAt,
		CreatedAt:      a.CreatedAt,
	}
	if a.Item != nil {
		out.LocationID = &a.Item.LocationID
	}
	return out
}
