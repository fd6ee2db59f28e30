package handler

import (
	"net/http"

	"gmcore/internal/middleware"
	"gmcore/internal/service"

	"github.com/gin-gonic/gin"
)

type KeyHandler struct{ svc service.KeyringService }

func NewKeyHandler(svc service.KeyringService) *KeyHandler {
	return &KeyHandler{svc: svc}
}

// Status reports days-to-expiry per key kind. Values are never exposed.
func (h *KeyHandler) Status(c *gin.Context) {
	statuses, err := h.svc.Status(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// Rotate forces rotation of one kind (admin only).
func (h *KeyHandler) Rotate(c *gin.Context) {
	kind := c.Param("kind")
	middleware.MarkActivity(c, "key.rotate", "system")
	if _, err := h.svc.Rotate(c.Request.Context(), kind); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
