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

type LedgerHandler struct{ svc service.LedgerService }

func NewLedgerHandler(svc service.LedgerService) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

func (h *LedgerHandler) CreateItem(c *gin.Context) {
	var req dto.CreateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	item := &model.InventoryItem{
		RefKind:       req.RefKind,
		RefID:         req.RefID,
		LocationID:    req.LocationID,
		CurrentStock:  req.CurrentStock,
		ReorderPoint:  req.ReorderPoint,
		MaxStockLevel: req.MaxStockLevel,
		UnitCost:      req.UnitCost,
	}
	if err := h.svc.CreateItem(c.Request.Context(), item); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, itemToDTO(item))
}

func (h *LedgerHandler) GetItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	item, err := h.svc.Read(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, itemToDTO(item))
}

func (h *LedgerHandler) ListItems(c *gin.Context) {
	filter := repository.ItemFilter{Status: c.Query("status")}
	if loc := c.Query("location_id"); loc != "" {
		id, err := uuid.Parse(loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid location_id"))
			return
		}
		filter.LocationID = &id
	}
	items, total, err := h.svc.ListItems(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := dto.ItemListResponse{Total: total, Items: make([]dto.ItemResponse, 0, len(items))}
	for i := range items {
		out.Items = append(out.Items, itemToDTO(&items[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *LedgerHandler) Reserve(c *gin.Context) {
	var req dto.ReserveRequest
	if !bindAndValidate(c, &req) {
		return
	}
	middleware.MarkActivity(c, "stock.reserve", "inventory")
	handle, err := h.svc.Reserve(c.Request.Context(), req.ItemID, req.Quantity)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ReserveResponse{Handle: handle})
}

func (h *LedgerHandler) Release(c *gin.Context) {
	handle, err := uuid.Parse(c.Param("handle"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid handle"))
		return
	}
	middleware.MarkActivity(c, "stock.release", "inventory")
	if err := h.svc.Release(c.Request.Context(), handle); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LedgerHandler) Consume(c *gin.Context) {
	var req dto.ConsumeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	middleware.MarkActivity(c, "stock.consume", "inventory")
	movement, err := h.svc.Consume(c.Request.Context(), req.Handle, actorID(c),
		service.Reference{Type: req.ReferenceType, ID: req.ReferenceID})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, movementToDTO(movement))
}

func (h *LedgerHandler) Receive(c *gin.Context) {
	var req dto.ReceiveRequest
	if !bindAndValidate(c, &req) {
		return
	}
	middleware.MarkActivity(c, "stock.receive", "inventory")
	movement, err := h.svc.Receive(c.Request.Context(), req.ItemID, req.Quantity, req.UnitCost,
		actorID(c), service.Reference{Type: req.ReferenceType, ID: req.ReferenceID})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movementToDTO(movement))
}

func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	middleware.MarkActivity(c, "stock.transfer", "inventory")
	if err := h.svc.Transfer(c.Request.Context(), req.ItemID, req.ToLocationID, req.Quantity, actorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LedgerHandler) Adjust(c *gin.Context) {
	var req dto.AdjustRequest
	if !bindAndValidate(c, &req) {
		return
	}
	middleware.MarkActivity(c, "stock.adjust", "inventory")
	movement, err := h.svc.Adjust(c.Request.Context(), req.ItemID, req.PhysicalCount,
		actorID(c), service.Reference{Type: req.ReferenceType, ID: req.ReferenceID})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if movement == nil {
		// Physical count matched the ledger; nothing was written.
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, movementToDTO(movement))
}

func (h *LedgerHandler) ListMovements(c *gin.Context) {
	filter := repository.MovementFilter{Kind: c.Query("kind")}
	if v := c.Query("item_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid item_id"))
			return
		}
		filter.ItemID = &id
	}
	movements, total, err := h.svc.ListMovements(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := dto.MovementListResponse{Total: total, Movements: make([]dto.MovementResponse, 0, len(movements))}
	for i := range movements {
		out.Movements = append(out.Movements, movementToDTO(&movements[i]))
	}
	c.JSON(http.StatusOK, out)
}

// actorID resolves the acting user from the JWT claims.
func actorID(c *gin.Context) uuid.UUID {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return uuid.Nil
	}
	id, _ := uuid.Parse(claims.UserID)
	return id
}

func itemToDTO(item *model.InventoryItem) dto.ItemResponse {
	return dto.ItemResponse{
		ID:             item.ID,
		RefKind:        item.RefKind,
		RefID:          item.RefID,
		LocationID:     item.LocationID,
		CurrentStock:   item.CurrentStock,
		ReservedStock:  item.ReservedStock,
		AvailableStock: item.AvailableStock(),
		ReorderPoint:   item.ReorderPoint,
		MaxStockLevel:  item.MaxStockLevel,
		UnitCost:       item.UnitCost,
		TotalValue:     item.TotalValue,
		Status:         item.Status,
		LastCountedAt:  item.LastCountedAt,
	}
}

func movementToDTO(m *model.StockMovement) dto.MovementResponse {
	out := dto.MovementResponse{
		ID:          m.ID,
		ItemID:      m.ItemID,
		LocationID:  m.LocationID,
		Kind:        m.Kind,
		Quantity:    m.Quantity,
		SignedQty:   m.SignedQuantity(),
		UnitCost:    m.UnitCost,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		OccurredAt:  m.OccurredAt,
	}
	if m.ReferenceType != nil {
		out.ReferenceType = *m.ReferenceType
	}
	if m.ReferenceID != nil {
		out.ReferenceID = *m.ReferenceID
	}
	return out
}
