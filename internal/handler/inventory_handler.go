package handler

import (
	"net/http"

	"stemportal/internal/authz"
	"stemportal/internal/middleware"
	"stemportal/internal/service"
	"stemportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api/inventory")
	{
		inventory.GET("", middleware.RequireCapability(authz.CapViewInventory), h.ListItems)
		inventory.POST("", middleware.RequireCapability(authz.CapMutateInventory), h.AddItem)
		inventory.PUT("/:id", middleware.RequireCapability(authz.CapMutateInventory), h.UpdateItem)
		inventory.DELETE("/:id", middleware.RequireCapability(authz.CapMutateInventory), h.DeleteItem)
	}
}

// ListItems returns the full inventory ledger
// @Summary      List inventory
// @Description  Returns all inventory items in insertion order
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ItemResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/inventory [get]
func (h *InventoryHandler) ListItems(c *gin.Context) {
	items, err := h.inventoryService.ListItems(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	shaped := make([]service.ItemResponse, 0, len(items))
	for _, item := range items {
		shaped = append(shaped, service.ToItemResponse(item))
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, shaped))
}

// AddItem creates a new inventory item
// @Summary      Add item
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ItemPayload  true  "Item fields"
// @Success      201      {object}  response.Response{data=service.ItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/inventory [post]
func (h *InventoryHandler) AddItem(c *gin.Context) {
	var req service.ItemPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.inventoryService.AddItem(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, service.ToItemResponse(*item)))
}

// UpdateItem replaces an item's mutable fields
// @Summary      Update item
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Item ID"
// @Param        payload  body      service.ItemPayload  true  "Item fields"
// @Success      200      {object}  response.Response{data=service.ItemResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/inventory/{id} [put]
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	var req service.ItemPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.inventoryService.UpdateItem(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToItemResponse(*item)))
}

// DeleteItem removes an item; requests that referenced it keep their snapshot
// @Summary      Delete item
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/inventory/{id} [delete]
func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	if err := h.inventoryService.DeleteItem(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Item deleted"))
}
