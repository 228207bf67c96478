package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"stemportal/internal/apperr"
	"stemportal/internal/authz"
	"stemportal/internal/model"
	"stemportal/internal/repository"
	ws "stemportal/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs
type ItemPayload struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location" binding:"required"`
	Quantity    *int   `json:"quantity" binding:"required"`
}

type ItemResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Quantity    int    `json:"quantity"`
	CreatedAt   string `json:"created_at"`
}

// InventoryService is the inventory ledger. Every operation takes the
// explicit caller and runs it through the authorization guard before
// touching storage.
type InventoryService interface {
	ListItems(ctx context.Context, caller authz.Caller) ([]model.InventoryItem, error)
	AddItem(ctx context.Context, caller authz.Caller, req ItemPayload) (*model.InventoryItem, error)
	UpdateItem(ctx context.Context, caller authz.Caller, id string, req ItemPayload) (*model.InventoryItem, error)
	DeleteItem(ctx context.Context, caller authz.Caller, id string) error
}

type inventoryService struct {
	itemRepo  repository.InventoryRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	hub       *ws.Hub
}

func NewInventoryService(
	itemRepo repository.InventoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) InventoryService {
	return &inventoryService{
		itemRepo:  itemRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		hub:       hub,
	}
}

// validateItemPayload enforces the ledger's field constraints. The raw
// location casing is preserved; only the normalized form is checked.
func validateItemPayload(req ItemPayload) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperr.Validation("name", "is required")
	}
	if model.NormalizeLocation(req.Location) == "" {
		return apperr.Validation("location", "is required")
	}
	if req.Quantity == nil {
		return apperr.Validation("quantity", "is required")
	}
	if *req.Quantity < 0 {
		return apperr.Validation("quantity", "must be a non-negative integer")
	}
	return nil
}

func (s *inventoryService) ListItems(ctx context.Context, caller authz.Caller) ([]model.InventoryItem, error) {
	if err := authz.Authorize(caller, authz.CapViewInventory); err != nil {
		return nil, err
	}

	items, err := s.itemRepo.List(ctx)
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	return items, nil
}

func (s *inventoryService) AddItem(ctx context.Context, caller authz.Caller, req ItemPayload) (*model.InventoryItem, error) {
	if err := authz.Authorize(caller, authz.CapMutateInventory); err != nil {
		return nil, err
	}
	if err := validateItemPayload(req); err != nil {
		return nil, err
	}

	item := model.InventoryItem{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Location:    strings.TrimSpace(req.Location),
		Quantity:    *req.Quantity,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Create(txCtx, &item); err != nil {
			return err
		}
		details, _ := json.Marshal(req)
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			Username:   caller.Username,
			Action:     model.ActionCreateItem,
			EntityID:   item.ID.String(),
			EntityName: item.Name,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}

	s.hub.Publish(ws.EventInventoryChanged, item)
	return &item, nil
}

func (s *inventoryService) UpdateItem(ctx context.Context, caller authz.Caller, id string, req ItemPayload) (*model.InventoryItem, error) {
	if err := authz.Authorize(caller, authz.CapMutateInventory); err != nil {
		return nil, err
	}

	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("id", "is not a valid item id")
	}
	if err := validateItemPayload(req); err != nil {
		return nil, err
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("item", id)
		}
		return nil, apperr.StoreUnavailable(err)
	}

	// Full replace of mutable fields; no partial patch semantics.
	item.Name = strings.TrimSpace(req.Name)
	item.Description = req.Description
	item.Location = strings.TrimSpace(req.Location)
	item.Quantity = *req.Quantity

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Update(txCtx, item); err != nil {
			return err
		}
		details, _ := json.Marshal(req)
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			Username:   caller.Username,
			Action:     model.ActionUpdateItem,
			EntityID:   item.ID.String(),
			EntityName: item.Name,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}

	s.hub.Publish(ws.EventInventoryChanged, item)
	return item, nil
}

// DeleteItem removes the ledger entry. Requests that referenced the item
// keep their dangling reference and render from the name snapshot.
func (s *inventoryService) DeleteItem(ctx context.Context, caller authz.Caller, id string) error {
	if err := authz.Authorize(caller, authz.CapMutateInventory); err != nil {
		return err
	}

	itemID, err := uuid.Parse(id)
	if err != nil {
		return apperr.Validation("id", "is not a valid item id")
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("item", id)
		}
		return apperr.StoreUnavailable(err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Delete(txCtx, itemID); err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			Username:   caller.Username,
			Action:     model.ActionDeleteItem,
			EntityID:   item.ID.String(),
			EntityName: item.Name,
		})
	})
	if err != nil {
		return apperr.StoreUnavailable(err)
	}

	s.hub.Publish(ws.EventInventoryChanged, map[string]string{"deleted": id})
	return nil
}

// ToItemResponse shapes a ledger entry for the API boundary.
func ToItemResponse(item model.InventoryItem) ItemResponse {
	return ItemResponse{
		ID:          item.ID.String(),
		Name:        item.Name,
		Description: item.Description,
		Location:    item.Location,
		Quantity:    item.Quantity,
		CreatedAt:   item.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
