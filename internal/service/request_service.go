package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stemportal/internal/apperr"
	"stemportal/internal/authz"
	"stemportal/internal/model"
	"stemportal/internal/repository"
	ws "stemportal/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Decision values accepted by Decide.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// DTOs
type RequestEntry struct {
	ItemID   string `json:"itemId" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
	Note     string `json:"note"`
}

type SubmitRequestsPayload struct {
	Requests []RequestEntry `json:"requests" binding:"required"`
}

type RequestResponse struct {
	ID          string `json:"id"`
	ItemID      string `json:"item_id,omitempty"`
	ItemName    string `json:"item_name"`
	Quantity    int    `json:"quantity"`
	Note        string `json:"note,omitempty"`
	RequestedBy string `json:"requested_by"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
	DecidedBy   string `json:"decided_by,omitempty"`
	DecidedAt   string `json:"decided_at,omitempty"`
}

// RequestService is the request lifecycle engine: bulk submission and the
// single pending -> approved/rejected transition.
type RequestService interface {
	SubmitRequests(ctx context.Context, caller authz.Caller, entries []RequestEntry) ([]model.ItemRequest, error)
	Decide(ctx context.Context, caller authz.Caller, requestID, decision string) (*model.ItemRequest, error)
	ListRequests(ctx context.Context, caller authz.Caller, filter repository.RequestFilter) ([]model.ItemRequest, error)
	ListOwnRequests(ctx context.Context, caller authz.Caller, username string) ([]model.ItemRequest, error)
}

type requestService struct {
	requestRepo repository.RequestRepository
	itemRepo    repository.InventoryRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	hub         *ws.Hub
	now         func() time.Time
}

func NewRequestService(
	requestRepo repository.RequestRepository,
	itemRepo repository.InventoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		itemRepo:    itemRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		hub:         hub,
		now:         time.Now,
	}
}

// SubmitRequests validates the whole batch before creating anything: one bad
// entry rejects the entire submission. The item name is snapshotted so the
// request stays renderable if the item is later deleted. Stock is not
// decremented here, nor on approval.
func (s *requestService) SubmitRequests(ctx context.Context, caller authz.Caller, entries []RequestEntry) ([]model.ItemRequest, error) {
	if err := authz.Authorize(caller, authz.CapCreateRequest); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperr.Validation("requests", "must contain at least one entry")
	}

	requests := make([]model.ItemRequest, 0, len(entries))
	for i, entry := range entries {
		if entry.Quantity < 1 {
			return nil, apperr.Validation(fmt.Sprintf("requests[%d].quantity", i), "must be at least 1")
		}

		itemID, err := uuid.Parse(entry.ItemID)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("requests[%d].itemId", i), "is not a valid item id")
		}

		item, err := s.itemRepo.FindByID(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.Validation(fmt.Sprintf("requests[%d].itemId", i), "does not match a known inventory item")
			}
			return nil, apperr.StoreUnavailable(err)
		}

		id := itemID
		requests = append(requests, model.ItemRequest{
			ItemID:      &id,
			ItemName:    item.Name,
			Quantity:    entry.Quantity,
			Note:        entry.Note,
			RequestedBy: caller.Username,
			Status:      model.RequestStatusPending,
			RequestedAt: s.now(),
		})
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.CreateBatch(txCtx, requests); err != nil {
			return err
		}
		details, _ := json.Marshal(map[string]interface{}{"count": len(requests)})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			Username: caller.Username,
			Action:   model.ActionSubmitRequests,
			Details:  string(details),
		})
	})
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}

	s.hub.Publish(ws.EventRequestSubmitted, map[string]interface{}{
		"requested_by": caller.Username,
		"count":        len(requests),
	})
	return requests, nil
}

// Decide performs the one-shot state transition. The repository's
// conditional update is the concurrency guard: with two simultaneous
// decides, exactly one flips the row and the other sees a non-pending
// request.
func (s *requestService) Decide(ctx context.Context, caller authz.Caller, requestID, decision string) (*model.ItemRequest, error) {
	if err := authz.Authorize(caller, authz.CapDecideRequest); err != nil {
		return nil, err
	}

	var status, action string
	switch decision {
	case DecisionApprove:
		status = model.RequestStatusApproved
		action = model.ActionApproveRequest
	case DecisionReject:
		status = model.RequestStatusRejected
		action = model.ActionRejectRequest
	default:
		return nil, apperr.Validation("decision", "must be approve or reject")
	}

	id, err := uuid.Parse(requestID)
	if err != nil {
		return nil, apperr.Validation("id", "is not a valid request id")
	}

	decidedAt := s.now()
	var request *model.ItemRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		won, err := s.requestRepo.DecideIfPending(txCtx, id, status, caller.Username, decidedAt)
		if err != nil {
			return err
		}
		if !won {
			// Lost the race or bad id; load to tell the two apart.
			current, err := s.requestRepo.FindByID(txCtx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("request", requestID)
				}
				return err
			}
			return &apperr.InvalidStateTransitionError{Current: current.Status, Target: status}
		}

		request, err = s.requestRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		return s.auditRepo.Log(txCtx, &model.AuditLog{
			Username:   caller.Username,
			Action:     action,
			EntityID:   requestID,
			EntityName: request.ItemName,
		})
	})
	if err != nil {
		var nf *apperr.NotFoundError
		var ist *apperr.InvalidStateTransitionError
		if errors.As(err, &nf) || errors.As(err, &ist) {
			return nil, err
		}
		return nil, apperr.StoreUnavailable(err)
	}

	s.hub.Publish(ws.EventRequestDecided, map[string]interface{}{
		"id":     requestID,
		"status": status,
	})
	return request, nil
}

// ListRequests is the manager/director view of all requests, newest first.
func (s *requestService) ListRequests(ctx context.Context, caller authz.Caller, filter repository.RequestFilter) ([]model.ItemRequest, error) {
	if err := authz.Authorize(caller, authz.CapViewRequests); err != nil {
		return nil, err
	}

	requests, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	return requests, nil
}

// ListOwnRequests is the STEMbassador history view. A stembassador can only
// read their own history; the username pin is enforced here, not left to
// the handler.
func (s *requestService) ListOwnRequests(ctx context.Context, caller authz.Caller, username string) ([]model.ItemRequest, error) {
	if err := authz.Authorize(caller, authz.CapViewOwnRequestHistory); err != nil {
		// Managers and directors read any user's history through their
		// broader view-requests capability.
		if viewErr := authz.Authorize(caller, authz.CapViewRequests); viewErr != nil {
			return nil, err
		}
	} else if username != caller.Username {
		return nil, apperr.ErrForbidden
	}

	requests, err := s.requestRepo.List(ctx, repository.RequestFilter{RequestedBy: username})
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	return requests, nil
}

// ToRequestResponse shapes a request for the API boundary.
func ToRequestResponse(req model.ItemRequest) RequestResponse {
	resp := RequestResponse{
		ID:          req.ID.String(),
		ItemName:    req.ItemName,
		Quantity:    req.Quantity,
		Note:        req.Note,
		RequestedBy: req.RequestedBy,
		Status:      req.Status,
		RequestedAt: req.RequestedAt.UTC().Format(time.RFC3339),
		DecidedBy:   req.DecidedBy,
	}
	if req.ItemID != nil {
		resp.ItemID = req.ItemID.String()
	}
	if resp.ItemName == "" {
		resp.ItemName = "Unknown"
	}
	if req.DecidedAt != nil {
		resp.DecidedAt = req.DecidedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
