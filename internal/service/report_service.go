package service

import (
	"context"

	"stemportal/internal/apperr"
	"stemportal/internal/authz"
	"stemportal/internal/model"
	"stemportal/internal/report"
	"stemportal/internal/repository"
)

// SummaryResponse is the director/manager dashboard payload: inventory
// grouped per rack plus request counters.
type SummaryResponse struct {
	Racks    []string                  `json:"racks"`
	Groups   map[string][]ItemResponse `json:"groups"`
	Requests report.StatusCounts       `json:"requests"`
}

// ReportService is the read-only projection side. It never mutates.
type ReportService interface {
	InventorySummary(ctx context.Context, caller authz.Caller) (*SummaryResponse, error)
	InventoryExportRows(ctx context.Context, caller authz.Caller) ([][]string, error)
	RequestExportRows(ctx context.Context, caller authz.Caller) ([][]string, error)
}

type reportService struct {
	itemRepo    repository.InventoryRepository
	requestRepo repository.RequestRepository
	racks       []string
}

// NewReportService builds the projector over the ledger and lifecycle
// stores. racks is the canonical rack list; nil means model.DefaultRacks.
func NewReportService(itemRepo repository.InventoryRepository, requestRepo repository.RequestRepository, racks []string) ReportService {
	if len(racks) == 0 {
		racks = model.DefaultRacks
	}
	return &reportService{itemRepo: itemRepo, requestRepo: requestRepo, racks: racks}
}

func (s *reportService) InventorySummary(ctx context.Context, caller authz.Caller) (*SummaryResponse, error) {
	if err := authz.Authorize(caller, authz.CapViewInventorySummary); err != nil {
		return nil, err
	}

	items, err := s.itemRepo.List(ctx)
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	requests, err := s.requestRepo.List(ctx, repository.RequestFilter{})
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}

	grouped := report.GroupByLocation(s.racks, items)
	groups := make(map[string][]ItemResponse, len(grouped))
	for rack, rackItems := range grouped {
		shaped := make([]ItemResponse, 0, len(rackItems))
		for _, item := range rackItems {
			shaped = append(shaped, ToItemResponse(item))
		}
		groups[rack] = shaped
	}

	racks := make([]string, 0, len(s.racks)+1)
	for _, rack := range s.racks {
		racks = append(racks, model.NormalizeLocation(rack))
	}
	racks = append(racks, model.UnknownRack)

	return &SummaryResponse{
		Racks:    racks,
		Groups:   groups,
		Requests: report.CountByStatus(requests),
	}, nil
}

func (s *reportService) InventoryExportRows(ctx context.Context, caller authz.Caller) ([][]string, error) {
	if err := authz.Authorize(caller, authz.CapViewInventorySummary); err != nil {
		return nil, err
	}

	items, err := s.itemRepo.List(ctx)
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	return report.InventoryCSVRows(items), nil
}

// RequestExportRows exports decided requests only, matching the portal's
// "fulfilled requests" download.
func (s *reportService) RequestExportRows(ctx context.Context, caller authz.Caller) ([][]string, error) {
	if err := authz.Authorize(caller, authz.CapViewRequests); err != nil {
		return nil, err
	}

	requests, err := s.requestRepo.List(ctx, repository.RequestFilter{})
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}

	decided := make([]model.ItemRequest, 0, len(requests))
	for _, req := range requests {
		if req.Status == model.RequestStatusApproved || req.Status == model.RequestStatusRejected {
			decided = append(decided, req)
		}
	}
	return report.RequestCSVRows(decided), nil
}
