package repository

import (
	"context"
	"time"

	"stemportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestFilter narrows a listing. Empty fields mean "all".
type RequestFilter struct {
	RequestedBy string
	Status      string
}

// RequestRepository is the data access boundary for item requests. There is
// deliberately no Delete: decided requests are the audit trail.
type RequestRepository interface {
	CreateBatch(ctx context.Context, requests []model.ItemRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ItemRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]model.ItemRequest, error)
	// DecideIfPending performs the compare-and-set transition. It returns
	// false when the request was no longer pending (or never existed), which
	// is what guarantees exactly one winner under concurrent decides.
	DecideIfPending(ctx context.Context, id uuid.UUID, status, decidedBy string, decidedAt time.Time) (bool, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) CreateBatch(ctx context.Context, requests []model.ItemRequest) error {
	return GetDB(ctx, r.db).Create(&requests).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ItemRequest, error) {
	var req model.ItemRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]model.ItemRequest, error) {
	query := GetDB(ctx, r.db).Model(&model.ItemRequest{})
	if filter.RequestedBy != "" {
		query = query.Where("requested_by = ?", filter.RequestedBy)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var requests []model.ItemRequest
	if err := query.Order("requested_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) DecideIfPending(ctx context.Context, id uuid.UUID, status, decidedBy string, decidedAt time.Time) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.ItemRequest{}).
		Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"decided_by": decidedBy,
			"decided_at": decidedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
