package service

import (
	"context"
	"sync"
	"time"

	"stemportal/internal/model"
	"stemportal/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory fakes for the repository interfaces. The request fake mirrors
// the store's compare-and-set semantics under a mutex so the lifecycle
// concurrency contract is testable without a database.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeInventoryRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]model.InventoryItem
	order []uuid.UUID
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{items: make(map[uuid.UUID]model.InventoryItem)}
}

func (r *fakeInventoryRepo) Create(ctx context.Context, item *model.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	r.items[item.ID] = *item
	r.order = append(r.order, item.ID)
	return nil
}

func (r *fakeInventoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (r *fakeInventoryRepo) List(ctx context.Context) ([]model.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]model.InventoryItem, 0, len(r.order))
	for _, id := range r.order {
		if item, ok := r.items[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r *fakeInventoryRepo) Update(ctx context.Context, item *model.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.items[item.ID] = *item
	return nil
}

func (r *fakeInventoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]model.ItemRequest
	order    []uuid.UUID
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]model.ItemRequest)}
}

func (r *fakeRequestRepo) CreateBatch(ctx context.Context, requests []model.ItemRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range requests {
		if requests[i].ID == uuid.Nil {
			requests[i].ID = uuid.New()
		}
		r.requests[requests[i].ID] = requests[i]
		r.order = append(r.order, requests[i].ID)
	}
	return nil
}

func (r *fakeRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ItemRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (r *fakeRequestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]model.ItemRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	requests := make([]model.ItemRequest, 0, len(r.order))
	// Newest first, like the SQL ordering.
	for i := len(r.order) - 1; i >= 0; i-- {
		req, ok := r.requests[r.order[i]]
		if !ok {
			continue
		}
		if filter.RequestedBy != "" && req.RequestedBy != filter.RequestedBy {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func (r *fakeRequestRepo) DecideIfPending(ctx context.Context, id uuid.UUID, status, decidedBy string, decidedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != model.RequestStatusPending {
		return false, nil
	}
	req.Status = status
	req.DecidedBy = decidedBy
	req.DecidedAt = &decidedAt
	r.requests[id] = req
	return true, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AuditLog(nil), r.entries...), int64(len(r.entries)), nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User // keyed by username
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]model.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.Username] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID.String() == id {
			u := user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email && email != "" {
			u := user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]model.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	return users, int64(len(users)), nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Username] = *user
	return nil
}

type fakeTokenRepo struct {
	mu      sync.Mutex
	refresh map[string]model.RefreshToken
	reset   map[string]model.PasswordResetToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{
		refresh: make(map[string]model.RefreshToken),
		reset:   make(map[string]model.PasswordResetToken),
	}
}

func (r *fakeTokenRepo) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh[token.Token] = *token
	return nil
}

func (r *fakeTokenRepo) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.refresh[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rt, nil
}

func (r *fakeTokenRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refresh, token)
	return nil
}

func (r *fakeTokenRepo) DeleteRefreshTokensForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, rt := range r.refresh {
		if rt.UserID.String() == userID {
			delete(r.refresh, key)
		}
	}
	return nil
}

func (r *fakeTokenRepo) CreateResetToken(ctx context.Context, token *model.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset[token.Token] = *token
	return nil
}

func (r *fakeTokenRepo) GetResetToken(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.reset[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rt, nil
}

func (r *fakeTokenRepo) MarkResetTokenUsed(ctx context.Context, token string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.reset[token]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rt.UsedAt = &usedAt
	r.reset[token] = rt
	return nil
}
