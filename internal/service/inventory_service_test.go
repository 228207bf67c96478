package service

import (
	"context"
	"errors"
	"testing"

	"stemportal/internal/apperr"
	"stemportal/internal/authz"
)

var (
	manager      = authz.Caller{Username: "morgan", Role: authz.RoleInventoryManager}
	director     = authz.Caller{Username: "dana", Role: authz.RoleDirector}
	stembassador = authz.Caller{Username: "sam", Role: authz.RoleStembassador}
)

func intPtr(n int) *int { return &n }

func newInventoryFixture() (InventoryService, *fakeInventoryRepo, *fakeAuditRepo) {
	itemRepo := newFakeInventoryRepo()
	auditRepo := &fakeAuditRepo{}
	svc := NewInventoryService(itemRepo, auditRepo, fakeTxManager{}, nil)
	return svc, itemRepo, auditRepo
}

func TestAddItemReturnsInputQuantity(t *testing.T) {
	svc, _, _ := newInventoryFixture()
	ctx := context.Background()

	item, err := svc.AddItem(ctx, manager, ItemPayload{
		Name:     "Beaker",
		Location: "A1",
		Quantity: intPtr(10),
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if item.Quantity != 10 {
		t.Errorf("expected quantity 10, got %d", item.Quantity)
	}
	if item.Name != "Beaker" {
		t.Errorf("expected name Beaker, got %q", item.Name)
	}
}

func TestAddItemValidation(t *testing.T) {
	svc, itemRepo, _ := newInventoryFixture()
	ctx := context.Background()

	tests := []struct {
		name    string
		payload ItemPayload
	}{
		{"missing name", ItemPayload{Location: "A1", Quantity: intPtr(1)}},
		{"blank name", ItemPayload{Name: "   ", Location: "A1", Quantity: intPtr(1)}},
		{"missing location", ItemPayload{Name: "Beaker", Location: "  ", Quantity: intPtr(1)}},
		{"missing quantity", ItemPayload{Name: "Beaker", Location: "A1"}},
		{"negative quantity", ItemPayload{Name: "Beaker", Location: "A1", Quantity: intPtr(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddItem(ctx, manager, tt.payload)
			var validation *apperr.ValidationError
			if !errors.As(err, &validation) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}

	items, _ := itemRepo.List(ctx)
	if len(items) != 0 {
		t.Errorf("no items should have been created, got %d", len(items))
	}
}

func TestAddItemAuthorization(t *testing.T) {
	svc, _, _ := newInventoryFixture()
	ctx := context.Background()
	payload := ItemPayload{Name: "Beaker", Location: "A1", Quantity: intPtr(1)}

	if _, err := svc.AddItem(ctx, stembassador, payload); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("stembassador mutate: expected ErrForbidden, got %v", err)
	}
	// Directors oversee but do not mutate stock.
	if _, err := svc.AddItem(ctx, director, payload); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("director mutate: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.AddItem(ctx, authz.Caller{}, payload); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("anonymous mutate: expected ErrUnauthenticated, got %v", err)
	}
}

func TestUpdateItemReplaceRoundTrip(t *testing.T) {
	svc, _, _ := newInventoryFixture()
	ctx := context.Background()

	created, err := svc.AddItem(ctx, manager, ItemPayload{Name: "Beaker", Location: "A1", Quantity: intPtr(10)})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	updated, err := svc.UpdateItem(ctx, manager, created.ID.String(), ItemPayload{
		Name:        "Large Beaker",
		Description: "1L",
		Location:    "b2",
		Quantity:    intPtr(7),
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if updated.Name != "Large Beaker" || updated.Location != "b2" || updated.Quantity != 7 {
		t.Errorf("unexpected updated item: %+v", updated)
	}

	items, err := svc.ListItems(ctx, manager)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected exactly one item after update, got %d", len(items))
	}
	if items[0].ID != created.ID || items[0].Name != "Large Beaker" {
		t.Errorf("listing does not reflect the replace: %+v", items[0])
	}
}

func TestUpdateItemUnknownID(t *testing.T) {
	svc, _, _ := newInventoryFixture()
	ctx := context.Background()

	_, err := svc.UpdateItem(ctx, manager, "6f1c89a2-70b3-4a95-9c12-2a3d4e5f6a7b", ItemPayload{
		Name: "Ghost", Location: "A1", Quantity: intPtr(1),
	})
	var notFound *apperr.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteItemUnknownID(t *testing.T) {
	svc, _, _ := newInventoryFixture()
	ctx := context.Background()

	err := svc.DeleteItem(ctx, manager, "6f1c89a2-70b3-4a95-9c12-2a3d4e5f6a7b")
	var notFound *apperr.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestListItemsVisibleToAllRoles(t *testing.T) {
	svc, _, _ := newInventoryFixture()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, manager, ItemPayload{Name: "Beaker", Location: "A1", Quantity: intPtr(1)}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	for _, caller := range []authz.Caller{manager, director, stembassador} {
		items, err := svc.ListItems(ctx, caller)
		if err != nil {
			t.Errorf("ListItems as %s: %v", caller.Role, err)
			continue
		}
		if len(items) != 1 {
			t.Errorf("ListItems as %s: expected 1 item, got %d", caller.Role, len(items))
		}
	}
}

func TestMutationsAreAudited(t *testing.T) {
	svc, _, auditRepo := newInventoryFixture()
	ctx := context.Background()

	created, err := svc.AddItem(ctx, manager, ItemPayload{Name: "Beaker", Location: "A1", Quantity: intPtr(1)})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := svc.DeleteItem(ctx, manager, created.ID.String()); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	entries, _, _ := auditRepo.List(ctx, 1, 10)
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	if entries[0].Username != "morgan" {
		t.Errorf("audit entry should carry the caller, got %q", entries[0].Username)
	}
}
