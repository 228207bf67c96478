// Package authz is the authorization guard: a fixed role/capability table
// with no database behind it. Roles are canonical strings; anything the
// token or signup form carries is normalized through ParseRole first.
package authz

import (
	"strings"

	"stemportal/internal/apperr"
)

// Role is one of the three canonical portal roles.
type Role string

const (
	RoleDirector         Role = "director"
	RoleInventoryManager Role = "inventoryManager"
	RoleStembassador     Role = "stembassador"
)

// Capability names a guarded operation.
type Capability string

const (
	CapViewInventory         Capability = "view-inventory"
	CapViewInventorySummary  Capability = "view-inventory-summary"
	CapMutateInventory       Capability = "mutate-inventory"
	CapViewRequests          Capability = "view-requests"
	CapDecideRequest         Capability = "decide-request"
	CapCreateRequest         Capability = "create-request"
	CapViewOwnRequestHistory Capability = "view-own-request-history"
	CapProvisionUser         Capability = "provision-user"
)

// Caller is the authenticated identity every service operation receives
// explicitly. The role is fixed for the lifetime of the session.
type Caller struct {
	Username string
	Role     Role
}

// grants is the closed capability table. A capability may belong to more
// than one role.
var grants = map[Role][]Capability{
	RoleDirector: {
		CapViewInventory,
		CapViewInventorySummary,
		CapViewRequests,
		CapDecideRequest,
		CapProvisionUser,
	},
	RoleInventoryManager: {
		CapViewInventory,
		CapViewInventorySummary,
		CapMutateInventory,
		CapViewRequests,
		CapDecideRequest,
	},
	RoleStembassador: {
		CapViewInventory,
		CapCreateRequest,
		CapViewOwnRequestHistory,
	},
}

// Can reports whether the role holds the capability.
func Can(role Role, cap Capability) bool {
	for _, c := range grants[role] {
		if c == cap {
			return true
		}
	}
	return false
}

// Authorize returns ErrForbidden when the caller lacks the capability and
// ErrUnauthenticated when the caller carries no identity at all.
func Authorize(caller Caller, cap Capability) error {
	if caller.Username == "" || caller.Role == "" {
		return apperr.ErrUnauthenticated
	}
	if !Can(caller.Role, cap) {
		return apperr.ErrForbidden
	}
	return nil
}

// ParseRole normalizes a raw role spelling to its canonical form. The
// observed data contains case and separator drift ("inventory_manager",
// "InventoryManager"); anything unrecognized is an auth-level error, never
// a silent default.
func ParseRole(raw string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, "-", "")
	switch key {
	case "director":
		return RoleDirector, nil
	case "inventorymanager":
		return RoleInventoryManager, nil
	case "stembassador":
		return RoleStembassador, nil
	default:
		return "", apperr.Auth("unrecognized role: " + raw)
	}
}
