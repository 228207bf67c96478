package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InventoryItem is a physical stock entry stored on a labeled rack.
// Location keeps the casing the user typed; every comparison and grouping
// goes through NormalizeLocation instead.
type InventoryItem struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `gorm:"type:varchar(50);not null" json:"location"`
	Quantity    int       `gorm:"type:int;not null;default:0" json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UnknownRack is the reserved bucket for items whose normalized location
// matches no canonical rack.
const UnknownRack = "UNKNOWN"

// DefaultRacks is the canonical rack layout (A1 through I4). Overridable via
// the RACKS environment variable.
var DefaultRacks = []string{
	"A1", "A2", "A3",
	"B1", "B2", "B3",
	"C1", "C2", "C3",
	"D1", "D2", "D3",
	"E1", "E2", "E3",
	"F1", "F2", "F3",
	"G1", "G2", "G3",
	"H1", "H2", "H3",
	"I1", "I2", "I3", "I4",
}

// NormalizeLocation produces the grouping key for a rack identifier:
// whitespace-trimmed and uppercased.
func NormalizeLocation(loc string) string {
	return strings.ToUpper(strings.TrimSpace(loc))
}
