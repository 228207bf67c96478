// Package report holds the pure read-side projections: rack grouping,
// status counters and CSV rows. No I/O happens here; handlers materialize
// the CSV bytes and the view layer does the rest.
package report

import (
	"strconv"

	"stemportal/internal/model"
)

// StatusCounts aggregates requests per lifecycle state.
type StatusCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// GroupByLocation partitions items into rack buckets keyed by normalized
// location. Every canonical rack is present even when empty; items on
// unrecognized racks land in the reserved UNKNOWN bucket.
func GroupByLocation(racks []string, items []model.InventoryItem) map[string][]model.InventoryItem {
	grouped := make(map[string][]model.InventoryItem, len(racks)+1)
	known := make(map[string]bool, len(racks))
	for _, rack := range racks {
		key := model.NormalizeLocation(rack)
		grouped[key] = []model.InventoryItem{}
		known[key] = true
	}
	grouped[model.UnknownRack] = []model.InventoryItem{}

	for _, item := range items {
		key := model.NormalizeLocation(item.Location)
		if known[key] {
			grouped[key] = append(grouped[key], item)
		} else {
			grouped[model.UnknownRack] = append(grouped[model.UnknownRack], item)
		}
	}

	return grouped
}

// CountByStatus tallies requests per status. Unrecognized status strings are
// ignored; the schema never produces them.
func CountByStatus(requests []model.ItemRequest) StatusCounts {
	var counts StatusCounts
	for _, req := range requests {
		switch req.Status {
		case model.RequestStatusPending:
			counts.Pending++
		case model.RequestStatusApproved:
			counts.Approved++
		case model.RequestStatusRejected:
			counts.Rejected++
		}
	}
	return counts
}

// InventoryCSVRows flattens items into export rows, header first. Column
// order matches the portal's download format.
func InventoryCSVRows(items []model.InventoryItem) [][]string {
	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, []string{"Item", "Description", "Location", "Quantity"})
	for _, item := range items {
		rows = append(rows, []string{
			item.Name,
			item.Description,
			item.Location,
			strconv.Itoa(item.Quantity),
		})
	}
	return rows
}

// RequestCSVRows flattens requests into export rows, header first. The item
// column uses the name snapshot and falls back to "Unknown" when the
// snapshot is empty and the referenced item is gone.
func RequestCSVRows(requests []model.ItemRequest) [][]string {
	rows := make([][]string, 0, len(requests)+1)
	rows = append(rows, []string{"Item", "Quantity", "Requested By", "Status"})
	for _, req := range requests {
		name := req.ItemName
		if name == "" {
			name = "Unknown"
		}
		rows = append(rows, []string{
			name,
			strconv.Itoa(req.Quantity),
			req.RequestedBy,
			req.Status,
		})
	}
	return rows
}
