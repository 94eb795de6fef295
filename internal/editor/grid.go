package editor

import (
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

// Grid is a row-by-index view of the working copy for display.
type Grid struct {
	Vehicles []ratecard.VehicleType `json:"vehicles"`
	Rows     []GridRow              `json:"rows"`
}

// GridRow is one row index across all vehicles.
type GridRow struct {
	Index       int        `json:"index"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Disabled    bool       `json:"disabled"`
	Cells       []GridCell `json:"cells"`
}

// GridCell is one vehicle's value in a row. Present is false when the
// vehicle's list is shorter than the row index.
type GridCell struct {
	Vehicle  string         `json:"vehicle"`
	Value    ratecard.Value `json:"value"`
	Present  bool           `json:"present"`
	Disabled bool           `json:"disabled"`
}

// Grid returns the current rows with enablement computed for every cell.
func (s *Session) Grid() Grid {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := ratecard.OrderedKeys(s.snapshot.VehicleTypes, s.working)
	g := Grid{Vehicles: make([]ratecard.VehicleType, len(keys))}
	rows := 0
	for i, k := range keys {
		g.Vehicles[i] = ratecard.VehicleType{Key: k, Name: s.snapshot.VehicleTypes.Name(k)}
		rows = max(rows, len(s.working[k]))
	}

	g.Rows = make([]GridRow, rows)
	for r := range rows {
		row := GridRow{Index: r, Disabled: s.rowNullLocked(r), Cells: make([]GridCell, len(keys))}
		for i, k := range keys {
			entries := s.working[k]
			cell := GridCell{Vehicle: k, Disabled: true}
			if r < len(entries) {
				if row.Type == "" {
					row.Type = entries[r].Type
					row.Description = entries[r].Description
				}
				cell.Present = true
				cell.Value = entries[r].Value
				cell.Disabled = s.cellDisabledLocked(k, r)
			}
			row.Cells[i] = cell
		}
		g.Rows[r] = row
	}
	return g
}
