package ratecard

// CombinedRow is one rate type across every vehicle type.
type CombinedRow struct {
	Type        string           `json:"type"`
	Description string           `json:"description"`
	Values      map[string]Value `json:"values"`
}

// Combine joins the per-vehicle rate lists into rows keyed by rate type.
// Rate types appear in first-seen order walking vehicles in display order; a
// vehicle without a rate type gets null. The description is taken from the
// last vehicle that defines the rate type.
func Combine(card *RateCard) []CombinedRow {
	if card == nil {
		return nil
	}
	keys := card.VehicleKeys()

	var order []string
	seen := make(map[string]bool)
	for _, k := range keys {
		for _, e := range card.RatesByVehicle[k] {
			if !seen[e.Type] {
				seen[e.Type] = true
				order = append(order, e.Type)
			}
		}
	}

	rows := make([]CombinedRow, 0, len(order))
	for _, typ := range order {
		row := CombinedRow{Type: typ, Values: make(map[string]Value, len(keys))}
		for _, k := range keys {
			idx := card.RatesByVehicle.Find(k, typ)
			if idx < 0 {
				row.Values[k] = Null()
				continue
			}
			entry := card.RatesByVehicle[k][idx]
			row.Description = entry.Description
			row.Values[k] = entry.Value
		}
		rows = append(rows, row)
	}
	return rows
}
