package suggest

import (
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

// MergeReport counts what Merge did with each change.
type MergeReport struct {
	Applied int              `json:"applied"`
	Skipped []ProposedChange `json:"skipped"`
}

// Merge returns a deep copy of rates with each change's new value written to
// the entry sharing its vehicle type and rate type. Changes with no matching
// entry are skipped and reported. Later changes to the same entry win. rates
// is never mutated.
func Merge(rates ratecard.RatesByVehicle, changes []ProposedChange) (ratecard.RatesByVehicle, MergeReport) {
	out := rates.Clone()
	if out == nil {
		out = ratecard.RatesByVehicle{}
	}

	var report MergeReport
	for _, c := range changes {
		idx := out.Find(c.VehicleType, c.RateType)
		if idx < 0 {
			report.Skipped = append(report.Skipped, c)
			continue
		}
		out[c.VehicleType][idx].Value = c.NewValue
		report.Applied++
	}
	return out, report
}
