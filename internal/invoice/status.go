package invoice

// Badge is a verdict shown for the whole invoice.
type Badge string

// Badges, in display order.
const (
	BadgeNeedReview     Badge = "NEED REVIEW"
	BadgePassed         Badge = "PASSED"
	BadgeTamperDetected Badge = "TAMPER_DETECTED"
)

// Status returns the badges that apply to s. Extra charges mean review is
// needed; a zero discrepancy with no extra charges passes; detected fraud adds
// a tamper badge on top of either.
func Status(s Summary) []Badge {
	var badges []Badge

	extra := s.ExtraCharges != nil && s.ExtraCharges.TotalExtraCharges != nil &&
		!s.ExtraCharges.TotalExtraCharges.IsZero()
	if extra {
		badges = append(badges, BadgeNeedReview)
	}
	if !extra && s.TotalDiscrepancy != nil && s.TotalDiscrepancy.IsZero() {
		badges = append(badges, BadgePassed)
	}
	if s.FraudDetected {
		badges = append(badges, BadgeTamperDetected)
	}
	return badges
}

// FlaggedRecords returns the records marked as fraudulent.
func (r *Report) FlaggedRecords() []Record {
	var out []Record
	for _, rec := range r.MainTable {
		if rec.Flags.Fraud {
			out = append(out, rec)
		}
	}
	return out
}
