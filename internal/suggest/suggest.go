// Package suggest turns a free-text instruction into proposed rate card
// changes using a chat completion model, and folds accepted changes back into
// a rate list.
package suggest

import (
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

// ProposedChange is one edit suggested by the model.
type ProposedChange struct {
	VehicleType  string         `json:"vehicle_type"`
	RateType     string         `json:"rate_type"`
	CurrentValue ratecard.Value `json:"current_value"`
	NewValue     ratecard.Value `json:"new_value"`
	Reason       string         `json:"reason"`
}

// Warning reports a requested rate type that the card does not have. It is
// informational and never merged.
type Warning struct {
	Message          string   `json:"message"`
	RequestedRate    string   `json:"requested_rate"`
	AvailableSimilar []string `json:"available_similar"`
}

// Result is a parsed model reply.
type Result struct {
	Explanation string           `json:"explanation"`
	Changes     []ProposedChange `json:"changes"`
	Warnings    []Warning        `json:"warnings"`
}

// NoChangesApplicable reports a warnings-only reply: the model understood
// the request but nothing in it matches the card.
func (r *Result) NoChangesApplicable() bool {
	return r != nil && len(r.Warnings) > 0 && len(r.Changes) == 0
}

// CanApply reports whether there is anything to merge.
func (r *Result) CanApply() bool {
	return r != nil && len(r.Changes) > 0
}
