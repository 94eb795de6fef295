// Package store persists custom rule sets built in the editor.
package store

import (
	"context"
	"time"

	"github.com/sells-group/invoice-agent/internal/ratecard"
)

// RuleSet is a saved custom rule set.
type RuleSet struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ratecard.CustomRuleSet
}

// RuleSetFilter specifies criteria for listing rule sets.
type RuleSetFilter struct {
	VendorCode string `json:"vendor_code,omitempty"`
	VersionID  string `json:"version_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// Store defines rule set persistence.
type Store interface {
	SaveRuleSet(ctx context.Context, rs ratecard.CustomRuleSet) (string, error)
	GetRuleSet(ctx context.Context, id string) (*RuleSet, error)
	ListRuleSets(ctx context.Context, filter RuleSetFilter) ([]RuleSet, error)
	DeleteRuleSet(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
