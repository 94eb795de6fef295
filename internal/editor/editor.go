// Package editor holds the working copy of one vendor rate card version while
// an operator edits it into a custom rule set.
package editor

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
	"github.com/sells-group/invoice-agent/internal/suggest"
)

// Provider supplies rate card snapshots.
type Provider interface {
	GetVersion(ctx context.Context, vendorCode, versionID string) (*ratecard.RateCard, error)
}

// Persister stores a finalized rule set and returns its id.
type Persister interface {
	SaveRuleSet(ctx context.Context, rs ratecard.CustomRuleSet) (string, error)
}

// Suggester proposes changes to a rate card from a free-text instruction.
type Suggester interface {
	Suggest(ctx context.Context, card *ratecard.RateCard, instruction string) (*suggest.Result, error)
}

// Identity is the editable vendor identity of the rule set being built. It
// starts as the snapshot's identity and is independent of it afterwards.
type Identity struct {
	VendorCode string `json:"vendor_code"`
	VendorName string `json:"vendor_name"`
	VersionID  string `json:"version_id"`
}

// Session is an open editor over one rate card version. All methods are safe
// for concurrent use.
type Session struct {
	mu       sync.Mutex
	snapshot *ratecard.RateCard
	working  ratecard.RatesByVehicle
	identity Identity
	closed   bool

	state   SuggestionState
	result  *suggest.Result
	lastErr error
}

// Open loads vendorCode/versionID from p and starts a session over a deep
// copy of its rates. No session exists unless the load succeeds.
func Open(ctx context.Context, p Provider, vendorCode, versionID string) (*Session, error) {
	if strings.TrimSpace(vendorCode) == "" || strings.TrimSpace(versionID) == "" {
		return nil, apperr.New(apperr.KindValidation, "vendor code and version are required")
	}

	card, err := p.GetVersion(ctx, vendorCode, versionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindLoad, err, "Failed to load rate card")
	}
	if card == nil {
		return nil, apperr.New(apperr.KindLoad, "Failed to load rate card: empty response")
	}

	s := &Session{
		snapshot: card.Clone(),
		working:  card.RatesByVehicle.Clone(),
		identity: Identity{
			VendorCode: card.VendorCode,
			VendorName: card.VendorName,
			VersionID:  card.VersionID,
		},
	}
	if s.working == nil {
		s.working = ratecard.RatesByVehicle{}
	}

	zap.L().Info("editor: session opened",
		zap.String("vendor_code", card.VendorCode),
		zap.String("version_id", card.VersionID),
		zap.Int("vehicle_types", len(s.working)),
	)
	return s, nil
}

// Snapshot returns a copy of the card the session was opened from.
func (s *Session) Snapshot() *ratecard.RateCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// Rates returns a copy of the working rates.
func (s *Session) Rates() ratecard.RatesByVehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working.Clone()
}

// Card returns the working copy as a rate card: the snapshot's metadata with
// the edited rates.
func (s *Session) Card() *ratecard.RateCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cardLocked()
}

func (s *Session) cardLocked() *ratecard.RateCard {
	c := s.snapshot.Clone()
	c.RatesByVehicle = s.working.Clone()
	return c
}

// Identity returns the current identity fields.
func (s *Session) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// SetIdentity replaces all three identity fields.
func (s *Session) SetIdentity(id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.identity = id
	return nil
}

// UpdateIdentity applies fn to the current identity under the session lock,
// so concurrent partial updates do not overwrite each other.
func (s *Session) UpdateIdentity(fn func(*Identity)) error {
	return s.setField(fn)
}

// SetVendorCode sets the rule set's vendor code.
func (s *Session) SetVendorCode(v string) error {
	return s.setField(func(id *Identity) { id.VendorCode = v })
}

// SetVendorName sets the rule set's vendor name.
func (s *Session) SetVendorName(v string) error {
	return s.setField(func(id *Identity) { id.VendorName = v })
}

// SetVersionID sets the rule set's version id.
func (s *Session) SetVersionID(v string) error {
	return s.setField(func(id *Identity) { id.VersionID = v })
}

func (s *Session) setField(fn func(*Identity)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	fn(&s.identity)
	return nil
}

// Closed reports whether the session was saved or closed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close discards the working copy without saving.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	s.closed = true
	s.working = nil
	s.result = nil
	s.lastErr = nil
	s.state = Idle
}

func (s *Session) checkOpen() error {
	if s.closed {
		return apperr.New(apperr.KindConflict, "editor session is closed")
	}
	return nil
}

// Save validates the session, hands the rule set to p, and closes the
// session. Nothing is persisted when validation fails, and the session stays
// open for corrections.
func (s *Session) Save(ctx context.Context, p Persister) (ratecard.CustomRuleSet, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return ratecard.CustomRuleSet{}, "", err
	}
	if s.state == Requesting {
		return ratecard.CustomRuleSet{}, "", apperr.New(apperr.KindConflict, "cannot save while an AI suggestion request is in flight")
	}
	if err := s.validateLocked(); err != nil {
		return ratecard.CustomRuleSet{}, "", err
	}

	rs := ratecard.CustomRuleSet{
		VendorCode:     strings.TrimSpace(s.identity.VendorCode),
		VendorName:     strings.TrimSpace(s.identity.VendorName),
		VersionID:      strings.TrimSpace(s.identity.VersionID),
		RatesByVehicle: s.working.Clone(),
		VehicleTypes:   s.snapshot.Clone().VehicleTypes,
	}

	id, err := p.SaveRuleSet(ctx, rs)
	if err != nil {
		if apperr.KindOf(err) != "" {
			return ratecard.CustomRuleSet{}, "", err
		}
		return ratecard.CustomRuleSet{}, "", eris.Wrap(err, "editor: save rule set")
	}

	zap.L().Info("editor: rule set saved",
		zap.String("rule_set_id", id),
		zap.String("vendor_code", rs.VendorCode),
		zap.String("version_id", rs.VersionID),
	)
	s.closeLocked()
	return rs, id, nil
}
