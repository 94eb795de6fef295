package editor

import (
	"fmt"
	"strings"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

// Validate checks the session is ready to save and reports every problem
// found in a single validation error.
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.validateLocked()
}

func (s *Session) validateLocked() error {
	var violations []string
	if strings.TrimSpace(s.identity.VendorCode) == "" {
		violations = append(violations, "Vendor code is required")
	}
	if strings.TrimSpace(s.identity.VendorName) == "" {
		violations = append(violations, "Vendor name is required")
	}
	if strings.TrimSpace(s.identity.VersionID) == "" {
		violations = append(violations, "Version ID is required")
	}

	for _, k := range ratecard.OrderedKeys(s.snapshot.VehicleTypes, s.working) {
		for row, e := range s.working[k] {
			if e.Type != ratecard.OperatingHours || e.Value.IsNull() || s.cellDisabledLocked(k, row) {
				continue
			}
			if !e.Value.IsText() || !ratecard.ValidHours(e.Value.String()) {
				violations = append(violations, fmt.Sprintf(
					"Invalid %s for %s: %q (expected HH:MM-HH:MM, e.g. 08:00-17:00)",
					ratecard.OperatingHours, s.snapshot.VehicleTypes.Name(k), e.Value.String()))
			}
		}
	}

	if len(violations) > 0 {
		return apperr.Validation("Please fix the following before saving", violations...)
	}
	return nil
}
