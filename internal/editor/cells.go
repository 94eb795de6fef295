package editor

import (
	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

// CellDisabled reports whether the cell at vehicle/row rejects edits. A row
// is disabled for every vehicle when all vehicles hold null there; operating
// hours only apply to cars, so the van and truck cells of that row are
// disabled too. Out-of-range cells are disabled.
func (s *Session) CellDisabled(vehicle string, row int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cellDisabledLocked(vehicle, row)
}

func (s *Session) cellDisabledLocked(vehicle string, row int) bool {
	entries, ok := s.working[vehicle]
	if !ok || row < 0 || row >= len(entries) {
		return true
	}
	if s.rowNullLocked(row) {
		return true
	}
	return entries[row].Type == ratecard.OperatingHours &&
		(vehicle == ratecard.CargoVanSprinter || vehicle == ratecard.Truck)
}

// rowNullLocked reports whether every vehicle's value at row is null. A
// vehicle with no entry at row counts as null, so a row only one
// vehicle defines is still judged by that vehicle alone.
func (s *Session) rowNullLocked(row int) bool {
	for _, entries := range s.working {
		if row < len(entries) && !entries[row].Value.IsNull() {
			return false
		}
	}
	return true
}

// EditCell sets the cell at vehicle/row from raw user input. Operating hours
// are stored verbatim; every other rate is parsed as a number, and input that
// is empty or not numeric becomes null.
func (s *Session) EditCell(vehicle string, row int, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editLocked(vehicle, row, raw)
}

// EditRate is EditCell addressed by rate type instead of row index.
func (s *Session) EditRate(vehicle, rateType, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.working[vehicle]; !ok {
		return apperr.Newf(apperr.KindValidation, "unknown vehicle type %q", vehicle)
	}
	row := s.working.Find(vehicle, rateType)
	if row < 0 {
		return apperr.Newf(apperr.KindValidation, "rate type %q not found for %s", rateType, vehicle)
	}
	return s.editLocked(vehicle, row, raw)
}

func (s *Session) editLocked(vehicle string, row int, raw string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	entries, ok := s.working[vehicle]
	if !ok {
		return apperr.Newf(apperr.KindValidation, "unknown vehicle type %q", vehicle)
	}
	if row < 0 || row >= len(entries) {
		return apperr.Newf(apperr.KindValidation, "row %d out of range for %s", row, vehicle)
	}
	if s.cellDisabledLocked(vehicle, row) {
		return apperr.Newf(apperr.KindConflict, "%s is not editable for %s", entries[row].Type, vehicle)
	}

	if entries[row].Type == ratecard.OperatingHours {
		entries[row].Value = ratecard.ParseText(raw)
	} else {
		entries[row].Value = ratecard.ParseNumber(raw)
	}
	return nil
}
