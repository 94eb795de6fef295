package sheet

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

// Column headers of a rate card sheet. Vehicle columns follow.
const (
	ColType        = "TYPE"
	ColDescription = "DESCRIPTION"
)

const sheetName = "Rates"

// DefaultVehicleNames are the display names used for a blank template.
var DefaultVehicleNames = map[string]string{
	ratecard.CargoVanSprinter: "Cargo Van / Sprinter",
	ratecard.CarSUVMinivan:    "Car / SUV / Minivan",
	ratecard.Truck:            "Truck",
}

// DefaultRateTypes are the rows of a blank template.
var DefaultRateTypes = []string{
	"Base Rate",
	"Weight/Pcs",
	"Vehicle",
	"Weekend/Holiday/OT",
	"Fuel Surcharge",
	"Wait Time",
	ratecard.OperatingHours,
}

// BlankCard returns an empty card with the canonical vehicle types and the
// default rate types.
func BlankCard() *ratecard.RateCard {
	card := &ratecard.RateCard{RatesByVehicle: ratecard.RatesByVehicle{}}
	for _, k := range ratecard.KnownVehicleTypes {
		card.VehicleTypes = append(card.VehicleTypes, ratecard.VehicleType{Key: k, Name: DefaultVehicleNames[k]})
		entries := make([]ratecard.RateEntry, len(DefaultRateTypes))
		for i, t := range DefaultRateTypes {
			entries[i] = ratecard.RateEntry{Type: t}
		}
		card.RatesByVehicle[k] = entries
	}
	return card
}

// WriteTemplate writes card as a spreadsheet the backend accepts for upload.
// A nil card writes the blank template.
func WriteTemplate(path string, card *ratecard.RateCard) error {
	if card == nil {
		card = BlankCard()
	}
	keys := card.VehicleKeys()

	f := xlsx.NewFile()
	sh, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "sheet: add sheet")
	}

	header := sh.AddRow()
	header.AddCell().SetString(ColType)
	header.AddCell().SetString(ColDescription)
	for _, k := range keys {
		header.AddCell().SetString(card.VehicleTypes.Name(k))
	}

	for _, combined := range ratecard.Combine(card) {
		row := sh.AddRow()
		row.AddCell().SetString(combined.Type)
		row.AddCell().SetString(combined.Description)
		for _, k := range keys {
			cell := row.AddCell()
			v := combined.Values[k]
			switch {
			case v.IsNumber():
				cell.SetFloat(v.Decimal().InexactFloat64())
			case v.IsText():
				cell.SetString(v.String())
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "sheet: save template")
	}
	return nil
}

// ReadTemplate parses a spreadsheet in the template layout back into a rate
// card. Vehicle columns are matched to keys by display name.
func ReadTemplate(path string) (*ratecard.RateCard, error) {
	if err := CheckExtension(path); err != nil {
		return nil, err
	}
	rows, err := ReadRows(path, Options{})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.New(apperr.KindValidation, "spreadsheet is empty")
	}

	header := rows[0]
	if len(header) < 3 || !strings.EqualFold(header[0], ColType) || !strings.EqualFold(header[1], ColDescription) {
		return nil, apperr.Newf(apperr.KindValidation, "first row must be %s, %s and one column per vehicle type", ColType, ColDescription)
	}

	card := &ratecard.RateCard{RatesByVehicle: ratecard.RatesByVehicle{}}
	keys := make([]string, 0, len(header)-2)
	for _, name := range header[2:] {
		k := vehicleKey(name)
		if k == "" || slices.Contains(keys, k) {
			return nil, apperr.Newf(apperr.KindValidation, "bad vehicle column %q", name)
		}
		keys = append(keys, k)
		card.VehicleTypes = append(card.VehicleTypes, ratecard.VehicleType{Key: k, Name: name})
		card.RatesByVehicle[k] = nil
	}

	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		typ := cellAt(row, 0)
		if typ == "" {
			return nil, apperr.New(apperr.KindValidation, "every rate row needs a TYPE")
		}
		desc := cellAt(row, 1)
		for i, k := range keys {
			raw := cellAt(row, i+2)
			v := ratecard.ParseNumber(raw)
			if typ == ratecard.OperatingHours {
				v = ratecard.ParseText(raw)
			}
			card.RatesByVehicle[k] = append(card.RatesByVehicle[k], ratecard.RateEntry{Type: typ, Description: desc, Value: v})
		}
	}
	return card, nil
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// vehicleKey maps a column header to a vehicle key: a known display name
// maps to its key, anything else is snake_cased.
func vehicleKey(name string) string {
	for k, n := range DefaultVehicleNames {
		if strings.EqualFold(n, name) {
			return k
		}
	}
	var b strings.Builder
	under := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			under = false
			continue
		}
		if !under && b.Len() > 0 {
			b.WriteByte('_')
			under = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
