// Package ratecard defines vendor rate cards: the per-vehicle rate entries a
// logistics vendor bills against, and the custom rule sets derived from them.
package ratecard

import (
	"bytes"
	"encoding/json"
	"regexp"
	"slices"
	"sort"

	"github.com/rotisserie/eris"
)

// Vehicle type keys.
const (
	CargoVanSprinter = "cargo_van_sprinter"
	CarSUVMinivan    = "car_suv_minivan"
	Truck            = "truck"
)

// KnownVehicleTypes is the closed set of vehicle type keys, in display order.
var KnownVehicleTypes = []string{CargoVanSprinter, CarSUVMinivan, Truck}

// IsKnownVehicleType reports whether key is one of KnownVehicleTypes.
func IsKnownVehicleType(key string) bool {
	return slices.Contains(KnownVehicleTypes, key)
}

// OperatingHours is the rate type whose value is a HH:MM-HH:MM time range.
const OperatingHours = "Standard Operating Hours"

var hoursPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]-([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ValidHours reports whether s is a 24-hour HH:MM-HH:MM range.
func ValidHours(s string) bool {
	return hoursPattern.MatchString(s)
}

// RateEntry is one priced line of a vehicle's rate list. Type is the join key
// across vehicle types and is matched case-sensitively.
type RateEntry struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Value       Value  `json:"value"`
}

// VehicleType is a vehicle type key with its display name.
type VehicleType struct {
	Key  string
	Name string
}

// VehicleTypes is an ordered mapping of vehicle key to display name. It
// encodes as a JSON object {"key": {"name": ...}} and keeps object order.
type VehicleTypes []VehicleType

// Name returns the display name for key, falling back to the key itself.
func (vt VehicleTypes) Name(key string) string {
	for _, v := range vt {
		if v.Key == key {
			return v.Name
		}
	}
	return key
}

// Keys returns the vehicle keys in order.
func (vt VehicleTypes) Keys() []string {
	keys := make([]string, len(vt))
	for i, v := range vt {
		keys[i] = v.Key
	}
	return keys
}

type vehicleInfo struct {
	Name string `json:"name"`
}

func (vt VehicleTypes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range vt {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(v.Key)
		if err != nil {
			return nil, eris.Wrap(err, "ratecard: encode vehicle key")
		}
		info, err := json.Marshal(vehicleInfo{Name: v.Name})
		if err != nil {
			return nil, eris.Wrap(err, "ratecard: encode vehicle info")
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(info)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (vt *VehicleTypes) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*vt = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "ratecard: decode vehicle_types")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.New("ratecard: vehicle_types must be an object")
	}

	var out VehicleTypes
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "ratecard: decode vehicle key")
		}
		key, _ := tok.(string)
		var info vehicleInfo
		if err := dec.Decode(&info); err != nil {
			return eris.Wrapf(err, "ratecard: decode vehicle %s", key)
		}
		out = append(out, VehicleType{Key: key, Name: info.Name})
	}
	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "ratecard: decode vehicle_types end")
	}

	*vt = out
	return nil
}

// RatesByVehicle maps a vehicle key to its ordered rate entries.
type RatesByVehicle map[string][]RateEntry

// Clone returns a deep copy.
func (r RatesByVehicle) Clone() RatesByVehicle {
	if r == nil {
		return nil
	}
	out := make(RatesByVehicle, len(r))
	for k, entries := range r {
		out[k] = slices.Clone(entries)
	}
	return out
}

// Find returns the index of the entry with the given rate type, or -1.
func (r RatesByVehicle) Find(vehicle, rateType string) int {
	return slices.IndexFunc(r[vehicle], func(e RateEntry) bool { return e.Type == rateType })
}

// RateCard is one version of a vendor's rate card.
type RateCard struct {
	VendorCode     string         `json:"vendor_code"`
	VendorName     string         `json:"vendor_name"`
	VersionID      string         `json:"version_id"`
	UploadedAt     string         `json:"uploaded_at,omitempty"`
	VehicleTypes   VehicleTypes   `json:"vehicle_types"`
	RatesByVehicle RatesByVehicle `json:"rates_by_vehicle"`
}

// Clone returns a deep copy of the card.
func (c *RateCard) Clone() *RateCard {
	if c == nil {
		return nil
	}
	out := *c
	out.VehicleTypes = slices.Clone(c.VehicleTypes)
	out.RatesByVehicle = c.RatesByVehicle.Clone()
	return &out
}

// VehicleKeys returns the keys of RatesByVehicle in display order:
// VehicleTypes order first, then remaining keys in canonical order, then
// lexically.
func (c *RateCard) VehicleKeys() []string {
	return OrderedKeys(c.VehicleTypes, c.RatesByVehicle)
}

// OrderedKeys orders the keys of rates using vt as the primary order.
func OrderedKeys(vt VehicleTypes, rates RatesByVehicle) []string {
	keys := make([]string, 0, len(rates))
	seen := make(map[string]bool, len(rates))
	for _, v := range vt {
		if _, ok := rates[v.Key]; ok && !seen[v.Key] {
			keys = append(keys, v.Key)
			seen[v.Key] = true
		}
	}

	var rest []string
	for k := range rates {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		pi, pj := canonicalPos(rest[i]), canonicalPos(rest[j])
		if pi != pj {
			return pi < pj
		}
		return rest[i] < rest[j]
	})
	return append(keys, rest...)
}

func canonicalPos(key string) int {
	if i := slices.Index(KnownVehicleTypes, key); i >= 0 {
		return i
	}
	return len(KnownVehicleTypes)
}

// CustomRuleSet is the save-ready payload produced by the editor: the edited
// rates under user-supplied identity fields.
type CustomRuleSet struct {
	VendorCode     string         `json:"vendor_code"`
	VendorName     string         `json:"vendor_name"`
	VersionID      string         `json:"version_id"`
	RatesByVehicle RatesByVehicle `json:"rates_by_vehicle"`
	VehicleTypes   VehicleTypes   `json:"vehicle_types"`
}
