package suggest

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

// Prompt is a provider-neutral chat request: one system instruction and one
// user message.
type Prompt struct {
	System string
	User   string
}

// AvailableRateTypes returns the rate type labels of the first vehicle type.
// Rate types are expected to be identical across vehicle types; when they are
// not, the divergence is logged and the first vehicle's list still wins.
func AvailableRateTypes(card *ratecard.RateCard) []string {
	if card == nil {
		return nil
	}
	keys := card.VehicleKeys()
	if len(keys) == 0 {
		return nil
	}

	first := rateTypes(card.RatesByVehicle[keys[0]])
	for _, k := range keys[1:] {
		other := rateTypes(card.RatesByVehicle[k])
		if !sameMembers(first, other) {
			zap.L().Warn("suggest: rate types differ across vehicle types",
				zap.String("vendor_code", card.VendorCode),
				zap.String("version_id", card.VersionID),
				zap.String("reference_vehicle", keys[0]),
				zap.String("vehicle", k),
				zap.Strings("reference_types", first),
				zap.Strings("vehicle_types", other),
			)
		}
	}
	return first
}

func rateTypes(entries []ratecard.RateEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !slices.Contains(out, e.Type) {
			out = append(out, e.Type)
		}
	}
	return out
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, s := range a {
		if !slices.Contains(b, s) {
			return false
		}
	}
	return true
}

const systemTemplate = `You are a rate card modification assistant. Given a rate card JSON structure and user instructions, you need to:
1. Understand what the user wants to change
2. Identify which specific rate values need to be modified
3. Return a JSON object with the suggested changes

The rate card structure is:
%s

Available rate types (use these labels exactly):
%s

Return ONLY a valid JSON object in this exact format:
{
  "explanation": "Brief explanation of changes",
  "changes": [
    {
      "vehicle_type": "cargo_van_sprinter",
      "rate_type": "Base Rate",
      "current_value": 65,
      "new_value": 75,
      "reason": "Increased base rate as requested"
    }
  ],
  "warnings": [
    {
      "message": "Rate type not found in the rate card",
      "requested_rate": "Holiday Rate",
      "available_similar": ["Weekend/Holiday Surcharge"]
    }
  ]
}

Important rules:
- vehicle_type must be one of: %s
- rate_type must match exactly one of the available rate types listed above
- Only suggest changes that make logical sense and keep numeric values reasonable
- For time formats (%s), use HH:MM-HH:MM format
- If the user asks for a rate type that is not in the available list, do not invent it: add an entry to "warnings" with the requested name and any similar available rate types instead
- Always include "changes" and "warnings", using empty arrays when there is nothing to report`

const userTemplate = `User request: %s

Please analyze the rate card and suggest specific changes based on this request.`

// BuildPrompt renders the request for instruction against card. A blank
// instruction is a validation error.
func BuildPrompt(card *ratecard.RateCard, instruction string) (Prompt, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return Prompt{}, apperr.New(apperr.KindValidation, "Please describe what changes you want to make")
	}
	if card == nil {
		return Prompt{}, apperr.New(apperr.KindValidation, "no rate card loaded")
	}

	cardJSON, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return Prompt{}, eris.Wrap(err, "suggest: encode rate card")
	}

	var labels strings.Builder
	for _, t := range AvailableRateTypes(card) {
		labels.WriteString("- ")
		labels.WriteString(t)
		labels.WriteByte('\n')
	}

	return Prompt{
		System: fmt.Sprintf(systemTemplate,
			cardJSON,
			strings.TrimRight(labels.String(), "\n"),
			strings.Join(ratecard.KnownVehicleTypes, ", "),
			ratecard.OperatingHours,
		),
		User: fmt.Sprintf(userTemplate, instruction),
	}, nil
}
