package suggest

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

type rawReply struct {
	Explanation *string           `json:"explanation"`
	Changes     []json.RawMessage `json:"changes"`
	Warnings    []json.RawMessage `json:"warnings"`
}

type rawChange struct {
	VehicleType  *string         `json:"vehicle_type"`
	RateType     *string         `json:"rate_type"`
	CurrentValue json.RawMessage `json:"current_value"`
	NewValue     json.RawMessage `json:"new_value"`
	Reason       string          `json:"reason"`
}

// ParseReply decodes the model's text into a Result. Markdown code fences
// and surrounding prose are stripped first. Any structural mismatch is a
// protocol error; changes that name unknown vehicles or rate types are kept
// and left for Merge to skip.
func ParseReply(text string) (*Result, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, apperr.New(apperr.KindProtocol, "AI reply was empty")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, apperr.Wrap(apperr.KindProtocol, err, "AI reply is not a JSON object")
	}
	_, hasExp := fields["explanation"]
	_, hasChanges := fields["changes"]
	_, hasWarnings := fields["warnings"]
	if !hasExp && !hasChanges && !hasWarnings {
		return nil, apperr.New(apperr.KindProtocol, "AI reply has none of explanation, changes or warnings")
	}

	var raw rawReply
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, apperr.Wrap(apperr.KindProtocol, err, "AI reply has an unexpected structure")
	}

	res := &Result{
		Changes:  make([]ProposedChange, 0, len(raw.Changes)),
		Warnings: make([]Warning, 0, len(raw.Warnings)),
	}
	if raw.Explanation != nil {
		res.Explanation = *raw.Explanation
	}

	for _, msg := range raw.Changes {
		c, err := decodeChange(msg)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindProtocol, err, "AI reply has a malformed change")
		}
		res.Changes = append(res.Changes, c)
	}

	for _, msg := range raw.Warnings {
		var w Warning
		if err := json.Unmarshal(msg, &w); err != nil {
			return nil, apperr.Wrap(apperr.KindProtocol, err, "AI reply has a malformed warning")
		}
		if w.AvailableSimilar == nil {
			w.AvailableSimilar = []string{}
		}
		res.Warnings = append(res.Warnings, w)
	}

	return res, nil
}

func decodeChange(msg json.RawMessage) (ProposedChange, error) {
	var rc rawChange
	if err := json.Unmarshal(msg, &rc); err != nil {
		return ProposedChange{}, err
	}
	if rc.VehicleType == nil {
		return ProposedChange{}, apperr.New(apperr.KindProtocol, "change is missing vehicle_type")
	}
	if rc.RateType == nil {
		return ProposedChange{}, apperr.New(apperr.KindProtocol, "change is missing rate_type")
	}
	if len(rc.NewValue) == 0 {
		return ProposedChange{}, apperr.New(apperr.KindProtocol, "change is missing new_value")
	}

	c := ProposedChange{
		VehicleType: *rc.VehicleType,
		RateType:    *rc.RateType,
		Reason:      rc.Reason,
	}
	if err := json.Unmarshal(rc.NewValue, &c.NewValue); err != nil {
		return ProposedChange{}, err
	}
	if len(rc.CurrentValue) > 0 {
		if err := json.Unmarshal(rc.CurrentValue, &c.CurrentValue); err != nil {
			// current_value is display-only; an odd shape is not worth failing the reply.
			c.CurrentValue = ratecard.Null()
		}
	}
	return c, nil
}

// cleanJSON strips markdown code fences and any text around the outermost
// JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
