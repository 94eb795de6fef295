package invoice

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Missing is shown in place of absent amounts.
const Missing = "—"

// FormatCurrency renders d as US dollars, for example "-$1,234.50".
func FormatCurrency(d *decimal.Decimal) string {
	if d == nil {
		return Missing
	}
	f := d.Round(2).InexactFloat64()
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	p := message.NewPrinter(language.AmericanEnglish)
	return sign + "$" + p.Sprint(number.Decimal(f, number.Scale(2)))
}

// FormatLabel turns a snake_case key into words with leading capitals. The
// rest of each word is left as is.
func FormatLabel(key string) string {
	titler := cases.Title(language.English, cases.NoLower)
	words := strings.Split(key, "_")
	for i, w := range words {
		words[i] = titler.String(w)
	}
	return strings.Join(words, " ")
}

var chargeLabels = map[string]string{
	"base":           "Base",
	"weight_pcs":     "Weight/Pcs",
	"vehicle":        "Vehicle",
	"wkd_hol_ot":     "Wkd/Hol/OT",
	"fuel_surcharge": "Fuel",
	"wait_time":      "Wait Time",
}

// ChargeLabel returns the short display label for a charge key. Unknown
// keys are returned unchanged.
func ChargeLabel(key string) string {
	if l, ok := chargeLabels[key]; ok {
		return l
	}
	return key
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatDateTime renders a backend timestamp in local time. Empty input is
// "N/A"; input in an unknown layout is returned unchanged.
func FormatDateTime(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Local().Format("1/2/2006, 3:04:05 PM")
		}
	}
	return s
}

// HeaderValue renders one header value. total_due is a dollar amount;
// strings print unquoted and null prints as Missing.
func HeaderValue(key string, raw json.RawMessage) string {
	if isNull(raw) {
		return Missing
	}
	if key == "total_due" {
		var d decimal.Decimal
		if err := json.Unmarshal(raw, &d); err == nil {
			return FormatCurrency(&d)
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
