package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return apperr.Newf(apperr.KindValidation, "unknown output format %q (want table, json or yaml)", format)
	}
}

// writeOutput encodes v as JSON or YAML, or calls table for the table format.
func writeOutput(w io.Writer, format string, v any, table func(io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case formatYAML:
		// YAML is built from the JSON encoding; key order and json tags carry over.
		raw, err := json.Marshal(v)
		if err != nil {
			return eris.Wrap(err, "encode json")
		}
		var node yaml.Node
		if err := yaml.Unmarshal(raw, &node); err != nil {
			return eris.Wrap(err, "decode json as yaml")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&node); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "flush yaml")
	case formatTable:
		return table(w)
	default:
		return checkFormat(format)
	}
}

// formatCombined writes the combined rate view: one row per rate type, one
// column per vehicle type.
func formatCombined(out io.Writer, card *ratecard.RateCard) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	keys := card.VehicleKeys()

	header := []string{"TYPE", "DESCRIPTION"}
	for _, k := range keys {
		header = append(header, strings.ToUpper(card.VehicleTypes.Name(k)))
	}
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, row := range ratecard.Combine(card) {
		cols := []string{row.Type, row.Description}
		for _, k := range keys {
			cols = append(cols, row.Values[k].Display())
		}
		_, _ = fmt.Fprintln(w, strings.Join(cols, "\t"))
	}
	return w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
