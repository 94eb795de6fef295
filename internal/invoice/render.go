package invoice

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Render writes a plain-text version of the report: header, records,
// summary with status badges, and the charge analyses the backend included.
func Render(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "INVOICE HEADER")
	for _, f := range r.Header {
		fmt.Fprintf(tw, "  %s\t%s\n", FormatLabel(f.Key), HeaderValue(f.Key, f.Value))
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "INVOICE DETAILS (%d records)\n", len(r.MainTable))
	fmt.Fprintln(tw, "DATE\tORDER NO\tSERVICE\tPICKUP\tDELIVERY\tCHARGES\tTOTAL\tRISK\tNOTE")
	for _, rec := range r.MainTable {
		risk := string(rec.Flags.RiskLevel)
		if rec.Flags.Fraud {
			risk += " (TAMPERED)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Date,
			rec.OrderNo,
			rec.ServiceType,
			place(rec.PickupDetails.Name, rec.PickupDetails.CityStateZip),
			place(rec.DeliveryDetails.Name, rec.DeliveryDetails.CityStateZip),
			chargeList(rec.Charges),
			FormatCurrency(rec.Total),
			risk,
			rec.Note,
		)
	}
	fmt.Fprintln(tw)

	s := r.Summary
	fmt.Fprintln(tw, "SUMMARY")
	fmt.Fprintf(tw, "  Total Records\t%d\n", s.TotalRecords)
	fmt.Fprintf(tw, "  Calculated Total\t%s\n", FormatCurrency(s.CalculatedTotal))
	fmt.Fprintf(tw, "  Header Total\t%s\n", FormatCurrency(s.HeaderTotal))
	fmt.Fprintf(tw, "  Total Discrepancy\t%s\n", FormatCurrency(s.TotalDiscrepancy))
	if s.ExtraCharges != nil && s.ExtraCharges.TotalExtraCharges != nil {
		fmt.Fprintf(tw, "  Total Extra Charges\t%s\n", FormatCurrency(s.ExtraCharges.TotalExtraCharges))
	}
	if badges := Status(s); len(badges) > 0 {
		names := make([]string, len(badges))
		for i, b := range badges {
			names[i] = string(b)
		}
		fmt.Fprintf(tw, "  Status\t%s\n", strings.Join(names, ", "))
	}
	if s.FraudDetected {
		fmt.Fprintf(tw, "  Tamper Alerts\t%d\n", s.TotalFraudDiscrepancies)
		fmt.Fprintf(tw, "  Tampered Amount\t%s\n", FormatCurrency(s.TotalFraudulentAmount))
	}

	if b := s.BaseCharges; b != nil {
		fmt.Fprintln(tw, "\nBASE CHARGES")
		fmt.Fprintf(tw, "  Under Charged\t%d items\t%s\n", b.UnderCharged, FormatCurrency(b.UnderChargedAmount))
		fmt.Fprintf(tw, "  Over Charged\t%d items\t%s\n", b.OverCharged, FormatCurrency(b.OverChargedAmount))
		fmt.Fprintf(tw, "  Total Items\t%d\t\n", b.TotalItems)
	}
	if o := s.WkdHolOT; o != nil {
		fmt.Fprintln(tw, "\nWEEKEND / HOLIDAY / OT")
		fmt.Fprintf(tw, "  Valid\t%d items\t%s\n", o.Valid, FormatCurrency(o.ValidAmount))
		fmt.Fprintf(tw, "  Invalid\t%d items\t%s\n", o.Invalid, FormatCurrency(o.InvalidAmount))
		fmt.Fprintf(tw, "  Total Items\t%d\t\n", o.TotalItems)
	}
	if len(s.ServiceTypes) > 0 {
		fmt.Fprintln(tw, "\nSERVICE TYPES")
		for _, st := range s.ServiceTypes {
			fmt.Fprintf(tw, "  %s\t%d shipments\t%s\n", st.Type, st.Count, FormatCurrency(st.TotalAmount))
		}
	}
	if e := s.ExtraCharges; e != nil {
		fmt.Fprintln(tw, "\nEXTRA CHARGES")
		for _, item := range []struct {
			label string
			ca    *CountAmount
		}{
			{"Fuel Surcharge", e.FuelSurcharge},
			{"Vehicle Charge", e.VehicleCharge},
			{"Additional Charge", e.AdditionalCharge},
		} {
			if item.ca != nil {
				fmt.Fprintf(tw, "  %s\t%d items\t%s\n", item.label, item.ca.Count, FormatCurrency(item.ca.TotalAmount))
			}
		}
		fmt.Fprintf(tw, "  Total Extra Charges\t\t%s\n", FormatCurrency(e.TotalExtraCharges))
	}

	return tw.Flush()
}

func place(name, cityStateZip string) string {
	switch {
	case name == "":
		return cityStateZip
	case cityStateZip == "":
		return name
	default:
		return name + ", " + cityStateZip
	}
}

func chargeList(charges Charges) string {
	parts := make([]string, 0, len(charges))
	for _, c := range charges {
		if c.Amount == nil {
			continue
		}
		parts = append(parts, ChargeLabel(c.Key)+": "+FormatCurrency(c.Amount))
	}
	return strings.Join(parts, "; ")
}
