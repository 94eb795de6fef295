package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/editor"
	"github.com/sells-group/invoice-agent/internal/ratecard"
	"github.com/sells-group/invoice-agent/internal/store"
	"github.com/sells-group/invoice-agent/internal/suggest"
	"github.com/sells-group/invoice-agent/pkg/rateapi"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Build and inspect custom rule sets",
	Long:  "Commands for editing a vendor rate card into a custom rule set and for listing saved rule sets.",
}

// cellEdit is one --set assignment.
type cellEdit struct {
	Vehicle  string
	RateType string
	Value    string
}

// parseSet parses "vehicle:Rate Type=value".
func parseSet(s string) (cellEdit, error) {
	vehicle, rest, ok := strings.Cut(s, ":")
	if !ok {
		return cellEdit{}, apperr.Newf(apperr.KindValidation, "invalid --set %q (want vehicle:Rate Type=value)", s)
	}
	rateType, value, ok := strings.Cut(rest, "=")
	if !ok || strings.TrimSpace(vehicle) == "" || strings.TrimSpace(rateType) == "" {
		return cellEdit{}, apperr.Newf(apperr.KindValidation, "invalid --set %q (want vehicle:Rate Type=value)", s)
	}
	return cellEdit{Vehicle: strings.TrimSpace(vehicle), RateType: strings.TrimSpace(rateType), Value: value}, nil
}

// -- rules edit --

var rulesEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit a rate card version into a custom rule set",
	Long: `Opens a rate card version, applies --set edits and optional AI suggestions,
then validates and saves the result as a custom rule set.

Examples:
  invoice-agent rules edit --vendor ACME --version v3 --set "truck:Base Rate=104.50"
  invoice-agent rules edit --vendor ACME --version v3 --ai "raise all base rates by 5%" --apply`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		sets, _ := cmd.Flags().GetStringArray("set")
		instruction, _ := cmd.Flags().GetString("ai")
		apply, _ := cmd.Flags().GetBool("apply")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		edits := make([]cellEdit, 0, len(sets))
		for _, s := range sets {
			e, err := parseSet(s)
			if err != nil {
				return err
			}
			edits = append(edits, e)
		}

		client, err := initBackend()
		if err != nil {
			return err
		}
		vendor, _ := cmd.Flags().GetString("vendor")
		version, _ := cmd.Flags().GetString("version")
		vendor, version, err = rateapi.Resolve(ctx, client, vendor, version)
		if err != nil {
			return err
		}

		sess, err := editor.Open(ctx, client, vendor, version)
		if err != nil {
			return err
		}
		defer sess.Close()

		if err := applyIdentityFlags(cmd, sess); err != nil {
			return err
		}
		for _, e := range edits {
			if err := sess.EditRate(e.Vehicle, e.RateType, e.Value); err != nil {
				return err
			}
		}

		if instruction != "" {
			engine, err := initSuggester()
			if err != nil {
				return err
			}
			res, err := sess.RequestSuggestions(ctx, engine, instruction)
			if err != nil {
				return err
			}
			formatSuggestions(os.Stdout, res)

			if apply && res.CanApply() {
				report, err := sess.ApplySuggestions()
				if err != nil {
					return err
				}
				fmt.Printf("Applied %d change(s)", report.Applied)
				if len(report.Skipped) > 0 {
					fmt.Printf(", skipped %d with no matching rate", len(report.Skipped))
				}
				fmt.Println()
			}
		}

		if err := formatGrid(os.Stdout, sess.Grid()); err != nil {
			return err
		}

		if dryRun {
			if err := sess.Validate(); err != nil {
				return err
			}
			fmt.Println("Dry run: rule set is valid, nothing saved.")
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rs, id, err := sess.Save(ctx, st)
		if err != nil {
			return err
		}
		zap.L().Info("rule set saved", zap.String("rule_set_id", id), zap.String("vendor_code", rs.VendorCode))
		fmt.Printf("Saved rule set %s for %s (%s) version %s\n", id, rs.VendorName, rs.VendorCode, rs.VersionID)
		return nil
	},
}

func applyIdentityFlags(cmd *cobra.Command, sess *editor.Session) error {
	setters := []struct {
		flag string
		set  func(string) error
	}{
		{"vendor-code", sess.SetVendorCode},
		{"vendor-name", sess.SetVendorName},
		{"version-id", sess.SetVersionID},
	}
	for _, s := range setters {
		if !cmd.Flags().Changed(s.flag) {
			continue
		}
		v, _ := cmd.Flags().GetString(s.flag)
		if err := s.set(v); err != nil {
			return err
		}
	}
	return nil
}

func formatSuggestions(out io.Writer, res *suggest.Result) {
	if res.Explanation != "" {
		_, _ = fmt.Fprintf(out, "AI: %s\n", res.Explanation)
	}
	if len(res.Changes) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "VEHICLE\tRATE TYPE\tCURRENT\tNEW\tREASON")
		for _, c := range res.Changes {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.VehicleType, c.RateType, c.CurrentValue.Display(), c.NewValue.Display(), c.Reason)
		}
		_ = w.Flush()
	}
	for _, warn := range res.Warnings {
		line := "Warning: " + warn.Message
		if len(warn.AvailableSimilar) > 0 {
			line += " (similar: " + strings.Join(warn.AvailableSimilar, ", ") + ")"
		}
		_, _ = fmt.Fprintln(out, line)
	}
	if res.NoChangesApplicable() {
		_, _ = fmt.Fprintln(out, "No suggested changes match this rate card.")
	}
	_, _ = fmt.Fprintln(out)
}

// formatGrid writes the working copy; disabled cells are shown as "-".
func formatGrid(out io.Writer, g editor.Grid) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := []string{"#", "TYPE", "DESCRIPTION"}
	for _, v := range g.Vehicles {
		header = append(header, strings.ToUpper(v.Name))
	}
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, row := range g.Rows {
		cols := []string{fmt.Sprint(row.Index), row.Type, row.Description}
		for _, c := range row.Cells {
			switch {
			case !c.Present || c.Disabled:
				cols = append(cols, "-")
			default:
				cols = append(cols, c.Value.Display())
			}
		}
		_, _ = fmt.Fprintln(w, strings.Join(cols, "\t"))
	}
	return w.Flush()
}

// -- rules list --

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved rule sets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		vendor, _ := cmd.Flags().GetString("vendor")
		version, _ := cmd.Flags().GetString("version")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rules, err := st.ListRuleSets(ctx, store.RuleSetFilter{VendorCode: vendor, VersionID: version, Limit: limit})
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			fmt.Fprintln(os.Stderr, "No rule sets found.")
			return nil
		}

		return writeOutput(os.Stdout, format, rules, func(w io.Writer) error {
			formatRulesList(w, rules)
			return nil
		})
	},
}

func formatRulesList(out io.Writer, rules []store.RuleSet) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tVENDOR\tNAME\tVERSION\tVEHICLES\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t----\t-------\t--------\t-------")
	for _, r := range rules {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			truncateID(r.ID),
			r.VendorCode,
			r.VendorName,
			r.VersionID,
			len(r.RatesByVehicle),
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// -- rules show --

var rulesShowCmd = &cobra.Command{
	Use:   "show <rule-set-id>",
	Short: "Show a saved rule set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rs, err := st.GetRuleSet(ctx, args[0])
		if err != nil {
			return err
		}

		return writeOutput(os.Stdout, format, rs, func(w io.Writer) error {
			_, _ = fmt.Fprintf(w, "Rule set %s: %s (%s) version %s, saved %s\n\n",
				rs.ID, rs.VendorName, rs.VendorCode, rs.VersionID, rs.CreatedAt.Format("2006-01-02 15:04"))
			return formatCombined(w, &ratecard.RateCard{
				VendorCode:     rs.VendorCode,
				VendorName:     rs.VendorName,
				VersionID:      rs.VersionID,
				VehicleTypes:   rs.VehicleTypes,
				RatesByVehicle: rs.RatesByVehicle,
			})
		})
	},
}

func init() {
	rulesEditCmd.Flags().String("vendor", "", "vendor code (default: first listed vendor)")
	rulesEditCmd.Flags().String("version", "", "rate card version id (default: vendor's first version)")
	rulesEditCmd.Flags().StringArray("set", nil, `set a rate, "vehicle:Rate Type=value" (repeatable)`)
	rulesEditCmd.Flags().String("vendor-code", "", "vendor code of the saved rule set")
	rulesEditCmd.Flags().String("vendor-name", "", "vendor name of the saved rule set")
	rulesEditCmd.Flags().String("version-id", "", "version id of the saved rule set")
	rulesEditCmd.Flags().String("ai", "", "ask the AI assistant for changes")
	rulesEditCmd.Flags().Bool("apply", false, "merge the AI suggestions before saving")
	rulesEditCmd.Flags().Bool("dry-run", false, "validate and print without saving")

	rulesListCmd.Flags().String("vendor", "", "filter by vendor code")
	rulesListCmd.Flags().String("version", "", "filter by version id")
	rulesListCmd.Flags().Int("limit", 50, "max number of rule sets to display")
	rulesListCmd.Flags().String("format", formatTable, "output format (table, json, yaml)")

	rulesShowCmd.Flags().String("format", formatTable, "output format (table, json, yaml)")

	rulesCmd.AddCommand(rulesEditCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesShowCmd)
	rootCmd.AddCommand(rulesCmd)
}
