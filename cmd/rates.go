package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-agent/internal/ratecard"
	"github.com/sells-group/invoice-agent/internal/sheet"
	"github.com/sells-group/invoice-agent/pkg/rateapi"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Browse, export and upload vendor rate cards",
}

// -- rates show --

var ratesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a rate card version as one row per rate type",
	Long:  "Shows the combined rates of a vendor rate card version. Without --vendor or --version the first listed vendor and its first version are used.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		client, err := initBackend()
		if err != nil {
			return err
		}
		card, err := loadCard(cmd, client)
		if err != nil {
			return err
		}

		return writeOutput(os.Stdout, format, card, func(w io.Writer) error {
			_, _ = fmt.Fprintf(w, "%s (%s) version %s\n\n", card.VendorName, card.VendorCode, card.VersionID)
			return formatCombined(w, card)
		})
	},
}

// loadCard resolves --vendor and --version, defaulting to the first listed
// vendor and version, and fetches the card.
func loadCard(cmd *cobra.Command, client rateapi.Client) (*ratecard.RateCard, error) {
	ctx := cmd.Context()
	vendor, _ := cmd.Flags().GetString("vendor")
	version, _ := cmd.Flags().GetString("version")

	vendor, version, err := rateapi.Resolve(ctx, client, vendor, version)
	if err != nil {
		return nil, err
	}
	return client.GetVersion(ctx, vendor, version)
}

// -- rates upload --

var ratesUploadCmd = &cobra.Command{
	Use:   "upload <file.xlsx>",
	Short: "Preview and upload a rate card spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]
		previewRows, _ := cmd.Flags().GetInt("preview")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if err := sheet.CheckExtension(path); err != nil {
			return err
		}

		if previewRows > 0 && strings.EqualFold(filepath.Ext(path), ".xlsx") {
			preview, err := sheet.Preview(path, previewRows)
			if err != nil {
				return err
			}
			formatPreview(os.Stdout, preview)
		}
		if dryRun {
			return nil
		}

		client, err := initBackend()
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "open %s", path)
		}
		defer f.Close() //nolint:errcheck

		res, err := client.UploadRateCard(ctx, filepath.Base(path), f)
		if err != nil {
			return err
		}

		zap.L().Info("rate card uploaded",
			zap.String("vendor_name", res.VendorName),
			zap.String("version_id", res.VersionID),
		)
		fmt.Printf("Uploaded rate card for %s (version %s)\n", res.VendorName, res.VersionID)
		return nil
	},
}

func formatPreview(out io.Writer, p *sheet.PreviewResult) {
	_, _ = fmt.Fprintf(out, "Sheet %q: %d rows (showing %d)\n", p.Sheet, p.TotalRows, len(p.Rows))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(p.Header, "\t"))
	for _, row := range p.Rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
}

// -- rates template --

var ratesTemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write a rate card spreadsheet template",
	Long:  "Writes an xlsx template. With --vendor and --version the template is pre-filled with that rate card; otherwise the blank template lists the standard vehicle and rate types.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString("out")
		vendor, _ := cmd.Flags().GetString("vendor")
		version, _ := cmd.Flags().GetString("version")

		var card *ratecard.RateCard
		if vendor != "" || version != "" {
			client, err := initBackend()
			if err != nil {
				return err
			}
			card, err = loadCard(cmd, client)
			if err != nil {
				return err
			}
		}

		if err := sheet.WriteTemplate(out, card); err != nil {
			return err
		}
		fmt.Printf("Wrote template to %s\n", out)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{ratesShowCmd, ratesTemplateCmd} {
		c.Flags().String("vendor", "", "vendor code (default: first listed vendor)")
		c.Flags().String("version", "", "rate card version id (default: vendor's first version)")
	}
	ratesShowCmd.Flags().String("format", formatTable, "output format (table, json, yaml)")

	ratesUploadCmd.Flags().Int("preview", 10, "rows to preview before uploading (0 to skip)")
	ratesUploadCmd.Flags().Bool("dry-run", false, "preview only, do not upload")

	ratesTemplateCmd.Flags().String("out", "rate-card-template.xlsx", "output xlsx path")

	ratesCmd.AddCommand(ratesShowCmd)
	ratesCmd.AddCommand(ratesUploadCmd)
	ratesCmd.AddCommand(ratesTemplateCmd)
	rootCmd.AddCommand(ratesCmd)
}
