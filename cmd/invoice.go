package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-agent/internal/invoice"
	"github.com/sells-group/invoice-agent/pkg/rateapi"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Check vendor invoices against rate cards",
}

var invoiceParseCmd = &cobra.Command{
	Use:   "parse <invoice.pdf>",
	Short: "Process an invoice PDF against a rate card version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]
		vendor, _ := cmd.Flags().GetString("vendor")
		version, _ := cmd.Flags().GetString("version")
		ocr, _ := cmd.Flags().GetBool("ocr")
		format, _ := cmd.Flags().GetString("format")
		failOnReview, _ := cmd.Flags().GetBool("fail-on-review")

		if err := checkFormat(format); err != nil {
			return err
		}
		if err := invoice.Preflight(path, vendor, version); err != nil {
			return err
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

		report, err := client.ParseInvoice(ctx, rateapi.ParseInvoiceRequest{
			Filename:   filepath.Base(path),
			File:       f,
			VendorCode: vendor,
			VersionID:  version,
			EnableOCR:  ocr,
		})
		if err != nil {
			return err
		}

		badges := invoice.Status(report.Summary)
		zap.L().Info("invoice processed",
			zap.String("vendor_code", vendor),
			zap.String("version_id", version),
			zap.Int("records", len(report.MainTable)),
			zap.Int("flagged", len(report.FlaggedRecords())),
			zap.String("status", joinBadges(badges)),
		)

		if err := writeOutput(os.Stdout, format, report, func(w io.Writer) error {
			return invoice.Render(w, report)
		}); err != nil {
			return err
		}

		if failOnReview && needsAttention(badges) {
			return eris.Errorf("invoice needs attention: %s", joinBadges(badges))
		}
		return nil
	},
}

func joinBadges(badges []invoice.Badge) string {
	parts := make([]string, len(badges))
	for i, b := range badges {
		parts[i] = string(b)
	}
	return strings.Join(parts, ",")
}

// needsAttention reports whether any badge other than PASSED applies.
func needsAttention(badges []invoice.Badge) bool {
	for _, b := range badges {
		if b != invoice.BadgePassed {
			return true
		}
	}
	return false
}

func init() {
	invoiceParseCmd.Flags().String("vendor", "", "vendor code")
	invoiceParseCmd.Flags().String("version", "", "rate card version id")
	invoiceParseCmd.Flags().Bool("ocr", false, "enable OCR-based tamper detection")
	invoiceParseCmd.Flags().String("format", formatTable, "output format (table, json, yaml)")
	invoiceParseCmd.Flags().Bool("fail-on-review", false, "exit non-zero unless the invoice passed")

	invoiceCmd.AddCommand(invoiceParseCmd)
	rootCmd.AddCommand(invoiceCmd)
}
