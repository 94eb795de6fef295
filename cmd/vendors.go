package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/invoice-agent/pkg/rateapi"
)

// vendorListing is a vendor with its versions when requested.
type vendorListing struct {
	rateapi.Vendor
	Versions []rateapi.Version `json:"versions,omitempty" yaml:"versions,omitempty"`
}

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "List vendors with uploaded rate cards",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")
		withVersions, _ := cmd.Flags().GetBool("versions")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if err := checkFormat(format); err != nil {
			return err
		}

		client, err := initBackend()
		if err != nil {
			return err
		}

		vendors, err := client.ListVendors(ctx)
		if err != nil {
			return err
		}
		if len(vendors) == 0 {
			fmt.Fprintln(os.Stderr, "No vendors found.")
			return nil
		}

		listing := make([]vendorListing, len(vendors))
		for i, v := range vendors {
			listing[i].Vendor = v
		}

		if withVersions {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(max(concurrency, 1))
			for i := range listing {
				g.Go(func() error {
					detail, err := client.GetVendor(gctx, listing[i].VendorCode)
					if err != nil {
						return err
					}
					listing[i].Versions = detail.AvailableVersions
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
		}

		return writeOutput(os.Stdout, format, listing, func(w io.Writer) error {
			return formatVendors(w, listing, withVersions)
		})
	},
}

func formatVendors(out io.Writer, listing []vendorListing, withVersions bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if withVersions {
		_, _ = fmt.Fprintln(w, "CODE\tNAME\tVERSIONS")
	} else {
		_, _ = fmt.Fprintln(w, "CODE\tNAME")
	}
	for _, v := range listing {
		if !withVersions {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", v.VendorCode, v.VendorName)
			continue
		}
		ids := make([]string, len(v.Versions))
		for i, ver := range v.Versions {
			ids[i] = ver.VersionID
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", v.VendorCode, v.VendorName, strings.Join(ids, ", "))
	}
	return w.Flush()
}

func init() {
	vendorsCmd.Flags().Bool("versions", false, "also list each vendor's rate card versions")
	vendorsCmd.Flags().Int("concurrency", 4, "max concurrent version lookups")
	vendorsCmd.Flags().String("format", formatTable, "output format (table, json, yaml)")
	rootCmd.AddCommand(vendorsCmd)
}
