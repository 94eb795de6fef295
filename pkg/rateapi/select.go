package rateapi

import (
	"context"

	"github.com/sells-group/invoice-agent/internal/apperr"
)

// DefaultVendor returns the first vendor the backend lists, which is what an
// operator gets when they have not picked one.
func DefaultVendor(ctx context.Context, c Client) (Vendor, error) {
	vendors, err := c.ListVendors(ctx)
	if err != nil {
		return Vendor{}, err
	}
	if len(vendors) == 0 {
		return Vendor{}, apperr.New(apperr.KindNotFound, "no vendors have uploaded rate cards")
	}
	return vendors[0], nil
}

// DefaultVersion returns the first listed version of vendorCode.
func DefaultVersion(ctx context.Context, c Client, vendorCode string) (Version, error) {
	detail, err := c.GetVendor(ctx, vendorCode)
	if err != nil {
		return Version{}, err
	}
	if len(detail.AvailableVersions) == 0 {
		return Version{}, apperr.Newf(apperr.KindNotFound, "vendor %s has no rate card versions", vendorCode)
	}
	return detail.AvailableVersions[0], nil
}

// Resolve fills in a missing vendor or version with the defaults.
func Resolve(ctx context.Context, c Client, vendorCode, versionID string) (string, string, error) {
	if vendorCode == "" {
		v, err := DefaultVendor(ctx, c)
		if err != nil {
			return "", "", err
		}
		vendorCode = v.VendorCode
	}
	if versionID == "" {
		v, err := DefaultVersion(ctx, c, vendorCode)
		if err != nil {
			return "", "", err
		}
		versionID = v.VersionID
	}
	return vendorCode, versionID, nil
}
