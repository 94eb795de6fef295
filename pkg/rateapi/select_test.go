package rateapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-agent/internal/apperr"
)

func selectionServer(t *testing.T, vendors, versions string) Client {
	t.Helper()
	return newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/rates":
			_, _ = w.Write([]byte(vendors))
		default:
			_, _ = w.Write([]byte(versions))
		}
	})
}

func TestResolve_Defaults(t *testing.T) {
	t.Parallel()
	c := selectionServer(t,
		`{"success": true, "vendors": [{"vendor_code": "ACME"}, {"vendor_code": "ZIP"}]}`,
		`{"success": true, "available_versions": [{"version_id": "v3"}, {"version_id": "v2"}]}`,
	)

	vendor, version, err := Resolve(context.Background(), c, "", "")
	require.NoError(t, err)
	assert.Equal(t, "ACME", vendor)
	assert.Equal(t, "v3", version)

	vendor, version, err = Resolve(context.Background(), c, "ZIP", "v1")
	require.NoError(t, err)
	assert.Equal(t, "ZIP", vendor)
	assert.Equal(t, "v1", version)
}

func TestResolve_Empty(t *testing.T) {
	t.Parallel()
	c := selectionServer(t,
		`{"success": true, "vendors": []}`,
		`{"success": true, "available_versions": []}`,
	)

	_, err := DefaultVendor(context.Background(), c)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, _, err = Resolve(context.Background(), c, "ACME", "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
