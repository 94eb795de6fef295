package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "rules.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func sampleRuleSet(vendor string) ratecard.CustomRuleSet {
	return ratecard.CustomRuleSet{
		VendorCode: vendor,
		VendorName: "Acme Courier",
		VersionID:  "v2",
		RatesByVehicle: ratecard.RatesByVehicle{
			"truck": {
				{Type: "base", Description: "Base Rate", Value: ratecard.NumberFromFloat(95.5)},
				{Type: "hours", Description: "Operating Hours", Value: ratecard.Text("24/7")},
			},
			"cargo_van_sprinter": {
				{Type: "base", Description: "Base Rate", Value: ratecard.Null()},
			},
		},
		VehicleTypes: ratecard.VehicleTypes{
			{Key: "truck", Name: "Truck"},
			{Key: "cargo_van_sprinter", Name: "Cargo Van / Sprinter"},
		},
	}
}

// storeTestSuite runs the shared behavior checks against any Store.
func storeTestSuite(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("SaveAndGet", func(t *testing.T) {
		id, err := s.SaveRuleSet(ctx, sampleRuleSet("ACME"))
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := s.GetRuleSet(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "ACME", got.VendorCode)
		assert.Equal(t, "Acme Courier", got.VendorName)
		assert.False(t, got.CreatedAt.IsZero())
		assert.Equal(t, []string{"truck", "cargo_van_sprinter"}, got.VehicleTypes.Keys())

		truck := got.RatesByVehicle["truck"]
		require.Len(t, truck, 2)
		assert.Equal(t, "95.5", truck[0].Value.String())
		assert.True(t, truck[1].Value.IsText())
		assert.True(t, got.RatesByVehicle["cargo_van_sprinter"][0].Value.IsNull())
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := s.GetRuleSet(ctx, "missing")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("ListFilter", func(t *testing.T) {
		_, err := s.SaveRuleSet(ctx, sampleRuleSet("OTHER"))
		require.NoError(t, err)

		all, err := s.ListRuleSets(ctx, RuleSetFilter{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 2)

		other, err := s.ListRuleSets(ctx, RuleSetFilter{VendorCode: "OTHER"})
		require.NoError(t, err)
		require.Len(t, other, 1)
		assert.Equal(t, "OTHER", other[0].VendorCode)

		limited, err := s.ListRuleSets(ctx, RuleSetFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("Delete", func(t *testing.T) {
		id, err := s.SaveRuleSet(ctx, sampleRuleSet("DEL"))
		require.NoError(t, err)

		require.NoError(t, s.DeleteRuleSet(ctx, id))
		_, err = s.GetRuleSet(ctx, id)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))

		err = s.DeleteRuleSet(ctx, id)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite(t))
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestListLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, listLimit(0))
	assert.Equal(t, defaultListLimit, listLimit(-3))
	assert.Equal(t, 7, listLimit(7))
}
