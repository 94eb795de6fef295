package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

func TestAvailableRateTypes_FirstVehicle(t *testing.T) {
	t.Parallel()
	card := testCard()
	card.RatesByVehicle[ratecard.Truck] = append(card.RatesByVehicle[ratecard.Truck],
		ratecard.RateEntry{Type: "Liftgate", Value: num(40)})

	// The first vehicle in vehicle_types order defines the list, even
	// when a later vehicle carries extra types.
	assert.Equal(t, []string{"Base Rate", ratecard.OperatingHours}, AvailableRateTypes(card))
}

func TestAvailableRateTypes_FollowsVehicleOrder(t *testing.T) {
	t.Parallel()
	card := testCard()
	card.VehicleTypes = ratecard.VehicleTypes{{Key: ratecard.Truck, Name: "Truck"}}
	card.RatesByVehicle[ratecard.Truck] = append(card.RatesByVehicle[ratecard.Truck],
		ratecard.RateEntry{Type: "Liftgate", Value: num(40)})

	assert.Equal(t, []string{"Base Rate", ratecard.OperatingHours, "Liftgate"}, AvailableRateTypes(card))
}

func TestAvailableRateTypes_Empty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, AvailableRateTypes(nil))
	assert.Nil(t, AvailableRateTypes(&ratecard.RateCard{}))
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()
	p, err := BuildPrompt(testCard(), "  Increase all base rates by 10%  ")
	require.NoError(t, err)

	assert.Contains(t, p.System, "rate card modification assistant")
	assert.Contains(t, p.System, `"vendor_code": "ACME"`)
	assert.Contains(t, p.System, "- Base Rate\n- Standard Operating Hours")
	assert.Contains(t, p.System, "cargo_van_sprinter, car_suv_minivan, truck")
	assert.Contains(t, p.System, `"warnings"`)
	assert.Contains(t, p.System, "HH:MM-HH:MM")
	assert.Equal(t, "User request: Increase all base rates by 10%\n\nPlease analyze the rate card and suggest specific changes based on this request.", p.User)
}

func TestBuildPrompt_BlankInstruction(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := BuildPrompt(testCard(), in)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
}

func TestBuildPrompt_NilCard(t *testing.T) {
	t.Parallel()
	_, err := BuildPrompt(nil, "raise rates")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
