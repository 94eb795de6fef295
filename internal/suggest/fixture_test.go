package suggest

import (
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

func num(f float64) ratecard.Value { return ratecard.NumberFromFloat(f) }

func testCard() *ratecard.RateCard {
	return &ratecard.RateCard{
		VendorCode: "ACME",
		VendorName: "Acme Logistics",
		VersionID:  "v3",
		VehicleTypes: ratecard.VehicleTypes{
			{Key: ratecard.CargoVanSprinter, Name: "Cargo Van / Sprinter"},
			{Key: ratecard.CarSUVMinivan, Name: "Car / SUV / Minivan"},
			{Key: ratecard.Truck, Name: "Truck"},
		},
		RatesByVehicle: ratecard.RatesByVehicle{
			ratecard.CargoVanSprinter: {
				{Type: "Base Rate", Description: "Flat pickup fee", Value: num(65)},
				{Type: ratecard.OperatingHours, Description: "Window", Value: ratecard.Null()},
			},
			ratecard.CarSUVMinivan: {
				{Type: "Base Rate", Description: "Flat pickup fee", Value: num(45)},
				{Type: ratecard.OperatingHours, Description: "Window", Value: ratecard.Text("08:00-17:00")},
			},
			ratecard.Truck: {
				{Type: "Base Rate", Description: "Flat pickup fee", Value: num(95)},
				{Type: ratecard.OperatingHours, Description: "Window", Value: ratecard.Null()},
			},
		},
	}
}
