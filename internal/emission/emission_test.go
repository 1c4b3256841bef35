package emission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuelConsumption(t *testing.T) {
	t.Run("clamps below 5 km/h", func(t *testing.T) {
		at1 := FuelConsumption(1, DefaultConfig)
		at5 := FuelConsumption(5, DefaultConfig)
		assert.InDelta(t, at5, at1, 1e-9)
	})

	t.Run("floors at 0.01", func(t *testing.T) {
		fc := FuelConsumption(50, Config{})
		assert.Equal(t, 0.01, fc)
	})
}

func TestEF(t *testing.T) {
	t.Run("electric is always zero", func(t *testing.T) {
		assert.Equal(t, 0.0, EF(50, FuelElectric, DefaultConfig))
	})

	t.Run("diesel has a higher per-liter factor than petrol at equal speed", func(t *testing.T) {
		petrol := EF(40, FuelPetrol, DefaultConfig)
		diesel := EF(40, FuelDiesel, DefaultConfig)
		assert.Greater(t, diesel, petrol)
	})

	t.Run("hybrid is roughly half of petrol", func(t *testing.T) {
		petrol := EF(40, FuelPetrol, DefaultConfig)
		hybrid := EF(40, FuelHybrid, DefaultConfig)
		assert.InDelta(t, petrol/2, hybrid, petrol*0.01)
	})

	t.Run("unknown fuel type defaults to petrol", func(t *testing.T) {
		petrol := EF(40, FuelPetrol, DefaultConfig)
		unknown := EF(40, FuelType("rocket"), DefaultConfig)
		assert.Equal(t, petrol, unknown)
	})
}

func TestCarpoolSavings(t *testing.T) {
	t.Run("sharing saves emissions", func(t *testing.T) {
		result := CarpoolSavings(
			[]Trip{{DistanceKm: 10, AvgSpeedKmh: 30}, {DistanceKm: 10, AvgSpeedKmh: 30}},
			Trip{DistanceKm: 12, AvgSpeedKmh: 30},
			FuelPetrol, DefaultConfig,
		)
		assert.Greater(t, result.CO2SavedG, 0.0)
		assert.Greater(t, result.PercentageSaved, 0.0)
		assert.LessOrEqual(t, result.PercentageSaved, 100.0)
	})

	t.Run("never negative when shared trip is less efficient", func(t *testing.T) {
		result := CarpoolSavings(
			[]Trip{{DistanceKm: 1, AvgSpeedKmh: 30}},
			Trip{DistanceKm: 100, AvgSpeedKmh: 5},
			FuelPetrol, DefaultConfig,
		)
		assert.Equal(t, 0.0, result.CO2SavedG)
		assert.Equal(t, 0.0, result.PercentageSaved)
	})

	t.Run("zero individual trips yields zero percentage, no division by zero", func(t *testing.T) {
		result := CarpoolSavings(nil, Trip{DistanceKm: 5, AvgSpeedKmh: 30}, FuelPetrol, DefaultConfig)
		assert.Equal(t, 0.0, result.PercentageSaved)
	})
}

func TestCO2ToTreeDays(t *testing.T) {
	days := CO2ToTreeDays(22000)
	assert.InDelta(t, 365.0, days, 0.01)
}
