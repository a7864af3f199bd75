package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dormbase/dorm-billing/backend/models"
)

func tenEqualRooms(waterEach, electricEach int) []RoomUsage {
	rooms := make([]RoomUsage, 10)
	for i := range rooms {
		rooms[i] = RoomUsage{RoomID: i + 1, Water: waterEach, Electric: electricEach, Eligible: true}
	}
	return rooms
}

func TestApportionEqualSplit(t *testing.T) {
	// Central water 1000 units against 850 metered in rooms leaves 150
	// common units; at rate 5 that is 750 split over 10 rooms.
	central := models.CentralMeterRecord{
		Month:        "2026-08",
		WaterLast:    0,
		WaterCurrent: 1000,
		WaterRate:    5,
	}
	rooms := tenEqualRooms(85, 0)

	result := Apportion(central, rooms, Policy{
		Enabled:      true,
		Distribution: models.DistributionEqual,
		CapMode:      models.CapNone,
	})

	assert.Equal(t, 150, result.CommonWaterUsage)
	assert.InDelta(t, 750.0, result.CommonWaterCost, 1e-6)
	assert.Equal(t, 10, result.EligibleRooms)
	assert.Len(t, result.Shares, 10)

	for _, share := range result.Shares {
		assert.InDelta(t, 75.0, share.Water, 1e-6)
	}
	assert.InDelta(t, 0.0, result.OwnerAbsorbed, 1e-6)
}

func TestApportionProportional(t *testing.T) {
	central := models.CentralMeterRecord{
		WaterCurrent: 400,
		WaterRate:    10,
	}
	// Room 2 used twice room 1's water; its share must be twice as big.
	rooms := []RoomUsage{
		{RoomID: 1, Water: 100, Eligible: true},
		{RoomID: 2, Water: 200, Eligible: true},
	}

	result := Apportion(central, rooms, Policy{
		Enabled:      true,
		Distribution: models.DistributionProportional,
		CapMode:      models.CapNone,
	})

	assert.Equal(t, 100, result.CommonWaterUsage)
	assert.InDelta(t, result.Shares[1].Water*2, result.Shares[2].Water, 1e-6)
	assert.InDelta(t, 1000.0, result.Shares[1].Water+result.Shares[2].Water, 1e-6)
}

func TestApportionProportionalZeroUsageFallsBackToEqual(t *testing.T) {
	central := models.CentralMeterRecord{WaterCurrent: 50, WaterRate: 10}
	rooms := []RoomUsage{
		{RoomID: 1, Water: 0, Eligible: true},
		{RoomID: 2, Water: 0, Eligible: true},
	}

	result := Apportion(central, rooms, Policy{
		Enabled:      true,
		Distribution: models.DistributionProportional,
		CapMode:      models.CapNone,
	})

	assert.InDelta(t, 250.0, result.Shares[1].Water, 1e-6)
	assert.InDelta(t, 250.0, result.Shares[2].Water, 1e-6)
}

func TestApportionElectricRateDerivedFromCost(t *testing.T) {
	// The provider bill is the input for electricity; the effective
	// rate is cost over central usage.
	central := models.CentralMeterRecord{
		ElectricCurrent: 2000,
		ElectricCost:    9000,
	}
	rooms := []RoomUsage{
		{RoomID: 1, Electric: 900, Eligible: true},
		{RoomID: 2, Electric: 900, Eligible: true},
	}

	result := Apportion(central, rooms, Policy{
		Enabled:      true,
		Distribution: models.DistributionEqual,
		CapMode:      models.CapNone,
	})

	assert.InDelta(t, 4.5, result.ElectricRate, 1e-6) // 9000 / 2000
	assert.Equal(t, 200, result.CommonElectricUsage)
	assert.InDelta(t, 900.0, result.CommonElectricCost, 1e-6)
	assert.InDelta(t, 450.0, result.Shares[1].Electric, 1e-6)
}

func TestApportionNegativeCommonUsageNotClamped(t *testing.T) {
	// Room meters over-report against the central meter. The negative
	// usage is a data-quality signal and passes through as-is.
	central := models.CentralMeterRecord{WaterCurrent: 100, WaterRate: 10}
	rooms := []RoomUsage{{RoomID: 1, Water: 120, Eligible: true}}

	result := Apportion(central, rooms, Policy{
		Enabled:      true,
		Distribution: models.DistributionEqual,
		CapMode:      models.CapNone,
	})

	assert.Equal(t, -20, result.CommonWaterUsage)
	assert.InDelta(t, -200.0, result.CommonWaterCost, 1e-6)
	assert.InDelta(t, -200.0, result.Shares[1].Water, 1e-6)
}

func TestApportionDisabledOrNoEligibleRooms(t *testing.T) {
	central := models.CentralMeterRecord{
		WaterCurrent: 100,
		WaterRate:    10,
		InternetFee:  500,
		TrashFee:     100,
	}

	t.Run("disabled policy absorbs everything", func(t *testing.T) {
		rooms := tenEqualRooms(5, 0)
		result := Apportion(central, rooms, Policy{Enabled: false})
		assert.Empty(t, result.Shares)
		assert.InDelta(t, result.TotalCommonCost()+600, result.OwnerAbsorbed, 1e-6)
	})

	t.Run("no eligible rooms absorbs everything", func(t *testing.T) {
		rooms := []RoomUsage{{RoomID: 1, Water: 50, Eligible: false}}
		result := Apportion(central, rooms, Policy{Enabled: true, Distribution: models.DistributionEqual})
		assert.Empty(t, result.Shares)
		assert.InDelta(t, 500+600.0, result.OwnerAbsorbed, 1e-6)
	})
}

func TestApportionFixedFeesSplitEqually(t *testing.T) {
	central := models.CentralMeterRecord{
		WaterCurrent: 300,
		WaterRate:    10,
		InternetFee:  400,
		TrashFee:     200,
	}
	// Proportional mode must not touch the fixed fee split.
	rooms := []RoomUsage{
		{RoomID: 1, Water: 50, Eligible: true},
		{RoomID: 2, Water: 150, Eligible: true},
	}

	result := Apportion(central, rooms, Policy{
		Enabled:      true,
		Distribution: models.DistributionProportional,
		CapMode:      models.CapNone,
	})

	assert.InDelta(t, 200.0, result.Shares[1].Internet, 1e-6)
	assert.InDelta(t, 200.0, result.Shares[2].Internet, 1e-6)
	assert.InDelta(t, 100.0, result.Shares[1].Trash, 1e-6)
	assert.InDelta(t, 100.0, result.Shares[2].Trash, 1e-6)
}

func TestApportionPercentageCap(t *testing.T) {
	central := models.CentralMeterRecord{WaterCurrent: 200, WaterRate: 10}
	rooms := []RoomUsage{
		{RoomID: 1, Water: 50, Eligible: true},
		{RoomID: 2, Water: 50, Eligible: true},
	}

	// Common cost 1000; a 60% cap bills 600 and the owner eats 400.
	result := Apportion(central, rooms, Policy{
		Enabled:      true,
		Distribution: models.DistributionEqual,
		CapMode:      models.CapPercentage,
		CapValue:     60,
	})

	assert.InDelta(t, 1000.0, result.TotalCommonCost(), 1e-6)
	assert.InDelta(t, 600.0, result.DistributedTotal(), 1e-6)
	assert.InDelta(t, 300.0, result.Shares[1].Water, 1e-6)
	assert.InDelta(t, 400.0, result.OwnerAbsorbed, 1e-6)
}

func TestApportionFixedCap(t *testing.T) {
	central := models.CentralMeterRecord{WaterCurrent: 200, WaterRate: 10}
	rooms := []RoomUsage{
		{RoomID: 1, Water: 50, Eligible: true},
		{RoomID: 2, Water: 50, Eligible: true},
	}

	// Common cost 1000 over two rooms would be 500 each; a fixed cap of
	// 400 gives each room a 200 ceiling.
	result := Apportion(central, rooms, Policy{
		Enabled:      true,
		Distribution: models.DistributionEqual,
		CapMode:      models.CapFixed,
		CapValue:     400,
	})

	assert.InDelta(t, 200.0, result.Shares[1].Water, 1e-6)
	assert.InDelta(t, 200.0, result.Shares[2].Water, 1e-6)
	assert.InDelta(t, 400.0, result.DistributedTotal(), 1e-6)
	assert.InDelta(t, 600.0, result.OwnerAbsorbed, 1e-6)
}

func TestApportionCapNeverIncreasesShares(t *testing.T) {
	central := models.CentralMeterRecord{WaterCurrent: 110, WaterRate: 10}
	rooms := []RoomUsage{{RoomID: 1, Water: 100, Eligible: true}}

	// Common cost 100 is already under the 5000 cap; shares must not grow.
	uncapped := Apportion(central, rooms, Policy{
		Enabled: true, Distribution: models.DistributionEqual, CapMode: models.CapNone,
	})
	capped := Apportion(central, rooms, Policy{
		Enabled: true, Distribution: models.DistributionEqual,
		CapMode: models.CapFixed, CapValue: 5000,
	})

	assert.InDelta(t, uncapped.Shares[1].Water, capped.Shares[1].Water, 1e-6)
}

func TestApportionDistributedNeverExceedsTotal(t *testing.T) {
	central := models.CentralMeterRecord{
		WaterCurrent:    500,
		WaterRate:       18,
		ElectricCurrent: 1200,
		ElectricCost:    6000,
	}
	rooms := []RoomUsage{
		{RoomID: 1, Water: 100, Electric: 300, Eligible: true},
		{RoomID: 2, Water: 150, Electric: 400, Eligible: true},
		{RoomID: 3, Water: 50, Electric: 200, Eligible: false},
	}

	for _, mode := range []string{models.DistributionEqual, models.DistributionProportional} {
		result := Apportion(central, rooms, Policy{
			Enabled:      true,
			Distribution: mode,
			CapMode:      models.CapPercentage,
			CapValue:     80,
		})
		assert.LessOrEqual(t, result.DistributedTotal(), result.TotalCommonCost()+1e-6)
		assert.InDelta(t, result.TotalCommonCost(),
			result.DistributedTotal()+result.OwnerAbsorbed, 1e-6)
		// Ineligible room gets no share.
		_, ok := result.Shares[3]
		assert.False(t, ok)
	}
}
