package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dormbase/dorm-billing/backend/models"
)

func batchRooms() []models.Room {
	return []models.Room{
		{ID: 1, Number: "101", RentPrice: 3000, WaterLast: 100, ElectricLast: 500, ChargeCommonArea: true, IsActive: true},
		{ID: 2, Number: "102", RentPrice: 3200, WaterLast: 200, ElectricLast: 700, ChargeCommonArea: true, IsActive: true},
		{ID: 3, Number: "103", RentPrice: 2800, WaterLast: 50, ElectricLast: 300, ChargeCommonArea: false, IsActive: true},
	}
}

func TestComputeBatchFullRun(t *testing.T) {
	central := &models.CentralMeterRecord{
		Month:           "2026-08",
		WaterCurrent:    200,
		WaterRate:       5,
		ElectricCurrent: 500,
		ElectricCost:    2500,
	}

	result := ComputeBatch(BatchInput{
		Month:  "2026-08",
		Config: defaultConfig(),
		Rooms:  batchRooms(),
		Readings: []ReadingSubmission{
			{RoomID: 1, WaterCurrent: intPtr(150), ElectricCurrent: intPtr(620)},
			{RoomID: 2, WaterCurrent: intPtr(240), ElectricCurrent: intPtr(780)},
			{RoomID: 3, WaterCurrent: intPtr(70), ElectricCurrent: intPtr(350)},
		},
		Central: central,
	})

	require.Len(t, result.Entries, 3)
	assert.Empty(t, result.Skipped)
	assert.Empty(t, result.Warnings)
	require.NotNil(t, result.Apportionment)

	byRoom := map[int]models.BillingEntry{}
	for _, e := range result.Entries {
		byRoom[e.RoomID] = e
	}

	// Room 3 opted out of common-area charges.
	assert.Equal(t, 0.0, byRoom[3].CommonFees())
	assert.Greater(t, byRoom[1].CommonFees(), 0.0)

	// Every entry total is the exact sum of its components.
	for _, e := range result.Entries {
		want := e.RentPrice + e.WaterCost + e.ElectricCost +
			e.TrashFee + e.InternetFee + e.OtherFee + e.CommonFees()
		assert.InDelta(t, want, e.TotalAmount, 1e-6)
		assert.Equal(t, models.StatusPending, e.Status)
	}
}

func TestComputeBatchSkipsIncompleteRooms(t *testing.T) {
	result := ComputeBatch(BatchInput{
		Month:  "2026-08",
		Config: defaultConfig(),
		Rooms:  batchRooms(),
		Readings: []ReadingSubmission{
			{RoomID: 1, WaterCurrent: intPtr(150), ElectricCurrent: intPtr(620)},
			{RoomID: 2, WaterCurrent: intPtr(240)}, // electric missing
			// room 3 not submitted at all
		},
	})

	require.Len(t, result.Entries, 1)
	assert.Equal(t, 1, result.Entries[0].RoomID)

	require.Len(t, result.Skipped, 2)
	reasons := map[int]string{}
	for _, s := range result.Skipped {
		reasons[s.RoomID] = s.Reason
	}
	assert.Equal(t, "missing electric reading", reasons[2])
	assert.Equal(t, "no readings submitted", reasons[3])
}

func TestComputeBatchIgnoresInactiveRooms(t *testing.T) {
	rooms := batchRooms()
	rooms[0].IsActive = false

	result := ComputeBatch(BatchInput{
		Month:  "2026-08",
		Config: defaultConfig(),
		Rooms:  rooms,
		Readings: []ReadingSubmission{
			{RoomID: 1, WaterCurrent: intPtr(150), ElectricCurrent: intPtr(620)},
			{RoomID: 2, WaterCurrent: intPtr(240), ElectricCurrent: intPtr(780)},
			{RoomID: 3, WaterCurrent: intPtr(70), ElectricCurrent: intPtr(350)},
		},
	})

	// Inactive rooms are dropped silently, not reported as skipped.
	assert.Len(t, result.Entries, 2)
	assert.Empty(t, result.Skipped)
	for _, e := range result.Entries {
		assert.NotEqual(t, 1, e.RoomID)
	}
}

func TestComputeBatchWarnsOnRollback(t *testing.T) {
	result := ComputeBatch(BatchInput{
		Month:  "2026-08",
		Config: defaultConfig(),
		Rooms:  batchRooms()[:1],
		Readings: []ReadingSubmission{
			// Water 80 is behind the carried-forward 100.
			{RoomID: 1, WaterCurrent: intPtr(80), ElectricCurrent: intPtr(620)},
		},
	})

	require.Len(t, result.Entries, 1)
	assert.Equal(t, 0, result.Entries[0].WaterUsage)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "clamped")
	assert.Contains(t, result.Warnings[0], "101")
}

func TestComputeBatchNoCentralRecord(t *testing.T) {
	result := ComputeBatch(BatchInput{
		Month:  "2026-08",
		Config: defaultConfig(),
		Rooms:  batchRooms()[:1],
		Readings: []ReadingSubmission{
			{RoomID: 1, WaterCurrent: intPtr(150), ElectricCurrent: intPtr(620)},
		},
		Central: nil,
	})

	require.Len(t, result.Entries, 1)
	assert.Nil(t, result.Apportionment)
	assert.Equal(t, 0.0, result.Entries[0].CommonFees())
}

func TestComputeBatchCommonDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.CommonEnabled = false

	result := ComputeBatch(BatchInput{
		Month:  "2026-08",
		Config: cfg,
		Rooms:  batchRooms()[:1],
		Readings: []ReadingSubmission{
			{RoomID: 1, WaterCurrent: intPtr(150), ElectricCurrent: intPtr(620)},
		},
		Central: &models.CentralMeterRecord{Month: "2026-08", WaterCurrent: 500, WaterRate: 5},
	})

	assert.Nil(t, result.Apportionment)
	assert.Equal(t, 0.0, result.Entries[0].CommonFees())
}
