package services

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dormbase/dorm-billing/backend/billing"
	"github.com/dormbase/dorm-billing/backend/database"
	"github.com/dormbase/dorm-billing/backend/models"
)

func intPtr(v int) *int { return &v }

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.InitDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func seedRoom(t *testing.T, db *sql.DB, number string, rent float64, waterLast, electricLast int) int {
	t.Helper()
	result, err := db.Exec(`
		INSERT INTO rooms (number, rent_price, water_last, electric_last, charge_common_area, is_active)
		VALUES (?, ?, ?, ?, 1, 1)
	`, number, rent, waterLast, electricLast)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return int(id)
}

func seedCentralRecord(t *testing.T, db *sql.DB, month string, waterCurrent int, waterRate float64, electricCurrent int, electricCost float64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO central_meter_records (month, water_current, water_rate, electric_current, electric_cost)
		VALUES (?, ?, ?, ?, ?)
	`, month, waterCurrent, waterRate, electricCurrent, electricCost)
	require.NoError(t, err)
}

func enableCommonBilling(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec("UPDATE system_config SET common_enabled = 1 WHERE id = 1")
	require.NoError(t, err)
}

func TestGenerateMonthlyBills(t *testing.T) {
	db := testDB(t)
	bs := NewBillingService(db)

	room1 := seedRoom(t, db, "101", 3000, 100, 500)
	room2 := seedRoom(t, db, "102", 3200, 200, 700)
	enableCommonBilling(t, db)
	seedCentralRecord(t, db, "2026-08", 200, 5, 500, 2500)

	readings := []billing.ReadingSubmission{
		{RoomID: room1, WaterCurrent: intPtr(150), ElectricCurrent: intPtr(620)},
		{RoomID: room2, WaterCurrent: intPtr(240), ElectricCurrent: intPtr(780)},
	}

	report, err := bs.GenerateMonthlyBills("2026-08", readings)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Empty(t, report.Skipped)
	require.NotNil(t, report.Apportionment)

	// Carried-forward readings advanced to the new currents.
	var waterLast, electricLast int
	require.NoError(t, db.QueryRow(
		"SELECT water_last, electric_last FROM rooms WHERE id = ?", room1,
	).Scan(&waterLast, &electricLast))
	assert.Equal(t, 150, waterLast)
	assert.Equal(t, 620, electricLast)

	// Re-running the same month skips every room instead of double
	// billing.
	report2, err := bs.GenerateMonthlyBills("2026-08", readings)
	require.NoError(t, err)
	assert.Equal(t, 0, report2.Created)
	assert.Len(t, report2.Skipped, 2)
	for _, s := range report2.Skipped {
		assert.Contains(t, s.Reason, "already billed")
	}
}

func TestGenerateMonthlyBillsWithoutCentralRecord(t *testing.T) {
	db := testDB(t)
	bs := NewBillingService(db)
	room := seedRoom(t, db, "101", 3000, 100, 500)

	report, err := bs.GenerateMonthlyBills("2026-08", []billing.ReadingSubmission{
		{RoomID: room, WaterCurrent: intPtr(150), ElectricCurrent: intPtr(620)},
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Created)
	assert.Nil(t, report.Apportionment)
	assert.Equal(t, 0.0, report.Entries[0].CommonFees())
}

func TestGenerateSingleBill(t *testing.T) {
	db := testDB(t)
	bs := NewBillingService(db)
	room := seedRoom(t, db, "101", 3000, 100, 500)

	entry, err := bs.GenerateSingleBill(room, "2026-08", intPtr(150), intPtr(620))
	require.NoError(t, err)
	assert.Equal(t, 50, entry.WaterUsage)
	assert.Equal(t, 900.0, entry.WaterCost) // 50 x default rate 18
	// Single bills never carry a common-area share.
	assert.Equal(t, 0.0, entry.CommonFees())

	_, err = bs.GenerateSingleBill(room, "2026-08", intPtr(160), intPtr(630))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already billed")
}

func TestGenerateSingleBillMissingReadings(t *testing.T) {
	db := testDB(t)
	bs := NewBillingService(db)
	room := seedRoom(t, db, "101", 3000, 100, 500)

	_, err := bs.GenerateSingleBill(room, "2026-08", intPtr(150), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing meter readings")
}

func TestDeleteEntryRollsBackReadings(t *testing.T) {
	db := testDB(t)
	bs := NewBillingService(db)
	room := seedRoom(t, db, "101", 3000, 100, 500)

	entry, err := bs.GenerateSingleBill(room, "2026-08", intPtr(150), intPtr(620))
	require.NoError(t, err)

	require.NoError(t, bs.DeleteEntry(entry.ID))

	var waterLast, electricLast int
	require.NoError(t, db.QueryRow(
		"SELECT water_last, electric_last FROM rooms WHERE id = ?", room,
	).Scan(&waterLast, &electricLast))
	assert.Equal(t, 100, waterLast)
	assert.Equal(t, 500, electricLast)
}

func TestDeleteEntryRefusesWhenNewerExists(t *testing.T) {
	db := testDB(t)
	bs := NewBillingService(db)
	room := seedRoom(t, db, "101", 3000, 100, 500)

	older, err := bs.GenerateSingleBill(room, "2026-07", intPtr(150), intPtr(620))
	require.NoError(t, err)
	_, err = bs.GenerateSingleBill(room, "2026-08", intPtr(200), intPtr(700))
	require.NoError(t, err)

	err = bs.DeleteEntry(older.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer entries")
}

func TestMonthlySummary(t *testing.T) {
	db := testDB(t)
	bs := NewBillingService(db)

	room1 := seedRoom(t, db, "101", 3000, 100, 500)
	room2 := seedRoom(t, db, "102", 3200, 200, 700)
	seedCentralRecord(t, db, "2026-08", 120, 5, 250, 1000)

	_, err := bs.GenerateMonthlyBills("2026-08", []billing.ReadingSubmission{
		{RoomID: room1, WaterCurrent: intPtr(140), ElectricCurrent: intPtr(600)},
		{RoomID: room2, WaterCurrent: intPtr(260), ElectricCurrent: intPtr(800)},
	})
	require.NoError(t, err)

	summary, err := bs.MonthlySummary("2026-08")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.EntryCount)
	assert.Equal(t, 100, summary.WaterUsage)    // 40 + 60
	assert.Equal(t, 200, summary.ElectricUsage) // 100 + 100
	assert.InDelta(t, 100*18.0, summary.WaterRevenue, 1e-6)
	assert.InDelta(t, 120*5.0, summary.WaterCost, 1e-6)
	assert.InDelta(t, 1000.0, summary.ElectricCost, 1e-6)
	assert.InDelta(t, summary.TotalRevenue-summary.TotalCost, summary.TotalProfit, 1e-6)
}

func TestMonthlySummaryNoCentralRecord(t *testing.T) {
	db := testDB(t)
	bs := NewBillingService(db)

	_, err := bs.MonthlySummary("2026-08")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no central meter record")
}

func TestLoadEntriesFilters(t *testing.T) {
	db := testDB(t)
	bs := NewBillingService(db)

	room1 := seedRoom(t, db, "101", 3000, 100, 500)
	room2 := seedRoom(t, db, "102", 3200, 200, 700)

	_, err := bs.GenerateSingleBill(room1, "2026-07", intPtr(120), intPtr(550))
	require.NoError(t, err)
	_, err = bs.GenerateSingleBill(room1, "2026-08", intPtr(150), intPtr(620))
	require.NoError(t, err)
	_, err = bs.GenerateSingleBill(room2, "2026-08", intPtr(240), intPtr(780))
	require.NoError(t, err)

	all, err := bs.LoadEntries("", 0, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byMonth, err := bs.LoadEntries("2026-08", 0, "")
	require.NoError(t, err)
	assert.Len(t, byMonth, 2)

	byRoom, err := bs.LoadEntries("", room1, "")
	require.NoError(t, err)
	assert.Len(t, byRoom, 2)

	pending, err := bs.LoadEntries("2026-08", room2, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "102", pending[0].RoomNumber)
}
