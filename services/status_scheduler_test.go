package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dormbase/dorm-billing/backend/models"
)

func TestDueDate(t *testing.T) {
	// Payment for the August bill is due on the configured day of
	// September.
	due, err := dueDate("2026-08", 5)
	require.NoError(t, err)
	assert.Equal(t, 2026, due.Year())
	assert.Equal(t, time.September, due.Month())
	assert.Equal(t, 5, due.Day())

	// December rolls into January of the next year.
	due, err = dueDate("2026-12", 10)
	require.NoError(t, err)
	assert.Equal(t, 2027, due.Year())
	assert.Equal(t, time.January, due.Month())

	_, err = dueDate("not-a-month", 5)
	assert.Error(t, err)
}

func TestAgeUnpaidEntries(t *testing.T) {
	db := testDB(t)
	bs := NewBillingService(db)
	scheduler := NewStatusScheduler(db, bs)

	room := seedRoom(t, db, "101", 3000, 100, 500)

	// Bill a month far enough in the past that both windows have
	// elapsed.
	oldMonth := time.Now().AddDate(0, -4, 0).Format("2006-01")
	entry, err := bs.GenerateSingleBill(room, oldMonth, intPtr(150), intPtr(620))
	require.NoError(t, err)

	scheduler.ageUnpaidEntries()

	var status string
	require.NoError(t, db.QueryRow(
		"SELECT status FROM billing_entries WHERE id = ?", entry.ID,
	).Scan(&status))
	assert.Equal(t, models.StatusOverdue, status)

	// A second pass moves the now-overdue entry to late.
	scheduler.ageUnpaidEntries()
	require.NoError(t, db.QueryRow(
		"SELECT status FROM billing_entries WHERE id = ?", entry.ID,
	).Scan(&status))
	assert.Equal(t, models.StatusLate, status)

	// The transitions are audited.
	var logged int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM admin_logs WHERE action = 'billing_status_aged'",
	).Scan(&logged))
	assert.Equal(t, 2, logged)
}

func TestAgeUnpaidEntriesLeavesCurrentMonthAlone(t *testing.T) {
	db := testDB(t)
	bs := NewBillingService(db)
	scheduler := NewStatusScheduler(db, bs)

	room := seedRoom(t, db, "101", 3000, 100, 500)

	// The current month's due date has not arrived yet.
	month := time.Now().Format("2006-01")
	entry, err := bs.GenerateSingleBill(room, month, intPtr(150), intPtr(620))
	require.NoError(t, err)

	scheduler.ageUnpaidEntries()

	var status string
	require.NoError(t, db.QueryRow(
		"SELECT status FROM billing_entries WHERE id = ?", entry.ID,
	).Scan(&status))
	assert.Equal(t, models.StatusPending, status)
}

func TestAgeUnpaidEntriesIgnoresPaid(t *testing.T) {
	db := testDB(t)
	bs := NewBillingService(db)
	scheduler := NewStatusScheduler(db, bs)

	room := seedRoom(t, db, "101", 3000, 100, 500)
	oldMonth := time.Now().AddDate(0, -4, 0).Format("2006-01")
	entry, err := bs.GenerateSingleBill(room, oldMonth, intPtr(150), intPtr(620))
	require.NoError(t, err)

	_, err = db.Exec("UPDATE billing_entries SET status = ? WHERE id = ?", models.StatusPaid, entry.ID)
	require.NoError(t, err)

	scheduler.ageUnpaidEntries()

	var status string
	require.NoError(t, db.QueryRow(
		"SELECT status FROM billing_entries WHERE id = ?", entry.ID,
	).Scan(&status))
	assert.Equal(t, models.StatusPaid, status)
}
