package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/dormbase/dorm-billing/backend/models"
)

type DashboardHandler struct {
	db *sql.DB
}

func NewDashboardHandler(db *sql.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// GetStats aggregates the landing-page numbers: occupancy, unpaid
// bills, and billed/collected/expense totals for the current month and
// year.
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var stats models.DashboardStats

	now := time.Now()
	month := now.Format("2006-01")
	year := now.Format("2006")

	h.db.QueryRow("SELECT COUNT(*) FROM rooms WHERE is_active = 1").Scan(&stats.TotalRooms)
	h.db.QueryRow(`
		SELECT COUNT(DISTINCT room_id) FROM tenants
		WHERE room_id IS NOT NULL AND is_active = 1
	`).Scan(&stats.OccupiedRooms)
	h.db.QueryRow("SELECT COUNT(*) FROM tenants WHERE is_active = 1").Scan(&stats.ActiveTenants)

	h.db.QueryRow("SELECT COUNT(*) FROM billing_entries WHERE status = ?",
		models.StatusPending).Scan(&stats.PendingBills)
	h.db.QueryRow("SELECT COUNT(*) FROM billing_entries WHERE status IN (?, ?)",
		models.StatusOverdue, models.StatusLate).Scan(&stats.OverdueBills)

	h.db.QueryRow(`
		SELECT COALESCE(SUM(total_amount), 0) FROM billing_entries WHERE month = ?
	`, month).Scan(&stats.MonthBilled)
	h.db.QueryRow(`
		SELECT COALESCE(SUM(total_amount), 0) FROM billing_entries
		WHERE month = ? AND status = ?
	`, month, models.StatusPaid).Scan(&stats.MonthCollected)
	h.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE expense_date LIKE ?
	`, month+"%").Scan(&stats.MonthExpenses)

	h.db.QueryRow(`
		SELECT COALESCE(SUM(total_amount), 0) FROM billing_entries WHERE month LIKE ?
	`, year+"%").Scan(&stats.YearBilled)
	h.db.QueryRow(`
		SELECT COALESCE(SUM(total_amount), 0) FROM billing_entries
		WHERE month LIKE ? AND status = ?
	`, year+"%", models.StatusPaid).Scan(&stats.YearCollected)
	h.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE expense_date LIKE ?
	`, year+"%").Scan(&stats.YearExpenses)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// GetLogs returns the most recent admin log entries, newest first.
func (h *DashboardHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	rows, err := h.db.Query(`
		SELECT id, action, COALESCE(details, ''), user_id, COALESCE(ip_address, ''), created_at
		FROM admin_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		log.Printf("ERROR: Failed to query admin logs: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	logs := []models.AdminLog{}
	for rows.Next() {
		var l models.AdminLog
		var userID sql.NullInt64
		if err := rows.Scan(&l.ID, &l.Action, &l.Details, &userID, &l.IPAddress, &l.CreatedAt); err != nil {
			continue
		}
		if userID.Valid {
			id := int(userID.Int64)
			l.UserID = &id
		}
		logs = append(logs, l)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}
