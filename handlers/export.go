package handlers

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/dormbase/dorm-billing/backend/services"
)

// ExportHandler streams billing entries and expenses as CSV for
// spreadsheet use.
type ExportHandler struct {
	db             *sql.DB
	billingService *services.BillingService
}

func NewExportHandler(db *sql.DB, billingService *services.BillingService) *ExportHandler {
	return &ExportHandler{db: db, billingService: billingService}
}

func (h *ExportHandler) ExportBilling(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	status := r.URL.Query().Get("status")
	roomID := 0
	if v := r.URL.Query().Get("room_id"); v != "" {
		roomID, _ = strconv.Atoi(v)
	}

	entries, err := h.billingService.LoadEntries(month, roomID, status)
	if err != nil {
		log.Printf("ERROR: Billing export query failed: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	filename := "billing_entries.csv"
	if month != "" {
		filename = fmt.Sprintf("billing_entries_%s.csv", month)
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{
		"Month", "Room", "Rent",
		"Water Last", "Water Current", "Water Usage", "Water Rate", "Water Cost",
		"Electric Last", "Electric Current", "Electric Usage", "Electric Rate", "Electric Cost",
		"Trash Fee", "Internet Fee", "Other Fee",
		"Common Water", "Common Electric", "Common Internet", "Common Trash",
		"Total", "Status", "Paid At",
	})

	for _, e := range entries {
		paidAt := ""
		if e.PaidAt != nil {
			paidAt = e.PaidAt.Format("2006-01-02 15:04")
		}
		writer.Write([]string{
			e.Month, e.RoomNumber,
			fmt.Sprintf("%.2f", e.RentPrice),
			strconv.Itoa(e.WaterLast), strconv.Itoa(e.WaterCurrent), strconv.Itoa(e.WaterUsage),
			fmt.Sprintf("%.2f", e.WaterRate), fmt.Sprintf("%.2f", e.WaterCost),
			strconv.Itoa(e.ElectricLast), strconv.Itoa(e.ElectricCurrent), strconv.Itoa(e.ElectricUsage),
			fmt.Sprintf("%.2f", e.ElectricRate), fmt.Sprintf("%.2f", e.ElectricCost),
			fmt.Sprintf("%.2f", e.TrashFee), fmt.Sprintf("%.2f", e.InternetFee), fmt.Sprintf("%.2f", e.OtherFee),
			fmt.Sprintf("%.2f", e.CommonWaterFee), fmt.Sprintf("%.2f", e.CommonElectricFee),
			fmt.Sprintf("%.2f", e.CommonInternetFee), fmt.Sprintf("%.2f", e.CommonTrashFee),
			fmt.Sprintf("%.2f", e.TotalAmount), e.Status, paidAt,
		})
	}

	log.Printf("Exported %d billing entries to CSV", len(entries))
}

func (h *ExportHandler) ExportExpenses(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT title, category, amount, expense_date, COALESCE(notes, '')
		FROM expenses
	`
	args := []interface{}{}
	month := r.URL.Query().Get("month")
	if month != "" {
		query += " WHERE expense_date LIKE ?"
		args = append(args, month+"%")
	}
	query += " ORDER BY expense_date DESC"

	rows, err := h.db.Query(query, args...)
	if err != nil {
		log.Printf("ERROR: Expense export query failed: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	filename := "expenses.csv"
	if month != "" {
		filename = fmt.Sprintf("expenses_%s.csv", month)
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"Title", "Category", "Amount", "Date", "Notes"})

	count := 0
	for rows.Next() {
		var title, category, date, notes string
		var amount float64
		if err := rows.Scan(&title, &category, &amount, &date, &notes); err != nil {
			continue
		}
		writer.Write([]string{title, category, fmt.Sprintf("%.2f", amount), date, notes})
		count++
	}

	log.Printf("Exported %d expenses to CSV", count)
}
