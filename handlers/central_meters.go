package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dormbase/dorm-billing/backend/models"
)

// CentralMeterHandler manages the building-wide meter records that the
// common-area apportionment runs against. Records are immutable: a
// wrong month is deleted and re-entered, never edited in place.
type CentralMeterHandler struct {
	db *sql.DB
}

func NewCentralMeterHandler(db *sql.DB) *CentralMeterHandler {
	return &CentralMeterHandler{db: db}
}

func (h *CentralMeterHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, month, water_last, water_current, electric_last, electric_current,
		       water_rate, electric_cost, maintenance_fee, internet_fee, trash_fee, created_at
		FROM central_meter_records
		ORDER BY month DESC
	`)
	if err != nil {
		log.Printf("ERROR: Failed to query central meter records: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	records := []models.CentralMeterRecord{}
	for rows.Next() {
		var c models.CentralMeterRecord
		if err := rows.Scan(&c.ID, &c.Month, &c.WaterLast, &c.WaterCurrent,
			&c.ElectricLast, &c.ElectricCurrent, &c.WaterRate, &c.ElectricCost,
			&c.MaintenanceFee, &c.InternetFee, &c.TrashFee, &c.CreatedAt); err != nil {
			continue
		}
		records = append(records, c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *CentralMeterHandler) GetByMonth(w http.ResponseWriter, r *http.Request) {
	month := mux.Vars(r)["month"]

	var c models.CentralMeterRecord
	err := h.db.QueryRow(`
		SELECT id, month, water_last, water_current, electric_last, electric_current,
		       water_rate, electric_cost, maintenance_fee, internet_fee, trash_fee, created_at
		FROM central_meter_records WHERE month = ?
	`, month).Scan(&c.ID, &c.Month, &c.WaterLast, &c.WaterCurrent,
		&c.ElectricLast, &c.ElectricCurrent, &c.WaterRate, &c.ElectricCost,
		&c.MaintenanceFee, &c.InternetFee, &c.TrashFee, &c.CreatedAt)

	if err == sql.ErrNoRows {
		http.Error(w, "No central meter record for "+month, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

func (h *CentralMeterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var record models.CentralMeterRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if record.Month == "" {
		http.Error(w, "Month is required", http.StatusBadRequest)
		return
	}

	// The last readings chain from the previous record. The very first
	// record must carry them explicitly; after that they are inherited
	// and the submitted values are ignored.
	var prev models.CentralMeterRecord
	err := h.db.QueryRow(`
		SELECT water_current, electric_current FROM central_meter_records
		WHERE month < ? ORDER BY month DESC LIMIT 1
	`, record.Month).Scan(&prev.WaterCurrent, &prev.ElectricCurrent)

	switch err {
	case nil:
		record.WaterLast = prev.WaterCurrent
		record.ElectricLast = prev.ElectricCurrent
	case sql.ErrNoRows:
		if record.WaterLast < 0 || record.ElectricLast < 0 {
			http.Error(w, "First record requires starting meter readings", http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if record.WaterCurrent < record.WaterLast || record.ElectricCurrent < record.ElectricLast {
		http.Error(w, "Current readings cannot be below last readings", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO central_meter_records (month, water_last, water_current,
			electric_last, electric_current, water_rate, electric_cost,
			maintenance_fee, internet_fee, trash_fee)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.Month, record.WaterLast, record.WaterCurrent,
		record.ElectricLast, record.ElectricCurrent, record.WaterRate,
		record.ElectricCost, record.MaintenanceFee, record.InternetFee, record.TrashFee)

	if err != nil {
		log.Printf("ERROR: Failed to create central meter record: %v", err)
		http.Error(w, "Failed to create record (month may already exist)", http.StatusConflict)
		return
	}

	id, _ := result.LastInsertId()
	record.ID = int(id)

	log.Printf("SUCCESS: Created central meter record for %s", record.Month)
	h.db.Exec(`
		INSERT INTO admin_logs (action, details, ip_address)
		VALUES ('Central Meter Recorded', ?, ?)
	`, fmt.Sprintf("Central meter record for %s created", record.Month), getClientIP(r))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}

func (h *CentralMeterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var month string
	err = h.db.QueryRow("SELECT month FROM central_meter_records WHERE id = ?", id).Scan(&month)
	if err == sql.ErrNoRows {
		http.Error(w, "Record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	// Deleting a record under a later one would break the reading
	// chain; corrections run newest-first.
	var newer int
	h.db.QueryRow("SELECT COUNT(*) FROM central_meter_records WHERE month > ?", month).Scan(&newer)
	if newer > 0 {
		http.Error(w, "Newer records exist; delete those first", http.StatusConflict)
		return
	}

	_, err = h.db.Exec("DELETE FROM central_meter_records WHERE id = ?", id)
	if err != nil {
		http.Error(w, "Failed to delete record", http.StatusInternalServerError)
		return
	}

	log.Printf("SUCCESS: Deleted central meter record for %s", month)
	h.db.Exec(`
		INSERT INTO admin_logs (action, details, ip_address)
		VALUES ('Central Meter Deleted', ?, ?)
	`, fmt.Sprintf("Central meter record for %s deleted", month), getClientIP(r))
	w.WriteHeader(http.StatusNoContent)
}
