package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"github.com/dormbase/dorm-billing/backend/models"
)

type SettingsHandler struct {
	db *sql.DB
}

func NewSettingsHandler(db *sql.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	var cfg models.SystemConfig
	err := h.db.QueryRow(`
		SELECT id, water_rate, electric_rate, trash_fee, internet_fee, other_fee,
		       common_enabled, common_distribution, common_cap_mode, common_cap_value,
		       due_day, overdue_after_days, late_after_days, currency, promptpay_id, updated_at
		FROM system_config WHERE id = 1
	`).Scan(&cfg.ID, &cfg.WaterRate, &cfg.ElectricRate, &cfg.TrashFee, &cfg.InternetFee,
		&cfg.OtherFee, &cfg.CommonEnabled, &cfg.CommonDistribution, &cfg.CommonCapMode,
		&cfg.CommonCapValue, &cfg.DueDay, &cfg.OverdueAfterDays, &cfg.LateAfterDays,
		&cfg.Currency, &cfg.PromptPayID, &cfg.UpdatedAt)

	if err != nil {
		log.Printf("ERROR: Failed to load system config: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var cfg models.SystemConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if cfg.WaterRate < 0 || cfg.ElectricRate < 0 {
		http.Error(w, "Rates cannot be negative", http.StatusBadRequest)
		return
	}
	switch cfg.CommonDistribution {
	case models.DistributionEqual, models.DistributionProportional:
	default:
		http.Error(w, "Invalid common_distribution", http.StatusBadRequest)
		return
	}
	switch cfg.CommonCapMode {
	case models.CapNone, models.CapPercentage, models.CapFixed:
	default:
		http.Error(w, "Invalid common_cap_mode", http.StatusBadRequest)
		return
	}
	if cfg.DueDay < 1 || cfg.DueDay > 28 {
		http.Error(w, "due_day must be between 1 and 28", http.StatusBadRequest)
		return
	}

	_, err := h.db.Exec(`
		UPDATE system_config SET
			water_rate = ?, electric_rate = ?, trash_fee = ?, internet_fee = ?, other_fee = ?,
			common_enabled = ?, common_distribution = ?, common_cap_mode = ?, common_cap_value = ?,
			due_day = ?, overdue_after_days = ?, late_after_days = ?,
			currency = ?, promptpay_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, cfg.WaterRate, cfg.ElectricRate, cfg.TrashFee, cfg.InternetFee, cfg.OtherFee,
		cfg.CommonEnabled, cfg.CommonDistribution, cfg.CommonCapMode, cfg.CommonCapValue,
		cfg.DueDay, cfg.OverdueAfterDays, cfg.LateAfterDays,
		cfg.Currency, cfg.PromptPayID)

	if err != nil {
		log.Printf("ERROR: Failed to update system config: %v", err)
		http.Error(w, "Failed to update settings", http.StatusInternalServerError)
		return
	}

	log.Println("SUCCESS: System settings updated")
	h.db.Exec(`
		INSERT INTO admin_logs (action, details, ip_address)
		VALUES ('Settings Updated', 'System configuration updated', ?)
	`, getClientIP(r))

	cfg.ID = 1
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}
