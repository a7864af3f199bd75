package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/dormbase/dorm-billing/backend/billing"
	"github.com/dormbase/dorm-billing/backend/models"
	"github.com/dormbase/dorm-billing/backend/services"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// statusTransitions is the allowed payment workflow. Paid and rejected
// are terminal for the handler; the scheduler only ages pending and
// overdue entries.
var statusTransitions = map[string][]string{
	models.StatusPending: {models.StatusReview, models.StatusPaid, models.StatusOverdue, models.StatusLate},
	models.StatusReview:  {models.StatusPaid, models.StatusRejected},
	models.StatusOverdue: {models.StatusReview, models.StatusPaid, models.StatusLate},
	models.StatusLate:    {models.StatusReview, models.StatusPaid},
}

type BillingHandler struct {
	db             *sql.DB
	billingService *services.BillingService
	pdfGenerator   *services.PDFGenerator
}

func NewBillingHandler(db *sql.DB, billingService *services.BillingService, pdfGenerator *services.PDFGenerator) *BillingHandler {
	return &BillingHandler{
		db:             db,
		billingService: billingService,
		pdfGenerator:   pdfGenerator,
	}
}

func (h *BillingHandler) logToDatabase(action, details, ip string) {
	_, err := h.db.Exec(`
		INSERT INTO admin_logs (action, details, ip_address)
		VALUES (?, ?, ?)
	`, action, details, ip)
	if err != nil {
		log.Printf("[BILLING] Failed to write admin log: %v", err)
	}
}

type generateBillsRequest struct {
	Month    string                      `json:"month"`
	Readings []billing.ReadingSubmission `json:"readings"`
}

// GenerateBills runs bulk billing for a month from operator-submitted
// meter readings.
func (h *BillingHandler) GenerateBills(w http.ResponseWriter, r *http.Request) {
	var req generateBillsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !monthPattern.MatchString(req.Month) {
		http.Error(w, "Month must be in YYYY-MM format", http.StatusBadRequest)
		return
	}
	if len(req.Readings) == 0 {
		http.Error(w, "No readings submitted", http.StatusBadRequest)
		return
	}

	report, err := h.billingService.GenerateMonthlyBills(req.Month, req.Readings)
	if err != nil {
		log.Printf("ERROR: Bulk billing failed for %s: %v", req.Month, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.logToDatabase("Bulk Billing",
		fmt.Sprintf("Generated %d bills for %s (%d skipped)", report.Created, req.Month, len(report.Skipped)),
		getClientIP(r))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

type generateSingleRequest struct {
	RoomID          int    `json:"room_id"`
	Month           string `json:"month"`
	WaterCurrent    *int   `json:"water_current"`
	ElectricCurrent *int   `json:"electric_current"`
}

// GenerateSingle bills one room outside a bulk run.
func (h *BillingHandler) GenerateSingle(w http.ResponseWriter, r *http.Request) {
	var req generateSingleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !monthPattern.MatchString(req.Month) {
		http.Error(w, "Month must be in YYYY-MM format", http.StatusBadRequest)
		return
	}

	entry, err := h.billingService.GenerateSingleBill(req.RoomID, req.Month, req.WaterCurrent, req.ElectricCurrent)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logToDatabase("Single Bill",
		fmt.Sprintf("Generated bill for room %d, %s", req.RoomID, req.Month), getClientIP(r))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

// ListEntries returns billing entries filtered by month, room_id and
// status query parameters.
func (h *BillingHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	status := r.URL.Query().Get("status")
	roomID := 0
	if v := r.URL.Query().Get("room_id"); v != "" {
		roomID, _ = strconv.Atoi(v)
	}

	entries, err := h.billingService.LoadEntries(month, roomID, status)
	if err != nil {
		log.Printf("ERROR: Failed to load billing entries: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (h *BillingHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	entry, err := h.billingService.LoadEntry(id)
	if err == sql.ErrNoRows {
		http.Error(w, "Billing entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// UpdateStatus moves a billing entry through the payment workflow.
func (h *BillingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	entry, err := h.billingService.LoadEntry(id)
	if err == sql.ErrNoRows {
		http.Error(w, "Billing entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if !transitionAllowed(entry.Status, req.Status) {
		http.Error(w, fmt.Sprintf("Cannot change status from %s to %s", entry.Status, req.Status),
			http.StatusConflict)
		return
	}

	var paidAt interface{}
	if req.Status == models.StatusPaid {
		now := time.Now()
		paidAt = now
	}

	_, err = h.db.Exec(`
		UPDATE billing_entries
		SET status = ?, status_note = ?, paid_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, req.Status, req.Note, paidAt, id)
	if err != nil {
		log.Printf("ERROR: Failed to update entry %d status: %v", id, err)
		http.Error(w, "Failed to update status", http.StatusInternalServerError)
		return
	}

	log.Printf("SUCCESS: Entry %d (room %s) status %s -> %s", id, entry.RoomNumber, entry.Status, req.Status)
	h.logToDatabase("Billing Status Changed",
		fmt.Sprintf("Entry %d (room %s, %s): %s -> %s", id, entry.RoomNumber, entry.Month, entry.Status, req.Status),
		getClientIP(r))

	updated, err := h.billingService.LoadEntry(id)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// DeleteEntry removes a billing entry and rolls back the room's
// carried-forward readings.
func (h *BillingHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	err = h.billingService.DeleteEntry(id)
	if err == sql.ErrNoRows {
		http.Error(w, "Billing entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	log.Printf("SUCCESS: Deleted billing entry %d", id)
	h.logToDatabase("Billing Entry Deleted", fmt.Sprintf("Entry %d deleted", id), getClientIP(r))
	w.WriteHeader(http.StatusNoContent)
}

// DownloadPDF renders the entry as an invoice and streams it back.
func (h *BillingHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	entry, err := h.billingService.LoadEntry(id)
	if err == sql.ErrNoRows {
		http.Error(w, "Billing entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	cfg, err := h.billingService.LoadConfig()
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	tenant := h.tenantForRoom(entry.RoomID)

	filename, err := h.pdfGenerator.GenerateBillPDF(entry, tenant, cfg)
	if err != nil {
		log.Printf("ERROR: Failed to generate invoice PDF for entry %d: %v", id, err)
		http.Error(w, "Failed to generate PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	http.ServeFile(w, r, filepath.Join(h.pdfGenerator.InvoiceDir(), filename))
}

// GetSummary reconciles a month's billed revenue against actual cost.
func (h *BillingHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	month := mux.Vars(r)["month"]
	if !monthPattern.MatchString(month) {
		http.Error(w, "Month must be in YYYY-MM format", http.StatusBadRequest)
		return
	}

	summary, err := h.billingService.MonthlySummary(month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (h *BillingHandler) tenantForRoom(roomID int) *models.Tenant {
	var t models.Tenant
	err := h.db.QueryRow(`
		SELECT id, first_name, last_name, COALESCE(phone, ''), COALESCE(email, '')
		FROM tenants WHERE room_id = ? AND is_active = 1
		LIMIT 1
	`, roomID).Scan(&t.ID, &t.FirstName, &t.LastName, &t.Phone, &t.Email)
	if err != nil {
		return nil
	}
	return &t
}
