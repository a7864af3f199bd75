package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dormbase/dorm-billing/backend/crypto"
	"github.com/dormbase/dorm-billing/backend/models"
)

type TenantHandler struct {
	db            *sql.DB
	encryptionKey []byte
}

func NewTenantHandler(db *sql.DB) *TenantHandler {
	encryptionKey, err := crypto.GetEncryptionKey()
	if err != nil {
		log.Printf("WARNING: Failed to get encryption key: %v", err)
		log.Println("WARNING: Citizen IDs will not be encrypted!")
		encryptionKey = nil
	}
	return &TenantHandler{db: db, encryptionKey: encryptionKey}
}

func (h *TenantHandler) logToDatabase(action, details, ip string) {
	_, err := h.db.Exec(`
		INSERT INTO admin_logs (action, details, ip_address)
		VALUES (?, ?, ?)
	`, action, details, ip)
	if err != nil {
		log.Printf("[TENANTS] Failed to write admin log: %v", err)
	}
}

func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT id, room_id, first_name, last_name, COALESCE(phone, ''), COALESCE(email, ''),
		       citizen_id, deposit, COALESCE(move_in_date, ''), move_out_date, notes, is_active,
		       created_at, updated_at
		FROM tenants
	`
	args := []interface{}{}
	if active := r.URL.Query().Get("active"); active == "true" {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY last_name, first_name"

	rows, err := h.db.Query(query, args...)
	if err != nil {
		log.Printf("ERROR: Failed to query tenants: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	tenants := []models.Tenant{}
	for rows.Next() {
		tenant, err := h.scanTenant(rows)
		if err != nil {
			continue
		}
		tenants = append(tenants, tenant)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenants)
}

func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	row := h.db.QueryRow(`
		SELECT id, room_id, first_name, last_name, COALESCE(phone, ''), COALESCE(email, ''),
		       citizen_id, deposit, COALESCE(move_in_date, ''), move_out_date, notes, is_active,
		       created_at, updated_at
		FROM tenants WHERE id = ?
	`, id)

	tenant, err := h.scanTenant(row)
	if err == sql.ErrNoRows {
		http.Error(w, "Tenant not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("ERROR: Failed to query tenant %d: %v", id, err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenant)
}

func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var tenant models.Tenant
	if err := json.NewDecoder(r.Body).Decode(&tenant); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if tenant.FirstName == "" || tenant.LastName == "" {
		http.Error(w, "First and last name are required", http.StatusBadRequest)
		return
	}

	if tenant.RoomID != nil {
		if err := h.roomAvailable(*tenant.RoomID, 0); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
	}

	// Citizen ID is stored encrypted at rest.
	citizenID := tenant.CitizenID
	if citizenID != "" && h.encryptionKey != nil {
		encrypted, err := crypto.Encrypt(citizenID, h.encryptionKey)
		if err != nil {
			log.Printf("ERROR: Failed to encrypt citizen ID: %v", err)
			http.Error(w, "Encryption error", http.StatusInternalServerError)
			return
		}
		citizenID = encrypted
	}

	result, err := h.db.Exec(`
		INSERT INTO tenants (room_id, first_name, last_name, phone, email, citizen_id,
		                     deposit, move_in_date, move_out_date, notes, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, tenant.RoomID, tenant.FirstName, tenant.LastName, tenant.Phone, tenant.Email,
		citizenID, tenant.Deposit, tenant.MoveInDate, tenant.MoveOutDate,
		tenant.Notes, tenant.IsActive)

	if err != nil {
		log.Printf("ERROR: Failed to create tenant: %v", err)
		http.Error(w, "Failed to create tenant", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	tenant.ID = int(id)

	log.Printf("SUCCESS: Created tenant %s %s (ID: %d)", tenant.FirstName, tenant.LastName, tenant.ID)
	h.logToDatabase("Tenant Created",
		fmt.Sprintf("Tenant %s %s created", tenant.FirstName, tenant.LastName), getClientIP(r))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tenant)
}

func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var tenant models.Tenant
	if err := json.NewDecoder(r.Body).Decode(&tenant); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if tenant.RoomID != nil {
		if err := h.roomAvailable(*tenant.RoomID, id); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
	}

	// An empty citizen ID in the request keeps the stored value.
	if tenant.CitizenID != "" && h.encryptionKey != nil {
		encrypted, err := crypto.Encrypt(tenant.CitizenID, h.encryptionKey)
		if err != nil {
			log.Printf("ERROR: Failed to encrypt citizen ID: %v", err)
			http.Error(w, "Encryption error", http.StatusInternalServerError)
			return
		}
		_, err = h.db.Exec("UPDATE tenants SET citizen_id = ? WHERE id = ?", encrypted, id)
		if err != nil {
			http.Error(w, "Failed to update tenant", http.StatusInternalServerError)
			return
		}
	}

	_, err = h.db.Exec(`
		UPDATE tenants SET
			room_id = ?, first_name = ?, last_name = ?, phone = ?, email = ?,
			deposit = ?, move_in_date = ?, move_out_date = ?, notes = ?,
			is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, tenant.RoomID, tenant.FirstName, tenant.LastName, tenant.Phone, tenant.Email,
		tenant.Deposit, tenant.MoveInDate, tenant.MoveOutDate, tenant.Notes,
		tenant.IsActive, id)

	if err != nil {
		log.Printf("ERROR: Failed to update tenant %d: %v", id, err)
		http.Error(w, "Failed to update tenant", http.StatusInternalServerError)
		return
	}

	tenant.ID = id
	log.Printf("SUCCESS: Updated tenant %s %s (ID: %d)", tenant.FirstName, tenant.LastName, id)
	h.logToDatabase("Tenant Updated",
		fmt.Sprintf("Tenant %s %s updated", tenant.FirstName, tenant.LastName), getClientIP(r))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenant)
}

func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec("DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		log.Printf("ERROR: Failed to delete tenant %d: %v", id, err)
		http.Error(w, "Failed to delete tenant", http.StatusInternalServerError)
		return
	}

	log.Printf("SUCCESS: Deleted tenant ID %d", id)
	h.logToDatabase("Tenant Deleted", fmt.Sprintf("Tenant ID %d deleted", id), getClientIP(r))
	w.WriteHeader(http.StatusNoContent)
}

// roomAvailable checks that a room has no other active tenant.
func (h *TenantHandler) roomAvailable(roomID, excludeTenantID int) error {
	var count int
	err := h.db.QueryRow(`
		SELECT COUNT(*) FROM tenants
		WHERE room_id = ? AND is_active = 1 AND id != ?
	`, roomID, excludeTenantID).Scan(&count)
	if err != nil {
		return fmt.Errorf("database error")
	}
	if count > 0 {
		return fmt.Errorf("room already has an active tenant")
	}
	return nil
}

func (h *TenantHandler) scanTenant(row roomScanner) (models.Tenant, error) {
	var t models.Tenant
	var roomID sql.NullInt64
	var citizenID, moveOut, notes sql.NullString
	err := row.Scan(&t.ID, &roomID, &t.FirstName, &t.LastName, &t.Phone, &t.Email,
		&citizenID, &t.Deposit, &t.MoveInDate, &moveOut, &notes, &t.IsActive,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if roomID.Valid {
		id := int(roomID.Int64)
		t.RoomID = &id
	}
	if moveOut.Valid {
		t.MoveOutDate = &moveOut.String
	}
	if notes.Valid {
		t.Notes = notes.String
	}
	if citizenID.Valid && citizenID.String != "" && h.encryptionKey != nil {
		if plain, err := crypto.Decrypt(citizenID.String, h.encryptionKey); err == nil {
			t.CitizenID = plain
		}
	}
	return t, nil
}
