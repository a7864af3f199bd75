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

type RoomHandler struct {
	db *sql.DB
}

func NewRoomHandler(db *sql.DB) *RoomHandler {
	return &RoomHandler{db: db}
}

func (h *RoomHandler) logToDatabase(action, details, ip string) {
	_, err := h.db.Exec(`
		INSERT INTO admin_logs (action, details, ip_address)
		VALUES (?, ?, ?)
	`, action, details, ip)
	if err != nil {
		log.Printf("[ROOMS] Failed to write admin log: %v", err)
	}
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, number, floor, rent_price, water_last, electric_last,
		       charge_common_area, water_rate, electric_rate, notes, is_active,
		       created_at, updated_at
		FROM rooms
		ORDER BY number
	`)
	if err != nil {
		log.Printf("ERROR: Failed to query rooms: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	rooms := []models.Room{}
	for rows.Next() {
		room, err := scanRoomRow(rows)
		if err != nil {
			continue
		}
		rooms = append(rooms, room)
	}

	// Attach the active tenant and the latest billed month per room
	for i := range rooms {
		if tenant, err := h.activeTenant(rooms[i].ID); err == nil {
			rooms[i].Tenant = tenant
		}
		var month sql.NullString
		h.db.QueryRow(`
			SELECT month FROM billing_entries
			WHERE room_id = ? ORDER BY month DESC LIMIT 1
		`, rooms[i].ID).Scan(&month)
		if month.Valid {
			rooms[i].LastBilledMonth = &month.String
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rooms)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	row := h.db.QueryRow(`
		SELECT id, number, floor, rent_price, water_last, electric_last,
		       charge_common_area, water_rate, electric_rate, notes, is_active,
		       created_at, updated_at
		FROM rooms WHERE id = ?
	`, id)

	room, err := scanRoomRow(row)
	if err == sql.ErrNoRows {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("ERROR: Failed to query room %d: %v", id, err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if tenant, err := h.activeTenant(room.ID); err == nil {
		room.Tenant = tenant
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(room)
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var room models.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if room.Number == "" {
		http.Error(w, "Room number is required", http.StatusBadRequest)
		return
	}
	if room.WaterLast < 0 || room.ElectricLast < 0 {
		http.Error(w, "Meter readings cannot be negative", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO rooms (number, floor, rent_price, water_last, electric_last,
		                   charge_common_area, water_rate, electric_rate, notes, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, room.Number, room.Floor, room.RentPrice, room.WaterLast, room.ElectricLast,
		room.ChargeCommonArea, room.WaterRate, room.ElectricRate, room.Notes, room.IsActive)

	if err != nil {
		log.Printf("ERROR: Failed to create room: %v", err)
		http.Error(w, "Failed to create room (number may already exist)", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	room.ID = int(id)

	log.Printf("SUCCESS: Created room %s (ID: %d)", room.Number, room.ID)
	h.logToDatabase("Room Created", fmt.Sprintf("Room %s created", room.Number), getClientIP(r))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(room)
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var room models.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if room.WaterLast < 0 || room.ElectricLast < 0 {
		http.Error(w, "Meter readings cannot be negative", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec(`
		UPDATE rooms SET
			number = ?, floor = ?, rent_price = ?, water_last = ?, electric_last = ?,
			charge_common_area = ?, water_rate = ?, electric_rate = ?, notes = ?,
			is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, room.Number, room.Floor, room.RentPrice, room.WaterLast, room.ElectricLast,
		room.ChargeCommonArea, room.WaterRate, room.ElectricRate, room.Notes,
		room.IsActive, id)

	if err != nil {
		log.Printf("ERROR: Failed to update room %d: %v", id, err)
		http.Error(w, "Failed to update room", http.StatusInternalServerError)
		return
	}

	room.ID = id
	log.Printf("SUCCESS: Updated room %s (ID: %d)", room.Number, id)
	h.logToDatabase("Room Updated", fmt.Sprintf("Room %s updated", room.Number), getClientIP(r))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(room)
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var billCount int
	h.db.QueryRow("SELECT COUNT(*) FROM billing_entries WHERE room_id = ?", id).Scan(&billCount)
	if billCount > 0 {
		http.Error(w, "Room has billing history; deactivate it instead", http.StatusConflict)
		return
	}

	_, err = h.db.Exec("DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		log.Printf("ERROR: Failed to delete room %d: %v", id, err)
		http.Error(w, "Failed to delete room", http.StatusInternalServerError)
		return
	}

	log.Printf("SUCCESS: Deleted room ID %d", id)
	h.logToDatabase("Room Deleted", fmt.Sprintf("Room ID %d deleted", id), getClientIP(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) activeTenant(roomID int) (*models.Tenant, error) {
	var t models.Tenant
	var moveOut sql.NullString
	err := h.db.QueryRow(`
		SELECT id, room_id, first_name, last_name, COALESCE(phone, ''), COALESCE(email, ''),
		       deposit, COALESCE(move_in_date, ''), move_out_date, is_active
		FROM tenants WHERE room_id = ? AND is_active = 1
		LIMIT 1
	`, roomID).Scan(&t.ID, &t.RoomID, &t.FirstName, &t.LastName, &t.Phone, &t.Email,
		&t.Deposit, &t.MoveInDate, &moveOut, &t.IsActive)
	if err != nil {
		return nil, err
	}
	if moveOut.Valid {
		t.MoveOutDate = &moveOut.String
	}
	return &t, nil
}

type roomScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoomRow(row roomScanner) (models.Room, error) {
	var room models.Room
	var waterRate, electricRate sql.NullFloat64
	var notes sql.NullString
	err := row.Scan(&room.ID, &room.Number, &room.Floor, &room.RentPrice,
		&room.WaterLast, &room.ElectricLast, &room.ChargeCommonArea,
		&waterRate, &electricRate, &notes, &room.IsActive,
		&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return room, err
	}
	if waterRate.Valid {
		room.WaterRate = &waterRate.Float64
	}
	if electricRate.Valid {
		room.ElectricRate = &electricRate.Float64
	}
	if notes.Valid {
		room.Notes = notes.String
	}
	return room, nil
}
