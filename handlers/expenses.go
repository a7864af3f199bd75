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

type ExpenseHandler struct {
	db *sql.DB
}

func NewExpenseHandler(db *sql.DB) *ExpenseHandler {
	return &ExpenseHandler{db: db}
}

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT id, title, category, amount, expense_date, notes, created_at, updated_at
		FROM expenses
	`
	args := []interface{}{}

	// Optional month filter matches on the expense date prefix.
	if month := r.URL.Query().Get("month"); month != "" {
		query += " WHERE expense_date LIKE ?"
		args = append(args, month+"%")
	}
	query += " ORDER BY expense_date DESC, id DESC"

	rows, err := h.db.Query(query, args...)
	if err != nil {
		log.Printf("ERROR: Failed to query expenses: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		var notes sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &e.Category, &e.Amount, &e.ExpenseDate,
			&notes, &e.CreatedAt, &e.UpdatedAt); err != nil {
			continue
		}
		if notes.Valid {
			e.Notes = notes.String
		}
		expenses = append(expenses, e)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(expenses)
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var expense models.Expense
	if err := json.NewDecoder(r.Body).Decode(&expense); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if expense.Title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	if expense.Amount < 0 {
		http.Error(w, "Amount cannot be negative", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO expenses (title, category, amount, expense_date, notes)
		VALUES (?, ?, ?, ?, ?)
	`, expense.Title, expense.Category, expense.Amount, expense.ExpenseDate, expense.Notes)

	if err != nil {
		log.Printf("ERROR: Failed to create expense: %v", err)
		http.Error(w, "Failed to create expense", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	expense.ID = int(id)

	log.Printf("SUCCESS: Created expense %s (%.2f)", expense.Title, expense.Amount)
	h.db.Exec(`
		INSERT INTO admin_logs (action, details, ip_address)
		VALUES ('Expense Created', ?, ?)
	`, fmt.Sprintf("Expense %s (%.2f) created", expense.Title, expense.Amount), getClientIP(r))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(expense)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var expense models.Expense
	if err := json.NewDecoder(r.Body).Decode(&expense); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if expense.Amount < 0 {
		http.Error(w, "Amount cannot be negative", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec(`
		UPDATE expenses SET
			title = ?, category = ?, amount = ?, expense_date = ?, notes = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, expense.Title, expense.Category, expense.Amount, expense.ExpenseDate, expense.Notes, id)

	if err != nil {
		log.Printf("ERROR: Failed to update expense %d: %v", id, err)
		http.Error(w, "Failed to update expense", http.StatusInternalServerError)
		return
	}

	expense.ID = id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(expense)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec("DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		log.Printf("ERROR: Failed to delete expense %d: %v", id, err)
		http.Error(w, "Failed to delete expense", http.StatusInternalServerError)
		return
	}

	log.Printf("SUCCESS: Deleted expense ID %d", id)
	h.db.Exec(`
		INSERT INTO admin_logs (action, details, ip_address)
		VALUES ('Expense Deleted', ?, ?)
	`, fmt.Sprintf("Expense ID %d deleted", id), getClientIP(r))
	w.WriteHeader(http.StatusNoContent)
}
