package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/dormbase/dorm-billing/backend/models"
)

// StatusScheduler ages unpaid billing entries: pending bills past the
// grace window become overdue, overdue bills past the late window
// become late. Payment is due on the configured day of the month
// after the billing month.
type StatusScheduler struct {
	db             *sql.DB
	billingService *BillingService
	stopChan       chan bool
}

func NewStatusScheduler(db *sql.DB, billingService *BillingService) *StatusScheduler {
	return &StatusScheduler{
		db:             db,
		billingService: billingService,
		stopChan:       make(chan bool),
	}
}

// Start the scheduler
func (s *StatusScheduler) Start() {
	log.Println("Billing status scheduler started")

	// Run immediately on startup to catch anything missed while down
	go s.ageUnpaidEntries()

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ageUnpaidEntries()
		case <-s.stopChan:
			log.Println("Billing status scheduler stopped")
			return
		}
	}
}

// Stop the scheduler
func (s *StatusScheduler) Stop() {
	s.stopChan <- true
}

func (s *StatusScheduler) ageUnpaidEntries() {
	cfg, err := s.billingService.LoadConfig()
	if err != nil {
		log.Printf("ERROR: Status scheduler failed to load config: %v", err)
		return
	}

	now := time.Now()

	rows, err := s.db.Query(`
		SELECT id, room_id, month, status FROM billing_entries
		WHERE status IN (?, ?)
	`, models.StatusPending, models.StatusOverdue)
	if err != nil {
		log.Printf("ERROR: Status scheduler query failed: %v", err)
		return
	}
	defer rows.Close()

	type transition struct {
		id     int
		roomID int
		month  string
		from   string
		to     string
	}
	transitions := []transition{}

	for rows.Next() {
		var id, roomID int
		var month, status string
		if err := rows.Scan(&id, &roomID, &month, &status); err != nil {
			continue
		}

		due, err := dueDate(month, cfg.DueDay)
		if err != nil {
			log.Printf("WARNING: Entry %d has unparseable month %q", id, month)
			continue
		}

		switch status {
		case models.StatusPending:
			if now.After(due.AddDate(0, 0, cfg.OverdueAfterDays)) {
				transitions = append(transitions, transition{id, roomID, month, status, models.StatusOverdue})
			}
		case models.StatusOverdue:
			if now.After(due.AddDate(0, 0, cfg.LateAfterDays)) {
				transitions = append(transitions, transition{id, roomID, month, status, models.StatusLate})
			}
		}
	}

	if len(transitions) == 0 {
		return
	}

	for _, t := range transitions {
		_, err := s.db.Exec(`
			UPDATE billing_entries SET status = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND status = ?
		`, t.to, t.id, t.from)
		if err != nil {
			log.Printf("ERROR: Failed to mark entry %d %s: %v", t.id, t.to, err)
			continue
		}

		s.db.Exec(`
			INSERT INTO admin_logs (action, details, ip_address)
			VALUES (?, ?, 'system')
		`, "billing_status_aged",
			fmt.Sprintf("entry %d (room %d, %s): %s -> %s", t.id, t.roomID, t.month, t.from, t.to))
	}

	log.Printf("Status scheduler: aged %d unpaid entries", len(transitions))
}

// dueDate returns the payment due date for a billing month: the
// configured day of the following month.
func dueDate(month string, dueDay int) (time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, err
	}
	next := t.AddDate(0, 1, 0)
	return time.Date(next.Year(), next.Month(), dueDay, 0, 0, 0, 0, time.Local), nil
}
