package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dormbase/dorm-billing/backend/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens via the token query parameter before upgrade;
		// the dashboard may be served from a different origin.
		return true
	},
}

// LiveLogHandler streams new admin log entries to the dashboard over a
// websocket, polling the table and pushing anything past the last seen
// ID.
type LiveLogHandler struct {
	db *sql.DB
}

func NewLiveLogHandler(db *sql.DB) *LiveLogHandler {
	return &LiveLogHandler{db: db}
}

func (h *LiveLogHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var lastID int
	h.db.QueryRow("SELECT COALESCE(MAX(id), 0) FROM admin_logs").Scan(&lastID)

	// Reader goroutine just drains control frames and signals close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			entries, maxID, err := h.logsSince(lastID)
			if err != nil {
				log.Printf("ERROR: Live log query failed: %v", err)
				continue
			}
			for _, entry := range entries {
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(entry); err != nil {
					return
				}
			}
			if maxID > lastID {
				lastID = maxID
			}
		}
	}
}

func (h *LiveLogHandler) logsSince(lastID int) ([]models.AdminLog, int, error) {
	rows, err := h.db.Query(`
		SELECT id, action, COALESCE(details, ''), user_id, COALESCE(ip_address, ''), created_at
		FROM admin_logs
		WHERE id > ?
		ORDER BY id ASC
	`, lastID)
	if err != nil {
		return nil, lastID, err
	}
	defer rows.Close()

	logs := []models.AdminLog{}
	maxID := lastID
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
		if l.ID > maxID {
			maxID = l.ID
		}
		logs = append(logs, l)
	}
	return logs, maxID, rows.Err()
}
