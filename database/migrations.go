package database

import (
	"database/sql"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS admin_users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			number TEXT UNIQUE NOT NULL,
			floor INTEGER DEFAULT 1,
			rent_price REAL NOT NULL DEFAULT 0,
			water_last INTEGER NOT NULL DEFAULT 0,
			electric_last INTEGER NOT NULL DEFAULT 0,
			charge_common_area INTEGER DEFAULT 1,
			water_rate REAL,
			electric_rate REAL,
			notes TEXT,
			is_active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS tenants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			phone TEXT,
			email TEXT,
			citizen_id TEXT,
			deposit REAL DEFAULT 0,
			move_in_date DATE,
			move_out_date DATE,
			notes TEXT,
			is_active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_id) REFERENCES rooms(id)
		)`,

		`CREATE TABLE IF NOT EXISTS system_config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			water_rate REAL NOT NULL DEFAULT 18,
			electric_rate REAL NOT NULL DEFAULT 7,
			trash_fee REAL NOT NULL DEFAULT 0,
			internet_fee REAL NOT NULL DEFAULT 0,
			other_fee REAL NOT NULL DEFAULT 0,
			common_enabled INTEGER DEFAULT 0,
			common_distribution TEXT DEFAULT 'equal',
			common_cap_mode TEXT DEFAULT 'none',
			common_cap_value REAL DEFAULT 0,
			due_day INTEGER DEFAULT 5,
			overdue_after_days INTEGER DEFAULT 7,
			late_after_days INTEGER DEFAULT 21,
			currency TEXT DEFAULT 'THB',
			promptpay_id TEXT DEFAULT '',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS central_meter_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			month TEXT UNIQUE NOT NULL,
			water_last INTEGER NOT NULL DEFAULT 0,
			water_current INTEGER NOT NULL DEFAULT 0,
			electric_last INTEGER NOT NULL DEFAULT 0,
			electric_current INTEGER NOT NULL DEFAULT 0,
			water_rate REAL NOT NULL DEFAULT 0,
			electric_cost REAL NOT NULL DEFAULT 0,
			maintenance_fee REAL NOT NULL DEFAULT 0,
			internet_fee REAL NOT NULL DEFAULT 0,
			trash_fee REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS billing_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			month TEXT NOT NULL,
			rent_price REAL NOT NULL DEFAULT 0,
			water_last INTEGER NOT NULL DEFAULT 0,
			water_current INTEGER NOT NULL DEFAULT 0,
			water_usage INTEGER NOT NULL DEFAULT 0,
			water_rate REAL NOT NULL DEFAULT 0,
			water_cost REAL NOT NULL DEFAULT 0,
			electric_last INTEGER NOT NULL DEFAULT 0,
			electric_current INTEGER NOT NULL DEFAULT 0,
			electric_usage INTEGER NOT NULL DEFAULT 0,
			electric_rate REAL NOT NULL DEFAULT 0,
			electric_cost REAL NOT NULL DEFAULT 0,
			trash_fee REAL NOT NULL DEFAULT 0,
			internet_fee REAL NOT NULL DEFAULT 0,
			other_fee REAL NOT NULL DEFAULT 0,
			common_water_fee REAL NOT NULL DEFAULT 0,
			common_electric_fee REAL NOT NULL DEFAULT 0,
			common_internet_fee REAL NOT NULL DEFAULT 0,
			common_trash_fee REAL NOT NULL DEFAULT 0,
			total_amount REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			status_note TEXT DEFAULT '',
			paid_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (room_id, month),
			FOREIGN KEY (room_id) REFERENCES rooms(id)
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			category TEXT DEFAULT 'general',
			amount REAL NOT NULL DEFAULT 0,
			expense_date DATE NOT NULL,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS admin_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			details TEXT,
			user_id INTEGER,
			ip_address TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_billing_entries_month ON billing_entries(month)`,
		`CREATE INDEX IF NOT EXISTS idx_billing_entries_status ON billing_entries(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tenants_room ON tenants(room_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %v", i+1, err)
		}
	}

	if err := seedAdminUser(db); err != nil {
		return err
	}

	if err := seedSystemConfig(db); err != nil {
		return err
	}

	log.Println("Database migrations completed")
	return nil
}

func seedAdminUser(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM admin_users").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO admin_users (username, password_hash)
		VALUES ('admin', ?)
	`, string(hash))
	if err != nil {
		return err
	}

	log.Println("Created default admin user (admin / admin123)")
	return nil
}

func seedSystemConfig(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM system_config").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err := db.Exec(`INSERT INTO system_config (id) VALUES (1)`)
	if err != nil {
		return err
	}

	log.Println("Created default system config")
	return nil
}
