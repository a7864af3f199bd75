package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/dormbase/dorm-billing/backend/billing"
	"github.com/dormbase/dorm-billing/backend/models"
)

type BillingService struct {
	db *sql.DB
}

func NewBillingService(db *sql.DB) *BillingService {
	return &BillingService{db: db}
}

// BulkBillingReport is what a bulk run returns to the operator:
// persisted entries plus everything that did not make it in.
type BulkBillingReport struct {
	Month         string                   `json:"month"`
	Created       int                      `json:"created"`
	Skipped       []billing.SkippedRoom    `json:"skipped"`
	Errors        []string                 `json:"errors"`
	Entries       []models.BillingEntry    `json:"entries"`
	Apportionment *billing.ApportionResult `json:"apportionment,omitempty"`
}

// GenerateMonthlyBills runs bulk billing for one month. All reads
// happen up front, the calculation core runs on plain records, and
// the results are written in a single transaction together with the
// rooms' carried-forward readings.
func (bs *BillingService) GenerateMonthlyBills(month string, readings []billing.ReadingSubmission) (*BulkBillingReport, error) {
	log.Printf("=== BULK BILLING START: %s, %d submissions ===", month, len(readings))

	cfg, err := bs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %v", err)
	}

	rooms, err := bs.loadActiveRooms()
	if err != nil {
		return nil, fmt.Errorf("failed to load rooms: %v", err)
	}

	central, err := bs.LoadCentralRecord(month)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load central meter record: %v", err)
	}
	if err == sql.ErrNoRows {
		central = nil
		if cfg.CommonEnabled {
			log.Printf("WARNING: Common-area billing enabled but no central meter record for %s", month)
		}
	}

	report := &BulkBillingReport{Month: month, Skipped: []billing.SkippedRoom{}, Errors: []string{}}

	// Rooms already billed this month are skipped before computation
	// so the batch never double-bills.
	billed, err := bs.billedRoomIDs(month)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing entries: %v", err)
	}

	billable := []models.Room{}
	for _, room := range rooms {
		if billed[room.ID] {
			report.Skipped = append(report.Skipped, billing.SkippedRoom{
				RoomID: room.ID, RoomNumber: room.Number,
				Reason: "already billed for " + month,
			})
			continue
		}
		billable = append(billable, room)
	}

	batch := billing.ComputeBatch(billing.BatchInput{
		Month:    month,
		Config:   cfg,
		Rooms:    billable,
		Readings: readings,
		Central:  central,
	})

	report.Skipped = append(report.Skipped, batch.Skipped...)
	report.Errors = append(report.Errors, batch.Warnings...)
	report.Apportionment = batch.Apportionment

	for _, warning := range batch.Warnings {
		log.Printf("WARNING: %s", warning)
	}

	if len(batch.Entries) == 0 {
		log.Printf("=== BULK BILLING COMPLETE: nothing to bill (%d skipped) ===", len(report.Skipped))
		return report, nil
	}

	entries, err := bs.persistEntries(batch.Entries)
	if err != nil {
		return nil, err
	}

	report.Entries = entries
	report.Created = len(entries)

	log.Printf("=== BULK BILLING COMPLETE: %d created, %d skipped, %d warnings ===",
		report.Created, len(report.Skipped), len(report.Errors))
	return report, nil
}

// GenerateSingleBill bills one room outside a bulk run, typically a
// room whose readings arrived late. Single bills never carry a
// common-area share; the apportionment needs the whole month's batch.
func (bs *BillingService) GenerateSingleBill(roomID int, month string, waterCurrent, electricCurrent *int) (*models.BillingEntry, error) {
	cfg, err := bs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %v", err)
	}

	room, err := bs.loadRoom(roomID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("room %d not found", roomID)
	}
	if err != nil {
		return nil, err
	}

	billed, err := bs.billedRoomIDs(month)
	if err != nil {
		return nil, err
	}
	if billed[roomID] {
		return nil, fmt.Errorf("room %s already billed for %s", room.Number, month)
	}

	sub := billing.ReadingSubmission{RoomID: roomID, WaterCurrent: waterCurrent, ElectricCurrent: electricCurrent}
	if !sub.Ready() {
		return nil, fmt.Errorf("room %s is missing meter readings", room.Number)
	}

	if *waterCurrent < room.WaterLast {
		log.Printf("WARNING: room %s water reading %d below last %d, usage clamped to 0",
			room.Number, *waterCurrent, room.WaterLast)
	}
	if *electricCurrent < room.ElectricLast {
		log.Printf("WARNING: room %s electric reading %d below last %d, usage clamped to 0",
			room.Number, *electricCurrent, room.ElectricLast)
	}

	entry := billing.ComposeBill(billing.BillInput{
		Room:    room,
		Month:   month,
		Reading: sub,
		Rates:   billing.ResolveRates(cfg, room),
	})

	entries, err := bs.persistEntries([]models.BillingEntry{entry})
	if err != nil {
		return nil, err
	}

	log.Printf("SUCCESS: Generated single bill for room %s, %s: %.2f", room.Number, month, entries[0].TotalAmount)
	return &entries[0], nil
}

// persistEntries writes billing entries and advances each room's
// carried-forward readings in one transaction.
func (bs *BillingService) persistEntries(entries []models.BillingEntry) ([]models.BillingEntry, error) {
	tx, err := bs.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	saved := make([]models.BillingEntry, 0, len(entries))
	for _, e := range entries {
		result, err := tx.Exec(`
			INSERT INTO billing_entries (
				room_id, month, rent_price,
				water_last, water_current, water_usage, water_rate, water_cost,
				electric_last, electric_current, electric_usage, electric_rate, electric_cost,
				trash_fee, internet_fee, other_fee,
				common_water_fee, common_electric_fee, common_internet_fee, common_trash_fee,
				total_amount, status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.RoomID, e.Month, e.RentPrice,
			e.WaterLast, e.WaterCurrent, e.WaterUsage, e.WaterRate, e.WaterCost,
			e.ElectricLast, e.ElectricCurrent, e.ElectricUsage, e.ElectricRate, e.ElectricCost,
			e.TrashFee, e.InternetFee, e.OtherFee,
			e.CommonWaterFee, e.CommonElectricFee, e.CommonInternetFee, e.CommonTrashFee,
			e.TotalAmount, e.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to insert entry for room %d: %v", e.RoomID, err)
		}

		id, _ := result.LastInsertId()
		e.ID = int(id)
		e.CreatedAt = time.Now()

		// Current readings become next month's last readings.
		_, err = tx.Exec(`
			UPDATE rooms SET water_last = ?, electric_last = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, e.WaterCurrent, e.ElectricCurrent, e.RoomID)
		if err != nil {
			return nil, fmt.Errorf("failed to update room %d readings: %v", e.RoomID, err)
		}

		saved = append(saved, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit billing batch: %v", err)
	}
	return saved, nil
}

// DeleteEntry removes a billing entry and rolls the room's
// carried-forward readings back to the entry's last values. Only the
// room's most recent entry may be deleted; removing an older one
// would corrupt the reading chain.
func (bs *BillingService) DeleteEntry(id int) error {
	var e models.BillingEntry
	err := bs.db.QueryRow(`
		SELECT id, room_id, month, water_last, electric_last
		FROM billing_entries WHERE id = ?
	`, id).Scan(&e.ID, &e.RoomID, &e.Month, &e.WaterLast, &e.ElectricLast)
	if err != nil {
		return err
	}

	var newer int
	err = bs.db.QueryRow(`
		SELECT COUNT(*) FROM billing_entries
		WHERE room_id = ? AND month > ?
	`, e.RoomID, e.Month).Scan(&newer)
	if err != nil {
		return err
	}
	if newer > 0 {
		return fmt.Errorf("room has newer entries; delete those first")
	}

	tx, err := bs.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM billing_entries WHERE id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		UPDATE rooms SET water_last = ?, electric_last = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, e.WaterLast, e.ElectricLast, e.RoomID); err != nil {
		return err
	}

	return tx.Commit()
}

// MonthlySummary reconciles a month's billed revenue against the
// central meter's actual cost.
func (bs *BillingService) MonthlySummary(month string) (*models.MonthlySummary, error) {
	central, err := bs.LoadCentralRecord(month)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no central meter record for %s", month)
	}
	if err != nil {
		return nil, err
	}

	entries, err := bs.LoadEntries(month, 0, "")
	if err != nil {
		return nil, err
	}

	summary := billing.Reconcile(*central, entries)
	return &summary, nil
}

func (bs *BillingService) LoadConfig() (models.SystemConfig, error) {
	var cfg models.SystemConfig
	var enabled int
	err := bs.db.QueryRow(`
		SELECT id, water_rate, electric_rate, trash_fee, internet_fee, other_fee,
		       common_enabled, common_distribution, common_cap_mode, common_cap_value,
		       due_day, overdue_after_days, late_after_days, currency, promptpay_id, updated_at
		FROM system_config WHERE id = 1
	`).Scan(&cfg.ID, &cfg.WaterRate, &cfg.ElectricRate, &cfg.TrashFee, &cfg.InternetFee,
		&cfg.OtherFee, &enabled, &cfg.CommonDistribution, &cfg.CommonCapMode,
		&cfg.CommonCapValue, &cfg.DueDay, &cfg.OverdueAfterDays, &cfg.LateAfterDays,
		&cfg.Currency, &cfg.PromptPayID, &cfg.UpdatedAt)
	cfg.CommonEnabled = enabled == 1
	return cfg, err
}

func (bs *BillingService) LoadCentralRecord(month string) (*models.CentralMeterRecord, error) {
	var c models.CentralMeterRecord
	err := bs.db.QueryRow(`
		SELECT id, month, water_last, water_current, electric_last, electric_current,
		       water_rate, electric_cost, maintenance_fee, internet_fee, trash_fee, created_at
		FROM central_meter_records WHERE month = ?
	`, month).Scan(&c.ID, &c.Month, &c.WaterLast, &c.WaterCurrent, &c.ElectricLast,
		&c.ElectricCurrent, &c.WaterRate, &c.ElectricCost, &c.MaintenanceFee,
		&c.InternetFee, &c.TrashFee, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadEntries fetches billing entries filtered by month, room and
// status; zero values disable a filter.
func (bs *BillingService) LoadEntries(month string, roomID int, status string) ([]models.BillingEntry, error) {
	query := `
		SELECT e.id, e.room_id, r.number, e.month, e.rent_price,
		       e.water_last, e.water_current, e.water_usage, e.water_rate, e.water_cost,
		       e.electric_last, e.electric_current, e.electric_usage, e.electric_rate, e.electric_cost,
		       e.trash_fee, e.internet_fee, e.other_fee,
		       e.common_water_fee, e.common_electric_fee, e.common_internet_fee, e.common_trash_fee,
		       e.total_amount, e.status, e.status_note, e.paid_at, e.created_at, e.updated_at
		FROM billing_entries e
		JOIN rooms r ON e.room_id = r.id
		WHERE 1=1
	`
	args := []interface{}{}
	if month != "" {
		query += " AND e.month = ?"
		args = append(args, month)
	}
	if roomID > 0 {
		query += " AND e.room_id = ?"
		args = append(args, roomID)
	}
	if status != "" {
		query += " AND e.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY e.month DESC, r.number ASC"

	rows, err := bs.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.BillingEntry{}
	for rows.Next() {
		var e models.BillingEntry
		var paidAt sql.NullTime
		err := rows.Scan(&e.ID, &e.RoomID, &e.RoomNumber, &e.Month, &e.RentPrice,
			&e.WaterLast, &e.WaterCurrent, &e.WaterUsage, &e.WaterRate, &e.WaterCost,
			&e.ElectricLast, &e.ElectricCurrent, &e.ElectricUsage, &e.ElectricRate, &e.ElectricCost,
			&e.TrashFee, &e.InternetFee, &e.OtherFee,
			&e.CommonWaterFee, &e.CommonElectricFee, &e.CommonInternetFee, &e.CommonTrashFee,
			&e.TotalAmount, &e.Status, &e.StatusNote, &paidAt, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if paidAt.Valid {
			e.PaidAt = &paidAt.Time
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LoadEntry fetches one billing entry by ID.
func (bs *BillingService) LoadEntry(id int) (*models.BillingEntry, error) {
	var e models.BillingEntry
	var paidAt sql.NullTime
	err := bs.db.QueryRow(`
		SELECT e.id, e.room_id, r.number, e.month, e.rent_price,
		       e.water_last, e.water_current, e.water_usage, e.water_rate, e.water_cost,
		       e.electric_last, e.electric_current, e.electric_usage, e.electric_rate, e.electric_cost,
		       e.trash_fee, e.internet_fee, e.other_fee,
		       e.common_water_fee, e.common_electric_fee, e.common_internet_fee, e.common_trash_fee,
		       e.total_amount, e.status, e.status_note, e.paid_at, e.created_at, e.updated_at
		FROM billing_entries e
		JOIN rooms r ON e.room_id = r.id
		WHERE e.id = ?
	`, id).Scan(&e.ID, &e.RoomID, &e.RoomNumber, &e.Month, &e.RentPrice,
		&e.WaterLast, &e.WaterCurrent, &e.WaterUsage, &e.WaterRate, &e.WaterCost,
		&e.ElectricLast, &e.ElectricCurrent, &e.ElectricUsage, &e.ElectricRate, &e.ElectricCost,
		&e.TrashFee, &e.InternetFee, &e.OtherFee,
		&e.CommonWaterFee, &e.CommonElectricFee, &e.CommonInternetFee, &e.CommonTrashFee,
		&e.TotalAmount, &e.Status, &e.StatusNote, &paidAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		e.PaidAt = &paidAt.Time
	}
	return &e, nil
}

func (bs *BillingService) billedRoomIDs(month string) (map[int]bool, error) {
	rows, err := bs.db.Query("SELECT room_id FROM billing_entries WHERE month = ?", month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	billed := map[int]bool{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		billed[id] = true
	}
	return billed, rows.Err()
}

func (bs *BillingService) loadActiveRooms() ([]models.Room, error) {
	rows, err := bs.db.Query(`
		SELECT id, number, floor, rent_price, water_last, electric_last,
		       charge_common_area, water_rate, electric_rate, notes, is_active,
		       created_at, updated_at
		FROM rooms WHERE is_active = 1
		ORDER BY number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := []models.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (bs *BillingService) loadRoom(id int) (models.Room, error) {
	row := bs.db.QueryRow(`
		SELECT id, number, floor, rent_price, water_last, electric_last,
		       charge_common_area, water_rate, electric_rate, notes, is_active,
		       created_at, updated_at
		FROM rooms WHERE id = ?
	`, id)
	return scanRoom(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoom(row rowScanner) (models.Room, error) {
	var room models.Room
	var chargeCommon, isActive int
	var waterRate, electricRate sql.NullFloat64
	var notes sql.NullString
	err := row.Scan(&room.ID, &room.Number, &room.Floor, &room.RentPrice,
		&room.WaterLast, &room.ElectricLast, &chargeCommon,
		&waterRate, &electricRate, &notes, &isActive,
		&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return room, err
	}
	room.ChargeCommonArea = chargeCommon == 1
	room.IsActive = isActive == 1
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
