package models

import "time"

type AdminUser struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Room struct {
	ID               int        `json:"id"`
	Number           string     `json:"number"`
	Floor            int        `json:"floor"`
	RentPrice        float64    `json:"rent_price"`
	WaterLast        int        `json:"water_last"`
	ElectricLast     int        `json:"electric_last"`
	ChargeCommonArea bool       `json:"charge_common_area"`
	WaterRate        *float64   `json:"water_rate"`
	ElectricRate     *float64   `json:"electric_rate"`
	Notes            string     `json:"notes"`
	IsActive         bool       `json:"is_active"`
	Tenant           *Tenant    `json:"tenant,omitempty"`
	LastBilledMonth  *string    `json:"last_billed_month,omitempty"`
	LastBilledAt     *time.Time `json:"last_billed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type Tenant struct {
	ID          int       `json:"id"`
	RoomID      *int      `json:"room_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	CitizenID   string    `json:"citizen_id,omitempty"`
	Deposit     float64   `json:"deposit"`
	MoveInDate  string    `json:"move_in_date"`
	MoveOutDate *string   `json:"move_out_date"`
	Notes       string    `json:"notes"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SystemConfig is the single settings row (id = 1). It is always
// loaded explicitly and handed to the billing package; nothing reads
// it from ambient state.
type SystemConfig struct {
	ID                 int       `json:"id"`
	WaterRate          float64   `json:"water_rate"`
	ElectricRate       float64   `json:"electric_rate"`
	TrashFee           float64   `json:"trash_fee"`
	InternetFee        float64   `json:"internet_fee"`
	OtherFee           float64   `json:"other_fee"`
	CommonEnabled      bool      `json:"common_enabled"`
	CommonDistribution string    `json:"common_distribution"`
	CommonCapMode      string    `json:"common_cap_mode"`
	CommonCapValue     float64   `json:"common_cap_value"`
	DueDay             int       `json:"due_day"`
	OverdueAfterDays   int       `json:"overdue_after_days"`
	LateAfterDays      int       `json:"late_after_days"`
	Currency           string    `json:"currency"`
	PromptPayID        string    `json:"promptpay_id"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Common-area distribution modes.
const (
	DistributionEqual        = "equal"
	DistributionProportional = "proportional"
)

// Common-area cap modes.
const (
	CapNone       = "none"
	CapPercentage = "percentage"
	CapFixed      = "fixed"
)

// Billing entry payment statuses.
const (
	StatusPending  = "pending"
	StatusReview   = "review"
	StatusPaid     = "paid"
	StatusOverdue  = "overdue"
	StatusLate     = "late"
	StatusRejected = "rejected"
)

// BillingEntry is one room's bill for one month. Readings and charges
// are frozen at creation; only the payment status moves afterwards.
type BillingEntry struct {
	ID                int        `json:"id"`
	RoomID            int        `json:"room_id"`
	RoomNumber        string     `json:"room_number,omitempty"`
	Month             string     `json:"month"`
	RentPrice         float64    `json:"rent_price"`
	WaterLast         int        `json:"water_last"`
	WaterCurrent      int        `json:"water_current"`
	WaterUsage        int        `json:"water_usage"`
	WaterRate         float64    `json:"water_rate"`
	WaterCost         float64    `json:"water_cost"`
	ElectricLast      int        `json:"electric_last"`
	ElectricCurrent   int        `json:"electric_current"`
	ElectricUsage     int        `json:"electric_usage"`
	ElectricRate      float64    `json:"electric_rate"`
	ElectricCost      float64    `json:"electric_cost"`
	TrashFee          float64    `json:"trash_fee"`
	InternetFee       float64    `json:"internet_fee"`
	OtherFee          float64    `json:"other_fee"`
	CommonWaterFee    float64    `json:"common_water_fee"`
	CommonElectricFee float64    `json:"common_electric_fee"`
	CommonInternetFee float64    `json:"common_internet_fee"`
	CommonTrashFee    float64    `json:"common_trash_fee"`
	TotalAmount       float64    `json:"total_amount"`
	Status            string     `json:"status"`
	StatusNote        string     `json:"status_note"`
	PaidAt            *time.Time `json:"paid_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CommonFees returns the sum of the four common-area sub-fees.
func (e BillingEntry) CommonFees() float64 {
	return e.CommonWaterFee + e.CommonElectricFee + e.CommonInternetFee + e.CommonTrashFee
}

// CentralMeterRecord is the building-wide meter entry for one month.
// Records are never updated; a correction is a delete plus re-create.
type CentralMeterRecord struct {
	ID              int       `json:"id"`
	Month           string    `json:"month"`
	WaterLast       int       `json:"water_last"`
	WaterCurrent    int       `json:"water_current"`
	ElectricLast    int       `json:"electric_last"`
	ElectricCurrent int       `json:"electric_current"`
	WaterRate       float64   `json:"water_rate"`
	ElectricCost    float64   `json:"electric_cost"`
	MaintenanceFee  float64   `json:"maintenance_fee"`
	InternetFee     float64   `json:"internet_fee"`
	TrashFee        float64   `json:"trash_fee"`
	CreatedAt       time.Time `json:"created_at"`
}

func (c *CentralMeterRecord) WaterUsage() int {
	return c.WaterCurrent - c.WaterLast
}

func (c *CentralMeterRecord) ElectricUsage() int {
	return c.ElectricCurrent - c.ElectricLast
}

type Expense struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	ExpenseDate string    `json:"expense_date"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AdminLog struct {
	ID        int       `json:"id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	UserID    *int      `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

// MonthlySummary is the utility profit/loss report for one month,
// recomputed on every request from the stored entries.
type MonthlySummary struct {
	Month           string  `json:"month"`
	EntryCount      int     `json:"entry_count"`
	WaterUsage      int     `json:"water_usage"`
	ElectricUsage   int     `json:"electric_usage"`
	WaterRevenue    float64 `json:"water_revenue"`
	ElectricRevenue float64 `json:"electric_revenue"`
	WaterCost       float64 `json:"water_cost"`
	ElectricCost    float64 `json:"electric_cost"`
	WaterProfit     float64 `json:"water_profit"`
	ElectricProfit  float64 `json:"electric_profit"`
	TotalRevenue    float64 `json:"total_revenue"`
	TotalCost       float64 `json:"total_cost"`
	TotalProfit     float64 `json:"total_profit"`
}

type DashboardStats struct {
	TotalRooms     int     `json:"total_rooms"`
	OccupiedRooms  int     `json:"occupied_rooms"`
	ActiveTenants  int     `json:"active_tenants"`
	PendingBills   int     `json:"pending_bills"`
	OverdueBills   int     `json:"overdue_bills"`
	MonthBilled    float64 `json:"month_billed"`
	MonthCollected float64 `json:"month_collected"`
	MonthExpenses  float64 `json:"month_expenses"`
	YearBilled     float64 `json:"year_billed"`
	YearCollected  float64 `json:"year_collected"`
	YearExpenses   float64 `json:"year_expenses"`
}
