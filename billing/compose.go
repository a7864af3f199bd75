package billing

import (
	"github.com/dormbase/dorm-billing/backend/models"
)

// CommonShare is one room's slice of the common-area costs.
type CommonShare struct {
	Water    float64 `json:"water"`
	Electric float64 `json:"electric"`
	Internet float64 `json:"internet"`
	Trash    float64 `json:"trash"`
}

func (c CommonShare) Total() float64 {
	return c.Water + c.Electric + c.Internet + c.Trash
}

// BillInput carries everything ComposeBill needs. The submission must
// be Ready; callers filter incomplete rooms beforehand.
type BillInput struct {
	Room    models.Room
	Month   string
	Reading ReadingSubmission
	Rates   Rates
	Common  CommonShare
}

// ComposeBill builds the billing entry for one room: metered usage
// times rate, plus rent, fixed fees and the room's common-area share.
// Amounts stay in float currency units; rounding happens at display.
func ComposeBill(in BillInput) models.BillingEntry {
	waterCurrent := in.Room.WaterLast
	if in.Reading.WaterCurrent != nil {
		waterCurrent = *in.Reading.WaterCurrent
	}
	electricCurrent := in.Room.ElectricLast
	if in.Reading.ElectricCurrent != nil {
		electricCurrent = *in.Reading.ElectricCurrent
	}

	waterUsage := Usage(in.Reading.WaterCurrent, in.Room.WaterLast)
	electricUsage := Usage(in.Reading.ElectricCurrent, in.Room.ElectricLast)

	waterCost := float64(waterUsage) * in.Rates.Water
	electricCost := float64(electricUsage) * in.Rates.Electric

	entry := models.BillingEntry{
		RoomID:            in.Room.ID,
		RoomNumber:        in.Room.Number,
		Month:             in.Month,
		RentPrice:         in.Room.RentPrice,
		WaterLast:         in.Room.WaterLast,
		WaterCurrent:      waterCurrent,
		WaterUsage:        waterUsage,
		WaterRate:         in.Rates.Water,
		WaterCost:         waterCost,
		ElectricLast:      in.Room.ElectricLast,
		ElectricCurrent:   electricCurrent,
		ElectricUsage:     electricUsage,
		ElectricRate:      in.Rates.Electric,
		ElectricCost:      electricCost,
		TrashFee:          in.Rates.TrashFee,
		InternetFee:       in.Rates.InternetFee,
		OtherFee:          in.Rates.OtherFee,
		CommonWaterFee:    in.Common.Water,
		CommonElectricFee: in.Common.Electric,
		CommonInternetFee: in.Common.Internet,
		CommonTrashFee:    in.Common.Trash,
		Status:            models.StatusPending,
	}

	entry.TotalAmount = entry.RentPrice + waterCost + electricCost +
		entry.TrashFee + entry.InternetFee + entry.OtherFee + entry.CommonFees()

	return entry
}
