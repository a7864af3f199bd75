package billing

import (
	"fmt"

	"github.com/dormbase/dorm-billing/backend/models"
)

// SkippedRoom explains why a room was left out of a bulk run.
type SkippedRoom struct {
	RoomID     int    `json:"room_id"`
	RoomNumber string `json:"room_number"`
	Reason     string `json:"reason"`
}

// BatchInput is everything a bulk billing run needs, fetched up front
// by the caller. Central may be nil when no central meter record
// exists for the month; common-area charges are then zero.
type BatchInput struct {
	Month    string
	Config   models.SystemConfig
	Rooms    []models.Room
	Readings []ReadingSubmission
	Central  *models.CentralMeterRecord
}

// BatchResult is the computed outcome of a bulk run, before any
// persistence. Warnings flag suspicious-but-billable data such as
// clamped meter rollbacks.
type BatchResult struct {
	Entries       []models.BillingEntry `json:"entries"`
	Skipped       []SkippedRoom         `json:"skipped"`
	Warnings      []string              `json:"warnings"`
	Apportionment *ApportionResult      `json:"apportionment,omitempty"`
}

// ComputeBatch runs the full pipeline for one month: readiness
// filtering, meter deltas, common-area apportionment, then per-room
// bill composition. Rooms without complete readings are skipped and
// reported, never billed at zero.
func ComputeBatch(in BatchInput) BatchResult {
	result := BatchResult{
		Entries:  []models.BillingEntry{},
		Skipped:  []SkippedRoom{},
		Warnings: []string{},
	}

	submissions := make(map[int]ReadingSubmission, len(in.Readings))
	for _, r := range in.Readings {
		submissions[r.RoomID] = r
	}

	type readyRoom struct {
		room    models.Room
		reading ReadingSubmission
		rates   Rates
	}
	ready := []readyRoom{}
	usages := []RoomUsage{}

	for _, room := range in.Rooms {
		if !room.IsActive {
			continue
		}

		sub, ok := submissions[room.ID]
		if !ok {
			result.Skipped = append(result.Skipped, SkippedRoom{
				RoomID: room.ID, RoomNumber: room.Number,
				Reason: "no readings submitted",
			})
			continue
		}
		if !sub.Ready() {
			reason := "missing water reading"
			if sub.WaterCurrent != nil {
				reason = "missing electric reading"
			} else if sub.ElectricCurrent == nil {
				reason = "missing meter readings"
			}
			result.Skipped = append(result.Skipped, SkippedRoom{
				RoomID: room.ID, RoomNumber: room.Number, Reason: reason,
			})
			continue
		}

		if *sub.WaterCurrent < room.WaterLast {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"room %s: water reading %d below last %d, usage clamped to 0",
				room.Number, *sub.WaterCurrent, room.WaterLast))
		}
		if *sub.ElectricCurrent < room.ElectricLast {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"room %s: electric reading %d below last %d, usage clamped to 0",
				room.Number, *sub.ElectricCurrent, room.ElectricLast))
		}

		ready = append(ready, readyRoom{
			room:    room,
			reading: sub,
			rates:   ResolveRates(in.Config, room),
		})
		usages = append(usages, RoomUsage{
			RoomID:   room.ID,
			Water:    Usage(sub.WaterCurrent, room.WaterLast),
			Electric: Usage(sub.ElectricCurrent, room.ElectricLast),
			Eligible: room.ChargeCommonArea,
		})
	}

	shares := map[int]CommonShare{}
	if in.Central != nil && in.Config.CommonEnabled {
		apportionment := Apportion(*in.Central, usages, PolicyFrom(in.Config))
		result.Apportionment = &apportionment
		shares = apportionment.Shares
	}

	for _, r := range ready {
		entry := ComposeBill(BillInput{
			Room:    r.room,
			Month:   in.Month,
			Reading: r.reading,
			Rates:   r.rates,
			Common:  shares[r.room.ID],
		})
		result.Entries = append(result.Entries, entry)
	}

	return result
}
