// Package billing is the calculation core of the dormitory billing
// system: meter deltas, rate resolution, per-room bill composition,
// common-area apportionment and monthly reconciliation. It performs
// no I/O and reads no ambient state; every calculation receives its
// inputs explicitly and reports abnormal conditions in its results
// instead of returning errors.
package billing

// Usage returns the billable units between two meter readings.
// A nil current reading means the meter has not been keyed for the
// month. A current reading behind the carried-forward value (meter
// reset or operator typo) is clamped to zero so a bad key-in never
// produces a negative charge; callers surface the clamp as a warning.
func Usage(current *int, last int) int {
	if current == nil {
		return 0
	}
	if *current < last {
		return 0
	}
	return *current - last
}

// ReadingSubmission is one room's keyed-in meter state for a billing
// month. Missing readings mark the room as not yet read rather than
// as zero consumption.
type ReadingSubmission struct {
	RoomID          int  `json:"room_id"`
	WaterCurrent    *int `json:"water_current"`
	ElectricCurrent *int `json:"electric_current"`
}

// Ready reports whether both meters have been keyed. Incomplete rooms
// are excluded from bulk billing and counted as skipped.
func (s ReadingSubmission) Ready() bool {
	return s.WaterCurrent != nil && s.ElectricCurrent != nil
}
