package billing

import (
	"github.com/dormbase/dorm-billing/backend/models"
)

// Reconcile aggregates a month's billed room revenue against the
// central meter's actual utility cost. Revenue per utility is the
// total metered usage priced at the average of the rates the entries
// were billed with, so per-room overrides are smoothed rather than
// re-walked. The result is derived on every call; nothing is cached.
func Reconcile(central models.CentralMeterRecord, entries []models.BillingEntry) models.MonthlySummary {
	summary := models.MonthlySummary{
		Month:      central.Month,
		EntryCount: len(entries),
	}

	waterRateSum, electricRateSum := 0.0, 0.0
	for _, e := range entries {
		summary.WaterUsage += e.WaterUsage
		summary.ElectricUsage += e.ElectricUsage
		waterRateSum += e.WaterRate
		electricRateSum += e.ElectricRate
	}

	if len(entries) > 0 {
		n := float64(len(entries))
		summary.WaterRevenue = float64(summary.WaterUsage) * (waterRateSum / n)
		summary.ElectricRevenue = float64(summary.ElectricUsage) * (electricRateSum / n)
	}

	summary.WaterCost = float64(central.WaterUsage()) * central.WaterRate
	summary.ElectricCost = central.ElectricCost

	summary.WaterProfit = summary.WaterRevenue - summary.WaterCost
	summary.ElectricProfit = summary.ElectricRevenue - summary.ElectricCost

	summary.TotalRevenue = summary.WaterRevenue + summary.ElectricRevenue
	summary.TotalCost = summary.WaterCost + summary.ElectricCost
	summary.TotalProfit = summary.TotalRevenue - summary.TotalCost

	return summary
}
