package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dormbase/dorm-billing/backend/models"
)

func TestReconcile(t *testing.T) {
	central := models.CentralMeterRecord{
		Month:        "2026-08",
		WaterCurrent: 1000,
		WaterRate:    5,
		ElectricCost: 4000,
	}
	entries := []models.BillingEntry{
		{WaterUsage: 400, WaterRate: 18, ElectricUsage: 500, ElectricRate: 7},
		{WaterUsage: 450, WaterRate: 18, ElectricUsage: 600, ElectricRate: 7},
	}

	summary := Reconcile(central, entries)

	assert.Equal(t, "2026-08", summary.Month)
	assert.Equal(t, 2, summary.EntryCount)
	assert.Equal(t, 850, summary.WaterUsage)
	assert.Equal(t, 1100, summary.ElectricUsage)

	// Revenue prices total usage at the average billed rate.
	assert.InDelta(t, 850*18.0, summary.WaterRevenue, 1e-6)
	assert.InDelta(t, 1100*7.0, summary.ElectricRevenue, 1e-6)

	// Cost comes from the central meter: water at provider rate,
	// electricity straight off the provider bill.
	assert.InDelta(t, 1000*5.0, summary.WaterCost, 1e-6)
	assert.InDelta(t, 4000.0, summary.ElectricCost, 1e-6)

	assert.InDelta(t, summary.WaterRevenue-summary.WaterCost, summary.WaterProfit, 1e-6)
	assert.InDelta(t, summary.ElectricRevenue-summary.ElectricCost, summary.ElectricProfit, 1e-6)
	assert.InDelta(t, summary.TotalRevenue-summary.TotalCost, summary.TotalProfit, 1e-6)
}

func TestReconcileMixedRatesAveraged(t *testing.T) {
	central := models.CentralMeterRecord{Month: "2026-08", WaterCurrent: 100, WaterRate: 5}
	entries := []models.BillingEntry{
		{WaterUsage: 10, WaterRate: 18},
		{WaterUsage: 10, WaterRate: 22}, // room override
	}

	summary := Reconcile(central, entries)

	// 20 units at the mean rate of 20.
	assert.InDelta(t, 400.0, summary.WaterRevenue, 1e-6)
}

func TestReconcileNoEntries(t *testing.T) {
	central := models.CentralMeterRecord{Month: "2026-08", WaterCurrent: 100, WaterRate: 5}

	summary := Reconcile(central, nil)

	assert.Equal(t, 0, summary.EntryCount)
	assert.Equal(t, 0.0, summary.WaterRevenue)
	// Cost still accrues; the month runs at a loss.
	assert.InDelta(t, 500.0, summary.WaterCost, 1e-6)
	assert.InDelta(t, -500.0, summary.TotalProfit, 1e-6)
}
