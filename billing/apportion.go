package billing

import (
	"github.com/dormbase/dorm-billing/backend/models"
)

// RoomUsage is a ready-to-bill room's metered consumption for the
// month, plus its common-area participation flag.
type RoomUsage struct {
	RoomID   int  `json:"room_id"`
	Water    int  `json:"water"`
	Electric int  `json:"electric"`
	Eligible bool `json:"eligible"`
}

// ApportionResult reports the unmetered (common-area) consumption and
// how its cost was spread over the eligible rooms. Common usage may be
// negative when room meters over-report against the central meter;
// that is a data-quality signal and is reported as-is, never clamped.
type ApportionResult struct {
	CommonWaterUsage    int                 `json:"common_water_usage"`
	CommonElectricUsage int                 `json:"common_electric_usage"`
	WaterRate           float64             `json:"water_rate"`
	ElectricRate        float64             `json:"electric_rate"`
	CommonWaterCost     float64             `json:"common_water_cost"`
	CommonElectricCost  float64             `json:"common_electric_cost"`
	EligibleRooms       int                 `json:"eligible_rooms"`
	Shares              map[int]CommonShare `json:"shares"`
	OwnerAbsorbed       float64             `json:"owner_absorbed"`
}

// TotalCommonCost is the full common utility cost before any cap.
func (r ApportionResult) TotalCommonCost() float64 {
	return r.CommonWaterCost + r.CommonElectricCost
}

// DistributedTotal is the utility cost actually billed to rooms.
func (r ApportionResult) DistributedTotal() float64 {
	total := 0.0
	for _, s := range r.Shares {
		total += s.Water + s.Electric
	}
	return total
}

// Apportion computes the building's common-area consumption from the
// central meter record and distributes its cost across the eligible
// rooms under the configured policy.
//
// Water cost is common usage times the provider rate. For electricity
// the provider bill is the input, so the effective rate is derived as
// cost over central usage (zero when there is no usage). The central
// record's fixed internet and trash fees are split equally over the
// eligible rooms regardless of distribution mode. Whatever a cap
// withholds, and everything when no room is eligible, stays with the
// owner.
func Apportion(central models.CentralMeterRecord, rooms []RoomUsage, policy Policy) ApportionResult {
	result := ApportionResult{
		WaterRate: central.WaterRate,
		Shares:    map[int]CommonShare{},
	}

	sumWater, sumElectric := 0, 0
	eligible := []RoomUsage{}
	for _, r := range rooms {
		sumWater += r.Water
		sumElectric += r.Electric
		if r.Eligible {
			eligible = append(eligible, r)
		}
	}

	result.CommonWaterUsage = central.WaterUsage() - sumWater
	result.CommonElectricUsage = central.ElectricUsage() - sumElectric
	result.EligibleRooms = len(eligible)

	if central.ElectricUsage() > 0 {
		result.ElectricRate = central.ElectricCost / float64(central.ElectricUsage())
	}

	result.CommonWaterCost = float64(result.CommonWaterUsage) * central.WaterRate
	result.CommonElectricCost = float64(result.CommonElectricUsage) * result.ElectricRate

	fixedTotal := central.InternetFee + central.TrashFee

	if !policy.Enabled || len(eligible) == 0 {
		result.OwnerAbsorbed = result.TotalCommonCost() + fixedTotal
		return result
	}

	waterShares := distribute(result.CommonWaterCost, eligible, policy.Distribution, waterWeight)
	electricShares := distribute(result.CommonElectricCost, eligible, policy.Distribution, electricWeight)

	waterShares, electricShares = applyCap(waterShares, electricShares, result.TotalCommonCost(), policy)

	n := float64(len(eligible))
	for i, r := range eligible {
		result.Shares[r.RoomID] = CommonShare{
			Water:    waterShares[i],
			Electric: electricShares[i],
			Internet: central.InternetFee / n,
			Trash:    central.TrashFee / n,
		}
	}

	result.OwnerAbsorbed = result.TotalCommonCost() - result.DistributedTotal()
	return result
}

func waterWeight(r RoomUsage) float64    { return float64(r.Water) }
func electricWeight(r RoomUsage) float64 { return float64(r.Electric) }

// distribute splits cost over the eligible rooms. Proportional mode
// weights by each room's own metered usage; when the total weight is
// zero it falls back to an equal split rather than failing.
func distribute(cost float64, eligible []RoomUsage, mode string, weight func(RoomUsage) float64) []float64 {
	shares := make([]float64, len(eligible))
	if len(eligible) == 0 {
		return shares
	}

	if mode == models.DistributionProportional {
		totalWeight := 0.0
		for _, r := range eligible {
			totalWeight += weight(r)
		}
		if totalWeight > 0 {
			for i, r := range eligible {
				shares[i] = cost * weight(r) / totalWeight
			}
			return shares
		}
		// Zero total usage: proportional is undefined, fall back to
		// equal.
	}

	for i := range eligible {
		shares[i] = cost / float64(len(eligible))
	}
	return shares
}

// applyCap limits the distributed utility total after distribution.
// Percentage mode caps the billed total at a fraction of the full
// common cost and scales every share down uniformly. Fixed mode turns
// the cap amount into a per-room ceiling (cap / room count) applied to
// each room's combined water+electric share. Caps only ever reduce
// shares; negative totals pass through untouched.
func applyCap(water, electric []float64, totalCommonCost float64, policy Policy) ([]float64, []float64) {
	switch policy.CapMode {
	case models.CapPercentage:
		capTotal := totalCommonCost * policy.CapValue / 100
		distributed := 0.0
		for i := range water {
			distributed += water[i] + electric[i]
		}
		if distributed > capTotal && distributed > 0 {
			factor := capTotal / distributed
			if factor < 0 {
				factor = 0
			}
			for i := range water {
				water[i] *= factor
				electric[i] *= factor
			}
		}

	case models.CapFixed:
		if len(water) == 0 {
			break
		}
		ceiling := policy.CapValue / float64(len(water))
		for i := range water {
			combined := water[i] + electric[i]
			if combined > ceiling && combined > 0 {
				factor := ceiling / combined
				if factor < 0 {
					factor = 0
				}
				water[i] *= factor
				electric[i] *= factor
			}
		}
	}

	return water, electric
}
