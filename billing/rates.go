package billing

import (
	"github.com/dormbase/dorm-billing/backend/models"
)

// Rates are the unit prices and fixed fees in effect for one room in
// one billing month.
type Rates struct {
	Water       float64 `json:"water"`
	Electric    float64 `json:"electric"`
	TrashFee    float64 `json:"trash_fee"`
	InternetFee float64 `json:"internet_fee"`
	OtherFee    float64 `json:"other_fee"`
}

// ResolveRates merges the system defaults with the room's overrides.
// Fixed fees have no per-room override.
func ResolveRates(cfg models.SystemConfig, room models.Room) Rates {
	rates := Rates{
		Water:       cfg.WaterRate,
		Electric:    cfg.ElectricRate,
		TrashFee:    cfg.TrashFee,
		InternetFee: cfg.InternetFee,
		OtherFee:    cfg.OtherFee,
	}
	if room.WaterRate != nil {
		rates.Water = *room.WaterRate
	}
	if room.ElectricRate != nil {
		rates.Electric = *room.ElectricRate
	}
	return rates
}

// Policy is the common-area cost distribution policy from the system
// config.
type Policy struct {
	Enabled      bool    `json:"enabled"`
	Distribution string  `json:"distribution"`
	CapMode      string  `json:"cap_mode"`
	CapValue     float64 `json:"cap_value"`
}

func PolicyFrom(cfg models.SystemConfig) Policy {
	return Policy{
		Enabled:      cfg.CommonEnabled,
		Distribution: cfg.CommonDistribution,
		CapMode:      cfg.CommonCapMode,
		CapValue:     cfg.CommonCapValue,
	}
}
