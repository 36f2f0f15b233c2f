package models

import "gorm.io/gorm"

// FeeProfile is a named broker fee schedule that requests can refer to.
type FeeProfile struct {
	gorm.Model
	Name               string  `gorm:"uniqueIndex;not null" json:"name"`
	CommissionPerMille float64 `gorm:"not null" json:"commission_per_mille"`
	BSMVPercent        float64 `gorm:"not null" json:"bsmv_percent"`
	StopajPercent      float64 `gorm:"not null" json:"stopaj_percent"`
	IsDefault          bool    `gorm:"default:false" json:"is_default"`
}
