// internal/storage/models/token.go
package models

import "time"

// Token is the registration row of a launched bonding-curve token. Curve
// parameters are stored as deployed and never updated.
type Token struct {
	BaseModel
	Mint          string    `gorm:"unique;not null;type:varchar(44)"`
	Name          string    `gorm:"not null;type:varchar(64)"`
	Symbol        string    `gorm:"not null;type:varchar(16)"`
	ImageURI      string    `gorm:"type:text"`
	Creator       string    `gorm:"index;not null;type:varchar(44)"`
	BaseCurrency  string    `gorm:"not null;type:varchar(10)"`
	BasePrice     string    `gorm:"not null;type:varchar(40)"`
	GrowthRateBps uint64    `gorm:"not null"`
	MaxSupply     uint64    `gorm:"not null"`
	LPStrategy    string    `gorm:"not null;type:varchar(30)"`
	LaunchedAt    time.Time `gorm:"index;not null"`
}
