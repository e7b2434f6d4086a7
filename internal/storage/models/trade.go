// internal/storage/models/trade.go
package models

import "time"

// Trade is one executed buy or sell against a curve. Base-currency amounts
// are stored as decimal strings since they can exceed 64 bits.
type Trade struct {
	BaseModel
	TradeID       string    `gorm:"unique;not null;type:varchar(36)"`
	Mint          string    `gorm:"index;not null;type:varchar(44)"`
	Direction     string    `gorm:"not null;type:varchar(4)"`
	Trader        string    `gorm:"index;not null;type:varchar(44)"`
	TokenAmount   uint64    `gorm:"not null"`
	BaseAmount    string    `gorm:"not null;type:varchar(40)"`
	SupplyAfter   uint64    `gorm:"not null"`
	ReservesAfter string    `gorm:"not null;type:varchar(40)"`
	ExecutedAt    time.Time `gorm:"index;not null"`
}
