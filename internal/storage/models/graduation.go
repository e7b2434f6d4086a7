// internal/storage/models/graduation.go
package models

import "time"

// Graduation is the audit row of a completed curve-to-AMM migration.
type Graduation struct {
	BaseModel
	GraduationID   string    `gorm:"unique;not null;type:varchar(36)"`
	Mint           string    `gorm:"unique;not null;type:varchar(44)"`
	Pool           string    `gorm:"not null;type:varchar(44)"`
	BaseLiquidity  string    `gorm:"not null;type:varchar(40)"`
	TokenLiquidity uint64    `gorm:"not null"`
	LPReceived     string    `gorm:"not null;type:varchar(40)"`
	Strategy       string    `gorm:"not null;type:varchar(30)"`
	GraduatedAt    time.Time `gorm:"index;not null"`
}
