// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/curvelaunch/internal/storage/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Storage is the persistence boundary of the launch engine. The engine is
// authoritative for live curve state; storage keeps the durable audit trail
// and the indexes the listing operations read.
type Storage interface {
	// Tokens
	SaveToken(ctx context.Context, token *models.Token) error
	GetToken(ctx context.Context, mint string) (*models.Token, error)
	ListTokens(ctx context.Context, limit, offset int) ([]*models.Token, error)
	ListTokensByCreator(ctx context.Context, creator string) ([]*models.Token, error)

	// Trades
	SaveTrade(ctx context.Context, trade *models.Trade) error
	// ListTrades returns trades newest first. An empty mint matches all tokens.
	ListTrades(ctx context.Context, mint string, limit, offset int) ([]*models.Trade, error)

	// Graduations
	SaveGraduation(ctx context.Context, grad *models.Graduation) error
	GetGraduation(ctx context.Context, mint string) (*models.Graduation, error)

	// Migrations
	RunMigrations() error

	Close() error
}
