// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/curvelaunch/internal/storage"
	"github.com/rovshanmuradov/curvelaunch/internal/storage/models"
)

// gormLogger implements the logger.Interface for GORM on top of zap.
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger: zapLogger,
		logLevel:  logger.Warn,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}

	if l.logLevel >= logger.Info {
		l.zapLogger.Info("trace", fields...)
	}
}

// sqliteStorage implements the Storage interface.
type sqliteStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStorage opens (or creates) the database at dsn. Use ":memory:" for an
// ephemeral database.
func NewStorage(dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	gormLogger := newGormLogger(zapLogger.Named("gorm"))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// sqlite serializes writers itself; a single connection avoids
	// SQLITE_BUSY under concurrent access.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &sqliteStorage{
		db:     db,
		logger: zapLogger,
	}, nil
}

// RunMigrations uses GORM AutoMigrate.
func (s *sqliteStorage) RunMigrations() error {
	err := s.db.AutoMigrate(
		&models.Token{},
		&models.Trade{},
		&models.Graduation{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *sqliteStorage) SaveToken(ctx context.Context, token *models.Token) error {
	return s.db.WithContext(ctx).Create(token).Error
}

func (s *sqliteStorage) GetToken(ctx context.Context, mint string) (*models.Token, error) {
	var token models.Token
	err := s.db.WithContext(ctx).Where("mint = ?", mint).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *sqliteStorage) ListTokens(ctx context.Context, limit, offset int) ([]*models.Token, error) {
	var tokens []*models.Token
	err := s.db.WithContext(ctx).
		Order("launched_at desc").
		Limit(limit).
		Offset(offset).
		Find(&tokens).Error
	return tokens, err
}

func (s *sqliteStorage) ListTokensByCreator(ctx context.Context, creator string) ([]*models.Token, error) {
	var tokens []*models.Token
	err := s.db.WithContext(ctx).
		Where("creator = ?", creator).
		Order("launched_at desc").
		Find(&tokens).Error
	return tokens, err
}

func (s *sqliteStorage) SaveTrade(ctx context.Context, trade *models.Trade) error {
	return s.db.WithContext(ctx).Create(trade).Error
}

func (s *sqliteStorage) ListTrades(ctx context.Context, mint string, limit, offset int) ([]*models.Trade, error) {
	var trades []*models.Trade
	q := s.db.WithContext(ctx)
	if mint != "" {
		q = q.Where("mint = ?", mint)
	}
	err := q.Order("executed_at desc").
		Limit(limit).
		Offset(offset).
		Find(&trades).Error
	return trades, err
}

func (s *sqliteStorage) SaveGraduation(ctx context.Context, grad *models.Graduation) error {
	return s.db.WithContext(ctx).Create(grad).Error
}

func (s *sqliteStorage) GetGraduation(ctx context.Context, mint string) (*models.Graduation, error) {
	var grad models.Graduation
	err := s.db.WithContext(ctx).Where("mint = ?", mint).First(&grad).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &grad, nil
}

func (s *sqliteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
