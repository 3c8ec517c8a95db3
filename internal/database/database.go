// Package database opens the configured store and hands out its repositories.
// A Store is created once at startup and closed on shutdown.
package database

import (
	"context"
	"fmt"
	"time"

	"co2monitor/internal/config"
	"co2monitor/internal/models"
	"co2monitor/internal/repositories"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store bundles the repositories of one open database connection.
type Store struct {
	Users  repositories.UserRepository
	Alerts repositories.AlertRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the connection.
func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}

// Open connects to the database named by cfg, prepares its schema and verifies
// it answers. An unreachable database is an error, not a lazy failure.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, log)
	case config.DriverPostgres:
		return openGORM(ctx, postgres.Open(cfg.DSN), false, log)
	case config.DriverSQLite:
		return openGORM(ctx, sqlite.Open(cfg.DSN), true, log)
	case config.DriverMemory:
		return openMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openGORM(ctx context.Context, dialector gorm.Dialector, singleConn bool, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(zap.NewStdLog(log), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if singleConn {
		// SQLite allows one writer; a single connection also keeps in-memory databases alive.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.User{}, &models.Alert{}, &models.UserAlert{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	log.Info("database ready", zap.String("dialect", dialector.Name()))

	return &Store{
		Users:  repositories.NewGORMUserRepository(db),
		Alerts: repositories.NewGORMAlertRepository(db),
		ping:   sqlDB.PingContext,
		close: func(context.Context) error {
			return sqlDB.Close()
		},
	}, nil
}

func openMongo(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Name)
	if err := repositories.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	log.Info("MongoDB connected", zap.String("database", cfg.Name))

	return &Store{
		Users:  repositories.NewMongoUserRepository(db),
		Alerts: repositories.NewMongoAlertRepository(db),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: client.Disconnect,
	}, nil
}

func openMemory() *Store {
	store := repositories.NewMemoryStore()
	return &Store{
		Users:  repositories.NewMemoryUserRepository(store),
		Alerts: repositories.NewMemoryAlertRepository(store),
		ping:   func(context.Context) error { return nil },
		close:  func(context.Context) error { return nil },
	}
}
