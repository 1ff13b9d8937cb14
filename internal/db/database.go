package db

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/config"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/metrics"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/models"
)

var DB *gorm.DB

// ErrNoDSN is returned when the ledger is not configured
var ErrNoDSN = errors.New("database DSN is not configured")

// InitDB connects to the run ledger and migrates its schema
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, ErrNoDSN
	}
	if cfg.Driver != "" && cfg.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	log.Printf("Connecting to run ledger database")
	conn, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		metrics.DBConnectionStatus.Set(0)
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := conn.AutoMigrate(&models.WithdrawProofTask{}); err != nil {
		return nil, fmt.Errorf("AutoMigrate failed: %w", err)
	}

	metrics.DBConnectionStatus.Set(1)
	log.Println("✅ Run ledger database ready")
	DB = conn
	return conn, nil
}

// Close closes the global connection
func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	metrics.DBConnectionStatus.Set(0)
}
