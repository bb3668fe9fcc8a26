package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/env"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// DB is the process-wide connection used by the repository factory.
var DB *gorm.DB

// Models lists every table managed by AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&models.Ambassador{},
		&models.Brand{},
		&models.Contract{},
		&models.ProcessorEvent{},
	}
}

// DSN builds the MySQL data source name from the environment.
func DSN() string {
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}

func gormConfig() *gorm.Config {
	level := logger.Warn
	if env.IsDev() {
		level = logger.Info
	}
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	}
}

// SetupDatabase connects to MySQL with retries, migrates the schema and
// stores the connection in DB. It panics if the database stays unreachable.
func SetupDatabase() {
	var err error
	dsn := DSN()

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), gormConfig())
		if err == nil {
			if migrateErr := DB.AutoMigrate(Models()...); migrateErr != nil {
				fiberlog.Errorf("[Database] AutoMigrate failed: %v", migrateErr)
			}
			return
		}

		fiberlog.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			fiberlog.Infof("[Database] Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// OpenSQLite opens a migrated SQLite database. An empty path or ":memory:"
// yields a private in-memory database, which is what the tests use.
func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" || path == ":memory:" {
		path = "file::memory:"
	}
	cfg := gormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, err
	}
	// a single connection keeps one in-memory database for the whole handle
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, err
	}
	return db, nil
}

// GetDB returns the process-wide connection.
func GetDB() *gorm.DB {
	return DB
}
