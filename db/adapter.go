package db

import (
	"fmt"

	"github.com/kasuganosora/voxelpilot/config"
	dbmysql "github.com/kasuganosora/voxelpilot/db/mysql"
	dbsqlite "github.com/kasuganosora/voxelpilot/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
	// ModeMemory is an in-process SQLite database that vanishes on close.
	ModeMemory = "memory"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMemory:
		return dbsqlite.Open("file::memory:?cache=shared")
	case ModeMySQL:
		if cfg.MySQLDSN == "" {
			return nil, fmt.Errorf("db: mysql mode needs database.mysql_dsn")
		}
		return dbmysql.Open(cfg.MySQLDSN, dbmysql.Pool{
			MaxOpen: cfg.MySQLMaxOpen,
			MaxIdle: cfg.MySQLMaxIdle,
			MaxLife: cfg.MySQLMaxLife,
		})
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
