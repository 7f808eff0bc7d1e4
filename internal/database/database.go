// Package database owns the process-wide connection pool.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"devlog/internal/config"
	"devlog/internal/logging"
	"devlog/internal/models"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Gateway is the only way the rest of the application reaches the database.
// It is created once in main and closed on shutdown.
type Gateway struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	driver string
}

// Open connects to the configured store and sizes the pool. Callers block in
// database/sql when all MaxOpenConns connections are in use.
func Open(cfg config.Database, logger *slog.Logger) (*Gateway, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logging.Gorm(logger),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// The mysql schema belongs to the ingestion job. The sqlite file is a local
	// copy for development, so it is created here.
	if cfg.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(models.All()...); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}

	logger.Info("database connection pool created",
		"driver", cfg.Driver,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return &Gateway{db: db, sqlDB: sqlDB, driver: cfg.Driver}, nil
}

func dialectorFor(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		return mysql.Open(MySQLDSN(cfg)), nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		return sqlite.Open(cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// MySQLDSN formats the connection string with parseTime so DATETIME columns scan into time.Time.
func MySQLDSN(cfg config.Database) string {
	mc := mysqldriver.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = 30 * time.Second
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Query runs one parameterized SELECT and scans the result into dest, which is
// a pointer to a struct slice, a scalar slice or a scalar. The connection is
// returned to the pool before Query returns.
func (g *Gateway) Query(ctx context.Context, dest any, query string, args ...any) error {
	if err := g.db.WithContext(ctx).Raw(query, args...).Scan(dest).Error; err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return nil
}

// Conn returns a gorm session bound to ctx for builder style queries.
func (g *Gateway) Conn(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

func (g *Gateway) Ping(ctx context.Context) error {
	return g.sqlDB.PingContext(ctx)
}

func (g *Gateway) Stats() sql.DBStats {
	return g.sqlDB.Stats()
}

func (g *Gateway) Driver() string {
	return g.driver
}

// Close releases every pooled connection.
func (g *Gateway) Close() error {
	return g.sqlDB.Close()
}
