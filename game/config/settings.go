package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type DatabaseType string

const (
	MySQL      DatabaseType = "mysql"
	PostgreSQL DatabaseType = "postgres"
	SQLite     DatabaseType = "sqlite3"
	Memory     DatabaseType = "memory"
)

var allowedDatabaseType = []DatabaseType{MySQL, PostgreSQL, SQLite, Memory}

// DatabaseConfig selects and connects the game store
type DatabaseConfig struct {
	Type         DatabaseType  `env:"TYPE" envDefault:"sqlite3"`
	Name         string        `env:"NAME" envDefault:"skytrack.db"`
	Host         string        `env:"HOST" envDefault:"localhost"`
	Port         int           `env:"PORT"`
	Username     string        `env:"USER"`
	Password     string        `env:"PASSWORD"`
	EnableSSL    bool          `env:"SSL"`
	QueryTimeout time.Duration `env:"QUERY_TIMEOUT" envDefault:"5s"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS" envDefault:"8"`
}

// Settings is the process configuration read from the environment
type Settings struct {
	Host       string         `env:"SKYTRACK_HOST" envDefault:"localhost"`
	Port       int            `env:"SKYTRACK_PORT" envDefault:"8080"`
	ConfigDir  string         `env:"SKYTRACK_CONFIG_DIR" envDefault:"configs"`
	WorldFile  string         `env:"SKYTRACK_WORLD" envDefault:"data/world.yaml"`
	SessionDir string         `env:"SKYTRACK_SESSION_DIR" envDefault:"sessions"`
	APIURL     string         `env:"SKYTRACK_API_URL"`
	SessionTTL time.Duration  `env:"SKYTRACK_SESSION_TTL" envDefault:"24h"`
	Debug      bool           `env:"SKYTRACK_DEBUG"`
	Database   DatabaseConfig `envPrefix:"SKYTRACK_DB_"`
}

// LoadSettings parses Settings from the environment
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := s.Database.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the database type and timeouts
func (c *DatabaseConfig) Validate() error {
	if !slices.Contains(allowedDatabaseType, c.Type) {
		return fmt.Errorf("database type %s is not allowed, supported types are %v", c.Type, allowedDatabaseType)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("database query timeout must be positive, got %s", c.QueryTimeout)
	}
	if c.Type == SQLite && c.Name == "" {
		return fmt.Errorf("sqlite3 database needs a file name")
	}
	return nil
}

// GetDialector returns the gorm dialector for the configured database, or
// nil for the in-memory store.
func (c *DatabaseConfig) GetDialector() gorm.Dialector {
	switch c.Type {
	case MySQL:
		return mysql.Open(c.mysqlDSN())
	case PostgreSQL:
		return postgres.Open(c.postgresDSN())
	case SQLite:
		return sqlite.Open(c.Name)
	default:
		return nil
	}
}

// clientFoundRows makes MySQL report matched rather than changed rows, so an
// update writing an unchanged value still counts as a hit.
func (c *DatabaseConfig) mysqlDSN() string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&clientFoundRows=true&tls=%t",
		c.Username,
		c.Password,
		c.Host,
		port,
		c.Name,
		c.EnableSSL,
	)
}

func (c *DatabaseConfig) postgresDSN() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := "disable"
	if c.EnableSSL {
		sslMode = "require"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host,
		c.Username,
		c.Password,
		c.Name,
		port,
		sslMode,
	)
}
