package database

import (
	"fmt"
	"net/url"
	"strings"

	coreconfig "github.com/m3rciful/menacebot/core/config"
)

const (
	// DriverSQLite opens a local sqlite file through modernc.org/sqlite.
	DriverSQLite = coreconfig.StoreSQLite
	// DriverPostgres opens PostgreSQL through lib/pq.
	DriverPostgres = coreconfig.StorePostgres
	// DriverMemory opens nothing; sessions live in process memory.
	DriverMemory = coreconfig.StoreMemory
)

// Config holds database connection settings for the selected store driver.
type Config struct {
	Driver string
	// Path is the sqlite file.
	Path string

	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConnections int
}

// FromCore derives connection settings from the bot configuration.
func FromCore(cfg *coreconfig.Config) Config {
	if cfg == nil {
		return Config{Driver: DriverMemory}
	}
	return Config{
		Driver:         cfg.Store.Driver,
		Path:           cfg.Store.Path,
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Name:           cfg.Database.Name,
		SSLMode:        cfg.Database.SSLMode,
		MaxConnections: cfg.Database.MaxConnections,
	}
}

// SQLDriver returns the database/sql driver name registered for c.Driver.
func (c Config) SQLDriver() string {
	if c.Driver == DriverPostgres {
		return "postgres"
	}
	return "sqlite"
}

// DSN returns the connection string understood by SQLDriver.
func (c Config) DSN() string {
	switch c.Driver {
	case DriverPostgres:
		return fmt.Sprintf(
			"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
		)
	default:
		// One writer at a time; concurrent readers wait instead of failing with SQLITE_BUSY.
		return "file:" + c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
}

// MigrateURL returns the database URL for golang-migrate.
func (c Config) MigrateURL() string {
	switch c.Driver {
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     c.Host + ":" + c.Port,
			Path:     "/" + c.Name,
			RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
		}
		return u.String()
	default:
		return "sqlite://" + c.Path
	}
}

// Target describes the database for log lines without credentials.
func (c Config) Target() string {
	switch c.Driver {
	case DriverPostgres:
		return c.Host + ":" + c.Port + "/" + c.Name
	case DriverSQLite:
		return c.Path
	default:
		return strings.ToLower(c.Driver)
	}
}
