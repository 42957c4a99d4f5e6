package database

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/tigerroll/nisthourly/internal/support/configbinder"
	"github.com/tigerroll/nisthourly/internal/support/exception"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// DialectorFactory builds a gorm.Dialector from a DatabaseConfig.
type DialectorFactory func(cfg DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers the factory for dbType. Dialect packages call it from init.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory returns the factory registered for dbType.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

// Connection is an open gorm connection.
type Connection struct {
	name string
	cfg  DatabaseConfig
	db   *gorm.DB
}

// NewConnection wraps an existing gorm.DB, e.g. one opened on a mock.
func NewConnection(name string, cfg DatabaseConfig, db *gorm.DB) *Connection {
	return &Connection{name: name, cfg: cfg, db: db}
}

// Name returns the configured connection name.
func (c *Connection) Name() string { return c.name }

// Type returns the database type.
func (c *Connection) Type() string { return c.cfg.Type }

// DB returns the gorm handle.
func (c *Connection) DB() *gorm.DB { return c.db }

// SQLDB returns the underlying database/sql handle.
func (c *Connection) SQLDB() (*sql.DB, error) {
	return c.db.DB()
}

// Close closes the underlying pool.
func (c *Connection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Provider opens and caches connections configured under the "database" section.
type Provider struct {
	sections    map[string]interface{}
	connections map[string]*Connection
	mu          sync.Mutex
}

// NewProvider creates a Provider over the named database sections.
func NewProvider(sections map[string]interface{}) *Provider {
	return &Provider{sections: sections, connections: make(map[string]*Connection)}
}

// GetConnection returns the connection named name, opening it on first use.
func (p *Provider) GetConnection(name string) (*Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}

	var cfg DatabaseConfig
	if err := configbinder.BindNamed(p.sections, name, &cfg); err != nil {
		return nil, exception.NewBatchError("database", fmt.Sprintf("database connection '%s' is not configured", name), err, false, false)
	}
	db, err := open(cfg)
	if err != nil {
		return nil, exception.NewBatchError("database", fmt.Sprintf("failed to open database connection '%s'", name), err, false, false)
	}
	conn := NewConnection(name, cfg, db)
	p.connections[name] = conn
	logger.Infof("Established new DB connection: %s (%s)", name, cfg.Type)
	return conn, nil
}

func open(cfg DatabaseConfig) (*gorm.DB, error) {
	factory, err := GetDialectorFactory(cfg.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", cfg.Type, err)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger(cfg.LogLevel)})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}

// CloseAll closes every open connection.
func (p *Provider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close connection '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}
