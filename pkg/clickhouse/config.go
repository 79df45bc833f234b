package clickhouse

import (
	"errors"
	"time"
)

// ClientConfig is the connection used by the quote history sink.
type ClientConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	UseHTTP  bool

	Pool     PoolConfig
	Timeouts Timeouts

	// AsyncInsert lets the server buffer history rows; WaitForAsync makes
	// the insert return only after they are flushed.
	AsyncInsert  bool
	WaitForAsync bool
}

// PoolConfig sizes the database/sql pool. Zero fields keep the defaults.
type PoolConfig struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// Timeouts are sent in the DSN. MaxExecution of zero leaves the server limit.
type Timeouts struct {
	Dial         time.Duration
	Read         time.Duration
	MaxExecution time.Duration
}

func defaultClientConfig() ClientConfig {
	return ClientConfig{
		Port:     9000,
		Database: "default",
		User:     "default",
		Pool: PoolConfig{
			MaxOpen:     4,
			MaxIdle:     2,
			MaxLifetime: 5 * time.Minute,
		},
		Timeouts: Timeouts{
			Dial: 5 * time.Second,
			Read: 10 * time.Second,
		},
	}
}

func (c ClientConfig) validate() error {
	switch {
	case c.Host == "":
		return errors.New("host is required")
	case c.Port <= 0:
		return errors.New("port must be positive")
	case c.Pool.MaxIdle > c.Pool.MaxOpen:
		return errors.New("max idle connections exceed max open")
	}
	return nil
}

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// WithServer sets the address and protocol. A zero port keeps the default.
func WithServer(host string, port int, useHTTP bool) ClientOption {
	return func(c *ClientConfig) {
		c.Host = host
		if port > 0 {
			c.Port = port
		}
		c.UseHTTP = useHTTP
	}
}

// WithDatabase sets the database and the account used to reach it.
func WithDatabase(database, user, password string) ClientOption {
	return func(c *ClientConfig) {
		if database != "" {
			c.Database = database
		}
		if user != "" {
			c.User = user
		}
		c.Password = password
	}
}

func WithPool(p PoolConfig) ClientOption {
	return func(c *ClientConfig) {
		if p.MaxOpen > 0 {
			c.Pool.MaxOpen = p.MaxOpen
		}
		if p.MaxIdle > 0 {
			c.Pool.MaxIdle = p.MaxIdle
		}
		if p.MaxLifetime > 0 {
			c.Pool.MaxLifetime = p.MaxLifetime
		}
	}
}

func WithTimeouts(t Timeouts) ClientOption {
	return func(c *ClientConfig) {
		if t.Dial > 0 {
			c.Timeouts.Dial = t.Dial
		}
		if t.Read > 0 {
			c.Timeouts.Read = t.Read
		}
		c.Timeouts.MaxExecution = t.MaxExecution
	}
}

func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *ClientConfig) {
		c.AsyncInsert = enabled
		c.WaitForAsync = enabled && wait
	}
}
