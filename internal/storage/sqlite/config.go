package sqlite

import (
	"fmt"
	"strings"
)

type Config struct {
	DatabasePath string
	// BusyTimeoutMS is how long a writer waits on a locked database
	BusyTimeoutMS int
}

func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.BusyTimeoutMS < 0 {
		return fmt.Errorf("busy timeout must not be negative")
	}
	return nil
}

func (c *Config) GetType() string {
	return "sqlite"
}

// GetConnectionString returns the go-sqlite3 DSN
func (c *Config) GetConnectionString() string {
	timeout := c.BusyTimeoutMS
	if timeout == 0 {
		timeout = 5000
	}
	separator := "?"
	if strings.Contains(c.DatabasePath, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", c.DatabasePath, separator, timeout)
}

func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "./complaints.db",
	}
}
