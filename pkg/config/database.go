// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// dialect describes one supported SQL backend.
type dialect struct {
	driver      string // database/sql driver name
	defaultPort int
	networked   bool
}

var dialects = map[string]dialect{
	"postgres": {driver: "postgres", defaultPort: 5432, networked: true},
	"mysql":    {driver: "mysql", defaultPort: 3306, networked: true},
	"sqlite":   {driver: "sqlite3"},
}

const defaultSQLiteFile = "mcpgateway.db"

// DatabaseConfig points the SQL task store at a database.
//
//	database:
//	  driver: postgres   # postgres | mysql | sqlite
//	  host: db.internal
//	  database: gateway
//	  username: gw
//	  password: ${DB_PASSWORD}
//
// For sqlite, Database is the file path and the network fields are unused.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	SSLMode  string `yaml:"ssl_mode,omitempty"` // postgres only
	MaxConns int    `yaml:"max_conns,omitempty"`
	MaxIdle  int    `yaml:"max_idle,omitempty"`
}

func (c *DatabaseConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	d, known := dialects[c.Dialect()]
	if known && c.Port == 0 {
		c.Port = d.defaultPort
	}
	if known && !d.networked && c.Database == "" {
		c.Database = defaultSQLiteFile
	}
	if c.Dialect() == "postgres" && c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxConns == 0 {
		c.MaxConns = 25
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = 5
	}
}

func (c *DatabaseConfig) Validate() error {
	d, known := dialects[c.Dialect()]
	switch {
	case c.Driver == "":
		return fmt.Errorf("driver is required")
	case !known:
		return fmt.Errorf("invalid driver %q, expected postgres, mysql or sqlite", c.Driver)
	case c.Database == "":
		return fmt.Errorf("database is required")
	case d.networked && c.Host == "":
		return fmt.Errorf("host is required for %s", c.Driver)
	case c.MaxConns < 0 || c.MaxIdle < 0:
		return fmt.Errorf("max_conns and max_idle cannot be negative")
	}
	return nil
}

// DSN renders the connection string understood by DriverName's driver.
func (c *DatabaseConfig) DSN() string {
	switch c.Dialect() {
	case "postgres":
		parts := []string{"host=" + c.Host, "port=" + strconv.Itoa(c.Port), "dbname=" + c.Database}
		for _, kv := range [][2]string{{"user", c.Username}, {"password", c.Password}, {"sslmode", c.SSLMode}} {
			if kv[1] != "" {
				parts = append(parts, kv[0]+"="+kv[1])
			}
		}
		return strings.Join(parts, " ")
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = c.Username
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		mc.DBName = c.Database
		mc.ParseTime = true
		return mc.FormatDSN()
	case "sqlite":
		return c.Database
	}
	return ""
}

// DriverName is the name registered with database/sql.
func (c *DatabaseConfig) DriverName() string {
	if d, ok := dialects[c.Dialect()]; ok {
		return d.driver
	}
	return c.Driver
}

// Dialect normalizes the driver alias used for query building.
func (c *DatabaseConfig) Dialect() string {
	if c.Driver == "sqlite3" {
		return "sqlite"
	}
	return c.Driver
}
