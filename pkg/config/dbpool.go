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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const dbPingTimeout = 10 * time.Second

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=10000",
}

// DBPool hands out one *sql.DB per distinct DSN.
type DBPool struct {
	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func NewDBPool() *DBPool {
	return &DBPool{dbs: map[string]*sql.DB{}}
}

// Get opens the database on first use and caches the handle.
func (p *DBPool) Get(ctx context.Context, cfg *DatabaseConfig) (*sql.DB, error) {
	key := cfg.DSN()

	p.mu.Lock()
	defer p.mu.Unlock()
	if db := p.dbs[key]; db != nil {
		return db, nil
	}
	db, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.dbs[key] = db
	return db, nil
}

func connect(ctx context.Context, cfg *DatabaseConfig) (*sql.DB, error) {
	sqlite := cfg.Dialect() == "sqlite"

	db, err := sql.Open(cfg.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Dialect(), err)
	}
	if sqlite {
		// one connection keeps in-memory databases alive and avoids lock contention
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MaxIdle)
		db.SetConnMaxLifetime(time.Hour)
	}

	ctx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s: %w", cfg.Dialect(), err)
	}
	if sqlite {
		for _, pragma := range sqlitePragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				slog.Warn("SQLite pragma failed", "pragma", pragma, "error", err)
			}
		}
	}

	slog.Debug("Database connected", "dialect", cfg.Dialect(), "database", cfg.Database)
	return db, nil
}

// Close closes all handles and empties the pool.
func (p *DBPool) Close() error {
	p.mu.Lock()
	dbs := p.dbs
	p.dbs = map[string]*sql.DB{}
	p.mu.Unlock()

	var errs []error
	for _, db := range dbs {
		errs = append(errs, db.Close())
	}
	return errors.Join(errs...)
}
