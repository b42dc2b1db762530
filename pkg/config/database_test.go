package config

import (
	"context"
	"path/filepath"
	"testing"
)

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "postgres",
			cfg:  DatabaseConfig{Driver: "postgres", Host: "db", Database: "tasks", Username: "gw", Password: "secret"},
			want: "host=db port=5432 dbname=tasks user=gw password=secret sslmode=disable",
		},
		{
			name: "mysql",
			cfg:  DatabaseConfig{Driver: "mysql", Host: "db", Database: "tasks", Username: "gw", Password: "secret"},
			want: "gw:secret@tcp(db:3306)/tasks?parseTime=true",
		},
		{
			name: "sqlite",
			cfg:  DatabaseConfig{Driver: "sqlite", Database: "./tasks.db"},
			want: "./tasks.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.SetDefaults()
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDatabaseConfig_DriverAndDialect(t *testing.T) {
	sqlite := DatabaseConfig{Driver: "sqlite"}
	if sqlite.DriverName() != "sqlite3" || sqlite.Dialect() != "sqlite" {
		t.Errorf("sqlite: driver=%q dialect=%q", sqlite.DriverName(), sqlite.Dialect())
	}
	sqlite3 := DatabaseConfig{Driver: "sqlite3"}
	if sqlite3.DriverName() != "sqlite3" || sqlite3.Dialect() != "sqlite" {
		t.Errorf("sqlite3: driver=%q dialect=%q", sqlite3.DriverName(), sqlite3.Dialect())
	}
}

func TestDatabaseConfig_DefaultSQLiteFile(t *testing.T) {
	cfg := DatabaseConfig{}
	cfg.SetDefaults()
	if cfg.Driver != "sqlite" || cfg.Database != "mcpgateway.db" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestDBPool_SharesHandles(t *testing.T) {
	pool := NewDBPool()
	defer pool.Close()

	cfg := &DatabaseConfig{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "tasks.db")}
	cfg.SetDefaults()

	db1, err := pool.Get(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	db2, err := pool.Get(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if db1 != db2 {
		t.Error("expected the same handle for the same DSN")
	}
	if got := db1.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("sqlite max open connections = %d, want 1", got)
	}

	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := db1.Ping(); err == nil {
		t.Error("expected closed handle after pool Close")
	}
}
