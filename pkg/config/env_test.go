package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("MCPGW_DOTENV_A=local\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MCPGW_DOTENV_A=shared\nMCPGW_DOTENV_B=shared\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	t.Setenv("MCPGW_DOTENV_A", "")
	t.Setenv("MCPGW_DOTENV_B", "")
	os.Unsetenv("MCPGW_DOTENV_A")
	os.Unsetenv("MCPGW_DOTENV_B")

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("MCPGW_DOTENV_A"); got != "local" {
		t.Errorf("MCPGW_DOTENV_A = %q, want local", got)
	}
	if got := os.Getenv("MCPGW_DOTENV_B"); got != "shared" {
		t.Errorf("MCPGW_DOTENV_B = %q, want shared", got)
	}
}

func TestLoadDotEnv_NoFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("LoadDotEnv without files: %v", err)
	}
}
