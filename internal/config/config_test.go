package config_test

import (
	"strings"
	"testing"

	"github.com/stridelog/stridelog/internal/config"
)

func setProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PROVIDER_BASE_URL", "https://provider.example.com")
	t.Setenv("PROVIDER_CLIENT_ID", "client")
	t.Setenv("PROVIDER_CLIENT_SECRET", "secret")
	t.Setenv("PROVIDER_REDIRECT_URL", "http://localhost:3000/api/provider/callback")
}

func TestLoadFromContainerEnvContract(t *testing.T) {
	setProviderEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("DB_TYPE", "mariadb")
	t.Setenv("DB_HOST", "stridelog-db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_APP_DATABASE", "stridelog")
	t.Setenv("DB_APP_USER", "stridelog_app")
	t.Setenv("DB_APP_PASSWORD", "pw")
	t.Setenv("DB_APP_CONNECTION_LIMIT", "10")
	t.Setenv("SESSION_TTL_HOURS", "168")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed with the container env contract: %v", err)
	}
	if cfg.DBDatabase != "stridelog" {
		t.Errorf("Expected database name from DB_APP_DATABASE, got %q", cfg.DBDatabase)
	}
	if cfg.DBAppUser != "stridelog_app" || cfg.DBAppConnectionLimit != 10 {
		t.Errorf("Unexpected DB config: %+v", cfg)
	}
	if cfg.SessionTTLHours != 168 {
		t.Errorf("Expected session TTL 168, got %d", cfg.SessionTTLHours)
	}
}

func TestLoadRequiresDatabaseName(t *testing.T) {
	setProviderEnv(t)
	t.Setenv("DB_TYPE", "mariadb")
	t.Setenv("DB_APP_DATABASE", "")
	t.Setenv("DB_APP_USER", "stridelog_app")

	_, err := config.Load()
	if err == nil {
		t.Fatal("Expected an error without a database name")
	}
	if !strings.Contains(err.Error(), "DB_APP_DATABASE") {
		t.Errorf("Expected the error to name the missing variable, got %v", err)
	}
}

func TestLoadSqliteSkipsDatabaseValidation(t *testing.T) {
	setProviderEnv(t)
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_APP_DATABASE", "")
	t.Setenv("DB_APP_USER", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed for sqlite: %v", err)
	}
	if cfg.DBType != "sqlite" {
		t.Errorf("Expected sqlite, got %q", cfg.DBType)
	}
}

func TestLoadRequiresProviderCredentials(t *testing.T) {
	setProviderEnv(t)
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("PROVIDER_CLIENT_SECRET", "")

	if _, err := config.Load(); err == nil {
		t.Fatal("Expected an error without provider credentials")
	}
}
