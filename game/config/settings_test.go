package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadSettings_Defaults(t *testing.T) {
	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if settings.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", settings.Port)
	}
	if settings.ConfigDir != "configs" {
		t.Errorf("Expected default config dir 'configs', got '%s'", settings.ConfigDir)
	}
	if settings.Database.Type != SQLite {
		t.Errorf("Expected default database sqlite3, got %s", settings.Database.Type)
	}
	if settings.Database.QueryTimeout != 5*time.Second {
		t.Errorf("Expected default query timeout 5s, got %s", settings.Database.QueryTimeout)
	}
}

func TestLoadSettings_FromEnv(t *testing.T) {
	t.Setenv("SKYTRACK_PORT", "9090")
	t.Setenv("SKYTRACK_WORLD", "/tmp/world.yaml")
	t.Setenv("SKYTRACK_DB_TYPE", "postgres")
	t.Setenv("SKYTRACK_DB_NAME", "skytrack")
	t.Setenv("SKYTRACK_DB_HOST", "db.internal")
	t.Setenv("SKYTRACK_DB_QUERY_TIMEOUT", "2s")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if settings.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", settings.Port)
	}
	if settings.WorldFile != "/tmp/world.yaml" {
		t.Errorf("Expected world '/tmp/world.yaml', got '%s'", settings.WorldFile)
	}
	if settings.Database.Type != PostgreSQL {
		t.Errorf("Expected postgres, got %s", settings.Database.Type)
	}
	if settings.Database.Host != "db.internal" {
		t.Errorf("Expected host 'db.internal', got '%s'", settings.Database.Host)
	}
	if settings.Database.QueryTimeout != 2*time.Second {
		t.Errorf("Expected query timeout 2s, got %s", settings.Database.QueryTimeout)
	}
}

func TestLoadSettings_RejectsUnknownDatabase(t *testing.T) {
	t.Setenv("SKYTRACK_DB_TYPE", "oracle")

	if _, err := LoadSettings(); err == nil {
		t.Error("Expected error for unsupported database type")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	db := DatabaseConfig{
		Type:     MySQL,
		Name:     "flight_game",
		Host:     "localhost",
		Username: "root",
		Password: "secret",
	}

	dsn := db.mysqlDSN()
	for _, want := range []string{"root:secret@tcp(localhost:3306)/flight_game", "parseTime=True", "clientFoundRows=true"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("Expected mysql DSN to contain '%s', got '%s'", want, dsn)
		}
	}

	db.Type = PostgreSQL
	db.EnableSSL = true
	dsn = db.postgresDSN()
	for _, want := range []string{"dbname=flight_game", "port=5432", "sslmode=require"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("Expected postgres DSN to contain '%s', got '%s'", want, dsn)
		}
	}
}

func TestDatabaseConfig_GetDialector(t *testing.T) {
	tests := []struct {
		dbType DatabaseType
		want   string
	}{
		{SQLite, "sqlite"},
		{MySQL, "mysql"},
		{PostgreSQL, "postgres"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dbType), func(t *testing.T) {
			db := DatabaseConfig{Type: tt.dbType, Name: "test.db", QueryTimeout: time.Second}
			dialector := db.GetDialector()
			if dialector == nil {
				t.Fatal("Expected a dialector")
			}
			if dialector.Name() != tt.want {
				t.Errorf("Expected dialector %s, got %s", tt.want, dialector.Name())
			}
		})
	}

	memory := DatabaseConfig{Type: Memory}
	if memory.GetDialector() != nil {
		t.Error("Expected no dialector for the memory store")
	}
}
