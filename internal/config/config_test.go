package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestTTLHelpers(t *testing.T) {
	auth := AuthConfig{
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLHours:  720,
		LoginLockTTLMinutes:   30,
	}
	if auth.AccessTokenTTL() != 15*time.Minute {
		t.Errorf("access ttl = %v", auth.AccessTokenTTL())
	}
	if auth.RefreshTokenTTL() != 720*time.Hour {
		t.Errorf("refresh ttl = %v", auth.RefreshTokenTTL())
	}
	if auth.LoginLockTTL() != 30*time.Minute {
		t.Errorf("lock ttl = %v", auth.LoginLockTTL())
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		Name:     "club",
		User:     "club",
		Password: "secret",
		SSLMode:  "require",
	}
	dsn := db.DSN()
	for _, part := range []string{"host=db.internal", "port=5433", "dbname=club", "sslmode=require"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("dsn missing %q: %s", part, dsn)
		}
	}
}

func TestAllowedOriginList(t *testing.T) {
	api := APIConfig{AllowedOrigins: " https://club.example , , https://admin.example "}
	got := api.AllowedOriginList()
	want := []string{"https://club.example", "https://admin.example"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("origins = %v, want %v", got, want)
	}

	if origins := (APIConfig{}).AllowedOriginList(); len(origins) != 0 {
		t.Fatalf("empty config should yield no origins, got %v", origins)
	}
}

func TestValidateRejectsMissingDatabase(t *testing.T) {
	cfg := Config{}
	cfg.API.Port = 8080
	if err := validate(cfg); err == nil {
		t.Fatal("validate must reject empty database settings")
	}
}
