package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Tracking.Enabled)
	assert.Equal(t, "web", cfg.Tracking.Origin)
	assert.Equal(t, 3000, cfg.Tracking.IPLookupTimeoutMS)
	assert.Equal(t, 12, cfg.Tracking.SessionTTLHours)
	assert.Equal(t, 2, cfg.Tracking.UnloadMinSeconds)
	assert.Equal(t, 5, cfg.Tracking.MaxPageErrors)
	assert.Len(t, cfg.Tracking.IPEndpoints, 3)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRACKING_ENABLED", "false")
	t.Setenv("TRACKING_IP_ENDPOINTS", "https://one.example/json, https://two.example/json")
	t.Setenv("TRACKING_MAX_PAGE_ERRORS", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Tracking.Enabled)
	assert.Equal(t, []string{"https://one.example/json", "https://two.example/json"}, cfg.Tracking.IPEndpoints)
	assert.Equal(t, 10, cfg.Tracking.MaxPageErrors)
}

func TestDatabaseDSN(t *testing.T) {
	direct := DatabaseConfig{URL: "postgres://u:p@db:5432/lms?sslmode=require"}
	assert.Equal(t, "postgres://u:p@db:5432/lms?sslmode=require", direct.DSN())

	built := DatabaseConfig{
		Host: "db", Port: "5432", User: "lumina", Password: "secret",
		DBName: "lms", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://lumina:secret@db:5432/lms?sslmode=disable", built.DSN())
}

func TestSplitTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitTrim(" a , b ,", ","))
	assert.Nil(t, splitTrim("", ","))
}
