package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 6, cfg.SnapshotHourUTC)
	assert.Equal(t, 6, cfg.AlertSweepHours)
	assert.False(t, cfg.IngestionEnabled)
	assert.Equal(t, "reputation-exports", cfg.StorageContainer)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG", "true")
	t.Setenv("WORKSPACE_IDS", "ws-1,ws-2")
	t.Setenv("SNAPSHOT_HOUR_UTC", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"ws-1", "ws-2"}, cfg.Workspaces)
	assert.Equal(t, 3, cfg.SnapshotHourUTC)
}

func TestLoad_InvalidSnapshotHour(t *testing.T) {
	t.Setenv("SNAPSHOT_HOUR_UTC", "25")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EmailRequiresSMTP(t *testing.T) {
	t.Setenv("NOTIFICATION_EMAIL", "team@example.com")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USERNAME", "mailer")
	t.Setenv("SMTP_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "team@example.com", cfg.NotificationEmail)
}

func TestLoad_IngestionRequiresWorkspace(t *testing.T) {
	t.Setenv("ENABLE_INGESTION", "true")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DEFAULT_WORKSPACE_ID", "ws-main")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IngestionEnabled)
}
