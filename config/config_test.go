package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ReadsNestedKeys(t *testing.T) {
	t.Setenv("DB_DATABASE", "pawsewa")
	t.Setenv("DB_USERNAME", "postgres")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PAYMENT_GATEWAY_TIMEOUT", "3s")
	t.Setenv("GEOFENCE_ENABLED", "false")
	t.Setenv("EVENT_BUS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "pawsewa", cfg.Database.Name)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 3*time.Second, cfg.Payment.GatewayTimeout)
	assert.False(t, cfg.Geofence.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.EventBus.KafkaBrokers)
	assert.Equal(t, 1024, cfg.EventBus.QueueSize)
	assert.Equal(t, 24*time.Hour, cfg.Realtime.ChatReadOnlyAfter)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	t.Setenv("DB_DATABASE", "pawsewa")
	t.Setenv("DB_USERNAME", "postgres")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestGeofence_Contains(t *testing.T) {
	fence := Geofence{Enabled: true, MinLat: 27.55, MaxLat: 27.82, MinLng: 85.18, MaxLng: 85.55}

	assert.True(t, fence.Contains(27.7172, 85.3240))
	assert.False(t, fence.Contains(28.2096, 83.9856))

	fence.Enabled = false
	assert.True(t, fence.Contains(28.2096, 83.9856))
}

func TestLoadPlans_Defaults(t *testing.T) {
	catalog, err := LoadPlans("")
	require.NoError(t, err)

	basic, ok := catalog.Find("basic")
	require.True(t, ok)
	assert.Equal(t, int64(500), basic.MonthlyPrice)
	assert.Equal(t, 5, basic.MaxListings)

	premium, ok := catalog.Find("premium")
	require.True(t, ok)
	assert.Equal(t, -1, premium.MaxListings)
	assert.Equal(t, 15.0, catalog.DefaultFeePercent)

	_, ok = catalog.Find("gold")
	assert.False(t, ok)
}

func TestLoadPlans_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[plan]]
name = "basic"
monthly_price = 700
yearly_price = 7000
max_listings = 2
`), 0o600))

	catalog, err := LoadPlans(path)
	require.NoError(t, err)
	basic, ok := catalog.Find("basic")
	require.True(t, ok)
	assert.Equal(t, int64(700), basic.MonthlyPrice)
	assert.Equal(t, 15.0, catalog.DefaultFeePercent)
}
