package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyaat/Atlas/internal/domain"
	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/lifecycle"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, "data/atlas.db", cfg.SQLitePath)
	assert.Equal(t, "@every 10m", cfg.SweepSchedule)
	assert.Equal(t, 4, cfg.SweepWorkers)
	assert.Equal(t, 500, cfg.SweepBatch)
	assert.Equal(t, 2*time.Minute, cfg.ClaimTTL)
	assert.Equal(t, "production", cfg.LifecycleProfile)
}

func TestFromEnv_PostgresInferred(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"DATABASE_URL":  "postgres://atlas@db:5432/atlas?sslmode=disable",
		"SWEEP_BUDGET":  "90s",
		"CLAIM_TTL":     "1d",
		"LOG_PRETTY":    "true",
		"SWEEP_WORKERS": "8",
	}))
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 90*time.Second, cfg.SweepBudget)
	assert.Equal(t, 24*time.Hour, cfg.ClaimTTL)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, 8, cfg.SweepWorkers)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad driver":        {"STORAGE_DRIVER": "mysql"},
		"postgres no host":  {"STORAGE_DRIVER": "postgres", "DATABASE_URL": "atlas"},
		"channel missing":   {"DISCORD_TOKEN": "t"},
		"channel not id":    {"DISCORD_TOKEN": "t", "DISCORD_CHANNEL_ID": "general"},
		"workers":           {"SWEEP_WORKERS": "0"},
		"workers not a num": {"SWEEP_WORKERS": "many"},
		"bad bool":          {"LOG_PRETTY": "sometimes"},
		"bad duration":      {"CLAIM_TTL": "soon"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envOf(env))
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"":      0,
		"0":     0,
		"8w":    8 * 7 * 24 * time.Hour,
		"3d":    72 * time.Hour,
		"90m":   90 * time.Minute,
		"1h30m": 90 * time.Minute,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"-1w", "1.5d", "w", "tomorrow"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

const customProfile = `
round_to_hour: false
steps:
  - status: verified
    after: 0s
  - status: needs_review
    after: 3d
  - status: needs_urgent_review
    after: 4d
  - status: expired
    after: 1w
  - status: archived
    after: 2w
`

func TestLoadTable(t *testing.T) {
	tbl, err := LoadTable("accelerated")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Accelerated(), tbl)

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customProfile), 0o600))
	tbl, err = LoadTable(path)
	require.NoError(t, err)
	require.Len(t, tbl.Steps, 5)
	assert.False(t, tbl.RoundToHour)
	assert.Equal(t, entities.StatusNeedsReview, tbl.Steps[1].Status)
	assert.Equal(t, 72*time.Hour, tbl.Steps[1].After)
	assert.Equal(t, 14*24*time.Hour, tbl.Steps[4].After)

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParseTable_Invalid(t *testing.T) {
	cases := map[string]string{
		"not yaml":       "steps: [",
		"unknown status": "steps:\n  - status: pending\n    after: 0s\n",
		"bad duration":   "steps:\n  - status: verified\n    after: later\n",
		"wrong order": `steps:
  - {status: verified, after: 0s}
  - {status: needs_urgent_review, after: 1d}
  - {status: needs_review, after: 2d}
  - {status: expired, after: 3d}
  - {status: archived, after: 4d}
`,
		"not increasing": `steps:
  - {status: verified, after: 0s}
  - {status: needs_review, after: 2d}
  - {status: needs_urgent_review, after: 2d}
  - {status: expired, after: 3d}
  - {status: archived, after: 4d}
`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTable([]byte(raw))
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}
