package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/batepapo/internal/store"
)

func TestLoadDefaults(t *testing.T) {
	req := require.New(t)

	cfg, err := Load()
	req.NoError(err)
	req.Equal("4000", cfg.Port)
	req.Equal(store.DriverMongo, cfg.StoreDriver)
	req.Equal("batePapoUol", cfg.MongoDatabase)
	req.Equal(15*time.Second, cfg.SweepInterval)
	req.Equal(10*time.Second, cfg.StaleAfter)
	req.True(cfg.IsDevelopment())

	sw := cfg.Sweeper()
	req.Equal(cfg.SweepInterval, sw.Interval)
	req.Equal(cfg.StaleAfter, sw.StaleAfter)
}

func TestLoadOverrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/chat.db")
	t.Setenv("STALE_AFTER", "30s")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	req.NoError(err)
	req.False(cfg.IsDevelopment())
	req.Equal(30*time.Second, cfg.StaleAfter)

	opts := cfg.StoreOptions()
	req.Equal(store.DriverSQLite, opts.Driver)
	req.Equal("/tmp/chat.db", opts.SQLitePath)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "cassandra"}, "unknown STORE_DRIVER"},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}, "DATABASE_URL is required"},
		{"redis without url", map[string]string{"STORE_DRIVER": "redis"}, "REDIS_URL is required"},
		{"zero interval", map[string]string{"SWEEP_INTERVAL": "0s"}, "SWEEP_INTERVAL must be positive"},
		{"bad duration", map[string]string{"STALE_AFTER": "soon"}, "STALE_AFTER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.ErrorContains(t, err, tt.want)
		})
	}
}
