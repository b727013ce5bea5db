package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0", cfg.Host)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, EnvProd, cfg.Env)
	require.Equal(t, int64(32768), cfg.ReadLimit)
	require.Zero(t, cfg.IdleTimeout)
	require.False(t, cfg.RedisEnabled())
}

func TestNewFromEnvironment(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "dev")
	t.Setenv("ORIGIN_PATTERNS", "example.com,*.example.org")
	t.Setenv("IDLE_TIMEOUT", "90s")
	t.Setenv("REDIS_HOST", "redis")

	cfg, err := New()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1", cfg.Host)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, EnvDev, cfg.Env)
	require.Equal(t, []string{"example.com", "*.example.org"}, cfg.OriginPatterns)
	require.Equal(t, 90*time.Second, cfg.IdleTimeout)
	require.True(t, cfg.RedisEnabled())
	require.Equal(t, "6379", cfg.RedisPort)
	require.Equal(t, "chat:announce", cfg.RedisAnnounceChannel)
}

func TestNewRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown env":      {"ENV": "staging"},
		"negative idle":    {"IDLE_TIMEOUT": "-1s"},
		"zero read limit":  {"READ_LIMIT": "0"},
		"unparsable limit": {"READ_LIMIT": "lots"},
	}

	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := New()
			require.Error(t, err)
		})
	}
}

func TestValidateRequiresAnnouncerWithRedis(t *testing.T) {
	cfg := Config{Port: "8080", ReadLimit: 1024, Env: EnvProd, RedisHost: "redis", InstanceID: "a"}
	require.Error(t, cfg.Validate())

	cfg.AnnouncerID = "server"
	require.NoError(t, cfg.Validate())
}

func TestPresenceKeyIsPerInstance(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("INSTANCE_ID", "chat-1")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, "chat:presence:chat-1", cfg.PresenceKey())

	other := *cfg
	other.InstanceID = "chat-2"
	require.NotEqual(t, cfg.PresenceKey(), other.PresenceKey())
}

func TestInstanceIDDefaultsToHostname(t *testing.T) {
	hostname, err := os.Hostname()
	require.NoError(t, err)

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, hostname, cfg.InstanceID)
}
