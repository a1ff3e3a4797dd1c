package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.Equal(t, EnvDevelopment, cfg.Env)
	require.Equal(t, "/api/v1", cfg.APIPrefix)
	require.Equal(t, 2*time.Minute, cfg.Reports.ListCacheTTL)
	require.Equal(t, 1, cfg.Exports.WorkerConcurrency)
	require.Equal(t, 24*time.Hour, cfg.Exports.SignedURLTTL)
	require.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("EXPORTS_WORKER_CONCURRENCY", 0)
	v.Set("REPORTS_LIST_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	v.Set("JWT_AUDIENCE", "portal")

	cfg := fromViper(v)
	require.Equal(t, 1, cfg.Exports.WorkerConcurrency)
	require.Equal(t, 2*time.Minute, cfg.Reports.ListCacheTTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, []string{"portal"}, cfg.JWT.Audience)
}
