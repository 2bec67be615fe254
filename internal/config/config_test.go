package config

import (
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"APP_ENV":                  "",
		"PORT":                     "",
		"REDIS_URL":                "",
		"CALC_CACHE_TTL":           "",
		"CALC_RATE_LIMIT_MAX":      "",
		"DEFAULT_RENDER_FORMAT":    "",
		"HTTP_BODY_LIMIT_BYTES":    "",
		"SECURITY_HEADERS_ENABLED": "",
		"PRESETS_FILE":             "",
		"PRESETS_WATCH":            "",
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.False(t, cfg.RedisEnabled())
	require.Equal(t, 10*time.Minute, cfg.CalcCacheTTL)
	require.Equal(t, 120, cfg.RateLimitMax)
	require.Equal(t, "text", cfg.DefaultRenderFormat)
	require.EqualValues(t, 16*1024, cfg.BodyLimitBytes)
	require.True(t, cfg.SecurityHeadersEnabled)
	require.Empty(t, cfg.PresetsFile)
	require.False(t, cfg.PresetsWatch)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"PORT":                   ":9090",
		"REDIS_URL":              "redis://localhost:6379/0",
		"CALC_CACHE_TTL":         "30s",
		"CALC_RATE_LIMIT_MAX":    "5",
		"CALC_RATE_LIMIT_WINDOW": "10s",
		"CORS_ALLOWED_ORIGINS":   "https://a.example, https://b.example",
		"DEFAULT_RENDER_FORMAT":  "HTML",
		"PRESETS_FILE":           " /etc/unitprice/presets.yaml ",
		"PRESETS_WATCH":          "true",
		"TRUSTED_PROXIES":        "10.0.0.0/8, 192.0.2.10",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.True(t, cfg.RedisEnabled())
	require.Equal(t, 30*time.Second, cfg.CalcCacheTTL)
	require.Equal(t, 5, cfg.RateLimitMax)
	require.Equal(t, 10*time.Second, cfg.RateLimitWindow)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, "html", cfg.DefaultRenderFormat)
	require.Equal(t, "/etc/unitprice/presets.yaml", cfg.PresetsFile)
	require.True(t, cfg.PresetsWatch)
	require.Equal(t, []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8"), netip.MustParsePrefix("192.0.2.10/32")}, cfg.TrustedProxies)
}

func TestLoadRejectsBadTrustedProxy(t *testing.T) {
	_, err := LoadForTests(map[string]string{"TRUSTED_PROXIES": "10.0.0.0/40"})
	require.Error(t, err)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	_, err := LoadForTests(map[string]string{"DEFAULT_RENDER_FORMAT": "xml"})
	require.Error(t, err)
}

func TestLoadForTestsRestoresEnv(t *testing.T) {
	t.Setenv("CALC_RATE_LIMIT_MAX", "7")
	_, err := LoadForTests(map[string]string{"CALC_RATE_LIMIT_MAX": "9"})
	require.NoError(t, err)
	require.Equal(t, "7", os.Getenv("CALC_RATE_LIMIT_MAX"))
}
