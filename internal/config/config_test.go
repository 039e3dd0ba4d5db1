package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_LISTEN_ADDR", "LOG_LEVEL", "SESSION_TTL", "VPN_LINK_TTL",
		"COGNITO_USER_POOL_ADMIN_GROUP_NAME", "DEV_MODE", "COOKIE_SECURE", "REDIS_URL", "VPN_PROFILE_PREFIX"} {
		os.Unsetenv(k)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "Admins", cfg.AdminGroup)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.VPNLinkTTL)
	assert.Equal(t, "vpn-profiles/", cfg.VPNProfilePrefix)
	assert.True(t, cfg.CookieSecure)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "", cfg.RedisURL)
}

func TestLoad_AllEnvVars(t *testing.T) {
	t.Setenv("HTTP_LISTEN_ADDR", ":9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REGION_NAME", "eu-west-2")
	t.Setenv("DYNAMO_DB_ACCESS_REQUESTS_TABLE_NAME", "access-requests")
	t.Setenv("COGNITO_CLIENT_ID_NAME", "cognito")
	t.Setenv("COGNITO_CLIENT_ID_KEY", "client_id")
	t.Setenv("COGNITO_USER_POOL_ID_NAME", "cognito")
	t.Setenv("COGNITO_USER_POOL_ID_KEY", "pool_id")
	t.Setenv("COGNITO_USER_POOL_ADMIN_GROUP_NAME", "PortalAdmins")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("VPN_PROFILE_BUCKET", "vpn-bucket")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "eu-west-2", cfg.RegionName)
	assert.Equal(t, "access-requests", cfg.AccessRequestsTable)
	assert.Equal(t, "cognito", cfg.CognitoClientIDSecret.Name)
	assert.Equal(t, "client_id", cfg.CognitoClientIDSecret.Key)
	assert.Equal(t, "pool_id", cfg.CognitoUserPoolIDSecret.Key)
	assert.Equal(t, "PortalAdmins", cfg.AdminGroup)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "vpn-bucket", cfg.VPNProfileBucket)
	assert.True(t, cfg.DevMode)
	assert.False(t, cfg.CookieSecure)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TTL")
}

func TestValidate_Portal_MissingFields(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("portal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REGION_NAME")
	assert.Contains(t, err.Error(), "DYNAMO_DB_ACCESS_REQUESTS_TABLE_NAME")
	assert.Contains(t, err.Error(), "HTTP_LISTEN_ADDR")
	assert.Contains(t, err.Error(), "SESSION_SECRET")
	assert.Contains(t, err.Error(), "COGNITO_CLIENT_ID")
	assert.Contains(t, err.Error(), "COGNITO_USER_POOL_ID")
}

func TestValidate_Portalctl_MissingFields(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("portalctl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REGION_NAME")
	assert.NotContains(t, err.Error(), "SESSION_SECRET")
}

func TestValidate_Portal_Valid(t *testing.T) {
	cfg := validPortalConfig()
	assert.NoError(t, cfg.Validate("portal"))
}

func TestValidate_Portal_ShortSessionSecret(t *testing.T) {
	cfg := validPortalConfig()
	cfg.SessionSecret = "too-short"
	err := cfg.Validate("portal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestValidate_TLSPair(t *testing.T) {
	cfg := validPortalConfig()
	cfg.TLSCertFile = "/etc/portal/tls.crt"
	err := cfg.Validate("portal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TLS_KEY_FILE")
}

func TestValidate_DirectCognitoIDs(t *testing.T) {
	cfg := validPortalConfig()
	cfg.CognitoClientIDSecret = cfg.CognitoUserPoolIDSecret
	cfg.CognitoClientIDSecret.Name = ""
	cfg.CognitoClientID = "abc123"
	assert.NoError(t, cfg.Validate("portal"))
}

func validPortalConfig() *Config {
	cfg := &Config{
		HTTPListenAddr:      ":8080",
		RegionName:          "eu-west-2",
		AccessRequestsTable: "access-requests",
		SessionSecret:       "0123456789abcdef0123456789abcdef",
	}
	cfg.CognitoClientIDSecret.Name = "cognito"
	cfg.CognitoClientIDSecret.Key = "client_id"
	cfg.CognitoUserPoolIDSecret.Name = "cognito"
	cfg.CognitoUserPoolIDSecret.Key = "pool_id"
	return cfg
}
