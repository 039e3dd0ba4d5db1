package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cfi/selfservice/internal/model"
)

type Config struct {
	ServiceName       string
	HTTPListenAddr    string
	MetricsListenAddr string
	LogLevel          string
	DevMode           bool

	RegionName     string
	AWSEndpointURL string // optional override, e.g. LocalStack
	// AccessRequestsTable is the DynamoDB table holding access requests.
	AccessRequestsTable string

	// Cognito identifiers are normally read from Secrets Manager at startup.
	// CognitoClientID / CognitoUserPoolID skip the lookup when set.
	CognitoClientID         string
	CognitoUserPoolID       string
	CognitoClientIDSecret   model.SecretRef
	CognitoUserPoolIDSecret model.SecretRef
	AdminGroup              string

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool
	RedisURL      string

	VPNProfileBucket string
	VPNProfilePrefix string
	VPNLinkTTL       time.Duration

	EnvironmentsFile string

	TLSCertFile     string
	TLSKeyFile      string
	TLSClientCAFile string
}

func Load() (*Config, error) {
	devMode := getEnv("DEV_MODE", "") == "true"

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "8h"))
	if err != nil {
		return nil, fmt.Errorf("parse SESSION_TTL: %w", err)
	}
	vpnLinkTTL, err := time.ParseDuration(getEnv("VPN_LINK_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("parse VPN_LINK_TTL: %w", err)
	}

	cookieSecure := !devMode
	if v := getEnv("COOKIE_SECURE", ""); v != "" {
		cookieSecure = v == "true"
	}

	cfg := &Config{
		ServiceName:       getEnv("SERVICE_NAME", "selfservice-portal"),
		HTTPListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsListenAddr: getEnv("METRICS_LISTEN_ADDR", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DevMode:           devMode,

		RegionName:          getEnv("REGION_NAME", ""),
		AWSEndpointURL:      getEnv("AWS_ENDPOINT_URL", ""),
		AccessRequestsTable: getEnv("DYNAMO_DB_ACCESS_REQUESTS_TABLE_NAME", ""),

		CognitoClientID:   getEnv("COGNITO_CLIENT_ID", ""),
		CognitoUserPoolID: getEnv("COGNITO_USER_POOL_ID", ""),
		CognitoClientIDSecret: model.SecretRef{
			Name: getEnv("COGNITO_CLIENT_ID_NAME", ""),
			Key:  getEnv("COGNITO_CLIENT_ID_KEY", ""),
		},
		CognitoUserPoolIDSecret: model.SecretRef{
			Name: getEnv("COGNITO_USER_POOL_ID_NAME", ""),
			Key:  getEnv("COGNITO_USER_POOL_ID_KEY", ""),
		},
		AdminGroup: getEnv("COGNITO_USER_POOL_ADMIN_GROUP_NAME", "Admins"),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    sessionTTL,
		CookieSecure:  cookieSecure,
		RedisURL:      getEnv("REDIS_URL", ""),

		VPNProfileBucket: getEnv("VPN_PROFILE_BUCKET", ""),
		VPNProfilePrefix: getEnv("VPN_PROFILE_PREFIX", "vpn-profiles/"),
		VPNLinkTTL:       vpnLinkTTL,

		EnvironmentsFile: getEnv("ENVIRONMENTS_FILE", ""),

		TLSCertFile:     getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:      getEnv("TLS_KEY_FILE", ""),
		TLSClientCAFile: getEnv("TLS_CLIENT_CA_FILE", ""),
	}

	return cfg, nil
}

// Validate checks the settings required by the named binary ("portal" or
// "portalctl").
func (c *Config) Validate(binary string) error {
	var missing []string
	if c.RegionName == "" {
		missing = append(missing, "REGION_NAME")
	}
	if c.AccessRequestsTable == "" {
		missing = append(missing, "DYNAMO_DB_ACCESS_REQUESTS_TABLE_NAME")
	}

	if binary == "portal" {
		if c.HTTPListenAddr == "" {
			missing = append(missing, "HTTP_LISTEN_ADDR")
		}
		if c.SessionSecret == "" {
			missing = append(missing, "SESSION_SECRET")
		}
		if c.CognitoClientID == "" && (c.CognitoClientIDSecret.Name == "" || c.CognitoClientIDSecret.Key == "") {
			missing = append(missing, "COGNITO_CLIENT_ID or COGNITO_CLIENT_ID_NAME/COGNITO_CLIENT_ID_KEY")
		}
		if c.CognitoUserPoolID == "" && (c.CognitoUserPoolIDSecret.Name == "" || c.CognitoUserPoolIDSecret.Key == "") {
			missing = append(missing, "COGNITO_USER_POOL_ID or COGNITO_USER_POOL_ID_NAME/COGNITO_USER_POOL_ID_KEY")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if binary == "portal" && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must both be set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
