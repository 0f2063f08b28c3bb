package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Encryption EncryptionConfig
	Provider   ProviderConfig
	TLS        TLSConfig
	RateLimit  RateLimitConfig
	Firebase   FirebaseConfig
	Sync       SyncConfig
	Telemetry  TelemetryConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	AllowedHosts []string
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

type AuthConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
}

// EncryptionConfig holds the secret the provider-credential key is derived from.
// When SecretID is set the secret is read from AWS Secrets Manager instead.
type EncryptionConfig struct {
	Secret    string
	SecretID  string
	AWSRegion string
}

type ProviderConfig struct {
	BaseURL         string
	ApplicationID   string
	Environment     string
	ConnectURL      string
	CertificatePath string
	PrivateKeyPath  string
	Timeout         time.Duration
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type RateLimitConfig struct {
	Enabled bool
	// TrustedProxies are the reverse proxies whose X-Forwarded-For is
	// believed. Empty means clients are keyed by socket address only.
	TrustedProxies []netip.Prefix
}

type FirebaseConfig struct {
	CredentialsFile string
	// MessagesFile optionally overrides the notification copy (JSON).
	MessagesFile string
}

type SyncConfig struct {
	Workers int
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	MetricsPort  string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	sessionTTL, err := getDurationEnv("SESSION_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	providerTimeout, err := getDurationEnv("TELLER_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	syncWorkers, err := getIntEnv("SYNC_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	trustedProxies, err := parsePrefixes("RATE_LIMIT_TRUSTED_PROXIES", splitList(getEnv("RATE_LIMIT_TRUSTED_PROXIES", "")))
	if err != nil {
		return nil, err
	}

	environment := strings.ToLower(getEnv("APP_ENV", EnvDevelopment))
	sessionSecret := getEnv("SESSION_SECRET", "")

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			Environment:  environment,
			AllowedHosts: splitList(getEnv("ALLOWED_HOSTS", "")),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        dbPort,
			User:        getEnv("DB_USER", "truebalance"),
			Password:    getEnv("DB_PASSWORD", ""),
			DBName:      getEnv("DB_NAME", "truebalance"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getBoolEnv("DB_AUTO_MIGRATE", true),
		},
		Auth: AuthConfig{
			SessionSecret: sessionSecret,
			SessionTTL:    sessionTTL,
		},
		Encryption: EncryptionConfig{
			// The session secret doubles as the credential secret when no dedicated one is set.
			Secret:    getEnv("TELLER_TOKEN_KEY", sessionSecret),
			SecretID:  getEnv("TELLER_TOKEN_KEY_SECRET_ID", ""),
			AWSRegion: getEnv("AWS_REGION", "us-east-1"),
		},
		Provider: ProviderConfig{
			BaseURL:         strings.TrimRight(getEnv("TELLER_BASE_URL", "https://api.teller.io"), "/"),
			ApplicationID:   getEnv("TELLER_APPLICATION_ID", ""),
			Environment:     getEnv("TELLER_ENVIRONMENT", "sandbox"),
			ConnectURL:      getEnv("TELLER_CONNECT_URL", "https://connect.teller.io"),
			CertificatePath: getEnv("TELLER_CERTIFICATE_PATH", ""),
			PrivateKeyPath:  getEnv("TELLER_PRIVATE_KEY_PATH", ""),
			Timeout:         providerTimeout,
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getBoolEnv("RATE_LIMIT_ENABLED", true),
			TrustedProxies: trustedProxies,
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			MessagesFile:    getEnv("NOTIFICATION_MESSAGES_FILE", ""),
		},
		Sync: SyncConfig{
			Workers: syncWorkers,
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "truebalance-api"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Auth.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if cfg.Sync.Workers < 1 {
		return nil, fmt.Errorf("SYNC_WORKERS must be at least 1")
	}
	if cfg.Provider.Timeout <= 0 {
		return nil, fmt.Errorf("TELLER_TIMEOUT must be positive")
	}
	if (cfg.Provider.CertificatePath == "") != (cfg.Provider.PrivateKeyPath == "") {
		return nil, fmt.Errorf("TELLER_CERTIFICATE_PATH and TELLER_PRIVATE_KEY_PATH must be set together")
	}
	if cfg.IsProduction() && cfg.Provider.ApplicationID == "" {
		return nil, fmt.Errorf("TELLER_APPLICATION_ID is required in production")
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return nil, fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if cfg.TLS.KeyPath == "" {
			return nil, fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as golang-migrate expects.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parsePrefixes accepts CIDRs and bare addresses; a bare address becomes a
// single-host prefix.
func parsePrefixes(key string, values []string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, v := range values {
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s entry %q: %w", key, v, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, v, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
