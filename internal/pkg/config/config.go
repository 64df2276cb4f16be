package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	DB       string `mapstructure:"db"`
	Username string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

type RepositoriesConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
}

// StorageConfig points at an S3 compatible bucket host (AWS S3 or Cloudflare R2).
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	AvatarMaxMB     int64  `mapstructure:"avatar_max_mb"`
	ImageMaxMB      int64  `mapstructure:"image_max_mb"`
}

// Enabled reports whether uploads can be stored.
func (c StorageConfig) Enabled() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != "" && c.PublicBaseURL != ""
}

type PlacesConfig struct {
	GoogleAPIKey string        `mapstructure:"google_api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type CatalogConfig struct {
	ProvinceAPIURL  string `mapstructure:"province_api_url"`
	ImportProvinces bool   `mapstructure:"import_provinces"`
}

type RoutesConfig struct {
	RequireModeration bool `mapstructure:"require_moderation"`
}

type ObservabilityConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	PprofAddr    string `mapstructure:"pprof_addr"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Repositories  RepositoriesConfig  `mapstructure:"repositories"`
	ServerPort    string              `mapstructure:"server_port"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Places        PlacesConfig        `mapstructure:"places"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Routes        RoutesConfig        `mapstructure:"routes"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Log           LogConfig           `mapstructure:"log"`
}

// DemoMode is true when no database credentials are configured. The service
// then serves the embedded catalog and keeps every write in memory.
func (c *Config) DemoMode() bool {
	return c.Repositories.Postgres.Password == ""
}

// legacyEnv keeps the bare variable names used by existing deployments.
var legacyEnv = map[string]string{
	"repositories.postgres.host":     "POSTGRES_HOST",
	"repositories.postgres.port":     "POSTGRES_PORT",
	"repositories.postgres.db":       "POSTGRES_DB",
	"repositories.postgres.user":     "POSTGRES_USER",
	"repositories.postgres.password": "POSTGRES_PASSWORD",
	"repositories.postgres.sslmode":  "POSTGRES_SSLMODE",
	"server_port":                    "SERVER_PORT",
	"auth.jwt_secret":                "JWT_SECRET_KEY",
	"places.google_api_key":          "GOOGLE_PLACES_API_KEY",
}

// Load reads configuration from defaults, the optional file named by
// GURUME_CONFIG and the environment, in increasing precedence.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("GURUME_CONFIG"))
}

// LoadFile is Load with an explicit config file path; an empty path skips the file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("repositories.postgres.host", "localhost")
	v.SetDefault("repositories.postgres.port", "5454")
	v.SetDefault("repositories.postgres.db", "gurume")
	v.SetDefault("repositories.postgres.user", "postgres")
	v.SetDefault("repositories.postgres.password", "")
	v.SetDefault("repositories.postgres.sslmode", "disable")
	v.SetDefault("repositories.postgres.max_conns", 30)
	v.SetDefault("repositories.postgres.min_conns", 5)
	v.SetDefault("server_port", "8091")
	v.SetDefault("auth.jwt_secret", "default-secret-key-change-in-production-min-32-chars")
	v.SetDefault("auth.access_token_ttl", "24h")
	v.SetDefault("auth.refresh_token_ttl", "168h")
	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("auth.issuer", "gurume")
	v.SetDefault("auth.audience", "gurume-app")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.avatar_max_mb", 2)
	v.SetDefault("storage.image_max_mb", 5)
	v.SetDefault("places.google_api_key", "")
	v.SetDefault("places.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("places.cache_ttl", "10m")
	v.SetDefault("places.timeout", "10s")
	v.SetDefault("catalog.province_api_url", "https://turkiyeapi.dev/api/v1/provinces")
	v.SetDefault("catalog.import_provinces", false)
	v.SetDefault("routes.require_moderation", false)
	v.SetDefault("observability.service_name", "gurume")
	v.SetDefault("observability.metrics_addr", ":9092")
	v.SetDefault("observability.pprof_addr", ":6060")
	v.SetDefault("observability.otlp_endpoint", "otel-collector:4318")
	v.SetDefault("log.level", "info")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var parseErr viper.ConfigParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("GURUME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := "GURUME_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
