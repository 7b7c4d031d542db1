// Package config handles application configuration loading from YAML files,
// .env files and environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "betaportal/internal/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `json:"server" yaml:"server"`
	Database      DatabaseConfig      `json:"database" yaml:"database"`
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`
	Auth          AuthConfig          `json:"auth" yaml:"auth"`
	Access        AccessConfig        `json:"access" yaml:"access"`
	Uploads       UploadsConfig       `json:"uploads" yaml:"uploads"`
	Email         EmailConfig         `json:"email" yaml:"email"`
	Redis         RedisConfig         `json:"redis" yaml:"redis"`
	RateLimit     RateLimitConfig     `json:"rate_limit" yaml:"rate_limit"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port            string        `json:"port" yaml:"port"`
	SessionSecret   string        `json:"session_secret" yaml:"session_secret"`
	Debug           bool          `json:"debug" yaml:"debug"`
	LogLevel        string        `json:"log_level" yaml:"log_level"`
	CORSOrigins     []string      `json:"cors_origins" yaml:"cors_origins"`
	PortalBaseURL   string        `json:"portal_base_url" yaml:"portal_base_url"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "beta-portal"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	// MigrationsPath overrides the embedded migrations with a directory on disk
	MigrationsPath string `json:"migrations_path" yaml:"migrations_path"`
}

// AuthConfig configures verification of identity provider tokens
type AuthConfig struct {
	JWTSecret   string `json:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `json:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `json:"jwt_audience" yaml:"jwt_audience"`
}

// AccessConfig holds the admin allow-list of external identity IDs
type AccessConfig struct {
	AdminUserIDs []string `json:"admin_user_ids" yaml:"admin_user_ids"`
}

// UploadsConfig controls attachment uploads and where their bytes go
type UploadsConfig struct {
	Backend       string   `json:"backend" yaml:"backend"` // "local" or "http"
	MaxBytes      int64    `json:"max_bytes" yaml:"max_bytes"`
	AllowedTypes  []string `json:"allowed_types" yaml:"allowed_types"`
	KeyPrefix     string   `json:"key_prefix" yaml:"key_prefix"`
	LocalDir      string   `json:"local_dir" yaml:"local_dir"`
	PublicBaseURL string   `json:"public_base_url" yaml:"public_base_url"`
	HTTPEndpoint  string   `json:"http_endpoint" yaml:"http_endpoint"`
	HTTPToken     string   `json:"http_token" yaml:"http_token"`
}

// EmailConfig represents email/SMTP configuration
type EmailConfig struct {
	SMTP    SMTPConfig `json:"smtp" yaml:"smtp"`
	Enabled bool       `json:"enabled" yaml:"enabled"`
}

// SMTPConfig represents SMTP server configuration
type SMTPConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password" yaml:"password"`
	FromAddress string `json:"from_address" yaml:"from_address"`
	FromName    string `json:"from_name" yaml:"from_name"`
}

// RedisConfig configures the optional Redis client used for rate limiting
type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// RateLimitConfig is a fixed-window limit applied to write endpoints
type RateLimitConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Requests int           `json:"requests" yaml:"requests"`
	Window   time.Duration `json:"window" yaml:"window"`
}

// Default returns a configuration with every field at its default value
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			LogLevel:        "info",
			SessionSecret:   "change-me",
			PortalBaseURL:   "http://localhost:3000",
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: DatabaseConnMaxLifetime,
		},
		OpenTelemetry: OpenTelemetryConfig{
			Endpoint:     "localhost:4317",
			Protocol:     "grpc",
			Insecure:     true,
			ServiceName:  "beta-portal",
			SamplingRate: 1.0,
		},
		Uploads: UploadsConfig{
			Backend:       "local",
			MaxBytes:      DefaultMaxUploadBytes,
			AllowedTypes:  append([]string(nil), DefaultAllowedUploadTypes...),
			KeyPrefix:     DefaultUploadKeyPrefix,
			LocalDir:      "./data/uploads",
			PublicBaseURL: "/uploads",
		},
		Email: EmailConfig{
			SMTP: SMTPConfig{
				Port:        587,
				FromAddress: "beta@adaptensor.io",
				FromName:    "Adaptensor Beta",
			},
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		RateLimit: RateLimitConfig{
			Requests: 30,
			Window:   time.Minute,
		},
	}
}

// NewConfig loads .env, then the YAML file, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	if err := loadDotEnv(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load env file: %w", err)
	}

	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.normalize()

	return config, nil
}

// IsAdminListConfigured reports whether any admin IDs are configured
func (c *Config) IsAdminListConfigured() bool {
	return len(c.Access.AdminUserIDs) > 0
}

// loadDotEnv reads BETA_ENV_FILE (or .env) without overriding variables already set
func loadDotEnv() error {
	path := os.Getenv("BETA_ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// normalize applies aliases and cleans list values after all sources are merged
func (c *Config) normalize() {
	if legacy := os.Getenv("ADMIN_USER_IDS"); legacy != "" && os.Getenv("ACCESS_ADMIN_USER_IDS") == "" {
		c.Access.AdminUserIDs = strings.Split(legacy, ",")
	}
	c.Access.AdminUserIDs = cleanList(c.Access.AdminUserIDs)
	c.Server.CORSOrigins = cleanList(c.Server.CORSOrigins)
	c.Uploads.AllowedTypes = cleanList(c.Uploads.AllowedTypes)
	c.Uploads.KeyPrefix = strings.Trim(c.Uploads.KeyPrefix, "/")

	if c.Uploads.MaxBytes <= 0 {
		c.Uploads.MaxBytes = DefaultMaxUploadBytes
	}
	if len(c.Uploads.AllowedTypes) == 0 {
		c.Uploads.AllowedTypes = append([]string(nil), DefaultAllowedUploadTypes...)
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

var durationType = reflect.TypeOf(time.Duration(0))

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables.
// Keys are the upper-cased yaml tags joined with '_' (server.port -> SERVER_PORT).
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		if field.Type() == durationType {
			if envVal := os.Getenv(envKey); envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				// Comma-separated lists (CORS origins, admin IDs, upload types)
				if field.Type().Elem().Kind() == reflect.String {
					field.Set(reflect.ValueOf(strings.Split(envVal, ",")))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
			}
		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				overrideStructFromEnvWithPrefix(field.Interface(), envKey)
			}
		}
	}
}

// loadConfigWithOverrides loads the file named by BETA_CONFIG_FILE, or config.yaml when present
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv("BETA_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file on top of the defaults
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	return config, nil
}
