package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile        = ".env"
	defaultAddr           = ":8080"
	defaultEnvironment    = "local"
	defaultCatalogPath    = "data/catalog.yaml"
	defaultTemplatesDir   = "templates"
	defaultPublicDir      = "public"
	defaultLocalesDir     = "locales"
	defaultCurrencySymbol = "€"
	defaultBrand          = "Zephyr Store"
	defaultReviewsVisible = 3
	defaultLogLevel       = "info"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 120 * time.Second
	minSigningKeyLength   = 32
)

// Config captures runtime configuration for the storefront.
type Config struct {
	Environment string
	Server      ServerConfig
	Paths       PathsConfig
	Storefront  StorefrontConfig
	Security    SecurityConfig
	LogLevel    string
	Dev         bool
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// PathsConfig locates on-disk resources.
type PathsConfig struct {
	Catalog   string
	Templates string
	Public    string
	Locales   string
}

// StorefrontConfig holds presentation settings.
type StorefrontConfig struct {
	Brand          string
	CurrencySymbol string
	ReviewsVisible int
}

// SecurityConfig holds cookie signing material.
type SecurityConfig struct {
	// SigningKey signs the session and storage cookies. Empty means the caller generates an
	// ephemeral key.
	SigningKey string
}

// IsProduction reports whether the storefront runs in the prod environment.
func (c Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load reads configuration with precedence .env < OS env < explicit map.
func Load(opts ...Option) (Config, error) {
	values, err := EnvironmentValues(opts...)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}

	addr := stringWithDefault(lookup, "STOREFRONT_ADDR", "")
	if addr == "" {
		if port := stringWithDefault(lookup, "PORT", ""); port != "" {
			addr = ":" + strings.TrimPrefix(port, ":")
		} else {
			addr = defaultAddr
		}
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "STOREFRONT_ENV", defaultEnvironment)),
		Server: ServerConfig{
			Addr:         addr,
			ReadTimeout:  durationWithDefault(lookup, "STOREFRONT_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "STOREFRONT_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "STOREFRONT_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Paths: PathsConfig{
			Catalog:   stringWithDefault(lookup, "STOREFRONT_CATALOG", defaultCatalogPath),
			Templates: stringWithDefault(lookup, "STOREFRONT_TEMPLATES", defaultTemplatesDir),
			Public:    stringWithDefault(lookup, "STOREFRONT_PUBLIC", defaultPublicDir),
			Locales:   stringWithDefault(lookup, "STOREFRONT_LOCALES", defaultLocalesDir),
		},
		Storefront: StorefrontConfig{
			Brand:          stringWithDefault(lookup, "STOREFRONT_BRAND", defaultBrand),
			CurrencySymbol: stringWithDefault(lookup, "STOREFRONT_CURRENCY_SYMBOL", defaultCurrencySymbol),
			ReviewsVisible: intWithDefault(lookup, "STOREFRONT_REVIEWS_VISIBLE", defaultReviewsVisible),
		},
		Security: SecurityConfig{
			SigningKey: stringWithDefault(lookup, "STOREFRONT_SIGNING_KEY", ""),
		},
		LogLevel: strings.ToLower(stringWithDefault(lookup, "STOREFRONT_LOG_LEVEL", defaultLogLevel)),
		Dev:      boolWithDefault(lookup, "STOREFRONT_DEV", false),
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EnvironmentValues returns the effective key/value environment map after applying the same
// precedence rules as Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	merge := func(source map[string]string) {
		for key, value := range source {
			values[key] = value
		}
	}

	merge(dotEnvValues)
	if options.useSystemEnv {
		system := make(map[string]string)
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			system[strings.TrimSpace(key)] = value
		}
		merge(system)
	}
	merge(options.envMap)

	return values, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		invalid = append(invalid, "Server.Addr")
	}
	if strings.TrimSpace(cfg.Paths.Catalog) == "" {
		invalid = append(invalid, "Paths.Catalog")
	}
	if cfg.Storefront.ReviewsVisible <= 0 {
		invalid = append(invalid, "Storefront.ReviewsVisible")
	}
	if cfg.IsProduction() && len(cfg.Security.SigningKey) < minSigningKeyLength {
		invalid = append(invalid, "Security.SigningKey")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
