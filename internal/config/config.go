package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"order-reconciliation/internal/domain"
)

// Config holds application configuration.
type Config struct {
	Run      RunConfig      `mapstructure:"run"`
	Export   ExportConfig   `mapstructure:"export"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Legacy   LegacyConfig   `mapstructure:"legacy"`
	Log      LogConfig      `mapstructure:"log"`
}

// RunConfig controls what one reconciliation run does.
type RunConfig struct {
	// RunFor selects and orders catalogue entries. Empty runs the catalogue's own selection.
	RunFor         []string `mapstructure:"run_for"`
	CategoriesFile string   `mapstructure:"categories_file"`
	Workers        int      `mapstructure:"workers"`
	OutputDir      string   `mapstructure:"output_dir"`
	SaveReports    bool     `mapstructure:"save_reports"`
	ReportsDir     string   `mapstructure:"reports_dir"`
	// ReplayDir reads previously saved exports instead of calling the export endpoint.
	ReplayDir string `mapstructure:"replay_dir"`
}

// ExportConfig holds the export endpoint settings.
type ExportConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// DeliveryConfig holds the delivery portal settings.
type DeliveryConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	Timezone  string        `mapstructure:"timezone"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Retries   int           `mapstructure:"retries"`
	Backoff   time.Duration `mapstructure:"backoff"`
	RateLimit float64       `mapstructure:"rate_limit"`
}

// LegacyConfig holds the legacy order portal settings.
type LegacyConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Retries  int           `mapstructure:"retries"`
	Backoff  time.Duration `mapstructure:"backoff"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// credentialEnv lists the plain environment names the portal credentials were
// historically kept under. RECONCILER_ prefixed names take precedence.
var credentialEnv = map[string][]string{
	"delivery.username": {"RECONCILER_DELIVERY_USERNAME", "swapUserName"},
	"delivery.password": {"RECONCILER_DELIVERY_PASSWORD", "Password"},
	"legacy.username":   {"RECONCILER_LEGACY_USERNAME", "secretUser"},
	"legacy.password":   {"RECONCILER_LEGACY_PASSWORD", "wmPassword"},
}

// Load reads configuration from file and env. Env var overrides use prefix RECONCILER_.
// An empty path looks for reconciler.yaml in the working directory and skips it when absent.
func Load(path string) (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("reconciler")
	}

	v.SetEnvPrefix("RECONCILER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, names := range credentialEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, fmt.Errorf("%w: bind %s: %w", domain.ErrConfiguration, key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("%w: read config: %w", domain.ErrConfiguration, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("%w: unmarshal config: %w", domain.ErrConfiguration, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run.run_for", []string{})
	v.SetDefault("run.categories_file", "")
	v.SetDefault("run.workers", 4)
	v.SetDefault("run.output_dir", "reports")
	v.SetDefault("run.save_reports", false)
	v.SetDefault("run.reports_dir", filepath.Join("reports", "raw"))
	v.SetDefault("run.replay_dir", "")

	v.SetDefault("export.url", "https://api-digital2.isddc.men.maxis.com.my/ecommerce/api/v4.0/cms/order/masterreport")
	v.SetDefault("export.headers", map[string]any{
		"accept":        "application/json, text/plain, */*",
		"cache-control": "no-cache",
		"pragma":        "no-cache",
		"filterchannel": "",
	})
	v.SetDefault("export.timeout", 2*time.Minute)

	v.SetDefault("delivery.base_url", "https://delivery-maxis.swap-asia.com")
	v.SetDefault("delivery.username", "")
	v.SetDefault("delivery.password", "")
	v.SetDefault("delivery.timezone", "-480")
	v.SetDefault("delivery.timeout", 30*time.Second)
	v.SetDefault("delivery.retries", 3)
	v.SetDefault("delivery.backoff", 30*time.Second)
	v.SetDefault("delivery.rate_limit", 0.0)

	v.SetDefault("legacy.base_url", "http://10.200.50.152:8989")
	v.SetDefault("legacy.username", "")
	v.SetDefault("legacy.password", "")
	v.SetDefault("legacy.timeout", 30*time.Second)
	v.SetDefault("legacy.retries", 5)
	v.SetDefault("legacy.backoff", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// loadDotEnv reads ./.env and then ~/.env. Variables already in the environment
// are never overridden, so the first file to define a name wins.
func loadDotEnv() error {
	paths := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".env"))
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("%w: load %s: %w", domain.ErrConfiguration, p, err)
		}
	}
	return nil
}

// Validate rejects settings no run could succeed with.
func (c Config) Validate() error {
	if c.Run.Workers < 1 {
		return fmt.Errorf("%w: run.workers must be at least 1, got %d", domain.ErrConfiguration, c.Run.Workers)
	}
	if c.Run.ReplayDir == "" && c.Export.URL == "" {
		return fmt.Errorf("%w: export.url is required unless run.replay_dir is set", domain.ErrConfiguration)
	}
	if c.Delivery.Retries < 1 {
		return fmt.Errorf("%w: delivery.retries must be at least 1, got %d", domain.ErrConfiguration, c.Delivery.Retries)
	}
	if c.Legacy.Retries < 1 {
		return fmt.Errorf("%w: legacy.retries must be at least 1, got %d", domain.ErrConfiguration, c.Legacy.Retries)
	}
	if c.Delivery.Backoff < 0 || c.Legacy.Backoff < 0 {
		return fmt.Errorf("%w: backoff must not be negative", domain.ErrConfiguration)
	}
	if c.Delivery.RateLimit < 0 {
		return fmt.Errorf("%w: delivery.rate_limit must not be negative", domain.ErrConfiguration)
	}
	return nil
}
