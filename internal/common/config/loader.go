// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "NCG"

// Load reads configs/config.yaml (plus config.<APP_ENVIRONMENT>.yaml) from the
// usual locations and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)
	return v
}

// setViperDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "nginx-config-generator")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 15000)
	v.SetDefault("server.write_timeout", 30000)
	v.SetDefault("templates.root_dir", "")
	v.SetDefault("templates.main", "nginx.conf")
	v.SetDefault("templates.configmap", "configmap.yaml")
	v.SetDefault("delivery.timeout", 10000)
	v.SetDefault("delivery.user_agent", "nginx-config-generator")
	v.SetDefault("delivery.max_response_bytes", 1<<20)
	v.SetDefault("validation.check_references", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	// Empty so applyDefaults can derive it from app.name.
	v.SetDefault("observability.service_name", "")
	v.SetDefault("observability.jaeger_endpoint", "")
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found from the working directory up to the module root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// applyDefaults fills zero values left by a partial file or a hand-built Config.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "nginx-config-generator"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}

	if cfg.Templates.Main == "" {
		cfg.Templates.Main = "nginx.conf"
	}
	if cfg.Templates.ConfigMap == "" {
		cfg.Templates.ConfigMap = "configmap.yaml"
	}

	if cfg.Delivery.Timeout == 0 {
		cfg.Delivery.Timeout = 10000
	}
	if cfg.Delivery.UserAgent == "" {
		cfg.Delivery.UserAgent = "nginx-config-generator"
	}
	if cfg.Delivery.MaxResponseBytes == 0 {
		cfg.Delivery.MaxResponseBytes = 1 << 20
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Delivery.Timeout < 0 {
		return fmt.Errorf("delivery.timeout must be positive, got %d", cfg.Delivery.Timeout)
	}
	if cfg.Delivery.MaxResponseBytes < 0 {
		return fmt.Errorf("delivery.max_response_bytes must be positive, got %d", cfg.Delivery.MaxResponseBytes)
	}
	if strings.TrimSpace(cfg.Templates.Main) == "" || strings.TrimSpace(cfg.Templates.ConfigMap) == "" {
		return fmt.Errorf("templates.main and templates.configmap are required")
	}
	if cfg.Templates.RootDir != "" {
		info, err := os.Stat(cfg.Templates.RootDir)
		if err != nil {
			return fmt.Errorf("templates.root_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("templates.root_dir %s is not a directory", cfg.Templates.RootDir)
		}
	}
	return nil
}
