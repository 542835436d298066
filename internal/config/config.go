package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	DB     DBConfig
	Log    LogConfig
	Export ExportConfig
	API    APIConfig
}

// DBConfig holds PostgreSQL connection settings for the submissions store.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ExportConfig holds .mmb export settings.
type ExportConfig struct {
	LogsDir      string `mapstructure:"logs_dir"`
	ResponsesDir string `mapstructure:"responses_dir"`
	OutputDir    string `mapstructure:"output_dir"`
	VATCode21    string `mapstructure:"vat_code_21"`
	VATCode10    string `mapstructure:"vat_code_10"`
}

// APIConfig holds submission API credential fallbacks. These are the lowest
// precedence source: issuer-sheet values and API_* environment variables win.
type APIConfig struct {
	Token string `mapstructure:"token"`
	Email string `mapstructure:"email"`
	URL   string `mapstructure:"url"`
}

// Load reads configuration from environment variables with the MACROFACT_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MACROFACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "macrofact")
	v.SetDefault("db.password", "macrofact_secret")
	v.SetDefault("db.name", "macrofact_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	// Export defaults
	v.SetDefault("export.logs_dir", "logs")
	v.SetDefault("export.responses_dir", "responses")
	v.SetDefault("export.output_dir", ".")
	v.SetDefault("export.vat_code_21", "")
	v.SetDefault("export.vat_code_10", "")

	// API defaults
	v.SetDefault("api.token", "")
	v.SetDefault("api.email", "")
	v.SetDefault("api.url", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"db.host":              "MACROFACT_DB_HOST",
		"db.port":              "MACROFACT_DB_PORT",
		"db.user":              "MACROFACT_DB_USER",
		"db.password":          "MACROFACT_DB_PASSWORD",
		"db.name":              "MACROFACT_DB_NAME",
		"db.sslmode":           "MACROFACT_DB_SSLMODE",
		"db.max_open":          "MACROFACT_DB_MAX_OPEN",
		"db.max_idle":          "MACROFACT_DB_MAX_IDLE",
		"log.level":            "MACROFACT_LOG_LEVEL",
		"log.format":           "MACROFACT_LOG_FORMAT",
		"log.output":           "MACROFACT_LOG_OUTPUT",
		"export.logs_dir":      "MACROFACT_EXPORT_LOGS_DIR",
		"export.responses_dir": "MACROFACT_EXPORT_RESPONSES_DIR",
		"export.output_dir":    "MACROFACT_EXPORT_OUTPUT_DIR",
		"export.vat_code_21":   "MACROFACT_EXPORT_VAT_CODE_21",
		"export.vat_code_10":   "MACROFACT_EXPORT_VAT_CODE_10",
		"api.token":            "MACROFACT_API_TOKEN",
		"api.email":            "MACROFACT_API_EMAIL",
		"api.url":              "MACROFACT_API_URL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		Output: v.GetString("log.output"),
	}
	cfg.Export = ExportConfig{
		LogsDir:      v.GetString("export.logs_dir"),
		ResponsesDir: v.GetString("export.responses_dir"),
		OutputDir:    v.GetString("export.output_dir"),
		VATCode21:    v.GetString("export.vat_code_21"),
		VATCode10:    v.GetString("export.vat_code_10"),
	}
	cfg.API = APIConfig{
		Token: v.GetString("api.token"),
		Email: v.GetString("api.email"),
		URL:   v.GetString("api.url"),
	}

	return cfg, nil
}
