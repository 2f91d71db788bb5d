package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Capture    CaptureConfig    `mapstructure:"capture"`
	Enrollment EnrollmentConfig `mapstructure:"enrollment"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// CaptureConfig bounds the keystroke batching discipline.
type CaptureConfig struct {
	BatchSize            int `mapstructure:"batch_size"`
	FlushIntervalSeconds int `mapstructure:"flush_interval_seconds"`
}

// EnrollmentConfig gates template creation.
type EnrollmentConfig struct {
	MinTotalKeystrokes int    `mapstructure:"min_total_keystrokes"`
	ExerciseFile       string `mapstructure:"exercise_file"`
}

// MatchingConfig gates identification and holds the confidence tier
// thresholds. The tiers are defined here exactly once; handlers, scoring and
// export all read the same values.
type MatchingConfig struct {
	MinSampleKeystrokes int     `mapstructure:"min_sample_keystrokes"`
	DefaultTopK         int     `mapstructure:"default_top_k"`
	HighConfidence      float64 `mapstructure:"high_confidence"`
	MediumConfidence    float64 `mapstructure:"medium_confidence"`
	TemplateCacheTTL    int     `mapstructure:"template_cache_ttl_seconds"`
}

// MonitoringConfig controls the live session aggregator.
type MonitoringConfig struct {
	WindowMinutes       int     `mapstructure:"window_minutes"`
	PollIntervalSeconds int     `mapstructure:"poll_interval_seconds"`
	SuspiciousRiskScore float64 `mapstructure:"suspicious_risk_score"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8002")

	// Database defaults
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "keytrace-db")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Capture defaults
	v.SetDefault("capture.batch_size", 50)
	v.SetDefault("capture.flush_interval_seconds", 10)

	// Enrollment defaults
	v.SetDefault("enrollment.min_total_keystrokes", 200)
	v.SetDefault("enrollment.exercise_file", "config/exercises.yaml")

	// Matching defaults
	v.SetDefault("matching.min_sample_keystrokes", 100)
	v.SetDefault("matching.default_top_k", 3)
	v.SetDefault("matching.high_confidence", 80.0)
	v.SetDefault("matching.medium_confidence", 60.0)
	v.SetDefault("matching.template_cache_ttl_seconds", 60)

	// Monitoring defaults
	v.SetDefault("monitoring.window_minutes", 10)
	v.SetDefault("monitoring.poll_interval_seconds", 5)
	v.SetDefault("monitoring.suspicious_risk_score", 70.0)
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("KEYTRACE") // e.g., KEYTRACE_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the config into our global Conf variable
	if err := v.Unmarshal(&Conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Set up a watch for configuration changes for hot-reloading
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := v.Unmarshal(&Conf); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
		}
	})

	log.Info("Configuration loaded successfully")
	return nil
}
