package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Email     EmailConfig     `yaml:"email"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Rental    RentalConfig    `yaml:"rental"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// EmailConfig contains SendGrid settings for outbound notifications
type EmailConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// RentalConfig contains rental lifecycle policy settings
type RentalConfig struct {
	MinDurationMinutes      int `yaml:"min_duration_minutes"`
	PickupToleranceMinutes  int `yaml:"pickup_tolerance_minutes"`
	DefaultGracePeriodHours int `yaml:"default_grace_period_hours"`
	PaymentDeadlineMinutes  int `yaml:"payment_deadline_minutes"`
	SweepMinIntervalSeconds int `yaml:"sweep_min_interval_seconds"`
}

// SchedulerConfig contains cron specs for background jobs
type SchedulerConfig struct {
	PaymentTimeoutSweep string `yaml:"payment_timeout_sweep"`
	RecomputeOverdue    string `yaml:"recompute_overdue"`
	ResolveMaintenance  string `yaml:"resolve_maintenance"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.APIKey = val
	}
	if val := os.Getenv("EMAIL_FROM"); val != "" {
		c.Email.FromEmail = val
	}

	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Rental policy defaults
	if c.Rental.MinDurationMinutes == 0 {
		c.Rental.MinDurationMinutes = 60
	}
	if c.Rental.PickupToleranceMinutes == 0 {
		c.Rental.PickupToleranceMinutes = 5
	}
	if c.Rental.DefaultGracePeriodHours == 0 {
		c.Rental.DefaultGracePeriodHours = 1
	}
	if c.Rental.PaymentDeadlineMinutes == 0 {
		c.Rental.PaymentDeadlineMinutes = 15
	}
	if c.Rental.SweepMinIntervalSeconds == 0 {
		c.Rental.SweepMinIntervalSeconds = 60
	}

	// Scheduler defaults (six-field specs, seconds precision)
	if c.Scheduler.PaymentTimeoutSweep == "" {
		c.Scheduler.PaymentTimeoutSweep = "0 * * * * *" // every minute
	}
	if c.Scheduler.RecomputeOverdue == "" {
		c.Scheduler.RecomputeOverdue = "0 */10 * * * *" // every 10 minutes
	}
	if c.Scheduler.ResolveMaintenance == "" {
		c.Scheduler.ResolveMaintenance = "0 0 * * * *" // hourly
	}

	return nil
}

// MinDuration returns the minimum allowed rental window length.
func (c *RentalConfig) MinDuration() time.Duration {
	return time.Duration(c.MinDurationMinutes) * time.Minute
}

// PickupTolerance returns how far in the past a pickup instant may lie.
func (c *RentalConfig) PickupTolerance() time.Duration {
	return time.Duration(c.PickupToleranceMinutes) * time.Minute
}

// PaymentDeadline returns the fallback deadline for unpaid bookings.
func (c *RentalConfig) PaymentDeadline() time.Duration {
	return time.Duration(c.PaymentDeadlineMinutes) * time.Minute
}

// SweepMinInterval returns the minimum interval between timeout sweeps.
func (c *RentalConfig) SweepMinInterval() time.Duration {
	return time.Duration(c.SweepMinIntervalSeconds) * time.Second
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		sslMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
