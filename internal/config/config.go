package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server      Server       `mapstructure:"server"`
	Logger      Logger       `mapstructure:"logger"`
	Database    Database     `mapstructure:"database"`
	Fees        FeeProfile   `mapstructure:"fees"`
	FeeProfiles []FeeProfile `mapstructure:"fee_profiles"`
	Conventions Conventions  `mapstructure:"conventions"`
	Client      Client       `mapstructure:"client"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Database holds the configuration for the fee profile catalog.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// FeeProfile is a named broker fee schedule. The top level `fees` block is
// seeded as the profile called "default".
type FeeProfile struct {
	Name               string  `mapstructure:"name"`
	CommissionPerMille float64 `mapstructure:"commission_per_mille"`
	BSMVPercent        float64 `mapstructure:"bsmv_percent"`
	StopajPercent      float64 `mapstructure:"stopaj_percent"`
}

// Conventions names the amounts commission and interest are computed on.
type Conventions struct {
	CommissionBase string `mapstructure:"commission_base"` // notional | gross_premium
	InterestBase   string `mapstructure:"interest_base"`   // notional | net_premium
}

// Client holds the configuration for the calculator REST client.
type Client struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"` // empty disables file output
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// DefaultProfileName is the profile used when a request names none.
const DefaultProfileName = "default"

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.rate_limit", 50)      // requests per second
	v.SetDefault("server.rate_limit_burst", 20) // burst size
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 7)
	v.SetDefault("logger.max_age", 30)

	v.SetDefault("database.dsn", "file::memory:?cache=shared")

	v.SetDefault("fees.name", DefaultProfileName)
	v.SetDefault("fees.commission_per_mille", 5.0)
	v.SetDefault("fees.bsmv_percent", 5.0)
	v.SetDefault("fees.stopaj_percent", 17.5)

	v.SetDefault("conventions.commission_base", "notional")
	v.SetDefault("conventions.interest_base", "notional")

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.timeout", "15s")
	v.SetDefault("client.rate_limit", 10)
	v.SetDefault("client.rate_limit_burst", 5)
}

// LoadConfig reads configuration from file or environment variables.
// A missing config.yml is not an error: defaults and environment apply.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	v.SetEnvPrefix("OPTCALC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	SetDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return
	}
	if config.Fees.Name == "" {
		config.Fees.Name = DefaultProfileName
	}
	return
}

// Profiles returns the default profile followed by the named ones.
func (c *Config) Profiles() []FeeProfile {
	out := make([]FeeProfile, 0, len(c.FeeProfiles)+1)
	out = append(out, c.Fees)
	for _, p := range c.FeeProfiles {
		if p.Name == "" || p.Name == c.Fees.Name {
			continue
		}
		out = append(out, p)
	}
	return out
}
