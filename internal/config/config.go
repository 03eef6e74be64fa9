/**
 * @description
 * Configuration management for the payout service.
 */
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Provider modes.
const (
	ModeLive      = "live"
	ModeSandbox   = "sandbox"
	ModeSimulated = "simulated"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort         string `mapstructure:"SERVER_PORT"`
	PayPalClientID     string `mapstructure:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string `mapstructure:"PAYPAL_CLIENT_SECRET"`
	PayPalMode         string `mapstructure:"PAYPAL_MODE"`
	ConversionRate     int64  `mapstructure:"CONVERSION_RATE"`
	DefaultCurrency    string `mapstructure:"DEFAULT_CURRENCY"`
	DefaultUserID      string `mapstructure:"DEFAULT_USER_ID"`
	LedgerSeedUserID   string `mapstructure:"LEDGER_SEED_USER_ID"`
	LedgerSeedBalance  int64  `mapstructure:"LEDGER_SEED_BALANCE"`
	AllowedOriginsRaw  string `mapstructure:"ALLOWED_ORIGINS"`
	RabbitMQURL        string `mapstructure:"RABBITMQ_URL"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "10000")
	viper.SetDefault("PAYPAL_MODE", ModeSandbox)
	viper.SetDefault("CONVERSION_RATE", 1250)
	viper.SetDefault("DEFAULT_CURRENCY", "USD")
	viper.SetDefault("DEFAULT_USER_ID", "default_user")
	viper.SetDefault("LEDGER_SEED_BALANCE", 10950)
	viper.SetDefault("ALLOWED_ORIGINS", "https://watchadsear.netlify.app,http://localhost:3000,http://localhost:8080")
	viper.AutomaticEnv()

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("PAYPAL_CLIENT_ID")
	_ = viper.BindEnv("PAYPAL_CLIENT_SECRET")
	_ = viper.BindEnv("PAYPAL_MODE")
	_ = viper.BindEnv("CONVERSION_RATE")
	_ = viper.BindEnv("DEFAULT_CURRENCY")
	_ = viper.BindEnv("DEFAULT_USER_ID")
	_ = viper.BindEnv("LEDGER_SEED_USER_ID")
	_ = viper.BindEnv("LEDGER_SEED_BALANCE")
	_ = viper.BindEnv("ALLOWED_ORIGINS")
	_ = viper.BindEnv("RABBITMQ_URL")

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	// Platform-provided PORT (Render, Railway) wins over SERVER_PORT.
	if port := os.Getenv("PORT"); port != "" {
		config.ServerPort = port
	}

	config.PayPalMode = strings.ToLower(strings.TrimSpace(config.PayPalMode))
	switch config.PayPalMode {
	case ModeLive, ModeSandbox, ModeSimulated:
	default:
		return config, fmt.Errorf("invalid PAYPAL_MODE %q: must be live, sandbox or simulated", config.PayPalMode)
	}

	if config.PayPalMode != ModeSimulated && (config.PayPalClientID == "" || config.PayPalClientSecret == "") {
		return config, fmt.Errorf("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET are required when PAYPAL_MODE is %q", config.PayPalMode)
	}

	if config.ConversionRate <= 0 {
		return config, fmt.Errorf("CONVERSION_RATE must be positive, got %d", config.ConversionRate)
	}
	if config.LedgerSeedBalance < 0 {
		return config, fmt.Errorf("LEDGER_SEED_BALANCE must be non-negative, got %d", config.LedgerSeedBalance)
	}

	if config.LedgerSeedUserID == "" {
		config.LedgerSeedUserID = config.DefaultUserID
	}

	return
}

// AllowedOrigins returns the parsed CORS origin allow-list.
func (c Config) AllowedOrigins() []string {
	parts := strings.Split(c.AllowedOriginsRaw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if origin := strings.TrimSpace(p); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
