package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values
type Config struct {
	Port           string `mapstructure:"PORT"`
	Environment    string `mapstructure:"ENVIRONMENT"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	UseMemoryStore bool   `mapstructure:"USE_MEMORY_STORE"`

	// Database
	DBUser                 string `mapstructure:"DB_USER"`
	DBPass                 string `mapstructure:"DB_PASS"`
	DBName                 string `mapstructure:"DB_NAME"`
	DBHost                 string `mapstructure:"DB_HOST"`
	DBPort                 int    `mapstructure:"DB_PORT"`
	InstanceConnectionName string `mapstructure:"INSTANCE_CONNECTION_NAME"`

	// Redis, empty address means in-process session locks
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Twilio
	TwilioAccountSID         string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken          string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppFrom       string `mapstructure:"TWILIO_WHATSAPP_FROM"`
	OrderTemplateSID         string `mapstructure:"TWILIO_ORDER_TEMPLATE_SID"`
	ReservationTemplateSID   string `mapstructure:"TWILIO_RESERVATION_TEMPLATE_SID"`
	DisableWebhookValidation bool   `mapstructure:"DISABLE_WEBHOOK_VALIDATION"`

	// Restaurant
	RestaurantName     string `mapstructure:"RESTAURANT_NAME"`
	RestaurantTimezone string `mapstructure:"RESTAURANT_TIMEZONE"`
	PhoneCountryCode   string `mapstructure:"PHONE_COUNTRY_CODE"`

	// Timings
	SessionTTL           time.Duration `mapstructure:"SESSION_TTL"`
	SessionLockTTL       time.Duration `mapstructure:"SESSION_LOCK_TTL"`
	HousekeepingInterval time.Duration `mapstructure:"HOUSEKEEPING_INTERVAL"`
	ReservationHold      time.Duration `mapstructure:"RESERVATION_HOLD"`
}

// Load reads .env (outside Cloud Run) and binds environment variables with defaults
func Load() (*Config, error) {
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			if err := godotenv.Load("environments/.env.development"); err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"PORT":                            "8080",
		"ENVIRONMENT":                     "development",
		"LOG_LEVEL":                       "info",
		"USE_MEMORY_STORE":                false,
		"DB_USER":                         "postgres",
		"DB_PASS":                         "",
		"DB_NAME":                         "tablepe",
		"DB_HOST":                         "localhost",
		"DB_PORT":                         5432,
		"INSTANCE_CONNECTION_NAME":        "",
		"REDIS_ADDR":                      "",
		"REDIS_PASSWORD":                  "",
		"REDIS_DB":                        0,
		"TWILIO_ACCOUNT_SID":              "",
		"TWILIO_AUTH_TOKEN":               "",
		"TWILIO_WHATSAPP_FROM":            "",
		"TWILIO_ORDER_TEMPLATE_SID":       "",
		"TWILIO_RESERVATION_TEMPLATE_SID": "",
		"DISABLE_WEBHOOK_VALIDATION":      false,
		"RESTAURANT_NAME":                 "TablePe",
		"RESTAURANT_TIMEZONE":             "America/Bogota",
		"PHONE_COUNTRY_CODE":              "57",
		"SESSION_TTL":                     "30m",
		"SESSION_LOCK_TTL":                "10s",
		"HOUSEKEEPING_INTERVAL":           "5m",
		"RESERVATION_HOLD":                "15m",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// TwilioConfigured reports whether outbound WhatsApp is possible
func (c *Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioWhatsAppFrom != ""
}

// Location resolves the restaurant timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.RestaurantTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
