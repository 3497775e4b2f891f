package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tutordesk/backend/internal/domain"
)

type Config struct {
	Port                  string
	DBUrl                 string
	JWTSecret             string
	SupabaseURL           string
	SupabaseBucket        string
	SupabaseServiceKey    string
	AppEnv                string
	CORSOrigins           string
	RequestTimeout        time.Duration
	AdminFlatFee          float64
	DefaultSessionPrice   float64
	RequireDualAttendance bool
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	adminFlatFee, err := getEnvFloat("ADMIN_FLAT_FEE", domain.DefaultAdminFlatFee)
	if err != nil {
		return nil, err
	}
	defaultPrice, err := getEnvFloat("DEFAULT_SESSION_PRICE", 0)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvDuration("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                  getEnv("PORT", "8080"),
		DBUrl:                 getEnv("DB_URL", ""),
		JWTSecret:             jwtSecret,
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseBucket:        getEnv("SUPABASE_BUCKET", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		AppEnv:                normalizeEnv(getEnv("APP_ENV", "production")),
		CORSOrigins:           getEnv("CORS_ORIGINS", "*"),
		RequestTimeout:        timeout,
		AdminFlatFee:          adminFlatFee,
		DefaultSessionPrice:   defaultPrice,
		RequireDualAttendance: getEnvBool("REQUIRE_DUAL_ATTENDANCE", false),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number", key)
	}
	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 15s", key)
	}
	return parsed, nil
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

func (c *Config) StorageEnabled() bool {
	return c != nil && c.SupabaseURL != "" && c.SupabaseBucket != "" && c.SupabaseServiceKey != ""
}

func (c *Config) LifecycleRules() domain.LifecycleRules {
	return domain.LifecycleRules{RequireDualAttendance: c.RequireDualAttendance}
}
