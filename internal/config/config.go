package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Display  DisplayConfig
	Panel    PanelConfig
	Auth     AuthConfig
	Redis    RedisConfig
	LogLevel string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         int
	ReadTimeout  int
	WriteTimeout int
}

// DisplayConfig holds framebuffer-related configuration
type DisplayConfig struct {
	Type            int    // display_type of the pin mapping, 0 = no display
	Width           int    // 0 = panel profile default
	Height          int    // 0 = panel profile default
	ProfilesPath    string // optional YAML file merged into the built-in panel catalog
	RefreshInterval time.Duration
	Title           string
	FontSize        float64
}

// PanelConfig holds configuration for the physical panel mirror
type PanelConfig struct {
	Enabled bool
	I2CBus  string // "default" or "-" = first available bus
}

// AuthConfig holds configuration for the display API credential check
type AuthConfig struct {
	Enabled  bool
	Username string
	Password string
}

// RedisConfig holds Redis-related configuration
type RedisConfig struct {
	Addr            string // empty = snapshot mirroring disabled
	Password        string
	DB              int
	DeviceID        string
	PublishInterval time.Duration
	TTL             time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	panelBus := strings.TrimSpace(os.Getenv("PANEL_I2C_BUS"))

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 10),
		},
		Display: DisplayConfig{
			Type:            getEnvAsInt("DISPLAY_TYPE", 2), // SSD1306
			Width:           getEnvAsInt("DISPLAY_WIDTH", 0),
			Height:          getEnvAsInt("DISPLAY_HEIGHT", 0),
			ProfilesPath:    getEnv("DISPLAY_PROFILES_PATH", ""),
			RefreshInterval: getEnvAsDuration("DISPLAY_REFRESH_INTERVAL", time.Second),
			Title:           getEnv("DISPLAY_TITLE", "webdisplay"),
			FontSize:        getEnvAsFloat("DISPLAY_FONT_SIZE", 12),
		},
		Panel: PanelConfig{
			Enabled: panelBus != "",
			I2CBus:  panelBus,
		},
		Auth: AuthConfig{
			Enabled:  getEnvAsBool("AUTH_ENABLED", false),
			Username: getEnv("AUTH_USERNAME", "admin"),
			Password: getEnv("AUTH_PASSWORD", ""),
		},
		Redis: RedisConfig{
			Addr:            getRedisAddr(),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvAsInt("REDIS_DB", 0),
			DeviceID:        getEnv("REDIS_DEVICE_ID", defaultDeviceID()),
			PublishInterval: getEnvAsDuration("REDIS_PUBLISH_INTERVAL", 2*time.Second),
			TTL:             getEnvAsDuration("REDIS_TTL", time.Minute),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("500ms") or plain seconds ("5")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// getRedisAddr prefers REDIS_URL (with or without the redis:// scheme) over REDIS_ADDR
func getRedisAddr() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return strings.TrimPrefix(url, "redis://")
	}
	return os.Getenv("REDIS_ADDR")
}

func defaultDeviceID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		return "unknown"
	}
	return hostname
}
