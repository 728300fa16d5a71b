package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Appie    AppieConfig
	Matcher  MatcherConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AppieConfig configures the Albert Heijn mobile API client.
type AppieConfig struct {
	AuthBaseURL  string
	APIBaseURL   string
	ClientID     string
	RefreshToken string
	PageSize     int
	Timeout      time.Duration
}

// MatcherConfig bounds the concurrent product resolution per receipt.
type MatcherConfig struct {
	Workers     int
	SearchLimit int
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	// If no .env file was found, environment variables are used directly
	// (useful for Docker/K8s)

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	appieTimeout, _ := strconv.Atoi(getEnv("APPIE_TIMEOUT", "15"))
	pageSize, _ := strconv.Atoi(getEnv("APPIE_PAGE_SIZE", "20"))
	workers, _ := strconv.Atoi(getEnv("MATCHER_WORKERS", "4"))
	searchLimit, _ := strconv.Atoi(getEnv("MATCHER_SEARCH_LIMIT", "10"))

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "grocitrack"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Appie: AppieConfig{
			AuthBaseURL:  getEnv("APPIE_AUTH_BASE_URL", "https://api.ah.nl/mobile-auth/v1"),
			APIBaseURL:   getEnv("APPIE_API_BASE_URL", "https://api.ah.nl/mobile-services"),
			ClientID:     getEnv("APPIE_CLIENT_ID", "appie"),
			RefreshToken: getEnv("APPIE_REFRESH_TOKEN", ""),
			PageSize:     pageSize,
			Timeout:      time.Duration(appieTimeout) * time.Second,
		},
		Matcher: MatcherConfig{
			Workers:     workers,
			SearchLimit: searchLimit,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
