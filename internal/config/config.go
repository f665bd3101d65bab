package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the server's settings.
type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string

	// Timezone anchors the day-boundary logic for cached stats.
	Timezone string
	LogLevel string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		Timezone:             getenv("READLOG_TIMEZONE", "UTC"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	cfg.JWTSecret = mustGetenv("JWT_SECRET")
	return cfg, nil
}

// ClientConfig holds the sync CLI's settings.
type ClientConfig struct {
	ServerURL string
	Token     string
	DBPath    string
	Timezone  string
	LogLevel  string
}

func LoadClient() (ClientConfig, error) {
	_ = godotenv.Load()

	return ClientConfig{
		ServerURL: mustGetenv("READLOG_SERVER_URL"),
		Token:     mustGetenv("READLOG_TOKEN"),
		DBPath:    getenv("READLOG_DB_PATH", defaultDBPath()),
		Timezone:  getenv("READLOG_TIMEZONE", "UTC"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
	}, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".readlog"
	}
	return home + "/.readlog"
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}
