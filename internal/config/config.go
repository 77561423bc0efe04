// Package config loads server configuration from the environment.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddr string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string

	JWTSecret string

	MediaDir     string
	MediaBaseURL string

	AdminUsername string
	AdminEmail    string
	AdminPassword string

	AllowOrigins string

	LogDir string
}

// LoadConfig reads configuration from environment variables with sane
// defaults for local development.
func LoadConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", ":8080")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASS", "")
	v.SetDefault("DB_NAME", "folktale_haven")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASS", "")
	v.SetDefault("MEDIA_DIR", "./media")
	v.SetDefault("MEDIA_BASE_URL", "http://localhost:8080")
	v.SetDefault("ALLOW_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_DIR", "./logs")
	v.SetDefault("ADMIN_USERNAME", "")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASS", "")
	v.SetDefault("JWT_SECRET", "")

	return &Config{
		ServerAddr:    v.GetString("PORT"),
		DBHost:        v.GetString("DB_HOST"),
		DBPort:        v.GetInt("DB_PORT"),
		DBUser:        v.GetString("DB_USER"),
		DBPassword:    v.GetString("DB_PASS"),
		DBName:        v.GetString("DB_NAME"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASS"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		MediaDir:      v.GetString("MEDIA_DIR"),
		MediaBaseURL:  v.GetString("MEDIA_BASE_URL"),
		AdminUsername: v.GetString("ADMIN_USERNAME"),
		AdminEmail:    v.GetString("ADMIN_EMAIL"),
		AdminPassword: v.GetString("ADMIN_PASS"),
		AllowOrigins:  v.GetString("ALLOW_ORIGINS"),
		LogDir:        v.GetString("LOG_DIR"),
	}
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}
