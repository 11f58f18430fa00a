package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/medpoint/authsvc/internal/flagx"
)

// parseEnv overlays Config fields from environment variables. Before reading
// the environment it loads an optional env file: the path given via the
// -e/-env-file flags, or .env.local and .env from the working directory.
// godotenv never overrides variables already present in the environment.
//
// Recognized variables:
//
//	ADDRESS                        HTTP bind address (e.g. ":8000")
//	DATABASE_DSN                   PostgreSQL DSN
//	PRIVATE_KEY_PATH               signing key PEM (file path or s3:// URL)
//	PUBLIC_KEY_PATH                verification key PEM (file path or s3:// URL)
//	ALGORITHM                      token signature algorithm (RS256)
//	ACCESS_TOKEN_EXPIRE_MINUTES    access token validity, minutes
//	REFRESH_TOKEN_EXPIRE_MINUTES   refresh token validity, minutes
//	COOKIE_SECURE                  Secure attribute on the refresh cookie
//	REDIS_ADDR / REDIS_PASSWORD    refresh-token denylist backend (optional)
//	SEED_USERNAME / SEED_EMAIL / SEED_PASSWORD  bootstrap user (optional)
//	S3_REGION / S3_ACCESS_KEY / S3_SECRET_KEY / S3_BASE_ENDPOINT
func parseEnv(config *Config) {
	if f := flagx.EnvFileFlags(); f != "" {
		_ = godotenv.Load(f)
	} else {
		_ = godotenv.Load(".env.local")
		_ = godotenv.Load(".env")
	}

	setString(&config.EndpointAddr, "ADDRESS")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.PrivateKeyLocation, "PRIVATE_KEY_PATH")
	setString(&config.PublicKeyLocation, "PUBLIC_KEY_PATH")
	setString(&config.Algorithm, "ALGORITHM")
	setMinutes(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_EXPIRE_MINUTES")
	setMinutes(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_EXPIRE_MINUTES")
	setBool(&config.CookieSecure, "COOKIE_SECURE")
	setString(&config.RedisAddr, "REDIS_ADDR")
	setString(&config.RedisPassword, "REDIS_PASSWORD")
	setString(&config.SeedUsername, "SEED_USERNAME")
	setString(&config.SeedEmail, "SEED_EMAIL")
	setString(&config.SeedPassword, "SEED_PASSWORD")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3AccessKey, "S3_ACCESS_KEY")
	setString(&config.S3SecretKey, "S3_SECRET_KEY")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setMinutes(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if m, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(m) * time.Minute
		}
	}
}
