package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	JWTKey    string
	SaltRound int

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	EmailSender string
	SendGridKey string

	// Blob storage. Mode is "local" (disk under BlobDir, signed URLs minted
	// with BlobSignSecret) or "remote" (HTTP storage API via resty).
	BlobMode       string
	BlobDir        string
	BlobPrivateDir string
	BlobBaseURL    string
	BlobSignSecret string
	BlobApiURL     string
	BlobApiKey     string

	SignedURLTTLMinutes int
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "lms"),
		DBPort:     getEnv("DB_PORT", "5432"),

		EmailSender: getEnv("EMAIL_SENDER", "no-reply@example.com"),
		SendGridKey: getEnv("SENDGRID_API_KEY", ""),

		BlobMode:       getEnv("BLOB_MODE", "local"),
		BlobDir:        getEnv("BLOB_DIR", "./public/uploads"),
		BlobPrivateDir: getEnv("BLOB_PRIVATE_DIR", "./private/uploads"),
		BlobBaseURL:    getEnv("BLOB_BASE_URL", "http://localhost:3000"),
		BlobSignSecret: getEnv("BLOB_SIGN_SECRET", "defaultSignSecret"),
		BlobApiURL:     getEnv("BLOB_API_URL", ""),
		BlobApiKey:     getEnv("BLOB_API_KEY", ""),

		SignedURLTTLMinutes: getEnvInt("SIGNED_URL_TTL_MINUTES", 15),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.BlobSignSecret == "defaultSignSecret" {
		log.Println("Warning: Using default BLOB_SIGN_SECRET. Update it in your environment.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
