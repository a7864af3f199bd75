package config

import (
	"os"
)

type Config struct {
	DatabasePath  string
	ServerAddress string
	JWTSecret     string
	InvoiceDir    string
}

func Load() *Config {
	return &Config{
		DatabasePath:  getEnv("DATABASE_PATH", "./dorm-billing.db"),
		ServerAddress: getEnv("SERVER_ADDRESS", ":8081"),
		JWTSecret:     getEnv("JWT_SECRET", "dorm-billing-secret-change-in-production"),
		InvoiceDir:    getEnv("INVOICE_DIR", "./invoices"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
