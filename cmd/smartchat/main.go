package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/chevai/smartchat/common/environment"
	"github.com/chevai/smartchat/common/version"
	"github.com/chevai/smartchat/internal/smartchat/app"
)

func main() {
	fmt.Printf("SmartChat %s\n", version.Info())

	// Local development convenience; missing .env is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	config := loadConfig()

	service, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize SmartChat: %v\n", err)
		os.Exit(1)
	}
	defer service.Stop()

	if err := service.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running SmartChat: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration from the environment.
func loadConfig() app.Config {
	return app.Config{
		Addr:           environment.StringOr("SMARTCHAT_ADDR", ":8080"),
		DatabasePath:   environment.StringOr("SMARTCHAT_DATABASE_PATH", "./smartchat.db"),
		GeminiAPIKey:   environment.StringOr("GEMINI_API_KEY", ""),
		GeminiModel:    environment.StringOr("GEMINI_MODEL", ""),
		DailyQuota:     environment.IntOr("GEMINI_DAILY_QUOTA", 0),
		AdminKey:       environment.StringOr("SMARTCHAT_ADMIN_KEY", ""),
		AllowedOrigins: environment.StringSliceOr("SMARTCHAT_ALLOWED_ORIGINS", nil),
		LogLevel:       environment.StringOr("SMARTCHAT_LOG_LEVEL", "info"),
	}
}
