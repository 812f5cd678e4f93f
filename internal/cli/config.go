package cli

import (
	"os"
	"time"
)

// Config holds CLI configuration
type Config struct {
	Server  string
	User    string
	Output  string
	Timeout time.Duration
	Verbose bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Server:  getEnvOrDefault("HACKSTORM_SERVER", "localhost:9999"),
		User:    os.Getenv("HACKSTORM_USER"),
		Output:  "text",
		Timeout: 10 * time.Second,
		Verbose: false,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
