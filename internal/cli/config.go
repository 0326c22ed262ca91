package cli

import (
	"errors"
	"fmt"
	"os"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config holds CLI configuration
type Config struct {
	ServerURL       string
	SchedulerSecret string
	Output          string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:       getEnvOrDefault("LEVELGRID_SERVER", "http://localhost:8080"),
		SchedulerSecret: os.Getenv("LEVELGRID_SCHEDULER_SECRET"),
		Output:          OutputText,
	}
}

// Validate checks flag values that cobra cannot
func (c *Config) Validate() error {
	if c.Output != OutputText && c.Output != OutputJSON {
		return fmt.Errorf("invalid output format %q: must be text or json", c.Output)
	}
	if c.ServerURL == "" {
		return errors.New("server URL must not be empty")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
