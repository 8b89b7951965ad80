package config

import "os"

// Config holds the corridor substrate's process-level configuration,
// loaded from environment variables per 12-factor convention.
type Config struct {
	DataDir       string
	BootKey       string
	LogLevel      string
	DatabaseURL   string
	ProfilesDir   string
	WatcherQuorum int
}

// Load loads configuration from environment variables, filling in the
// defaults a local/dev bootstrap needs.
func Load() *Config {
	dataDir := os.Getenv("CORRIDOR_DATA_DIR")
	if dataDir == "" {
		dataDir = "/var/lib/corridor"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://corridor@localhost:5432/corridor?sslmode=disable"
	}

	profilesDir := os.Getenv("CORRIDOR_PROFILES_DIR")
	if profilesDir == "" {
		profilesDir = dataDir + "/profiles"
	}

	return &Config{
		DataDir:       dataDir,
		BootKey:       os.Getenv("SYSTEM_BOOT_KEY"),
		LogLevel:      logLevel,
		DatabaseURL:   dbURL,
		ProfilesDir:   profilesDir,
		WatcherQuorum: 1,
	}
}
