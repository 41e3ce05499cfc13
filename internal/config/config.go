package config

import (
	"os"
	"strconv"

	"gopuf/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Attack   AttackConfig
	Database DatabaseConfig
	Server   ServerConfig
	Export   ExportConfig
}

// AttackConfig holds the reliability attack parameters
type AttackConfig struct {
	N         int     // stages per arbiter chain
	K         int     // arbiter chains
	Noisiness float64 // noise scale relative to delay variability
	Num       int     // training challenges
	Reps      int     // repeated measurements per challenge
	PopSize   int     // optimizer population per generation, 0 = default

	AbortDelta     float64 // stagnation spread threshold
	AbortIter      int     // stagnation window size
	MaxGenerations int     // generation budget per optimizer run
	MaxAttempts    int     // rediscovery retries per chain slot

	Transform string
	Combiner  string

	SeedInstance   int64
	SeedChallenges int64
	SeedModel      int64

	Instances int // repeated instance initializations
	Attempts  int // repeated learner initializations per instance
}

// DatabaseConfig holds the optional result store connection
type DatabaseConfig struct {
	URL     string
	Enabled bool
}

// ServerConfig holds the monitor server settings
type ServerConfig struct {
	Port string
}

// ExportConfig holds result export destinations
type ExportConfig struct {
	CSVPath  string
	XLSXPath string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Attack:   loadAttackConfig(),
		Database: loadDatabaseConfig(),
		Server:   loadServerConfig(),
		Export:   loadExportConfig(),
	}
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadAttackConfig() AttackConfig {
	return AttackConfig{
		N:              getEnvIntOrDefault("PUF_N", 64),
		K:              getEnvIntOrDefault("PUF_K", 2),
		Noisiness:      getEnvFloatOrDefault("PUF_NOISINESS", 0.05),
		Num:            getEnvIntOrDefault("PUF_NUM", 30000),
		Reps:           getEnvIntOrDefault("PUF_REPS", 11),
		PopSize:        getEnvIntOrDefault("CMAES_POP_SIZE", 0),
		AbortDelta:     getEnvFloatOrDefault("CMAES_ABORT_DELTA", 1e-3),
		AbortIter:      getEnvIntOrDefault("CMAES_ABORT_ITER", 10),
		MaxGenerations: getEnvIntOrDefault("CMAES_MAX_GENERATIONS", 3000),
		MaxAttempts:    getEnvIntOrDefault("CMAES_MAX_ATTEMPTS", 0),
		Transform:      getEnvOrDefault("PUF_TRANSFORM", "atf"),
		Combiner:       getEnvOrDefault("PUF_COMBINER", "xor"),
		SeedInstance:   getEnvInt64OrDefault("SEED_INSTANCE", 0),
		SeedChallenges: getEnvInt64OrDefault("SEED_CHALLENGES", 0),
		SeedModel:      getEnvInt64OrDefault("SEED_MODEL", 0),
		Instances:      getEnvIntOrDefault("STUDY_INSTANCES", 1),
		Attempts:       getEnvIntOrDefault("STUDY_ATTEMPTS", 1),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	url := os.Getenv("DATABASE_URL")
	return DatabaseConfig{
		URL:     url,
		Enabled: url != "",
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func loadExportConfig() ExportConfig {
	return ExportConfig{
		CSVPath:  getEnvOrDefault("EXPORT_CSV", "results.csv"),
		XLSXPath: getEnvOrDefault("EXPORT_XLSX", ""),
	}
}

func validateConfig(config *Config) error {
	a := config.Attack
	if a.N <= 0 {
		return errors.ConfigInvalid("PUF_N must be positive")
	}
	if a.K <= 0 {
		return errors.ConfigInvalid("PUF_K must be positive")
	}
	if a.Noisiness < 0 {
		return errors.ConfigInvalid("PUF_NOISINESS must be non-negative")
	}
	if a.Num <= 0 {
		return errors.ConfigInvalid("PUF_NUM must be positive")
	}
	if a.Reps <= 0 {
		return errors.ConfigInvalid("PUF_REPS must be positive")
	}
	if a.AbortDelta <= 0 {
		return errors.ConfigInvalid("CMAES_ABORT_DELTA must be positive")
	}
	if a.AbortIter <= 0 {
		return errors.ConfigInvalid("CMAES_ABORT_ITER must be positive")
	}
	if a.Instances <= 0 || a.Attempts <= 0 {
		return errors.ConfigInvalid("STUDY_INSTANCES and STUDY_ATTEMPTS must be positive")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64OrDefault(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
