package config

import (
	"os"
	"strconv"
	"time"
)

// Runtime holds process-level knobs loaded from the environment. Everything
// structural about a migration (locales, field mappings, folder tables) lives
// in the Mapping file instead.
type Runtime struct {
	LogLevel        string
	StagingDir      string
	ManifestPath    string
	OutputDir       string
	DownloadWorkers int
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	HTTPTimeout     time.Duration
}

func LoadRuntime() Runtime {
	return Runtime{
		LogLevel:        envStr("PORTAGE_LOG_LEVEL", "info"),
		StagingDir:      envStr("PORTAGE_STAGING_DIR", ".portage/assets"),
		ManifestPath:    envStr("PORTAGE_MANIFEST", ".portage/manifest.db"),
		OutputDir:       envStr("PORTAGE_OUTPUT_DIR", "out"),
		DownloadWorkers: envInt("PORTAGE_DOWNLOAD_WORKERS", 4),
		RetryAttempts:   envInt("PORTAGE_RETRY_ATTEMPTS", 3),
		RetryBaseDelay:  envDur("PORTAGE_RETRY_BASE_DELAY", 500*time.Millisecond),
		HTTPTimeout:     envDur("PORTAGE_HTTP_TIMEOUT", 30*time.Second),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
