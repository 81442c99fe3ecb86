package config

import (
	"os"
	"strconv"
	"time"

	"github.com/tinoosan/radiofetch/internal/processor"
)

// Config is the process configuration, read once at startup from the
// environment.
type Config struct {
	Addr         string
	LogFile      string
	Repo         string
	DownloadRoot string

	RutrackerUsername string
	RutrackerPassword string

	TransmissionURL      string
	TransmissionUsername string
	TransmissionPassword string

	RadioManagerURL   string
	RadioManagerToken string

	OpenAIAPIKey string

	Processor processor.Config
}

// FromEnv builds a Config from environment variables, falling back to
// defaults where a variable is unset.
func FromEnv() Config {
	return Config{
		Addr:         getenv("RADIOFETCH_ADDR", ":9090"),
		LogFile:      os.Getenv("RADIOFETCH_LOG_FILE"),
		Repo:         getenv("RADIOFETCH_REPO", "inmem"),
		DownloadRoot: getenv("RADIOFETCH_DOWNLOAD_ROOT", "downloads"),

		RutrackerUsername: os.Getenv("RUTRACKER_USERNAME"),
		RutrackerPassword: os.Getenv("RUTRACKER_PASSWORD"),

		TransmissionURL:      getenv("TRANSMISSION_URL", "http://localhost:9091/transmission/rpc"),
		TransmissionUsername: os.Getenv("TRANSMISSION_USERNAME"),
		TransmissionPassword: os.Getenv("TRANSMISSION_PASSWORD"),

		RadioManagerURL:   os.Getenv("RADIOMANAGER_URL"),
		RadioManagerToken: os.Getenv("RADIOMANAGER_TOKEN"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),

		Processor: processor.Config{
			DownloadRoot:     getenv("RADIOFETCH_DOWNLOAD_ROOT", "downloads"),
			PollInterval:     getduration("RADIOFETCH_POLL_INTERVAL", 5*time.Second),
			RetryInitial:     getduration("RADIOFETCH_RETRY_INITIAL", time.Second),
			RetryFactor:      getfloat("RADIOFETCH_RETRY_FACTOR", 2),
			RetryCap:         getduration("RADIOFETCH_RETRY_CAP", 60*time.Second),
			RetryMaxAttempts: getuint("RADIOFETCH_RETRY_MAX_ATTEMPTS", 6),
			StatusRetention:  getduration("RADIOFETCH_STATUS_RETENTION", time.Hour),
			Timeouts: processor.Timeouts{
				Search:       getduration("RADIOFETCH_TIMEOUT_SEARCH", 30*time.Second),
				Torrent:      getduration("RADIOFETCH_TIMEOUT_TORRENT", 30*time.Second),
				Metadata:     getduration("RADIOFETCH_TIMEOUT_METADATA", 10*time.Second),
				RadioManager: getduration("RADIOFETCH_TIMEOUT_RADIOMAN", 60*time.Second),
				State:        getduration("RADIOFETCH_TIMEOUT_STATE", 5*time.Second),
			},
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getuint(k string, def uint64) uint64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
