// Package config loads the gateway configuration from the environment.
package config

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type TransportCfg struct {
	Timeout      time.Duration
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

type Config struct {
	Addr               string
	LogLevel           string
	LogConsole         bool
	LogSampleN         int
	APIKey             string
	WFSBaseURL         string
	Headers            http.Header
	Transport          TransportCfg
	RedisAddr          string
	FeatureCacheTTL    time.Duration
	TypeNamesCacheSize int
	TypeNamesCacheTTL  time.Duration
	MetricsEnabled     bool
}

func FromEnv() Config {
	waitMin := getduration("TRANSPORT_RETRY_WAIT_MIN", 200*time.Millisecond)
	waitMax := getduration("TRANSPORT_RETRY_WAIT_MAX", 2*time.Second)
	if waitMax < waitMin {
		waitMax = waitMin
	}
	retries := getint("TRANSPORT_RETRIES", 2)
	if retries < 0 {
		retries = 0
	}

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),
		APIKey:     strings.TrimSpace(os.Getenv("GEOPORTAL_API_KEY")),
		WFSBaseURL: getenv("WFS_BASE_URL", "http://wxs.ign.fr"),
		Headers:    ParseHeaders(getenv("WFS_HEADERS", "")),
		Transport: TransportCfg{
			Timeout:      getduration("TRANSPORT_TIMEOUT", 30*time.Second),
			Retries:      retries,
			RetryWaitMin: waitMin,
			RetryWaitMax: waitMax,
		},
		RedisAddr:          strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		FeatureCacheTTL:    getduration("FEATURE_CACHE_TTL", 60*time.Second),
		TypeNamesCacheSize: getint("TYPENAMES_CACHE_SIZE", 16),
		TypeNamesCacheTTL:  getduration("TYPENAMES_CACHE_TTL", 10*time.Minute),
		MetricsEnabled:     getbool("METRICS_ENABLED", true),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
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

// ParseHeaders parses "Referer=https://x,X-Client=demo" into headers.
func ParseHeaders(s string) http.Header {
	out := http.Header{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}
	for p := range strings.SplitSeq(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out.Add(k, strings.TrimSpace(v))
	}
	return out
}
