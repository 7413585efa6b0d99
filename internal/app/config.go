package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"audiostream/metadataservice/internal/domain"
)

type Config struct {
	HTTPAddr            string
	RequestTimeout      time.Duration
	LogLevel            string
	LogFormat           string
	UserAgent           string
	FetchDelay          time.Duration
	SiteMode            domain.SiteSelectionMode
	SiteOverride        string
	PreferCopyrightYear bool
	CoverPolicy         domain.CoverPolicy
	DebugLogging        bool
	IgnoreScore         int
	GoodScore           int
	RedisURL            string
	CacheTTL            time.Duration
	CacheDisabled       bool
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8085"),
		RequestTimeout:      time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 15)) * time.Second,
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:           getEnv("FETCH_USER_AGENT", ""),
		FetchDelay:          time.Duration(getEnvInt("FETCH_DELAY_MS", 1000)) * time.Millisecond,
		SiteMode:            parseSiteMode(getEnv("SITE_MODE", string(domain.SiteModeByLanguage))),
		SiteOverride:        getEnv("SITE_OVERRIDE", ""),
		PreferCopyrightYear: getEnvBool("PREFER_COPYRIGHT_YEAR", false),
		CoverPolicy:         domain.NormalizeCoverPolicy(getEnv("COVER_POLICY", "")),
		DebugLogging:        getEnvBool("DEBUG_LOGGING", false),
		IgnoreScore:         getEnvInt("MATCH_IGNORE_SCORE", 45),
		GoodScore:           getEnvInt("MATCH_GOOD_SCORE", 98),
		RedisURL:            getEnv("REDIS_URL", ""),
		CacheTTL:            time.Duration(getEnvInt("SEARCH_CACHE_TTL_HOURS", 168)) * time.Hour,
		CacheDisabled:       getEnvBool("SEARCH_CACHE_DISABLED", false),
	}
}

func parseSiteMode(raw string) domain.SiteSelectionMode {
	if domain.SiteSelectionMode(raw) == domain.SiteModeManual {
		return domain.SiteModeManual
	}
	return domain.SiteModeByLanguage
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
