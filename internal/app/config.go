package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is constructed once at process start and passed into each component
// constructor. Components never read the environment themselves, so tests can
// inject a fake configuration.
type Config struct {
	HTTPAddr       string
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
	UserAgent      string

	RakutenAppID    string
	RakutenEndpoint string

	YahooAppID      string
	YahooEndpointV3 string
	YahooEndpointV1 string
	YahooGenre      string
	YahooVCSID      string
	YahooVCPID      string

	MoshimoAID  string
	MoshimoPID  string
	MoshimoPCID string
	MoshimoPLID string

	PriceFloor   int
	PriceCeiling int
	NoFilter     bool

	RedisURL        string
	RankingCacheTTL time.Duration
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		RequestTimeout: time.Duration(getEnvInt("SEARCH_TIMEOUT_MS", 2500)) * time.Millisecond,
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:      getEnv("SEARCH_USER_AGENT", "sake-search/1.0"),

		RakutenAppID:    strings.TrimSpace(os.Getenv("RAKUTEN_APP_ID")),
		RakutenEndpoint: getEnv("RAKUTEN_ENDPOINT", "https://app.rakuten.co.jp/services/api/IchibaItem/Search/20220601"),

		YahooAppID:      strings.TrimSpace(os.Getenv("YAHOO_APP_ID")),
		YahooEndpointV3: getEnv("YAHOO_ENDPOINT_V3", "https://shopping.yahooapis.jp/ShoppingWebService/V3/itemSearch"),
		YahooEndpointV1: getEnv("YAHOO_ENDPOINT_V1", "https://shopping.yahooapis.jp/ShoppingWebService/V1/json/itemSearch"),
		YahooGenre:      getEnv("YAHOO_GENRE_CATEGORY", "1359"),
		YahooVCSID:      strings.TrimSpace(os.Getenv("VC_SID")),
		YahooVCPID:      strings.TrimSpace(os.Getenv("VC_PID")),

		MoshimoAID:  strings.TrimSpace(os.Getenv("MOSHIMO_A_ID")),
		MoshimoPID:  strings.TrimSpace(os.Getenv("MOSHIMO_P_ID")),
		MoshimoPCID: strings.TrimSpace(os.Getenv("MOSHIMO_PC_ID")),
		MoshimoPLID: strings.TrimSpace(os.Getenv("MOSHIMO_PL_ID")),

		PriceFloor:   getEnvInt("PRICE_FLOOR", 900),
		PriceCeiling: getEnvInt("PRICE_CEILING", 50000),
		NoFilter:     getEnvBool("NO_FILTER", false),

		RedisURL:        getEnv("REDIS_URL", ""),
		RankingCacheTTL: time.Duration(getEnvInt("RANKING_CACHE_TTL_MINUTES", 10)) * time.Minute,
	}
}

// EnvOK reports whether every credential the live pipeline needs is present.
func (c Config) EnvOK() bool {
	return c.RakutenAppID != "" &&
		c.MoshimoAID != "" &&
		c.MoshimoPID != "" &&
		c.MoshimoPCID != "" &&
		c.MoshimoPLID != ""
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
