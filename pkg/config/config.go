package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	AppEnv       string
	IsProduction bool

	// LLM provider fallbacks (used when no provider config is stored)
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string
	DefaultModel     string

	// database
	DBDriver string // "sqlite" or "mysql"
	DBDSN    string

	JWTSecret string
	Port      string

	// runtime tunables
	LLMTimeoutSeconds      int
	HistoryWindow          int
	TitleMaxRunes          int
	RateLimitWindowSeconds int
	RateLimitCapacity      int
	UserConcurrencyLimit   int
	DuplicateWindowSeconds int
	ConfigCacheTTLSeconds  int
)

func loadAppEnv() {
	AppEnv = os.Getenv("APP_ENV")

	// do not load .env file in production
	if AppEnv == "production" {
		return
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("[config] failed to load .env: %v", err)
		}
	}
}

func init() {
	loadAppEnv()

	AppEnv = os.Getenv("APP_ENV")
	if AppEnv == "" {
		AppEnv = "development"
	}
	IsProduction = AppEnv == "production"

	OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	OpenAIBaseURL = envOr("OPENAI_BASE_URL", "https://api.openai.com/v1")
	AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	AnthropicBaseURL = envOr("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1")
	DefaultModel = envOr("DEFAULT_MODEL", "gpt-3.5-turbo")

	DBDriver = envOr("DB_DRIVER", "sqlite")
	DBDSN = envOr("DB_DSN", "app.db")

	JWTSecret = os.Getenv("JWT_SECRET_KEY")
	Port = envOr("PORT", "5000")

	LLMTimeoutSeconds = atoiOr(os.Getenv("LLM_TIMEOUT_SECONDS"), 60)
	HistoryWindow = atoiOr(os.Getenv("HISTORY_WINDOW"), 10)
	TitleMaxRunes = atoiOr(os.Getenv("TITLE_MAX_RUNES"), 30)
	RateLimitWindowSeconds = atoiOr(os.Getenv("RATE_LIMIT_WINDOW_SECONDS"), 10)
	RateLimitCapacity = atoiOr(os.Getenv("RATE_LIMIT_CAPACITY"), 5)
	UserConcurrencyLimit = atoiOr(os.Getenv("USER_CONCURRENCY_LIMIT"), 2)
	DuplicateWindowSeconds = atoiOr(os.Getenv("DUPLICATE_WINDOW_SECONDS"), 45)
	ConfigCacheTTLSeconds = atoiOr(os.Getenv("CONFIG_CACHE_TTL_SECONDS"), 60)

	if IsProduction && JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY must be set in production")
	}

	log.Printf("[config] AppEnv=%s DBDriver=%s", AppEnv, DBDriver)
	log.Printf("[config] OpenAIKeyPresent=%v AnthropicKeyPresent=%v DefaultModel=%s",
		OpenAIAPIKey != "", AnthropicAPIKey != "", DefaultModel)
	log.Printf("[config] LLMTimeout=%ds HistoryWindow=%d RateLimit window=%ds capacity=%d",
		LLMTimeoutSeconds, HistoryWindow, RateLimitWindowSeconds, RateLimitCapacity)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
