// internal/config/config.go
//
// Runtime configuration read from the environment (after godotenv has
// loaded .env in main). Every setting has a default so a bare
// `soup serve` works against a local OpenAI-compatible endpoint.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/soup-server/internal/apperr"
	"github.com/robalobadob/soup-server/internal/puzzle"
)

// DefaultClientOrigin is the only browser origin allowed when CLIENT_ORIGIN
// is unset. A CLIENT_ORIGIN of "*" admits any origin without credentials.
const DefaultClientOrigin = "http://localhost:5173"

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string // json | console

	PuzzleFile    string
	PuzzleMode    puzzle.Mode
	DailySalt     string
	MinLen        int
	ShowRationale bool

	OracleProvider      string
	OracleBaseURL       string
	OracleAPIKey        string
	OracleJudgeModel    string
	OracleAnswerModel   string
	OracleTimeout       time.Duration
	OracleJudgeRetries  int
	OracleAnswerRetries int

	DBPath       string
	ClientOrigin string

	HostPassword     string
	HostPasswordHash string
	JWTSecret        string
	JWTExpires       time.Duration

	SyncPushInterval time.Duration
}

// Load reads the environment. It never fails; call Validate afterwards.
func Load() Config {
	provider := getEnv("ORACLE_PROVIDER", "openai")
	return Config{
		Port:      getEnv("PORT", "5175"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		PuzzleFile:    os.Getenv("SOUP_PUZZLE_FILE"),
		PuzzleMode:    puzzle.Mode(strings.ToLower(getEnv("SOUP_PUZZLE_MODE", string(puzzle.ModeRandom)))),
		DailySalt:     getEnv("SOUP_DAILY_SALT", "turtle-soup"),
		MinLen:        envInt("SOUP_MIN_LEN", 5),
		ShowRationale: envBool("SOUP_SHOW_RATIONALE", false),

		OracleProvider:      provider,
		OracleBaseURL:       os.Getenv("ORACLE_BASE_URL"),
		OracleAPIKey:        os.Getenv("ORACLE_API_KEY"),
		OracleJudgeModel:    getEnv("ORACLE_JUDGE_MODEL", DefaultJudgeModel(provider)),
		OracleAnswerModel:   os.Getenv("ORACLE_ANSWER_MODEL"),
		OracleTimeout:       envDuration("ORACLE_TIMEOUT", 60*time.Second),
		OracleJudgeRetries:  envInt("ORACLE_JUDGE_RETRIES", 2),
		OracleAnswerRetries: envInt("ORACLE_ANSWER_RETRIES", 3),

		DBPath:       os.Getenv("DB_PATH"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", DefaultClientOrigin),

		HostPassword:     os.Getenv("HOST_PASSWORD"),
		HostPasswordHash: os.Getenv("HOST_PASSWORD_HASH"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTExpires:       time.Duration(envInt("JWT_EXPIRES_HOURS", 12)) * time.Hour,

		SyncPushInterval: envDuration("SYNC_PUSH_INTERVAL", 250*time.Millisecond),
	}
}

// DefaultJudgeModel is the judge model used when ORACLE_JUDGE_MODEL is unset.
// openai_compatible servers name their own models, so the OpenAI default is
// only a guess there.
func DefaultJudgeModel(provider string) string {
	if provider == "anthropic" {
		return "claude-3-5-haiku-latest"
	}
	return "gpt-4o-mini"
}

// HostAuth reports whether lifecycle commands require a host token.
func (c Config) HostAuth() bool {
	return c.HostPassword != "" || c.HostPasswordHash != ""
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var problems []string
	if _, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("PORT %q is not a number", c.Port))
	}
	if _, err := puzzle.ParseMode(string(c.PuzzleMode)); err != nil {
		problems = append(problems, err.Error())
	}
	if c.MinLen < 1 {
		problems = append(problems, "SOUP_MIN_LEN must be positive")
	}
	switch c.OracleProvider {
	case "openai", "openai_compatible", "anthropic":
	default:
		problems = append(problems, fmt.Sprintf("ORACLE_PROVIDER %q is not supported", c.OracleProvider))
	}
	if c.OracleJudgeModel == "" {
		problems = append(problems, "ORACLE_JUDGE_MODEL must not be empty")
	}
	if c.OracleTimeout <= 0 {
		problems = append(problems, "ORACLE_TIMEOUT must be positive")
	}
	if c.OracleJudgeRetries < 0 || c.OracleAnswerRetries < 0 {
		problems = append(problems, "oracle retries must not be negative")
	}
	if c.HostAuth() && c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required when a host password is set")
	}
	if c.JWTExpires <= 0 {
		problems = append(problems, "JWT_EXPIRES_HOURS must be positive")
	}
	if c.SyncPushInterval <= 0 {
		problems = append(problems, "SYNC_PUSH_INTERVAL must be positive")
	}
	if len(problems) > 0 {
		return apperr.New(apperr.CodeConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		return def
	}
	return n
}

func envBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not a boolean, using default")
		return def
	}
	return b
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare numbers are seconds.
		if n, nerr := strconv.Atoi(v); nerr == nil {
			return time.Duration(n) * time.Second
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not a duration, using default")
		return def
	}
	return d
}
