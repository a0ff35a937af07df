package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Judge backend selection: "judge0" (submit-then-poll capable) or
	// "piston" (synchronous execute-and-wait).
	JudgeBackend string
	JudgeURL     string
	JudgeAPIKey  string
	JudgeAPIHost string

	JudgeBatchSize       int
	JudgePollBaseDelayMs int
	JudgePollMaxAttempts int
	// JudgeExtractInlineTiming opts in to harnesses that print a timing
	// line as the last line of stdout. Off unless explicitly enabled.
	JudgeExtractInlineTiming bool
	DefaultTimeLimitMs       int
	DefaultMemoryLimitKb     int
	RunQueueName             string
	RunResultTTLSeconds      int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:    getEnv("API_PORT", "8080"),
		JWTKey:     []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:     time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "cohortly_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JudgeBackend: getEnv("JUDGE_BACKEND", "judge0"),
		JudgeURL:     getEnv("JUDGE_URL", "https://judge0-ce.p.rapidapi.com"),
		JudgeAPIKey:  getEnv("JUDGE_API_KEY", ""),
		JudgeAPIHost: getEnv("JUDGE_API_HOST", ""),

		JudgeBatchSize:           getEnvAsInt("JUDGE_BATCH_SIZE", 10),
		JudgePollBaseDelayMs:     getEnvAsInt("JUDGE_POLL_BASE_DELAY_MS", 2000),
		JudgePollMaxAttempts:     getEnvAsInt("JUDGE_POLL_MAX_ATTEMPTS", 20),
		JudgeExtractInlineTiming: getEnvAsBool("JUDGE_EXTRACT_INLINE_TIMING", false),
		DefaultTimeLimitMs:       getEnvAsInt("DEFAULT_TIME_LIMIT_MS", 2000),
		DefaultMemoryLimitKb:     getEnvAsInt("DEFAULT_MEMORY_LIMIT_KB", 256000),
		RunQueueName:             getEnv("RUN_QUEUE_NAME", "run_code_jobs_queue"),
		RunResultTTLSeconds:      getEnvAsInt("RUN_RESULT_TTL_SECONDS", 600),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
