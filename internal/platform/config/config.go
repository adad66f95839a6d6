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

	// Contest rules
	QuestionsPerContest  int
	QuestionTimeLimit    time.Duration
	DefaultQuestionScore int
	MinParticipants      int
	MaxParticipants      int

	ContestCacheTTL   time.Duration
	JoinLockTTL       time.Duration
	SchedulerInterval time.Duration
	SchedulerLockKey  string
	SchedulerLockTTL  time.Duration
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:       getEnv("API_PORT", "8080"),
		JWTKey:        []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:        time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 720)) * time.Hour,
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "user"),
		DBPassword:    getEnv("DB_PASSWORD", "password"),
		DBName:        getEnv("DB_NAME", "quizarena_db"),
		DBSslMode:     getEnv("DB_SSLMODE", "disable"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		QuestionsPerContest:  getEnvAsInt("QUESTIONS_PER_CONTEST", 15),
		QuestionTimeLimit:    time.Duration(getEnvAsInt("QUESTION_TIME_LIMIT_SECONDS", 60)) * time.Second,
		DefaultQuestionScore: getEnvAsInt("POINTS_PER_CORRECT_ANSWER", 5),
		MinParticipants:      getEnvAsInt("MIN_PARTICIPANTS", 3),
		MaxParticipants:      getEnvAsInt("MAX_PARTICIPANTS", 50),

		ContestCacheTTL:   time.Duration(getEnvAsInt("CONTEST_CACHE_TTL_SECONDS", 3600)) * time.Second,
		JoinLockTTL:       time.Duration(getEnvAsInt("JOIN_LOCK_TTL_SECONDS", 10)) * time.Second,
		SchedulerInterval: time.Duration(getEnvAsInt("SCHEDULER_INTERVAL_SECONDS", 15)) * time.Second,
		SchedulerLockKey:  getEnv("SCHEDULER_LOCK_KEY", "contest_scheduler_lock"),
		SchedulerLockTTL:  time.Duration(getEnvAsInt("SCHEDULER_LOCK_TTL_SECONDS", 60)) * time.Second,
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
