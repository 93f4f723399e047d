package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	StoreDriver string // "memory" or "postgres"

	DBDriver   string // "pgx" or "postgres"
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AWSRegion        string
	SQSEventQueueURL string
	IoTMQTTEndpoint  string
	IoTTopicPrefix   string
	LPREnabled       bool

	RabbitMQURL      string
	RabbitMQExchange string

	JWTSecret          string
	JWTExpirationHours time.Duration

	ExpiryInterval      time.Duration
	MaxSessionLength    time.Duration
	NoShowCharge        bool
	DuesThreshold       float64
	BlockOnVehicleDues  bool
	GuardMultiArea      bool
	MaxCASRetries       int
	DefaultGracePeriod  time.Duration
	DefaultWaiverPeriod time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("config: could not load .env file: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		StoreDriver: getEnv("STORE_DRIVER", "memory"),

		DBDriver:   getEnv("DB_DRIVER", "pgx"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "parkease"),
		DBPassword: getEnv("DB_PASSWORD", "parkease"),
		DBName:     getEnv("DB_NAME", "parkease"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		AWSRegion:        getEnv("AWS_REGION", "ap-south-1"),
		SQSEventQueueURL: getEnv("SQS_EVENT_QUEUE_URL", ""),
		IoTMQTTEndpoint:  getEnv("IOT_MQTT_ENDPOINT", ""),
		IoTTopicPrefix:   getEnv("IOT_TOPIC_PREFIX", "parkease"),
		LPREnabled:       getBool("LPR_ENABLED", false),

		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "parkease.events"),

		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		ExpiryInterval:      time.Duration(getInt("EXPIRY_INTERVAL_SECONDS", 60)) * time.Second,
		MaxSessionLength:    time.Duration(getInt("MAX_SESSION_MINUTES", 1440)) * time.Minute,
		NoShowCharge:        getBool("NO_SHOW_CHARGE", true),
		DuesThreshold:       getFloat("DUES_THRESHOLD", 0),
		BlockOnVehicleDues:  getBool("BLOCK_ON_VEHICLE_DUES", true),
		GuardMultiArea:      getBool("GUARD_MULTI_AREA", false),
		MaxCASRetries:       getInt("MAX_CAS_RETRIES", 8),
		DefaultGracePeriod:  time.Duration(getInt("DEFAULT_GRACE_MINUTES", 30)) * time.Minute,
		DefaultWaiverPeriod: time.Duration(getInt("DEFAULT_WAIVER_MINUTES", 10)) * time.Minute,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("config: %s not set, using default '%s'", key, fallback)
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		log.Printf("config: %s is not an integer, using %d", key, fallback)
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, strconv.FormatFloat(fallback, 'f', -1, 64)), 64)
	if err != nil {
		log.Printf("config: %s is not a number, using %v", key, fallback)
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		log.Printf("config: %s is not a boolean, using %t", key, fallback)
		return fallback
	}
	return v
}
