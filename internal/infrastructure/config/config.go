package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	config     *Config
	configOnce sync.Once
)

// Config stores all configuration of the application
type Config struct {
	// Environment type
	EnvType string

	// Database
	DBDriver        string // "postgres"(默认) 或 "mysql"
	DBHost          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBPort          string
	DBSSLMode       string
	DBMigrationMode string        // 数据库迁移模式: "auto"(默认), "drop"(删除重建)
	DBTimeout       time.Duration // 单次请求的存储操作超时

	// Server
	ServerPort         string
	MaxBodyBytes       int64
	CORSAllowedOrigins []string
	GinMode            string

	// Device keys
	DeviceKey      string // 全局共享密钥
	DeviceKeysJSON string // {"device_id": "secret"} 形式的多设备密钥

	// Rate limiting
	RateLimitMinInterval time.Duration
	RateLimitBackend     string // "memory"(默认) 或 "redis"
	QueryRateLimitRPS    float64
	QueryRateLimitBurst  int
	QueryCacheTTL        time.Duration

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Ingestion
	APIVersion        string
	DeviceUpsertAsync bool
	OfflineThreshold  time.Duration

	// MQTT配置
	MQTTEnabled     bool
	MQTTBrokerURL   string // MQTT服务器地址，如 tcp://broker.example.com:1883
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTQoS         int
	MQTTRetained    bool
	MQTTSSLEnabled  bool
	MQTTTopicPrefix string

	// InfluxDB mirror
	InfluxEnabled bool
	InfluxURL     string
	InfluxToken   string
	InfluxOrg     string
	InfluxBucket  string

	// Operator authentication
	JWTSecretKey         string
	OperatorUsername     string
	OperatorPasswordHash string

	// Logging
	LogLevel string
	LogDir   string
}

// LoadConfig loads config from environment variables based on ENV_TYPE
func LoadConfig() *Config {
	envType := strings.ToUpper(getEnv("ENV_TYPE", "LOCAL"))
	prefix := ""

	switch envType {
	case "LOCAL":
		prefix = "LOCAL_"
	case "SERVER":
		prefix = "SERVER_"
	default:
		fmt.Printf("Warning: Unknown ENV_TYPE '%s', defaulting to LOCAL environment\n", envType)
		prefix = "LOCAL_"
		envType = "LOCAL"
	}

	driver := strings.ToLower(getPrefixed(prefix, "DB_DRIVER", "postgres"))
	defaultPort := "5432"
	if driver == "mysql" {
		defaultPort = "3306"
	}

	return &Config{
		EnvType: envType,

		// Database config - use environment-specific variables if available
		DBDriver:        driver,
		DBHost:          getEnvRequired(prefix + "DB_HOST"),
		DBUser:          getEnvRequired(prefix + "DB_USER"),
		DBPassword:      getEnv(prefix+"DB_PASSWORD", ""),
		DBName:          getEnvRequired(prefix + "DB_NAME"),
		DBPort:          getPrefixed(prefix, "DB_PORT", defaultPort),
		DBSSLMode:       getPrefixed(prefix, "DB_SSLMODE", "disable"),
		DBMigrationMode: getPrefixed(prefix, "DB_MIGRATION_MODE", "auto"),
		DBTimeout:       getEnvAsMillis("DB_TIMEOUT_MS", 5*time.Second),

		// Server config
		ServerPort:         getPrefixed(prefix, "SERVER_PORT", "8080"),
		MaxBodyBytes:       int64(getEnvAsInt("MAX_BODY_BYTES", 64*1024)),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		GinMode:            getEnv("GIN_MODE", "release"),

		DeviceKey:      getEnv("DEVICE_KEY", ""),
		DeviceKeysJSON: getEnv("DEVICE_KEYS_JSON", ""),

		RateLimitMinInterval: getEnvAsMillis("RATE_LIMIT_MIN_INTERVAL_MS", 2*time.Second),
		RateLimitBackend:     strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory")),
		QueryRateLimitRPS:    getEnvAsFloat("QUERY_RATE_LIMIT_RPS", 10),
		QueryRateLimitBurst:  getEnvAsInt("QUERY_RATE_LIMIT_BURST", 20),
		QueryCacheTTL:        getEnvAsMillis("QUERY_CACHE_TTL_MS", 0),

		// Redis config
		RedisHost:     getPrefixed(prefix, "REDIS_HOST", "localhost"),
		RedisPort:     getPrefixed(prefix, "REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		APIVersion:        getEnv("API_VERSION", "0.4.0"),
		DeviceUpsertAsync: getEnvAsBool("DEVICE_UPSERT_ASYNC", true),
		OfflineThreshold:  getEnvAsMillis("OFFLINE_THRESHOLD_MS", time.Minute),

		// MQTT配置
		MQTTEnabled:     getEnvAsBool("MQTT_ENABLED", false),
		MQTTBrokerURL:   getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "telemetry_server"),
		MQTTUsername:    getEnv("MQTT_USERNAME", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),
		MQTTQoS:         getEnvAsInt("MQTT_QOS", 0),
		MQTTRetained:    getEnvAsBool("MQTT_RETAINED", false),
		MQTTSSLEnabled:  getEnvAsBool("MQTT_SSL_ENABLED", false),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "telemetry"),

		InfluxEnabled: getEnvAsBool("INFLUXDB_ENABLED", false),
		InfluxURL:     getEnv("INFLUXDB_URL", "http://localhost:8086"),
		InfluxToken:   getEnv("INFLUXDB_TOKEN", ""),
		InfluxOrg:     getEnv("INFLUXDB_ORG", ""),
		InfluxBucket:  getEnv("INFLUXDB_BUCKET", "telemetry"),

		JWTSecretKey:         getEnv("JWT_SECRET_KEY", ""),
		OperatorUsername:     getEnv("OPERATOR_USERNAME", "admin"),
		OperatorPasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogDir:   getEnv("LOG_DIR", "logs"),
	}
}

// GetConfig returns the application configuration as a singleton
func GetConfig() *Config {
	configOnce.Do(func() {
		config = LoadConfig()
	})
	return config
}

// IsProduction reports whether the service runs with the SERVER profile.
func (c *Config) IsProduction() bool {
	return c.EnvType == "SERVER"
}

// HasDeviceKeys reports whether any device secret source is configured.
func (c *Config) HasDeviceKeys() bool {
	return c.DeviceKey != "" || c.DeviceKeysJSON != ""
}

// GetDSN returns the database connection string for the configured driver
func (c *Config) GetDSN() string {
	if c.DBDriver == "mysql" {
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=UTC"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getPrefixed prefers the environment-specific key and falls back to the bare one.
func getPrefixed(prefix, key, defaultValue string) string {
	return getEnv(prefix+key, getEnv(key, defaultValue))
}

// Helper function to get environment variable as integer with default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as boolean with default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsMillis reads an integer number of milliseconds.
func getEnvAsMillis(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil && value >= 0 {
		return time.Duration(value) * time.Millisecond
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// 要求必须提供环境变量的辅助函数
func getEnvRequired(key string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	panic(fmt.Sprintf("Required environment variable %s is not set", key))
}
