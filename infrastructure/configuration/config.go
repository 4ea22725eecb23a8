package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"social-publisher/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database               `json:"database"`
	App         App                    `json:"app"`
	Pubsub      Pubsub                 `json:"pubsub"`
	ServiceBus  ServiceBus             `json:"serviceBus"`
	RedisClient RedisClient            `json:"redisClient"`
	Logger      Logger                 `json:"logger"`
	OAuth       map[string]OAuthClient `json:"oauth"`
	Publish     Publish                `json:"publish"`
	Scheduler   Scheduler              `json:"scheduler"`
	Security    Security               `json:"security"`
	Metrics     Metrics                `json:"metrics"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	BaseURL     string `json:"baseURL"`
	FrontendURL string `json:"frontendURL"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string `json:"allowedOrigins"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mongo Db `json:"mongo"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
	Level  string `json:"level"`
}

// OAuthClient holds one platform's OAuth client credentials.
type OAuthClient struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
}

// Publish tunes the orchestrator fan-out.
type Publish struct {
	CallTimeout           time.Duration `json:"callTimeout"`
	PerJobConcurrency     int           `json:"perJobConcurrency"`
	GlobalConcurrency     int           `json:"globalConcurrency"`
	PlatformRatePerSecond float64       `json:"platformRatePerSecond"`
	PlatformBurst         int           `json:"platformBurst"`
	OAuthHTTPTimeout      time.Duration `json:"oauthHTTPTimeout"`
}

// Scheduler tunes the sweep loop, the worker pool and the retry policy.
type Scheduler struct {
	SweepInterval time.Duration `json:"sweepInterval"`
	PollInterval  time.Duration `json:"pollInterval"`
	Workers       int           `json:"workers"`
	BatchSize     int           `json:"batchSize"`
	LeaseDuration time.Duration `json:"leaseDuration"`
	MaxAttempts   int           `json:"maxAttempts"`
	BackoffBase   time.Duration `json:"backoffBase"`
	BackoffMax    time.Duration `json:"backoffMax"`
}

type Security struct {
	// TokenEncryptionKey is a hex encoded 32 byte key. Empty disables
	// encryption of stored tokens.
	TokenEncryptionKey string `json:"tokenEncryptionKey"`
}

type Metrics struct {
	Disabled bool   `json:"disabled"`
	Path     string `json:"path"`
}

var C Config

func init() {
	LoadEnvFromFile("config.env", ".env")
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initPublish(&C)
	initScheduler(&C)
	initSecurity(&C)
	initMetrics(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	C.Database.Psql.Name = getConfigValue(C.Database.Psql.Name, "DB_NAME", "social_publisher")
	C.Database.Psql.Host = getConfigValue(C.Database.Psql.Host, "DB_HOST", "localhost")
	C.Database.Psql.Port = getConfigValue(C.Database.Psql.Port, "DB_PORT", "5432")
	C.Database.Psql.User = getConfigValue(C.Database.Psql.User, "DB_USER", "postgres")
	C.Database.Psql.Password = getConfigValue(C.Database.Psql.Password, "DB_PASSWORD", "")
	C.Database.Psql.SSLMode = getConfigValue(C.Database.Psql.SSLMode, "DB_SSLMODE", "disable")

	C.Database.Mongo.Host = getConfigValue(C.Database.Mongo.Host, "MONGO_HOST", "")
	C.Database.Mongo.Port = getConfigValue(C.Database.Mongo.Port, "MONGO_PORT", "27017")
	C.Database.Mongo.Name = getConfigValue(C.Database.Mongo.Name, "MONGO_DB_NAME", "social_publisher")
	C.Database.Mongo.User = getConfigValue(C.Database.Mongo.User, "MONGO_USER", "")
	C.Database.Mongo.Password = getConfigValue(C.Database.Mongo.Password, "MONGO_PASSWORD", "")

	C.RedisClient.Host = getConfigValue(C.RedisClient.Host, "REDIS_HOST", "")
	C.RedisClient.Port = getConfigValue(C.RedisClient.Port, "REDIS_PORT", "6379")
	C.RedisClient.Password = getConfigValue(C.RedisClient.Password, "REDIS_PASSWORD", "")

	C.Pubsub.ProjectID = getConfigValue(C.Pubsub.ProjectID, "PUBSUB_PROJECT_ID", "")
	C.Pubsub.Topic = getConfigValue(C.Pubsub.Topic, "PUBSUB_TOPIC", "publish-results")
	C.ServiceBus.Namespace = getConfigValue(C.ServiceBus.Namespace, "SERVICEBUS_NAMESPACE", "")
	C.ServiceBus.Queue = getConfigValue(C.ServiceBus.Queue, "SERVICEBUS_QUEUE", "publish-results")
}

func initApp(C *Config) {
	// Prefer SECRET_KEY from environment for JWT verification; overrides config file when provided
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	C.App.TLSCertFile = getConfigValue(C.App.TLSCertFile, "TLS_CERT_FILE", "")
	C.App.TLSKeyFile = getConfigValue(C.App.TLSKeyFile, "TLS_KEY_FILE", "")

	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	C.App.BaseURL = strings.TrimRight(getConfigValue(C.App.BaseURL, "APP_URL", fmt.Sprintf("%s://localhost:%d", scheme, C.App.Port)), "/")
	C.App.FrontendURL = getConfigValue(C.App.FrontendURL, "FRONTEND_URL", "")
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		C.App.AllowedOrigins = splitList(v)
	}
	if len(C.App.AllowedOrigins) == 0 {
		C.App.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:4200"}
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initPublish(C *Config) {
	C.Publish.CallTimeout = getEnvDuration("PUBLISH_CALL_TIMEOUT", C.Publish.CallTimeout, 20*time.Second)
	C.Publish.OAuthHTTPTimeout = getEnvDuration("OAUTH_HTTP_TIMEOUT", C.Publish.OAuthHTTPTimeout, 15*time.Second)
	C.Publish.PerJobConcurrency = getEnvInt("PUBLISH_PER_JOB_CONCURRENCY", C.Publish.PerJobConcurrency, 4)
	C.Publish.GlobalConcurrency = getEnvInt("PUBLISH_GLOBAL_CONCURRENCY", C.Publish.GlobalConcurrency, 32)
	C.Publish.PlatformBurst = getEnvInt("PUBLISH_PLATFORM_BURST", C.Publish.PlatformBurst, 5)
	if v := os.Getenv("PUBLISH_PLATFORM_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			C.Publish.PlatformRatePerSecond = f
		}
	}
	if C.Publish.PlatformRatePerSecond <= 0 {
		C.Publish.PlatformRatePerSecond = 5
	}
}

func initScheduler(C *Config) {
	C.Scheduler.SweepInterval = getEnvDuration("SCHEDULER_SWEEP_INTERVAL", C.Scheduler.SweepInterval, 30*time.Second)
	C.Scheduler.PollInterval = getEnvDuration("SCHEDULER_POLL_INTERVAL", C.Scheduler.PollInterval, 5*time.Second)
	C.Scheduler.LeaseDuration = getEnvDuration("SCHEDULER_LEASE_DURATION", C.Scheduler.LeaseDuration, 2*time.Minute)
	C.Scheduler.BackoffBase = getEnvDuration("SCHEDULER_BACKOFF_BASE", C.Scheduler.BackoffBase, 30*time.Second)
	C.Scheduler.BackoffMax = getEnvDuration("SCHEDULER_BACKOFF_MAX", C.Scheduler.BackoffMax, time.Hour)
	C.Scheduler.Workers = getEnvInt("SCHEDULER_WORKERS", C.Scheduler.Workers, 4)
	C.Scheduler.BatchSize = getEnvInt("SCHEDULER_BATCH_SIZE", C.Scheduler.BatchSize, 50)
	C.Scheduler.MaxAttempts = getEnvInt("SCHEDULER_MAX_ATTEMPTS", C.Scheduler.MaxAttempts, 5)
}

func initSecurity(C *Config) {
	C.Security.TokenEncryptionKey = getConfigValue(C.Security.TokenEncryptionKey, "TOKEN_ENCRYPTION_KEY", "")
}

func initMetrics(C *Config) {
	if v := os.Getenv("METRICS_DISABLED"); v == "true" || v == "1" {
		C.Metrics.Disabled = true
	}
	C.Metrics.Path = getConfigValue(C.Metrics.Path, "METRICS_PATH", "/metrics")
}
