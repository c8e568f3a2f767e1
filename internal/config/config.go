package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    Server    `yaml:"server"`
	Auth      Auth      `yaml:"auth"`
	Database  Database  `yaml:"database"`
	Scheduler Scheduler `yaml:"scheduler"`
	Publish   Publish   `yaml:"publish"`
	Telegram  Telegram  `yaml:"telegram"`
	VK        VK        `yaml:"vk"`
	AI        AI        `yaml:"ai"`
	S3        S3        `yaml:"s3"`
	AMQP      AMQP      `yaml:"amqp"`
	Bot       Bot       `yaml:"bot"`
	Log       Log       `yaml:"log"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"90s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
}

// Address returns the full server address
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// Auth holds the static API bearer tokens. With none set every request is an admin.
type Auth struct {
	AdminToken  string `yaml:"admin_token" env:"API_ADMIN_TOKEN"`
	EditorToken string `yaml:"editor_token" env:"API_EDITOR_TOKEN"`
	ViewerToken string `yaml:"viewer_token" env:"API_VIEWER_TOKEN"`
}

// Enabled reports whether any token is configured
func (a Auth) Enabled() bool {
	return a.AdminToken != "" || a.EditorToken != "" || a.ViewerToken != ""
}

// Database holds database configuration
type Database struct {
	// PostgreSQL; empty means the in-memory store
	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL"`

	// Connection pool settings
	MaxOpenConns int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnLifetime time.Duration `yaml:"conn_lifetime" env:"DB_CONN_LIFETIME" env-default:"5m"`
}

// Scheduler holds job scheduler configuration
type Scheduler struct {
	Enabled     bool          `yaml:"enabled" env:"SCHEDULER_ENABLED" env-default:"true"`
	Timezone    string        `yaml:"timezone" env:"SCHEDULER_TIMEZONE" env-default:"Europe/Moscow"`
	Workers     int           `yaml:"workers" env:"SCHEDULER_WORKERS" env-default:"10"`
	SweepSpec   string        `yaml:"sweep_spec" env:"SCHEDULER_SWEEP_SPEC" env-default:"@every 1m"`
	CleanupSpec string        `yaml:"cleanup_spec" env:"SCHEDULER_CLEANUP_SPEC" env-default:"0 3 * * *"`
	HealthSpec  string        `yaml:"health_spec" env:"SCHEDULER_HEALTH_SPEC" env-default:"0 */6 * * *"`
	Retention   time.Duration `yaml:"retention" env:"SCHEDULER_RETENTION" env-default:"2160h"`
}

// Location resolves Timezone, falling back to UTC
func (s Scheduler) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Publish holds publication settings
type Publish struct {
	Timeout time.Duration `yaml:"timeout" env:"PUBLISH_TIMEOUT" env-default:"60s"`
}

// Telegram holds the channel used when no platform rows exist
type Telegram struct {
	BotToken  string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChannelID string `yaml:"channel_id" env:"TELEGRAM_CHANNEL_ID"`
	APIServer string `yaml:"api_server" env:"TELEGRAM_API_SERVER"`
}

// VK holds the community used when no platform rows exist
type VK struct {
	AccessToken string `yaml:"access_token" env:"VK_ACCESS_TOKEN"`
	GroupID     string `yaml:"group_id" env:"VK_GROUP_ID"`
	BaseURL     string `yaml:"base_url" env:"VK_BASE_URL" env-default:"https://api.vk.com/method/"`
	APIVersion  string `yaml:"api_version" env:"VK_API_VERSION" env-default:"5.131"`
}

// AI holds the chat completions provider configuration
type AI struct {
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"mistral"`
	BaseURL  string `yaml:"base_url" env:"AI_BASE_URL"`
	APIKey   string `yaml:"api_key" env:"AI_API_KEY"`
	Model    string `yaml:"model" env:"AI_MODEL"`
}

// S3 holds S3/MinIO storage configuration
type S3 struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" env-default:"media"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	PublicURL       string `yaml:"public_url" env:"S3_PUBLIC_URL" env-default:"http://localhost:9000/media"`
}

// AMQP holds the event broker configuration; empty URL disables events
type AMQP struct {
	URL      string `yaml:"url" env:"AMQP_URL"`
	Exchange string `yaml:"exchange" env:"AMQP_EXCHANGE" env-default:"smm.events"`
}

// Bot holds the Telegram bot front end configuration
type Bot struct {
	Token           string `yaml:"token" env:"BOT_TOKEN"`
	AdminTelegramID int64  `yaml:"admin_telegram_id" env:"ADMIN_TELEGRAM_ID"`
	DBPath          string `yaml:"db_path" env:"BOT_DB_PATH" env-default:"data/bot.db"`
}

// Log holds logger configuration
type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"INFO"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// MustLoad loads configuration from environment and panics on error
func MustLoad() Config {
	// Load .env file if exists (for development)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
