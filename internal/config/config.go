package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"Server"`
	Database     DatabaseConfig     `mapstructure:"Database"`
	Kafka        KafkaConfig        `mapstructure:"Kafka"`
	Notification NotificationConfig `mapstructure:"Notification"`
	Upload       UploadConfig       `mapstructure:"Upload"`
	Logger       LoggerConfig       `mapstructure:"Logger"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"Port"`
	GRPCPort       string        `mapstructure:"GRPCPort"`
	RequestTimeout time.Duration `mapstructure:"RequestTimeout"`
	MigrationsPath string        `mapstructure:"MigrationsPath"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

type KafkaConfig struct {
	// Comma separated. Empty means events are only logged.
	Brokers string `mapstructure:"Brokers"`
	Topic   string `mapstructure:"Topic"`
}

type NotificationConfig struct {
	QueueSize    int           `mapstructure:"QueueSize"`
	Workers      int           `mapstructure:"Workers"`
	MaxRetries   int           `mapstructure:"MaxRetries"`
	RetryBackoff time.Duration `mapstructure:"RetryBackoff"`
}

type UploadConfig struct {
	MaxFileSize   int64 `mapstructure:"MaxFileSize"`
	MaxFiles      int   `mapstructure:"MaxFiles"`
	MaxConcurrent int   `mapstructure:"MaxConcurrent"`
}

type LoggerConfig struct {
	Level string `mapstructure:"Level"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	v.BindEnv("Database.Host", "DATABASE_HOST")
	v.BindEnv("Database.Port", "DATABASE_PORT")
	v.BindEnv("Database.User", "DATABASE_USER")
	v.BindEnv("Database.Password", "DATABASE_PASSWORD")
	v.BindEnv("Database.Name", "DATABASE_NAME")
	v.BindEnv("Database.SSLMode", "DATABASE_SSLMODE")
	v.BindEnv("Server.Port", "HTTP_PORT")
	v.BindEnv("Server.GRPCPort", "GRPC_PORT")
	v.BindEnv("Server.RequestTimeout", "REQUEST_TIMEOUT")
	v.BindEnv("Server.MigrationsPath", "MIGRATIONS_PATH")
	v.BindEnv("Kafka.Brokers", "KAFKA_BROKERS")
	v.BindEnv("Kafka.Topic", "KAFKA_TOPIC")
	v.BindEnv("Notification.QueueSize", "NOTIFICATION_QUEUE_SIZE")
	v.BindEnv("Notification.Workers", "NOTIFICATION_WORKERS")
	v.BindEnv("Notification.MaxRetries", "NOTIFICATION_MAX_RETRIES")
	v.BindEnv("Notification.RetryBackoff", "NOTIFICATION_RETRY_BACKOFF")
	v.BindEnv("Upload.MaxFileSize", "UPLOAD_MAX_FILE_SIZE")
	v.BindEnv("Upload.MaxFiles", "UPLOAD_MAX_FILES")
	v.BindEnv("Upload.MaxConcurrent", "UPLOAD_MAX_CONCURRENT")
	v.BindEnv("Logger.Level", "LOG_LEVEL")

	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Server.Port", "2525")
	v.SetDefault("Server.GRPCPort", "50051")
	v.SetDefault("Server.RequestTimeout", 2*time.Minute)
	v.SetDefault("Server.MigrationsPath", "file://migrations")
	v.SetDefault("Kafka.Topic", "application.notifications")
	v.SetDefault("Notification.QueueSize", 256)
	v.SetDefault("Notification.Workers", 2)
	v.SetDefault("Notification.MaxRetries", 3)
	v.SetDefault("Notification.RetryBackoff", 500*time.Millisecond)
	v.SetDefault("Upload.MaxFileSize", 25*1024*1024)
	v.SetDefault("Upload.MaxFiles", 10)
	v.SetDefault("Upload.MaxConcurrent", 5)
	v.SetDefault("Logger.Level", "info")

	if err := v.ReadInConfig(); err != nil {
		// The file is optional, environment variables are enough.
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// .env files use the flat variable names instead of the nested keys.
	fallbacks := map[*string]string{
		&cfg.Database.Host:     "DATABASE_HOST",
		&cfg.Database.Port:     "DATABASE_PORT",
		&cfg.Database.User:     "DATABASE_USER",
		&cfg.Database.Password: "DATABASE_PASSWORD",
		&cfg.Database.Name:     "DATABASE_NAME",
		&cfg.Kafka.Brokers:     "KAFKA_BROKERS",
	}
	for field, key := range fallbacks {
		if *field == "" {
			*field = v.GetString(key)
		}
	}

	if cfg.Database.Host == "" ||
		cfg.Database.Port == "" ||
		cfg.Database.User == "" ||
		cfg.Database.Password == "" ||
		cfg.Database.Name == "" {
		return nil, fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Name)
	}

	if cfg.Notification.Workers < 1 {
		cfg.Notification.Workers = 1
	}
	if cfg.Upload.MaxFiles < 1 {
		cfg.Upload.MaxFiles = 1
	}
	if cfg.Upload.MaxConcurrent < 1 {
		cfg.Upload.MaxConcurrent = 1
	}

	return &cfg, nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// MigrateURL is the connection string golang-migrate expects.
func (c *DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

// BrokerList splits the configured brokers, dropping empty entries.
func (c *KafkaConfig) BrokerList() []string {
	var out []string
	for _, p := range strings.Split(c.Brokers, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
