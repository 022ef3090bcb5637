package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
	// MinUploadLimiterEvictTTL is the shortest idle time before a client's upload limiter is dropped
	MinUploadLimiterEvictTTL = time.Second
)

// Acknowledgment policies for processed deliveries
const (
	// AckAlways acknowledges once any terminal status has been recorded
	AckAlways = "always"
	// AckOnComplete acknowledges COMPLETE jobs and requeues a failed job once.
	// A failure on redelivery is acknowledged and the job stays in ERROR.
	AckOnComplete = "on_complete"
)

// Thumbnail output formats, shared with the worker codec
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	KVS         KVSConfig         `yaml:"kvs"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq"`
	Database    DatabaseConfig    `yaml:"database"`
	FileStorage FileStorageConfig `yaml:"file_storage"`
	Thumbnail   ThumbnailConfig   `yaml:"thumbnail"`
	Logging     LoggingConfig     `yaml:"logging"`
	App         AppConfig         `yaml:"app"`
	Worker      WorkerConfig      `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                  int           `yaml:"port"`
	ReadTimeout           time.Duration `yaml:"read_timeout"`
	WriteTimeout          time.Duration `yaml:"write_timeout"`
	IdleTimeout           time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout       time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes        int64         `yaml:"max_upload_bytes"`
	UploadRatePerSecond   float64       `yaml:"upload_rate_per_second"`
	UploadBurst           int           `yaml:"upload_burst"`
	UploadLimiterEvictTTL time.Duration `yaml:"upload_limiter_evict_ttl"`
}

// KVSConfig holds Redis connection configuration
type KVSConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	IndexKey     string        `yaml:"index_key"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the job history
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration. An empty name
// publishes through the default exchange.
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    *bool  `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// IsDurable reports whether the queue survives a broker restart; defaults to true
func (q QueueConfig) IsDurable() bool {
	return q.Durable == nil || *q.Durable
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// FileStorageConfig holds the directories for uploaded images and thumbnails
type FileStorageConfig struct {
	UploadPath    string `yaml:"upload_path"`
	ThumbnailPath string `yaml:"thumbnail_path"`
}

// ThumbnailConfig holds thumbnail generation settings
type ThumbnailConfig struct {
	MaxPixel int    `yaml:"max_pixel"`
	Format   string `yaml:"format"`
	Quality  int    `yaml:"quality"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Instances int    `yaml:"instances"`
	AckPolicy string `yaml:"ack_policy"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.KVS.IndexKey == "" {
		c.KVS.IndexKey = "imageIndex"
	}
	if c.RabbitMQ.Consumer.PrefetchCount == 0 {
		c.RabbitMQ.Consumer.PrefetchCount = 1
	}
	if c.Thumbnail.MaxPixel == 0 {
		c.Thumbnail.MaxPixel = 100
	}
	if c.Thumbnail.Format == "" {
		c.Thumbnail.Format = FormatJPEG
	}
	if c.Thumbnail.Quality == 0 {
		c.Thumbnail.Quality = 85
	}
	if c.Worker.Instances == 0 {
		c.Worker.Instances = 1
	}
	if c.Worker.AckPolicy == "" {
		c.Worker.AckPolicy = AckAlways
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}
	if c.Server.UploadRatePerSecond == 0 {
		c.Server.UploadRatePerSecond = 5
	}
	if c.Server.UploadBurst == 0 {
		c.Server.UploadBurst = 10
	}
	if c.Server.UploadLimiterEvictTTL == 0 {
		c.Server.UploadLimiterEvictTTL = 10 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
}

// Validate checks the settings shared by both services
func (c *Config) Validate() error {
	if c.KVS.Host == "" {
		return fmt.Errorf("kvs host is required")
	}

	if c.KVS.Port < MinPort || c.KVS.Port > MaxPort {
		return fmt.Errorf("invalid kvs port: %d (must be between %d and %d)", c.KVS.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}

		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}

		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	return nil
}

// ValidateAPIConfig checks the settings needed by the API service
func (c *Config) ValidateAPIConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.FileStorage.UploadPath == "" {
		return fmt.Errorf("file_storage upload_path is required")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max_upload_bytes must be greater than 0")
	}

	if c.Server.UploadRatePerSecond <= 0 || c.Server.UploadBurst <= 0 {
		return fmt.Errorf("server upload_rate_per_second and upload_burst must be greater than 0")
	}

	if c.Server.UploadLimiterEvictTTL < MinUploadLimiterEvictTTL {
		return fmt.Errorf("server upload_limiter_evict_ttl must be at least %s", MinUploadLimiterEvictTTL)
	}

	return nil
}

// ValidateWorkerConfig checks the settings needed by the worker service
func (c *Config) ValidateWorkerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.FileStorage.ThumbnailPath == "" {
		return fmt.Errorf("file_storage thumbnail_path is required")
	}

	if c.Thumbnail.MaxPixel <= 0 {
		return fmt.Errorf("thumbnail max_pixel must be greater than 0")
	}

	if c.Thumbnail.Format != FormatJPEG && c.Thumbnail.Format != FormatPNG {
		return fmt.Errorf("unsupported thumbnail format: %q", c.Thumbnail.Format)
	}

	if c.Thumbnail.Quality < 1 || c.Thumbnail.Quality > 100 {
		return fmt.Errorf("thumbnail quality must be between 1 and 100")
	}

	if c.Worker.Instances <= 0 {
		return fmt.Errorf("worker instances must be greater than 0")
	}

	if c.Worker.AckPolicy != AckAlways && c.Worker.AckPolicy != AckOnComplete {
		return fmt.Errorf("unsupported worker ack_policy: %q", c.Worker.AckPolicy)
	}

	if c.RabbitMQ.Consumer.PrefetchCount != 1 {
		return fmt.Errorf("rabbitmq consumer prefetch_count must be 1")
	}

	return nil
}
