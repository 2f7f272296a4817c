package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
)

// Config holds the service configuration. Values come from an optional YAML
// file and are then overridden by environment variables.
type Config struct {
	HTTPAddr  string          `yaml:"http_addr"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Session   SessionConfig   `yaml:"session"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit int             `yaml:"rate_limit"` // requests per second per client, 0 disables
	Postgres  PostgresConfig  `yaml:"postgres"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	S3        S3Config        `yaml:"s3"`
	Log       LogConfig       `yaml:"log"`
}

type ArtifactsConfig struct {
	ScalerPath        string `yaml:"scaler_path"`
	ModelPath         string `yaml:"model_path"`
	Backend           string `yaml:"backend"` // random_forest, sagemaker
	SageMakerEndpoint string `yaml:"sagemaker_endpoint"`
	AWSRegion         string `yaml:"aws_region"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	Store         string        `yaml:"store"` // memory, redis, dynamodb
	DynamoDBTable string        `yaml:"dynamodb_table"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (c RedisConfig) Enabled() bool { return c.Host != "" }
func (c RedisConfig) Addr() string  { return net.JoinHostPort(c.Host, c.Port) }

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"db"`
	SSLMode  string `yaml:"sslmode"`
}

func (c PostgresConfig) Enabled() bool { return c.Host != "" }

type RabbitMQConfig struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	Queue      string `yaml:"queue"` // consumed by the audit worker
}

func (c RabbitMQConfig) Enabled() bool { return c.Host != "" }

func (c RabbitMQConfig) URL() string {
	return "amqp://" + c.User + ":" + c.Password + "@" + net.JoinHostPort(c.Host, c.Port) + "/"
}

type S3Config struct {
	Host      string `yaml:"host"`
	Port      string `yaml:"port"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

func (c S3Config) Enabled() bool { return c.Host != "" }

func (c S3Config) Endpoint() string {
	if c.Port == "" {
		return c.Host
	}
	return net.JoinHostPort(c.Host, c.Port)
}

type LogConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

func Default() *Config {
	return &Config{
		HTTPAddr: ":8080",
		Artifacts: ArtifactsConfig{
			ScalerPath: "models/scaler.json",
			ModelPath:  "models/best_rf_model.json",
			Backend:    "random_forest",
			AWSRegion:  "eu-west-1",
		},
		Session: SessionConfig{
			TTL:           2 * time.Hour,
			Store:         StoreMemory,
			DynamoDBTable: "lrt_sessions",
		},
		Redis:    RedisConfig{Port: "6379"},
		Postgres: PostgresConfig{Port: 5432, SSLMode: "disable"},
		RabbitMQ: RabbitMQConfig{
			Port:       "5672",
			Exchange:   "predictions.exchange",
			RoutingKey: "predictions.created",
			Queue:      "predictions.audit.q",
		},
		Log: LogConfig{Level: "info", Env: "production"},
	}
}

// Load reads ./.env.local when present, then the YAML file at path (if any),
// then environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load("./.env.local"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env.local: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s value %q", key, v))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s value %q", key, v))
				return
			}
			*dst = b
		}
	}

	setString("HTTP_ADDR", &c.HTTPAddr)

	// ARTIFACTS
	setString("SCALER_PATH", &c.Artifacts.ScalerPath)
	setString("MODEL_PATH", &c.Artifacts.ModelPath)
	setString("CLASSIFIER_BACKEND", &c.Artifacts.Backend)
	setString("SAGEMAKER_ENDPOINT_NAME", &c.Artifacts.SageMakerEndpoint)
	setString("AWS_REGION", &c.Artifacts.AWSRegion)

	// SESSION
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid SESSION_TTL value %q", v))
		} else {
			c.Session.TTL = d
		}
	}
	setString("HISTORY_STORE", &c.Session.Store)
	setString("DYNAMODB_TABLE", &c.Session.DynamoDBTable)

	// REDIS
	setString("REDIS_HOST", &c.Redis.Host)
	setString("REDIS_PORT", &c.Redis.Port)
	setString("REDIS_PASSWORD", &c.Redis.Password)
	setInt("REDIS_DB", &c.Redis.DB)
	setInt("RATE_LIMIT", &c.RateLimit)

	// PSQL
	setString("PSQL_HOST", &c.Postgres.Host)
	setInt("PSQL_PORT", &c.Postgres.Port)
	setString("PSQL_USER", &c.Postgres.User)
	setString("PSQL_PASSWORD", &c.Postgres.Password)
	setString("PSQL_DB", &c.Postgres.DBName)
	setString("PSQL_SSLMODE", &c.Postgres.SSLMode)

	// RABBITMQ
	setString("RABBITMQ_HOST", &c.RabbitMQ.Host)
	setString("RABBITMQ_PORT", &c.RabbitMQ.Port)
	setString("RABBITMQ_USER", &c.RabbitMQ.User)
	setString("RABBITMQ_PASSWORD", &c.RabbitMQ.Password)
	setString("RABBITMQ_EXCHANGE", &c.RabbitMQ.Exchange)
	setString("RABBITMQ_ROUTING_KEY", &c.RabbitMQ.RoutingKey)
	setString("RABBITMQ_QUEUE", &c.RabbitMQ.Queue)

	// S3
	setString("S3_HOST", &c.S3.Host)
	setString("S3_PORT", &c.S3.Port)
	setString("S3_BUCKET", &c.S3.Bucket)
	setString("S3_ACCESS_KEY", &c.S3.AccessKey)
	setString("S3_SECRET_KEY", &c.S3.SecretKey)
	setBool("S3_SECURE", &c.S3.Secure)

	// LOGGING
	setString("LOG_LEVEL", &c.Log.Level)
	setString("APP_ENV", &c.Log.Env)

	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is empty"))
	}
	if c.Artifacts.ScalerPath == "" {
		errs = append(errs, errors.New("scaler path is empty"))
	}
	switch c.Artifacts.Backend {
	case "random_forest":
		if c.Artifacts.ModelPath == "" {
			errs = append(errs, errors.New("model path is empty"))
		}
	case "sagemaker":
		if c.Artifacts.SageMakerEndpoint == "" {
			errs = append(errs, errors.New("SAGEMAKER_ENDPOINT_NAME is required for the sagemaker backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown classifier backend %q", c.Artifacts.Backend))
	}

	switch c.Session.Store {
	case StoreMemory:
	case StoreRedis:
		if !c.Redis.Enabled() {
			errs = append(errs, errors.New("REDIS_HOST is required for the redis history store"))
		}
	case StoreDynamoDB:
		if c.Session.DynamoDBTable == "" {
			errs = append(errs, errors.New("DYNAMODB_TABLE is required for the dynamodb history store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown history store %q", c.Session.Store))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}

	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	if c.RateLimit > 0 && !c.Redis.Enabled() {
		errs = append(errs, errors.New("REDIS_HOST is required for rate limiting"))
	}
	if c.S3.Enabled() && c.S3.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required when S3_HOST is set"))
	}

	return errors.Join(errs...)
}
