package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is the envconfig prefix shared by every variable.
	EnvPrefix = "crewdeck"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	Redis    RedisConfig
	GCP      GCPConfig
	GCS      GCSConfig
	PubSub   PubSubConfig
	Push     PushConfig
	Batch    BatchConfig
	Eventing EventingConfig
	Ops      OpsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CREWDECK_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"CREWDECK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CREWDECK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CREWDECK_SERVICE_KIND" default:"fanout-worker"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CREWDECK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CREWDECK_REDIS_ADDR"`
	Password     string        `envconfig:"CREWDECK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CREWDECK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CREWDECK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CREWDECK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CREWDECK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CREWDECK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CREWDECK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CREWDECK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CREWDECK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CREWDECK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"CREWDECK_GCS_BUCKET_NAME" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"CREWDECK_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type PubSubConfig struct {
	ChannelEventsTopic        string `envconfig:"CREWDECK_PUBSUB_CHANNEL_EVENTS_TOPIC" default:"cw-channel-events"`
	ChannelEventsSubscription string `envconfig:"CREWDECK_PUBSUB_CHANNEL_EVENTS_SUBSCRIPTION" required:"true"`
}

type PushConfig struct {
	AppID            string `envconfig:"CREWDECK_PUSH_APP_ID" required:"true"`
	APIKeySecretName string `envconfig:"CREWDECK_PUSH_API_KEY_SECRET" default:"PUSH_REST_API_KEY"`
	BaseURL          string `envconfig:"CREWDECK_PUSH_BASE_URL"`
}

type BatchConfig struct {
	// ChunkSize stays well under the backend's 500-op batch ceiling.
	ChunkSize int `envconfig:"CREWDECK_BATCH_CHUNK_SIZE" default:"250"`
}

type EventingConfig struct {
	NotificationLedgerTTL time.Duration `envconfig:"CREWDECK_NOTIFICATION_LEDGER_TTL" default:"720h"`
}

type OpsConfig struct {
	Port string `envconfig:"CREWDECK_OPS_PORT" default:"8081"`
}
