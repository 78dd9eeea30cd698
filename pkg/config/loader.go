package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	CredentialSourceHTTP   = "http"
	CredentialSourceVault  = "vault"
	CredentialSourceStatic = "static"

	QueueDriverNone     = "none"
	QueueDriverNATS     = "nats"
	QueueDriverRabbitMQ = "rabbitmq"
)

func Load() (*Config, error) {
	return LoadFrom(viper.New(), "")
}

// LoadFrom reads configuration into v. An empty path searches the usual
// config directories for config.yaml.
func LoadFrom(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath("/app/configs")
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	v.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	v.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	v.BindEnv("queue.url", "NATS_URL", "AMQP_URL", "APP_QUEUE_URL")
	v.BindEnv("credential.static", "OPENAI_API_KEY", "APP_CREDENTIAL_STATIC")
	v.BindEnv("credential.vault.address", "VAULT_ADDR", "APP_CREDENTIAL_VAULT_ADDRESS")
	v.BindEnv("credential.vault.token", "VAULT_TOKEN", "APP_CREDENTIAL_VAULT_TOKEN")
	v.BindEnv("security.jwt_secret", "JWT_SECRET", "APP_SECURITY_JWT_SECRET")
	v.BindEnv("logging.level", "LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "alfa-voz")
	v.SetDefault("app.version", "v1.0.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.websocket", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("voice.wake_word", "alfa")
	v.SetDefault("voice.idle_timeout", 10*time.Second)
	v.SetDefault("voice.language", "es-MX")
	v.SetDefault("voice.queue_size", 32)

	v.SetDefault("classifier.endpoint", "https://api.openai.com/v1/responses")
	v.SetDefault("classifier.model", "gpt-4o-mini")
	v.SetDefault("classifier.timeout", 8*time.Second)

	v.SetDefault("credential.source", CredentialSourceHTTP)
	v.SetDefault("credential.url", "https://698def67aded595c253090f9.mockapi.io/api/v1/apiKey")
	v.SetDefault("credential.field", "apikey")
	v.SetDefault("credential.timeout", 10*time.Second)
	v.SetDefault("credential.vault.path", "secret/data/openai")
	v.SetDefault("credential.vault.field", "api_key")

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.interval", time.Minute)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.failure_threshold", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.prefix", "alfa:panel:")

	v.SetDefault("queue.driver", QueueDriverNone)
	v.SetDefault("queue.transcripts_subject", "voice.transcripts")
	v.SetDefault("queue.commands_subject", "voice.commands")
	v.SetDefault("queue.status_subject", "voice.status")

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")

	v.SetDefault("opentelemetry.enabled", false)
	v.SetDefault("opentelemetry.endpoint", "http://jaeger:14268/api/traces")
	v.SetDefault("opentelemetry.service_name", "alfa-voz")
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Voice.WakeWord) == "" {
		return errors.New("config: voice.wake_word must not be empty")
	}
	if c.Voice.WakeWord != strings.ToLower(strings.TrimSpace(c.Voice.WakeWord)) {
		return fmt.Errorf("config: voice.wake_word %q must be lowercase and trimmed", c.Voice.WakeWord)
	}
	if c.Voice.IdleTimeout <= 0 {
		return errors.New("config: voice.idle_timeout must be positive")
	}
	if c.Classifier.Timeout <= 0 {
		return errors.New("config: classifier.timeout must be positive")
	}

	switch c.Credential.Source {
	case CredentialSourceHTTP:
		if c.Credential.URL == "" {
			return errors.New("config: credential.url is required for the http source")
		}
	case CredentialSourceVault:
		if c.Credential.Vault.Address == "" {
			return errors.New("config: credential.vault.address is required for the vault source")
		}
	case CredentialSourceStatic:
	default:
		return fmt.Errorf("config: unknown credential.source %q", c.Credential.Source)
	}

	switch c.Queue.Driver {
	case "", QueueDriverNone:
	case QueueDriverNATS, QueueDriverRabbitMQ:
		if c.Queue.URL == "" {
			return fmt.Errorf("config: queue.url is required for the %s driver", c.Queue.Driver)
		}
	default:
		return fmt.Errorf("config: unknown queue.driver %q", c.Queue.Driver)
	}

	if c.TranscriptSources() == 0 {
		return errors.New("config: no transcript source enabled; enable http or set queue.driver")
	}

	return nil
}
