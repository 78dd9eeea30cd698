package config

import "time"

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Voice          VoiceConfig          `mapstructure:"voice"`
	Classifier     ClassifierConfig     `mapstructure:"classifier"`
	Credential     CredentialConfig     `mapstructure:"credential"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Queue          QueueConfig          `mapstructure:"queue"`
	Prometheus     PrometheusConfig     `mapstructure:"prometheus"`
	OpenTelemetry  OpenTelemetryConfig  `mapstructure:"opentelemetry"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	WebSocket      bool          `mapstructure:"websocket"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// VoiceConfig drives the activity state machine and the transcript queue.
type VoiceConfig struct {
	WakeWord    string        `mapstructure:"wake_word"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Language    string        `mapstructure:"language"`
	QueueSize   int           `mapstructure:"queue_size"`
}

type ClassifierConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	LocalRules []RuleConfig  `mapstructure:"local_rules"`
}

// RuleConfig is a local rule: every pattern must match for Label to win.
type RuleConfig struct {
	Name     string   `mapstructure:"name"`
	Label    string   `mapstructure:"label"`
	Patterns []string `mapstructure:"patterns"`
}

type CredentialConfig struct {
	Source  string        `mapstructure:"source"`
	URL     string        `mapstructure:"url"`
	Field   string        `mapstructure:"field"`
	Timeout time.Duration `mapstructure:"timeout"`
	Static  string        `mapstructure:"static"`
	Vault   VaultConfig   `mapstructure:"vault"`
}

type VaultConfig struct {
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
	Path    string `mapstructure:"path"`
	Field   string `mapstructure:"field"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      int           `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
}

type RedisConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Prefix  string        `mapstructure:"prefix"`
	// TTL also bounds the in-process store used when Redis is disabled.
	TTL time.Duration `mapstructure:"ttl"`
}

type QueueConfig struct {
	Driver             string `mapstructure:"driver"`
	URL                string `mapstructure:"url"`
	TranscriptsSubject string `mapstructure:"transcripts_subject"`
	CommandsSubject    string `mapstructure:"commands_subject"`
	StatusSubject      string `mapstructure:"status_subject"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type OpenTelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// TranscriptSources counts the enabled ways transcripts can reach the pipeline.
func (c *Config) TranscriptSources() int {
	n := 0
	if c.HTTP.Enabled {
		n++
		if c.HTTP.WebSocket {
			n++
		}
	}
	if c.Queue.Driver != "" && c.Queue.Driver != QueueDriverNone {
		n++
	}
	return n
}
