package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/isectech/banking-log-generator/domain/entity"
	"github.com/isectech/banking-log-generator/domain/service"
	"github.com/isectech/banking-log-generator/infrastructure/elasticsearch"
	"github.com/isectech/banking-log-generator/infrastructure/sink"
	"github.com/isectech/banking-log-generator/pkg/logging"
	"github.com/isectech/banking-log-generator/pkg/metrics"
	"github.com/isectech/banking-log-generator/shared/common"
	"github.com/isectech/banking-log-generator/usecase"
)

// EnvPrefix namespaces environment overrides, e.g. BANKLOGS_GENERATOR_NUM_LOGS
const EnvPrefix = "BANKLOGS"

// Config represents the configuration of both commands
type Config struct {
	Generator     GeneratorConfig      `mapstructure:"generator"`
	Output        OutputConfig         `mapstructure:"output"`
	Kafka         sink.KafkaConfig     `mapstructure:"kafka"`
	Elasticsearch elasticsearch.Config `mapstructure:"elasticsearch"`
	Logging       logging.Config       `mapstructure:"logging"`
	Metrics       metrics.Config       `mapstructure:"metrics"`
}

// GeneratorConfig contains the synthesis settings
type GeneratorConfig struct {
	NumLogs              int                        `mapstructure:"num_logs"`
	DaysBack             int                        `mapstructure:"days_back"`
	Seed                 int64                      `mapstructure:"seed"`
	ProgressInterval     int                        `mapstructure:"progress_interval"`
	RateLimit            float64                    `mapstructure:"rate_limit"`
	FraudRate            float64                    `mapstructure:"fraud_rate"`
	BruteForceRate       float64                    `mapstructure:"brute_force_rate"`
	AdversarialUserCount int                        `mapstructure:"adversarial_user_count"`
	Weights              map[string]float64         `mapstructure:"weights"`
	TransactionAmount    service.AmountDistribution `mapstructure:"transaction_amount"`
	TransferAmount       service.AmountDistribution `mapstructure:"transfer_amount"`
}

// OutputConfig selects where records go
type OutputConfig struct {
	Sink string `mapstructure:"sink"`
	Path string `mapstructure:"path"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"num-logs":  "generator.num_logs",
	"output":    "output.path",
	"sink":      "output.sink",
	"seed":      "generator.seed",
	"days-back": "generator.days_back",
	"rate":      "generator.rate_limit",
	"url":       "elasticsearch.url",
	"template":  "elasticsearch.template_path",
	"timeout":   "elasticsearch.timeout",
	"interval":  "elasticsearch.retry_interval",
	"log-level": "logging.level",
}

// LoadConfig merges defaults, config.yaml, BANKLOGS_* environment variables
// and any flags of fs that were set. An empty configPath searches ./config
// and the working directory.
func LoadConfig(configPath string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if flag := fs.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	// Generator defaults
	v.SetDefault("generator.num_logs", 10000)
	v.SetDefault("generator.days_back", 7)
	v.SetDefault("generator.seed", 0)
	v.SetDefault("generator.progress_interval", usecase.DefaultProgressInterval)
	v.SetDefault("generator.rate_limit", 0.0)
	v.SetDefault("generator.fraud_rate", service.DefaultFraudRate)
	v.SetDefault("generator.brute_force_rate", service.DefaultBruteForceRate)
	v.SetDefault("generator.adversarial_user_count", entity.DefaultAdversarialUserCount)
	weights := make(map[string]interface{})
	for t, w := range usecase.DefaultMixWeights() {
		weights[string(t)] = w
	}
	v.SetDefault("generator.weights", weights)
	v.SetDefault("generator.transaction_amount.mu", service.PointOfSaleAmounts.Mu)
	v.SetDefault("generator.transaction_amount.sigma", service.PointOfSaleAmounts.Sigma)
	v.SetDefault("generator.transfer_amount.mu", service.TransferAmounts.Mu)
	v.SetDefault("generator.transfer_amount.sigma", service.TransferAmounts.Sigma)

	// Output defaults
	v.SetDefault("output.sink", sink.NameFile)
	v.SetDefault("output.path", "logs/banking_transactions.log")

	// Kafka defaults
	kafka := sink.DefaultKafkaConfig()
	v.SetDefault("kafka.brokers", kafka.Brokers)
	v.SetDefault("kafka.topic", kafka.Topic)
	v.SetDefault("kafka.batch_size", kafka.BatchSize)
	v.SetDefault("kafka.batch_timeout", kafka.BatchTimeout)
	v.SetDefault("kafka.write_timeout", kafka.WriteTimeout)
	v.SetDefault("kafka.max_attempts", kafka.MaxAttempts)
	v.SetDefault("kafka.compression", kafka.Compression)
	v.SetDefault("kafka.encoding", kafka.Encoding)
	v.SetDefault("kafka.failure_threshold", kafka.FailureThreshold)
	v.SetDefault("kafka.breaker_timeout", kafka.BreakerTimeout)

	// Elasticsearch defaults
	es := elasticsearch.DefaultConfig()
	v.SetDefault("elasticsearch.url", es.URL)
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.timeout", es.Timeout)
	v.SetDefault("elasticsearch.retry_interval", es.RetryInterval)
	v.SetDefault("elasticsearch.template_name", es.TemplateName)
	v.SetDefault("elasticsearch.template_path", es.TemplatePath)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.service_name", "banking-log-generator")
	v.SetDefault("logging.development", false)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "banking_logs")
	v.SetDefault("metrics.host", "0.0.0.0")
	v.SetDefault("metrics.port", 9102)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the merged configuration
func (c *Config) Validate() error {
	var errs common.ValidationErrors

	g := c.Generator
	if g.DaysBack <= 0 {
		errs.Add("generator.days_back", "must be positive", g.DaysBack)
	}
	if g.ProgressInterval <= 0 {
		errs.Add("generator.progress_interval", "must be positive", g.ProgressInterval)
	}
	if g.RateLimit < 0 {
		errs.Add("generator.rate_limit", "must not be negative", g.RateLimit)
	}
	if g.FraudRate < 0 || g.FraudRate > 1 {
		errs.Add("generator.fraud_rate", "must be within [0, 1]", g.FraudRate)
	}
	if g.BruteForceRate < 0 || g.BruteForceRate > 1 {
		errs.Add("generator.brute_force_rate", "must be within [0, 1]", g.BruteForceRate)
	}
	if g.AdversarialUserCount <= 0 || g.AdversarialUserCount > entity.UserPoolSize {
		errs.Add("generator.adversarial_user_count",
			fmt.Sprintf("must be within [1, %d]", entity.UserPoolSize), g.AdversarialUserCount)
	}
	if err := g.TransactionAmount.Validate(); err != nil {
		errs.Add("generator.transaction_amount", err.Error(), g.TransactionAmount)
	}
	if err := g.TransferAmount.Validate(); err != nil {
		errs.Add("generator.transfer_amount", err.Error(), g.TransferAmount)
	}

	var total float64
	for name, w := range g.Weights {
		if !entity.RecordType(name).IsValid() {
			errs.Add("generator.weights", "unknown record type", name)
		}
		if w < 0 {
			errs.Add("generator.weights."+name, "must not be negative", w)
		}
		total += w
	}
	if total <= 0 {
		errs.Add("generator.weights", "must have a positive total", g.Weights)
	}

	switch c.Output.Sink {
	case sink.NameFile:
		if c.Output.Path == "" {
			errs.Add("output.path", "is required for the file sink", c.Output.Path)
		}
	case sink.NameStdout:
	case sink.NameKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs.Add("kafka.brokers", "at least one broker is required", c.Kafka.Brokers)
		}
		if c.Kafka.Topic == "" {
			errs.Add("kafka.topic", "is required", c.Kafka.Topic)
		}
		if c.Kafka.BatchSize <= 0 {
			errs.Add("kafka.batch_size", "must be positive", c.Kafka.BatchSize)
		}
		if c.Kafka.Encoding != sink.EncodingJSON && c.Kafka.Encoding != sink.EncodingMsgpack {
			errs.Add("kafka.encoding", "must be json or msgpack", c.Kafka.Encoding)
		}
	default:
		errs.Add("output.sink", "must be one of file, stdout, kafka", c.Output.Sink)
	}

	if c.Elasticsearch.Timeout <= 0 {
		errs.Add("elasticsearch.timeout", "must be positive", c.Elasticsearch.Timeout)
	}
	if c.Elasticsearch.RetryInterval <= 0 {
		errs.Add("elasticsearch.retry_interval", "must be positive", c.Elasticsearch.RetryInterval)
	}

	if errs.HasErrors() {
		return errs.ToAppError()
	}
	return nil
}

// MixWeights returns the stream mix keyed by record type
func (g GeneratorConfig) MixWeights() map[entity.RecordType]float64 {
	weights := make(map[entity.RecordType]float64, len(g.Weights))
	for name, w := range g.Weights {
		weights[entity.RecordType(name)] = w
	}
	return weights
}

// EventGeneratorConfig returns the generator tuning
func (g GeneratorConfig) EventGeneratorConfig() service.GeneratorConfig {
	return service.GeneratorConfig{
		FraudRate:          g.FraudRate,
		BruteForceRate:     g.BruteForceRate,
		TransactionAmounts: g.TransactionAmount,
		TransferAmounts:    g.TransferAmount,
	}
}

// GenerateLogsConfig returns the stream mixer settings
func (g GeneratorConfig) GenerateLogsConfig() usecase.GenerateLogsConfig {
	return usecase.GenerateLogsConfig{
		Weights:          g.MixWeights(),
		ProgressInterval: g.ProgressInterval,
		RateLimit:        g.RateLimit,
	}
}
