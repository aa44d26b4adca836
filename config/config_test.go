package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isectech/banking-log-generator/domain/entity"
	"github.com/isectech/banking-log-generator/shared/common"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(t.TempDir(), nil)
	require.NoError(t, err)

	g := config.Generator
	assert.Equal(t, 10000, g.NumLogs)
	assert.Equal(t, 7, g.DaysBack)
	assert.Equal(t, int64(0), g.Seed)
	assert.Equal(t, 1000, g.ProgressInterval)
	assert.Equal(t, 0.05, g.FraudRate)
	assert.Equal(t, 0.03, g.BruteForceRate)
	assert.Equal(t, 10, g.AdversarialUserCount)
	assert.Equal(t, 5.0, g.TransactionAmount.Mu)
	assert.Equal(t, 2.0, g.TransactionAmount.Sigma)
	assert.Equal(t, 6.0, g.TransferAmount.Mu)
	assert.Equal(t, 1.5, g.TransferAmount.Sigma)
	assert.Equal(t, map[entity.RecordType]float64{
		entity.RecordTypeTransaction:    40,
		entity.RecordTypeAuthentication: 25,
		entity.RecordTypeATM:            20,
		entity.RecordTypeTransfer:       10,
		entity.RecordTypeBalanceInquiry: 5,
	}, g.MixWeights())

	assert.Equal(t, "file", config.Output.Sink)
	assert.Equal(t, "logs/banking_transactions.log", config.Output.Path)

	assert.Equal(t, "http://localhost:9200", config.Elasticsearch.URL)
	assert.Equal(t, 60*time.Second, config.Elasticsearch.Timeout)
	assert.Equal(t, 2*time.Second, config.Elasticsearch.RetryInterval)
	assert.Equal(t, "banking-logs-template", config.Elasticsearch.TemplateName)
	assert.Equal(t, "elasticsearch/index_template.json", config.Elasticsearch.TemplatePath)

	assert.Equal(t, "stderr", config.Logging.Output)
	assert.False(t, config.Metrics.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, config.Kafka.Brokers)
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	defaults, err := LoadConfig(t.TempDir(), nil)
	require.NoError(t, err)

	shipped, err := LoadConfig(".", nil)
	require.NoError(t, err)

	assert.Equal(t, defaults, shipped)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := writeConfig(t, `
generator:
  num_logs: 77
  fraud_rate: 0.5
  weights:
    atm: 0
output:
  sink: stdout
elasticsearch:
  timeout: 5s
`)

	config, err := LoadConfig(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, 77, config.Generator.NumLogs)
	assert.Equal(t, 0.5, config.Generator.FraudRate)
	assert.Equal(t, 0.0, config.Generator.MixWeights()[entity.RecordTypeATM])
	assert.Equal(t, 40.0, config.Generator.MixWeights()[entity.RecordTypeTransaction])
	assert.Equal(t, "stdout", config.Output.Sink)
	assert.Equal(t, 5*time.Second, config.Elasticsearch.Timeout)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("BANKLOGS_GENERATOR_NUM_LOGS", "42")
	t.Setenv("BANKLOGS_OUTPUT_PATH", "/tmp/out.log")
	t.Setenv("BANKLOGS_ELASTICSEARCH_URL", "http://search:9200")

	config, err := LoadConfig(t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, 42, config.Generator.NumLogs)
	assert.Equal(t, "/tmp/out.log", config.Output.Path)
	assert.Equal(t, "http://search:9200", config.Elasticsearch.URL)
}

func TestLoadConfigGeneratorFlags(t *testing.T) {
	dir := writeConfig(t, "generator:\n  num_logs: 77\n  days_back: 3\n")
	t.Setenv("BANKLOGS_GENERATOR_SEED", "5")

	fs := GeneratorFlags("test")
	require.NoError(t, fs.Parse([]string{"-n", "5", "--seed", "9", "--rate", "2.5", "--sink", "stdout", "-o", "out/x.log"}))

	config, err := LoadConfig(dir, fs)
	require.NoError(t, err)

	assert.Equal(t, 5, config.Generator.NumLogs)
	assert.Equal(t, int64(9), config.Generator.Seed)
	assert.Equal(t, 2.5, config.Generator.RateLimit)
	assert.Equal(t, 3, config.Generator.DaysBack, "unset flags keep file values")
	assert.Equal(t, "stdout", config.Output.Sink)
	assert.Equal(t, "out/x.log", config.Output.Path)
}

func TestLoadConfigSetupFlags(t *testing.T) {
	fs := SetupFlags("test")
	require.NoError(t, fs.Parse([]string{"--url", "http://es:9200", "--timeout", "5s", "--interval", "250ms", "--template", "t.json"}))

	config, err := LoadConfig(t.TempDir(), fs)
	require.NoError(t, err)

	assert.Equal(t, "http://es:9200", config.Elasticsearch.URL)
	assert.Equal(t, 5*time.Second, config.Elasticsearch.Timeout)
	assert.Equal(t, 250*time.Millisecond, config.Elasticsearch.RetryInterval)
	assert.Equal(t, "t.json", config.Elasticsearch.TemplatePath)
}

func TestConfigDir(t *testing.T) {
	fs := GeneratorFlags("test")
	require.NoError(t, fs.Parse([]string{"--config", "/etc/banklogs"}))
	assert.Equal(t, "/etc/banklogs", ConfigDir(fs))
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"fraud rate above one", "generator:\n  fraud_rate: 1.5\n", "generator.fraud_rate"},
		{"negative brute force rate", "generator:\n  brute_force_rate: -0.1\n", "generator.brute_force_rate"},
		{"zero days back", "generator:\n  days_back: 0\n", "generator.days_back"},
		{"negative weight", "generator:\n  weights:\n    atm: -1\n", "generator.weights.atm"},
		{"non-positive sigma", "generator:\n  transfer_amount:\n    sigma: 0\n", "generator.transfer_amount"},
		{"unknown sink", "output:\n  sink: s3\n", "output.sink"},
		{"zero timeout", "elasticsearch:\n  timeout: 0s\n", "elasticsearch.timeout"},
		{"unknown kafka encoding", "output:\n  sink: kafka\nkafka:\n  encoding: avro\n", "kafka.encoding"},
		{"too many adversarial users", "generator:\n  adversarial_user_count: 501\n", "generator.adversarial_user_count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.True(t, common.HasErrorCode(err, common.ErrCodeValidationFailed))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "generator: [unterminated"), nil)
	assert.Error(t, err)
}

func TestGeneratorConfigConversions(t *testing.T) {
	config, err := LoadConfig(t.TempDir(), nil)
	require.NoError(t, err)

	gen := config.Generator.EventGeneratorConfig()
	assert.NoError(t, gen.Validate())
	assert.Equal(t, 0.05, gen.FraudRate)

	mix := config.Generator.GenerateLogsConfig()
	assert.Equal(t, 1000, mix.ProgressInterval)
	assert.Len(t, mix.Weights, 5)
}
