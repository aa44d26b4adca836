package config

import (
	"time"

	"github.com/spf13/pflag"
)

// GeneratorFlags registers the log-generator command line
func GeneratorFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.IntP("num-logs", "n", 10000, "Number of log entries to generate")
	fs.StringP("output", "o", "logs/banking_transactions.log", "Output file path")
	fs.String("sink", "file", "Record sink: file, stdout or kafka")
	fs.Int64("seed", 0, "Random seed; 0 seeds from the clock")
	fs.Int("days-back", 7, "Spread timestamps over the last N days")
	fs.Float64("rate", 0, "Maximum records per second; 0 is unlimited")
	fs.String("log-level", "info", "Log level")
	fs.String("config", "", "Directory containing config.yaml")
	return fs
}

// SetupFlags registers the es-setup command line
func SetupFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("url", "http://localhost:9200", "Elasticsearch base URL")
	fs.String("template", "elasticsearch/index_template.json", "Index template document")
	fs.Duration("timeout", 60*time.Second, "How long to wait for Elasticsearch")
	fs.Duration("interval", 2*time.Second, "Delay between health probes")
	fs.String("log-level", "info", "Log level")
	fs.String("config", "", "Directory containing config.yaml")
	return fs
}

// ConfigDir returns the value of the --config flag, if registered
func ConfigDir(fs *pflag.FlagSet) string {
	dir, err := fs.GetString("config")
	if err != nil {
		return ""
	}
	return dir
}
