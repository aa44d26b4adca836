package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/isectech/banking-log-generator/config"
	"github.com/isectech/banking-log-generator/infrastructure/elasticsearch"
	"github.com/isectech/banking-log-generator/pkg/logging"
	"github.com/isectech/banking-log-generator/pkg/metrics"
)

const serviceName = "es-setup"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "es-setup: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := config.SetupFlags(serviceName)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.LoadConfig(config.ConfigDir(fs), fs)
	if err != nil {
		return err
	}

	cfg.Logging.ServiceName = serviceName
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Cleanup()

	logger = logger.WithRunID(uuid.New().String())

	bootstrapper, err := elasticsearch.NewBootstrapper(cfg.Elasticsearch, logger, metrics.NewCollector(cfg.Metrics.Namespace))
	if err != nil {
		return err
	}

	return bootstrapper.Run(ctx)
}
