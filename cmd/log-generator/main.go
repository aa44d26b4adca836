package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/isectech/banking-log-generator/config"
	"github.com/isectech/banking-log-generator/domain/entity"
	"github.com/isectech/banking-log-generator/domain/service"
	"github.com/isectech/banking-log-generator/infrastructure/sink"
	"github.com/isectech/banking-log-generator/pkg/logging"
	"github.com/isectech/banking-log-generator/pkg/metrics"
	"github.com/isectech/banking-log-generator/shared/common"
	"github.com/isectech/banking-log-generator/usecase"
)

const serviceName = "log-generator"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "log-generator: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := config.GeneratorFlags(serviceName)
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

	seed := cfg.Generator.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	pools := entity.DefaultPools()
	adversarial, err := entity.NewAdversarialSet(rnd, pools, cfg.Generator.AdversarialUserCount)
	if err != nil {
		return err
	}

	synth, err := service.NewSynthesizer(rnd, time.Now, cfg.Generator.DaysBack)
	if err != nil {
		return err
	}

	generator, err := service.NewEventGenerator(synth, pools, adversarial, cfg.Generator.EventGeneratorConfig())
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(cfg.Metrics.Namespace)

	uc, err := usecase.NewGenerateLogsUseCase(generator, rnd, cfg.Generator.GenerateLogsConfig(), logger, collector)
	if err != nil {
		return err
	}

	out, err := openSink(cfg, logger)
	if err != nil {
		return err
	}

	logger = logger.WithFields(zap.String("sink", out.Name()))
	logger.Info("Starting banking log generator",
		zap.Int64("seed", seed),
		zap.Int("num_logs", cfg.Generator.NumLogs),
		zap.Strings("adversarial_users", adversarial.Users()),
	)

	metricsServer := metrics.NewServer(cfg.Metrics, collector)
	if cfg.Metrics.Enabled {
		logger.Info("Serving metrics",
			zap.String("address", fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port)),
			zap.String("path", cfg.Metrics.Path),
		)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Stop(shutdownCtx)
		}()

		summary, genErr := uc.Execute(gctx, cfg.Generator.NumLogs, out)
		if err := generationError(genErr, out.Close()); err != nil {
			logger.WithError(err).Error("Generation stopped", zap.Int("written", summary.Total))
			return err
		}

		logger.Info("Generation finished",
			zap.Int("num_logs", summary.Total),
			zap.String("elapsed", common.TimeUtils{}.FormatDuration(summary.Duration)),
			zap.String("output", describeOutput(cfg)),
		)
		return nil
	})

	return g.Wait()
}

// generationError reports both a failed run and a failed flush of its partial output
func generationError(genErr, closeErr error) error {
	if closeErr != nil {
		closeErr = common.NewAppErrorWithCause(common.ErrCodeSinkWrite, "failed to close sink", closeErr)
	}
	return errors.Join(genErr, closeErr)
}

func openSink(cfg *config.Config, logger *logging.Logger) (sink.Sink, error) {
	switch cfg.Output.Sink {
	case sink.NameFile:
		return sink.NewFileSink(cfg.Output.Path)
	case sink.NameStdout:
		return sink.NewStdoutSink(), nil
	case sink.NameKafka:
		return sink.NewKafkaSink(cfg.Kafka, logger)
	default:
		return nil, common.NewAppErrorWithDetails(common.ErrCodeInvalidInput, "unknown sink", cfg.Output.Sink)
	}
}

func describeOutput(cfg *config.Config) string {
	switch cfg.Output.Sink {
	case sink.NameFile:
		return cfg.Output.Path
	case sink.NameKafka:
		return "kafka topic " + cfg.Kafka.Topic
	default:
		return cfg.Output.Sink
	}
}
