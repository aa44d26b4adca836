package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/isectech/banking-log-generator/domain/entity"
	"github.com/isectech/banking-log-generator/domain/service"
	"github.com/isectech/banking-log-generator/pkg/logging"
	"github.com/isectech/banking-log-generator/pkg/metrics"
	"github.com/isectech/banking-log-generator/shared/common"
)

// DefaultProgressInterval is how many records pass between progress entries
const DefaultProgressInterval = 1000

// DefaultMixWeights returns the share of each record type in the stream
func DefaultMixWeights() map[entity.RecordType]float64 {
	return map[entity.RecordType]float64{
		entity.RecordTypeTransaction:    40,
		entity.RecordTypeAuthentication: 25,
		entity.RecordTypeATM:            20,
		entity.RecordTypeTransfer:       10,
		entity.RecordTypeBalanceInquiry: 5,
	}
}

// RecordGenerator produces one record of the requested type
type RecordGenerator interface {
	Generate(t entity.RecordType) (entity.Record, error)
}

// RecordSink receives generated records in order
type RecordSink interface {
	Write(ctx context.Context, rec entity.Record) error
	Name() string
}

// GenerateLogsConfig tunes the stream mixer
type GenerateLogsConfig struct {
	Weights          map[entity.RecordType]float64
	ProgressInterval int
	// RateLimit caps records per second; zero means unlimited
	RateLimit float64
}

// GenerationSummary describes a finished or interrupted run
type GenerationSummary struct {
	Requested int                       `json:"requested"`
	Total     int                       `json:"total"`
	ByType    map[entity.RecordType]int `json:"by_type"`
	Anomalies map[string]int            `json:"anomalies"`
	Duration  time.Duration             `json:"duration"`
}

// GenerateLogsUseCase mixes the five generators into one record stream
type GenerateLogsUseCase struct {
	generator        RecordGenerator
	rnd              service.RandSource
	mix              *service.Categorical[entity.RecordType]
	limiter          *rate.Limiter
	progressInterval int
	logger           *logging.Logger
	metrics          *metrics.Collector
}

// NewGenerateLogsUseCase creates a new GenerateLogsUseCase
func NewGenerateLogsUseCase(
	generator RecordGenerator,
	rnd service.RandSource,
	config GenerateLogsConfig,
	logger *logging.Logger,
	metrics *metrics.Collector,
) (*GenerateLogsUseCase, error) {
	if generator == nil {
		return nil, common.NewAppError(common.ErrCodeInvalidInput, "record generator is required")
	}
	if rnd == nil {
		return nil, common.NewAppError(common.ErrCodeInvalidInput, "random source is required")
	}
	if metrics == nil {
		return nil, common.NewAppError(common.ErrCodeInvalidInput, "metrics collector is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	weightsByType := config.Weights
	if len(weightsByType) == 0 {
		weightsByType = DefaultMixWeights()
	}
	for t := range weightsByType {
		if !t.IsValid() {
			return nil, common.NewAppErrorWithDetails(common.ErrCodeInvalidInput,
				"invalid mix weights", fmt.Sprintf("unknown record type %q", t))
		}
	}

	weights := make([]float64, len(entity.AllRecordTypes))
	for i, t := range entity.AllRecordTypes {
		weights[i] = weightsByType[t]
	}
	mix, err := service.NewCategorical(entity.AllRecordTypes, weights)
	if err != nil {
		return nil, common.NewAppErrorWithCause(common.ErrCodeInvalidInput, "invalid mix weights", err)
	}

	if config.RateLimit < 0 {
		return nil, common.NewAppErrorWithDetails(common.ErrCodeOutOfRange,
			"invalid rate limit", fmt.Sprintf("%v records/s", config.RateLimit))
	}
	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	progressInterval := config.ProgressInterval
	if progressInterval <= 0 {
		progressInterval = DefaultProgressInterval
	}

	return &GenerateLogsUseCase{
		generator:        generator,
		rnd:              rnd,
		mix:              mix,
		limiter:          limiter,
		progressInterval: progressInterval,
		logger:           logger.WithComponent("stream-mixer"),
		metrics:          metrics,
	}, nil
}

// Execute writes n records to sink. A non-positive n writes nothing.
// Records already written stay in the sink when ctx is cancelled.
func (uc *GenerateLogsUseCase) Execute(ctx context.Context, n int, sink RecordSink) (*GenerationSummary, error) {
	start := time.Now()

	summary := &GenerationSummary{
		Requested: n,
		ByType:    make(map[entity.RecordType]int, len(entity.AllRecordTypes)),
		Anomalies: make(map[string]int),
	}

	if n <= 0 {
		uc.logger.Info("Nothing to generate", zap.Int("num_logs", n))
		return summary, nil
	}
	if sink == nil {
		return summary, common.NewAppError(common.ErrCodeInvalidInput, "sink is required")
	}

	uc.logger.Info("Generating banking log entries",
		zap.Int("num_logs", n),
		zap.String("sink", sink.Name()),
	)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return uc.finish(summary, start), fmt.Errorf("generation interrupted after %d records: %w", summary.Total, err)
		}
		if uc.limiter != nil {
			if err := uc.limiter.Wait(ctx); err != nil {
				return uc.finish(summary, start), fmt.Errorf("generation interrupted after %d records: %w", summary.Total, err)
			}
		}

		recordType := uc.mix.Sample(uc.rnd)
		rec, err := uc.generator.Generate(recordType)
		if err != nil {
			return uc.finish(summary, start), common.WrapError(err, common.ErrCodeInternal, "failed to generate record")
		}

		if err := sink.Write(ctx, rec); err != nil {
			uc.metrics.RecordSinkError(sink.Name())
			return uc.finish(summary, start), common.NewAppErrorWithCause(common.ErrCodeSinkWrite,
				fmt.Sprintf("failed to write record %d to %s sink", i+1, sink.Name()), err)
		}

		summary.Total++
		summary.ByType[recordType]++
		uc.metrics.RecordGenerated(string(recordType))

		if anomaly := rec.Anomaly(); anomaly != "" {
			summary.Anomalies[anomaly]++
			uc.metrics.RecordAnomaly(string(recordType), anomaly)
			uc.logger.LogAnomalyInjected(string(recordType), anomaly, rec.Subject())
		}

		if (i+1)%uc.progressInterval == 0 {
			uc.logger.Info("Generated logs", zap.Int("count", i+1))
		}
	}

	uc.finish(summary, start)
	uc.logger.LogPerformance("generate_logs", summary.Duration,
		zap.Int("num_logs", summary.Total),
		zap.String("sink", sink.Name()),
	)
	uc.logger.Info("Successfully generated logs",
		zap.Int("num_logs", summary.Total),
		zap.Any("by_type", summary.ByType),
		zap.Any("anomalies", summary.Anomalies),
	)

	return summary, nil
}

func (uc *GenerateLogsUseCase) finish(summary *GenerationSummary, start time.Time) *GenerationSummary {
	summary.Duration = time.Since(start)
	uc.metrics.ObserveGeneration(summary.Duration)
	return summary
}
