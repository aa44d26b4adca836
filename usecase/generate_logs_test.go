package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/isectech/banking-log-generator/domain/entity"
	"github.com/isectech/banking-log-generator/domain/service"
	"github.com/isectech/banking-log-generator/infrastructure/sink"
	"github.com/isectech/banking-log-generator/pkg/logging"
	"github.com/isectech/banking-log-generator/pkg/metrics"
	"github.com/isectech/banking-log-generator/shared/common"
)

var testNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type memorySink struct {
	records []entity.Record
	failAt  int
}

func (m *memorySink) Write(ctx context.Context, rec entity.Record) error {
	if m.failAt > 0 && len(m.records)+1 == m.failAt {
		return errors.New("disk full")
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memorySink) Name() string { return "memory" }

type testHarness struct {
	useCase   *GenerateLogsUseCase
	collector *metrics.Collector
	logs      *observer.ObservedLogs
}

func newHarness(t *testing.T, seed int64, config GenerateLogsConfig, genConfig service.GeneratorConfig) *testHarness {
	t.Helper()

	rnd := rand.New(rand.NewSource(seed))
	pools := entity.DefaultPools()
	adversarial, err := entity.NewAdversarialSet(rnd, pools, entity.DefaultAdversarialUserCount)
	require.NoError(t, err)
	synth, err := service.NewSynthesizer(rnd, func() time.Time { return testNow }, 7)
	require.NoError(t, err)
	generator, err := service.NewEventGenerator(synth, pools, adversarial, genConfig)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	collector := metrics.NewCollector("test")

	uc, err := NewGenerateLogsUseCase(generator, rnd, config, logging.FromZap(zap.New(core), "test"), collector)
	require.NoError(t, err)

	return &testHarness{useCase: uc, collector: collector, logs: logs}
}

func TestExecuteWritesExactlyN(t *testing.T) {
	for _, n := range []int{0, 1, 5, 1234} {
		h := newHarness(t, 1, GenerateLogsConfig{}, service.DefaultGeneratorConfig())
		out := &memorySink{}

		summary, err := h.useCase.Execute(context.Background(), n, out)
		require.NoError(t, err)
		assert.Len(t, out.records, n)
		assert.Equal(t, n, summary.Total)

		byType := 0
		for _, c := range summary.ByType {
			byType += c
		}
		assert.Equal(t, n, byType)
	}
}

func TestExecuteNonPositiveCountWritesNothing(t *testing.T) {
	h := newHarness(t, 1, GenerateLogsConfig{}, service.DefaultGeneratorConfig())
	out := &memorySink{}

	summary, err := h.useCase.Execute(context.Background(), -5, out)
	require.NoError(t, err)
	assert.Empty(t, out.records)
	assert.Zero(t, summary.Total)

	summary, err = h.useCase.Execute(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
}

func TestExecuteMixMatchesWeights(t *testing.T) {
	h := newHarness(t, 99, GenerateLogsConfig{}, service.DefaultGeneratorConfig())
	out := &memorySink{}

	const n = 100000
	summary, err := h.useCase.Execute(context.Background(), n, out)
	require.NoError(t, err)

	weights := DefaultMixWeights()
	var chiSquare float64
	for _, recordType := range entity.AllRecordTypes {
		expected := n * weights[recordType] / 100
		diff := float64(summary.ByType[recordType]) - expected
		chiSquare += diff * diff / expected
	}
	// 99.9th percentile of chi-square with 4 degrees of freedom
	assert.Less(t, chiSquare, 18.47, "counts %v", summary.ByType)

	for _, recordType := range entity.AllRecordTypes {
		assert.Equal(t, float64(summary.ByType[recordType]),
			testutil.ToFloat64(h.collector.RecordsGenerated.WithLabelValues(string(recordType))))
	}
	assert.Equal(t, float64(summary.Anomalies[entity.AnomalyFraud]),
		testutil.ToFloat64(h.collector.AnomaliesInjected.WithLabelValues(string(entity.RecordTypeTransaction), entity.AnomalyFraud)))
	assert.Positive(t, summary.Anomalies[entity.AnomalyFraud])
	assert.Positive(t, summary.Anomalies[entity.AnomalyBruteForce])
}

func TestExecuteHonoursCustomWeights(t *testing.T) {
	config := GenerateLogsConfig{
		Weights: map[entity.RecordType]float64{entity.RecordTypeATM: 3},
	}
	h := newHarness(t, 5, config, service.DefaultGeneratorConfig())
	out := &memorySink{}

	_, err := h.useCase.Execute(context.Background(), 200, out)
	require.NoError(t, err)
	for _, rec := range out.records {
		assert.Equal(t, entity.RecordTypeATM, rec.RecordType())
	}
}

func TestExecuteLogsProgress(t *testing.T) {
	h := newHarness(t, 3, GenerateLogsConfig{}, service.DefaultGeneratorConfig())

	_, err := h.useCase.Execute(context.Background(), 2500, &memorySink{})
	require.NoError(t, err)

	progress := h.logs.FilterMessage("Generated logs").All()
	require.Len(t, progress, 2)
	assert.Equal(t, int64(1000), progress[0].ContextMap()["count"])
	assert.Equal(t, int64(2000), progress[1].ContextMap()["count"])
	assert.Equal(t, 1, h.logs.FilterMessage("Successfully generated logs").Len())
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	h := newHarness(t, 1, GenerateLogsConfig{}, service.DefaultGeneratorConfig())
	out := &memorySink{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := h.useCase.Execute(ctx, 100, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.records)
	assert.Zero(t, summary.Total)
}

func TestExecuteSinkFailure(t *testing.T) {
	h := newHarness(t, 1, GenerateLogsConfig{}, service.DefaultGeneratorConfig())
	out := &memorySink{failAt: 4}

	summary, err := h.useCase.Execute(context.Background(), 10, out)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeSinkWrite))
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.collector.SinkErrors.WithLabelValues("memory")))
}

func TestExecuteWithRateLimit(t *testing.T) {
	h := newHarness(t, 1, GenerateLogsConfig{RateLimit: 10000}, service.DefaultGeneratorConfig())
	require.NotNil(t, h.useCase.limiter)

	out := &memorySink{}
	_, err := h.useCase.Execute(context.Background(), 20, out)
	require.NoError(t, err)
	assert.Len(t, out.records, 20)
}

func TestNewGenerateLogsUseCaseValidation(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	collector := metrics.NewCollector("test")
	gen := &stubGenerator{}

	_, err := NewGenerateLogsUseCase(nil, rnd, GenerateLogsConfig{}, nil, collector)
	assert.Error(t, err)

	_, err = NewGenerateLogsUseCase(gen, rnd, GenerateLogsConfig{}, nil, nil)
	assert.Error(t, err)

	_, err = NewGenerateLogsUseCase(gen, rnd, GenerateLogsConfig{
		Weights: map[entity.RecordType]float64{entity.RecordTypeATM: 0},
	}, nil, collector)
	assert.Error(t, err)

	_, err = NewGenerateLogsUseCase(gen, rnd, GenerateLogsConfig{
		Weights: map[entity.RecordType]float64{"loan": 1},
	}, nil, collector)
	assert.Error(t, err)

	_, err = NewGenerateLogsUseCase(gen, rnd, GenerateLogsConfig{RateLimit: -1}, nil, collector)
	assert.Error(t, err)
}

type stubGenerator struct{}

func (stubGenerator) Generate(t entity.RecordType) (entity.Record, error) {
	return nil, errors.New("not implemented")
}

func TestExecuteGeneratorFailure(t *testing.T) {
	uc, err := NewGenerateLogsUseCase(stubGenerator{}, rand.New(rand.NewSource(1)), GenerateLogsConfig{}, nil, metrics.NewCollector("test"))
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), 3, &memorySink{})
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeInternal))
}

func TestEndToEndNDJSON(t *testing.T) {
	h := newHarness(t, 2024, GenerateLogsConfig{}, service.DefaultGeneratorConfig())

	var buf bytes.Buffer
	out := sink.NewNDJSONSink(&buf)
	_, err := h.useCase.Execute(context.Background(), 5, out)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)

	earliest := testNow.Add(-7 * 24 * time.Hour)
	for _, line := range lines {
		var fields map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &fields))

		recordType := entity.RecordType(fields["transaction_type"].(string))
		assert.True(t, recordType.IsValid())

		ts, err := time.ParseInLocation(service.TimestampLayout, fields["timestamp"].(string), time.UTC)
		require.NoError(t, err)
		assert.False(t, ts.After(testNow))
		assert.False(t, ts.Before(earliest))
	}
}

func TestSameSeedSameOutput(t *testing.T) {
	render := func() string {
		h := newHarness(t, 77, GenerateLogsConfig{}, service.DefaultGeneratorConfig())
		var buf bytes.Buffer
		out := sink.NewNDJSONSink(&buf)
		_, err := h.useCase.Execute(context.Background(), 500, out)
		require.NoError(t, err)
		require.NoError(t, out.Close())
		return buf.String()
	}

	first := render()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, render())
}
