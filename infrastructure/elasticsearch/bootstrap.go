package elasticsearch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"github.com/isectech/banking-log-generator/pkg/logging"
	"github.com/isectech/banking-log-generator/pkg/metrics"
	"github.com/isectech/banking-log-generator/shared/common"
)

// Bootstrap steps and outcomes reported to metrics
const (
	StepHealth   = "health"
	StepTemplate = "template"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Config represents the search service bootstrap configuration
type Config struct {
	URL           string        `json:"url" yaml:"url" mapstructure:"url"`
	Username      string        `json:"username" yaml:"username" mapstructure:"username"`
	Password      string        `json:"-" yaml:"password" mapstructure:"password"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	RetryInterval time.Duration `json:"retry_interval" yaml:"retry_interval" mapstructure:"retry_interval"`
	TemplateName  string        `json:"template_name" yaml:"template_name" mapstructure:"template_name"`
	TemplatePath  string        `json:"template_path" yaml:"template_path" mapstructure:"template_path"`
}

// DefaultConfig returns the bootstrap defaults
func DefaultConfig() Config {
	return Config{
		URL:           "http://localhost:9200",
		Timeout:       60 * time.Second,
		RetryInterval: 2 * time.Second,
		TemplateName:  "banking-logs-template",
		TemplatePath:  "elasticsearch/index_template.json",
	}
}

// Validate checks the bootstrap configuration
func (c Config) Validate() error {
	var errs common.ValidationErrors
	if c.URL == "" {
		errs.Add("url", "is required", c.URL)
	}
	if c.Timeout <= 0 {
		errs.Add("timeout", "must be positive", c.Timeout)
	}
	if c.RetryInterval <= 0 {
		errs.Add("retry_interval", "must be positive", c.RetryInterval)
	}
	if c.TemplateName == "" {
		errs.Add("template_name", "is required", c.TemplateName)
	}
	if errs.HasErrors() {
		return errs.ToAppError()
	}
	return nil
}

// Bootstrapper waits for the search service and registers the index template
type Bootstrapper struct {
	config  Config
	client  *elasticsearch.Client
	logger  *logging.Logger
	metrics *metrics.Collector
	json    common.JSONUtils
}

// NewBootstrapper creates a bootstrapper for config.URL
func NewBootstrapper(config Config, logger *logging.Logger, metrics *metrics.Collector) (*Bootstrapper, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if metrics == nil {
		return nil, common.NewAppError(common.ErrCodeInvalidInput, "metrics collector is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	// the poll loop owns retries
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{config.URL},
		Username:     config.Username,
		Password:     config.Password,
		DisableRetry: true,
	})
	if err != nil {
		return nil, common.NewAppErrorWithCause(common.ErrCodeInvalidInput,
			"failed to create Elasticsearch client", err)
	}

	return &Bootstrapper{
		config:  config,
		client:  client,
		logger:  logger.WithComponent("es-bootstrap"),
		metrics: metrics,
	}, nil
}

// Run waits for the service, then loads and submits the template
func (b *Bootstrapper) Run(ctx context.Context) error {
	if err := b.WaitForReady(ctx); err != nil {
		return err
	}

	body, err := b.LoadTemplate(b.config.TemplatePath)
	if err != nil {
		return err
	}

	if err := b.PutTemplate(ctx, body); err != nil {
		return err
	}

	b.logger.Info("Elasticsearch setup completed successfully")
	return nil
}

// WaitForReady polls the service root until it answers 200 or the timeout
// elapses. Individual attempt failures are expected and only logged.
func (b *Bootstrapper) WaitForReady(ctx context.Context) error {
	b.logger.Info("Waiting for Elasticsearch",
		zap.String("url", b.config.URL),
		zap.Duration("timeout", b.config.Timeout),
	)

	waitCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	ticker := time.NewTicker(b.config.RetryInterval)
	defer ticker.Stop()

	start := time.Now()
	var lastErr error
	for attempt := 1; ; attempt++ {
		status, err := b.probe(waitCtx)
		lastErr = err
		if err == nil && status == http.StatusOK {
			b.metrics.RecordBootstrapAttempt(StepHealth, OutcomeSuccess)
			b.logger.Info("Elasticsearch is ready",
				zap.Int("attempts", attempt),
				zap.Duration("waited", time.Since(start)),
			)
			return nil
		}

		b.metrics.RecordBootstrapAttempt(StepHealth, OutcomeFailure)
		b.logger.Debug("Elasticsearch not ready",
			zap.Int("attempt", attempt),
			zap.Int("status", status),
			zap.Error(err),
		)

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return fmt.Errorf("waiting for Elasticsearch: %w", ctx.Err())
			}
			b.logger.Error("Timeout waiting for Elasticsearch",
				zap.Int("attempts", attempt),
				zap.Duration("timeout", b.config.Timeout),
			)
			timeoutErr := common.ErrTimeout("waiting for Elasticsearch").
				WithContext("url", b.config.URL).
				WithContext("attempts", attempt)
			if common.HasErrorCode(lastErr, common.ErrCodeNetworkError) {
				timeoutErr.WithContext("last_error", string(common.ErrCodeNetworkError))
			}
			return timeoutErr
		case <-ticker.C:
		}
	}
}

// probe sends GET / through the transport so that any 200 counts as ready,
// whether or not the reply carries the Elasticsearch product header.
func (b *Bootstrapper) probe(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return 0, err
	}

	res, err := b.client.Transport.Perform(req)
	if err != nil {
		return 0, common.NewAppErrorWithCause(common.ErrCodeNetworkError,
			"health probe failed", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return res.StatusCode, nil
}

// LoadTemplate reads the template document. Its contents are forwarded as-is
// once they parse as JSON.
func (b *Bootstrapper) LoadTemplate(path string) ([]byte, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppErrorWithCause(common.ErrCodeInvalidInput,
			fmt.Sprintf("failed to read index template %s", path), err)
	}
	if !b.json.IsValidJSONBytes(body) {
		return nil, common.NewAppErrorWithDetails(common.ErrCodeInvalidFormat,
			"index template is not valid JSON", path)
	}
	return body, nil
}

// PutTemplate submits body as the index template. It is never retried.
func (b *Bootstrapper) PutTemplate(ctx context.Context, body []byte) error {
	b.logger.Info("Creating index template", zap.String("template", b.config.TemplateName))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		"/_index_template/"+url.PathEscape(b.config.TemplateName), bytes.NewReader(body))
	if err != nil {
		return common.NewAppErrorWithCause(common.ErrCodeInternal, "failed to build template request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.client.Transport.Perform(req)
	if err != nil {
		b.metrics.RecordBootstrapAttempt(StepTemplate, OutcomeFailure)
		return common.ErrExternalService("elasticsearch", err).
			WithContext("template", b.config.TemplateName)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		b.metrics.RecordBootstrapAttempt(StepTemplate, OutcomeFailure)
		respBody, _ := io.ReadAll(res.Body)
		b.logger.Error("Failed to create index template",
			zap.Int("status", res.StatusCode),
			zap.ByteString("response", respBody),
		)
		return common.NewAppErrorWithDetails(common.ErrCodeExternalService,
			fmt.Sprintf("failed to create index template: %s", res.Status), string(respBody)).
			WithContext("status", res.StatusCode).
			WithContext("template", b.config.TemplateName)
	}

	b.metrics.RecordBootstrapAttempt(StepTemplate, OutcomeSuccess)
	b.logger.Info("Index template created successfully", zap.String("template", b.config.TemplateName))
	return nil
}

// IsTimeout reports whether err came from WaitForReady giving up
func IsTimeout(err error) bool {
	return common.HasErrorCode(err, common.ErrCodeTimeout) || errors.Is(err, context.DeadlineExceeded)
}
