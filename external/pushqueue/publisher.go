package pushqueue

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/playarc/matchqueue/internal/platform/resilience"
	"github.com/playarc/matchqueue/internal/usecase"
)

var errPushTransient = crerr.New("push endpoint transient failure")

type Config struct {
	EndpointURL    string
	Token          string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Publisher POSTs penalty events to the moderation webhook. Delivery is best
// effort; the caller already persisted the penalty and never rolls it back
// on a publish failure.
type Publisher struct {
	client         *http.Client
	endpointURL    string
	token          string
	logger         *slog.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewPublisher(cfg Config, logger *slog.Logger) *Publisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Publisher{
		client:         &http.Client{Timeout: timeout},
		endpointURL:    strings.TrimRight(strings.TrimSpace(cfg.EndpointURL), "/"),
		token:          strings.TrimSpace(cfg.Token),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (p *Publisher) PublishPenalty(ctx context.Context, event usecase.PenaltyEvent) error {
	if p.circuitEnabled {
		if err := p.breaker.Allow(); err != nil {
			p.logger.WarnContext(ctx, "push circuit breaker rejected request", "state", p.breaker.State())
			return fmt.Errorf("push endpoint is temporarily unavailable: %w", err)
		}
	}

	endpointURL, err := validateHTTPBaseURL(p.endpointURL)
	if err != nil {
		return crerr.Wrap(err, "invalid PUSHQUEUE_ENDPOINT_URL")
	}

	body, err := sonic.Marshal(event)
	if err != nil {
		return crerr.Wrap(err, "marshal penalty event")
	}
	preview := buildRequestPreview(endpointURL, body, p.token != "")

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("pushqueue.endpoint_url", endpointURL),
			attribute.String("pushqueue.penalty_id", event.PenaltyID),
			attribute.String("pushqueue.request_preview", preview),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, strings.NewReader(string(body)))
	if err != nil {
		return crerr.Wrap(err, "create push request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Deduplication-Id", event.PenaltyID)
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		callErr := fmt.Errorf("%w: publish penalty event penalty_id=%s: %v", errPushTransient, event.PenaltyID, err)
		p.recordCircuitResult(callErr)
		return callErr
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		callErr := fmt.Errorf(
			"publish penalty event status=%d penalty_id=%s body=%s",
			resp.StatusCode,
			event.PenaltyID,
			strings.TrimSpace(string(raw)),
		)
		if isRetryableStatus(resp.StatusCode) {
			callErr = fmt.Errorf("%w: %v", errPushTransient, callErr)
		}
		p.recordCircuitResult(callErr)
		return callErr
	}

	p.logger.InfoContext(ctx, "penalty event published",
		"penalty_id", event.PenaltyID, "player_id", event.PlayerID, "match_id", event.MatchID)
	p.recordCircuitResult(nil)
	return nil
}

func (p *Publisher) recordCircuitResult(err error) {
	if !p.circuitEnabled || p.breaker == nil {
		return
	}
	if err == nil {
		p.breaker.RecordSuccess()
		return
	}
	if stderrors.Is(err, errPushTransient) {
		p.breaker.RecordFailure()
		return
	}
	p.breaker.RecordSuccess()
}

func validateHTTPBaseURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return strings.TrimRight(candidate, "/"), nil
}

func buildRequestPreview(endpointURL string, body []byte, withToken bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("POST ")
	_, _ = buf.WriteString(endpointURL)
	if withToken {
		_, _ = buf.WriteString(" Authorization: Bearer ***")
	}
	_, _ = buf.WriteString(" body=")
	if len(body) > 4096 {
		_, _ = buf.Write(body[:4096])
		_, _ = buf.WriteString("...(truncated)")
	} else {
		_, _ = buf.Write(body)
	}

	return buf.String()
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

// NoopPublisher is used when no push endpoint is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishPenalty(context.Context, usecase.PenaltyEvent) error {
	return nil
}
