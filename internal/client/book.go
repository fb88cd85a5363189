package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/review-service/pkg/errors"
	"github.com/utafrali/review-service/pkg/httpclient"
)

const tracerName = "github.com/utafrali/review-service/internal/client"

// Config configures the book catalog client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// SkipVerification turns VerifyBookExists into a no-op. Only test
	// deployments set it.
	SkipVerification bool
}

// BookClient checks that books exist in the catalog service.
type BookClient struct {
	http    *httpclient.CircuitBreakerClient
	baseURL string
	skip    bool
	logger  *slog.Logger
}

// NewBookClient creates a client with a pooled transport and a circuit breaker.
func NewBookClient(cfg Config, logger *slog.Logger) *BookClient {
	httpCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		httpCfg.Timeout = cfg.Timeout
	}

	return &BookClient{
		http: httpclient.NewCircuitBreakerClient(
			httpclient.New(httpCfg),
			httpclient.DefaultCircuitBreakerConfig("book-service"),
			logger,
		),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		skip:    cfg.SkipVerification,
		logger:  logger,
	}
}

// VerifyBookExists returns nil when the catalog knows bookID.
//
// A 404 yields a NotFound error naming the id. A refused connection or an
// open breaker yields ServiceUnavailable. Anything else, timeouts included,
// is a plain error.
func (c *BookClient) VerifyBookExists(ctx context.Context, bookID string) (err error) {
	if c.skip {
		c.logger.DebugContext(ctx, "book verification disabled, skipping check",
			slog.String("book_id", bookID),
		)
		return nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "book-service.VerifyBookExists",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("book.id", bookID)),
	)
	defer func() {
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.bookURL(bookID), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to verify book: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return c.translate(ctx, bookID, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_ = resp.Body.Close()
		return nil
	}

	statusErr := httpclient.NewStatusError(resp, "book-service")
	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NotFound(fmt.Sprintf("Book with id %s not found", bookID))
	}
	return fmt.Errorf("failed to verify book: %w", statusErr)
}

func (c *BookClient) translate(ctx context.Context, bookID string, err error) error {
	switch {
	case httpclient.IsConnectionRefused(err),
		errors.Is(err, httpclient.ErrCircuitOpen),
		errors.Is(err, httpclient.ErrTooManyRequests):
		c.logger.WarnContext(ctx, "book service unavailable",
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
		return apperrors.ServiceUnavailable("Book service is unavailable", err)
	case httpclient.IsTimeout(err):
		c.logger.WarnContext(ctx, "book service timed out",
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to verify book: %w", err)
	default:
		return fmt.Errorf("failed to verify book: %w", err)
	}
}

func (c *BookClient) bookURL(bookID string) string {
	return c.baseURL + "/api/book/" + url.PathEscape(bookID)
}
