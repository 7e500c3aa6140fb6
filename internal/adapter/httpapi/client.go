package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/session"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	RequestIDHeader = "X-Request-ID"
	tracerName      = "marketplace-client/httpapi"
	maxErrorBody    = 64 << 10
)

// AuthMode decides whether a request carries the session's bearer token.
type AuthMode int

const (
	// AuthNone never sends a bearer token. Cookies are still sent.
	AuthNone AuthMode = iota
	// AuthOptional sends the bearer token when the session has one.
	AuthOptional
	// AuthRequired fails with domain.ErrUnauthenticated, without a request,
	// when the session has no token.
	AuthRequired
)

// Request describes one backend call.
type Request struct {
	Op          string
	Method      string
	Path        string
	Query       url.Values
	Body        io.Reader
	ContentType string
	Auth        AuthMode
	// Fallback is the error message used when a failed response has no
	// "error" field.
	Fallback string
	// Sentinel, when set, is wrapped by the APIError of a failed response.
	Sentinel error
}

// Client talks to the marketplace REST backend. Every request carries the
// cookie jar and, depending on its AuthMode, the current bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Context
	logger     *logger.Logger
	metrics    *metrics.MetricsManager
	tracer     trace.Tracer
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Jar, if nil, is left nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metrics.MetricsManager) Option {
	return func(c *Client) { c.metrics = m }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

func NewClient(baseURL string, sess *session.Context, opts ...Option) (*Client, error) {
	if sess == nil {
		return nil, errors.New("httpapi: session is required")
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("httpapi: invalid base URL %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("httpapi: failed to create cookie jar: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Jar: jar},
		session:    sess,
		logger:     logger.NewNop(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("HTTPAPI")
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// Do sends req and decodes a successful JSON response into out, which may be
// nil. Transport failures return *domain.NetworkError, non-2xx responses
// return *domain.APIError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	token, hasToken := c.session.Token()
	if req.Auth == AuthRequired && !hasToken {
		return fmt.Errorf("%s: %w", req.Op, domain.ErrUnauthenticated)
	}

	ctx, span := c.tracer.Start(ctx, "httpapi."+req.Op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		),
	)
	defer span.End()

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, req.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return fmt.Errorf("%s: failed to create request: %w", req.Op, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if req.Auth != AuthNone && hasToken {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	log := c.logger.With(
		zap.String("op", req.Op),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	c.observeLatency(req.Op, elapsed)
	if err != nil {
		log.Warn("Backend request failed", zap.Duration("duration", elapsed), zap.Error(err))
		c.observeError(req.Op, "network")
		span.RecordError(err)
		span.SetStatus(codes.Error, "network")
		return &domain.NetworkError{Op: req.Op, Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.observeStatus(req.Op, resp.StatusCode)
	log.Debug("Backend request completed", zap.Int("status", resp.StatusCode), zap.Duration("duration", elapsed))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &domain.APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body, req.Fallback),
			Err:        req.Sentinel,
		}
		log.Warn("Backend returned an error", zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		c.observeError(req.Op, "api")
		span.SetStatus(codes.Error, apiErr.Message)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observeError(req.Op, "network")
		span.RecordError(err)
		return &domain.NetworkError{Op: req.Op, Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Warn("Failed to decode backend response", zap.Error(err))
		c.observeError(req.Op, "decode")
		span.RecordError(err)
		return fmt.Errorf("%s: %w: %v", req.Op, domain.ErrInvalidResponse, err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} from a failed response body.
func errorMessage(body io.Reader, fallback string) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err == nil {
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && strings.TrimSpace(payload.Error) != "" {
			return payload.Error
		}
	}
	if fallback == "" {
		return http.StatusText(http.StatusInternalServerError)
	}
	return fallback
}

func (c *Client) observeLatency(op string, d time.Duration) {
	if c.metrics != nil {
		c.metrics.RequestLatency.WithLabelValues(op).Observe(d.Seconds())
	}
}

func (c *Client) observeStatus(op string, status int) {
	if c.metrics != nil {
		c.metrics.RequestsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
	}
}

func (c *Client) observeError(op, kind string) {
	if c.metrics != nil {
		c.metrics.RequestErrorsTotal.WithLabelValues(op, kind).Inc()
	}
}
