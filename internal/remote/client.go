// Package remote is the only place that talks to the flashcard service and the
// learning-status service. Everything above it goes through the Client interface.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"

	"github.com/koreanvocab/vocab-dashboard/internal/httpclient"
	"github.com/koreanvocab/vocab-dashboard/internal/otel"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

const (
	// DefaultFlashcardURL is the default base URL of the flashcard service
	DefaultFlashcardURL = "http://127.0.0.1:8000"

	// DefaultStatusURL is the default AnkiConnect endpoint used for status checks
	DefaultStatusURL = "http://127.0.0.1:8765"

	// StatusProtocolVersion is the AnkiConnect protocol version sent with every probe
	StatusProtocolVersion = 6

	// Service names used in logs, spans and metrics
	ServiceFlashcard = "flashcard"
	ServiceStatus    = "status"
)

// Client is the typed seam over the two remote services.
type Client interface {
	// FetchAvailableLists returns the target lists and the default one
	FetchAvailableLists(ctx context.Context) (TargetLists, error)

	// FetchCoverage computes coverage for a list; limit 0 requests every missing word
	FetchCoverage(ctx context.Context, list TargetListDescriptor, limit int) (CoverageResult, error)

	// FetchLearnedWords returns the full learned-word sequence
	FetchLearnedWords(ctx context.Context) ([]string, error)

	// ProbeFlashcardService checks the flashcard service. It never fails.
	ProbeFlashcardService(ctx context.Context) ServiceHealth

	// ProbeStatusService checks the status service. It never fails.
	ProbeStatusService(ctx context.Context) ServiceHealth
}

// Option configures the remote client
type Option func(*serviceClient)

// WithHTTPClient replaces the underlying HTTP transport
func WithHTTPClient(c httpclient.Client) Option {
	return func(s *serviceClient) {
		s.http = c
	}
}

// WithTimeout sets the per-request timeout of the default transport.
// It has no effect when WithHTTPClient is also given.
func WithTimeout(timeout time.Duration) Option {
	return func(s *serviceClient) {
		s.timeout = timeout
	}
}

// WithTracer sets the tracer used to wrap every call in a span
func WithTracer(tracer trace.Tracer) Option {
	return func(s *serviceClient) {
		s.tracer = tracer
	}
}

type serviceClient struct {
	flashcardURL string
	statusURL    string
	timeout      time.Duration
	http         httpclient.Client
	tracer       trace.Tracer
}

// New creates a client for the flashcard service at flashcardURL and the status
// service at statusURL.
func New(flashcardURL, statusURL string, opts ...Option) (Client, error) {
	base, err := normalizeBaseURL(flashcardURL)
	if err != nil {
		return nil, fmt.Errorf("invalid flashcard service URL: %w", err)
	}
	if _, err := normalizeBaseURL(statusURL); err != nil {
		return nil, fmt.Errorf("invalid status service URL: %w", err)
	}

	c := &serviceClient{
		flashcardURL: base,
		statusURL:    statusURL,
		timeout:      httpclient.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewDefaultClient(c.timeout)
	}

	return c, nil
}

func normalizeBaseURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("host is required")
	}
	return strings.TrimRight(raw, "/"), nil
}

type targetsResponse struct {
	Files   []string `json:"files"`
	Default string   `json:"default"`
}

// FetchAvailableLists issues GET /vocab/targets
func (c *serviceClient) FetchAvailableLists(ctx context.Context) (TargetLists, error) {
	const op = "fetch target lists"

	ctx, span := otel.StartSpan(ctx, c.tracer, "remote.FetchAvailableLists")
	defer span.End()

	body, err := c.http.Get(ctx, c.flashcardURL+"/vocab/targets")
	if err != nil {
		err = wrapTransportError(op, err)
		otel.RecordError(span, err)
		return TargetLists{}, err
	}

	var resp targetsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		serviceErr := newServiceError(op, fmt.Sprintf("malformed response: %v", err), err)
		otel.RecordError(span, serviceErr)
		return TargetLists{}, serviceErr
	}

	lists := make([]TargetListDescriptor, 0, len(resp.Files))
	for _, f := range resp.Files {
		lists = append(lists, List(f))
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(lists)))

	return TargetLists{
		Lists:   lists,
		Default: List(resp.Default),
	}, nil
}

// FetchCoverage issues GET /vocab/coverage?file=<id>&top_k=<limit>
func (c *serviceClient) FetchCoverage(
	ctx context.Context,
	list TargetListDescriptor,
	limit int,
) (CoverageResult, error) {
	op := fmt.Sprintf("fetch coverage for %s", list.Identifier)

	ctx, span := otel.StartSpan(ctx, c.tracer, "remote.FetchCoverage",
		trace.WithAttributes(
			otel.AttrTargetList.String(list.Identifier),
			otel.AttrMissingLimit.Int(limit),
		),
	)
	defer span.End()

	body, err := c.http.Get(ctx, c.coverageURL(list, limit))
	if err != nil {
		err = wrapTransportError(op, err)
		otel.RecordError(span, err)
		return CoverageResult{}, err
	}

	var result CoverageResult
	if err := json.Unmarshal(body, &result); err != nil {
		serviceErr := newServiceError(op, fmt.Sprintf("malformed response: %v", err), err)
		otel.RecordError(span, serviceErr)
		return CoverageResult{}, serviceErr
	}
	if result.MissingWords == nil {
		result.MissingWords = []string{}
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(result.MissingWords)))

	return result, nil
}

func (c *serviceClient) coverageURL(list TargetListDescriptor, limit int) string {
	params := url.Values{}
	if !list.IsZero() {
		params.Set("file", list.Identifier)
	}
	// top_k omitted means unlimited
	if limit > 0 {
		params.Set("top_k", strconv.Itoa(limit))
	}

	u := c.flashcardURL + "/vocab/coverage"
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

type wordsResponse struct {
	Words []string `json:"words"`
}

// FetchLearnedWords issues GET /vocab/words
func (c *serviceClient) FetchLearnedWords(ctx context.Context) ([]string, error) {
	const op = "fetch learned words"

	ctx, span := otel.StartSpan(ctx, c.tracer, "remote.FetchLearnedWords")
	defer span.End()

	body, err := c.http.Get(ctx, c.flashcardURL+"/vocab/words")
	if err != nil {
		err = wrapTransportError(op, err)
		otel.RecordError(span, err)
		return nil, err
	}

	var resp wordsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		serviceErr := newServiceError(op, fmt.Sprintf("malformed response: %v", err), err)
		otel.RecordError(span, serviceErr)
		return nil, serviceErr
	}
	if resp.Words == nil {
		resp.Words = []string{}
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(resp.Words)))

	return resp.Words, nil
}

// ProbeFlashcardService issues GET / against the flashcard service; any 2xx is connected.
func (c *serviceClient) ProbeFlashcardService(ctx context.Context) ServiceHealth {
	ctx, span := otel.StartSpan(ctx, c.tracer, "remote.ProbeFlashcardService",
		trace.WithAttributes(otel.AttrServiceName.String(ServiceFlashcard)),
	)
	defer span.End()

	if _, err := c.http.Get(ctx, c.flashcardURL+"/"); err != nil {
		err = wrapTransportError("probe flashcard service", err)
		otel.RecordError(span, err)
		span.SetAttributes(otel.AttrServiceHealthy.Bool(false))
		return Disconnected(err)
	}

	span.SetAttributes(otel.AttrServiceHealthy.Bool(true))
	return ServiceHealth{Connected: true, CheckedAt: time.Now()}
}

// ProbeStatusService POSTs {"action":"version","version":6} to the status endpoint.
// The reply must carry a "result" field and a null or absent "error" field.
func (c *serviceClient) ProbeStatusService(ctx context.Context) ServiceHealth {
	const op = "probe status service"

	ctx, span := otel.StartSpan(ctx, c.tracer, "remote.ProbeStatusService",
		trace.WithAttributes(otel.AttrServiceName.String(ServiceStatus)),
	)
	defer span.End()

	version, err := c.statusVersion(ctx, op)
	if err != nil {
		otel.RecordError(span, err)
		span.SetAttributes(otel.AttrServiceHealthy.Bool(false))
		return Disconnected(err)
	}

	span.SetAttributes(otel.AttrServiceHealthy.Bool(true))
	return ServiceHealth{Connected: true, Version: version, CheckedAt: time.Now()}
}

func (c *serviceClient) statusVersion(ctx context.Context, op string) (int, error) {
	body, err := c.http.PostJSON(ctx, c.statusURL, map[string]any{
		"action":  "version",
		"version": StatusProtocolVersion,
	})
	if err != nil {
		return 0, wrapTransportError(op, err)
	}

	if !gjson.ValidBytes(body) {
		return 0, newServiceError(op, "malformed response: invalid JSON", nil)
	}

	if reported := gjson.GetBytes(body, "error"); reported.Exists() && reported.Type != gjson.Null {
		return 0, newServiceError(op, reported.String(), nil)
	}

	result := gjson.GetBytes(body, "result")
	if !result.Exists() {
		return 0, newServiceError(op, "malformed response: missing result field", nil)
	}

	return int(result.Int()), nil
}
