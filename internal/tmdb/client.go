package tmdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/valyala/fastjson"
	"golang.org/x/time/rate"

	"github.com/Clark-Hu/movie-importer/internal/domain"
	"github.com/Clark-Hu/movie-importer/internal/metrics"
)

// Endpoint selects which provider search endpoint a query hits.
type Endpoint string

const (
	EndpointMulti Endpoint = "multi"
	EndpointMovie Endpoint = "movie"
)

// SearchRequest carries the parameters of one provider search call.
type SearchRequest struct {
	Query    string
	Page     int
	Language string
	Endpoint Endpoint
}

// Client defines the contract for querying the metadata provider.
// Every call is attempted exactly once; failures are *domain.Failure values.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (domain.SearchPage, error)
	FetchDetail(ctx context.Context, id int64, language string) (domain.DetailRecord, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// Option customises an HTTPClient.
type Option func(*HTTPClient)

// WithRateLimit throttles outbound calls to rps requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = hc
	}
}

// NewHTTPClient constructs a new HTTP-backed metadata client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse tmdb url: %q is not absolute", baseURL)
	}
	c := &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search runs a paginated search and returns formatted results.
func (c *HTTPClient) Search(ctx context.Context, req SearchRequest) (domain.SearchPage, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return domain.SearchPage{}, domain.InvalidQueryFailure("query must not be empty")
	}
	if req.Page < 1 {
		return domain.SearchPage{}, domain.InvalidQueryFailure("page must be at least 1")
	}
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = EndpointMulti
	}

	params := url.Values{}
	params.Set("language", req.Language)
	params.Set("query", query)
	params.Set("page", strconv.Itoa(req.Page))
	params.Set("include_adult", "false")

	body, err := c.get(ctx, "search/"+string(endpoint), params, "search")
	if err != nil {
		return domain.SearchPage{}, err
	}

	var envelope searchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.SearchPage{}, c.record("search", domain.DecodeFailure(err))
	}
	c.record("search", nil)

	page := envelope.Page
	if page < 1 {
		page = req.Page
	}
	return domain.SearchPage{
		Items:      Format(envelope.Results),
		Page:       page,
		TotalPages: envelope.TotalPages,
	}, nil
}

// FetchDetail retrieves a movie with its credits in the given language.
func (c *HTTPClient) FetchDetail(ctx context.Context, id int64, language string) (domain.DetailRecord, error) {
	if id <= 0 {
		return domain.DetailRecord{}, domain.InvalidQueryFailure("movie id must be positive")
	}
	params := url.Values{}
	params.Set("language", language)
	params.Set("append_to_response", "credits")

	body, err := c.get(ctx, "movie/"+strconv.FormatInt(id, 10), params, "detail")
	if err != nil {
		return domain.DetailRecord{}, err
	}

	var payload detailPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.DetailRecord{}, c.record("detail", domain.DecodeFailure(err))
	}
	c.record("detail", nil)

	record := payload.normalize()
	record.Language = language
	return record, nil
}

// get performs one GET and returns a body that is known to be a JSON object.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, metric string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.record(metric, domain.TransportFailure(fmt.Errorf("rate limiter wait: %w", err)))
		}
	}

	endpoint := c.baseURL.JoinPath(strings.Split(path, "/")...)
	params.Set("api_key", c.apiKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, c.record(metric, domain.TransportFailure(redactKey(err)))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.record(metric, domain.TransportFailure(redactKey(err)))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.record(metric, domain.TransportFailure(fmt.Errorf("read response: %w", err)))
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("endpoint", path).
			Msg("tmdb: unexpected status")
		return nil, c.record(metric, domain.ProviderFailure(resp.StatusCode, providerMessage(resp.StatusCode, body)))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, c.record(metric, domain.EmptyResponseFailure())
	}
	if trimmed[0] != '{' {
		return nil, c.record(metric, domain.DecodeFailure(nil))
	}
	return trimmed, nil
}

// redactKey drops the api_key query parameter from the URL carried by a
// *url.Error so failure messages can be shown and logged.
func redactKey(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	redacted := urlErr.URL
	if u, perr := url.Parse(urlErr.URL); perr == nil {
		q := u.Query()
		q.Del("api_key")
		u.RawQuery = q.Encode()
		redacted = u.String()
	} else if i := strings.IndexByte(redacted, '?'); i >= 0 {
		redacted = redacted[:i]
	}
	return &url.Error{Op: urlErr.Op, URL: redacted, Err: urlErr.Err}
}

func (c *HTTPClient) record(endpoint string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	metrics.ProviderRequests.WithLabelValues(endpoint, outcome).Inc()
	return err
}

// providerMessage extracts status_message from an error body, falling back to the HTTP status text.
func providerMessage(status int, body []byte) string {
	var p fastjson.Parser
	if v, err := p.ParseBytes(body); err == nil {
		if msg := strings.TrimSpace(string(v.GetStringBytes("status_message"))); msg != "" {
			return msg
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("provider returned %d", status)
}
