// Package untappd is the read side of the award pipeline: a cached HTTP
// fetcher for the check-in API and the decoders that turn its responses
// into domain records.
//
// Fetch builds the fully qualified request URL (client credentials
// included), derives the cache key from it, and serves a cached body when
// one younger than maxAge exists in the requested namespace. Anything else
// goes to the network and, when a namespace is given, the body is stored
// for the next run.
//
// Cache problems never reach the caller. A backend error or an entry that
// is no longer valid JSON is logged, counted and treated as a miss. Network
// failures, non-2xx statuses and unparsable live bodies are returned as
// ErrFetch and are never cached.
package untappd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/tbourn/checkin-badges/internal/cache"
	"github.com/tbourn/checkin-badges/internal/config"
)

// ErrFetch wraps every failure of a live request.
var ErrFetch = errors.New("untappd fetch failed")

// maxBody caps a single upstream response.
const maxBody = 8 << 20

// Client talks to the check-in API.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	HTTP    *http.Client
	Cache   cache.Store
	Limiter *rate.Limiter // nil disables throttling
}

// New builds a Client from cfg. A nil store disables caching.
func New(cfg config.UntappdConfig, store cache.Store) *Client {
	if store == nil {
		store = cache.Nop{}
	}
	c := &Client{
		BaseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		HTTP:         &http.Client{Timeout: 30 * time.Second},
		Cache:        store,
	}
	// The quota is hourly: a full hour's worth may be spent at once.
	if cfg.RatePerHour > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.RatePerHour/3600), max(1, int(cfg.RatePerHour)))
	}
	return c
}

// URL returns the fully qualified URL of endpoint. Client credentials are
// appended when both are configured, unless params already carry a user
// access token.
func (c *Client) URL(endpoint string, params url.Values) string {
	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	if c.ClientID != "" && c.ClientSecret != "" && !q.Has("access_token") {
		q.Set("client_id", c.ClientID)
		q.Set("client_secret", c.ClientSecret)
	}
	u := c.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// Fetch returns the JSON body of endpoint. An empty namespace disables the
// cache for this call: no read, no write.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values, namespace string, maxAge time.Duration) (json.RawMessage, error) {
	tr := otel.Tracer("untappd/Client")
	ctx, span := tr.Start(ctx, "Fetch",
		trace.WithAttributes(
			attribute.String("untappd.endpoint", endpointLabel(endpoint)),
			attribute.String("cache.namespace", namespace),
		),
	)
	defer span.End()

	lg := zerolog.Ctx(ctx).With().Str("endpoint", endpoint).Logger()
	rawURL := c.URL(endpoint, params)

	if namespace == "" {
		body, err := c.get(ctx, endpoint, rawURL)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		return body, err
	}

	key := cache.Key(rawURL)
	if body, ok := c.cached(ctx, &lg, namespace, key, maxAge); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return body, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	body, err := c.get(ctx, endpoint, rawURL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := c.Cache.Put(ctx, namespace, key, body); err != nil {
		lg.Warn().Err(err).Str("namespace", namespace).Msg("cache write failed")
	}
	return body, nil
}

// cached looks up a fresh, parseable entry. Every failure is a miss.
func (c *Client) cached(ctx context.Context, lg *zerolog.Logger, namespace, key string, maxAge time.Duration) (json.RawMessage, bool) {
	body, ok, err := c.Cache.Get(ctx, namespace, key, maxAge)
	switch {
	case err != nil:
		cacheLookups.WithLabelValues(namespace, "error").Inc()
		lg.Warn().Err(err).Str("namespace", namespace).Msg("cache read failed; treating as miss")
		return nil, false
	case !ok:
		cacheLookups.WithLabelValues(namespace, "miss").Inc()
		return nil, false
	case !json.Valid(body):
		cacheLookups.WithLabelValues(namespace, "miss").Inc()
		cacheCorrupt.WithLabelValues(namespace).Inc()
		lg.Warn().Str("namespace", namespace).Str("key", key).Msg("cached payload corrupt; treating as miss")
		return nil, false
	}
	cacheLookups.WithLabelValues(namespace, "hit").Inc()
	return body, true
}

// get performs the live request.
func (c *Client) get(ctx context.Context, endpoint, rawURL string) (json.RawMessage, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFetch, endpoint, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client().Do(req)
	if err != nil {
		upstreamDuration.WithLabelValues(endpointLabel(endpoint), "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, endpoint, err)
	}
	defer resp.Body.Close()
	upstreamDuration.WithLabelValues(endpointLabel(endpoint), strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrFetch, endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status %d", ErrFetch, endpoint, resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s: response is not JSON", ErrFetch, endpoint)
	}
	return body, nil
}

func (c *Client) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// endpointLabel keeps the first two path segments so that per-user
// endpoints share one label value.
func endpointLabel(endpoint string) string {
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, "/")
}
