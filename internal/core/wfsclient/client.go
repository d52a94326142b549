// Package wfsclient queries a keyed geoportal WFS service: it lists the
// advertised feature types and fetches features as GeoJSON.
package wfsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/geoportal-wfs/internal/cache/keys"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/model"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/observability"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/ogc"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/transport"
	"github.com/mohammed-shakir/geoportal-wfs/internal/logger"
)

const DefaultBaseURL = "http://wxs.ign.fr"

var (
	ErrMissingAPIKey   = errors.New("required param: apiKey")
	ErrMissingTypeName = errors.New("required param: typeName")
)

// FeatureCache stores raw GetFeature bodies. redisstore.Client satisfies it.
type FeatureCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type Client struct {
	apiKey     string
	baseURL    string
	headers    http.Header
	transport  transport.Transport
	logger     *slog.Logger
	features   FeatureCache
	featureTTL time.Duration
	typeNames  *expirable.LRU[string, []string]
}

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) {
		if strings.TrimSpace(base) != "" {
			c.baseURL = strings.TrimSpace(base)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFeatureCache caches GetFeature responses for ttl.
func WithFeatureCache(fc FeatureCache, ttl time.Duration) Option {
	return func(c *Client) {
		c.features = fc
		c.featureTTL = ttl
	}
}

// WithTypeNamesCache memoizes parsed capabilities; size <= 0 disables it.
func WithTypeNamesCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		if size <= 0 {
			c.typeNames = nil
			return
		}
		c.typeNames = expirable.NewLRU[string, []string](size, nil, ttl)
	}
}

// New fails immediately when apiKey is empty. headers are sent with every
// request.
func New(apiKey string, headers http.Header, t transport.Transport, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if t == nil {
		return nil, errors.New("transport is required")
	}
	c := &Client{
		apiKey:    apiKey,
		baseURL:   DefaultBaseURL,
		headers:   headers.Clone(),
		transport: t,
		logger:    slog.New(slog.DiscardHandler),
	}
	if c.headers == nil {
		c.headers = http.Header{}
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// URL returns the WFS endpoint for the client's API key.
func (c *Client) URL() string {
	return ogc.WFSEndpoint(c.baseURL, c.apiKey)
}

// GetTypeNames lists the feature types advertised by GetCapabilities.
// Transport failures are returned as is; an unparsable document yields
// *ogc.MalformedCapabilitiesError.
func (c *Client) GetTypeNames(ctx context.Context) ([]string, error) {
	endpoint := c.URL()
	if c.typeNames != nil {
		if names, ok := c.typeNames.Get(endpoint); ok {
			observability.IncCacheHit("typenames")
			return append([]string(nil), names...), nil
		}
		observability.IncCacheMiss("typenames")
	}

	body, err := c.transport.Get(ctx, endpoint, ogc.BuildGetCapabilitiesParams(), c.headers)
	if err != nil {
		return nil, err
	}
	names, err := ogc.ParseTypeNames(body)
	observability.ObserveCapabilitiesParse(err == nil)
	if err != nil {
		c.logger.WarnContext(ctx, "capabilities parse failed", "bytes", len(body), "err", err)
		return nil, err
	}
	c.logger.DebugContext(ctx, "capabilities parsed", "type_names", len(names))

	if c.typeNames != nil {
		c.typeNames.Add(endpoint, append([]string(nil), names...))
	}
	return names, nil
}

// GetFeatures fetches and decodes the features matching q.
func (c *Client) GetFeatures(ctx context.Context, q model.FeatureQuery) (*model.FeatureCollection, error) {
	body, err := c.GetFeaturesRaw(ctx, q)
	if err != nil {
		return nil, err
	}
	var fc model.FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	return &fc, nil
}

// GetFeaturesRaw returns the GetFeature body without decoding it.
func (c *Client) GetFeaturesRaw(ctx context.Context, q model.FeatureQuery) ([]byte, error) {
	if strings.TrimSpace(q.TypeName) == "" {
		return nil, ErrMissingTypeName
	}
	ctx = logger.WithTypeName(ctx, q.TypeName)

	params, dropped, err := ogc.BuildGetFeatureParams(q)
	if err != nil {
		return nil, fmt.Errorf("build GetFeature query: %w", err)
	}
	if len(dropped) > 0 {
		c.logger.DebugContext(ctx, "ignoring non-integer paging params", "keys", strings.Join(dropped, ","))
	}

	endpoint := c.URL()
	var key string
	if c.features != nil {
		key = keys.FeatureKey(endpoint, q.TypeName, params)
		b, ok, err := c.features.Get(ctx, key)
		switch {
		case err != nil:
			observability.IncCacheError("features")
			c.logger.WarnContext(ctx, "feature cache get failed", "err", err)
		case ok:
			observability.IncCacheHit("features")
			c.logger.DebugContext(logger.WithCacheResult(ctx, "hit"), "features served from cache")
			return b, nil
		default:
			observability.IncCacheMiss("features")
		}
	}

	body, err := c.transport.Get(ctx, endpoint, params, c.headers)
	if err != nil {
		return nil, err
	}

	if c.features != nil && json.Valid(body) {
		if err := c.features.Set(ctx, key, body, c.featureTTL); err != nil {
			observability.IncCacheError("features")
			c.logger.WarnContext(ctx, "feature cache set failed", "err", err)
		}
	}
	return body, nil
}
