package veloscout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultOverpassEndpoint is the public Overpass API instance
	DefaultOverpassEndpoint = "https://overpass-api.de/api/interpreter"
	// DefaultOverpassTimeout is the wait budget for one remote query
	DefaultOverpassTimeout = 25 * time.Second
)

// OverpassConfig configures the remote feature query client. Endpoint and
// pacing are explicit here instead of being ambient state.
type OverpassConfig struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Timeout is the wait budget for a single query
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MinInterval spaces consecutive queries; zero disables pacing
	MinInterval time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
}

// OverpassClient issues bounding-box-scoped feature queries against an
// Overpass-compatible HTTP API.
type OverpassClient struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOverpassClient creates a client with defaults filled in.
func NewOverpassClient(cfg OverpassConfig) *OverpassClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOverpassEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOverpassTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	return &OverpassClient{
		endpoint:   cfg.Endpoint,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

// buildQuery renders an Overpass QL query for the given bounding box and
// tag filters. A filter with no values matches any value of its key.
func buildQuery(bound orb.Bound, filters []TagFilter, timeout time.Duration) string {
	bbox := fmt.Sprintf("(%f,%f,%f,%f)", bound.Min.Lat(), bound.Min.Lon(), bound.Max.Lat(), bound.Max.Lon())
	var sb strings.Builder
	fmt.Fprintf(&sb, "[out:json][timeout:%d];\n(\n", int(timeout.Seconds()))
	for _, filter := range filters {
		if len(filter.Values) == 0 {
			fmt.Fprintf(&sb, "  node[%q]%s;\n", filter.Key, bbox)
			fmt.Fprintf(&sb, "  way[%q]%s;\n", filter.Key, bbox)
			continue
		}
		for _, value := range filter.Values {
			fmt.Fprintf(&sb, "  node[%q=%q]%s;\n", filter.Key, value, bbox)
			fmt.Fprintf(&sb, "  way[%q=%q]%s;\n", filter.Key, value, bbox)
		}
	}
	sb.WriteString(");\nout geom;")
	return sb.String()
}

type overpassElement struct {
	Type   string  `json:"type"`
	ID     int64   `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Geometry []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"geometry"`
	Tags map[string]string `json:"tags"`
}

// Query issues one bounded spatial query and materializes the response as
// raw features. A 429 response maps to UpstreamRateLimitError and an
// exceeded wait budget to UpstreamTimeoutError; neither is retried here.
func (client *OverpassClient) Query(ctx context.Context, bound orb.Bound, filters []TagFilter) ([]RawFeature, error) {
	if err := client.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "Can't wait for rate limiter")
	}
	query := buildQuery(bound, filters, client.timeout)
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare query request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.httpClient.Do(req)
	if err != nil {
		// A run-level context expiry is cancellation, not an upstream
		// timeout; the caller turns it into a partial result.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "Can't query remote API")
		}
		if isTimeout(err) {
			return nil, &UpstreamTimeoutError{Endpoint: client.endpoint, Budget: client.timeout}
		}
		return nil, errors.Wrap(err, "Can't query remote API")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &UpstreamRateLimitError{Endpoint: client.endpoint}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("Remote API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Elements []overpassElement `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "Can't decode remote API response")
		}
		if isTimeout(err) {
			return nil, &UpstreamTimeoutError{Endpoint: client.endpoint, Budget: client.timeout}
		}
		return nil, errors.Wrap(err, "Can't decode remote API response")
	}

	features := make([]RawFeature, 0, len(payload.Elements))
	for _, element := range payload.Elements {
		feature, ok := elementToFeature(element)
		if !ok {
			continue
		}
		features = append(features, feature)
	}
	zap.L().Debug("remote query done",
		zap.String("endpoint", client.endpoint),
		zap.Int("elements", len(payload.Elements)),
		zap.Int("features", len(features)),
	)
	return features, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	type timeouter interface{ Timeout() bool }
	var te timeouter
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}

func elementToFeature(element overpassElement) (RawFeature, bool) {
	tags := make(osm.Tags, 0, len(element.Tags))
	for key, value := range element.Tags {
		tags = append(tags, osm.Tag{Key: key, Value: value})
	}
	switch element.Type {
	case "node":
		return RawFeature{
			ID:    element.ID,
			Kind:  KindNode,
			Point: orb.Point{element.Lon, element.Lat},
			Tags:  tags,
		}, true
	case "way":
		feature := RawFeature{
			ID:   element.ID,
			Kind: KindWay,
			Tags: tags,
		}
		if len(element.Geometry) > 1 {
			line := make(orb.LineString, len(element.Geometry))
			for i, pt := range element.Geometry {
				line[i] = orb.Point{pt.Lon, pt.Lat}
			}
			feature.Line = line
			feature.Point = line[0]
			return feature, true
		}
		if element.Center != nil {
			feature.Point = orb.Point{element.Center.Lon, element.Center.Lat}
			return feature, true
		}
		return RawFeature{}, false
	default:
		return RawFeature{}, false
	}
}

// SimpleProvider is the remote-simple strategy: one bounded query scoped
// to the whole corridor's bounding box. Failures are surfaced, never
// retried.
type SimpleProvider struct {
	client  *OverpassClient
	filters []TagFilter
}

// NewSimpleProvider creates the remote-simple strategy over the given
// client and tag filters.
func NewSimpleProvider(client *OverpassClient, filters []TagFilter) *SimpleProvider {
	return &SimpleProvider{client: client, filters: filters}
}

// Stream implements FeatureProvider.
func (provider *SimpleProvider) Stream(ctx context.Context, corridor *Corridor, emit func(RawFeature) error) (*StreamReport, error) {
	features, err := provider.client.Query(ctx, corridor.Bound(), provider.filters)
	if err != nil {
		return nil, err
	}
	for _, feature := range features {
		if err := emit(feature); err != nil {
			return nil, err
		}
	}
	return &StreamReport{Stages: 1}, nil
}
