package veloscout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultOSRMEndpoint expects a locally running OSRM instance
	DefaultOSRMEndpoint = "http://localhost:5000"
	// DefaultOSRMTimeout bounds a single nearest-road lookup
	DefaultOSRMTimeout = 5 * time.Second
)

// OSRMConfig points the snapper at a running OSRM instance. The endpoint
// is explicit configuration, never ambient state; managing the server
// process itself is out of scope.
type OSRMConfig struct {
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// OSRMClient snaps coordinates to the nearest road via the OSRM `nearest`
// service.
type OSRMClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewOSRMClient creates a snapping client with defaults filled in.
func NewOSRMClient(cfg OSRMConfig) *OSRMClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOSRMEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOSRMTimeout
	}
	return &OSRMClient{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Available reports whether the OSRM endpoint answers at all.
func (client *OSRMClient) Available(ctx context.Context) bool {
	_, err := client.Nearest(ctx, orb.Point{-7.0, 33.0})
	return err == nil
}

// Nearest returns the closest point on the road network.
func (client *OSRMClient) Nearest(ctx context.Context, pt orb.Point) (orb.Point, error) {
	url := fmt.Sprintf("%s/nearest/v1/car/%f,%f", client.endpoint, pt.Lon(), pt.Lat())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pt, errors.Wrap(err, "Can't prepare nearest request")
	}
	resp, err := client.httpClient.Do(req)
	if err != nil {
		return pt, errors.Wrap(err, "Can't query OSRM")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return pt, errors.Errorf("OSRM returned status %d", resp.StatusCode)
	}
	var payload struct {
		Code      string `json:"code"`
		Waypoints []struct {
			Location []float64 `json:"location"`
		} `json:"waypoints"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return pt, errors.Wrap(err, "Can't decode OSRM response")
	}
	if payload.Code != "Ok" || len(payload.Waypoints) == 0 || len(payload.Waypoints[0].Location) < 2 {
		return pt, errors.New("OSRM found no nearby road")
	}
	location := payload.Waypoints[0].Location
	return orb.Point{location[0], location[1]}, nil
}

// SnapPOIs snaps every POI to the nearest road in place. Snapping is best
// effort: when the server is unreachable or finds nothing, the original
// coordinates are kept and a warning is logged once.
func (client *OSRMClient) SnapPOIs(ctx context.Context, pois []POIRecord) {
	if !client.Available(ctx) {
		zap.L().Warn("OSRM not available, skipping road snapping", zap.String("endpoint", client.endpoint))
		return
	}
	snapped := 0
	for i := range pois {
		pt, err := client.Nearest(ctx, pois[i].Point)
		if err != nil {
			continue
		}
		pois[i].Snapped = pt
		snapped++
	}
	zap.L().Info("snapped POIs to roads", zap.Int("snapped", snapped), zap.Int("total", len(pois)))
}
