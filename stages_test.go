package veloscout

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedOverpass serves one canned response per request, in order.
// Responses past the end of the script repeat the last one.
type scriptedOverpass struct {
	mu        sync.Mutex
	responses []func(w http.ResponseWriter)
	requests  int
}

func (script *scriptedOverpass) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	script.mu.Lock()
	idx := script.requests
	script.requests++
	script.mu.Unlock()
	if idx >= len(script.responses) {
		idx = len(script.responses) - 1
	}
	script.responses[idx](w)
}

func nodeResponse(id int64) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		fmt.Fprintf(w, `{"elements": [{"type": "node", "id": %d, "lat": 0.0005, "lon": 1.0, "tags": {"amenity": "fuel"}}]}`, id)
	}
}

func rateLimitedResponse(w http.ResponseWriter) {
	w.WriteHeader(http.StatusTooManyRequests)
}

// stagedRoute spans ~668 km along the equator, splitting into 3 stages
// at 200 km per stage.
func stagedRoute() []GeoPoint {
	route := []GeoPoint{}
	for i := 0; i <= 6; i++ {
		route = append(route, GeoPoint{Lon: float64(i), Lat: 0.0})
	}
	return route
}

func newTestStagedProvider(t *testing.T, script *scriptedOverpass) (*StagedProvider, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(script)
	t.Cleanup(server.Close)

	client := NewOverpassClient(OverpassConfig{Endpoint: server.URL})
	provider := NewStagedProvider(client, []TagFilter{{Key: "amenity"}},
		WithStageLength(200.0),
	)
	sleeps := &[]time.Duration{}
	provider.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
	return provider, sleeps
}

func collectStream(t *testing.T, provider FeatureProvider, route []GeoPoint) ([]RawFeature, *StreamReport, error) {
	t.Helper()
	corridor, err := NewCorridor(route, 1000.0)
	require.NoError(t, err)
	collected := []RawFeature{}
	report, err := provider.Stream(context.Background(), corridor, func(raw RawFeature) error {
		collected = append(collected, raw)
		return nil
	})
	return collected, report, err
}

func TestStagedStreamAllStagesSucceed(t *testing.T) {
	script := &scriptedOverpass{responses: []func(http.ResponseWriter){
		nodeResponse(1),
		nodeResponse(2),
		nodeResponse(3),
	}}
	provider, sleeps := newTestStagedProvider(t, script)

	features, report, err := collectStream(t, provider, stagedRoute())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Stages)
	assert.Empty(t, report.Warnings)
	assert.Len(t, features, 3)

	// Inter-stage delay before every stage after the first
	require.Len(t, *sleeps, 2)
	assert.Equal(t, DefaultStageDelay, (*sleeps)[0])
	assert.Equal(t, DefaultStageDelay, (*sleeps)[1])
}

func TestStagedStreamRetriesRateLimit(t *testing.T) {
	script := &scriptedOverpass{responses: []func(http.ResponseWriter){
		nodeResponse(1),
		rateLimitedResponse, // stage 2, first attempt
		nodeResponse(2),     // stage 2, retry
		nodeResponse(3),
	}}
	provider, sleeps := newTestStagedProvider(t, script)

	features, report, err := collectStream(t, provider, stagedRoute())
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)
	assert.Len(t, features, 3)

	// One backoff sleep plus two inter-stage delays
	require.Len(t, *sleeps, 3)
	assert.Contains(t, *sleeps, 2*time.Second)
}

func TestStagedStreamSkipsExhaustedStage(t *testing.T) {
	script := &scriptedOverpass{responses: []func(http.ResponseWriter){
		nodeResponse(1),
		rateLimitedResponse,
		rateLimitedResponse,
		rateLimitedResponse, // stage 2 runs out of retries
		nodeResponse(3),
	}}
	provider, sleeps := newTestStagedProvider(t, script)

	features, report, err := collectStream(t, provider, stagedRoute())
	require.NoError(t, err)
	assert.Len(t, features, 2)

	require.Len(t, report.Warnings, 1)
	warning := report.Warnings[0]
	assert.Equal(t, 2, warning.Stage)
	assert.Contains(t, warning.Reason, "Retries exhausted")
	assert.Greater(t, warning.EndKm, warning.StartKm)

	// Exponential backoff between attempts: 2s then 4s
	assert.Contains(t, *sleeps, 2*time.Second)
	assert.Contains(t, *sleeps, 4*time.Second)

	// The skipped stage still paces the next one
	delays := 0
	for _, d := range *sleeps {
		if d == DefaultStageDelay {
			delays++
		}
	}
	assert.Equal(t, 2, delays)
}

func TestStagedStreamStopsOnCancel(t *testing.T) {
	script := &scriptedOverpass{responses: []func(http.ResponseWriter){
		nodeResponse(1),
	}}
	provider, _ := newTestStagedProvider(t, script)

	corridor, err := NewCorridor(stagedRoute(), 1000.0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	emitted := 0
	_, streamErr := provider.Stream(ctx, corridor, func(RawFeature) error {
		emitted++
		cancel()
		return nil
	})
	require.ErrorIs(t, streamErr, context.Canceled)
	assert.Equal(t, 1, emitted)
}

func TestQueryWithRetrySurfacesFatalError(t *testing.T) {
	script := &scriptedOverpass{responses: []func(http.ResponseWriter){
		func(w http.ResponseWriter) { w.WriteHeader(http.StatusInternalServerError) },
	}}
	provider, _ := newTestStagedProvider(t, script)

	corridor, err := NewCorridor(stagedRoute(), 1000.0)
	require.NoError(t, err)

	_, report, streamErr := collectStream(t, provider, corridor.Route())
	require.NoError(t, streamErr)
	// Non-retryable failures skip the stage without retrying
	assert.Equal(t, 3, len(report.Warnings))
	script.mu.Lock()
	defer script.mu.Unlock()
	assert.Equal(t, 3, script.requests)
}
