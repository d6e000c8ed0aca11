package veloscout

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// InvalidRouteError is returned when a route cannot form a corridor:
// fewer than two points or coordinates outside the valid geographic range.
type InvalidRouteError struct {
	Reason string
}

func (e *InvalidRouteError) Error() string {
	return fmt.Sprintf("invalid route: %s", e.Reason)
}

// NoRegionFoundError is returned when no catalog region covers the
// corridor's bounding box, including after walking up the parent chain.
type NoRegionFoundError struct {
	Bound orb.Bound
}

func (e *NoRegionFoundError) Error() string {
	return fmt.Sprintf("no region in catalog covers bounding box [%f, %f, %f, %f]", e.Bound.Min.Lon(), e.Bound.Min.Lat(), e.Bound.Max.Lon(), e.Bound.Max.Lat())
}

// UpstreamTimeoutError is returned when the remote feature query exceeds
// its wait budget. The simple strategy surfaces it as-is.
type UpstreamTimeoutError struct {
	Endpoint string
	Budget   time.Duration
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("query to '%s' exceeded wait budget of %s", e.Endpoint, e.Budget)
}

// UpstreamRateLimitError is returned on an HTTP 429 from the remote
// feature query API. Only the staged strategy retries it.
type UpstreamRateLimitError struct {
	Endpoint string
}

func (e *UpstreamRateLimitError) Error() string {
	return fmt.Sprintf("rate limited by '%s'", e.Endpoint)
}

// DatasetUnavailableError is returned when a local dataset file is missing
// and could not be acquired. Fatal to the run.
type DatasetUnavailableError struct {
	Path   string
	Reason string
}

func (e *DatasetUnavailableError) Error() string {
	return fmt.Sprintf("dataset '%s' unavailable: %s", e.Path, e.Reason)
}

// DatasetCorruptError is returned when the streaming parser reports a
// malformed local dataset. Fatal to the run, since nothing is known about
// the data beyond the corrupt point.
type DatasetCorruptError struct {
	Path   string
	Reason string
}

func (e *DatasetCorruptError) Error() string {
	return fmt.Sprintf("dataset '%s' corrupt: %s", e.Path, e.Reason)
}

// StageWarning records a stage that was skipped after exhausting retries.
// It is attached to the final result instead of aborting the run.
type StageWarning struct {
	Stage   int
	StartKm float64
	EndKm   float64
	Reason  string
}

func (w StageWarning) String() string {
	return fmt.Sprintf("stage %d (km %.1f-%.1f) skipped: %s", w.Stage, w.StartKm, w.EndKm, w.Reason)
}
