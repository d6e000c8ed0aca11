package veloscout

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
)

var (
	mphRegExp    = regexp.MustCompile(`(\d+\.?\d*)\s*mph`)
	numberRegExp = regexp.MustCompile(`\d+\.?\d*`)
)

const mphToKmh = 1.60934

// parseMaxspeed extracts a speed limit in km/h from a raw `maxspeed` tag
// value. Handles plain numbers, "80 km/h" and "50 mph" forms; unknown or
// unset values yield 0.
func parseMaxspeed(value string) float64 {
	if value == "" || value == "none" {
		return 0
	}
	if match := mphRegExp.FindStringSubmatch(strings.ToLower(value)); match != nil {
		speed, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0
		}
		return speed * mphToKmh
	}
	if match := numberRegExp.FindString(value); match != "" {
		speed, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return 0
		}
		return speed
	}
	return 0
}

// parseLanes extracts a lane count from a raw `lanes` tag value. Ranges
// like "2-3" resolve to their lower bound; unknown values yield 0.
func parseLanes(value string) int {
	if value == "" {
		return 0
	}
	if idx := strings.Index(value, "-"); idx > 0 {
		value = value[:idx]
	}
	if match := numberRegExp.FindString(value); match != "" {
		lanes, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return 0
		}
		return int(lanes)
	}
	return 0
}

// cyclewayValue returns the first non-empty cycleway tag, covering the
// side-specific variants.
func cyclewayValue(tags osm.Tags) string {
	for _, key := range []string{"cycleway", "cycleway:both", "cycleway:left", "cycleway:right"} {
		if value := tags.Find(key); value != "" && value != "no" {
			return value
		}
	}
	return ""
}

// hasShoulder reports whether the way is tagged with a usable shoulder.
func hasShoulder(tags osm.Tags) bool {
	value := tags.Find("shoulder")
	return value != "" && value != "no"
}
