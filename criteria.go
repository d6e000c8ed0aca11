package veloscout

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// RiskThresholds are the inclusive lower bounds separating risk levels.
// Scores below Moderate fall into the low level.
type RiskThresholds struct {
	Critical float64 `mapstructure:"critical" yaml:"critical"`
	High     float64 `mapstructure:"high" yaml:"high"`
	Moderate float64 `mapstructure:"moderate" yaml:"moderate"`
}

// SpeedTiers are the km/h bounds of the speed-limit factor.
type SpeedTiers struct {
	VeryDangerous float64 `mapstructure:"very_dangerous" yaml:"very_dangerous"`
	Dangerous     float64 `mapstructure:"dangerous" yaml:"dangerous"`
	Moderate      float64 `mapstructure:"moderate" yaml:"moderate"`
	Safe          float64 `mapstructure:"safe" yaml:"safe"`
}

// SpeedPenalties are the points each speed tier contributes.
type SpeedPenalties struct {
	VeryHigh float64 `mapstructure:"very_high" yaml:"very_high"`
	High     float64 `mapstructure:"high" yaml:"high"`
	Moderate float64 `mapstructure:"moderate" yaml:"moderate"`
	Low      float64 `mapstructure:"low" yaml:"low"`
}

// InfrastructurePenalties are the points missing cycling infrastructure
// contributes.
type InfrastructurePenalties struct {
	NoCyclewayNoShoulder float64 `mapstructure:"no_cycleway_no_shoulder" yaml:"no_cycleway_no_shoulder"`
	NoCycleway           float64 `mapstructure:"no_cycleway" yaml:"no_cycleway"`
	NoShoulder           float64 `mapstructure:"no_shoulder" yaml:"no_shoulder"`
}

// LanePenalties are the points wide roads contribute.
type LanePenalties struct {
	FourOrMore float64 `mapstructure:"four_or_more" yaml:"four_or_more"`
	Three      float64 `mapstructure:"three" yaml:"three"`
}

// SurfacePenalties are the points poor surfaces contribute.
type SurfacePenalties struct {
	VeryBad float64 `mapstructure:"very_bad" yaml:"very_bad"`
	Bad     float64 `mapstructure:"bad" yaml:"bad"`
	Unpaved float64 `mapstructure:"unpaved" yaml:"unpaved"`
}

// InfrastructureBonuses are the negative adjustments protective cycling
// facilities contribute. This is the only factor allowed to push the
// running sum below the clamp floor.
type InfrastructureBonuses struct {
	DedicatedLane   float64 `mapstructure:"dedicated_bike_lane" yaml:"dedicated_bike_lane"`
	WideShoulder    float64 `mapstructure:"wide_shoulder" yaml:"wide_shoulder"`
	DesignatedRoute float64 `mapstructure:"designated_bike_route" yaml:"designated_bike_route"`
}

// SafetyCriteria is the full risk scoring configuration: factor weight
// tables and level thresholds. Consumed read-only by the scorer.
type SafetyCriteria struct {
	Thresholds        RiskThresholds          `mapstructure:"risk_thresholds" yaml:"risk_thresholds"`
	SpeedTiers        SpeedTiers              `mapstructure:"speed_limits" yaml:"speed_limits"`
	SpeedPenalties    SpeedPenalties          `mapstructure:"speed_penalties" yaml:"speed_penalties"`
	HighwayPenalties  map[string]float64      `mapstructure:"highway_penalties" yaml:"highway_penalties"`
	ForbiddenHighways []string                `mapstructure:"forbidden_highways" yaml:"forbidden_highways"`
	Infrastructure    InfrastructurePenalties `mapstructure:"infrastructure_penalties" yaml:"infrastructure_penalties"`
	Lanes             LanePenalties           `mapstructure:"lane_penalties" yaml:"lane_penalties"`
	Surfaces          SurfacePenalties        `mapstructure:"surface_penalties" yaml:"surface_penalties"`
	Bonuses           InfrastructureBonuses   `mapstructure:"infrastructure_bonuses" yaml:"infrastructure_bonuses"`
}

// DefaultSafetyCriteria returns the built-in scoring tables.
func DefaultSafetyCriteria() *SafetyCriteria {
	return &SafetyCriteria{
		Thresholds: RiskThresholds{Critical: 9.0, High: 7.0, Moderate: 5.0},
		SpeedTiers: SpeedTiers{VeryDangerous: 100, Dangerous: 80, Moderate: 60, Safe: 50},
		SpeedPenalties: SpeedPenalties{
			VeryHigh: 4.0,
			High:     3.0,
			Moderate: 2.0,
			Low:      1.0,
		},
		HighwayPenalties: map[string]float64{
			"motorway":  5.0,
			"trunk":     3.0,
			"primary":   2.0,
			"secondary": 1.0,
		},
		ForbiddenHighways: []string{"motorway", "motorway_link"},
		Infrastructure: InfrastructurePenalties{
			NoCyclewayNoShoulder: 2.5,
			NoCycleway:           1.5,
			NoShoulder:           1.0,
		},
		Lanes: LanePenalties{FourOrMore: 2.0, Three: 1.0},
		Surfaces: SurfacePenalties{
			VeryBad: 1.5,
			Bad:     1.0,
			Unpaved: 0.5,
		},
		Bonuses: InfrastructureBonuses{
			DedicatedLane:   -2.0,
			WideShoulder:    -1.5,
			DesignatedRoute: -1.0,
		},
	}
}

// LoadSafetyCriteria reads a YAML criteria file, overlaying it on the
// defaults. An empty path returns the defaults untouched.
func LoadSafetyCriteria(path string) (*SafetyCriteria, error) {
	criteria := DefaultSafetyCriteria()
	if path == "" {
		return criteria, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "Can't read criteria file")
	}
	if err := v.Unmarshal(criteria); err != nil {
		return nil, errors.Wrap(err, "Can't parse criteria file")
	}
	return criteria, nil
}

func (criteria *SafetyCriteria) isForbidden(highway string) bool {
	for _, forbidden := range criteria.ForbiddenHighways {
		if highway == forbidden {
			return true
		}
	}
	return false
}
