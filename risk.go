package veloscout

// RiskLevel classifies a score against the configured thresholds
type RiskLevel string

const (
	RiskCritical = RiskLevel("critical")
	RiskHigh     = RiskLevel("high")
	RiskModerate = RiskLevel("moderate")
	RiskLow      = RiskLevel("low")
)

// Color returns the visualization color for the level
func (level RiskLevel) Color() string {
	switch level {
	case RiskCritical:
		return "#FF0000"
	case RiskHigh:
		return "#FF8800"
	case RiskModerate:
		return "#FFFF00"
	default:
		return "#88FF00"
	}
}

// RiskFactor is one named contributor to a segment's score, kept for
// explainability in exported output.
type RiskFactor struct {
	Name   string
	Points float64
}

// RiskScore is the final clamped score with its level and the factors
// that produced it.
type RiskScore struct {
	Score   float64
	Level   RiskLevel
	Factors []RiskFactor
}

// RiskScorer computes cycling risk for road segments. Scoring is a pure
// function of segment attributes: identical input always reproduces the
// identical score and factor list.
type RiskScorer struct {
	criteria *SafetyCriteria
}

// NewRiskScorer creates a scorer over the given criteria.
func NewRiskScorer(criteria *SafetyCriteria) *RiskScorer {
	if criteria == nil {
		criteria = DefaultSafetyCriteria()
	}
	return &RiskScorer{criteria: criteria}
}

// Score sums the independent factor contributions and clamps the result
// to [0, 10]. The protective-infrastructure bonus may drive the running
// sum negative before the clamp applies.
func (scorer *RiskScorer) Score(segment *RoadSegment) RiskScore {
	criteria := scorer.criteria
	sum := 0.0
	factors := []RiskFactor{}
	add := func(name string, points float64) {
		sum += points
		factors = append(factors, RiskFactor{Name: name, Points: points})
	}

	if criteria.isForbidden(segment.Highway) {
		add("forbidden_highway", 10.0)
	}

	switch {
	case segment.MaxSpeed >= criteria.SpeedTiers.VeryDangerous:
		add("very_high_speed", criteria.SpeedPenalties.VeryHigh)
	case segment.MaxSpeed >= criteria.SpeedTiers.Dangerous:
		add("high_speed", criteria.SpeedPenalties.High)
	case segment.MaxSpeed >= criteria.SpeedTiers.Moderate:
		add("moderate_speed", criteria.SpeedPenalties.Moderate)
	case segment.MaxSpeed >= criteria.SpeedTiers.Safe:
		add("low_speed", criteria.SpeedPenalties.Low)
	}

	if points, ok := criteria.HighwayPenalties[segment.Highway]; ok && points != 0 {
		add("highway_"+segment.Highway, points)
	}

	hasCycleway := segment.Cycleway != ""
	switch {
	case !hasCycleway && !segment.Shoulder:
		add("no_bike_infrastructure", criteria.Infrastructure.NoCyclewayNoShoulder)
	case !hasCycleway:
		add("no_cycleway", criteria.Infrastructure.NoCycleway)
	case !segment.Shoulder:
		add("no_shoulder", criteria.Infrastructure.NoShoulder)
	}

	switch {
	case segment.Lanes >= 4:
		add("multi_lane", criteria.Lanes.FourOrMore)
	case segment.Lanes == 3:
		add("three_lanes", criteria.Lanes.Three)
	}

	if points := scorer.surfacePenalty(segment.Surface); points != 0 {
		add("poor_surface", points)
	}

	if bonus := scorer.infrastructureBonus(segment); bonus != 0 {
		add("good_bike_infrastructure", bonus)
	}

	score := sum
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return RiskScore{
		Score:   score,
		Level:   scorer.level(score),
		Factors: factors,
	}
}

func (scorer *RiskScorer) level(score float64) RiskLevel {
	thresholds := scorer.criteria.Thresholds
	switch {
	case score >= thresholds.Critical:
		return RiskCritical
	case score >= thresholds.High:
		return RiskHigh
	case score >= thresholds.Moderate:
		return RiskModerate
	default:
		return RiskLow
	}
}

func (scorer *RiskScorer) surfacePenalty(surface string) float64 {
	switch surface {
	case "dirt", "sand", "mud":
		return scorer.criteria.Surfaces.VeryBad
	case "gravel", "unpaved", "compacted":
		return scorer.criteria.Surfaces.Bad
	case "fine_gravel", "pebblestone":
		return scorer.criteria.Surfaces.Unpaved
	}
	return 0
}

func (scorer *RiskScorer) infrastructureBonus(segment *RoadSegment) float64 {
	bonus := 0.0
	switch segment.Cycleway {
	case "track", "separate", "lane":
		bonus += scorer.criteria.Bonuses.DedicatedLane
	case "shared_lane":
		bonus += scorer.criteria.Bonuses.WideShoulder
	}
	if segment.Bicycle == "designated" {
		bonus += scorer.criteria.Bonuses.DesignatedRoute
	}
	return bonus
}
