package veloscout

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultCategoryRules returns the built-in POI categories. The slice
// order is the matching order: a feature satisfying several rules is
// assigned to the first one.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{
			Name: "water",
			Filters: []TagFilter{
				{Key: "amenity", Values: []string{"drinking_water", "fountain", "water_point"}},
				{Key: "man_made", Values: []string{"water_well", "water_tap"}},
			},
			BufferMeters: 500,
			Symbol:       "Water Source",
		},
		{
			Name: "food",
			Filters: []TagFilter{
				{Key: "amenity", Values: []string{"restaurant", "cafe", "fast_food", "bar", "pub", "food_court"}},
				{Key: "shop", Values: []string{"bakery"}},
			},
			BufferMeters: 1000,
			Symbol:       "Restaurant",
		},
		{
			Name: "hotels",
			Filters: []TagFilter{
				{Key: "tourism", Values: []string{"hotel", "guest_house", "hostel", "motel", "apartment", "alpine_hut", "wilderness_hut", "camp_site"}},
			},
			BufferMeters: 2000,
			Symbol:       "Lodging",
		},
		{
			Name: "supermarket",
			Filters: []TagFilter{
				{Key: "shop", Values: []string{"supermarket", "convenience", "general", "grocery"}},
			},
			BufferMeters: 1000,
			Symbol:       "Shopping",
		},
		{
			Name: "pharmacy",
			Filters: []TagFilter{
				{Key: "amenity", Values: []string{"pharmacy"}},
			},
			BufferMeters: 1500,
			Symbol:       "Pharmacy",
		},
		{
			Name: "fuel",
			Filters: []TagFilter{
				{Key: "amenity", Values: []string{"fuel"}},
			},
			BufferMeters: 1500,
			Symbol:       "Gas Station",
		},
		{
			Name: "medical",
			Filters: []TagFilter{
				{Key: "amenity", Values: []string{"clinic", "hospital", "doctors", "dentist"}},
			},
			BufferMeters: 2000,
			Symbol:       "Medical Facility",
		},
		{
			Name: "bike_shop",
			Filters: []TagFilter{
				{Key: "shop", Values: []string{"bicycle", "sports"}},
			},
			BufferMeters: 2000,
			Symbol:       "Bike Trail",
		},
		{
			Name: "atm",
			Filters: []TagFilter{
				{Key: "amenity", Values: []string{"atm", "bank"}},
			},
			BufferMeters: 1000,
			Symbol:       "Bank",
		},
	}
}

// LoadCategoryRules reads category rules from a YAML file. The file holds
// the rules as a sequence, so the matching order is explicit in the
// document rather than an accident of map iteration. An empty path
// returns the defaults.
func LoadCategoryRules(path string) ([]CategoryRule, error) {
	if path == "" {
		return DefaultCategoryRules(), nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "Can't read categories file")
	}
	rules := []CategoryRule{}
	if err := v.UnmarshalKey("categories", &rules); err != nil {
		return nil, errors.Wrap(err, "Can't parse categories file")
	}
	if len(rules) == 0 {
		return nil, errors.New("Categories file defines no categories")
	}
	for i := range rules {
		if rules[i].BufferMeters <= 0 {
			rules[i].BufferMeters = 1000
		}
		if rules[i].Symbol == "" {
			rules[i].Symbol = "Flag, Blue"
		}
	}
	return rules, nil
}
