package enums

import "fmt"

// Feature is the closed set of capability keys. Permission checks dispatch on
// this enum instead of raw field-name strings so a typo cannot silently grant
// or deny access.
type Feature string

const (
	FeatureGear       Feature = "gear"
	FeaturePatches    Feature = "patches"
	FeatureTraining   Feature = "training"
	FeatureChecklists Feature = "checklists"
	FeatureIdeas      Feature = "ideas"
	FeatureChat       Feature = "chat"
)

// Features lists every capability key in stable order.
var Features = []Feature{
	FeatureGear,
	FeaturePatches,
	FeatureTraining,
	FeatureChecklists,
	FeatureIdeas,
	FeatureChat,
}

// String implements fmt.Stringer.
func (f Feature) String() string {
	return string(f)
}

// IsValid reports whether the value is a known Feature.
func (f Feature) IsValid() bool {
	for _, candidate := range Features {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFeature converts raw input into a Feature.
func ParseFeature(value string) (Feature, error) {
	for _, candidate := range Features {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid feature %q", value)
}
