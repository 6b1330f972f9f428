package enums

import "fmt"

// PatchCategory partitions patch rows per discipline. Ordering of rows is
// maintained independently within each (team, category) group.
type PatchCategory string

const (
	PatchCategoryAudio    PatchCategory = "Audio"
	PatchCategoryVideo    PatchCategory = "Video"
	PatchCategoryLighting PatchCategory = "Lighting"
)

var validPatchCategories = []PatchCategory{
	PatchCategoryAudio,
	PatchCategoryVideo,
	PatchCategoryLighting,
}

// String implements fmt.Stringer.
func (p PatchCategory) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PatchCategory.
func (p PatchCategory) IsValid() bool {
	for _, candidate := range validPatchCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePatchCategory converts raw input into a PatchCategory.
func ParsePatchCategory(value string) (PatchCategory, error) {
	for _, candidate := range validPatchCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid patch category %q", value)
}
