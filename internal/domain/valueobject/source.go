package valueobject

import "fmt"

// Source identifies where a prediction came from.
type Source struct {
	value string
}

var (
	SourceModel = Source{value: "model"}
	SourceCache = Source{value: "cache"}
)

// SourceFromString reconstructs a Source from its string representation.
func SourceFromString(s string) (Source, error) {
	switch s {
	case "model":
		return SourceModel, nil
	case "cache":
		return SourceCache, nil
	default:
		return Source{}, fmt.Errorf("invalid prediction source: %s", s)
	}
}

// String returns the string representation.
func (s Source) String() string {
	return s.value
}

// IsZero returns true if the Source has not been set.
func (s Source) IsZero() bool {
	return s.value == ""
}

// Equal checks equality with another Source.
func (s Source) Equal(other Source) bool {
	return s.value == other.value
}
