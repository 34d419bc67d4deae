package valueobject

import "fmt"

// Survival is the binary label produced by the classifier.
type Survival struct {
	survived bool
}

var (
	DidNotSurvive = Survival{survived: false}
	Survived      = Survival{survived: true}
)

// SurvivalFromClass maps a class index (0 or 1) to a label.
func SurvivalFromClass(class int) (Survival, error) {
	switch class {
	case 0:
		return DidNotSurvive, nil
	case 1:
		return Survived, nil
	default:
		return Survival{}, fmt.Errorf("invalid survival class: %d", class)
	}
}

// Int returns 1 for survived and 0 otherwise.
func (s Survival) Int() int {
	if s.survived {
		return 1
	}
	return 0
}

// Bool reports whether the passenger survived.
func (s Survival) Bool() bool { return s.survived }

// String returns the string representation.
func (s Survival) String() string {
	if s.survived {
		return "survived"
	}
	return "did-not-survive"
}

// Equal checks equality with another Survival.
func (s Survival) Equal(other Survival) bool {
	return s.survived == other.survived
}
