package diagnosis

import (
	"strings"

	"github.com/Chen-yuping/Education-system/internal/irt"
)

// Kind selects which estimation path a diagnosis run takes.
type Kind int

const (
	// KindWeighted is the Q-matrix-weighted accuracy path with evidence
	// smoothing. It is the default and needs no model fitting.
	KindWeighted Kind = iota
	// KindIRT fits a logistic IRT model and projects abilities through the
	// Q-matrix.
	KindIRT
)

// ModelSpec identifies a diagnostic model as a closed type rather than a
// free-text name. Name is kept for persistence scoping and display.
type ModelSpec struct {
	Kind    Kind
	Variant irt.Variant
	Name    string
}

// String returns the display form, e.g. "IRT-2PL" or the configured name.
func (m ModelSpec) String() string {
	if m.Name != "" {
		return m.Name
	}
	if m.Kind == KindIRT {
		return "IRT-" + m.Variant.String()
	}
	return "simple"
}

// ParseModelName adapts the legacy string vocabulary to a ModelSpec: any
// name containing "irt" selects the IRT path, with "1pl"/"3pl" choosing the
// variant (2PL otherwise); every other name selects the weighted-evidence
// path. The original name is preserved so persisted records keep their
// model identity.
func ParseModelName(name string) ModelSpec {
	spec := ModelSpec{Name: name}
	if spec.Name == "" {
		spec.Name = "simple"
	}
	lower := strings.ToLower(name)
	if !strings.Contains(lower, "irt") {
		return spec
	}
	spec.Kind = KindIRT
	switch {
	case strings.Contains(lower, "1pl"):
		spec.Variant = irt.OnePL
	case strings.Contains(lower, "3pl"):
		spec.Variant = irt.ThreePL
	default:
		spec.Variant = irt.TwoPL
	}
	return spec
}
