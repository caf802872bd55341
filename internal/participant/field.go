// internal/participant/field.go
package participant

import (
	"math"

	"github.com/xkilldash9x/armtrace/internal/kinematics"
)

// Source is one point of influence in a Field. A positive Strength attracts
// the path, a negative one repels it. Falloff is the distance over which the
// pull decays by a factor of e.
type Source struct {
	Position kinematics.Vector2D
	Strength float64
	Falloff  float64
}

// Field bends generated paths towards or away from its sources.
type Field struct {
	sources []Source
}

// NewField returns a field with no sources. A nil or empty field leaves
// paths straight.
func NewField() *Field {
	return &Field{}
}

// Add registers a source.
func (f *Field) Add(pos kinematics.Vector2D, strength, falloff float64) {
	f.sources = append(f.sources, Source{Position: pos, Strength: strength, Falloff: falloff})
}

// Len returns the number of sources.
func (f *Field) Len() int {
	if f == nil {
		return 0
	}
	return len(f.sources)
}

// NetForce sums the pull of every source on p. Each contribution points at
// its source with magnitude Strength * exp(-d/Falloff).
func (f *Field) NetForce(p kinematics.Vector2D) kinematics.Vector2D {
	var net kinematics.Vector2D
	if f == nil {
		return net
	}
	for _, src := range f.sources {
		toSource := src.Position.Sub(p)
		d := toSource.Mag()
		if d < 1e-9 || src.Falloff <= 0 {
			continue
		}
		magnitude := src.Strength * math.Exp(-d/src.Falloff)
		net = net.Add(toSource.Mul(magnitude / d))
	}
	return net
}
