// internal/participant/model.go
package participant

import (
	"math"
	"math/rand"
	"time"

	"github.com/aquilax/go-perlin"

	"github.com/xkilldash9x/armtrace/internal/kinematics"
)

// Config tunes the synthetic participant.
type Config struct {
	// FittsA and FittsB are the intercept (ms) and slope (ms/bit) of the
	// movement-time model MT = A + B*log2(1 + D/W).
	FittsA float64
	FittsB float64
	// TargetWidth is W in the model above, in pixels.
	TargetWidth float64
	// TimingJitter randomises the movement time by up to this fraction.
	TimingJitter float64
	// SampleRate is how many pointer positions are produced per second.
	SampleRate float64
	// Curvature scales the sideways bend of the path.
	Curvature float64
	// PerlinAmplitude and PerlinFrequency shape slow drift off the ideal path.
	PerlinAmplitude float64
	PerlinFrequency float64
	// TremorAmplitude scales pink-noise tremor, in pixels.
	TremorAmplitude float64
	// Seed makes runs reproducible.
	Seed int64
}

// DefaultConfig returns a moderately careful participant.
func DefaultConfig() Config {
	return Config{
		FittsA:          150,
		FittsB:          180,
		TargetWidth:     40,
		TimingJitter:    0.15,
		SampleRate:      60,
		Curvature:       0.4,
		PerlinAmplitude: 2.5,
		PerlinFrequency: 0.8,
		TremorAmplitude: 0.6,
		Seed:            1,
	}
}

// Sample is one pointer position at an offset from the start of the motion.
type Sample struct {
	At    time.Duration
	Point kinematics.Vector2D
}

// Model generates pointer motions. It is not safe for concurrent use; each
// simulated participant owns its own Model.
type Model struct {
	cfg    Config
	rng    *rand.Rand
	driftX *perlin.Perlin
	driftY *perlin.Perlin
	tremor *PinkNoise
}

// New returns a model seeded from cfg.Seed.
func New(cfg Config) *Model {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 60
	}
	if cfg.TargetWidth <= 0 {
		cfg.TargetWidth = 40
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &Model{
		cfg:    cfg,
		rng:    rng,
		driftX: perlin.NewPerlin(2, 2, 3, cfg.Seed),
		driftY: perlin.NewPerlin(2, 2, 3, cfg.Seed+1),
		tremor: NewPinkNoise(rng, defaultPinkSources),
	}
}

// MovementTime predicts how long covering distance takes.
func (m *Model) MovementTime(distance float64) time.Duration {
	id := math.Log2(1 + distance/m.cfg.TargetWidth)
	mt := m.cfg.FittsA + m.cfg.FittsB*id
	if j := m.cfg.TimingJitter; j > 0 {
		mt += mt * (m.rng.Float64()*2*j - j)
	}
	if mt < 0 {
		mt = 0
	}
	return time.Duration(mt * float64(time.Millisecond))
}

// Generate produces the pointer samples of one motion from start to target.
// The first sample is exactly start at 0 and the last exactly target at the
// movement time. A nil field gets a single random bend so paths are not
// straight lines.
func (m *Model) Generate(start, target kinematics.Vector2D, field *Field) []Sample {
	dist := kinematics.Distance(start, target)
	if dist < 1 {
		return []Sample{{At: 0, Point: target}}
	}

	duration := m.MovementTime(dist)
	n := int(duration.Seconds()*m.cfg.SampleRate) + 1
	if n < 2 {
		n = 2
	}

	if field.Len() == 0 {
		field = m.bend(start, target, dist)
	}
	p1, p2 := controlPoints(start, target, dist, field)

	samples := make([]Sample, n)
	for i := range samples {
		t := float64(i) / float64(n-1)
		at := time.Duration(t * float64(duration))
		p := bezier(start, p1, p2, target, easeInOutCubic(t))

		// Noise fades in and out so the endpoints stay exact.
		envelope := math.Sin(math.Pi * t)
		secs := at.Seconds() * m.cfg.PerlinFrequency
		drift := kinematics.Vector2D{
			X: m.driftX.Noise1D(secs) * m.cfg.PerlinAmplitude,
			Y: m.driftY.Noise1D(secs) * m.cfg.PerlinAmplitude,
		}
		shake := kinematics.Vector2D{X: m.tremor.Next(), Y: m.tremor.Next()}.Mul(m.cfg.TremorAmplitude)
		p = p.Add(drift.Add(shake).Mul(envelope))

		samples[i] = Sample{At: at, Point: p}
	}
	samples[0].Point = start
	samples[n-1].Point = target
	return samples
}

// bend places one source beside the midpoint, on a random side, so the path
// arcs the way a hand swinging from the elbow does.
func (m *Model) bend(start, target kinematics.Vector2D, dist float64) *Field {
	f := NewField()
	if m.cfg.Curvature == 0 {
		return f
	}
	dir := target.Sub(start).Mul(1 / dist)
	normal := kinematics.Vector2D{X: -dir.Y, Y: dir.X}
	if m.rng.Intn(2) == 0 {
		normal = normal.Mul(-1)
	}
	mid := kinematics.LerpVector(start, target, 0.5)
	f.Add(mid.Add(normal.Mul(dist*0.5)), m.cfg.Curvature, dist)
	return f
}

// controlPoints places the inner Bezier handles at the thirds of the straight
// path, each pushed along the field's net force there.
func controlPoints(start, target kinematics.Vector2D, dist float64, field *Field) (kinematics.Vector2D, kinematics.Vector2D) {
	a := kinematics.LerpVector(start, target, 1.0/3)
	b := kinematics.LerpVector(start, target, 2.0/3)
	p1 := a.Add(field.NetForce(a).Mul(dist * 0.5))
	p2 := b.Add(field.NetForce(b).Mul(dist * 0.5))
	return p1, p2
}

// bezier evaluates the cubic curve p0..p3 at t in [0, 1].
func bezier(p0, p1, p2, p3 kinematics.Vector2D, t float64) kinematics.Vector2D {
	u := 1 - t
	return p0.Mul(u * u * u).
		Add(p1.Mul(3 * u * u * t)).
		Add(p2.Mul(3 * u * t * t)).
		Add(p3.Mul(t * t * t))
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}
