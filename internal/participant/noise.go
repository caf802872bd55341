// internal/participant/noise.go
package participant

import (
	"math"
	"math/rand"
)

const defaultPinkSources = 12

// PinkNoise produces 1/f noise with the stochastic Voss-McCartney method:
// a bank of white sources where lower octaves are refreshed less often.
// Hand tremor has this long-range correlation, white noise does not.
type PinkNoise struct {
	rng     *rand.Rand
	octaves []float64
	odds    []float64
	sum     float64
	scale   float64
}

// NewPinkNoise returns a generator over n sources, 12 when n is not positive.
func NewPinkNoise(rng *rand.Rand, n int) *PinkNoise {
	if n <= 0 {
		n = defaultPinkSources
	}
	p := &PinkNoise{
		rng:     rng,
		octaves: make([]float64, n),
		odds:    make([]float64, n),
		scale:   1 / math.Sqrt(float64(n)),
	}

	total := 0.0
	for i := range p.odds {
		p.odds[i] = math.Pow(2, -float64(i))
		total += p.odds[i]
	}
	for i := range p.odds {
		p.odds[i] /= total
		p.octaves[i] = p.white()
		p.sum += p.octaves[i]
	}
	return p
}

func (p *PinkNoise) white() float64 {
	return p.rng.Float64()*2 - 1
}

// Next returns the next sample. Values stay within [-sqrt(n), sqrt(n)].
func (p *PinkNoise) Next() float64 {
	r := p.rng.Float64()
	pick := len(p.octaves) - 1
	acc := 0.0
	for i, odd := range p.odds {
		acc += odd
		if r < acc {
			pick = i
			break
		}
	}

	fresh := p.white()
	p.sum += fresh - p.octaves[pick]
	p.octaves[pick] = fresh
	return p.sum * p.scale
}
