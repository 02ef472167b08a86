// Package noise provides the deterministic 2-D scalar field that drives
// terrain height.
package noise

import "github.com/ojrac/opensimplex-go"

// Layer is one octave of the field: input coordinates are multiplied by
// Frequency and the sample is weighted by Amplitude.
type Layer struct {
	Frequency float64 `yaml:"frequency" json:"frequency"`
	Amplitude float64 `yaml:"amplitude" json:"amplitude"`
}

type octave struct {
	src opensimplex.Noise
	Layer
}

// Field sums independently seeded OpenSimplex octaves. It holds no mutable
// state after construction, so one Field may be sampled from many goroutines.
type Field struct {
	octaves []octave
	scale   float64
}

func New(seed int64, layers ...Layer) *Field {
	f := &Field{}
	for i, l := range layers {
		if l.Frequency <= 0 || l.Amplitude <= 0 {
			continue
		}
		f.octaves = append(f.octaves, octave{
			src:   opensimplex.New(seed + int64(i)),
			Layer: l,
		})
		f.scale += l.Amplitude
	}
	return f
}

// Sample returns the amplitude-weighted mean of all octaves at (x, z),
// in [-1, 1].
func (f *Field) Sample(x, z float64) float64 {
	if f == nil || f.scale == 0 {
		return 0
	}
	var sum float64
	for _, o := range f.octaves {
		sum += o.src.Eval2(x*o.Frequency, z*o.Frequency) * o.Amplitude
	}
	v := sum / f.scale
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// Scale is the sum of octave amplitudes. Sample(x, z) * Scale() is the raw
// height offset in blocks.
func (f *Field) Scale() float64 {
	if f == nil {
		return 0
	}
	return f.scale
}

func (f *Field) Octaves() int {
	if f == nil {
		return 0
	}
	return len(f.octaves)
}
