package noise

import "testing"

var defaultLayers = []Layer{
	{Frequency: 0.01, Amplitude: 50},
	{Frequency: 0.005, Amplitude: 30},
}

func TestSampleDeterministic(t *testing.T) {
	a := New(12345, defaultLayers...)
	b := New(12345, defaultLayers...)
	for x := -64; x <= 64; x += 7 {
		for z := -64; z <= 64; z += 5 {
			va := a.Sample(float64(x), float64(z))
			vb := b.Sample(float64(x), float64(z))
			if va != vb {
				t.Fatalf("sample (%d,%d) differs: %v vs %v", x, z, va, vb)
			}
		}
	}
}

func TestSampleRange(t *testing.T) {
	f := New(7, defaultLayers...)
	for x := -500; x <= 500; x += 13 {
		for z := -500; z <= 500; z += 11 {
			v := f.Sample(float64(x), float64(z))
			if v < -1 || v > 1 {
				t.Fatalf("sample (%d,%d)=%v out of [-1,1]", x, z, v)
			}
		}
	}
	if f.Scale() != 80 {
		t.Fatalf("Scale=%v want 80", f.Scale())
	}
}

func TestSeedsProduceDifferentFields(t *testing.T) {
	a := New(1, defaultLayers...)
	b := New(2, defaultLayers...)
	same := 0
	for x := 0; x < 200; x += 10 {
		if a.Sample(float64(x)+0.5, 17.25) == b.Sample(float64(x)+0.5, 17.25) {
			same++
		}
	}
	if same == 20 {
		t.Fatalf("different seeds produced identical samples")
	}
}

func TestEmptyFieldIsFlat(t *testing.T) {
	f := New(1, Layer{Frequency: 0, Amplitude: 10})
	if f.Octaves() != 0 {
		t.Fatalf("invalid layer should be skipped")
	}
	if v := f.Sample(3, 4); v != 0 {
		t.Fatalf("empty field sample=%v want 0", v)
	}
}
