package mapping

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func TestMap(t *testing.T) {
	tests := []struct {
		name                string
		value, srcLo, srcHi float64
		dstLo, dstHi        float64
		want                float64
	}{
		{name: "midpoint", value: 110, srcLo: 20, srcHi: 200, dstLo: 0, dstHi: 100, want: 50},
		{name: "lower bound", value: 20, srcLo: 20, srcHi: 200, dstLo: 0, dstHi: 100, want: 0},
		{name: "upper bound", value: 200, srcLo: 20, srcHi: 200, dstLo: 0, dstHi: 100, want: 100},
		{name: "below range clamps", value: 5, srcLo: 20, srcHi: 200, dstLo: 0, dstHi: 100, want: 0},
		{name: "above range clamps", value: 500, srcLo: 20, srcHi: 200, dstLo: 0, dstHi: 100, want: 100},
		{name: "inverted destination", value: 29, srcLo: 0, srcHi: 100, dstLo: 400, dstHi: 150, want: 327.5},
		{name: "inverted destination clamps", value: 120, srcLo: 0, srcHi: 100, dstLo: 400, dstHi: 150, want: 150},
		{name: "negative device range", value: 29, srcLo: 0, srcHi: 100, dstLo: -65.25, dstHi: 0, want: -46.3275},
		{name: "inverted source", value: 50, srcLo: 200, srcHi: 0, dstLo: 0, dstHi: 100, want: 75},
		{name: "degenerate source", value: 42, srcLo: 7, srcHi: 7, dstLo: 3, dstHi: 9, want: 3},
		{name: "degenerate zero source", value: 0, srcLo: 0, srcHi: 0, dstLo: 0, dstHi: 100, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Map(tt.value, tt.srcLo, tt.srcHi, tt.dstLo, tt.dstHi)
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("Map(%v, %v, %v, %v, %v) = %v, want %v",
					tt.value, tt.srcLo, tt.srcHi, tt.dstLo, tt.dstHi, got, tt.want)
			}
		})
	}
}

func TestMap_StaysInDestinationRange(t *testing.T) {
	ranges := [][4]float64{
		{20, 200, 0, 100},
		{0, 100, -65.25, 0},
		{0, 100, 400, 150},
		{-3, 3, 1, -1},
	}

	for _, r := range ranges {
		lo, hi := math.Min(r[2], r[3]), math.Max(r[2], r[3])
		for i := 0; i <= 100; i++ {
			v := r[0] + (r[1]-r[0])*float64(i)/100
			got := Map(v, r[0], r[1], r[2], r[3])
			if got < lo || got > hi {
				t.Fatalf("Map(%v, %v) = %v, outside [%v, %v]", v, r, got, lo, hi)
			}
		}
	}
}

func TestMap_RoundTrip(t *testing.T) {
	const a, b, c, d = 20.0, 200.0, -65.25, 0.0

	for i := 0; i <= 50; i++ {
		v := a + (b-a)*float64(i)/50
		back := Map(Map(v, a, b, c, d), c, d, a, b)
		if math.Abs(back-v) > 1e-9 {
			t.Errorf("round trip of %v gave %v", v, back)
		}
	}
}

func TestMap_DegenerateAnyValue(t *testing.T) {
	for _, v := range []float64{-1e9, -1, 0, 1, 1e9, math.Inf(1)} {
		if got := Map(v, 12.5, 12.5, -65.25, 0); got != -65.25 {
			t.Errorf("Map(%v) on degenerate range = %v, want -65.25", v, got)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Errorf("Clamp(5) = %v", got)
	}
	if got := Clamp(-1, 0, 10); got != 0 {
		t.Errorf("Clamp(-1) = %v", got)
	}
	if got := Clamp(11, 0, 10); got != 10 {
		t.Errorf("Clamp(11) = %v", got)
	}
	if got := Clamp(math.NaN(), 0, 10); got != 0 {
		t.Errorf("Clamp(NaN) = %v", got)
	}
}

func TestCurve(t *testing.T) {
	tests := []struct {
		p    float64
		want int
	}{
		{p: 0, want: 0},
		{p: 50, want: 29},
		{p: 100, want: 100},
		{p: -10, want: 0},
		{p: 150, want: 100},
	}

	for _, tt := range tests {
		if got := Curve(tt.p, DefaultGamma); got != tt.want {
			t.Errorf("Curve(%v, %v) = %d, want %d", tt.p, DefaultGamma, got, tt.want)
		}
	}
}

func TestCurve_NonDecreasing(t *testing.T) {
	prev := Curve(0, DefaultGamma)
	for i := 1; i <= 1000; i++ {
		p := float64(i) / 10
		got := Curve(p, DefaultGamma)
		if got < prev {
			t.Fatalf("Curve(%v) = %d dropped below %d", p, got, prev)
		}
		if got < 0 || got > 100 {
			t.Fatalf("Curve(%v) = %d out of range", p, got)
		}
		prev = got
	}
}

func TestCurve_BiasesLowEnd(t *testing.T) {
	// Below the midpoint the curve sits under the identity line.
	for _, p := range []float64{10, 25, 50, 75} {
		if got := Curve(p, DefaultGamma); float64(got) > p {
			t.Errorf("Curve(%v) = %d, expected at most %v", p, got, p)
		}
	}
}
