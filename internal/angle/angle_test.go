package angle

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/finger"
)

const epsilon = 1e-9

// acos is steep near -1, so straight joints only land within this of 180.
const straightTolerance = 1e-4

func pt(x, y float64) detector.Point3D {
	return detector.Point3D{X: x, Y: y}
}

func TestAngle(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c detector.Point3D
		want    float64
	}{
		{"colinear with b between", pt(0, 0), pt(0.5, 0.5), pt(1, 1), 180},
		{"colinear uneven spacing", pt(0.1, 0.2), pt(0.2, 0.4), pt(0.5, 1.0), 180},
		{"right angle", pt(1, 0), pt(0, 0), pt(0, 1), 90},
		{"same ray", pt(1, 0), pt(0, 0), pt(2, 0), 0},
		{"sixty degrees", pt(1, 0), pt(0, 0), pt(0.5, math.Sqrt(3)/2), 60},
		{"zero length ba", pt(0.3, 0.3), pt(0.3, 0.3), pt(1, 1), DegenerateAngle},
		{"zero length bc", pt(0, 0), pt(0.3, 0.3), pt(0.3, 0.3), DegenerateAngle},
		{"all coincident", pt(0.4, 0.4), pt(0.4, 0.4), pt(0.4, 0.4), DegenerateAngle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Angle(tt.a, tt.b, tt.c)
			if math.IsNaN(got) {
				t.Fatal("Angle returned NaN")
			}
			if math.Abs(got-tt.want) > straightTolerance {
				t.Errorf("Angle() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestAngle_IgnoresDepth(t *testing.T) {
	a := detector.Point3D{X: 1, Y: 0, Z: 5}
	b := detector.Point3D{X: 0, Y: 0, Z: -3}
	c := detector.Point3D{X: 0, Y: 1, Z: 0.7}

	if got := Angle(a, b, c); math.Abs(got-90) > epsilon {
		t.Errorf("Angle() = %f, want 90", got)
	}
}

func TestAngle_NearlyColinearStaysInRange(t *testing.T) {
	// Coordinates chosen so the cosine ratio rounds to slightly below -1.
	a := pt(0.1, 0.1)
	b := pt(0.2, 0.2)
	c := pt(0.3, 0.30000000000000004)

	got := Angle(a, b, c)
	if math.IsNaN(got) || got < 0 || got > 180 {
		t.Errorf("Angle() = %f, want value in [0,180]", got)
	}
}

func TestExtract(t *testing.T) {
	t.Run("open hand is straight", func(t *testing.T) {
		hand := detector.OpenHandLandmarks()
		raw, err := Extract(hand.Slice())
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}

		for _, ch := range finger.All() {
			if math.Abs(raw[ch]-180) > straightTolerance {
				t.Errorf("%s: expected 180, got %f", ch, raw[ch])
			}
		}
	})

	t.Run("fist bends every finger", func(t *testing.T) {
		hand := detector.FistLandmarks()
		raw, err := Extract(hand.Slice())
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}

		if math.Abs(raw[finger.ThumbMCP]-90) > 1e-6 {
			t.Errorf("thumb_mcp: expected 90, got %f", raw[finger.ThumbMCP])
		}
		if math.Abs(raw[finger.ThumbIP]-90) > 1e-6 {
			t.Errorf("thumb_ip: expected 90, got %f", raw[finger.ThumbIP])
		}
		for _, ch := range []finger.Channel{finger.Index, finger.Middle, finger.Ring, finger.Pinky} {
			if raw[ch] > 10 {
				t.Errorf("%s: expected folded finger below 10 degrees, got %f", ch, raw[ch])
			}
		}
	})

	t.Run("short sequence is invalid", func(t *testing.T) {
		hand := detector.OpenHandLandmarks()
		_, err := Extract(hand.Slice()[:20])
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("nil sequence is invalid", func(t *testing.T) {
		_, err := Extract(nil)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("extra landmarks are ignored", func(t *testing.T) {
		hand := detector.OpenHandLandmarks()
		points := append(hand.Slice(), pt(9, 9))
		if _, err := Extract(points); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestTriples_UseFixedIndices(t *testing.T) {
	want := [finger.NumChannels]JointTriple{
		{1, 2, 3},
		{2, 3, 4},
		{5, 6, 8},
		{9, 10, 12},
		{13, 14, 16},
		{17, 18, 20},
	}
	if Triples != want {
		t.Errorf("Triples = %v, want %v", Triples, want)
	}
}
