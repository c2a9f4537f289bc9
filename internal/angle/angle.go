// Package angle computes raw finger joint angles from hand landmarks.
package angle

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/finger"
)

// ErrInvalidInput is returned when a landmark sequence does not contain every
// index referenced by the joint triples.
var ErrInvalidInput = errors.New("invalid landmark input")

// DegenerateAngle is returned by Angle when either ray has zero length.
const DegenerateAngle = 0.0

// Angle returns the angle in degrees at vertex b between rays b->a and b->c.
// Only the X and Y coordinates are used. The result is in [0,180].
func Angle(a, b, c detector.Point3D) float64 {
	bax, bay := a.X-b.X, a.Y-b.Y
	bcx, bcy := c.X-b.X, c.Y-b.Y

	norm := math.Hypot(bax, bay) * math.Hypot(bcx, bcy)
	if norm == 0 {
		return DegenerateAngle
	}

	cosine := (bax*bcx + bay*bcy) / norm
	// Rounding can push the ratio just outside [-1,1].
	cosine = math.Max(-1, math.Min(1, cosine))

	return math.Acos(cosine) * 180 / math.Pi
}

// JointTriple names the landmarks whose angle drives one channel.
// Vertex is the joint the angle is measured at.
type JointTriple struct {
	A, Vertex, C int
}

// Triples maps each channel to its landmark triple.
var Triples = [finger.NumChannels]JointTriple{
	finger.ThumbMCP: {detector.ThumbCMC, detector.ThumbMCP, detector.ThumbIP},
	finger.ThumbIP:  {detector.ThumbMCP, detector.ThumbIP, detector.ThumbTip},
	finger.Index:    {detector.IndexMCP, detector.IndexPIP, detector.IndexTip},
	finger.Middle:   {detector.MiddleMCP, detector.MiddlePIP, detector.MiddleTip},
	finger.Ring:     {detector.RingMCP, detector.RingPIP, detector.RingTip},
	finger.Pinky:    {detector.PinkyMCP, detector.PinkyPIP, detector.PinkyTip},
}

// Extract computes the raw angle of every channel from a landmark sequence.
// points must contain at least detector.NumLandmarks entries.
func Extract(points []detector.Point3D) (finger.RawAngles, error) {
	var raw finger.RawAngles
	if len(points) < detector.NumLandmarks {
		return raw, fmt.Errorf("%w: got %d landmarks, want %d", ErrInvalidInput, len(points), detector.NumLandmarks)
	}

	for ch, t := range Triples {
		raw[ch] = Angle(points[t.A], points[t.Vertex], points[t.C])
	}
	return raw, nil
}
