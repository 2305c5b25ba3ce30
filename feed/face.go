// Package feed turns tracker landmarks into the values the face uniforms
// expect.
//
// Trackers report points with a top-left origin and y growing downwards.
// Shaders see gl_FragCoord with a bottom-left origin, so every point is
// flipped vertically against the canvas height, and horizontally against the
// canvas width while the output is mirrored.
package feed

import "math"

// Landmark indices in the tracker's fixed 71 point model.
const (
	LeftEye       = 27
	RightEye      = 32
	MouthLeft     = 44
	MouthRight    = 50
	MouthTop      = 57
	MouthBottom   = 60
	NoseBridgeTop = 33
	NoseBridgeMid = 41
	NoseTip       = 62
	Chin          = 7

	// ModelSize is the number of points a complete face carries.
	ModelSize = 71
)

// Point is a 2D coordinate in canvas pixels.
type Point struct {
	X, Y float32
}

// FaceData is the per-frame face description in shader coordinates.
type FaceData struct {
	LeftEye  Point
	RightEye Point
	// Mouth is the midpoint between the mouth corners horizontally and the
	// inner lips vertically.
	Mouth Point
	// NoseBridge runs from the tip (62) through 41 to the top (33).
	NoseBridge [3]Point
	// FaceUp points from the chin to the top of the nose bridge.
	FaceUp Point
	// OpenMouth is the vertical distance between the inner lips.
	OpenMouth float32
	Vertices  []Point
}

// Flat returns the vertices as consecutive x, y pairs.
func (f *FaceData) Flat() []float32 {
	out := make([]float32, 0, len(f.Vertices)*2)
	for _, p := range f.Vertices {
		out = append(out, p.X, p.Y)
	}
	return out
}

// Transform converts tracker points to shader coordinates. The input is not
// modified.
func Transform(points []Point, width, height float32, mirrored bool) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		x := p.X
		if mirrored {
			x = width - x
		}
		out[i] = Point{X: x, Y: height - p.Y}
	}
	return out
}

// Scale maps points from a source image of srcW x srcH pixels onto a canvas
// of dstW x dstH pixels. An empty source size leaves points unchanged.
func Scale(points []Point, srcW, srcH, dstW, dstH float32) []Point {
	if srcW <= 0 || srcH <= 0 || (srcW == dstW && srcH == dstH) {
		return points
	}
	sx, sy := dstW/srcW, dstH/srcH
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{X: p.X * sx, Y: p.Y * sy}
	}
	return out
}

// FromLandmarks builds the face uniforms from one frame of tracker output.
// It reports false when points is absent or shorter than the model.
func FromLandmarks(points []Point, width, height float32, mirrored bool) (*FaceData, bool) {
	if len(points) < ModelSize {
		return nil, false
	}
	data := Transform(points, width, height, mirrored)
	return &FaceData{
		LeftEye:  data[LeftEye],
		RightEye: data[RightEye],
		Mouth: Point{
			X: (data[MouthLeft].X + data[MouthRight].X) / 2,
			Y: (data[MouthTop].Y + data[MouthBottom].Y) / 2,
		},
		NoseBridge: [3]Point{data[NoseTip], data[NoseBridgeMid], data[NoseBridgeTop]},
		FaceUp: Point{
			X: data[NoseBridgeTop].X - data[Chin].X,
			Y: data[NoseBridgeTop].Y - data[Chin].Y,
		},
		OpenMouth: float32(math.Abs(float64(data[MouthTop].Y - data[MouthBottom].Y))),
		Vertices:  data,
	}, true
}
