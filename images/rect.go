// Package images - Image geometry and pixel tensor utilities.
package images

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Rect is an axis-aligned rectangle in input-image pixel coordinates.
//
// Left <= Right and Top <= Bottom. Zero-area rectangles are valid.
type Rect struct {
	Left   float32 `json:"left" yaml:"left"`
	Top    float32 `json:"top" yaml:"top"`
	Right  float32 `json:"right" yaml:"right"`
	Bottom float32 `json:"bottom" yaml:"bottom"`
}

// RectFromCenter builds a rectangle from its center point and extents.
func RectFromCenter(cx, cy, w, h float32) Rect {
	return Rect{
		Left:   cx - w/2,
		Top:    cy - h/2,
		Right:  cx + w/2,
		Bottom: cy + h/2,
	}
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float32 {
	return r.Right - r.Left
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float32 {
	return r.Bottom - r.Top
}

// CenterX returns the horizontal center of the rectangle.
func (r Rect) CenterX() float32 {
	return (r.Left + r.Right) / 2
}

// CenterY returns the vertical center of the rectangle.
func (r Rect) CenterY() float32 {
	return (r.Top + r.Bottom) / 2
}

// Area returns the area of the rectangle.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Clip clamps every edge of the rectangle into [0, width-1] x [0, height-1].
//
// Both edges of an axis are clamped to the same range, so an ordered rectangle
// stays ordered even when it lies entirely outside the image.
//
// Arguments:
//   - width: The width of the image the rectangle lives in.
//   - height: The height of the image the rectangle lives in.
//
// Returns:
//   - Rect: The clipped rectangle.
func (r Rect) Clip(width, height int) Rect {
	maxX := float32(width - 1)
	maxY := float32(height - 1)

	return Rect{
		Left:   clamp(r.Left, 0, maxX),
		Top:    clamp(r.Top, 0, maxY),
		Right:  clamp(r.Right, 0, maxX),
		Bottom: clamp(r.Bottom, 0, maxY),
	}
}

func clamp(v, lo, hi float32) float32 {
	return math32.Min(hi, math32.Max(lo, v))
}

// String formats the rectangle as "Rect(left, top, right, bottom)".
func (r Rect) String() string {
	return fmt.Sprintf("Rect(%g, %g, %g, %g)", r.Left, r.Top, r.Right, r.Bottom)
}

// Overlap returns the 1-D overlap of two segments given by center and width.
//
// The result is negative when the segments are disjoint.
func Overlap(c1, w1, c2, w2 float32) float32 {
	left := math32.Max(c1-w1/2, c2-w2/2)
	right := math32.Min(c1+w1/2, c2+w2/2)
	return right - left
}

// Intersection calculates the intersection area between two rectangles.
//
// The overlap along each axis is computed from the centers and extents of both
// rectangles. If either axis does not overlap the area is exactly 0.
//
// Arguments:
//   - a: The first rectangle.
//   - b: The second rectangle.
//
// Returns:
//   - float32: The intersection area, never negative.
func Intersection(a, b Rect) float32 {
	w := Overlap(a.CenterX(), a.Width(), b.CenterX(), b.Width())
	h := Overlap(a.CenterY(), a.Height(), b.CenterY(), b.Height())
	if w < 0 || h < 0 {
		return 0
	}
	return w * h
}

// Union calculates the union area between two rectangles.
//
// Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
//
// The area terms use the same center/extent form as Intersection so that
// Union(A, A) == Intersection(A, A) holds exactly in float32. The conversions
// round each product and keep the compiler from fusing them into the sum.
func Union(a, b Rect) float32 {
	return float32(extentArea(a)) + float32(extentArea(b)) - float32(Intersection(a, b))
}

// extentArea is Intersection(r, r) without the overlap test.
func extentArea(r Rect) float32 {
	return Overlap(r.CenterX(), r.Width(), r.CenterX(), r.Width()) *
		Overlap(r.CenterY(), r.Height(), r.CenterY(), r.Height())
}

// IoU calculates the Intersection over Union between two rectangles.
//
// When both rectangles are degenerate the union is zero and IoU is defined as 0.
//
// Arguments:
//   - a: The first rectangle.
//   - b: The second rectangle.
//
// Returns:
//   - float32: A value between 0.0 and 1.0.
//
// Example Usage:
// ```go
//
//	a := Rect{Left: 0, Top: 0, Right: 10, Bottom: 10}
//	b := Rect{Left: 5, Top: 5, Right: 15, Bottom: 15}
//	iou := IoU(a, b) // intersection=25, union=175, iou≈0.142857
//
// ```
func IoU(a, b Rect) float32 {
	union := Union(a, b)
	if union <= 0 {
		return 0
	}
	return math32.Min(1, math32.Max(0, Intersection(a, b)/union))
}
