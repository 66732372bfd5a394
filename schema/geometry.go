package schema

import "math"

// Point is a position in floating point pixel space.
type Point struct {
	X float32
	Y float32
}

// Pt constructs a Point.
func Pt(x, y float32) Point {
	return Point{X: x, Y: y}
}

// Add offsets the point by v.
func (p Point) Add(v Vector) Point {
	return Point{X: p.X + v.X, Y: p.Y + v.Y}
}

// Sub returns the vector from o to p.
func (p Point) Sub(o Point) Vector {
	return Vector{X: p.X - o.X, Y: p.Y - o.Y}
}

// Div scales the point by 1/f.
func (p Point) Div(f float32) Point {
	return Point{X: p.X / f, Y: p.Y / f}
}

// Mul scales the point by f.
func (p Point) Mul(f float32) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Round converts to integer device pixels, rounding to nearest.
func (p Point) Round() IntPoint {
	return IntPoint{X: int32(math.Round(float64(p.X))), Y: int32(math.Round(float64(p.Y)))}
}

// Trunc converts to integer device pixels, truncating toward zero.
func (p Point) Trunc() IntPoint {
	return IntPoint{X: int32(p.X), Y: int32(p.Y)}
}

// Vector is a displacement in floating point pixel space.
type Vector struct {
	X float32
	Y float32
}

// Vec constructs a Vector.
func Vec(x, y float32) Vector {
	return Vector{X: x, Y: y}
}

// Add returns v+o.
func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y}
}

// Mul scales the vector by f.
func (v Vector) Mul(f float32) Vector {
	return Vector{X: v.X * f, Y: v.Y * f}
}

// Div scales the vector by 1/f.
func (v Vector) Div(f float32) Vector {
	return Vector{X: v.X / f, Y: v.Y / f}
}

// Length returns the euclidean length.
func (v Vector) Length() float32 {
	return float32(math.Hypot(float64(v.X), float64(v.Y)))
}

// IsZero reports whether both components are zero.
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Size is a floating point extent.
type Size struct {
	Width  float32
	Height float32
}

// Div scales the size by 1/f.
func (s Size) Div(f float32) Size {
	return Size{Width: s.Width / f, Height: s.Height / f}
}

// IntPoint is a position in integer device pixels.
type IntPoint struct {
	X int32
	Y int32
}

// ToPoint converts to floating point.
func (p IntPoint) ToPoint() Point {
	return Point{X: float32(p.X), Y: float32(p.Y)}
}

// IntSize is an extent in integer device pixels.
type IntSize struct {
	Width  int32
	Height int32
}

// ToSize converts to floating point.
func (s IntSize) ToSize() Size {
	return Size{Width: float32(s.Width), Height: float32(s.Height)}
}

// Empty reports whether either dimension is non-positive.
func (s IntSize) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// IntRect is an axis-aligned rectangle in integer device pixels.
type IntRect struct {
	Origin IntPoint
	Size   IntSize
}

// Rect constructs an IntRect.
func Rect(x, y, w, h int32) IntRect {
	return IntRect{Origin: IntPoint{X: x, Y: y}, Size: IntSize{Width: w, Height: h}}
}

// Contains reports whether p lies inside the rectangle.
func (r IntRect) Contains(p Point) bool {
	return p.X >= float32(r.Origin.X) && p.Y >= float32(r.Origin.Y) &&
		p.X < float32(r.Origin.X+r.Size.Width) && p.Y < float32(r.Origin.Y+r.Size.Height)
}
