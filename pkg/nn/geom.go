package nn

import (
	"github.com/chewxy/math32"
)

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Make a Rect from its two corners
func RectFromCorners(x1, y1, x2, y2 int) Rect {
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

func (r Rect) X2() int {
	return r.X + r.Width
}

func (r Rect) Y2() int {
	return r.Y + r.Height
}

func (r Rect) Area() int {
	return r.Width * r.Height
}

func (r Rect) Intersection(b Rect) Rect {
	x1 := max(r.X, b.X)
	y1 := max(r.Y, b.Y)
	x2 := min(r.X2(), b.X2())
	y2 := min(r.Y2(), b.Y2())
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  max(0, x2-x1),
		Height: max(0, y2-y1),
	}
}

// Intersection over Union
func (r Rect) IOU(b Rect) float32 {
	intersection := r.Intersection(b)
	union := r.Area() + b.Area() - intersection.Area()
	if union <= 0 {
		return 0
	}
	return float32(intersection.Area()) / float32(union)
}

// Clip the rectangle so that it lies inside an image of the given size
func (r Rect) Clip(width, height int) Rect {
	x1 := min(max(r.X, 0), width)
	y1 := min(max(r.Y, 0), height)
	x2 := min(max(r.X2(), 0), width)
	y2 := min(max(r.Y2(), 0), height)
	return RectFromCorners(x1, y1, x2, y2)
}

// Scale the rectangle by independent X and Y factors, as when mapping
// from NN input coordinates back to the original image.
func (r Rect) Scale(sx, sy float32) Rect {
	x1 := int(math32.Round(float32(r.X) * sx))
	y1 := int(math32.Round(float32(r.Y) * sy))
	x2 := int(math32.Round(float32(r.X2()) * sx))
	y2 := int(math32.Round(float32(r.Y2()) * sy))
	return RectFromCorners(x1, y1, x2, y2)
}
