package verification

// BoundingBox is an axis-aligned rectangle in template-pixel space.
// Valid boxes satisfy X1 < X2 and Y1 < Y2.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Valid reports whether the box has positive width and height.
func (b BoundingBox) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Area returns the box area.
func (b BoundingBox) Area() float64 {
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// Intersection returns the overlapping area between two boxes, 0 when disjoint.
func (b BoundingBox) Intersection(o BoundingBox) float64 {
	w := min(b.X2, o.X2) - max(b.X1, o.X1)
	h := min(b.Y2, o.Y2) - max(b.Y1, o.Y1)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection-over-union ratio between two boxes in [0,1].
func (b BoundingBox) IoU(o BoundingBox) float64 {
	inter := b.Intersection(o)
	if inter == 0 {
		return 0
	}
	return inter / (b.Area() + o.Area() - inter)
}
