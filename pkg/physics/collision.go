// pkg/physics/collision.go
package physics

import "math"

// Circle represents a circular collision shape
type Circle struct {
	Center Vector2D
	Radius float64
}

// Bounds returns the axis-aligned box enclosing the circle
func (c Circle) Bounds() Rect {
	return Rect{Center: c.Center, Width: 2 * c.Radius, Height: 2 * c.Radius}
}

// Rect represents a rectangular area anchored at its center.
// Screen coordinates are assumed: Y grows downwards, so Top() < Bottom().
type Rect struct {
	Center Vector2D
	Width  float64
	Height float64
}

// Left returns the smallest x covered by the rectangle
func (r Rect) Left() float64 { return r.Center.X - r.Width/2 }

// Right returns the largest x covered by the rectangle
func (r Rect) Right() float64 { return r.Center.X + r.Width/2 }

// Top returns the smallest y covered by the rectangle
func (r Rect) Top() float64 { return r.Center.Y - r.Height/2 }

// Bottom returns the largest y covered by the rectangle
func (r Rect) Bottom() float64 { return r.Center.Y + r.Height/2 }

// Contains reports whether point lies in the half-open rectangle
func (r Rect) Contains(point Vector2D) bool {
	return point.X >= r.Left() &&
		point.X < r.Right() &&
		point.Y >= r.Top() &&
		point.Y < r.Bottom()
}

// Intersects reports whether two rectangles overlap with positive area
func (r Rect) Intersects(other Rect) bool {
	return r.Left() < other.Right() &&
		r.Right() > other.Left() &&
		r.Top() < other.Bottom() &&
		r.Bottom() > other.Top()
}

// Expand grows the rectangle by dx on each horizontal side and dy on each vertical side
func (r Rect) Expand(dx, dy float64) Rect {
	return Rect{Center: r.Center, Width: r.Width + 2*dx, Height: r.Height + 2*dy}
}

// ClosestPoint clamps point to the rectangle's extent
func (r Rect) ClosestPoint(point Vector2D) Vector2D {
	return Vector2D{
		X: math.Max(r.Left(), math.Min(point.X, r.Right())),
		Y: math.Max(r.Top(), math.Min(point.Y, r.Bottom())),
	}
}

// OverlapsCircle reports whether the circle touches or overlaps the rectangle.
// Touching edges count as overlap.
func (r Rect) OverlapsCircle(c Circle) bool {
	closest := r.ClosestPoint(c.Center)
	return c.Center.Sub(closest).LengthSquared() <= c.Radius*c.Radius
}

// ContactNormal returns the unit vector pointing from the nearest point of r
// towards the circle center, but only while the circle moves into the surface
// (velocity opposes the separation). Otherwise, including when the center is
// inside the rectangle, the zero vector is returned.
func ContactNormal(r Rect, c Circle, velocity Vector2D) Vector2D {
	separation := c.Center.Sub(r.ClosestPoint(c.Center))
	if velocity.Dot(separation) < 0 {
		return separation.Normalize()
	}
	return Vector2D{}
}

// maxQuadTreeDepth stops subdivision for clusters of coincident points
const maxQuadTreeDepth = 8

// QuadTree indexes integer handles by point for broad-phase queries
type QuadTree struct {
	Boundary  Rect
	Capacity  int
	Points    []Vector2D
	Items     []int
	Divided   bool
	depth     int
	NorthWest *QuadTree
	NorthEast *QuadTree
	SouthWest *QuadTree
	SouthEast *QuadTree
}

// NewQuadTree creates a new quad tree with the given boundary and capacity
func NewQuadTree(boundary Rect, capacity int) *QuadTree {
	if capacity < 1 {
		capacity = 1
	}
	return &QuadTree{
		Boundary: boundary,
		Capacity: capacity,
		Points:   make([]Vector2D, 0, capacity),
		Items:    make([]int, 0, capacity),
	}
}

// Insert stores item at point. It returns false when point lies outside the tree.
func (qt *QuadTree) Insert(point Vector2D, item int) bool {
	if !qt.Boundary.Contains(point) {
		return false
	}

	if !qt.Divided && (len(qt.Points) < qt.Capacity || qt.depth >= maxQuadTreeDepth) {
		qt.Points = append(qt.Points, point)
		qt.Items = append(qt.Items, item)
		return true
	}

	if !qt.Divided {
		qt.Subdivide()
	}

	return qt.NorthWest.Insert(point, item) ||
		qt.NorthEast.Insert(point, item) ||
		qt.SouthWest.Insert(point, item) ||
		qt.SouthEast.Insert(point, item)
}

// Subdivide splits the quadtree into four quadrants. Points already stored stay
// in this node; later inserts go to the children.
func (qt *QuadTree) Subdivide() {
	x := qt.Boundary.Center.X
	y := qt.Boundary.Center.Y
	w := qt.Boundary.Width / 2
	h := qt.Boundary.Height / 2

	nw := Rect{Center: Vector2D{X: x - w/2, Y: y - h/2}, Width: w, Height: h}
	ne := Rect{Center: Vector2D{X: x + w/2, Y: y - h/2}, Width: w, Height: h}
	sw := Rect{Center: Vector2D{X: x - w/2, Y: y + h/2}, Width: w, Height: h}
	se := Rect{Center: Vector2D{X: x + w/2, Y: y + h/2}, Width: w, Height: h}

	qt.NorthWest = qt.child(nw)
	qt.NorthEast = qt.child(ne)
	qt.SouthWest = qt.child(sw)
	qt.SouthEast = qt.child(se)
	qt.Divided = true
}

func (qt *QuadTree) child(boundary Rect) *QuadTree {
	c := NewQuadTree(boundary, qt.Capacity)
	c.depth = qt.depth + 1
	return c
}

// Query returns the items whose points fall inside area
func (qt *QuadTree) Query(area Rect) []int {
	return qt.query(area, nil)
}

func (qt *QuadTree) query(area Rect, found []int) []int {
	if !qt.intersects(area) {
		return found
	}

	for i, point := range qt.Points {
		if area.Contains(point) {
			found = append(found, qt.Items[i])
		}
	}

	if !qt.Divided {
		return found
	}

	found = qt.NorthWest.query(area, found)
	found = qt.NorthEast.query(area, found)
	found = qt.SouthWest.query(area, found)
	found = qt.SouthEast.query(area, found)
	return found
}

// Clear drops every stored item and collapses the tree
func (qt *QuadTree) Clear() {
	qt.Points = qt.Points[:0]
	qt.Items = qt.Items[:0]
	qt.Divided = false
	qt.NorthWest = nil
	qt.NorthEast = nil
	qt.SouthWest = nil
	qt.SouthEast = nil
}

// Len returns the number of stored items
func (qt *QuadTree) Len() int {
	n := len(qt.Items)
	if qt.Divided {
		n += qt.NorthWest.Len() + qt.NorthEast.Len() + qt.SouthWest.Len() + qt.SouthEast.Len()
	}
	return n
}

func (qt *QuadTree) intersects(area Rect) bool {
	return !(area.Left() > qt.Boundary.Right() ||
		area.Right() < qt.Boundary.Left() ||
		area.Top() > qt.Boundary.Bottom() ||
		area.Bottom() < qt.Boundary.Top())
}
