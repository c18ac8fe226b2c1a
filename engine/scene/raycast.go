package scene

import (
	"slices"

	"github.com/spaghettifunk/anima-rig/engine/math"
)

// Hit is a marker intersected by a picking ray.
type Hit struct {
	Marker   *Marker
	Distance float32
	Point    math.Vec3
}

// Intersect tests ray against every visible marker and returns the hits
// nearest first. Hits at equal distance keep the order of markers.
func Intersect(ray math.Ray, markers []*Marker) []Hit {
	var hits []Hit
	for _, m := range markers {
		if m == nil || !m.Visible || m.Disposed() {
			continue
		}
		if d, ok := ray.IntersectSphere(m.Position, m.Radius); ok {
			hits = append(hits, Hit{Marker: m, Distance: d, Point: ray.At(d)})
		}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	return hits
}
