package math

func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Direction.MulScalar(t))
}

/**
 * @brief Intersects the ray with a sphere.
 *
 * @return The distance to the nearest intersection in front of the origin
 * and true, or 0 and false on a miss. A ray starting inside the sphere hits
 * at the exit point.
 */
func (r Ray) IntersectSphere(center Vec3, radius float32) (float32, bool) {
	oc := center.Sub(r.Origin)
	tca := oc.Dot(r.Direction)
	d2 := oc.LengthSquared() - tca*tca
	r2 := radius * radius
	if d2 > r2 {
		return 0, false
	}
	thc := ksqrt(r2 - d2)
	t0 := tca - thc
	t1 := tca + thc
	if t1 < 0 {
		return 0, false
	}
	if t0 < 0 {
		return t1, true
	}
	return t0, true
}

/**
 * @brief Intersects the ray with the plane through point with the given normal.
 *
 * @return The intersection point and true, or the zero vector and false when
 * the ray is parallel to the plane or the plane lies behind the origin.
 */
func (r Ray) IntersectPlane(point, normal Vec3) (Vec3, bool) {
	denom := normal.Dot(r.Direction)
	if kabs(denom) < K_FLOAT_EPSILON {
		return Vec3{}, false
	}
	t := point.Sub(r.Origin).Dot(normal) / denom
	if t < 0 {
		return Vec3{}, false
	}
	return r.At(t), true
}
