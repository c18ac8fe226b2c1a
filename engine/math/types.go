package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief A quaternion, used to represent rotational orientation. */
type Quaternion Vec4

/**
 * @brief Represents the extents of a 3d object.
 */
type Extents3D struct {
	/** @brief The minimum extents of the object. */
	Min Vec3
	/** @brief The maximum extents of the object. */
	Max Vec3
	/** @brief False until the first point is added. */
	Valid bool
}

/**
 * @brief Represents the transform of a node in a hierarchy.
 * Position, rotation and scale are local to the parent. World values
 * are derived on demand from the chain of parents, so mutating any
 * ancestor is immediately visible to every descendant.
 */
type Transform struct {
	/** @brief The position relative to the parent. */
	Position Vec3
	/** @brief The rotation relative to the parent. */
	Rotation Quaternion
	/** @brief The scale relative to the parent. */
	Scale Vec3
	/** @brief A pointer to a parent transform if one is assigned. Can also be nil. */
	Parent *Transform
}

/**
 * @brief A half-line starting at Origin going along Direction.
 * Direction is expected to be normalized.
 */
type Ray struct {
	Origin    Vec3
	Direction Vec3
}
