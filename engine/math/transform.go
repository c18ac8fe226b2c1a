package math

func TransformCreate() *Transform {
	return &Transform{
		Position: NewVec3Zero(),
		Rotation: NewQuatIdentity(),
		Scale:    NewVec3One(),
	}
}

func TransformFromPosition(position Vec3) *Transform {
	t := TransformCreate()
	t.Position = position
	return t
}

func TransformFromPositionRotation(position Vec3, rotation Quaternion) *Transform {
	t := TransformCreate()
	t.Position = position
	t.Rotation = rotation
	return t
}

func TransformFromPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) *Transform {
	return &Transform{
		Position: position,
		Rotation: rotation,
		Scale:    scale,
	}
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
}

func (t *Transform) Translate(translation Vec3) {
	t.Position = t.Position.Add(translation)
}

func (t *Transform) SetRotation(rotation Quaternion) {
	t.Rotation = rotation
}

// Rotate applies rotation after the current local rotation.
func (t *Transform) Rotate(rotation Quaternion) {
	t.Rotation = t.Rotation.Mul(rotation).Normalize()
}

// WorldRotation composes the rotations of every ancestor with this one.
func (t *Transform) WorldRotation() Quaternion {
	if t == nil {
		return NewQuatIdentity()
	}
	if t.Parent == nil {
		return t.Rotation
	}
	return t.Parent.WorldRotation().Mul(t.Rotation)
}

// WorldScale multiplies the scale of every ancestor with this one.
func (t *Transform) WorldScale() Vec3 {
	if t == nil {
		return NewVec3One()
	}
	if t.Parent == nil {
		return t.Scale
	}
	return t.Parent.WorldScale().Mul(t.Scale)
}

// WorldPosition returns the origin of the transform in world space.
func (t *Transform) WorldPosition() Vec3 {
	if t == nil {
		return NewVec3Zero()
	}
	if t.Parent == nil {
		return t.Position
	}
	return t.Parent.TransformPoint(t.Position)
}

// TransformPoint maps a point from this transform's local space into world
// space, one ancestor at a time so non-uniform scale composes correctly.
func (t *Transform) TransformPoint(local Vec3) Vec3 {
	if t == nil {
		return local
	}
	return t.Parent.TransformPoint(t.Position.Add(t.Rotation.RotateVec3(local.Mul(t.Scale))))
}
