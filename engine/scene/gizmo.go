package scene

import (
	"github.com/spaghettifunk/anima-rig/engine/math"
)

type GizmoMode uint8

const (
	GizmoRotate GizmoMode = iota
	GizmoTranslate
)

type GizmoSpace uint8

const (
	SpaceLocal GizmoSpace = iota
	SpaceWorld
)

// GizmoAxis restricts a gizmo to one handle. AxisFree lets the caller pick
// the axis for every drag sample.
type GizmoAxis uint8

const (
	AxisFree GizmoAxis = iota
	AxisX
	AxisY
	AxisZ
)

func (a GizmoAxis) Vector() math.Vec3 {
	switch a {
	case AxisX:
		return math.NewVec3(1, 0, 0)
	case AxisY:
		return math.NewVec3(0, 1, 0)
	case AxisZ:
		return math.NewVec3(0, 0, 1)
	default:
		return math.Vec3{}
	}
}

// Attachable is anything a gizmo can be drawn at.
type Attachable interface {
	WorldPosition() math.Vec3
}

// Rotatable targets accept rotate gizmos.
type Rotatable interface {
	Attachable
	Rotation() math.Quaternion
	SetRotation(rotation math.Quaternion)
	WorldRotation() math.Quaternion
}

// Translatable targets accept translate gizmos.
type Translatable interface {
	Attachable
	SetWorldPosition(position math.Vec3)
}

func (m *Marker) SetWorldPosition(position math.Vec3) {
	m.Position = position
}

// Gizmo is the transform-manipulation widget. It edits whatever it is
// attached to and calls OnChange after every edit.
type Gizmo struct {
	base
	Mode     GizmoMode
	Space    GizmoSpace
	Axis     GizmoAxis
	OnChange func()

	target Attachable
}

func NewGizmo(mode GizmoMode, space GizmoSpace) *Gizmo {
	return &Gizmo{base: newBase(), Mode: mode, Space: space}
}

func (g *Gizmo) Kind() ObjectKind {
	return KindGizmo
}

func (g *Gizmo) Attach(target Attachable) {
	g.target = target
}

func (g *Gizmo) Detach() {
	g.target = nil
}

func (g *Gizmo) Attached() bool {
	return g.target != nil
}

func (g *Gizmo) Target() Attachable {
	return g.target
}

// Position is where the widget is drawn.
func (g *Gizmo) Position() math.Vec3 {
	if g.target == nil {
		return math.Vec3{}
	}
	return g.target.WorldPosition()
}

// Rotate turns the attached target by angle radians around axis. The axis is
// read in the gizmo's space: the target's local frame for SpaceLocal, world
// axes for SpaceWorld. It reports false when nothing rotatable is attached.
func (g *Gizmo) Rotate(axis math.Vec3, angle float32) bool {
	if g.Mode != GizmoRotate {
		return false
	}
	r, ok := g.target.(Rotatable)
	if !ok || axis.LengthSquared() < math.K_FLOAT_EPSILON {
		return false
	}
	local := r.Rotation()
	if g.Space == SpaceWorld {
		axis = r.WorldRotation().Inverse().RotateVec3(axis)
	}
	delta := math.NewQuatFromAxisAngle(axis.Normalize(), angle, true)
	r.SetRotation(local.Mul(delta).Normalize())
	g.changed()
	return true
}

// Translate moves the attached target to position in world space.
func (g *Gizmo) Translate(position math.Vec3) bool {
	if g.Mode != GizmoTranslate {
		return false
	}
	t, ok := g.target.(Translatable)
	if !ok {
		return false
	}
	t.SetWorldPosition(position)
	g.changed()
	return true
}

func (g *Gizmo) changed() {
	if g.OnChange != nil {
		g.OnChange()
	}
}

func (g *Gizmo) Dispose() {
	g.disposed = true
	g.target = nil
	g.OnChange = nil
}
