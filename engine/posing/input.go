package posing

import (
	"github.com/spaghettifunk/anima-rig/engine/core"
	"github.com/spaghettifunk/anima-rig/engine/math"
	"github.com/spaghettifunk/anima-rig/engine/scene"
	"github.com/spaghettifunk/anima-rig/engine/skeleton"
)

func (c *Controller) onPointerPressed(ctx core.EventContext) bool {
	ev, ok := ctx.Data.(core.PointerEvent)
	if !ok || ev.Button != core.BUTTON_LEFT || c.camera == nil {
		return false
	}
	hits := scene.Intersect(c.camera.RayFromScreen(ev.X, ev.Y), c.markerOrder)
	if len(hits) == 0 {
		c.pointer.Cancel()
		return false
	}
	c.pick(skeleton.BoneName(hits[0].Marker.Tag))
	c.pointer.Down(ev.X, ev.Y)
	return true
}

func (c *Controller) onPointerMoved(ctx core.EventContext) bool {
	ev, ok := ctx.Data.(core.PointerEvent)
	if !ok || c.pointer.Phase() == core.PointerIdle || c.gizmo == nil {
		return false
	}
	dx, dy, dragging := c.pointer.Move(ev.X, ev.Y)
	if !dragging {
		return true
	}
	switch c.mode {
	case ModeFK:
		c.dragRotate(dx, dy)
	case ModeIK:
		c.dragTranslate(ev.X, ev.Y)
	}
	return true
}

func (c *Controller) onPointerReleased(ctx core.EventContext) bool {
	if c.pointer.Phase() == core.PointerIdle {
		return false
	}
	if c.pointer.Up() {
		core.LogDebug("finished dragging %s", c.selected)
	}
	return true
}

// pick makes name the selected bone and attaches the gizmo to it.
func (c *Controller) pick(name skeleton.BoneName) {
	if prev, ok := c.markers[c.selected]; ok && c.mode == ModeFK {
		prev.Color = c.opts.DefaultColor
	}
	m, ok := c.markers[name]
	if !ok {
		return
	}
	c.selected = name

	switch c.mode {
	case ModeFK:
		m.Color = c.opts.SelectedColor
		if bone, ok := c.skel.Bone(name); ok {
			c.gizmo.Attach(bone)
		}
	case ModeIK:
		c.gizmo.Attach(m)
		// Dragging happens on the plane through the handle facing the camera.
		c.planePoint = m.Position
		c.planeNorm = c.camera.Forward().Negate()
	}
	core.LogDebug("selected %s", name)
}

func (c *Controller) dragRotate(dx, dy float32) {
	speed := c.opts.RotateSpeed
	if c.gizmo.Axis != scene.AxisFree {
		c.gizmo.Rotate(c.gizmo.Axis.Vector(), dx*speed)
		return
	}
	r, ok := c.gizmo.Target().(scene.Rotatable)
	if !ok {
		return
	}
	// Horizontal drags spin around the view's up axis, vertical drags tilt
	// around its right axis. Both are converted into the bone's own frame.
	toLocal := r.WorldRotation().Inverse()
	if dx != 0 {
		c.gizmo.Rotate(toLocal.RotateVec3(c.camera.CameraUp()), dx*speed)
	}
	if dy != 0 {
		toLocal = r.WorldRotation().Inverse()
		c.gizmo.Rotate(toLocal.RotateVec3(c.camera.Right()), dy*speed)
	}
}

func (c *Controller) dragTranslate(x, y float32) {
	ray := c.camera.RayFromScreen(x, y)
	point, ok := ray.IntersectPlane(c.planePoint, c.planeNorm)
	if !ok {
		return
	}
	c.gizmo.Translate(point)
}

// TargetFor is the world point a drag to (x, y) would set as the IK target of
// the selected effector.
func (c *Controller) TargetFor(x, y float32) (math.Vec3, bool) {
	if c.mode != ModeIK || c.selected == "" {
		return math.Vec3{}, false
	}
	return c.camera.RayFromScreen(x, y).IntersectPlane(c.planePoint, c.planeNorm)
}
