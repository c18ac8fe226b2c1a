package posing

import (
	"github.com/spaghettifunk/anima-rig/engine/core"
	"github.com/spaghettifunk/anima-rig/engine/math"
	"github.com/spaghettifunk/anima-rig/engine/scene"
	"github.com/spaghettifunk/anima-rig/engine/skeleton"
)

type Mode uint8

const (
	ModeOff Mode = iota
	ModeFK
	ModeIK
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeFK:
		return "fk"
	case ModeIK:
		return "ik"
	default:
		return "unknown"
	}
}

// ParseMode accepts "off", "fk" and "ik".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "off", "":
		return ModeOff, true
	case "fk":
		return ModeFK, true
	case "ik":
		return ModeIK, true
	default:
		return ModeOff, false
	}
}

type Options struct {
	Iterations     int
	Threshold      float32
	MarkerRadius   float32
	EffectorRadius float32
	DefaultColor   math.Vec4
	SelectedColor  math.Vec4
	EffectorColor  math.Vec4
	LineColor      math.Vec4
	// RotateSpeed is the FK rotation in radians per dragged pixel.
	RotateSpeed  float32
	DragDeadZone float32
}

func DefaultOptions() Options {
	return Options{
		Iterations:     DefaultIterations,
		Threshold:      DefaultThreshold,
		MarkerRadius:   0.02,
		EffectorRadius: 0.035,
		DefaultColor:   math.NewVec4(0.2, 0.6, 1, 1),
		SelectedColor:  math.NewVec4(1, 0.8, 0, 1),
		EffectorColor:  math.NewVec4(1, 0.3, 0.3, 1),
		LineColor:      math.NewVec4(1, 1, 1, 0.6),
		RotateSpeed:    0.01,
		DragDeadZone:   core.DefaultDragDeadZone,
	}
}

// Controller lets a user pose a skeleton interactively, either by rotating
// single bones (FK) or by dragging hands and feet (IK). It owns every helper
// it puts in the scene and every listener it puts on the bus.
type Controller struct {
	skel   *skeleton.Skeleton
	scene  *scene.Scene
	camera *scene.Camera
	bus    *core.EventBus
	opts   Options
	solver Solver

	mode        Mode
	markers     map[skeleton.BoneName]*scene.Marker
	markerOrder []*scene.Marker
	connections []skeleton.Connection
	targets     map[skeleton.BoneName]math.Vec3
	lines       *scene.LineSet
	gizmo       *scene.Gizmo
	pointer     *core.PointerTracker
	listening   bool

	selected   skeleton.BoneName
	planePoint math.Vec3
	planeNorm  math.Vec3

	disposed bool
}

func NewController(skel *skeleton.Skeleton, sc *scene.Scene, camera *scene.Camera, bus *core.EventBus, opts Options) *Controller {
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	return &Controller{
		skel:    skel,
		scene:   sc,
		camera:  camera,
		bus:     bus,
		opts:    opts,
		solver:  Solver{Iterations: opts.Iterations, Threshold: opts.Threshold},
		markers: make(map[skeleton.BoneName]*scene.Marker),
		targets: make(map[skeleton.BoneName]math.Vec3),
		pointer: core.NewPointerTracker(opts.DragDeadZone),
	}
}

func (c *Controller) Mode() Mode {
	return c.mode
}

// Selected returns the bone picked last in the active mode.
func (c *Controller) Selected() (skeleton.BoneName, bool) {
	return c.selected, c.selected != ""
}

// Target returns the last IK target recorded for effector.
func (c *Controller) Target(effector skeleton.BoneName) (math.Vec3, bool) {
	t, ok := c.targets[effector]
	return t, ok
}

// Gizmo exposes the active manipulation widget, nil when the mode is off.
func (c *Controller) Gizmo() *scene.Gizmo {
	return c.gizmo
}

// SetMode switches the manipulation mode. Switching to the current mode does
// nothing; any other switch tears the previous mode down completely before
// building the new one.
func (c *Controller) SetMode(mode Mode) {
	if c.disposed || mode == c.mode {
		return
	}
	core.LogDebug("posing mode %s -> %s", c.mode, mode)
	c.teardown()
	c.mode = mode
	switch mode {
	case ModeFK:
		c.setupFK()
	case ModeIK:
		c.setupIK()
	}
}

// SetSkeleton rebinds the controller to a newly loaded avatar. The mode is
// turned off and IK targets are discarded.
func (c *Controller) SetSkeleton(skel *skeleton.Skeleton) {
	c.Cleanup()
	c.skel = skel
}

// Update refreshes markers and the skeleton overlay from the live bones. It
// is meant to run once per frame and does nothing while the mode is off.
func (c *Controller) Update() {
	if c.mode == ModeOff {
		return
	}
	for name, m := range c.markers {
		if bone, ok := c.skel.Bone(name); ok {
			m.Position = bone.WorldPosition()
		}
	}
	c.rebuildLines()
}

// Cleanup removes every helper and listener and turns the mode off. It is
// safe to call repeatedly.
func (c *Controller) Cleanup() {
	c.teardown()
	c.mode = ModeOff
}

// Dispose is Cleanup followed by releasing the collaborators. A disposed
// controller ignores further mode changes.
func (c *Controller) Dispose() {
	c.Cleanup()
	c.disposed = true
}

// SetTarget records an IK target for effector and solves towards it, the
// same way a drag of the effector handle does.
func (c *Controller) SetTarget(effector skeleton.BoneName, target math.Vec3) {
	if !skeleton.IsEffector(effector) {
		return
	}
	c.targets[effector] = target
	c.solver.Solve(c.skel, effector, target)
}

func (c *Controller) setupFK() {
	for _, name := range c.skel.Names() {
		bone, _ := c.skel.Bone(name)
		c.addMarker(name, bone.WorldPosition(), c.opts.MarkerRadius, c.opts.DefaultColor)
	}
	c.setupCommon(scene.NewGizmo(scene.GizmoRotate, scene.SpaceLocal))
}

func (c *Controller) setupIK() {
	for _, name := range skeleton.Effectors() {
		bone, ok := c.skel.Bone(name)
		if !ok {
			continue
		}
		c.addMarker(name, bone.WorldPosition(), c.opts.EffectorRadius, c.opts.EffectorColor)
	}
	c.setupCommon(scene.NewGizmo(scene.GizmoTranslate, scene.SpaceWorld))
}

func (c *Controller) setupCommon(gizmo *scene.Gizmo) {
	c.connections = c.skel.Connections()
	c.lines = scene.NewLineSet(c.opts.LineColor)
	c.scene.Add(c.lines)
	c.rebuildLines()

	c.gizmo = gizmo
	c.gizmo.OnChange = c.onGizmoChange
	c.scene.Add(c.gizmo)

	c.listen()
}

func (c *Controller) addMarker(name skeleton.BoneName, position math.Vec3, radius float32, color math.Vec4) {
	m := scene.NewMarker(name.String(), position, radius, color)
	c.markers[name] = m
	c.markerOrder = append(c.markerOrder, m)
	c.scene.Add(m)
}

func (c *Controller) rebuildLines() {
	if c.lines == nil {
		return
	}
	c.lines.Reset()
	for _, conn := range c.connections {
		parent, ok := c.skel.Bone(conn.Parent)
		if !ok {
			continue
		}
		child, ok := c.skel.Bone(conn.Child)
		if !ok {
			continue
		}
		c.lines.Append(parent.WorldPosition(), child.WorldPosition())
	}
}

func (c *Controller) teardown() {
	c.unlisten()
	c.pointer.Cancel()

	if c.gizmo != nil {
		c.gizmo.Detach()
		c.scene.Remove(c.gizmo)
		c.gizmo.Dispose()
		c.gizmo = nil
	}
	for _, m := range c.markerOrder {
		c.scene.Remove(m)
		m.Dispose()
	}
	if c.lines != nil {
		c.scene.Remove(c.lines)
		c.lines.Dispose()
		c.lines = nil
	}
	clear(c.markers)
	clear(c.targets)
	c.markerOrder = nil
	c.connections = nil
	c.selected = ""
}

func (c *Controller) listen() {
	if c.listening || c.bus == nil {
		return
	}
	c.bus.Register(core.EVENT_CODE_POINTER_PRESSED, c, c.onPointerPressed)
	c.bus.Register(core.EVENT_CODE_POINTER_MOVED, c, c.onPointerMoved)
	c.bus.Register(core.EVENT_CODE_POINTER_RELEASED, c, c.onPointerReleased)
	c.listening = true
}

func (c *Controller) unlisten() {
	if !c.listening {
		return
	}
	c.bus.Unregister(core.EVENT_CODE_POINTER_PRESSED, c)
	c.bus.Unregister(core.EVENT_CODE_POINTER_MOVED, c)
	c.bus.Unregister(core.EVENT_CODE_POINTER_RELEASED, c)
	c.listening = false
}

func (c *Controller) onGizmoChange() {
	if c.mode != ModeIK || c.selected == "" {
		return
	}
	m, ok := c.markers[c.selected]
	if !ok {
		return
	}
	c.targets[c.selected] = m.Position
	c.solver.Solve(c.skel, c.selected, m.Position)
}
