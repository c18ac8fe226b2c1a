package posing

import (
	"testing"

	"github.com/spaghettifunk/anima-rig/engine/core"
	"github.com/spaghettifunk/anima-rig/engine/math"
	"github.com/spaghettifunk/anima-rig/engine/scene"
	"github.com/spaghettifunk/anima-rig/engine/skeleton"
)

func armSkeleton() *skeleton.Skeleton {
	v := math.NewVec3
	skel, _ := skeleton.Build([]skeleton.Joint{
		{Name: skeleton.LeftUpperArm, Position: v(0.15, 1.4, 0.1)},
		{Name: skeleton.LeftLowerArm, Parent: skeleton.LeftUpperArm, Position: v(0.4, 1.4, 0.1)},
		{Name: skeleton.LeftHand, Parent: skeleton.LeftLowerArm, Position: v(0.3, 1.2, 0.1)},
	})
	return skel
}

func TestSolveConverges(t *testing.T) {
	skel := armSkeleton()
	target := math.NewVec3(0.35, 1.1, 0.15)

	var distances []float32
	s := NewSolver()
	s.OnIteration = func(_ int, d float32) { distances = append(distances, d) }
	start, _ := skel.WorldPosition(skeleton.LeftHand)
	s.Solve(skel, skeleton.LeftHand, target)

	hand, _ := skel.WorldPosition(skeleton.LeftHand)
	if d := hand.Distance(target); d >= 0.05 {
		t.Fatalf("hand ended %f away from target", d)
	}
	if len(distances) == 0 || len(distances) > DefaultIterations {
		t.Fatalf("ran %d iterations", len(distances))
	}
	prev := start.Distance(target)
	for i, d := range distances {
		if d > prev+1e-4 {
			t.Fatalf("iteration %d moved away: %f > %f", i, d, prev)
		}
		prev = d
	}

	// Bone lengths are preserved by rotation-only solving.
	shoulder, _ := skel.WorldPosition(skeleton.LeftUpperArm)
	elbow, _ := skel.WorldPosition(skeleton.LeftLowerArm)
	if math.Abs(elbow.Distance(shoulder)-0.25) > 1e-4 {
		t.Fatalf("upper arm length changed to %f", elbow.Distance(shoulder))
	}
}

func TestSolveAtTargetIsNoop(t *testing.T) {
	skel := armSkeleton()
	hand, _ := skel.WorldPosition(skeleton.LeftHand)
	before, _ := skel.Bone(skeleton.LeftUpperArm)
	rot := before.Rotation()

	calls := 0
	s := NewSolver()
	s.OnIteration = func(int, float32) { calls++ }
	s.Solve(skel, skeleton.LeftHand, hand)

	if calls != 0 {
		t.Fatalf("solver iterated %d times on a reached target", calls)
	}
	if before.Rotation() != rot {
		t.Fatal("rotation changed")
	}
}

func TestSolveIgnoresUnknownEffectorAndMissingBones(t *testing.T) {
	skel := armSkeleton()
	SolveCCD(skel, skeleton.Head, math.NewVec3Zero())
	SolveCCD(skel, skeleton.RightHand, math.NewVec3Zero())
	SolveCCD(nil, skeleton.LeftHand, math.NewVec3Zero())

	v := math.NewVec3
	partial, _ := skeleton.Build([]skeleton.Joint{
		{Name: skeleton.LeftUpperArm, Position: v(0.15, 1.4, 0)},
		{Name: skeleton.LeftHand, Parent: skeleton.LeftUpperArm, Position: v(0.6, 1.4, 0)},
	})
	target := v(0.3, 1.0, 0.2)
	SolveCCD(partial, skeleton.LeftHand, target)
	hand, _ := partial.WorldPosition(skeleton.LeftHand)
	shoulder, _ := partial.WorldPosition(skeleton.LeftUpperArm)
	want := shoulder.Add(target.Sub(shoulder).Normalize().MulScalar(0.45))
	if !hand.Compare(want, 1e-3) {
		t.Fatalf("hand = %v, want %v", hand, want)
	}
}

type fixture struct {
	skel   *skeleton.Skeleton
	scene  *scene.Scene
	camera *scene.Camera
	bus    *core.EventBus
	ctrl   *Controller
}

func newFixture() *fixture {
	skel, _ := skeleton.Build(skeleton.DefaultJoints())
	f := &fixture{
		skel:   skel,
		scene:  scene.New(),
		camera: scene.NewCamera(30, 800, 600, 0.1, 20),
		bus:    core.NewEventBus(),
	}
	f.camera.Position = math.NewVec3(0, 1.2, 3)
	f.camera.LookAt(math.NewVec3(0, 1.2, 0))
	f.ctrl = NewController(f.skel, f.scene, f.camera, f.bus, DefaultOptions())
	return f
}

func (f *fixture) fire(code core.EventCode, x, y float32) bool {
	return f.bus.Fire(core.EventContext{Type: code, Data: core.PointerEvent{X: x, Y: y, Button: core.BUTTON_LEFT}})
}

func (f *fixture) screen(t *testing.T, world math.Vec3) math.Vec2 {
	t.Helper()
	p, ok := f.camera.Project(world)
	if !ok {
		t.Fatalf("%v is not visible", world)
	}
	return p
}

func TestSetModeTransitions(t *testing.T) {
	f := newFixture()

	f.ctrl.SetMode(ModeOff)
	if f.scene.Len() != 0 || f.bus.Len() != 0 {
		t.Fatal("off -> off must not create anything")
	}

	f.ctrl.SetMode(ModeFK)
	if got := f.scene.Count(scene.KindMarker); got != f.skel.Len() {
		t.Fatalf("fk markers = %d, want %d", got, f.skel.Len())
	}
	if f.scene.Count(scene.KindLines) != 1 || f.scene.Count(scene.KindGizmo) != 1 {
		t.Fatal("fk mode needs one line set and one gizmo")
	}
	if f.bus.Len() != 3 {
		t.Fatalf("listeners = %d, want 3", f.bus.Len())
	}
	fkMarkers := f.scene.Markers()

	f.ctrl.SetMode(ModeFK)
	if f.scene.Count(scene.KindMarker) != f.skel.Len() || f.bus.Len() != 3 {
		t.Fatal("fk -> fk must be a no-op")
	}

	f.ctrl.SetMode(ModeIK)
	if got := f.scene.Count(scene.KindMarker); got != len(skeleton.Effectors()) {
		t.Fatalf("ik markers = %d, want %d", got, len(skeleton.Effectors()))
	}
	if f.bus.Len() != 3 || f.scene.Count(scene.KindGizmo) != 1 || f.scene.Count(scene.KindLines) != 1 {
		t.Fatal("fk helpers leaked into ik mode")
	}
	for _, m := range fkMarkers {
		if !m.Disposed() || f.scene.Contains(m) {
			t.Fatalf("fk marker %s survived the switch", m.Tag)
		}
	}
	if g := f.ctrl.Gizmo(); g.Mode != scene.GizmoTranslate || g.Space != scene.SpaceWorld {
		t.Fatal("ik gizmo must translate in world space")
	}

	f.ctrl.SetMode(ModeOff)
	if f.scene.Len() != 0 || f.bus.Len() != 0 {
		t.Fatalf("off left %d objects and %d listeners", f.scene.Len(), f.bus.Len())
	}
}

func TestSkeletonLinesFollowConnections(t *testing.T) {
	f := newFixture()
	f.ctrl.SetMode(ModeFK)

	var lines *scene.LineSet
	for _, obj := range f.scene.Objects() {
		if l, ok := obj.(*scene.LineSet); ok {
			lines = l
		}
	}
	if lines == nil {
		t.Fatal("no line set")
	}
	if len(lines.Segments()) != len(f.skel.Connections()) {
		t.Fatalf("segments = %d, want %d", len(lines.Segments()), len(f.skel.Connections()))
	}

	f.ctrl.Update()
	f.ctrl.Update()
	if len(lines.Segments()) != len(f.skel.Connections()) {
		t.Fatal("update must rebuild the lines, not append")
	}
}

func TestUpdateWhileOffDoesNothing(t *testing.T) {
	f := newFixture()
	f.ctrl.Update()
	if f.scene.Len() != 0 {
		t.Fatal("update created objects while off")
	}
}

func TestUpdateRefreshesMarkers(t *testing.T) {
	f := newFixture()
	f.ctrl.SetMode(ModeFK)

	arm, _ := f.skel.Bone(skeleton.LeftUpperArm)
	arm.SetRotation(math.NewQuatFromAxisAngle(math.NewVec3(0, 0, 1), -math.K_HALF_PI, true))
	f.ctrl.Update()

	hand, _ := f.skel.WorldPosition(skeleton.LeftHand)
	for _, m := range f.scene.Markers() {
		if m.Tag == skeleton.LeftHand.String() && !m.Position.Compare(hand, 1e-5) {
			t.Fatalf("hand marker at %v, bone at %v", m.Position, hand)
		}
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	f := newFixture()
	f.ctrl.SetMode(ModeIK)
	f.ctrl.Dispose()
	f.ctrl.Dispose()
	f.ctrl.Cleanup()
	if f.scene.Len() != 0 || f.bus.Len() != 0 {
		t.Fatal("dispose left helpers behind")
	}
	f.ctrl.SetMode(ModeFK)
	if f.ctrl.Mode() != ModeOff || f.scene.Len() != 0 {
		t.Fatal("disposed controller changed mode")
	}
}

func TestFKPickAndDrag(t *testing.T) {
	f := newFixture()
	f.ctrl.SetMode(ModeFK)

	elbow, _ := f.skel.WorldPosition(skeleton.LeftLowerArm)
	p := f.screen(t, elbow)

	if f.fire(core.EVENT_CODE_POINTER_PRESSED, 5, 5) {
		t.Fatal("a click on empty space must not be handled")
	}
	if _, ok := f.ctrl.Selected(); ok {
		t.Fatal("nothing should be selected")
	}

	if !f.fire(core.EVENT_CODE_POINTER_PRESSED, p.X, p.Y) {
		t.Fatal("click on the elbow was not handled")
	}
	if name, _ := f.ctrl.Selected(); name != skeleton.LeftLowerArm {
		t.Fatalf("selected %q", name)
	}
	if !f.ctrl.Gizmo().Attached() {
		t.Fatal("gizmo not attached")
	}

	handBefore, _ := f.skel.WorldPosition(skeleton.LeftHand)
	// Inside the dead zone nothing rotates.
	f.fire(core.EVENT_CODE_POINTER_MOVED, p.X+1, p.Y)
	if hand, _ := f.skel.WorldPosition(skeleton.LeftHand); !hand.Compare(handBefore, 1e-6) {
		t.Fatal("bone rotated before the drag started")
	}

	f.fire(core.EVENT_CODE_POINTER_MOVED, p.X+30, p.Y)
	f.fire(core.EVENT_CODE_POINTER_RELEASED, p.X+30, p.Y)

	handAfter, _ := f.skel.WorldPosition(skeleton.LeftHand)
	if handAfter.Compare(handBefore, 1e-4) {
		t.Fatal("drag did not rotate the forearm")
	}
	elbowAfter, _ := f.skel.WorldPosition(skeleton.LeftLowerArm)
	if !elbowAfter.Compare(elbow, 1e-5) {
		t.Fatal("rotating the forearm moved the elbow")
	}

	f.fire(core.EVENT_CODE_POINTER_MOVED, p.X+60, p.Y)
	if hand, _ := f.skel.WorldPosition(skeleton.LeftHand); !hand.Compare(handAfter, 1e-6) {
		t.Fatal("moves after release must not rotate")
	}
}

func TestIKDragSolvesTowardsPointer(t *testing.T) {
	f := newFixture()
	f.ctrl.SetMode(ModeIK)

	hand, _ := f.skel.WorldPosition(skeleton.LeftHand)
	from := f.screen(t, hand)
	goal := math.NewVec3(0.5, 1.2, 0)
	to := f.screen(t, goal)

	if !f.fire(core.EVENT_CODE_POINTER_PRESSED, from.X, from.Y) {
		t.Fatal("click on the hand handle was not handled")
	}
	if name, _ := f.ctrl.Selected(); name != skeleton.LeftHand {
		t.Fatalf("selected %q", name)
	}
	f.fire(core.EVENT_CODE_POINTER_MOVED, to.X, to.Y)
	f.fire(core.EVENT_CODE_POINTER_RELEASED, to.X, to.Y)

	target, ok := f.ctrl.Target(skeleton.LeftHand)
	if !ok || !target.Compare(goal, 1e-3) {
		t.Fatalf("target = %v, want %v", target, goal)
	}
	hand, _ = f.skel.WorldPosition(skeleton.LeftHand)
	if d := hand.Distance(goal); d >= 0.05 {
		t.Fatalf("hand is %f away from the dragged target", d)
	}
}

func TestSetTarget(t *testing.T) {
	f := newFixture()
	goal := math.NewVec3(-0.4, 1.1, 0.2)
	f.ctrl.SetTarget(skeleton.RightHand, goal)
	f.ctrl.SetTarget(skeleton.Head, goal)

	if _, ok := f.ctrl.Target(skeleton.Head); ok {
		t.Fatal("head is not an effector")
	}
	hand, _ := f.skel.WorldPosition(skeleton.RightHand)
	if d := hand.Distance(goal); d >= 0.05 {
		t.Fatalf("right hand is %f away", d)
	}
}

func TestPartialSkeleton(t *testing.T) {
	v := math.NewVec3
	skel, _ := skeleton.Build([]skeleton.Joint{
		{Name: skeleton.Hips, Position: v(0, 0.9, 0)},
		{Name: skeleton.LeftUpperLeg, Parent: skeleton.Hips, Position: v(0.1, 0.85, 0)},
		{Name: skeleton.LeftFoot, Parent: skeleton.LeftUpperLeg, Position: v(0.1, 0.1, 0)},
	})
	sc := scene.New()
	ctrl := NewController(skel, sc, scene.NewCamera(30, 640, 480, 0.1, 10), core.NewEventBus(), DefaultOptions())

	ctrl.SetMode(ModeFK)
	if sc.Count(scene.KindMarker) != 3 {
		t.Fatalf("fk markers = %d", sc.Count(scene.KindMarker))
	}
	ctrl.SetMode(ModeIK)
	if sc.Count(scene.KindMarker) != 1 {
		t.Fatalf("ik markers = %d, only the left foot exists", sc.Count(scene.KindMarker))
	}
	ctrl.Update()
	ctrl.SetTarget(skeleton.LeftFoot, v(0.3, 0.3, 0.2))
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeOff, ModeFK, ModeIK} {
		got, ok := ParseMode(m.String())
		if !ok || got != m {
			t.Fatalf("ParseMode(%q) = %v, %v", m.String(), got, ok)
		}
	}
	if _, ok := ParseMode("bogus"); ok {
		t.Fatal("bogus mode accepted")
	}
}
