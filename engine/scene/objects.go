package scene

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-rig/engine/math"
)

type ObjectKind uint8

const (
	KindMarker ObjectKind = iota
	KindLines
	KindGizmo
	KindLight
)

func (k ObjectKind) String() string {
	switch k {
	case KindMarker:
		return "marker"
	case KindLines:
		return "lines"
	case KindGizmo:
		return "gizmo"
	case KindLight:
		return "light"
	default:
		return "unknown"
	}
}

// Object is anything a Scene can host. The renderer owning the real GPU
// resources mirrors these descriptors; Dispose marks the geometry released.
type Object interface {
	ID() string
	Kind() ObjectKind
	Dispose()
	Disposed() bool
}

type base struct {
	id       string
	disposed bool
}

func newBase() base {
	return base{id: uuid.NewString()}
}

func (b *base) ID() string {
	return b.id
}

func (b *base) Disposed() bool {
	return b.disposed
}

// Marker is a pickable sphere, typically pinned to a bone.
type Marker struct {
	base
	Tag      string
	Position math.Vec3
	Radius   float32
	Color    math.Vec4
	Visible  bool
}

func NewMarker(tag string, position math.Vec3, radius float32, color math.Vec4) *Marker {
	return &Marker{
		base:     newBase(),
		Tag:      tag,
		Position: position,
		Radius:   radius,
		Color:    color,
		Visible:  true,
	}
}

func (m *Marker) Kind() ObjectKind {
	return KindMarker
}

func (m *Marker) WorldPosition() math.Vec3 {
	return m.Position
}

func (m *Marker) Dispose() {
	m.disposed = true
	m.Visible = false
}

// Segment is a line between two world-space points.
type Segment [2]math.Vec3

// LineSet is a batch of line segments, rebuilt in place every frame.
type LineSet struct {
	base
	Color    math.Vec4
	segments []Segment
}

func NewLineSet(color math.Vec4) *LineSet {
	return &LineSet{base: newBase(), Color: color}
}

func (l *LineSet) Kind() ObjectKind {
	return KindLines
}

// Reset empties the set while keeping its storage.
func (l *LineSet) Reset() {
	l.segments = l.segments[:0]
}

func (l *LineSet) Append(from, to math.Vec3) {
	l.segments = append(l.segments, Segment{from, to})
}

func (l *LineSet) Segments() []Segment {
	return l.segments
}

func (l *LineSet) Dispose() {
	l.disposed = true
	l.segments = nil
}

type LightKind uint8

const (
	LightAmbient LightKind = iota
	LightDirectional
)

type Light struct {
	base
	Type      LightKind
	Color     math.Vec4
	Intensity float32
	// Position of a directional light; it shines towards the origin.
	Position math.Vec3
}

func NewLight(kind LightKind, color math.Vec4, intensity float32, position math.Vec3) *Light {
	return &Light{
		base:      newBase(),
		Type:      kind,
		Color:     color,
		Intensity: intensity,
		Position:  position,
	}
}

func (l *Light) Kind() ObjectKind {
	return KindLight
}

func (l *Light) Dispose() {
	l.disposed = true
}
