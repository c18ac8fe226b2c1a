package skeleton

import (
	"github.com/spaghettifunk/anima-rig/engine/math"
)

// Node is the narrow view of a scene-graph transform the posing and
// retargeting code depends on. Any engine can provide it through an adapter.
type Node interface {
	Name() string
	Position() math.Vec3
	SetPosition(position math.Vec3)
	Rotation() math.Quaternion
	SetRotation(rotation math.Quaternion)
	WorldPosition() math.Vec3
	WorldRotation() math.Quaternion
	Parent() Node
	Children() []Node
}

// Bone is the Node implementation backed by math.Transform.
type Bone struct {
	name      string
	transform *math.Transform
	parent    *Bone
	children  []*Bone
}

func NewBone(name string, transform *math.Transform) *Bone {
	if transform == nil {
		transform = math.TransformCreate()
	}
	return &Bone{name: name, transform: transform}
}

// AddChild reparents child under b.
func (b *Bone) AddChild(child *Bone) {
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = b
	child.transform.Parent = b.transform
	b.children = append(b.children, child)
}

func (b *Bone) removeChild(child *Bone) {
	for i, c := range b.children {
		if c == child {
			b.children = append(b.children[:i:i], b.children[i+1:]...)
			return
		}
	}
}

func (b *Bone) Name() string {
	return b.name
}

func (b *Bone) Transform() *math.Transform {
	return b.transform
}

func (b *Bone) Position() math.Vec3 {
	return b.transform.Position
}

func (b *Bone) SetPosition(position math.Vec3) {
	b.transform.SetPosition(position)
}

func (b *Bone) Rotation() math.Quaternion {
	return b.transform.Rotation
}

func (b *Bone) SetRotation(rotation math.Quaternion) {
	b.transform.SetRotation(rotation.Normalize())
}

func (b *Bone) WorldPosition() math.Vec3 {
	return b.transform.WorldPosition()
}

func (b *Bone) WorldRotation() math.Quaternion {
	return b.transform.WorldRotation()
}

func (b *Bone) Parent() Node {
	if b.parent == nil {
		return nil
	}
	return b.parent
}

func (b *Bone) Children() []Node {
	out := make([]Node, len(b.children))
	for i, c := range b.children {
		out[i] = c
	}
	return out
}

// Walk visits b and all of its descendants depth first.
func (b *Bone) Walk(fn func(*Bone)) {
	fn(b)
	for _, c := range b.children {
		c.Walk(fn)
	}
}
