package skeleton

import (
	"github.com/spaghettifunk/anima-rig/engine/math"
)

type restTransform struct {
	position math.Vec3
	rotation math.Quaternion
}

// Connection is a parent/child pair between two present humanoid bones.
type Connection struct {
	Parent BoneName
	Child  BoneName
}

// Skeleton resolves humanoid bone names to nodes of a loaded avatar. Bones
// the avatar does not provide are simply absent; lookups report them with ok=false.
type Skeleton struct {
	bones  map[BoneName]Node
	names  map[Node]BoneName
	rest   map[BoneName]restTransform
	height float32
}

// New builds a skeleton from a humanoid table and captures the current pose
// as rest pose. Names outside the vocabulary and nil nodes are ignored.
func New(humanoid map[BoneName]Node) *Skeleton {
	s := &Skeleton{
		bones: make(map[BoneName]Node, len(humanoid)),
		names: make(map[Node]BoneName, len(humanoid)),
		rest:  make(map[BoneName]restTransform, len(humanoid)),
	}
	for name, node := range humanoid {
		if node == nil || !name.Valid() {
			continue
		}
		s.bones[name] = node
		s.names[node] = name
		s.rest[name] = restTransform{position: node.Position(), rotation: node.Rotation()}
	}
	if hips, ok := s.bones[Hips]; ok {
		s.height = hips.WorldPosition().Y
	}
	return s
}

// Bone returns the node registered for name.
func (s *Skeleton) Bone(name BoneName) (Node, bool) {
	if s == nil {
		return nil, false
	}
	n, ok := s.bones[name]
	return n, ok
}

// Has reports whether the avatar provides name.
func (s *Skeleton) Has(name BoneName) bool {
	_, ok := s.Bone(name)
	return ok
}

// Names returns the present bones in hierarchy order.
func (s *Skeleton) Names() []BoneName {
	if s == nil {
		return nil
	}
	out := make([]BoneName, 0, len(s.bones))
	for _, name := range HumanoidBones {
		if _, ok := s.bones[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (s *Skeleton) Len() int {
	if s == nil {
		return 0
	}
	return len(s.bones)
}

// HipsHeight is the rest-pose world height of the hips, or 0 without hips.
func (s *Skeleton) HipsHeight() float32 {
	if s == nil {
		return 0
	}
	return s.height
}

// NameOf returns the humanoid name of node.
func (s *Skeleton) NameOf(node Node) (BoneName, bool) {
	name, ok := s.names[node]
	return name, ok
}

// Connections pairs every present bone with its nearest present humanoid
// ancestor. Intermediate non-humanoid nodes are skipped.
func (s *Skeleton) Connections() []Connection {
	var out []Connection
	for _, name := range s.Names() {
		for p := s.bones[name].Parent(); p != nil; p = p.Parent() {
			if parentName, ok := s.names[p]; ok {
				out = append(out, Connection{Parent: parentName, Child: name})
				break
			}
		}
	}
	return out
}

// WorldPosition is a presence-checked shortcut.
func (s *Skeleton) WorldPosition(name BoneName) (math.Vec3, bool) {
	n, ok := s.Bone(name)
	if !ok {
		return math.Vec3{}, false
	}
	return n.WorldPosition(), true
}

// RestRotation returns the rotation captured when the skeleton was built.
func (s *Skeleton) RestRotation(name BoneName) (math.Quaternion, bool) {
	r, ok := s.rest[name]
	return r.rotation, ok
}

// ResetPose restores every bone to its rest transform.
func (s *Skeleton) ResetPose() {
	for name, node := range s.bones {
		r := s.rest[name]
		node.SetRotation(r.rotation)
		node.SetPosition(r.position)
	}
}
