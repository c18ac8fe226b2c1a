package retarget

import (
	"github.com/spaghettifunk/anima-rig/engine/core"
	"github.com/spaghettifunk/anima-rig/engine/math"
	"github.com/spaghettifunk/anima-rig/engine/skeleton"
)

// RestPose describes the rig a motion clip was authored on.
type RestPose interface {
	// WorldRotation is the rest world rotation of the named source node.
	WorldRotation(node string) (math.Quaternion, bool)
	// ParentWorldRotation is the rest world rotation of the node's parent,
	// identity for roots.
	ParentWorldRotation(node string) (math.Quaternion, bool)
	// HipsHeight is the rest height of the source hips.
	HipsHeight() float32
}

type restEntry struct {
	world  math.Quaternion
	parent math.Quaternion
}

// NodeRest is a RestPose captured from a source node hierarchy.
type NodeRest struct {
	entries map[string]restEntry
	hips    float32
}

// CaptureRest walks root and its descendants and records their current
// rotations as rest pose. The hips height is the local Y of the node named
// hips, Mixamo's "mixamorigHips" when hips is empty.
func CaptureRest(root skeleton.Node, hips string) *NodeRest {
	if hips == "" {
		hips = MixamoHips
	}
	r := &NodeRest{entries: make(map[string]restEntry)}
	var walk func(n skeleton.Node)
	walk = func(n skeleton.Node) {
		parent := math.NewQuatIdentity()
		if p := n.Parent(); p != nil {
			parent = p.WorldRotation()
		}
		r.entries[n.Name()] = restEntry{world: n.WorldRotation(), parent: parent}
		if n.Name() == hips {
			r.hips = n.Position().Y
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return r
}

func (r *NodeRest) WorldRotation(node string) (math.Quaternion, bool) {
	e, ok := r.entries[node]
	return e.world, ok
}

func (r *NodeRest) ParentWorldRotation(node string) (math.Quaternion, bool) {
	e, ok := r.entries[node]
	return e.parent, ok
}

func (r *NodeRest) HipsHeight() float32 {
	return r.hips
}

type Options struct {
	// VRM0 converts into the VRM 0.x coordinate convention, which faces the
	// other way along Z.
	VRM0 bool
	// HipsHeight is the rest height of the target avatar's hips above its root.
	HipsHeight float32
}

// Retarget maps a Mixamo clip onto humanoid bone names. Rotations are
// re-expressed relative to the source rest pose so they can be applied to a
// normalized humanoid whose rest rotations are identity. Position tracks are
// scaled by the ratio of target to source hips height. Tracks for nodes
// outside the humanoid vocabulary are dropped.
func Retarget(clip *Clip, rest RestPose, opts Options) *Clip {
	out := &Clip{Name: clip.Name, Duration: clip.Duration}
	if rest == nil {
		return out
	}

	scale := float32(1)
	if h := rest.HipsHeight(); h != 0 && opts.HipsHeight != 0 {
		scale = math.Abs(opts.HipsHeight / h)
	}

	for _, t := range clip.Tracks {
		bone, ok := MixamoBone(t.Node)
		if !ok {
			continue
		}
		values := make([]float32, len(t.Values))
		switch t.Property {
		case PropertyQuaternion:
			world, ok := rest.WorldRotation(t.Node)
			if !ok {
				core.LogDebug("retarget: no rest pose for %s", t.Node)
				continue
			}
			parent, _ := rest.ParentWorldRotation(t.Node)
			restInverse := world.Inverse()
			for i := 0; i+4 <= len(t.Values); i += 4 {
				q := math.Quaternion{X: t.Values[i], Y: t.Values[i+1], Z: t.Values[i+2], W: t.Values[i+3]}
				q = parent.Mul(q).Mul(restInverse)
				copy(values[i:], []float32{q.X, q.Y, q.Z, q.W})
			}
			if opts.VRM0 {
				for i := range values {
					if i%2 == 0 {
						values[i] = -values[i]
					}
				}
			}
		case PropertyPosition:
			for i, v := range t.Values {
				if opts.VRM0 && i%3 != 1 {
					v = -v
				}
				values[i] = v * scale
			}
		default:
			continue
		}
		out.Tracks = append(out.Tracks, Track{
			Node:     bone.String(),
			Property: t.Property,
			Times:    append([]float32(nil), t.Times...),
			Values:   values,
		})
	}
	return out
}
