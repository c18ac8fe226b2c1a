package assets

import (
	"github.com/spaghettifunk/anima-rig/engine/math"
	"github.com/spaghettifunk/anima-rig/engine/skeleton"
)

type VRMVersion uint8

const (
	VRMNone VRMVersion = iota
	VRM0
	VRM1
)

func (v VRMVersion) String() string {
	switch v {
	case VRM0:
		return "0.x"
	case VRM1:
		return "1.0"
	default:
		return "none"
	}
}

/**
 * @brief A loaded avatar: its node hierarchy, the humanoid bone table and
 * what the renderer needs to frame and animate it.
 */
type Avatar struct {
	Path    string
	Title   string
	Version VRMVersion
	/** @brief Every node of the file, indexed like the file's node array. */
	Nodes []*skeleton.Bone
	/** @brief Nodes without a parent. */
	Roots []*skeleton.Bone
	/** @brief Humanoid bone name to node. Empty for plain glTF files. */
	Humanoid map[skeleton.BoneName]skeleton.Node
	/** @brief Expression names, VRM 0.x names already normalised. */
	Expressions []string
	/** @brief World-space bounds of every mesh in rest pose. */
	Bounds math.Extents3D
}

// Skeleton builds the humanoid skeleton of the avatar. It captures the
// current node transforms as rest pose.
func (a *Avatar) Skeleton() *skeleton.Skeleton {
	return skeleton.New(a.Humanoid)
}

// IsVRM reports whether the file carried a humanoid extension.
func (a *Avatar) IsVRM() bool {
	return a.Version != VRMNone
}

// Node returns the first node called name.
func (a *Avatar) Node(name string) (*skeleton.Bone, bool) {
	for _, n := range a.Nodes {
		if n.Name() == name {
			return n, true
		}
	}
	return nil, false
}
