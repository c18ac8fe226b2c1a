package skeleton

import (
	"github.com/spaghettifunk/anima-rig/engine/math"
)

// Joint describes one bone of a rig by its rest world position.
type Joint struct {
	Name     BoneName
	Parent   BoneName // empty for roots
	Position math.Vec3
}

// Build creates bones with identity local rotations at the given world
// positions and returns the skeleton together with its root bones. Joints
// must list parents before children; a joint whose parent is unknown
// becomes a root.
func Build(joints []Joint) (*Skeleton, []*Bone) {
	bones := make(map[BoneName]*Bone, len(joints))
	world := make(map[BoneName]math.Vec3, len(joints))
	humanoid := make(map[BoneName]Node, len(joints))
	var roots []*Bone

	for _, j := range joints {
		b := NewBone(j.Name.String(), math.TransformFromPosition(j.Position))
		if parent, ok := bones[j.Parent]; ok && j.Parent != "" {
			b.transform.Position = j.Position.Sub(world[j.Parent])
			parent.AddChild(b)
		} else {
			roots = append(roots, b)
		}
		bones[j.Name] = b
		world[j.Name] = j.Position
		humanoid[j.Name] = b
	}
	return New(humanoid), roots
}

// DefaultJoints is a 1.6 unit tall humanoid in T-pose facing +Z, with its left side on +X.
func DefaultJoints() []Joint {
	v := math.NewVec3
	return []Joint{
		{Hips, "", v(0, 0.95, 0)},
		{Spine, Hips, v(0, 1.05, 0)},
		{Chest, Spine, v(0, 1.2, 0)},
		{UpperChest, Chest, v(0, 1.32, 0)},
		{Neck, UpperChest, v(0, 1.45, 0)},
		{Head, Neck, v(0, 1.55, 0)},

		{LeftShoulder, UpperChest, v(0.05, 1.4, 0)},
		{LeftUpperArm, LeftShoulder, v(0.15, 1.4, 0)},
		{LeftLowerArm, LeftUpperArm, v(0.42, 1.4, 0)},
		{LeftHand, LeftLowerArm, v(0.67, 1.4, 0)},

		{RightShoulder, UpperChest, v(-0.05, 1.4, 0)},
		{RightUpperArm, RightShoulder, v(-0.15, 1.4, 0)},
		{RightLowerArm, RightUpperArm, v(-0.42, 1.4, 0)},
		{RightHand, RightLowerArm, v(-0.67, 1.4, 0)},

		{LeftUpperLeg, Hips, v(0.09, 0.9, 0)},
		{LeftLowerLeg, LeftUpperLeg, v(0.09, 0.5, 0)},
		{LeftFoot, LeftLowerLeg, v(0.09, 0.08, 0)},
		{LeftToes, LeftFoot, v(0.09, 0.02, 0.12)},

		{RightUpperLeg, Hips, v(-0.09, 0.9, 0)},
		{RightLowerLeg, RightUpperLeg, v(-0.09, 0.5, 0)},
		{RightFoot, RightLowerLeg, v(-0.09, 0.08, 0)},
		{RightToes, RightFoot, v(-0.09, 0.02, 0.12)},
	}
}
