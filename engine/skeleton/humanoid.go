package skeleton

// BoneName is a humanoid bone identifier in the VRM vocabulary.
type BoneName string

const (
	Hips       BoneName = "hips"
	Spine      BoneName = "spine"
	Chest      BoneName = "chest"
	UpperChest BoneName = "upperChest"
	Neck       BoneName = "neck"
	Head       BoneName = "head"

	LeftShoulder BoneName = "leftShoulder"
	LeftUpperArm BoneName = "leftUpperArm"
	LeftLowerArm BoneName = "leftLowerArm"
	LeftHand     BoneName = "leftHand"

	RightShoulder BoneName = "rightShoulder"
	RightUpperArm BoneName = "rightUpperArm"
	RightLowerArm BoneName = "rightLowerArm"
	RightHand     BoneName = "rightHand"

	LeftUpperLeg BoneName = "leftUpperLeg"
	LeftLowerLeg BoneName = "leftLowerLeg"
	LeftFoot     BoneName = "leftFoot"
	LeftToes     BoneName = "leftToes"

	RightUpperLeg BoneName = "rightUpperLeg"
	RightLowerLeg BoneName = "rightLowerLeg"
	RightFoot     BoneName = "rightFoot"
	RightToes     BoneName = "rightToes"
)

// HumanoidBones lists every supported bone, parents before children.
var HumanoidBones = []BoneName{
	Hips, Spine, Chest, UpperChest, Neck, Head,
	LeftShoulder, LeftUpperArm, LeftLowerArm, LeftHand,
	RightShoulder, RightUpperArm, RightLowerArm, RightHand,
	LeftUpperLeg, LeftLowerLeg, LeftFoot, LeftToes,
	RightUpperLeg, RightLowerLeg, RightFoot, RightToes,
}

var humanoidSet = func() map[BoneName]struct{} {
	set := make(map[BoneName]struct{}, len(HumanoidBones))
	for _, b := range HumanoidBones {
		set[b] = struct{}{}
	}
	return set
}()

func (n BoneName) String() string {
	return string(n)
}

// Valid reports whether n belongs to the supported vocabulary.
func (n BoneName) Valid() bool {
	_, ok := humanoidSet[n]
	return ok
}

// chains maps each end-effector to its chain, root first.
var chains = map[BoneName][]BoneName{
	LeftHand:  {LeftUpperArm, LeftLowerArm, LeftHand},
	RightHand: {RightUpperArm, RightLowerArm, RightHand},
	LeftFoot:  {LeftUpperLeg, LeftLowerLeg, LeftFoot},
	RightFoot: {RightUpperLeg, RightLowerLeg, RightFoot},
}

var effectors = []BoneName{LeftHand, RightHand, LeftFoot, RightFoot}

// Chain returns a copy of the bone chain ending at effector.
func Chain(effector BoneName) ([]BoneName, bool) {
	c, ok := chains[effector]
	if !ok {
		return nil, false
	}
	return append([]BoneName(nil), c...), true
}

// Effectors returns the bones that can be dragged in IK mode.
func Effectors() []BoneName {
	return append([]BoneName(nil), effectors...)
}

// IsEffector reports whether n ends an IK chain.
func IsEffector(n BoneName) bool {
	_, ok := chains[n]
	return ok
}
