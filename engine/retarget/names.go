package retarget

import (
	"strings"

	"github.com/spaghettifunk/anima-rig/engine/skeleton"
)

// mixamoBones maps Mixamo joint names, without their rig prefix, to the
// humanoid vocabulary. Fingers and the end sites Mixamo exports are not part
// of the vocabulary and are dropped.
var mixamoBones = map[string]skeleton.BoneName{
	"Hips":   skeleton.Hips,
	"Spine":  skeleton.Spine,
	"Spine1": skeleton.Chest,
	"Spine2": skeleton.UpperChest,
	"Neck":   skeleton.Neck,
	"Head":   skeleton.Head,

	"LeftShoulder": skeleton.LeftShoulder,
	"LeftArm":      skeleton.LeftUpperArm,
	"LeftForeArm":  skeleton.LeftLowerArm,
	"LeftHand":     skeleton.LeftHand,

	"RightShoulder": skeleton.RightShoulder,
	"RightArm":      skeleton.RightUpperArm,
	"RightForeArm":  skeleton.RightLowerArm,
	"RightHand":     skeleton.RightHand,

	"LeftUpLeg":   skeleton.LeftUpperLeg,
	"LeftLeg":     skeleton.LeftLowerLeg,
	"LeftFoot":    skeleton.LeftFoot,
	"LeftToeBase": skeleton.LeftToes,

	"RightUpLeg":   skeleton.RightUpperLeg,
	"RightLeg":     skeleton.RightLowerLeg,
	"RightFoot":    skeleton.RightFoot,
	"RightToeBase": skeleton.RightToes,
}

// MixamoHips is the node Mixamo rigs keep their root motion on.
const MixamoHips = "mixamorigHips"

// MixamoBone resolves a Mixamo node name such as "mixamorigLeftArm" or
// "mixamorig:LeftArm" to its humanoid bone.
func MixamoBone(node string) (skeleton.BoneName, bool) {
	name, ok := strings.CutPrefix(node, "mixamorig")
	if !ok {
		return "", false
	}
	name = strings.TrimPrefix(name, ":")
	bone, ok := mixamoBones[name]
	return bone, ok
}
