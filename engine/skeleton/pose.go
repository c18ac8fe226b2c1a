package skeleton

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spaghettifunk/anima-rig/engine/math"
)

const PoseFormatVersion = 1

// BonePose is the serialized local transform of one bone. Position is only
// recorded for the hips, which carry the root motion.
type BonePose struct {
	Rotation [4]float32  `json:"rotation"`
	Position *[3]float32 `json:"position,omitempty"`
}

type Pose struct {
	Version int                   `json:"version"`
	Bones   map[BoneName]BonePose `json:"bones"`
}

// CurrentPose captures the local rotation of every present bone.
func (s *Skeleton) CurrentPose() Pose {
	p := Pose{Version: PoseFormatVersion, Bones: make(map[BoneName]BonePose, s.Len())}
	for _, name := range s.Names() {
		node := s.bones[name]
		q := node.Rotation()
		bp := BonePose{Rotation: [4]float32{q.X, q.Y, q.Z, q.W}}
		if name == Hips {
			v := node.Position()
			bp.Position = &[3]float32{v.X, v.Y, v.Z}
		}
		p.Bones[name] = bp
	}
	return p
}

// ApplyPose writes a pose onto the skeleton. Bones missing on either side are skipped.
func (s *Skeleton) ApplyPose(p Pose) {
	for name, bp := range p.Bones {
		node, ok := s.Bone(name)
		if !ok {
			continue
		}
		r := bp.Rotation
		node.SetRotation(math.Quaternion{X: r[0], Y: r[1], Z: r[2], W: r[3]})
		if bp.Position != nil {
			v := *bp.Position
			node.SetPosition(math.NewVec3(v[0], v[1], v[2]))
		}
	}
}

func SavePose(w io.Writer, p Pose) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding pose: %w", err)
	}
	return nil
}

func LoadPose(r io.Reader) (Pose, error) {
	var p Pose
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Pose{}, fmt.Errorf("decoding pose: %w", err)
	}
	if p.Version > PoseFormatVersion {
		return Pose{}, fmt.Errorf("pose format version %d is newer than supported %d", p.Version, PoseFormatVersion)
	}
	return p, nil
}
