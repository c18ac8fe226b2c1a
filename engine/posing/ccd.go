package posing

import (
	"github.com/spaghettifunk/anima-rig/engine/math"
	"github.com/spaghettifunk/anima-rig/engine/skeleton"
)

const (
	DefaultIterations         = 10
	DefaultThreshold  float32 = 0.01
)

// Solver is a cyclic coordinate descent IK solver over the fixed humanoid
// chains. No joint limits or pole vectors are applied, so unreachable
// targets leave the chain stretched towards them.
type Solver struct {
	Iterations int
	Threshold  float32
	// OnIteration, when set, is called after every completed iteration with
	// the remaining end-effector distance.
	OnIteration func(iteration int, distance float32)
}

func NewSolver() Solver {
	return Solver{Iterations: DefaultIterations, Threshold: DefaultThreshold}
}

// Solve rotates the chain ending at effector so the effector approaches
// target. Bones the skeleton lacks are skipped; an unknown effector or a
// missing end bone leaves the pose untouched.
func (s Solver) Solve(skel *skeleton.Skeleton, effector skeleton.BoneName, target math.Vec3) {
	chain, ok := skeleton.Chain(effector)
	if !ok {
		return
	}
	end, ok := skel.Bone(effector)
	if !ok {
		return
	}

	for iteration := 0; iteration < s.Iterations; iteration++ {
		if end.WorldPosition().Distance(target) < s.Threshold {
			break
		}
		for i := len(chain) - 2; i >= 0; i-- {
			bone, ok := skel.Bone(chain[i])
			if !ok {
				continue
			}
			origin := bone.WorldPosition()
			toEffector := end.WorldPosition().Sub(origin)
			toTarget := target.Sub(origin)
			if toEffector.LengthSquared() < math.K_FLOAT_EPSILON || toTarget.LengthSquared() < math.K_FLOAT_EPSILON {
				continue
			}
			q := math.NewQuatFromUnitVectors(toEffector.Normalize(), toTarget.Normalize())
			rotateWorld(bone, q)
		}
		if s.OnIteration != nil {
			s.OnIteration(iteration, end.WorldPosition().Distance(target))
		}
	}
}

// SolveCCD runs the default solver.
func SolveCCD(skel *skeleton.Skeleton, effector skeleton.BoneName, target math.Vec3) {
	NewSolver().Solve(skel, effector, target)
}

// rotateWorld applies a world-space rotation to node about its own origin by
// rewriting its local rotation: local' = parent^-1 * q * parent * local.
func rotateWorld(node skeleton.Node, q math.Quaternion) {
	local := node.Rotation()
	parent := node.WorldRotation().Mul(local.Inverse())
	node.SetRotation(parent.Inverse().Mul(q).Mul(parent).Mul(local).Normalize())
}
