package retarget

import (
	"sort"

	"github.com/spaghettifunk/anima-rig/engine/math"
	"github.com/spaghettifunk/anima-rig/engine/skeleton"
)

// Player plays a retargeted clip on a skeleton. It is advanced by the frame
// loop and is not safe for concurrent use.
type Player struct {
	clip    *Clip
	skel    *skeleton.Skeleton
	time    float32
	playing bool

	Loop  bool
	Speed float32
}

func NewPlayer(clip *Clip, skel *skeleton.Skeleton) *Player {
	return &Player{clip: clip, skel: skel, Loop: true, Speed: 1}
}

func (p *Player) Clip() *Clip {
	return p.clip
}

func (p *Player) Play() {
	p.playing = p.clip != nil
}

// Stop halts playback and rewinds. The skeleton keeps its last sampled pose.
func (p *Player) Stop() {
	p.playing = false
	p.time = 0
}

func (p *Player) Playing() bool {
	return p.playing
}

func (p *Player) Time() float32 {
	return p.time
}

// Update advances playback by dt seconds and applies the resulting pose.
// Without looping, playback stops on the last frame.
func (p *Player) Update(dt float32) {
	if !p.playing {
		return
	}
	p.time += dt * p.Speed
	if d := p.clip.Duration; d > 0 && p.time >= d {
		if p.Loop {
			for p.time >= d {
				p.time -= d
			}
		} else {
			p.time = d
			p.playing = false
		}
	}
	p.Apply(p.time)
}

// Apply samples every track at t and writes the result to the skeleton.
// Tracks for bones the skeleton lacks are skipped.
func (p *Player) Apply(t float32) {
	if p.clip == nil {
		return
	}
	for _, track := range p.clip.Tracks {
		bone, ok := p.skel.Bone(skeleton.BoneName(track.Node))
		if !ok || track.Len() == 0 {
			continue
		}
		switch track.Property {
		case PropertyQuaternion:
			bone.SetRotation(SampleQuaternion(track, t))
		case PropertyPosition:
			bone.SetPosition(SamplePosition(track, t))
		}
	}
}

// keyframes returns the keys surrounding t and the blend factor between them.
func keyframes(times []float32, t float32) (int, int, float32) {
	n := len(times)
	if t <= times[0] {
		return 0, 0, 0
	}
	if t >= times[n-1] {
		return n - 1, n - 1, 0
	}
	hi := sort.Search(n, func(i int) bool { return times[i] > t })
	lo := hi - 1
	span := times[hi] - times[lo]
	if span <= 0 {
		return hi, hi, 0
	}
	return lo, hi, (t - times[lo]) / span
}

// SampleQuaternion interpolates a quaternion track at t with slerp.
func SampleQuaternion(track Track, t float32) math.Quaternion {
	lo, hi, alpha := keyframes(track.Times, t)
	a := quatAt(track.Values, lo)
	if lo == hi {
		return a.Normalize()
	}
	return a.Slerp(quatAt(track.Values, hi), alpha)
}

// SamplePosition interpolates a position track at t linearly.
func SamplePosition(track Track, t float32) math.Vec3 {
	lo, hi, alpha := keyframes(track.Times, t)
	a := vec3At(track.Values, lo)
	if lo == hi {
		return a
	}
	return a.Lerp(vec3At(track.Values, hi), alpha)
}

func quatAt(values []float32, key int) math.Quaternion {
	i := key * 4
	return math.Quaternion{X: values[i], Y: values[i+1], Z: values[i+2], W: values[i+3]}
}

func vec3At(values []float32, key int) math.Vec3 {
	i := key * 3
	return math.NewVec3(values[i], values[i+1], values[i+2])
}
