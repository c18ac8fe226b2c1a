package retarget

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/anima-rig/engine/core"
	"github.com/tidwall/gjson"
)

type Property string

const (
	PropertyPosition   Property = "position"
	PropertyQuaternion Property = "quaternion"
)

// Stride is the number of values one keyframe of p carries.
func (p Property) Stride() int {
	switch p {
	case PropertyPosition:
		return 3
	case PropertyQuaternion:
		return 4
	default:
		return 0
	}
}

// Track animates one property of one node. Values holds Stride() floats per
// entry of Times.
type Track struct {
	Node     string
	Property Property
	Times    []float32
	Values   []float32
}

// Len is the number of keyframes.
func (t Track) Len() int {
	return len(t.Times)
}

type Clip struct {
	Name     string
	Duration float32
	Tracks   []Track
}

// ParseClipJSON reads a keyframe clip in the JSON layout three.js uses for
// AnimationClip: {"name", "duration", "tracks": [{"name": "node.property",
// "times": [...], "values": [...]}]}. Tracks for properties other than
// position and quaternion are skipped, as are tracks whose value count does
// not match their times.
func ParseClipJSON(data []byte) (*Clip, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("clip: malformed json: %w", core.ErrInvalidAsset)
	}
	root := gjson.ParseBytes(data)
	tracks := root.Get("tracks")
	if !tracks.IsArray() {
		return nil, fmt.Errorf("clip: missing tracks: %w", core.ErrInvalidAsset)
	}

	clip := &Clip{
		Name:     root.Get("name").String(),
		Duration: float32(root.Get("duration").Float()),
	}
	tracks.ForEach(func(_, v gjson.Result) bool {
		node, prop, ok := splitTrackName(v.Get("name").String())
		if !ok || prop.Stride() == 0 {
			return true
		}
		t := Track{
			Node:     node,
			Property: prop,
			Times:    floats(v.Get("times")),
			Values:   floats(v.Get("values")),
		}
		if len(t.Values) != len(t.Times)*prop.Stride() {
			core.LogWarn("clip %q: track %s.%s has %d values for %d keys", clip.Name, node, prop, len(t.Values), len(t.Times))
			return true
		}
		clip.Tracks = append(clip.Tracks, t)
		return true
	})

	if clip.Duration <= 0 {
		clip.Duration = clip.lastKey()
	}
	return clip, nil
}

func (c *Clip) lastKey() float32 {
	var last float32
	for _, t := range c.Tracks {
		if n := len(t.Times); n > 0 && t.Times[n-1] > last {
			last = t.Times[n-1]
		}
	}
	return last
}

func splitTrackName(name string) (string, Property, bool) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], Property(name[i+1:]), true
}

func floats(r gjson.Result) []float32 {
	if !r.IsArray() {
		return nil
	}
	out := make([]float32, 0, int(r.Get("#").Int()))
	r.ForEach(func(_, v gjson.Result) bool {
		out = append(out, float32(v.Float()))
		return true
	})
	return out
}
