package expression

import (
	"sort"

	"github.com/spaghettifunk/anima-rig/engine/math"
)

// BlendshapeSink receives expression weights. It is implemented by whatever
// owns the avatar's morph targets.
type BlendshapeSink interface {
	SetWeight(name string, weight float32)
}

// Driver holds the desired weight of every expression and pushes changes to
// a sink once per frame.
type Driver struct {
	available map[string]struct{}
	weights   map[string]float32
	applied   map[string]float32
}

// NewDriver creates a driver for an avatar exposing the given expressions.
// With no names every expression is accepted.
func NewDriver(available []string) *Driver {
	d := &Driver{
		weights: make(map[string]float32),
		applied: make(map[string]float32),
	}
	if len(available) > 0 {
		d.available = make(map[string]struct{}, len(available))
		for _, name := range available {
			d.available[Normalize(name)] = struct{}{}
		}
	}
	return d
}

// Has reports whether the avatar provides name.
func (d *Driver) Has(name string) bool {
	if d.available == nil {
		return true
	}
	_, ok := d.available[Normalize(name)]
	return ok
}

// Set stores weight for name, clamped to [0, 1]. Expressions the avatar
// lacks are ignored and reported with false.
func (d *Driver) Set(name string, weight float32) bool {
	name = Normalize(name)
	if !d.Has(name) {
		return false
	}
	d.weights[name] = math.Clamp(weight, 0, 1)
	return true
}

func (d *Driver) Get(name string) float32 {
	return d.weights[Normalize(name)]
}

// Reset sets every known weight back to zero.
func (d *Driver) Reset() {
	for name := range d.weights {
		d.weights[name] = 0
	}
}

// Names returns the expressions with a stored weight, sorted.
func (d *Driver) Names() []string {
	names := make([]string, 0, len(d.weights))
	for name := range d.weights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply pushes every weight that changed since the previous Apply. It
// returns how many weights were written.
func (d *Driver) Apply(sink BlendshapeSink) int {
	if sink == nil {
		return 0
	}
	n := 0
	for _, name := range d.Names() {
		w := d.weights[name]
		if prev, ok := d.applied[name]; ok && prev == w {
			continue
		}
		sink.SetWeight(name, w)
		d.applied[name] = w
		n++
	}
	return n
}
