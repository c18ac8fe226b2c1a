package expression

import (
	"golang.org/x/exp/rand"

	"github.com/spaghettifunk/anima-rig/engine/math"
)

type BlinkOptions struct {
	// Interval is the mean time between blinks in seconds.
	Interval float32
	// Jitter is the maximum random deviation from Interval.
	Jitter float32
	// Duration of one close-and-open cycle in seconds.
	Duration float32
}

func DefaultBlinkOptions() BlinkOptions {
	return BlinkOptions{Interval: 4, Jitter: 1.5, Duration: 0.15}
}

// Blinker schedules idle blinks. Each blink ramps the "blink" expression up
// to 1 and back down over Duration, then waits Interval +/- Jitter.
type Blinker struct {
	opts     BlinkOptions
	rng      *rand.Rand
	wait     float32
	elapsed  float32
	blinking bool
	Enabled  bool
}

// NewBlinker creates a blinker whose timing is drawn from a generator seeded
// with seed, so a given seed always blinks the same way.
func NewBlinker(opts BlinkOptions, seed uint64) *Blinker {
	if opts.Duration <= 0 {
		opts.Duration = DefaultBlinkOptions().Duration
	}
	if opts.Jitter > opts.Interval {
		opts.Jitter = opts.Interval
	}
	b := &Blinker{opts: opts, rng: rand.New(rand.NewSource(seed)), Enabled: true}
	b.schedule()
	return b
}

func (b *Blinker) schedule() {
	jitter := (b.rng.Float32()*2 - 1) * b.opts.Jitter
	b.wait = math.Clamp(b.opts.Interval+jitter, 0, b.opts.Interval+b.opts.Jitter)
	b.elapsed = 0
	b.blinking = false
}

// Blinking reports whether a blink is in progress.
func (b *Blinker) Blinking() bool {
	return b.blinking
}

// Update advances the schedule by dt seconds, writes the blink weight to
// driver and returns it.
func (b *Blinker) Update(dt float32, driver *Driver) float32 {
	if !b.Enabled {
		return 0
	}
	b.elapsed += dt
	var weight float32
	if !b.blinking {
		if b.elapsed < b.wait {
			return 0
		}
		b.blinking = true
		b.elapsed -= b.wait
	}
	if b.elapsed >= b.opts.Duration {
		b.schedule()
	} else {
		// Triangle ramp: closed at the middle of the blink.
		half := b.opts.Duration / 2
		weight = 1 - math.Abs(b.elapsed-half)/half
	}
	if driver != nil {
		driver.Set(Blink, weight)
	}
	return weight
}
