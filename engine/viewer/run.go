package viewer

import (
	"context"
	"time"

	"github.com/spaghettifunk/anima-rig/engine/core"
)

// DefaultFPS is the frame rate Run targets when given none.
const DefaultFPS = 60.0

/**
 * @brief Drives Frame in real time until ctx is done, an application quit
 * event is fired on the bus, or done reports true.
 * @param fps Target frame rate. Frames finishing early sleep the rest.
 * @param done Checked after every frame. May be nil.
 */
func (v *Viewer) Run(ctx context.Context, fps float64, done func() bool) error {
	if fps <= 0 {
		fps = DefaultFPS
	}
	targetFrameSeconds := 1.0 / fps

	quit := false
	v.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, v, func(core.EventContext) bool {
		quit = true
		return true
	})
	defer v.bus.Unregister(core.EVENT_CODE_APPLICATION_QUIT, v)

	clock := core.NewClock()
	clock.Start()
	lastTime := clock.Elapsed()

	for !quit {
		if err := ctx.Err(); err != nil {
			return err
		}
		clock.Update()
		currentTime := clock.Elapsed()
		delta := currentTime - lastTime
		lastTime = currentTime

		v.Frame(float32(delta))
		if v.closed || (done != nil && done()) {
			return nil
		}

		// Give what is left of the frame back to the OS.
		clock.Update()
		if remaining := targetFrameSeconds - (clock.Elapsed() - currentTime); remaining > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(remaining * float64(time.Second))):
			}
		}
	}
	return nil
}
