package viewer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spaghettifunk/anima-rig/engine/assets"
	"github.com/spaghettifunk/anima-rig/engine/config"
	"github.com/spaghettifunk/anima-rig/engine/core"
	"github.com/spaghettifunk/anima-rig/engine/expression"
	"github.com/spaghettifunk/anima-rig/engine/lipsync"
	"github.com/spaghettifunk/anima-rig/engine/posing"
	"github.com/spaghettifunk/anima-rig/engine/systems"
)

type loadRequest struct {
	generation uint64
	path       string
	cancel     context.CancelFunc
	done       chan error
	finished   bool
}

// finish reports the outcome once. Must be called with the viewer mutex held.
func (r *loadRequest) finish(err error) {
	if r.finished {
		return
	}
	r.finished = true
	r.cancel()
	r.done <- err
	close(r.done)
}

type loadResult struct {
	request *loadRequest
	avatar  *assets.Avatar
	err     error
}

/**
 * @brief Loads the avatar at path on a worker. The avatar is applied by the
 * first Frame after loading finished.
 *
 * A newer request supersedes older ones: their contexts are canceled and
 * their channels receive core.ErrLoadSuperseded. The returned channel
 * receives nil once the avatar has been applied, or the load error.
 */
func (v *Viewer) LoadAsync(ctx context.Context, path string) <-chan error {
	ctx, cancel := context.WithCancel(ctx)
	v.mutex.Lock()
	v.generation++
	req := &loadRequest{
		generation: v.generation,
		path:       path,
		cancel:     cancel,
		done:       make(chan error, 1),
	}
	if v.closed {
		req.finish(core.ErrManagerClosed)
		v.mutex.Unlock()
		return req.done
	}
	if v.current != nil {
		v.current.finish(core.ErrLoadSuperseded)
	}
	v.current = req
	v.pending = nil
	v.mutex.Unlock()

	err := v.jobs.Submit(systems.JobTask{
		Name: "load " + path,
		OnStart: func(jobCtx context.Context) (interface{}, error) {
			stop := context.AfterFunc(jobCtx, cancel)
			defer stop()
			return v.loader.Load(ctx, path)
		},
		OnComplete: func(result interface{}) {
			avatar, _ := result.(*assets.Avatar)
			if avatar == nil {
				v.deliver(req, nil, fmt.Errorf("loader returned no avatar for %s: %w", path, core.ErrInvalidAsset))
				return
			}
			v.deliver(req, avatar, nil)
		},
		OnFailure: func(err error) {
			v.deliver(req, nil, err)
		},
	})
	if err != nil {
		v.deliver(req, nil, err)
	}
	return req.done
}

// Load loads path and applies it right away, on the calling goroutine.
func (v *Viewer) Load(ctx context.Context, path string) error {
	done := v.LoadAsync(ctx, path)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			v.applyPending()
		}
	}
}

// Loading reports whether a load has been requested but not applied yet.
func (v *Viewer) Loading() bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.current != nil
}

func (v *Viewer) deliver(req *loadRequest, avatar *assets.Avatar, err error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if req.generation != v.generation {
		core.LogDebug("discarding superseded load of %s", req.path)
		req.finish(core.ErrLoadSuperseded)
		return
	}
	v.pending = &loadResult{request: req, avatar: avatar, err: err}
}

func (v *Viewer) applyPending() {
	v.mutex.Lock()
	res := v.pending
	v.pending = nil
	if res != nil {
		v.current = nil
	}
	v.mutex.Unlock()
	if res == nil {
		return
	}

	if res.err == nil {
		v.apply(res.avatar)
	} else {
		core.LogError("failed to load %s: %s", res.request.path, res.err)
	}
	v.mutex.Lock()
	res.request.finish(res.err)
	v.mutex.Unlock()
}

// pollWatcher reloads the current avatar when its file changed on disk.
func (v *Viewer) pollWatcher() {
	if v.watcher == nil {
		return
	}
	for {
		select {
		case path, ok := <-v.watcher.Changes():
			if !ok {
				return
			}
			v.bus.Fire(core.EventContext{Type: core.EVENT_CODE_ASSET_CHANGED, Data: path})
			if v.avatar != nil && v.avatar.Path != "" && filepath.Clean(v.avatar.Path) == path {
				core.LogInfo("%s changed on disk, reloading", path)
				v.LoadAsync(context.Background(), path)
			}
		default:
			return
		}
	}
}

func posingOptions(cfg *config.Config) posing.Options {
	p := cfg.Posing
	return posing.Options{
		Iterations:     p.Iterations,
		Threshold:      p.Threshold,
		MarkerRadius:   p.MarkerRadius,
		EffectorRadius: p.EffectorRadius,
		DefaultColor:   config.Vec4(p.DefaultColor),
		SelectedColor:  config.Vec4(p.SelectedColor),
		EffectorColor:  config.Vec4(p.EffectorColor),
		LineColor:      config.Vec4(p.LineColor),
		RotateSpeed:    p.RotateSpeed,
		DragDeadZone:   p.DragDeadZone,
	}
}

func blinkOptions(cfg *config.Config) expression.BlinkOptions {
	return expression.BlinkOptions{
		Interval: cfg.Blink.Interval,
		Jitter:   cfg.Blink.Jitter,
		Duration: cfg.Blink.Duration,
	}
}

func analyzerOptions(cfg *config.Config) lipsync.AnalyzerOptions {
	l := cfg.LipSync
	return lipsync.AnalyzerOptions{
		FFTSize:      l.FFTSize,
		MinDecibels:  l.MinDecibels,
		MaxDecibels:  l.MaxDecibels,
		TimeConstant: l.TimeConstant,
		Gain:         l.Gain,
		Smoothing:    l.Smoothing,
	}
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
