package viewer

import (
	"sync"

	"github.com/spaghettifunk/anima-rig/engine/assets"
	"github.com/spaghettifunk/anima-rig/engine/config"
	"github.com/spaghettifunk/anima-rig/engine/core"
	"github.com/spaghettifunk/anima-rig/engine/expression"
	"github.com/spaghettifunk/anima-rig/engine/lipsync"
	"github.com/spaghettifunk/anima-rig/engine/math"
	"github.com/spaghettifunk/anima-rig/engine/posing"
	"github.com/spaghettifunk/anima-rig/engine/retarget"
	"github.com/spaghettifunk/anima-rig/engine/scene"
	"github.com/spaghettifunk/anima-rig/engine/skeleton"
	"github.com/spaghettifunk/anima-rig/engine/systems"
)

/**
 * @brief Owns everything that lives around one loaded avatar: the helper
 * scene, camera and lights, the humanoid skeleton, expressions and the
 * posing controller. All methods except LoadAsync must be called from the
 * frame loop.
 */
type Viewer struct {
	cfg    *config.Config
	loader assets.Loader
	jobs   *systems.JobSystem

	bus     *core.EventBus
	scene   *scene.Scene
	camera  *scene.Camera
	lights  []*scene.Light
	metrics *core.FrameMetrics
	watcher *assets.Watcher

	avatar     *assets.Avatar
	skel       *skeleton.Skeleton
	driver     *expression.Driver
	blinker    *expression.Blinker
	speech     *lipsync.Sync
	player     *retarget.Player
	controller *posing.Controller

	// Sink receives changed blendshape weights each frame. May be nil.
	Sink expression.BlendshapeSink

	// guards the load bookkeeping shared with the job workers
	mutex      sync.Mutex
	generation uint64
	current    *loadRequest
	pending    *loadResult

	closed bool
}

// New creates a viewer with an empty scene. A nil cfg uses the defaults and
// a nil loader reads avatars from disk.
func New(cfg *config.Config, loader assets.Loader) (*Viewer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if loader == nil {
		loader = assets.FileLoader{}
	}
	jobs, err := systems.NewJobSystem(cfg.Assets.Workers, 4)
	if err != nil {
		return nil, err
	}

	v := &Viewer{
		cfg:     cfg,
		loader:  loader,
		jobs:    jobs,
		bus:     core.NewEventBus(),
		scene:   scene.New(),
		camera:  scene.NewCamera(cfg.Viewer.FOV, cfg.Viewer.Width, cfg.Viewer.Height, cfg.Viewer.Near, cfg.Viewer.Far),
		metrics: core.NewFrameMetrics(),
		skel:    skeleton.New(nil),
		driver:  expression.NewDriver(nil),
		blinker: expression.NewBlinker(blinkOptions(cfg), 1),
	}
	v.blinker.Enabled = cfg.Blink.Enabled
	v.controller = posing.NewController(v.skel, v.scene, v.camera, v.bus, posingOptions(cfg))
	v.bus.Register(core.EVENT_CODE_RESIZED, v, v.onResized)

	if cfg.Assets.Watch {
		debounce := assets.DefaultDebounce
		if cfg.Assets.Debounce > 0 {
			debounce = msToDuration(cfg.Assets.Debounce)
		}
		if v.watcher, err = assets.NewWatcher(debounce); err != nil {
			jobs.Shutdown()
			return nil, err
		}
	}
	return v, nil
}

func (v *Viewer) Bus() *core.EventBus {
	return v.bus
}

func (v *Viewer) Scene() *scene.Scene {
	return v.scene
}

func (v *Viewer) Camera() *scene.Camera {
	return v.camera
}

func (v *Viewer) Lights() []*scene.Light {
	return v.lights
}

// Avatar returns the avatar applied last, nil before the first load.
func (v *Viewer) Avatar() *assets.Avatar {
	return v.avatar
}

func (v *Viewer) Skeleton() *skeleton.Skeleton {
	return v.skel
}

func (v *Viewer) Driver() *expression.Driver {
	return v.driver
}

func (v *Viewer) Blinker() *expression.Blinker {
	return v.blinker
}

func (v *Viewer) Controller() *posing.Controller {
	return v.controller
}

func (v *Viewer) Player() *retarget.Player {
	return v.player
}

func (v *Viewer) Metrics() *core.FrameMetrics {
	return v.metrics
}

/**
 * @brief Advances the viewer by one frame.
 * @param dt Seconds since the previous frame.
 */
func (v *Viewer) Frame(dt float32) {
	if v.closed {
		return
	}
	v.applyPending()
	v.pollWatcher()

	if v.player != nil {
		v.player.Update(dt)
	}
	v.blinker.Update(dt, v.driver)
	if v.speech != nil {
		v.speech.Update(dt)
		if v.speech.Done() {
			v.speech = nil
		}
	}
	if v.Sink != nil {
		v.driver.Apply(v.Sink)
	}
	v.controller.Update()
	v.metrics.Update(float64(dt))
}

// SetMode switches the posing mode. Posing needs a humanoid, so any mode but
// off fails with core.ErrNoHumanoid until an avatar with one is applied.
func (v *Viewer) SetMode(mode posing.Mode) error {
	if mode != posing.ModeOff && v.skel.Len() == 0 {
		return core.ErrNoHumanoid
	}
	v.controller.SetMode(mode)
	return nil
}

/**
 * @brief Retargets a Mixamo clip onto the current avatar and starts playing it.
 * @param clip The clip as parsed from the source file.
 * @param rest Rest pose of the rig the clip was authored for.
 */
func (v *Viewer) PlayClip(clip *retarget.Clip, rest retarget.RestPose) error {
	if v.skel.Len() == 0 {
		return core.ErrNoHumanoid
	}
	if v.player != nil {
		v.player.Stop()
	}
	opts := retarget.Options{HipsHeight: v.skel.HipsHeight()}
	if v.avatar != nil {
		opts.VRM0 = v.avatar.Version == assets.VRM0
	}
	v.player = retarget.NewPlayer(retarget.Retarget(clip, rest, opts), v.skel)
	v.player.Play()
	return nil
}

// StopClip halts the animation and puts the skeleton back into rest pose.
func (v *Viewer) StopClip() {
	if v.player == nil {
		return
	}
	v.player.Stop()
	v.player = nil
	v.skel.ResetPose()
}

// StartLipSync drives the mouth from src until it ends. A running lip-sync
// is replaced and its mouth closed first.
func (v *Viewer) StartLipSync(src lipsync.Source) {
	v.StopLipSync()
	v.speech = lipsync.NewSync(src, lipsync.NewAnalyzer(analyzerOptions(v.cfg)), v.driver)
	v.speech.Expression = v.LipSyncExpression()
}

// LipSyncExpression is the expression lip-sync writes the mouth openness to.
func (v *Viewer) LipSyncExpression() string {
	if v.cfg.LipSync.Expression == "" {
		return expression.Aa
	}
	return expression.Normalize(v.cfg.LipSync.Expression)
}

func (v *Viewer) StopLipSync() {
	if v.speech != nil {
		v.speech.Stop()
		v.speech = nil
	}
}

// LipSyncActive reports whether audio is still driving the mouth.
func (v *Viewer) LipSyncActive() bool {
	return v.speech != nil
}

func (v *Viewer) CurrentPose() skeleton.Pose {
	return v.skel.CurrentPose()
}

func (v *Viewer) ApplyPose(p skeleton.Pose) {
	v.skel.ApplyPose(p)
	v.controller.Update()
}

// Close releases the avatar, the workers and the watcher. It is safe to
// call more than once.
func (v *Viewer) Close() error {
	v.mutex.Lock()
	if v.closed {
		v.mutex.Unlock()
		return nil
	}
	v.closed = true
	v.generation++
	if v.current != nil {
		v.current.finish(core.ErrManagerClosed)
		v.current = nil
	}
	v.pending = nil
	v.mutex.Unlock()

	v.controller.Dispose()
	v.bus.Unregister(core.EVENT_CODE_RESIZED, v)
	err := v.jobs.Shutdown()
	if v.watcher != nil {
		if werr := v.watcher.Close(); err == nil {
			err = werr
		}
	}
	v.teardownAvatar()
	v.scene.Dispose()
	return err
}

// apply makes avatar the current one: the previous avatar is torn down, the
// skeleton rebuilt, the camera framed and the lights recreated.
func (v *Viewer) apply(avatar *assets.Avatar) {
	v.teardownAvatar()

	v.avatar = avatar
	v.skel = avatar.Skeleton()
	v.controller.SetSkeleton(v.skel)
	v.driver = expression.NewDriver(avatar.Expressions)
	v.camera.Frame(avatar.Bounds)
	v.setupLights()

	if v.watcher != nil && avatar.Path != "" {
		if err := v.watcher.Add(avatar.Path); err != nil {
			core.LogWarn("cannot watch %s: %s", avatar.Path, err)
		}
	}
	if v.skel.Len() == 0 {
		core.LogWarn("%s has no humanoid bones, posing is unavailable", avatar.Title)
	}
	core.LogInfo("avatar %q applied: %d humanoid bones, %d expressions", avatar.Title, v.skel.Len(), len(avatar.Expressions))
}

func (v *Viewer) teardownAvatar() {
	v.controller.Cleanup()
	if v.player != nil {
		v.player.Stop()
		v.player = nil
	}
	v.StopLipSync()
	v.driver.Reset()
	if v.Sink != nil {
		v.driver.Apply(v.Sink)
	}
	for _, l := range v.lights {
		v.scene.Remove(l)
		l.Dispose()
	}
	v.lights = nil
	if v.watcher != nil && v.avatar != nil && v.avatar.Path != "" {
		v.watcher.Remove(v.avatar.Path)
	}
	v.avatar = nil
}

func (v *Viewer) setupLights() {
	lc := v.cfg.Lights
	ambient := scene.NewLight(scene.LightAmbient, color(lc.AmbientColor), lc.AmbientIntensity, math.NewVec3Zero())
	directional := scene.NewLight(scene.LightDirectional, color(lc.DirectionalColor), lc.DirectionalIntensity, config.Vec3(lc.DirectionalPosition))
	v.lights = []*scene.Light{ambient, directional}
	for _, l := range v.lights {
		v.scene.Add(l)
	}
}

func (v *Viewer) onResized(ctx core.EventContext) bool {
	e, ok := ctx.Data.(core.ResizeEvent)
	if !ok || e.Width == 0 || e.Height == 0 {
		return false
	}
	v.camera.Resize(e.Width, e.Height)
	return false
}

func color(c [3]float32) math.Vec4 {
	return math.NewVec4(c[0], c[1], c[2], 1)
}
