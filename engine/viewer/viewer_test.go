package viewer

import (
	"context"
	"errors"
	stdmath "math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

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
)

func testAvatar(title string) *assets.Avatar {
	_, roots := skeleton.Build(skeleton.DefaultJoints())
	humanoid := make(map[skeleton.BoneName]skeleton.Node)
	for _, root := range roots {
		root.Walk(func(b *skeleton.Bone) {
			humanoid[skeleton.BoneName(b.Name())] = b
		})
	}
	return &assets.Avatar{
		Title:       title,
		Version:     assets.VRM1,
		Roots:       roots,
		Humanoid:    humanoid,
		Expressions: []string{expression.Aa, expression.Blink, expression.Happy},
		Bounds: math.Extents3D{
			Min:   math.NewVec3(-0.8, 0, -0.2),
			Max:   math.NewVec3(0.8, 1.6, 0.2),
			Valid: true,
		},
	}
}

func staticLoader() assets.Loader {
	return assets.LoaderFunc(func(ctx context.Context, path string) (*assets.Avatar, error) {
		return testAvatar(path), nil
	})
}

func newViewer(t *testing.T, loader assets.Loader) *Viewer {
	t.Helper()
	cfg := config.Default()
	cfg.Blink.Enabled = false
	v, err := New(cfg, loader)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

// frameUntil runs frames until done yields.
func frameUntil(t *testing.T, v *Viewer, done <-chan error) error {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case err := <-done:
			return err
		case <-deadline:
			t.Fatal("load never completed")
		default:
			v.Frame(1.0 / 60)
			time.Sleep(time.Millisecond)
		}
	}
}

type recordingSink map[string]float32

func (s recordingSink) SetWeight(name string, weight float32) {
	s[name] = weight
}

func TestLoadAsyncAppliesOnFrame(t *testing.T) {
	v := newViewer(t, staticLoader())
	if err := frameUntil(t, v, v.LoadAsync(context.Background(), "alice")); err != nil {
		t.Fatal(err)
	}

	if v.Avatar() == nil || v.Avatar().Title != "alice" || v.Loading() {
		t.Fatalf("avatar = %+v", v.Avatar())
	}
	if v.Skeleton().Len() != len(skeleton.DefaultJoints()) {
		t.Fatalf("skeleton has %d bones", v.Skeleton().Len())
	}
	if n := v.Scene().Count(scene.KindLight); n != 2 {
		t.Fatalf("%d lights", n)
	}
	if !v.Camera().Target.Compare(math.NewVec3(0, 0.8, 0), 1e-6) {
		t.Fatalf("camera looks at %v", v.Camera().Target)
	}
	// 1.5 * maxDim / 2 / tan(fov/2)
	want := float32(1.5 * 1.6 / 2 / stdmath.Tan(15*stdmath.Pi/180))
	if d := v.Camera().Position.Z; stdmath.Abs(float64(d-want)) > 1e-3 {
		t.Fatalf("camera distance = %f, want %f", d, want)
	}
	if !v.Driver().Has(expression.Happy) || v.Driver().Has(expression.Sad) {
		t.Fatal("driver not bound to the avatar expressions")
	}
}

func TestNewerLoadSupersedes(t *testing.T) {
	release := make(chan struct{})
	canceled := make(chan struct{})
	loader := assets.LoaderFunc(func(ctx context.Context, path string) (*assets.Avatar, error) {
		if path == "slow" {
			select {
			case <-ctx.Done():
				close(canceled)
				<-release
				return nil, ctx.Err()
			case <-release:
			}
		}
		return testAvatar(path), nil
	})
	cfg := config.Default()
	cfg.Assets.Workers = 2
	v, err := New(cfg, loader)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	slow := v.LoadAsync(context.Background(), "slow")
	fast := v.LoadAsync(context.Background(), "fast")
	if err := <-slow; !errors.Is(err, core.ErrLoadSuperseded) {
		t.Fatalf("slow load err = %v", err)
	}
	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded load was not canceled")
	}
	close(release)

	if err := frameUntil(t, v, fast); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		v.Frame(1.0 / 60)
	}
	if v.Avatar().Title != "fast" {
		t.Fatalf("applied %q", v.Avatar().Title)
	}
}

func TestLoadFailureKeepsViewerEmpty(t *testing.T) {
	boom := errors.New("boom")
	v := newViewer(t, assets.LoaderFunc(func(context.Context, string) (*assets.Avatar, error) {
		return nil, boom
	}))
	if err := frameUntil(t, v, v.LoadAsync(context.Background(), "broken.vrm")); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if v.Avatar() != nil || v.Scene().Len() != 0 {
		t.Fatal("failed load changed the scene")
	}
}

func TestReloadTearsDownPreviousAvatar(t *testing.T) {
	v := newViewer(t, staticLoader())
	if err := v.Load(context.Background(), "first"); err != nil {
		t.Fatal(err)
	}
	if err := v.SetMode(posing.ModeFK); err != nil {
		t.Fatal(err)
	}
	if v.Scene().Count(scene.KindMarker) == 0 {
		t.Fatal("FK mode shows no markers")
	}
	firstLights := v.Lights()

	if err := v.Load(context.Background(), "second"); err != nil {
		t.Fatal(err)
	}
	if v.Controller().Mode() != posing.ModeOff {
		t.Fatalf("mode = %s after reload", v.Controller().Mode())
	}
	if n := v.Scene().Count(scene.KindMarker); n != 0 {
		t.Fatalf("%d markers left behind", n)
	}
	if v.Scene().Count(scene.KindLight) != 2 || v.Scene().Contains(firstLights[0]) || !firstLights[0].Disposed() {
		t.Fatal("previous lights not replaced")
	}
}

func TestSetModeNeedsHumanoid(t *testing.T) {
	v := newViewer(t, assets.LoaderFunc(func(context.Context, string) (*assets.Avatar, error) {
		return &assets.Avatar{Title: "prop"}, nil
	}))
	if err := v.SetMode(posing.ModeIK); !errors.Is(err, core.ErrNoHumanoid) {
		t.Fatalf("err = %v", err)
	}
	if err := v.Load(context.Background(), "prop.glb"); err != nil {
		t.Fatal(err)
	}
	if err := v.SetMode(posing.ModeFK); !errors.Is(err, core.ErrNoHumanoid) {
		t.Fatalf("err = %v", err)
	}
	if err := v.SetMode(posing.ModeOff); err != nil {
		t.Fatal(err)
	}
}

func TestLipSyncReachesSink(t *testing.T) {
	v := newViewer(t, staticLoader())
	sink := recordingSink{}
	v.Sink = sink
	if err := v.Load(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}

	samples := make([]float32, 8000)
	for i := range samples {
		samples[i] = 0.9 * float32(stdmath.Sin(2*stdmath.Pi*220*float64(i)/16000))
	}
	v.StartLipSync(lipsync.NewPCMSource(samples, 16000))
	v.Frame(1.0 / 60)
	if sink[expression.Aa] <= 0 {
		t.Fatalf("mouth weight = %f", sink[expression.Aa])
	}

	for i := 0; i < 100 && v.LipSyncActive(); i++ {
		v.Frame(1.0 / 60)
	}
	v.Frame(1.0 / 60)
	if v.LipSyncActive() || sink[expression.Aa] != 0 {
		t.Fatalf("active=%v weight=%f after the audio ended", v.LipSyncActive(), sink[expression.Aa])
	}
}

type identityRest struct{}

func (identityRest) WorldRotation(string) (math.Quaternion, bool) {
	return math.NewQuatIdentity(), true
}

func (identityRest) ParentWorldRotation(string) (math.Quaternion, bool) {
	return math.NewQuatIdentity(), true
}

func (identityRest) HipsHeight() float32 {
	return 0.95
}

func TestPlayClipAnimatesSkeleton(t *testing.T) {
	v := newViewer(t, staticLoader())
	if err := v.PlayClip(&retarget.Clip{}, identityRest{}); !errors.Is(err, core.ErrNoHumanoid) {
		t.Fatalf("err = %v", err)
	}
	if err := v.Load(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}

	end := math.NewQuatFromAxisAngle(math.NewVec3(0, 0, 1), math.K_HALF_PI, true)
	clip := &retarget.Clip{
		Name:     "wave",
		Duration: 1,
		Tracks: []retarget.Track{{
			Node:     "mixamorigSpine",
			Property: retarget.PropertyQuaternion,
			Times:    []float32{0, 1},
			Values:   []float32{0, 0, 0, 1, end.X, end.Y, end.Z, end.W},
		}},
	}
	if err := v.PlayClip(clip, identityRest{}); err != nil {
		t.Fatal(err)
	}
	v.Frame(0.5)

	spine, _ := v.Skeleton().Bone(skeleton.Spine)
	want := math.NewQuatFromAxisAngle(math.NewVec3(0, 0, 1), math.K_HALF_PI/2, true)
	if !spine.Rotation().Compare(want, 1e-4) {
		t.Fatalf("spine rotation = %v, want %v", spine.Rotation(), want)
	}

	v.StopClip()
	if v.Player() != nil || !spine.Rotation().Compare(math.NewQuatIdentity(), 1e-6) {
		t.Fatal("stop did not restore the rest pose")
	}
}

func TestPoseRoundTrip(t *testing.T) {
	v := newViewer(t, staticLoader())
	if err := v.Load(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}
	rest := v.CurrentPose()

	v.Controller().SetTarget(skeleton.RightHand, math.NewVec3(-0.4, 1.1, 0.2))
	hand, _ := v.Skeleton().WorldPosition(skeleton.RightHand)
	v.ApplyPose(rest)
	if back, _ := v.Skeleton().WorldPosition(skeleton.RightHand); back.Compare(hand, 1e-3) {
		t.Fatal("applying the rest pose left the hand in place")
	}
}

func TestResizeAndClose(t *testing.T) {
	v := newViewer(t, staticLoader())
	v.Bus().Fire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: core.ResizeEvent{Width: 400, Height: 200}})
	if v.Camera().Aspect() != 2 {
		t.Fatalf("aspect = %f", v.Camera().Aspect())
	}

	if err := v.Close(); err != nil {
		t.Fatal(err)
	}
	if err := v.Close(); err != nil {
		t.Fatal(err)
	}
	if err := <-v.LoadAsync(context.Background(), "late"); !errors.Is(err, core.ErrManagerClosed) {
		t.Fatalf("err = %v", err)
	}
	v.Frame(1.0 / 60)
}

func TestRunStopsOnQuitAndDone(t *testing.T) {
	v := newViewer(t, staticLoader())

	frames := 0
	if err := v.Run(context.Background(), 500, func() bool {
		frames++
		return frames == 5
	}); err != nil {
		t.Fatal(err)
	}
	if frames != 5 {
		t.Fatalf("ran %d frames", frames)
	}

	frames = 0
	err := v.Run(context.Background(), 500, func() bool {
		frames++
		if frames == 3 {
			v.Bus().Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		}
		return false
	})
	if err != nil || frames != 3 {
		t.Fatalf("frames=%d err=%v", frames, err)
	}
	if v.Bus().ListenerCount(core.EVENT_CODE_APPLICATION_QUIT) != 0 {
		t.Fatal("quit listener left registered")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := v.Run(ctx, 0, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestWatcherReloadsUncleanAvatarPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.vrm"), []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := dir + "/./a.vrm"

	var loads atomic.Int32
	loader := assets.LoaderFunc(func(ctx context.Context, p string) (*assets.Avatar, error) {
		loads.Add(1)
		a := testAvatar("alice")
		a.Path = p
		return a, nil
	})
	cfg := config.Default()
	cfg.Assets.Watch = true
	cfg.Assets.Debounce = 50
	v, err := New(cfg, loader)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	changed := 0
	v.Bus().Register(core.EVENT_CODE_ASSET_CHANGED, t, func(core.EventContext) bool {
		changed++
		return false
	})
	if err := v.Load(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.vrm"), []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for loads.Load() < 2 && time.Now().Before(deadline) {
		v.Frame(1.0 / 60)
		time.Sleep(5 * time.Millisecond)
	}
	if loads.Load() < 2 || changed == 0 {
		t.Fatalf("loads=%d changed=%d, the loaded avatar was not reloaded", loads.Load(), changed)
	}
}

func TestNilAvatarFromLoaderFails(t *testing.T) {
	v := newViewer(t, assets.LoaderFunc(func(context.Context, string) (*assets.Avatar, error) {
		return nil, nil
	}))
	if err := frameUntil(t, v, v.LoadAsync(context.Background(), "empty")); !errors.Is(err, core.ErrInvalidAsset) {
		t.Fatalf("err = %v", err)
	}
	if v.Avatar() != nil {
		t.Fatal("nil avatar applied")
	}
}
