/*
anima-rig loads a VRM avatar, optionally poses it with IK and drives its
mouth from an audio file, then writes the resulting pose as JSON.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/spaghettifunk/anima-rig/engine/config"
	"github.com/spaghettifunk/anima-rig/engine/core"
	"github.com/spaghettifunk/anima-rig/engine/lipsync"
	"github.com/spaghettifunk/anima-rig/engine/math"
	"github.com/spaghettifunk/anima-rig/engine/posing"
	"github.com/spaghettifunk/anima-rig/engine/skeleton"
	"github.com/spaghettifunk/anima-rig/engine/viewer"
)

const configEnv = "ANIMA_RIG_CONFIG"

type options struct {
	config   string
	avatar   string
	poseOut  string
	effector string
	target   string
	audio    string
	realtime bool
	logLevel string
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	var opts options
	cli.StringVarP(&opts.config, "config", "c", "", "Config file path (default $"+configEnv+")")
	cli.StringVarP(&opts.avatar, "avatar", "a", "", "VRM, GLB or glTF avatar to load")
	cli.StringVarP(&opts.poseOut, "pose-out", "o", "", "Write the final pose as JSON to this file")
	cli.StringVar(&opts.effector, "effector", "", "IK effector to move (leftHand, rightHand, leftFoot, rightFoot)")
	cli.StringVar(&opts.target, "target", "", "IK target as x,y,z in world units")
	cli.StringVar(&opts.audio, "audio", "", "WAV, MP3 or Ogg file to lip-sync")
	cli.BoolVar(&opts.realtime, "realtime", false, "Play --audio at wall-clock speed instead of as fast as possible")
	cli.StringVarP(&opts.logLevel, "log", "l", "", "Log level (overrides the config)")
	cli.Parse()

	godotenv.Load(*envFile)
	if opts.config == "" {
		opts.config = os.Getenv(configEnv)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, opts); err != nil {
		core.LogError("%s", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	core.SetLogLevel(cfg.Log.Level)

	if opts.avatar == "" {
		return fmt.Errorf("no avatar given, use --avatar")
	}

	v, err := viewer.New(cfg, nil)
	if err != nil {
		return err
	}
	defer v.Close()

	if err := v.Load(ctx, opts.avatar); err != nil {
		return err
	}
	avatar := v.Avatar()
	core.LogInfo("loaded %q (VRM %s), %d humanoid bones", avatar.Title, avatar.Version, v.Skeleton().Len())

	if opts.effector != "" {
		if err := solve(v, opts.effector, opts.target); err != nil {
			return err
		}
	}

	if opts.audio != "" {
		if err := lipSync(ctx, v, opts.audio, opts.realtime); err != nil {
			return err
		}
	}

	if opts.poseOut != "" {
		f, err := os.Create(opts.poseOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := skeleton.SavePose(f, v.CurrentPose()); err != nil {
			return err
		}
		core.LogInfo("pose written to %s", opts.poseOut)
	}
	return nil
}

func solve(v *viewer.Viewer, effector, target string) error {
	name := skeleton.BoneName(effector)
	if !skeleton.IsEffector(name) {
		return fmt.Errorf("%q is not an IK effector", effector)
	}
	goal, err := parseVec3(target)
	if err != nil {
		return fmt.Errorf("invalid --target: %w", err)
	}
	if err := v.SetMode(posing.ModeIK); err != nil {
		return err
	}
	v.Controller().SetTarget(name, goal)
	v.Frame(0)

	reached, ok := v.Skeleton().WorldPosition(name)
	if !ok {
		return fmt.Errorf("avatar has no %s: %w", name, core.ErrNoHumanoid)
	}
	core.LogInfo("%s at %.3f,%.3f,%.3f, %.4f from target", name, reached.X, reached.Y, reached.Z, reached.Distance(goal))
	return v.SetMode(posing.ModeOff)
}

func lipSync(ctx context.Context, v *viewer.Viewer, path string, realtime bool) error {
	src, err := lipsync.OpenFile(path)
	if err != nil {
		return err
	}
	expr := v.Driver()
	name := v.LipSyncExpression()

	var frames int
	var peak, sum float32
	sample := func() bool {
		o := expr.Get(name)
		sum += o
		peak = max(peak, o)
		frames++
		if frames%60 == 0 {
			core.LogDebug("lip-sync frame %d: openness %.2f", frames, o)
		}
		return !v.LipSyncActive()
	}

	v.StartLipSync(src)
	if realtime {
		err = v.Run(ctx, viewer.DefaultFPS, sample)
	} else {
		const dt = float32(1.0 / viewer.DefaultFPS)
		for v.LipSyncActive() && err == nil {
			if err = ctx.Err(); err == nil {
				v.Frame(dt)
				sample()
			}
		}
	}
	if err != nil {
		v.StopLipSync()
		return err
	}
	if frames > 0 {
		core.LogInfo("lip-sync of %s: %d frames, mean openness %.3f, peak %.3f", path, frames, sum/float32(frames), peak)
	}
	return nil
}

// parseVec3 reads "x,y,z".
func parseVec3(s string) (math.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return math.Vec3{}, fmt.Errorf("%q: want x,y,z", s)
	}
	var xyz [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return math.Vec3{}, fmt.Errorf("%q: %w", s, err)
		}
		xyz[i] = float32(f)
	}
	return math.NewVec3(xyz[0], xyz[1], xyz[2]), nil
}
