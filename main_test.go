package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	stdmath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/spaghettifunk/anima-rig/engine/core"
	"github.com/spaghettifunk/anima-rig/engine/math"
	"github.com/spaghettifunk/anima-rig/engine/skeleton"
)

func TestParseVec3(t *testing.T) {
	v, err := parseVec3(" 0.5, 1.2 ,-0.1")
	if err != nil || !v.Compare(math.NewVec3(0.5, 1.2, -0.1), 1e-6) {
		t.Fatalf("parseVec3 = %v, %v", v, err)
	}
	for _, bad := range []string{"", "1,2", "1,2,x", "1,2,3,4"} {
		if _, err := parseVec3(bad); err == nil {
			t.Errorf("parseVec3(%q) accepted", bad)
		}
	}
}

// writeAvatar writes a minimal VRM 1.0 file with a hips-to-hand arm.
func writeAvatar(t *testing.T, path string) {
	t.Helper()
	doc := map[string]any{
		"nodes": []any{
			map[string]any{"name": "hips", "translation": []float32{0, 1, 0}, "children": []int{1}},
			map[string]any{"name": "upperArm", "translation": []float32{-0.2, 0.4, 0}, "children": []int{2}},
			map[string]any{"name": "lowerArm", "translation": []float32{-0.25, 0, 0}, "children": []int{3}},
			map[string]any{"name": "hand", "translation": []float32{-0.25, 0, 0}},
		},
		"extensions": map[string]any{"VRMC_vrm": map[string]any{
			"meta": map[string]any{"name": "Arm"},
			"humanoid": map[string]any{"humanBones": map[string]any{
				"hips":          map[string]any{"node": 0},
				"rightUpperArm": map[string]any{"node": 1},
				"rightLowerArm": map[string]any{"node": 2},
				"rightHand":     map[string]any{"node": 3},
			}},
		}},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	for len(data)%4 != 0 {
		data = append(data, ' ')
	}
	var out []byte
	for _, v := range []uint32{0x46546C67, 2, uint32(20 + len(data)), uint32(len(data)), 0x4E4F534A} {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	if err := os.WriteFile(path, append(out, data...), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunSolvesAndWritesPose(t *testing.T) {
	dir := t.TempDir()
	avatar := filepath.Join(dir, "arm.vrm")
	poseOut := filepath.Join(dir, "pose.json")
	writeAvatar(t, avatar)

	err := run(context.Background(), options{
		avatar:   avatar,
		poseOut:  poseOut,
		effector: "rightHand",
		target:   "-0.5,1.2,0.2",
	})
	if err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(poseOut)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	pose, err := skeleton.LoadPose(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(pose.Bones) != 4 {
		t.Fatalf("pose has %d bones", len(pose.Bones))
	}
	if r := pose.Bones[skeleton.RightUpperArm].Rotation; r == [4]float32{0, 0, 0, 1} {
		t.Fatal("upper arm not rotated by the solve")
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	prop := filepath.Join(dir, "prop.gltf")
	os.WriteFile(prop, []byte(`{"nodes":[{"name":"Cube"}]}`), 0o644)
	arm := filepath.Join(dir, "arm.vrm")
	writeAvatar(t, arm)

	if err := run(context.Background(), options{}); err == nil {
		t.Fatal("missing avatar accepted")
	}
	if err := run(context.Background(), options{avatar: prop, effector: "leftHand", target: "0,1,0"}); !errors.Is(err, core.ErrNoHumanoid) {
		t.Fatalf("err = %v", err)
	}
	if err := run(context.Background(), options{avatar: arm, effector: "head", target: "0,1,0"}); err == nil {
		t.Fatal("head accepted as effector")
	}
	if err := run(context.Background(), options{avatar: arm, effector: "rightHand", target: "up"}); err == nil {
		t.Fatal("bad target accepted")
	}
	if err := run(context.Background(), options{avatar: arm, audio: filepath.Join(dir, "notes.txt")}); err == nil {
		t.Fatal("missing audio accepted")
	}
}

func TestRunLipSync(t *testing.T) {
	dir := t.TempDir()
	arm := filepath.Join(dir, "arm.vrm")
	writeAvatar(t, arm)
	speech := filepath.Join(dir, "speech.wav")

	f, err := os.Create(speech)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	data := make([]int, 4000)
	for i := range data {
		data[i] = int(20000 * stdmath.Sin(2*stdmath.Pi*300*float64(i)/16000))
	}
	buf := &audio.IntBuffer{Data: data, Format: &audio.Format{NumChannels: 1, SampleRate: 16000}, SourceBitDepth: 16}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	for _, realtime := range []bool{false, true} {
		if err := run(context.Background(), options{avatar: arm, audio: speech, realtime: realtime}); err != nil {
			t.Fatalf("realtime=%v: %v", realtime, err)
		}
	}
}
