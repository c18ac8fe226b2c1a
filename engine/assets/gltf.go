package assets

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/spaghettifunk/anima-rig/engine/core"
	"github.com/spaghettifunk/anima-rig/engine/expression"
	"github.com/spaghettifunk/anima-rig/engine/math"
	"github.com/spaghettifunk/anima-rig/engine/skeleton"
)

const (
	glbHeaderLength   = 12
	glbChunkHeadSize  = 8
	glbMagic          = 0x46546C67
	glbJSONChunkType  = 0x4E4F534A
	glbMinValidLength = glbHeaderLength + glbChunkHeadSize
)

// LoadAvatar reads and parses a .vrm, .glb or .gltf file. Only the JSON part
// is interpreted; mesh data stays with the renderer.
func LoadAvatar(ctx context.Context, path string) (*Avatar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	avatar, err := ParseAvatar(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	avatar.Path = filepath.Clean(path)
	if avatar.Title == "" {
		avatar.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	core.LogInfo("loaded avatar %q (vrm %s, %d humanoid bones)", avatar.Title, avatar.Version, len(avatar.Humanoid))
	return avatar, nil
}

// ParseAvatar parses a binary glTF container or a glTF JSON document.
func ParseAvatar(data []byte) (*Avatar, error) {
	doc, err := documentJSON(data)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("malformed gltf json: %w", core.ErrInvalidAsset)
	}
	root := gjson.ParseBytes(doc)

	avatar := &Avatar{Humanoid: make(map[skeleton.BoneName]skeleton.Node)}
	if err := parseNodes(root, avatar); err != nil {
		return nil, err
	}
	if err := parseBounds(root, avatar); err != nil {
		return nil, err
	}

	switch {
	case root.Get("extensions.VRMC_vrm").Exists():
		parseVRM1(root.Get("extensions.VRMC_vrm"), avatar)
	case root.Get("extensions.VRM").Exists():
		parseVRM0(root.Get("extensions.VRM"), avatar)
	}
	return avatar, nil
}

// documentJSON returns the JSON chunk of a GLB file, or data itself when it
// already is JSON.
func documentJSON(data []byte) ([]byte, error) {
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[0:4]) == glbMagic {
		return parseGLBJSONChunk(data)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return trimmed, nil
	}
	return nil, core.ErrUnsupportedFormat
}

func parseGLBJSONChunk(b []byte) ([]byte, error) {
	if len(b) < glbMinValidLength {
		return nil, fmt.Errorf("glb header too short: %w", core.ErrInvalidAsset)
	}
	if version := binary.LittleEndian.Uint32(b[4:8]); version != 2 {
		return nil, fmt.Errorf("glb version %d: %w", version, core.ErrUnsupportedFormat)
	}
	if total := binary.LittleEndian.Uint32(b[8:12]); total > uint32(len(b)) {
		return nil, fmt.Errorf("glb length %d exceeds file size %d: %w", total, len(b), core.ErrInvalidAsset)
	}

	offset := glbHeaderLength
	for offset+glbChunkHeadSize <= len(b) {
		chunkLength := int(binary.LittleEndian.Uint32(b[offset : offset+4]))
		chunkType := binary.LittleEndian.Uint32(b[offset+4 : offset+8])
		start := offset + glbChunkHeadSize
		end := start + chunkLength
		if chunkLength < 0 || end > len(b) {
			return nil, fmt.Errorf("glb chunk overruns file: %w", core.ErrInvalidAsset)
		}
		if chunkType == glbJSONChunkType {
			return b[start:end], nil
		}
		offset = end
	}
	return nil, fmt.Errorf("glb has no json chunk: %w", core.ErrInvalidAsset)
}

func parseNodes(root gjson.Result, avatar *Avatar) error {
	nodes := root.Get("nodes").Array()
	avatar.Nodes = make([]*skeleton.Bone, len(nodes))
	for i, n := range nodes {
		name := n.Get("name").String()
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		avatar.Nodes[i] = skeleton.NewBone(name, nodeTransform(n))
	}

	parents := make([]int, len(nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i, n := range nodes {
		for _, c := range n.Get("children").Array() {
			child := int(c.Int())
			if child < 0 || child >= len(nodes) || child == i {
				return fmt.Errorf("node %d has invalid child %d: %w", i, child, core.ErrInvalidAsset)
			}
			if parents[child] >= 0 {
				return fmt.Errorf("node %d has two parents: %w", child, core.ErrInvalidAsset)
			}
			parents[child] = i
		}
	}
	for i := range parents {
		steps := 0
		for p := parents[i]; p >= 0; p = parents[p] {
			if steps++; steps > len(nodes) {
				return fmt.Errorf("node hierarchy has a cycle through node %d: %w", i, core.ErrInvalidAsset)
			}
		}
	}

	for i, p := range parents {
		if p < 0 {
			avatar.Roots = append(avatar.Roots, avatar.Nodes[i])
			continue
		}
		avatar.Nodes[p].AddChild(avatar.Nodes[i])
	}
	return nil
}

func nodeTransform(n gjson.Result) *math.Transform {
	t := math.TransformCreate()
	if m := floats(n.Get("matrix")); len(m) == 16 {
		t.Position, t.Rotation, t.Scale = decomposeMatrix(m)
		return t
	}
	if v := floats(n.Get("translation")); len(v) == 3 {
		t.Position = math.NewVec3(v[0], v[1], v[2])
	}
	if v := floats(n.Get("rotation")); len(v) == 4 {
		t.Rotation = math.Quaternion{X: v[0], Y: v[1], Z: v[2], W: v[3]}.Normalize()
	}
	if v := floats(n.Get("scale")); len(v) == 3 {
		t.Scale = math.NewVec3(v[0], v[1], v[2])
	}
	return t
}

// decomposeMatrix splits a column-major TRS matrix.
func decomposeMatrix(m []float32) (math.Vec3, math.Quaternion, math.Vec3) {
	position := math.NewVec3(m[12], m[13], m[14])
	scale := math.NewVec3(
		math.NewVec3(m[0], m[1], m[2]).Length(),
		math.NewVec3(m[4], m[5], m[6]).Length(),
		math.NewVec3(m[8], m[9], m[10]).Length(),
	)
	if scale.X == 0 || scale.Y == 0 || scale.Z == 0 {
		return position, math.NewQuatIdentity(), scale
	}
	// r(row, col) of the pure rotation.
	r := func(row, col int) float32 {
		s := [3]float32{scale.X, scale.Y, scale.Z}[col]
		return m[col*4+row] / s
	}

	var q math.Quaternion
	trace := r(0, 0) + r(1, 1) + r(2, 2)
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q = math.Quaternion{X: (r(2, 1) - r(1, 2)) * s, Y: (r(0, 2) - r(2, 0)) * s, Z: (r(1, 0) - r(0, 1)) * s, W: 0.25 / s}
	case r(0, 0) > r(1, 1) && r(0, 0) > r(2, 2):
		s := 2 * math.Sqrt(1+r(0, 0)-r(1, 1)-r(2, 2))
		q = math.Quaternion{X: 0.25 * s, Y: (r(0, 1) + r(1, 0)) / s, Z: (r(0, 2) + r(2, 0)) / s, W: (r(2, 1) - r(1, 2)) / s}
	case r(1, 1) > r(2, 2):
		s := 2 * math.Sqrt(1+r(1, 1)-r(0, 0)-r(2, 2))
		q = math.Quaternion{X: (r(0, 1) + r(1, 0)) / s, Y: 0.25 * s, Z: (r(1, 2) + r(2, 1)) / s, W: (r(0, 2) - r(2, 0)) / s}
	default:
		s := 2 * math.Sqrt(1+r(2, 2)-r(0, 0)-r(1, 1))
		q = math.Quaternion{X: (r(0, 2) + r(2, 0)) / s, Y: (r(1, 2) + r(2, 1)) / s, Z: 0.25 * s, W: (r(1, 0) - r(0, 1)) / s}
	}
	return position, q.Normalize(), scale
}

// parseBounds expands the avatar bounds with the POSITION accessor bounds of
// every mesh primitive, transformed by its node. Skinned meshes are already
// in model space. Out of range mesh or accessor indices are invalid.
func parseBounds(root gjson.Result, avatar *Avatar) error {
	meshes := root.Get("meshes").Array()
	accessors := root.Get("accessors").Array()
	for i, n := range root.Get("nodes").Array() {
		mesh := n.Get("mesh")
		if !mesh.Exists() {
			continue
		}
		if m := mesh.Int(); m < 0 || m >= int64(len(meshes)) {
			return fmt.Errorf("node %d references mesh %d: %w", i, m, core.ErrInvalidAsset)
		}
		skinned := n.Get("skin").Exists()
		node := avatar.Nodes[i]
		for _, prim := range meshes[mesh.Int()].Get("primitives").Array() {
			pos := prim.Get("attributes.POSITION")
			if !pos.Exists() {
				continue
			}
			if a := pos.Int(); a < 0 || a >= int64(len(accessors)) {
				return fmt.Errorf("mesh %d references accessor %d: %w", mesh.Int(), a, core.ErrInvalidAsset)
			}
			acc := accessors[pos.Int()]
			lo, hi := floats(acc.Get("min")), floats(acc.Get("max"))
			if len(lo) != 3 || len(hi) != 3 {
				continue
			}
			for c := 0; c < 8; c++ {
				corner := math.NewVec3(pick(c&1, lo[0], hi[0]), pick(c&2, lo[1], hi[1]), pick(c&4, lo[2], hi[2]))
				if !skinned {
					corner = node.Transform().TransformPoint(corner)
				}
				avatar.Bounds = avatar.Bounds.Expand(corner)
			}
		}
	}
	return nil
}

func pick(bit int, lo, hi float32) float32 {
	if bit != 0 {
		return hi
	}
	return lo
}

func parseVRM0(ext gjson.Result, avatar *Avatar) {
	avatar.Version = VRM0
	avatar.Title = ext.Get("meta.title").String()
	ext.Get("humanoid.humanBones").ForEach(func(_, b gjson.Result) bool {
		bindHumanBone(avatar, b.Get("bone").String(), b.Get("node"))
		return true
	})
	ext.Get("blendShapeMaster.blendShapeGroups").ForEach(func(_, g gjson.Result) bool {
		name := g.Get("presetName").String()
		if name == "" || name == "unknown" {
			name = g.Get("name").String()
		}
		if name != "" {
			avatar.Expressions = append(avatar.Expressions, expression.Normalize(name))
		}
		return true
	})
}

func parseVRM1(ext gjson.Result, avatar *Avatar) {
	avatar.Version = VRM1
	avatar.Title = ext.Get("meta.name").String()
	ext.Get("humanoid.humanBones").ForEach(func(key, b gjson.Result) bool {
		bindHumanBone(avatar, key.String(), b.Get("node"))
		return true
	})
	for _, group := range []string{"expressions.preset", "expressions.custom"} {
		ext.Get(group).ForEach(func(key, _ gjson.Result) bool {
			avatar.Expressions = append(avatar.Expressions, key.String())
			return true
		})
	}
}

func bindHumanBone(avatar *Avatar, bone string, node gjson.Result) {
	name := skeleton.BoneName(bone)
	if !name.Valid() || !node.Exists() {
		return
	}
	idx := int(node.Int())
	if idx < 0 || idx >= len(avatar.Nodes) {
		core.LogWarn("humanoid bone %s points at missing node %d", bone, idx)
		return
	}
	avatar.Humanoid[name] = avatar.Nodes[idx]
}

func floats(r gjson.Result) []float32 {
	if !r.IsArray() {
		return nil
	}
	arr := r.Array()
	out := make([]float32, len(arr))
	for i, v := range arr {
		out[i] = float32(v.Float())
	}
	return out
}
