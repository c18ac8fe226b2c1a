package scene

import (
	"github.com/spaghettifunk/anima-rig/engine/math"
)

/**
 * @brief A perspective camera looking from Position at Target. It turns
 * viewport pixels into picking rays and frames loaded avatars.
 */
type Camera struct {
	Position math.Vec3
	Target   math.Vec3
	Up       math.Vec3
	/** @brief Vertical field of view in radians. */
	FOV      float32
	NearClip float32
	FarClip  float32
	/** @brief Viewport size in pixels. */
	Width  uint32
	Height uint32
}

/** @brief The name of the default camera. */
const DEFAULT_CAMERA_NAME string = "default"

func NewCamera(fovDegrees float32, width, height uint32, near, far float32) *Camera {
	c := &Camera{
		FOV:      math.DegToRad(fovDegrees),
		NearClip: near,
		FarClip:  far,
	}
	c.Resize(width, height)
	c.Reset()
	return c
}

// Reset puts the camera at 1.5 units on +Z looking at the origin.
func (c *Camera) Reset() {
	c.Position = math.NewVec3(0, 0, 1.5)
	c.Target = math.NewVec3Zero()
	c.Up = math.NewVec3Up()
}

func (c *Camera) Resize(width, height uint32) {
	if width == 0 {
		width = 1
	}
	if height == 0 {
		height = 1
	}
	c.Width, c.Height = width, height
}

func (c *Camera) Aspect() float32 {
	return float32(c.Width) / float32(c.Height)
}

func (c *Camera) LookAt(target math.Vec3) {
	c.Target = target
}

func (c *Camera) Forward() math.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

func (c *Camera) Right() math.Vec3 {
	return c.Forward().Cross(c.Up).Normalize()
}

// CameraUp is the camera's own up axis, orthogonal to Forward.
func (c *Camera) CameraUp() math.Vec3 {
	return c.Right().Cross(c.Forward()).Normalize()
}

// ScreenToNDC maps viewport pixels (origin top-left) to [-1, 1] with +Y up.
func (c *Camera) ScreenToNDC(x, y float32) math.Vec2 {
	return math.NewVec2(2*x/float32(c.Width)-1, 1-2*y/float32(c.Height))
}

// Ray returns the picking ray through normalized device coordinates.
func (c *Camera) Ray(ndc math.Vec2) math.Ray {
	halfHeight := math.Tan(c.FOV / 2)
	halfWidth := halfHeight * c.Aspect()
	dir := c.Forward().
		Add(c.Right().MulScalar(ndc.X * halfWidth)).
		Add(c.CameraUp().MulScalar(ndc.Y * halfHeight))
	return math.NewRay(c.Position, dir)
}

// RayFromScreen is Ray for a pointer position in pixels.
func (c *Camera) RayFromScreen(x, y float32) math.Ray {
	return c.Ray(c.ScreenToNDC(x, y))
}

// Project maps a world point to viewport pixels. It reports false for points
// behind the camera.
func (c *Camera) Project(world math.Vec3) (math.Vec2, bool) {
	d := world.Sub(c.Position)
	z := d.Dot(c.Forward())
	if z <= 0 {
		return math.Vec2{}, false
	}
	halfHeight := math.Tan(c.FOV / 2)
	halfWidth := halfHeight * c.Aspect()
	ndcX := d.Dot(c.Right()) / (z * halfWidth)
	ndcY := d.Dot(c.CameraUp()) / (z * halfHeight)
	return math.NewVec2(
		(ndcX+1)/2*float32(c.Width),
		(1-ndcY)/2*float32(c.Height),
	), true
}

// Frame moves the camera in front of extents so that its largest dimension
// fits the vertical field of view with some margin, looking at the center.
func (c *Camera) Frame(extents math.Extents3D) {
	if !extents.Valid {
		return
	}
	center := extents.Center()
	maxDim := extents.Size().MaxComponent()
	distance := math.Abs(maxDim/2/math.Tan(c.FOV/2)) * 1.5
	if distance < c.NearClip*2 {
		distance = c.NearClip * 2
	}
	c.Position = math.NewVec3(center.X, center.Y, center.Z+distance)
	c.Target = center
	c.Up = math.NewVec3Up()
	if c.FarClip < distance*4 {
		c.FarClip = distance * 4
	}
}
