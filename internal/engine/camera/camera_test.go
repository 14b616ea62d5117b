package camera

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/objengine/pkg/math"
)

const epsilon = 1e-4

func near(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < epsilon
}

func TestPosition(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{X: 1, Y: 2, Z: 3}
	c.Distance = 5
	c.RotationX = 0
	c.RotationY = 0

	pos := c.Position()
	if !near(pos.X, 1) || !near(pos.Y, 2) || !near(pos.Z, 8) {
		t.Errorf("Position() = %+v, want (1, 2, 8)", pos)
	}
	if d := pos.Distance(c.Center); !near(d, 5) {
		t.Errorf("distance to center = %v, want 5", d)
	}
}

func TestViewProjection_CenterOnAxis(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{X: 4, Y: 0, Z: -2}
	c.RotationX = 0.3
	c.RotationY = 1.1

	clip := c.ViewProjection().MulVec4(math.Vec4{4, 0, -2, 1})
	if clip[3] <= 0 {
		t.Fatalf("center should be in front of the camera, w = %v", clip[3])
	}
	if !near(clip[0]/clip[3], 0) || !near(clip[1]/clip[3], 0) {
		t.Errorf("center projects to (%v, %v), want screen center", clip[0]/clip[3], clip[1]/clip[3])
	}
}

func TestHandleDragClampsPitch(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 10000)
	if c.RotationX != c.MaxPitch {
		t.Errorf("RotationX = %v, want %v", c.RotationX, c.MaxPitch)
	}
	c.HandleDrag(0, -20000)
	if c.RotationX != c.MinPitch {
		t.Errorf("RotationX = %v, want %v", c.RotationX, c.MinPitch)
	}
}

func TestHandleZoomClamps(t *testing.T) {
	c := NewOrbitCamera()
	for i := 0; i < 100; i++ {
		c.HandleZoom(5)
	}
	if c.Distance != c.MinDistance {
		t.Errorf("Distance = %v, want %v", c.Distance, c.MinDistance)
	}
}

func TestFitToSphere(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToSphere(math.Vec3{Y: 1}, 2)

	if c.Center != (math.Vec3{Y: 1}) {
		t.Errorf("Center = %+v", c.Center)
	}
	want := 2 / float32(gomath.Sin(gomath.Pi/8))
	if !near(c.Distance, want) {
		t.Errorf("Distance = %v, want %v", c.Distance, want)
	}
	if c.Distance < c.MinDistance || c.Distance > c.MaxDistance {
		t.Error("fitted distance should be within zoom limits")
	}
}

func TestSetViewport(t *testing.T) {
	c := NewOrbitCamera()
	c.SetViewport(800, 400)
	if c.Aspect != 2 {
		t.Errorf("Aspect = %v, want 2", c.Aspect)
	}
	c.SetViewport(0, 400)
	if c.Aspect != 2 {
		t.Error("zero width should be ignored")
	}
}
