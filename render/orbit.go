package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/tunabrain/sparse-voxel-octrees/matstack"
)

// zoomMin and zoomMax bound Orbit's distance from the origin, per
// SPEC_FULL.md's Open Question 3 decision (mouse-drag semantics have no
// live input source in this headless target, so Orbit is driven directly by
// caller-supplied deltas instead).
const (
	zoomMin = 0.5
	zoomMax = 25.0
)

// Orbit maps button-0/button-1 drag deltas onto a matstack.Stack's Model and
// View base stacks, replacing Main.cpp's direct GetMouseXSpeed/YSpeed +
// MatrixStack::mulR(MODEL_STACK, ...) polling loop with an explicit,
// testable API.
type Orbit struct {
	stack *matstack.Stack
	zoom  float64
}

// NewOrbit constructs an Orbit over stack, placing the camera zoom units
// back along View, matching Main.cpp's initial
// MatrixStack::set(VIEW_STACK, Mat4::translate(Vec3(0,0,-2))).
func NewOrbit(stack *matstack.Stack, zoom float64) *Orbit {
	o := &Orbit{stack: stack, zoom: clampZoom(zoom)}
	o.applyView()
	return o
}

// DragRotate rotates the Model stack by a button-0 drag of (dx, dy) pixels,
// yaw from dx and pitch from -dy, matching Main.cpp's
// Mat4::rotYZX(Vec3(pitch, yaw, 0)) applied via mulR.
func (o *Orbit) DragRotate(dx, dy float64) {
	pitch := -dy
	yaw := dx
	rot := mgl64.HomogRotate3DY(yaw).Mul4(mgl64.HomogRotate3DX(pitch))
	o.stack.MulRight(matstack.Model, rot)
}

// DragZoom adjusts the camera distance by a button-1 drag of dy pixels,
// clamped to [zoomMin, zoomMax].
func (o *Orbit) DragZoom(dy float64) {
	o.zoom = clampZoom(o.zoom + dy)
	o.applyView()
}

// Zoom reports the current camera distance from the origin.
func (o *Orbit) Zoom() float64 { return o.zoom }

func (o *Orbit) applyView() {
	o.stack.Set(matstack.View, mgl64.Translate3D(0, 0, -o.zoom))
}

func clampZoom(z float64) float64 {
	if z < zoomMin {
		return zoomMin
	}
	if z > zoomMax {
		return zoomMax
	}
	return z
}
