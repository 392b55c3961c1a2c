// Package render implements the tiled, barrier-synchronized CPU renderer:
// coarse-to-fine per-tile raymarching distributed across horizontal bands,
// restructured from original_source/src/Main.cpp's renderBatch/renderLoop
// onto taskpool.Barrier instead of raw SDL threads and semaphores.
package render

import (
	"context"
	"image/color"
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/tunabrain/sparse-voxel-octrees/matstack"
	"github.com/tunabrain/sparse-voxel-octrees/octree"
	"github.com/tunabrain/sparse-voxel-octrees/raymarch"
	"github.com/tunabrain/sparse-voxel-octrees/taskpool"
)

// tileSize is the coarse tile grid granularity in pixels, per spec.md §4.7.
const tileSize = 8

// halfFOV matches Main.cpp's planeDist = 1/tan(pi/6), a 30-degree half
// field of view.
const halfFOV = math.Pi / 6

// canonicalCenter is the fixed point in traversal space that raymarch.March
// treats as the octree's origin, generalizing VoxelOctree::raymarch's
// hardcoded "+1.5f to center the volume around the origin" into an
// Octree.Center-relative shift.
var canonicalCenter = r3.Vector{X: 1.5, Y: 1.5, Z: 1.5}

// Renderer draws a built octree into a Framebuffer under a caller-controlled
// matstack.Stack (Model/View/Projection), splitting each frame into
// numWorkers horizontal bands rendezvoused by a two-phase barrier exactly
// the way Main.cpp's NumThreads render workers synchronize around
// renderBatch — spawned fresh per frame instead of parked for the process
// lifetime, since goroutines are cheap enough that carrying over the
// original's persistent-OS-thread pool buys nothing (see DESIGN.md).
type Renderer struct {
	logger     golog.Logger
	tree       *octree.Octree
	stack      *matstack.Stack
	width      int
	height     int
	numWorkers int
	barrier    *taskpool.Barrier
	rayScale   float64
}

// NewRenderer constructs a Renderer for tree, driven by stack's current
// Model/View/Projection state.
func NewRenderer(tree *octree.Octree, stack *matstack.Stack, width, height, numWorkers int, logger golog.Logger) *Renderer {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Renderer{
		logger:     logger,
		tree:       tree,
		stack:      stack,
		width:      width,
		height:     height,
		numWorkers: numWorkers,
		barrier:    taskpool.NewBarrier(numWorkers),
		rayScale:   1.0 / float64(width),
	}
}

type camera struct {
	pos             r3.Vector
	xAxis, yAxis    r3.Vector
	zAxisScaled     r3.Vector
	light           r3.Vector
	pixelScale      float64
}

func (r *Renderer) buildCamera() camera {
	m := r.stack.Get(matstack.InvModelView)
	pos := r3.Vector{X: m.Col(3).X(), Y: m.Col(3).Y(), Z: m.Col(3).Z()}
	xAxis := r3.Vector{X: m.Col(0).X(), Y: m.Col(0).Y(), Z: m.Col(0).Z()}
	yAxis := r3.Vector{X: m.Col(1).X(), Y: m.Col(1).Y(), Z: m.Col(1).Z()}
	zAxis := r3.Vector{X: m.Col(2).X(), Y: m.Col(2).Y(), Z: m.Col(2).Z()}

	planeDist := 1.0 / math.Tan(halfFOV)
	light := xAxis.Add(yAxis).Add(zAxis).Normalize()

	return camera{
		pos:         pos,
		xAxis:       xAxis,
		yAxis:       yAxis,
		zAxisScaled: zAxis.Mul(planeDist),
		light:       light,
		pixelScale:  2.0 / float64(r.width),
	}
}

func (c camera) rayDir(px, py int) r3.Vector {
	dx := -1.0 + float64(px)*c.pixelScale
	dy := 1.0 - float64(py)*c.pixelScale
	dir := r3.Vector{
		X: dx*c.xAxis.X + dy*c.yAxis.X + c.zAxisScaled.X,
		Y: dx*c.xAxis.Y + dy*c.yAxis.Y + c.zAxisScaled.Y,
		Z: dx*c.xAxis.Z + dy*c.yAxis.Z + c.zAxisScaled.Z,
	}
	return dir.Normalize()
}

func (r *Renderer) localOrigin(pos r3.Vector) r3.Vector {
	return pos.Sub(r.tree.Center).Add(canonicalCenter)
}

// RenderFrame draws one frame into fb. Workers rendezvous via the two-phase
// barrier before sweeping their band and again before this call returns,
// matching spec.md §4.7 steps 1-3 (step 4's repeat-until-terminate and
// input polling live in the cmd/svo view loop instead of here).
func (r *Renderer) RenderFrame(ctx context.Context, fb *Framebuffer) error {
	cam := r.buildCamera()

	var wg sync.WaitGroup
	for w := 0; w < r.numWorkers; w++ {
		y0, y1 := bandBounds(w, r.numWorkers, r.height)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			r.barrier.WaitPre()
			r.renderBand(cam, fb, y0, y1)
			r.barrier.WaitPost()
		}(y0, y1)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// renderBand sweeps the pixel rows [y0, y1) of fb: a coarse raymarch at
// every tile-corner in the band, then either a shortcut-refine or a full
// per-pixel raymarch of each tile, per spec.md §4.7 step 2.
func (r *Renderer) renderBand(cam camera, fb *Framebuffer, y0, y1 int) {
	tilesX := ceilDiv(r.width, tileSize)
	tileRow0 := y0 / tileSize
	tileRow1 := ceilDiv(y1, tileSize)
	cornerRows := tileRow1 - tileRow0 + 1
	cornerCols := tilesX + 1

	type corner struct {
		hit bool
		t   float64
	}
	corners := make([]corner, cornerRows*cornerCols)
	at := func(row, col int) *corner { return &corners[row*cornerCols+col] }

	for row := 0; row < cornerRows; row++ {
		py := clampInt((tileRow0+row)*tileSize, 0, r.height-1)
		for col := 0; col < cornerCols; col++ {
			px := clampInt(col*tileSize, 0, r.width-1)
			dir := cam.rayDir(px, py)
			hit := raymarch.March(r.tree, r.localOrigin(cam.pos), dir, r.rayScale)
			at(row, col).hit = hit.Hit
			at(row, col).t = hit.T
		}
	}

	for tileRow := tileRow0; tileRow < tileRow1; tileRow++ {
		localRow := tileRow - tileRow0
		for tileCol := 0; tileCol < tilesX; tileCol++ {
			c00, c01 := at(localRow, tileCol), at(localRow, tileCol+1)
			c10, c11 := at(localRow+1, tileCol), at(localRow+1, tileCol+1)

			allHit := c00.hit && c01.hit && c10.hit && c11.hit
			minT := math.Inf(1)
			if allHit {
				minT = math.Min(math.Min(c00.t, c01.t), math.Min(c10.t, c11.t))
			}

			px0 := tileCol * tileSize
			py0 := tileRow * tileSize
			px1 := minInt(px0+tileSize, r.width)
			py1 := minInt(py0+tileSize, r.height)
			if py0 >= r.height {
				continue
			}

			for py := py0; py < py1; py++ {
				for px := px0; px < px1; px++ {
					dir := cam.rayDir(px, py)
					origin := r.localOrigin(cam.pos)
					if allHit && minT > 1e-4 {
						origin = origin.Add(dir.Mul(minT - 1e-4))
					}
					hit := raymarch.March(r.tree, origin, dir, r.rayScale)
					fb.Set(px, py, shade(hit, cam.light))
				}
			}
		}
	}
}

func shade(hit raymarch.Hit, light r3.Vector) color.RGBA {
	if !hit.Hit {
		return color.RGBA{A: 0xFF}
	}
	intensity := math.Max(light.Dot(hit.Normal), 0)
	b := byte(math.Min(intensity, 1.0) * 255.0)
	return color.RGBA{R: b, G: b, B: b, A: 0xFF}
}

func bandBounds(worker, numWorkers, height int) (int, int) {
	stride := (height-1)/numWorkers + 1
	y0 := worker * stride
	y1 := minInt((worker+1)*stride, height)
	return y0, y1
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
