// Package config defines the validated flag structs shared between the
// build and view subcommands, populated from urfave/cli/v2 contexts the
// way viamrobotics-rdk/cli's Action functions read ctx.String/ctx.Int into
// typed request structs before dispatching.
package config

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// Mode selects how the builder assembles its working set.
type Mode int

const (
	// ModeInMemory voxelizes straight from the in-memory mesh, with no
	// intermediate dense voxel file.
	ModeInMemory Mode = iota
	// ModeOnDisk writes an intermediate dense voxel file before building,
	// per spec.md §6.3's "-mode 1" on-disk path.
	ModeOnDisk
)

// BuilderFlags is the validated configuration for `svo build`.
type BuilderFlags struct {
	InputPath  string
	OutputPath string
	Resolution int
	Mode       Mode
	NumWorkers int
	BudgetMiB  uint64
}

// NewBuilderFlagsFromContext reads and validates a BuilderFlags from a cli
// context, matching cli.App Action's convention of doing all argument
// parsing before invoking the actual operation.
func NewBuilderFlagsFromContext(ctx *cli.Context) (BuilderFlags, error) {
	if ctx.NArg() != 2 {
		return BuilderFlags{}, errors.Errorf("expected exactly 2 arguments: <input.ply> <output.oct>, got %d", ctx.NArg())
	}

	f := BuilderFlags{
		InputPath:  ctx.Args().Get(0),
		OutputPath: ctx.Args().Get(1),
		Resolution: ctx.Int("resolution"),
		Mode:       Mode(ctx.Int("mode")),
		NumWorkers: ctx.Int("workers"),
		BudgetMiB:  uint64(ctx.Int("budget-mib")),
	}
	return f, f.Validate()
}

// Validate rejects a non-power-of-two resolution or an unrecognized mode,
// matching spec.md §6.3's "R power of two ... M in {0,1}" contract.
func (f BuilderFlags) Validate() error {
	if f.Resolution <= 0 || f.Resolution&(f.Resolution-1) != 0 {
		return errors.Errorf("resolution %d is not a positive power of two", f.Resolution)
	}
	if f.Mode != ModeInMemory && f.Mode != ModeOnDisk {
		return errors.Errorf("mode %d is not one of {0 (in-memory), 1 (on-disk)}", f.Mode)
	}
	if f.NumWorkers <= 0 {
		return errors.Errorf("workers must be positive, got %d", f.NumWorkers)
	}
	return nil
}

// ViewerFlags is the validated configuration for `svo view`.
type ViewerFlags struct {
	InputPath  string
	OutputPath string
	NumFrames  int
	Width      int
	Height     int
	NumWorkers int
}

// NewViewerFlagsFromContext reads and validates a ViewerFlags from a cli
// context.
func NewViewerFlagsFromContext(ctx *cli.Context) (ViewerFlags, error) {
	if ctx.NArg() != 1 {
		return ViewerFlags{}, errors.Errorf("expected exactly 1 argument: <input.oct>, got %d", ctx.NArg())
	}

	f := ViewerFlags{
		InputPath:  ctx.Args().Get(0),
		OutputPath: ctx.String("out"),
		NumFrames:  ctx.Int("frames"),
		Width:      ctx.Int("width"),
		Height:     ctx.Int("height"),
		NumWorkers: ctx.Int("workers"),
	}
	return f, f.Validate()
}

// Validate rejects a non-positive frame count or frame dimensions.
func (f ViewerFlags) Validate() error {
	if f.NumFrames <= 0 {
		return errors.Errorf("frames must be positive, got %d", f.NumFrames)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Errorf("width/height must be positive, got %dx%d", f.Width, f.Height)
	}
	if f.NumWorkers <= 0 {
		return errors.Errorf("workers must be positive, got %d", f.NumWorkers)
	}
	return nil
}
