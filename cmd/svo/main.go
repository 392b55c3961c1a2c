// Command svo is the CLI entrypoint exposing the build and view
// subcommands, structured as a single urfave/cli/v2.App the way
// viamrobotics-rdk/cli/viam/main.go registers its command tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/urfave/cli/v2"

	"github.com/tunabrain/sparse-voxel-octrees/config"
	"github.com/tunabrain/sparse-voxel-octrees/matstack"
	"github.com/tunabrain/sparse-voxel-octrees/mesh"
	"github.com/tunabrain/sparse-voxel-octrees/octree"
	"github.com/tunabrain/sparse-voxel-octrees/render"
	"github.com/tunabrain/sparse-voxel-octrees/svoerr"
	"github.com/tunabrain/sparse-voxel-octrees/taskpool"
	"github.com/tunabrain/sparse-voxel-octrees/voxeldata"
	"github.com/tunabrain/sparse-voxel-octrees/voxelize"
)

func main() {
	logger := golog.NewDevelopmentLogger("svo")

	app := &cli.App{
		Name:  "svo",
		Usage: "voxelize a mesh into a sparse voxel octree and raymarch it",
		Commands: []*cli.Command{
			buildCommand(logger),
			viewCommand(logger),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func buildCommand(logger golog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "voxelize a PLY mesh into a compressed octree file",
		ArgsUsage: "<input.ply> <output.oct>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "resolution", Value: 256, Usage: "voxel grid resolution, must be a power of two"},
			&cli.IntFlag{Name: "mode", Value: 0, Usage: "0 = in-memory, 1 = on-disk (writes a temporary dense voxel file first)"},
			&cli.IntFlag{Name: "workers", Value: 8, Usage: "task pool worker count"},
			&cli.IntFlag{Name: "budget-mib", Value: 512, Usage: "cache byte budget in MiB"},
		},
		Action: func(ctx *cli.Context) error {
			flags, err := config.NewBuilderFlagsFromContext(ctx)
			if err != nil {
				return err
			}
			return runBuild(ctx.Context, flags, logger)
		},
	}
}

func viewCommand(logger golog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "raymarch a compressed octree file and save the final frame",
		ArgsUsage: "<input.oct>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Value: "render.png", Usage: "output PNG path for the final frame"},
			&cli.IntFlag{Name: "frames", Value: 1, Usage: "number of frames to render before saving"},
			&cli.IntFlag{Name: "width", Value: 800, Usage: "frame width in pixels"},
			&cli.IntFlag{Name: "height", Value: 600, Usage: "frame height in pixels"},
			&cli.IntFlag{Name: "workers", Value: 8, Usage: "render band worker count"},
		},
		Action: func(ctx *cli.Context) error {
			flags, err := config.NewViewerFlagsFromContext(ctx)
			if err != nil {
				return err
			}
			return runView(ctx.Context, flags, logger)
		},
	}
}

func runBuild(ctx context.Context, flags config.BuilderFlags, logger golog.Logger) error {
	logger.Infow("loading mesh", "path", flags.InputPath)
	m, err := mesh.LoadPLY(flags.InputPath)
	if err != nil {
		return err
	}
	m = m.RescaleToUnitCube()

	pool := taskpool.New(ctx, flags.NumWorkers, logger)
	defer pool.Stop()

	bp := voxelize.New(m, flags.Resolution, flags.NumWorkers, pool)

	var producer voxeldata.BlockProducer = bp
	if flags.Mode == config.ModeOnDisk {
		tmpPath := flags.OutputPath + ".voxel.tmp"
		logger.Infow("writing intermediate dense voxel file", "path", tmpPath)
		if err := voxeldata.WriteDenseFile(tmpPath, flags.Resolution, flags.Resolution, flags.Resolution, bp); err != nil {
			return err
		}
		defer os.Remove(tmpPath)

		diskProducer, err := voxeldata.OpenDenseFile(tmpPath)
		if err != nil {
			return err
		}
		defer diskProducer.Close()
		producer = diskProducer
	}

	budgetBytes := flags.BudgetMiB * 1024 * 1024
	voxels, err := voxeldata.New(ctx, producer, flags.Resolution, flags.Resolution, flags.Resolution, budgetBytes, pool, logger)
	if err != nil {
		return err
	}

	builder := octree.NewBuilder(voxels, logger)
	// RescaleToUnitCube already centers the mesh at the world origin, so
	// the octree's bounding cube is centered there too.
	tree, err := builder.Build(ctx, r3.Vector{}, flags.Resolution)
	if err != nil {
		return err
	}

	logger.Infow("built octree", "words", tree.Count(), "output", flags.OutputPath)
	return tree.Save(flags.OutputPath)
}

func runView(ctx context.Context, flags config.ViewerFlags, logger golog.Logger) error {
	tree, err := octree.Load(flags.InputPath)
	if err != nil {
		return err
	}

	stack := matstack.New()
	orbit := render.NewOrbit(stack, 2.0)

	renderer := render.NewRenderer(tree, stack, flags.Width, flags.Height, flags.NumWorkers, logger)
	fb := render.NewFramebuffer(flags.Width, flags.Height)

	for i := 0; i < flags.NumFrames; i++ {
		if err := renderer.RenderFrame(ctx, fb); err != nil {
			return err
		}
		orbit.DragRotate(0.01, 0)
	}

	sink := render.PNGSink{Path: flags.OutputPath}
	return sink.Present(fb)
}

// exitCodeFor maps the error taxonomy to a process exit code per
// spec.md §6.3: 0 success, 1 argument/parse failure, 2 OutOfBudget, 3 any
// other fatal svoerr kind. This is the "single diagnostic line" handler
// spec.md §7 calls for: one Fprintln of the error to stderr and one
// type-switch; no logger is involved and no stack trace is printed.
func exitCodeFor(err error) int {
	fmt.Fprintln(os.Stderr, err)

	var outOfBudget *svoerr.OutOfBudget
	if errors.As(err, &outOfBudget) {
		return 2
	}

	var ioErr *svoerr.IoError
	var invalidPly *svoerr.InvalidPly
	var taskPanic *svoerr.TaskPanic
	var corrupt *svoerr.CorruptOctree
	switch {
	case errors.As(err, &ioErr), errors.As(err, &invalidPly), errors.As(err, &taskPanic), errors.As(err, &corrupt):
		return 3
	default:
		return 1
	}
}
