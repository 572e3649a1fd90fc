// retarget is a CLI utility for transferring skeletal animation between
// differently-proportioned rigs.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/mocapkit/retarget/internal/config"
	"github.com/mocapkit/retarget/internal/logger"
	"github.com/mocapkit/retarget/pkg/anim"
	"github.com/mocapkit/retarget/pkg/bonemap"
	"github.com/mocapkit/retarget/pkg/retarget"
	"github.com/mocapkit/retarget/pkg/scene"
	"github.com/mocapkit/retarget/pkg/scene/gltfscene"
	"github.com/mocapkit/retarget/pkg/skeleton"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		cmdRun(args)
	case "bones", "ls":
		cmdBones(args)
	case "inspect", "info":
		cmdInspect(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`retarget - skeletal animation retargeting utility

Usage:
  retarget <command> [options]

Commands:
  run -src <clip> -srcref <rest> -tgtref <rest> -map <file> -o <out>
                                     Retarget a clip onto a target rig
  bones <source> <target>            List both skeletons' joint names
  inspect <scene>                    Show scene information

Examples:
  retarget run -src walk.glb -srcref src_tpose.glb -tgtref tgt_tpose.glb -map bones.yaml -o walk_tgt.glb
  retarget run -src walk.glb -srcref src_tpose.glb -tgtref tgt_tpose.glb -map bones.yaml -o out.glb -convert-space -scale 1.5
  retarget bones src_tpose.glb tgt_tpose.glb
  retarget inspect walk.glb`)
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	srcPath := fs.String("src", "", "Source clip scene")
	srcRefPath := fs.String("srcref", "", "Source reference-pose scene")
	tgtRefPath := fs.String("tgtref", "", "Target reference-pose scene")
	mapPath := fs.String("map", "", "Bone mapping file")
	outPath := fs.String("o", "", "Output scene path")
	takeName := fs.String("src-take", "", "Source take to retarget (default: first)")
	debugFrame := fs.Int("debug-frame", -1, "Log per-joint rotations for one frame index")
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	if *srcPath == "" || *srcRefPath == "" || *tgtRefPath == "" || *mapPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: retarget run -src <clip> -srcref <rest> -tgtref <rest> -map <file> -o <out>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	src := openScene(*srcPath)
	srcRef := openScene(*srcRefPath)
	tgtRef := openScene(*tgtRefPath)

	entries := loadMapping(*mapPath)

	opts, err := buildOptions(cfg, *takeName, *debugFrame, log)
	if err != nil {
		log.Error("invalid options", zap.Error(err))
		os.Exit(1)
	}

	result, err := retarget.Run(src, srcRef, tgtRef, entries, opts)
	if err != nil {
		log.Error("retarget failed", zap.Error(err))
		os.Exit(1)
	}
	result.Diagnostics.Log(log)

	tgtSkel, err := tgtRef.Skeleton()
	if err != nil {
		log.Error("target skeleton", zap.Error(err))
		os.Exit(1)
	}

	w := gltfscene.Writer{Generator: "mocapkit-retarget"}
	if err := w.Write(*outPath, tgtSkel, result.Clip); err != nil {
		log.Error("writing output", zap.String("path", *outPath), zap.Error(err))
		os.Exit(1)
	}

	log.Info("output written",
		zap.String("path", *outPath),
		zap.String("take", result.Clip.Name),
		zap.Int("frames", result.Clip.Frames),
		zap.Float64("scale", result.ScaleFactor),
		zap.Int("warnings", len(result.Diagnostics)))
}

func cmdBones(args []string) {
	fs := flag.NewFlagSet("bones", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: retarget bones <source> <target>")
		os.Exit(1)
	}

	srcScene := openScene(fs.Arg(0))
	tgtScene := openScene(fs.Arg(1))

	printBones("Source", fs.Arg(0), srcScene)
	fmt.Println()
	printBones("Target", fs.Arg(1), tgtScene)
}

func printBones(side, path string, s scene.Scene) {
	skel, err := s.Skeleton()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %s (%d joints)\n", side, path, skel.Len())
	for _, name := range skel.Names() {
		fmt.Printf("  %s\n", name)
	}
}

func cmdInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	fps := fs.Float64("fps", 30, "Frame rate used for frame counts")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: retarget inspect <scene>")
		os.Exit(1)
	}

	s := openScene(fs.Arg(0))
	skel, err := s.Skeleton()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scene:  %s\n", fs.Arg(0))
	fmt.Printf("Joints: %d\n", skel.Len())
	fmt.Printf("Axes:   %s\n", s.Axes())
	fmt.Println()

	fmt.Println("Hierarchy:")
	printTree(skel, skel.Root(), 0)

	takes := s.Takes()
	fmt.Println()
	if len(takes) == 0 {
		fmt.Println("No animation takes")
		return
	}
	fmt.Printf("Takes (%d):\n", len(takes))
	for _, t := range takes {
		name := t.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  %-24s %.3fs..%.3fs  %.3fs  %d frames @ %g fps\n",
			name, t.Start, t.End, t.Duration(), anim.FrameCount(t.Duration(), *fps), *fps)
	}
}

func printTree(skel *skeleton.Skeleton, idx, depth int) {
	fmt.Printf("  %s%s\n", strings.Repeat("  ", depth), skel.Joint(idx).Name)
	for i := 0; i < skel.Len(); i++ {
		if skel.Joint(i).Parent == idx {
			printTree(skel, i, depth+1)
		}
	}
}

func openScene(path string) scene.Scene {
	s, err := gltfscene.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return s
}

func loadMapping(path string) []bonemap.Entry {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	entries, err := bonemap.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return entries
}

func buildOptions(cfg *config.Config, take string, debugFrame int, log *zap.Logger) (retarget.Options, error) {
	opts := retarget.Options{
		FPS:            cfg.Retarget.FPS,
		RestFrame:      cfg.Retarget.RestFrame,
		SourceTake:     take,
		OutputTake:     cfg.Output.Take,
		ConvertSpace:   cfg.Retarget.ConvertSpace,
		ScaleOverride:  cfg.Retarget.Scale,
		SourceHips:     cfg.Retarget.SourceHips,
		TargetHips:     cfg.Retarget.TargetHips,
		TargetRoot:     cfg.Retarget.TargetRoot,
		RootMotionAxes: cfg.Retarget.RootMotionAxes,
		HipsAxes:       cfg.Retarget.HipsAxes,
		Workers:        cfg.Retarget.Workers,
		Logger:         log,
	}
	if debugFrame >= 0 {
		opts.DebugFrame = debugFrame
		opts.DebugFrameSet = true
	}
	if cfg.Retarget.SourceAxes != "" {
		a, ok := scene.Preset(cfg.Retarget.SourceAxes)
		if !ok {
			return opts, fmt.Errorf("unknown axis preset %q (known: %s)",
				cfg.Retarget.SourceAxes, strings.Join(scene.PresetNames(), ", "))
		}
		opts.SourceAxes = &a
	}
	if cfg.Retarget.TargetAxes != "" {
		a, ok := scene.Preset(cfg.Retarget.TargetAxes)
		if !ok {
			return opts, fmt.Errorf("unknown axis preset %q (known: %s)",
				cfg.Retarget.TargetAxes, strings.Join(scene.PresetNames(), ", "))
		}
		opts.TargetAxes = &a
	}
	return opts, nil
}
