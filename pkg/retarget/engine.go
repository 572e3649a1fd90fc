// Package retarget transfers a baked animation from a source skeleton
// onto a differently-proportioned, differently-oriented target skeleton
// using a bone-name correspondence and reference poses for both rigs.
//
// The engine transfers change-from-rest, not absolute orientation: for
// every mapped joint pair the per-frame rotation delta against the
// source rest pose is computed in source-local space, conjugated into
// the common space through the axis-remap rotation, and composed onto
// the target's own rest rotation. A target whose arms hang down at rest
// therefore receives animation correctly from a source posed with arms
// out.
package retarget

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/mocapkit/retarget/pkg/anim"
	"github.com/mocapkit/retarget/pkg/bonemap"
	"github.com/mocapkit/retarget/pkg/scene"
	"github.com/mocapkit/retarget/pkg/skeleton"
)

// Options configures one retarget run. Zero values select the defaults
// noted on each field.
type Options struct {
	// FPS is the output sample rate. Default 30.
	FPS float64
	// RestFrame is the reference-pose frame index. Default 0.
	RestFrame int
	// SourceTake selects the take to retarget; empty means the first.
	SourceTake string
	// OutputTake names the baked clip; empty reuses the source take name.
	OutputTake string

	// ConvertSpace reconciles the two scenes' axis systems and units.
	// When false both scenes are assumed to share the target's space.
	ConvertSpace bool
	// SourceAxes/TargetAxes override the scenes' declared axis systems.
	SourceAxes *scene.AxisSystem
	TargetAxes *scene.AxisSystem

	// ScaleOverride, when positive, is used as the translation scale
	// factor and proportion normalization is skipped.
	ScaleOverride float64

	// SourceHips is the source joint whose motion drives root motion
	// and the scale measurement. Default "Hips".
	SourceHips string
	// TargetHips is the target joint receiving hips translation.
	// Default "Hips".
	TargetHips string
	// TargetRoot designates the target root joint for synthesized root
	// motion. Default "Root".
	TargetRoot string
	// RootMotionAxes restricts the synthesized root translation.
	// Default "XZ".
	RootMotionAxes string
	// HipsAxes restricts the hips translation when root motion is
	// split out. Default "Y". Must be disjoint from RootMotionAxes.
	HipsAxes string

	// Workers bounds frame parallelism. Default runtime.NumCPU().
	Workers int
	// DebugFrame logs per-joint rotations for one frame index. -1 (the
	// value set by default) disables it; the zero value debugs frame 0
	// only when DebugFrameSet is true.
	DebugFrame    int
	DebugFrameSet bool

	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.FPS <= 0 {
		o.FPS = 30
	}
	if o.SourceHips == "" {
		o.SourceHips = "Hips"
	}
	if o.TargetHips == "" {
		o.TargetHips = "Hips"
	}
	if o.TargetRoot == "" {
		o.TargetRoot = "Root"
	}
	if o.RootMotionAxes == "" {
		o.RootMotionAxes = "XZ"
	}
	if o.HipsAxes == "" {
		o.HipsAxes = "Y"
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if !o.DebugFrameSet {
		o.DebugFrame = -1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Result is a completed run: the baked clip plus accumulated non-fatal
// diagnostics. A run either produces one complete, internally
// consistent clip or fails outright with no output at all.
type Result struct {
	Clip        *anim.Clip
	Diagnostics Diagnostics
	Mapping     *bonemap.Mapping
	ScaleFactor float64
	Space       SpaceTransform
}

// pairState is the immutable per-joint-pair state shared by all frame
// workers.
type pairState struct {
	srcName string
	tgtName string

	srcRestInv mgl64.Quat
	tgtRest    mgl64.Quat
	tgtRestT   mgl64.Vec3
	tgtRestS   mgl64.Vec3

	srcPre  *mgl64.Quat
	srcPost *mgl64.Quat

	isHips bool
	buf    *curveBuffer
}

// Run executes a full retarget: source clip scene, source reference
// pose, target reference pose, parsed mapping entries. Fatal conditions
// return an error before any output exists; unresolved bones and
// unsampleable frames become warnings on the Result.
func Run(src, srcRef, tgtRef scene.Scene, entries []bonemap.Entry, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	srcSkel, err := src.Skeleton()
	if err != nil {
		return nil, fmt.Errorf("source scene: %w", err)
	}
	tgtSkel, err := tgtRef.Skeleton()
	if err != nil {
		return nil, fmt.Errorf("target reference scene: %w", err)
	}

	mapping, dropped, err := bonemap.Resolve(entries, srcSkel, tgtSkel)
	if err != nil {
		return nil, err
	}
	diags := unresolvedWarnings(dropped)
	log.Info("bone mapping resolved",
		zap.Int("pairs", mapping.Len()),
		zap.Int("dropped", len(dropped)))

	eval, err := src.Evaluator(opts.SourceTake)
	if err != nil {
		return nil, fmt.Errorf("source scene: %w", err)
	}
	start, end := eval.Span()
	duration := end - start
	if duration <= 0 {
		return nil, fmt.Errorf("%w: take spans %.3fs..%.3fs", ErrEmptySourceRange, start, end)
	}

	srcRest, tgtRest, err := extractRestPoses(srcRef, tgtRef, opts)
	if err != nil {
		return nil, err
	}
	if err := requireMappedJoints(mapping, srcRest, tgtRest); err != nil {
		return nil, err
	}

	srcAxes := src.Axes()
	if opts.SourceAxes != nil {
		srcAxes = *opts.SourceAxes
	}
	tgtAxes := tgtRef.Axes()
	if opts.TargetAxes != nil {
		tgtAxes = *opts.TargetAxes
	}

	scaleFactor := opts.ScaleOverride
	if scaleFactor <= 0 {
		scaleFactor, err = ComputeScaleFactor(
			srcRest, srcAxes.Up, opts.SourceHips,
			tgtRest, tgtAxes.Up, opts.TargetHips,
		)
		if err != nil {
			return nil, err
		}
	}

	var space SpaceTransform
	if opts.ConvertSpace {
		space = NewSpaceTransform(srcAxes, tgtAxes, scaleFactor)
	} else {
		space = IdentitySpace(scaleFactor)
	}
	log.Info("space normalized",
		zap.Float64("scale", scaleFactor),
		zap.Bool("axisConversion", space.Converting()),
		zap.String("sourceAxes", srcAxes.String()),
		zap.String("targetAxes", tgtAxes.String()))

	split, err := resolveRootMotion(mapping, srcSkel, tgtSkel, opts)
	if err != nil {
		return nil, err
	}

	frames := anim.FrameCount(duration, opts.FPS)
	bk := newBaker(opts.FPS, frames)

	var rootBuf *curveBuffer
	var rootRest anim.Transform
	if split.enabled {
		rootBuf = bk.addCurve(split.rootName)
		rj := tgtSkel.Joint(split.rootIdx)
		rootRest = anim.Transform{
			Translation: rj.Translation,
			Rotation:    tgtRest.Local(split.rootIdx),
			Scale:       rj.Scale,
		}
	}

	pairs, err := buildPairStates(mapping, srcRest, tgtRest, tgtSkel, bk, opts)
	if err != nil {
		return nil, err
	}

	// Does any output channel need the source hips world position?
	srcHipsIdx, srcHipsOK := srcSkel.Index(opts.SourceHips)
	needHipsWorld := srcHipsOK && (split.enabled || hasHipsPair(pairs))

	frameWarns := make([]Diagnostics, frames)

	var wg sync.WaitGroup
	workers := opts.Workers
	if workers > frames {
		workers = frames
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for f := w; f < frames; f += workers {
				t := start + float64(f)/opts.FPS
				var hipsWorld mgl64.Vec3
				if needHipsWorld {
					hipsWorld = sourceWorldTranslation(srcSkel, eval, srcHipsIdx, t)
				}
				frameWarns[f] = computeFrame(f, t, eval, pairs, space, split, hipsWorld, opts, log)
				if rootBuf != nil {
					rootBuf.set(f, anim.Transform{
						Translation: split.rootAxes.Apply(space.ConvertTranslation(hipsWorld)),
						Rotation:    rootRest.Rotation,
						Scale:       rootRest.Scale,
					})
				}
			}
		}(w)
	}
	wg.Wait()

	// Merge per-frame warnings in frame order so output is identical
	// for any worker count.
	for _, ws := range frameWarns {
		diags = append(diags, ws...)
	}

	takeName := opts.OutputTake
	if takeName == "" {
		takeName = takeNameOf(src, opts.SourceTake)
	}
	clip, err := bk.bake(takeName)
	if err != nil {
		return nil, err
	}

	log.Info("retarget complete",
		zap.String("take", clip.Name),
		zap.Int("frames", clip.Frames),
		zap.Int("joints", len(clip.Curves)),
		zap.Int("warnings", len(diags)))

	return &Result{
		Clip:        clip,
		Diagnostics: diags,
		Mapping:     mapping,
		ScaleFactor: scaleFactor,
		Space:       space,
	}, nil
}

// computeFrame fills every pair's slot for frame f. Pure given the
// precomputed state; workers call it on disjoint frames.
func computeFrame(
	f int, t float64, eval scene.Evaluator,
	pairs []pairState, space SpaceTransform, split rootMotion,
	hipsWorld mgl64.Vec3, opts Options, log *zap.Logger,
) Diagnostics {
	var warns Diagnostics
	debug := f == opts.DebugFrame

	for i := range pairs {
		p := &pairs[i]

		sampled, ok := eval.Sample(p.srcName, t)
		if !ok {
			warns = append(warns, Warning{
				Code:   WarnMissingSourceSample,
				Joint:  p.srcName,
				Side:   "source",
				Frame:  f,
				Reason: fmt.Sprintf("no source sample for %q at %.4fs, holding target rest", p.srcName, t),
			})
			p.buf.set(f, anim.Transform{
				Translation: p.tgtRestT,
				Rotation:    p.tgtRest,
				Scale:       p.tgtRestS,
			})
			continue
		}

		// Fold static offsets into the animated rotation the same way
		// the rest extraction did, so the delta cancels them out.
		rotMat := sampled.Rotation.Mat4()
		if p.srcPre != nil {
			rotMat = p.srcPre.Mat4().Mul4(rotMat)
		}
		if p.srcPost != nil {
			rotMat = rotMat.Mul4(p.srcPost.Mat4())
		}
		qs := mgl64.Mat4ToQuat(rotMat).Normalize()

		// Delta from rest in source-local space, conjugated into the
		// common space, composed onto the target's own rest rotation.
		delta := qs.Mul(p.srcRestInv)
		delta = space.ConvertRotation(delta)
		outRot := delta.Mul(p.tgtRest).Normalize()

		outT := p.tgtRestT
		if p.isHips {
			converted := space.ConvertTranslation(hipsWorld)
			if split.enabled {
				outT = split.hipsAxes.Apply(converted)
			} else {
				outT = converted
			}
		}

		p.buf.set(f, anim.Transform{
			Translation: outT,
			Rotation:    outRot,
			Scale:       p.tgtRestS,
		})

		if debug {
			atRest := scalar.EqualWithinAbs(math.Abs(delta.Dot(mgl64.QuatIdent())), 1, 1e-9)
			log.Debug("frame detail",
				zap.Int("frame", f),
				zap.String("source", p.srcName),
				zap.String("target", p.tgtName),
				zap.Any("sampled", qs),
				zap.Any("delta", delta),
				zap.Any("retargeted", outRot),
				zap.Bool("atRest", atRest))
		}
	}
	return warns
}

// extractRestPoses samples both reference scenes at the configured rest
// frame.
func extractRestPoses(srcRef, tgtRef scene.Scene, opts Options) (*RestPose, *RestPose, error) {
	srcRest, err := extractOneRest(srcRef, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("source reference: %w", err)
	}
	tgtRest, err := extractOneRest(tgtRef, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("target reference: %w", err)
	}
	return srcRest, tgtRest, nil
}

func extractOneRest(ref scene.Scene, opts Options) (*RestPose, error) {
	skel, err := ref.Skeleton()
	if err != nil {
		return nil, err
	}
	var eval scene.Evaluator
	var t float64
	if len(ref.Takes()) > 0 {
		eval, err = ref.Evaluator("")
		if err != nil {
			return nil, err
		}
		refStart, _ := eval.Span()
		t = refStart + float64(opts.RestFrame)/opts.FPS
	}
	return ExtractRestPose(skel, eval, t)
}

// requireMappedJoints verifies every mapped joint exists in its
// reference pose. Reference and animated scenes may differ, so this is
// distinct from mapping resolution.
func requireMappedJoints(mapping *bonemap.Mapping, srcRest, tgtRest *RestPose) error {
	srcNames := make([]string, 0, mapping.Len())
	tgtNames := make([]string, 0, mapping.Len())
	for _, p := range mapping.Pairs() {
		srcNames = append(srcNames, p.Source)
		tgtNames = append(tgtNames, p.Target)
	}
	if err := srcRest.Require(srcNames); err != nil {
		return err
	}
	return tgtRest.Require(tgtNames)
}

// resolveRootMotion decides whether the root/hips translation split is
// active for this run.
func resolveRootMotion(mapping *bonemap.Mapping, srcSkel, tgtSkel *skeleton.Skeleton, opts Options) (rootMotion, error) {
	rootAxes, err := ParseAxisMask(opts.RootMotionAxes)
	if err != nil {
		return rootMotion{}, err
	}
	hipsAxes, err := ParseAxisMask(opts.HipsAxes)
	if err != nil {
		return rootMotion{}, err
	}
	if rootAxes.Overlaps(hipsAxes) {
		return rootMotion{}, fmt.Errorf("root-motion axes %q and hips axes %q overlap", rootAxes, hipsAxes)
	}

	rootIdx, ok := tgtSkel.Index(opts.TargetRoot)
	if !ok {
		return rootMotion{}, nil
	}
	if _, mapped := mapping.SourceFor(opts.TargetRoot); mapped {
		// The root has its own source counterpart; it is retargeted
		// like any other joint and no motion is synthesized.
		return rootMotion{}, nil
	}
	if !srcSkel.Contains(opts.SourceHips) {
		return rootMotion{}, nil
	}
	return rootMotion{
		enabled:  true,
		rootName: opts.TargetRoot,
		rootIdx:  rootIdx,
		rootAxes: rootAxes,
		hipsAxes: hipsAxes,
	}, nil
}

// buildPairStates precomputes the immutable per-pair state and
// allocates output buffers in mapping order.
func buildPairStates(
	mapping *bonemap.Mapping,
	srcRest, tgtRest *RestPose,
	tgtSkel *skeleton.Skeleton,
	bk *baker,
	opts Options,
) ([]pairState, error) {
	pairs := make([]pairState, 0, mapping.Len())
	for _, mp := range mapping.Pairs() {
		srcLocal, ok := srcRest.LocalByName(mp.Source)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingReferenceJoint, mp.Source)
		}
		tgtLocal, ok := tgtRest.LocalByName(mp.Target)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingReferenceJoint, mp.Target)
		}

		srcIdx, _ := srcRest.Skeleton().Index(mp.Source)
		srcJoint := srcRest.Skeleton().Joint(srcIdx)
		tgtJoint := tgtSkel.Joint(mp.TargetIndex)

		pairs = append(pairs, pairState{
			srcName:    mp.Source,
			tgtName:    mp.Target,
			srcRestInv: srcLocal.Inverse(),
			tgtRest:    tgtLocal,
			tgtRestT:   tgtJoint.Translation,
			tgtRestS:   tgtJoint.Scale,
			srcPre:     srcJoint.PreRotation,
			srcPost:    srcJoint.PostRotation,
			isHips:     mp.Target == opts.TargetHips,
			buf:        bk.addCurve(mp.Target),
		})
	}
	return pairs, nil
}

func hasHipsPair(pairs []pairState) bool {
	for i := range pairs {
		if pairs[i].isHips {
			return true
		}
	}
	return false
}

func takeNameOf(s scene.Scene, requested string) string {
	if requested != "" {
		return requested
	}
	if takes := s.Takes(); len(takes) > 0 {
		return takes[0].Name
	}
	return "Take"
}
