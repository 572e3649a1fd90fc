// Package scene defines the contract between the retargeting engine and
// the external scene-graph library that owns the actual file formats.
// The engine consumes joint hierarchies, declared axis conventions and
// sampled animation curves through these interfaces and hands its baked
// output back to a Writer; it never touches scene files itself.
package scene

import (
	"github.com/mocapkit/retarget/pkg/anim"
	"github.com/mocapkit/retarget/pkg/skeleton"
)

// Take identifies one animation take in a scene with its time span in
// seconds.
type Take struct {
	Name  string
	Start float64
	End   float64
}

// Duration returns the take length in seconds.
func (t Take) Duration() float64 {
	return t.End - t.Start
}

// Scene is a loaded scene viewed through the collaborator contract.
type Scene interface {
	// Name identifies the scene for diagnostics, typically its path.
	Name() string

	// Skeleton returns the scene's joint hierarchy.
	Skeleton() (*skeleton.Skeleton, error)

	// Takes lists the animation takes present in the scene.
	Takes() []Take

	// Evaluator returns a time-to-local-transform evaluator for the
	// named take. An empty name selects the first take.
	Evaluator(take string) (Evaluator, error)

	// Axes returns the scene's declared axis system and unit scale.
	Axes() AxisSystem
}

// Evaluator samples a take's local joint transforms at arbitrary times.
// Implementations interpolate between stored keyframes; the engine only
// relies on the evaluation itself, not the interpolation scheme.
//
// The engine samples frames from parallel workers, so Sample must be
// safe for concurrent calls. Implementations should resolve their
// keyframe data up front rather than caching per call.
type Evaluator interface {
	// Span returns the take's start and end time in seconds.
	Span() (start, end float64)

	// Sample returns the joint's interpolated local transform at time t.
	// ok is false when the take carries no curves for the joint.
	Sample(joint string, t float64) (tf anim.Transform, ok bool)
}

// Writer persists a skeleton plus one baked clip as a new scene.
type Writer interface {
	Write(path string, skel *skeleton.Skeleton, clip *anim.Clip) error
}
