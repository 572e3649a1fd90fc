package retarget

import "errors"

// Fatal conditions abort a run before any output is written. Non-fatal
// conditions become Warnings on the result instead.
var (
	// ErrMissingReferenceJoint reports a mapped joint absent from a
	// reference pose, leaving its rest rotation undefined.
	ErrMissingReferenceJoint = errors.New("mapped joint missing from reference pose")

	// ErrScaleComputation reports that the height-reference joints
	// needed for the scale factor are missing and no override was given.
	ErrScaleComputation = errors.New("scale factor computation failed")

	// ErrEmptySourceRange reports a source clip with zero duration.
	ErrEmptySourceRange = errors.New("source clip has zero duration")
)
