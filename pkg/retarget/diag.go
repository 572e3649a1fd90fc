package retarget

import (
	"go.uber.org/zap"

	"github.com/mocapkit/retarget/pkg/bonemap"
)

// WarningCode classifies a non-fatal diagnostic.
type WarningCode string

const (
	// WarnUnresolvedBone marks a mapping entry dropped because a joint
	// name did not resolve.
	WarnUnresolvedBone WarningCode = "unresolved_bone"

	// WarnMissingSourceSample marks a joint/frame the source evaluator
	// could not sample; the frame falls back to the target rest pose.
	WarnMissingSourceSample WarningCode = "missing_source_sample"
)

// Warning is one non-fatal diagnostic. The run continues; warnings are
// accumulated and reported alongside the output.
type Warning struct {
	Code   WarningCode
	Joint  string
	Side   string // "source" or "target", when it applies
	Frame  int    // -1 when the warning is not frame-specific
	Reason string
}

// Diagnostics is the ordered list of warnings produced by a run.
type Diagnostics []Warning

// Count returns the number of warnings with the given code.
func (d Diagnostics) Count(code WarningCode) int {
	n := 0
	for _, w := range d {
		if w.Code == code {
			n++
		}
	}
	return n
}

// Log writes every warning to the logger at Warn level.
func (d Diagnostics) Log(log *zap.Logger) {
	for _, w := range d {
		fields := []zap.Field{
			zap.String("code", string(w.Code)),
			zap.String("joint", w.Joint),
		}
		if w.Side != "" {
			fields = append(fields, zap.String("side", w.Side))
		}
		if w.Frame >= 0 {
			fields = append(fields, zap.Int("frame", w.Frame))
		}
		log.Warn(w.Reason, fields...)
	}
}

// unresolvedWarnings converts dropped mapping entries into diagnostics.
func unresolvedWarnings(dropped []bonemap.Unresolved) Diagnostics {
	out := make(Diagnostics, 0, len(dropped))
	for _, u := range dropped {
		out = append(out, Warning{
			Code:   WarnUnresolvedBone,
			Joint:  u.Name,
			Side:   u.Side,
			Frame:  -1,
			Reason: u.Reason,
		})
	}
	return out
}
