package retarget

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mocapkit/retarget/pkg/anim"
	"github.com/mocapkit/retarget/pkg/scene"
	"github.com/mocapkit/retarget/pkg/skeleton"
)

// AxisMask selects a subset of translation axes.
type AxisMask struct {
	X, Y, Z bool
}

// ParseAxisMask parses a subset such as "XZ" or "y". The empty string
// selects no axes.
func ParseAxisMask(s string) (AxisMask, error) {
	var m AxisMask
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		switch r {
		case 'X':
			m.X = true
		case 'Y':
			m.Y = true
		case 'Z':
			m.Z = true
		default:
			return AxisMask{}, fmt.Errorf("invalid axis %q in mask %q", string(r), s)
		}
	}
	return m, nil
}

// Apply zeroes the components outside the mask.
func (m AxisMask) Apply(v mgl64.Vec3) mgl64.Vec3 {
	out := mgl64.Vec3{}
	if m.X {
		out[0] = v.X()
	}
	if m.Y {
		out[1] = v.Y()
	}
	if m.Z {
		out[2] = v.Z()
	}
	return out
}

// Overlaps reports whether two masks share an axis. Root-motion and
// hips-translation subsets must be disjoint so the same motion is never
// represented twice.
func (m AxisMask) Overlaps(other AxisMask) bool {
	return (m.X && other.X) || (m.Y && other.Y) || (m.Z && other.Z)
}

func (m AxisMask) String() string {
	var b strings.Builder
	if m.X {
		b.WriteByte('X')
	}
	if m.Y {
		b.WriteByte('Y')
	}
	if m.Z {
		b.WriteByte('Z')
	}
	return b.String()
}

// rootMotion describes the synthetic-root translation split for one
// run. When the target skeleton has a designated root joint with no
// source counterpart, the root's translation curve is derived from the
// source hips' world motion; otherwise the split is disabled and the
// hips carry their full mapped translation.
type rootMotion struct {
	enabled  bool
	rootName string
	rootIdx  int // target arena index
	rootAxes AxisMask
	hipsAxes AxisMask
}

// sourceWorldTranslation composes sampled local transforms from the
// root down to joint idx at time t. Joints the evaluator cannot sample
// fall back to their rest transform.
func sourceWorldTranslation(skel *skeleton.Skeleton, eval scene.Evaluator, idx int, t float64) mgl64.Vec3 {
	// Collect the ancestor chain root-first.
	var chain []int
	for i := idx; i != skeleton.NoParent; i = skel.Joint(i).Parent {
		chain = append(chain, i)
	}
	world := mgl64.Ident4()
	for k := len(chain) - 1; k >= 0; k-- {
		j := skel.Joint(chain[k])
		tf := anim.Transform{Translation: j.Translation, Rotation: j.Rotation, Scale: j.Scale}
		if eval != nil {
			if sampled, ok := eval.Sample(j.Name, t); ok {
				tf = sampled
			}
		}
		rotMat := tf.Rotation.Mat4()
		if j.PreRotation != nil {
			rotMat = j.PreRotation.Mat4().Mul4(rotMat)
		}
		if j.PostRotation != nil {
			rotMat = rotMat.Mul4(j.PostRotation.Mat4())
		}
		local := mgl64.Translate3D(tf.Translation.X(), tf.Translation.Y(), tf.Translation.Z()).
			Mul4(rotMat).
			Mul4(mgl64.Scale3D(tf.Scale.X(), tf.Scale.Y(), tf.Scale.Z()))
		world = world.Mul4(local)
	}
	return mgl64.Vec3{world.At(0, 3), world.At(1, 3), world.At(2, 3)}
}
