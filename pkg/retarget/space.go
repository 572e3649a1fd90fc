package retarget

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mocapkit/retarget/pkg/scene"
)

// SpaceTransform converts source-space rotations and translations into
// target space: an axis-remap rotation, a handedness flip carried as
// per-axis scale signs, and a uniform translation scale. Computed once
// per run and immutable afterwards.
type SpaceTransform struct {
	Rotation mgl64.Quat
	// Flip holds +1/-1 per target axis. A -1 marks the axis whose sign
	// absorbs a handedness difference between the two bases; the
	// rotation itself stays orthonormal.
	Flip mgl64.Vec3
	// Scale multiplies all converted translations: the skeleton
	// proportion ratio times the unit ratio between the two scenes.
	Scale float64

	convert bool
}

// NewSpaceTransform derives the conversion between two declared axis
// systems. The minimal rotation mapping the source orthonormal basis
// onto the target's is targetBasis times the source basis transposed.
// When exactly one of the bases is left-handed that product would be a
// reflection; the target's right axis is negated to keep the rotation
// proper and the reflection is recorded in Flip instead.
func NewSpaceTransform(src, tgt scene.AxisSystem, scaleFactor float64) SpaceTransform {
	unitRatio := 1.0
	if src.UnitsPerMeter > 0 && tgt.UnitsPerMeter > 0 {
		unitRatio = tgt.UnitsPerMeter / src.UnitsPerMeter
	}

	flip := mgl64.Vec3{1, 1, 1}
	tgtRight := tgt.Right
	if src.RightHanded() != tgt.RightHanded() {
		idx := dominantAxis(tgt.Right)
		flip[idx] = -1
		tgtRight = tgt.Right.Mul(-1)
	}

	srcBasis := src.Basis()
	tgtBasis := mgl64.Mat3FromCols(tgtRight, tgt.Up, tgt.Front)
	rot := tgtBasis.Mul3(srcBasis.Transpose())

	return SpaceTransform{
		Rotation: mgl64.Mat4ToQuat(rot.Mat4()).Normalize(),
		Flip:     flip,
		Scale:    scaleFactor * unitRatio,
		convert:  true,
	}
}

// IdentitySpace returns a transform that skips axis conversion entirely
// (both scenes already share the target's space) while still applying
// the proportion scale factor to translations.
func IdentitySpace(scaleFactor float64) SpaceTransform {
	return SpaceTransform{
		Rotation: mgl64.QuatIdent(),
		Flip:     mgl64.Vec3{1, 1, 1},
		Scale:    scaleFactor,
	}
}

// Converting reports whether axis conversion is active.
func (s SpaceTransform) Converting() bool {
	return s.convert
}

// ConvertRotation conjugates a source-space rotation into target space.
func (s SpaceTransform) ConvertRotation(q mgl64.Quat) mgl64.Quat {
	if !s.convert {
		return q
	}
	return s.Rotation.Mul(q).Mul(s.Rotation.Inverse()).Normalize()
}

// ConvertTranslation remaps a source-space translation into target
// space and applies the uniform scale.
func (s SpaceTransform) ConvertTranslation(v mgl64.Vec3) mgl64.Vec3 {
	out := v
	if s.convert {
		out = s.Rotation.Rotate(out)
		out = mgl64.Vec3{out.X() * s.Flip.X(), out.Y() * s.Flip.Y(), out.Z() * s.Flip.Z()}
	}
	return out.Mul(s.Scale)
}

// dominantAxis returns the index of the component with the largest
// magnitude.
func dominantAxis(v mgl64.Vec3) int {
	idx := 0
	best := math.Abs(v.X())
	if a := math.Abs(v.Y()); a > best {
		idx, best = 1, a
	}
	if a := math.Abs(v.Z()); a > best {
		idx = 2
	}
	return idx
}

// ComputeScaleFactor returns the ratio of the target skeleton's
// hips-above-root height to the source's, each measured along that
// skeleton's own up axis at rest.
func ComputeScaleFactor(
	srcRest *RestPose, srcUp mgl64.Vec3, srcHips string,
	tgtRest *RestPose, tgtUp mgl64.Vec3, tgtHips string,
) (float64, error) {
	srcHeight, err := hipsHeight(srcRest, srcUp, srcHips)
	if err != nil {
		return 0, err
	}
	tgtHeight, err := hipsHeight(tgtRest, tgtUp, tgtHips)
	if err != nil {
		return 0, err
	}
	if srcHeight < 1e-12 {
		return 0, fmt.Errorf("%w: source hips %q has zero height above root", ErrScaleComputation, srcHips)
	}
	return tgtHeight / srcHeight, nil
}

func hipsHeight(rest *RestPose, up mgl64.Vec3, hips string) (float64, error) {
	skel := rest.Skeleton()
	hipsIdx, ok := skel.Index(hips)
	if !ok {
		return 0, fmt.Errorf("%w: hips joint %q not found in skeleton %q", ErrScaleComputation, hips, skel.Name())
	}
	rootIdx := skel.Root()
	if rootIdx < 0 {
		return 0, fmt.Errorf("%w: skeleton %q has no root", ErrScaleComputation, skel.Name())
	}
	delta := rest.WorldPosition(hipsIdx).Sub(rest.WorldPosition(rootIdx))
	return math.Abs(delta.Dot(up)), nil
}
