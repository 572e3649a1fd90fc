package retarget

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/mocapkit/retarget/pkg/scene"
)

func vecNear(a, b mgl64.Vec3, tol float64) bool {
	return scalar.EqualWithinAbs(a.X(), b.X(), tol) &&
		scalar.EqualWithinAbs(a.Y(), b.Y(), tol) &&
		scalar.EqualWithinAbs(a.Z(), b.Z(), tol)
}

func quatNear(a, b mgl64.Quat, tol float64) bool {
	// q and -q are the same rotation.
	return scalar.EqualWithinAbs(math.Abs(a.Dot(b)), 1, tol)
}

func TestIdentitySpace(t *testing.T) {
	s := IdentitySpace(2.5)
	if s.Converting() {
		t.Error("expected identity space to skip conversion")
	}

	q := mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0})
	if got := s.ConvertRotation(q); got != q {
		t.Errorf("expected rotation unchanged, got %v", got)
	}

	got := s.ConvertTranslation(mgl64.Vec3{1, 2, 3})
	want := mgl64.Vec3{2.5, 5, 7.5}
	if !vecNear(got, want, 1e-12) {
		t.Errorf("expected scaled translation %v, got %v", want, got)
	}
}

func TestUnitConversion(t *testing.T) {
	maya, _ := scene.Preset("maya-y-up") // centimeters
	gltf, _ := scene.Preset("gltf")      // meters

	s := NewSpaceTransform(maya, gltf, 1)

	got := s.ConvertTranslation(mgl64.Vec3{100, 0, 0})
	want := mgl64.Vec3{1, 0, 0}
	if !vecNear(got, want, 1e-9) {
		t.Errorf("expected 100cm to become 1m, got %v", got)
	}

	// Same axes, so the remap rotation is the identity
	if !quatNear(s.Rotation, mgl64.QuatIdent(), 1e-12) {
		t.Errorf("expected identity remap rotation, got %v", s.Rotation)
	}
}

func TestZUpToYUp(t *testing.T) {
	mayaZ, _ := scene.Preset("maya-z-up")
	gltf, _ := scene.Preset("gltf")

	s := NewSpaceTransform(mayaZ, gltf, 1)

	// The source up axis lands on the target up axis
	got := s.ConvertTranslation(mgl64.Vec3{0, 0, 100})
	want := mgl64.Vec3{0, 1, 0}
	if !vecNear(got, want, 1e-9) {
		t.Errorf("expected source up to map to target up, got %v", got)
	}

	// A rotation about the source up axis becomes a rotation about the
	// target up axis: conjugate it and check its action on the right axis.
	spin := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	converted := s.ConvertRotation(spin)
	rotated := converted.Rotate(mgl64.Vec3{1, 0, 0})
	if !vecNear(rotated, mgl64.Vec3{0, 0, 1}, 1e-9) {
		t.Errorf("expected converted spin about +Y, right axis went to %v", rotated)
	}
}

func TestHandednessFlip(t *testing.T) {
	directx, _ := scene.Preset("directx") // left-handed
	gltf, _ := scene.Preset("gltf")

	s := NewSpaceTransform(directx, gltf, 1)

	if s.Flip == (mgl64.Vec3{1, 1, 1}) {
		t.Fatal("expected a flip axis for a handedness mismatch")
	}
	if s.Flip.X() != -1 || s.Flip.Y() != 1 || s.Flip.Z() != 1 {
		t.Errorf("expected flip on X, got %v", s.Flip)
	}

	got := s.ConvertTranslation(mgl64.Vec3{100, 200, 300})
	want := mgl64.Vec3{-1, 2, 3}
	if !vecNear(got, want, 1e-9) {
		t.Errorf("expected X negated and units converted, got %v", got)
	}

	// The remap rotation itself stays proper
	m := s.Rotation.Mat4()
	det := m.Det()
	if !scalar.EqualWithinAbs(det, 1, 1e-9) {
		t.Errorf("expected proper rotation (det 1), got det %g", det)
	}
}

func buildRestSkeleton(t *testing.T, hipsHeight float64) *RestPose {
	t.Helper()
	skel := newTestSkeleton(t, testJoint{"Root", -1, mgl64.Vec3{}},
		testJoint{"Hips", 0, mgl64.Vec3{0, hipsHeight, 0}},
		testJoint{"Spine", 1, mgl64.Vec3{0, 0.5, 0}})
	rest, err := ExtractRestPose(skel, nil, 0)
	if err != nil {
		t.Fatalf("extracting rest pose: %v", err)
	}
	return rest
}

func TestComputeScaleFactor(t *testing.T) {
	up := mgl64.Vec3{0, 1, 0}
	src := buildRestSkeleton(t, 1.0)
	tgt := buildRestSkeleton(t, 2.0)

	factor, err := ComputeScaleFactor(src, up, "Hips", tgt, up, "Hips")
	if err != nil {
		t.Fatalf("computing scale factor: %v", err)
	}
	if !scalar.EqualWithinAbs(factor, 2.0, 1e-12) {
		t.Errorf("expected factor 2.0, got %g", factor)
	}
}

func TestComputeScaleFactorMissingJoint(t *testing.T) {
	up := mgl64.Vec3{0, 1, 0}
	src := buildRestSkeleton(t, 1.0)
	tgt := buildRestSkeleton(t, 2.0)

	_, err := ComputeScaleFactor(src, up, "Pelvis", tgt, up, "Hips")
	if err == nil {
		t.Fatal("expected error for missing hips joint")
	}
	if !errors.Is(err, ErrScaleComputation) {
		t.Errorf("expected ErrScaleComputation, got %v", err)
	}
}

func TestComputeScaleFactorZeroHeight(t *testing.T) {
	up := mgl64.Vec3{0, 1, 0}
	src := buildRestSkeleton(t, 0)
	tgt := buildRestSkeleton(t, 2.0)

	_, err := ComputeScaleFactor(src, up, "Hips", tgt, up, "Hips")
	if err == nil {
		t.Fatal("expected error for zero source hips height")
	}
	if !errors.Is(err, ErrScaleComputation) {
		t.Errorf("expected ErrScaleComputation, got %v", err)
	}
}
