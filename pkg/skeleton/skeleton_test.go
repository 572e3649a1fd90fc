package skeleton

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestAddValidation(t *testing.T) {
	s := New("test")

	root, err := s.Add(Joint{Name: "Root", Parent: NoParent})
	if err != nil {
		t.Fatalf("adding root: %v", err)
	}
	if root != 0 {
		t.Errorf("expected root index 0, got %d", root)
	}

	if _, err := s.Add(Joint{Name: "", Parent: root}); err == nil {
		t.Error("expected error for empty joint name")
	}
	if _, err := s.Add(Joint{Name: "Root", Parent: root}); err == nil {
		t.Error("expected error for duplicate joint name")
	}
	if _, err := s.Add(Joint{Name: "Other", Parent: NoParent}); err == nil {
		t.Error("expected error for second root")
	}
	if _, err := s.Add(Joint{Name: "Orphan", Parent: 5}); err == nil {
		t.Error("expected error for forward parent reference")
	}

	hips, err := s.Add(Joint{Name: "Hips", Parent: root, Translation: mgl64.Vec3{0, 1, 0}})
	if err != nil {
		t.Fatalf("adding hips: %v", err)
	}
	if hips != 1 {
		t.Errorf("expected hips index 1, got %d", hips)
	}

	// Zero scale defaults to unit scale
	if got := s.Joint(hips).Scale; got != (mgl64.Vec3{1, 1, 1}) {
		t.Errorf("expected unit scale default, got %v", got)
	}

	if err := s.Validate(); err != nil {
		t.Errorf("valid skeleton failed validation: %v", err)
	}
}

func TestIndexAndNames(t *testing.T) {
	s := New("test")
	s.Add(Joint{Name: "Root", Parent: NoParent})
	s.Add(Joint{Name: "Hips", Parent: 0})
	s.Add(Joint{Name: "Spine", Parent: 1})

	if i, ok := s.Index("Spine"); !ok || i != 2 {
		t.Errorf("expected Spine at index 2, got %d (ok=%v)", i, ok)
	}
	if _, ok := s.Index("Missing"); ok {
		t.Error("expected Missing to be absent")
	}
	if !s.Contains("Hips") {
		t.Error("expected Contains(Hips) to be true")
	}

	names := s.Names()
	want := []string{"Root", "Hips", "Spine"}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("names[%d]: expected %s, got %s", i, n, names[i])
		}
	}

	if s.Root() != 0 {
		t.Errorf("expected root index 0, got %d", s.Root())
	}
}

func TestValidateEmpty(t *testing.T) {
	s := New("empty")
	if err := s.Validate(); err == nil {
		t.Error("expected error validating empty skeleton")
	}
}

func TestWorldTranslation(t *testing.T) {
	s := New("test")
	s.Add(Joint{Name: "Root", Parent: NoParent, Rotation: mgl64.QuatIdent()})
	s.Add(Joint{Name: "Hips", Parent: 0, Translation: mgl64.Vec3{0, 1, 0}, Rotation: mgl64.QuatIdent()})
	s.Add(Joint{Name: "Spine", Parent: 1, Translation: mgl64.Vec3{0, 0.5, 0}, Rotation: mgl64.QuatIdent()})

	got := s.WorldTranslation(2)
	want := mgl64.Vec3{0, 1.5, 0}
	if !vecNear(got, want, 1e-12) {
		t.Errorf("expected world translation %v, got %v", want, got)
	}
}

func TestWorldTranslationRotatedParent(t *testing.T) {
	// Parent rotated 90 degrees about Z carries the child's +Y offset
	// onto -X.
	s := New("test")
	s.Add(Joint{Name: "Root", Parent: NoParent, Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})})
	s.Add(Joint{Name: "Child", Parent: 0, Translation: mgl64.Vec3{0, 1, 0}, Rotation: mgl64.QuatIdent()})

	got := s.WorldTranslation(1)
	want := mgl64.Vec3{-1, 0, 0}
	if !vecNear(got, want, 1e-9) {
		t.Errorf("expected world translation %v, got %v", want, got)
	}
}

func TestWorldTranslationPreRotation(t *testing.T) {
	pre := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	s := New("test")
	s.Add(Joint{Name: "Root", Parent: NoParent, Rotation: mgl64.QuatIdent(), PreRotation: &pre})
	s.Add(Joint{Name: "Child", Parent: 0, Translation: mgl64.Vec3{0, 1, 0}, Rotation: mgl64.QuatIdent()})

	got := s.WorldTranslation(1)
	want := mgl64.Vec3{-1, 0, 0}
	if !vecNear(got, want, 1e-9) {
		t.Errorf("expected pre-rotation to apply, want %v, got %v", want, got)
	}
}

func vecNear(a, b mgl64.Vec3, tol float64) bool {
	return math.Abs(a.X()-b.X()) < tol &&
		math.Abs(a.Y()-b.Y()) < tol &&
		math.Abs(a.Z()-b.Z()) < tol
}
