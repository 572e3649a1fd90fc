package retarget

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mocapkit/retarget/pkg/anim"
	"github.com/mocapkit/retarget/pkg/skeleton"
)

type testJoint struct {
	name        string
	parent      int
	translation mgl64.Vec3
}

func newTestSkeleton(t *testing.T, joints ...testJoint) *skeleton.Skeleton {
	t.Helper()
	s := skeleton.New("test")
	for _, j := range joints {
		if _, err := s.Add(skeleton.Joint{
			Name:        j.name,
			Parent:      j.parent,
			Translation: j.translation,
			Rotation:    mgl64.QuatIdent(),
		}); err != nil {
			t.Fatalf("building test skeleton: %v", err)
		}
	}
	return s
}

func TestExtractRestPoseStored(t *testing.T) {
	skel := newTestSkeleton(t,
		testJoint{"Root", -1, mgl64.Vec3{}},
		testJoint{"Hips", 0, mgl64.Vec3{0, 1, 0}},
		testJoint{"Spine", 1, mgl64.Vec3{0, 0.5, 0}})

	rest, err := ExtractRestPose(skel, nil, 0)
	if err != nil {
		t.Fatalf("extracting rest pose: %v", err)
	}

	for i := 0; i < skel.Len(); i++ {
		if !quatNear(rest.Local(i), mgl64.QuatIdent(), 1e-12) {
			t.Errorf("joint %d: expected identity local rotation, got %v", i, rest.Local(i))
		}
		if !quatNear(rest.World(i), mgl64.QuatIdent(), 1e-12) {
			t.Errorf("joint %d: expected identity world rotation, got %v", i, rest.World(i))
		}
	}

	spineIdx, _ := skel.Index("Spine")
	if got := rest.WorldPosition(spineIdx); !vecNear(got, mgl64.Vec3{0, 1.5, 0}, 1e-12) {
		t.Errorf("expected spine world position (0,1.5,0), got %v", got)
	}
}

func TestExtractRestPoseSampled(t *testing.T) {
	skel := newTestSkeleton(t,
		testJoint{"Root", -1, mgl64.Vec3{}},
		testJoint{"Hips", 0, mgl64.Vec3{0, 1, 0}})

	bend := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	eval := &funcEval{
		start: 0, end: 1,
		fn: func(joint string, tm float64) (anim.Transform, bool) {
			tf := anim.Transform{Rotation: mgl64.QuatIdent(), Scale: mgl64.Vec3{1, 1, 1}}
			if joint == "Root" {
				tf.Rotation = bend
			}
			if joint == "Hips" {
				tf.Translation = mgl64.Vec3{0, 1, 0}
			}
			return tf, true
		},
	}

	rest, err := ExtractRestPose(skel, eval, 0)
	if err != nil {
		t.Fatalf("extracting rest pose: %v", err)
	}

	rootIdx, _ := skel.Index("Root")
	if !quatNear(rest.Local(rootIdx), bend, 1e-12) {
		t.Errorf("expected sampled root rotation, got %v", rest.Local(rootIdx))
	}

	// Root's 90-degree Z bend carries the hips' +Y offset onto -X
	hipsIdx, _ := skel.Index("Hips")
	if got := rest.WorldPosition(hipsIdx); !vecNear(got, mgl64.Vec3{-1, 0, 0}, 1e-9) {
		t.Errorf("expected hips world position (-1,0,0), got %v", got)
	}
	if !quatNear(rest.World(hipsIdx), bend, 1e-12) {
		t.Errorf("expected hips world rotation from parent, got %v", rest.World(hipsIdx))
	}
}

func TestExtractRestPosePreRotationFolded(t *testing.T) {
	pre := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{1, 0, 0})
	spin := mgl64.QuatRotate(math.Pi/3, mgl64.Vec3{0, 1, 0})

	s := skeleton.New("test")
	s.Add(skeleton.Joint{Name: "Root", Parent: skeleton.NoParent, Rotation: spin, PreRotation: &pre})

	rest, err := ExtractRestPose(s, nil, 0)
	if err != nil {
		t.Fatalf("extracting rest pose: %v", err)
	}

	want := mgl64.Mat4ToQuat(pre.Mat4().Mul4(spin.Mat4()))
	if !quatNear(rest.Local(0), want, 1e-9) {
		t.Errorf("expected pre-rotation folded into local, want %v, got %v", want, rest.Local(0))
	}
}

func TestRestPoseRequire(t *testing.T) {
	skel := newTestSkeleton(t,
		testJoint{"Root", -1, mgl64.Vec3{}},
		testJoint{"Hips", 0, mgl64.Vec3{0, 1, 0}})

	rest, err := ExtractRestPose(skel, nil, 0)
	if err != nil {
		t.Fatalf("extracting rest pose: %v", err)
	}

	if err := rest.Require([]string{"Root", "Hips"}); err != nil {
		t.Errorf("expected present joints to pass, got %v", err)
	}

	err = rest.Require([]string{"Hips", "LeftLeg"})
	if err == nil {
		t.Fatal("expected error for absent joint")
	}
	if !errors.Is(err, ErrMissingReferenceJoint) {
		t.Errorf("expected ErrMissingReferenceJoint, got %v", err)
	}
}

func TestExtractRestPoseInvalidSkeleton(t *testing.T) {
	s := skeleton.New("empty")
	if _, err := ExtractRestPose(s, nil, 0); err == nil {
		t.Error("expected error for empty skeleton")
	}
}
