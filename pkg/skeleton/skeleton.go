// Package skeleton provides the joint-hierarchy data model used by the
// retargeting engine. A skeleton is an index-stable arena of joints with
// parent indices; parents always precede their children, which makes
// root-to-leaf traversal a plain forward loop.
package skeleton

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// NoParent marks a root joint.
const NoParent = -1

// Joint is one node in a skeleton hierarchy.
type Joint struct {
	Name string
	// Parent is the arena index of the parent joint, or NoParent.
	Parent int

	// Local rest transform.
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3

	// Static orientation offsets baked into the rig's bind pose by some
	// authoring tools. Nil when the rig carries none.
	PreRotation  *mgl64.Quat
	PostRotation *mgl64.Quat
}

// IsRoot reports whether the joint has no parent.
func (j Joint) IsRoot() bool {
	return j.Parent == NoParent
}

// Skeleton is an ordered collection of joints with exactly one root.
type Skeleton struct {
	name   string
	joints []Joint
	byName map[string]int
}

// New returns an empty skeleton.
func New(name string) *Skeleton {
	return &Skeleton{
		name:   name,
		byName: make(map[string]int),
	}
}

// Name returns the skeleton name.
func (s *Skeleton) Name() string {
	return s.name
}

// Add appends a joint and returns its index. The parent must already be
// present (parents before children), the name must be unique, and only
// the first joint may be a root.
func (s *Skeleton) Add(j Joint) (int, error) {
	if j.Name == "" {
		return 0, fmt.Errorf("skeleton %q: joint with empty name", s.name)
	}
	if _, exists := s.byName[j.Name]; exists {
		return 0, fmt.Errorf("skeleton %q: duplicate joint name %q", s.name, j.Name)
	}
	if j.Parent == NoParent {
		if len(s.joints) > 0 {
			return 0, fmt.Errorf("skeleton %q: joint %q is a second root", s.name, j.Name)
		}
	} else if j.Parent < 0 || j.Parent >= len(s.joints) {
		return 0, fmt.Errorf("skeleton %q: joint %q references parent %d before it is added", s.name, j.Name, j.Parent)
	}
	if j.Scale == (mgl64.Vec3{}) {
		j.Scale = mgl64.Vec3{1, 1, 1}
	}
	idx := len(s.joints)
	s.joints = append(s.joints, j)
	s.byName[j.Name] = idx
	return idx, nil
}

// Len returns the number of joints.
func (s *Skeleton) Len() int {
	return len(s.joints)
}

// Joint returns the joint at index i.
func (s *Skeleton) Joint(i int) Joint {
	return s.joints[i]
}

// Index resolves a joint name to its arena index.
func (s *Skeleton) Index(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// Contains reports whether a joint with the given name exists.
func (s *Skeleton) Contains(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Names returns joint names in arena order.
func (s *Skeleton) Names() []string {
	names := make([]string, len(s.joints))
	for i, j := range s.joints {
		names[i] = j.Name
	}
	return names
}

// Root returns the index of the root joint, or NoParent when empty.
func (s *Skeleton) Root() int {
	if len(s.joints) == 0 {
		return NoParent
	}
	return 0
}

// Validate checks the tree invariants: exactly one root, every parent
// index in range and strictly smaller than the child index.
func (s *Skeleton) Validate() error {
	if len(s.joints) == 0 {
		return fmt.Errorf("skeleton %q: no joints", s.name)
	}
	roots := 0
	for i, j := range s.joints {
		if j.Parent == NoParent {
			roots++
			continue
		}
		if j.Parent < 0 || j.Parent >= i {
			return fmt.Errorf("skeleton %q: joint %q has parent index %d out of order", s.name, j.Name, j.Parent)
		}
	}
	if roots != 1 {
		return fmt.Errorf("skeleton %q: expected exactly one root, found %d", s.name, roots)
	}
	return nil
}

// WorldTranslation composes the joint's rest translation through its
// ancestor chain. Rest rotations and scales apply at each step.
func (s *Skeleton) WorldTranslation(i int) mgl64.Vec3 {
	world := localMatrix(s.joints[i])
	for p := s.joints[i].Parent; p != NoParent; p = s.joints[p].Parent {
		world = localMatrix(s.joints[p]).Mul4(world)
	}
	return mgl64.Vec3{world.At(0, 3), world.At(1, 3), world.At(2, 3)}
}

// localMatrix builds the joint's full local rest matrix, including any
// pre/post-rotation offsets.
func localMatrix(j Joint) mgl64.Mat4 {
	rot := j.Rotation.Mat4()
	if j.PreRotation != nil {
		rot = j.PreRotation.Mat4().Mul4(rot)
	}
	if j.PostRotation != nil {
		rot = rot.Mul4(j.PostRotation.Mat4())
	}
	t := mgl64.Translate3D(j.Translation.X(), j.Translation.Y(), j.Translation.Z())
	sc := mgl64.Scale3D(j.Scale.X(), j.Scale.Y(), j.Scale.Z())
	return t.Mul4(rot).Mul4(sc)
}
