package retarget

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mocapkit/retarget/pkg/anim"
	"github.com/mocapkit/retarget/pkg/scene"
	"github.com/mocapkit/retarget/pkg/skeleton"
)

// RestPose holds, per joint of one skeleton, the effective local rest
// rotation and the fully composed world rest rotation and position,
// computed once from the skeleton's reference pose. Immutable after
// extraction.
type RestPose struct {
	skel     *skeleton.Skeleton
	local    []mgl64.Quat
	world    []mgl64.Quat
	worldPos []mgl64.Vec3
}

// ExtractRestPose computes the rest pose of a skeleton from its
// reference scene sampled at time t. When eval is nil (a reference
// scene without takes) the skeleton's stored rest transforms are used.
//
// Joints are visited parents-first: a joint's world rotation is its
// parent's world rotation composed with its own effective local
// rotation. Pre/post orientation offsets are folded into the animated
// local rotation by full matrix composition and decomposed back to a
// quaternion once, at the end. Chaining raw quaternion products across
// offsets whose rotation order differs from the animated channel is the
// one place these rigs silently drift.
func ExtractRestPose(skel *skeleton.Skeleton, eval scene.Evaluator, t float64) (*RestPose, error) {
	if err := skel.Validate(); err != nil {
		return nil, err
	}
	n := skel.Len()
	rp := &RestPose{
		skel:     skel,
		local:    make([]mgl64.Quat, n),
		world:    make([]mgl64.Quat, n),
		worldPos: make([]mgl64.Vec3, n),
	}

	worldRot := make([]mgl64.Mat4, n)
	worldTRS := make([]mgl64.Mat4, n)

	for i := 0; i < n; i++ {
		j := skel.Joint(i)

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

		trsMat := mgl64.Translate3D(tf.Translation.X(), tf.Translation.Y(), tf.Translation.Z()).
			Mul4(rotMat).
			Mul4(mgl64.Scale3D(tf.Scale.X(), tf.Scale.Y(), tf.Scale.Z()))

		if j.IsRoot() {
			worldRot[i] = rotMat
			worldTRS[i] = trsMat
		} else {
			worldRot[i] = worldRot[j.Parent].Mul4(rotMat)
			worldTRS[i] = worldTRS[j.Parent].Mul4(trsMat)
		}

		rp.local[i] = mgl64.Mat4ToQuat(rotMat).Normalize()
		rp.world[i] = mgl64.Mat4ToQuat(worldRot[i]).Normalize()
		rp.worldPos[i] = mgl64.Vec3{worldTRS[i].At(0, 3), worldTRS[i].At(1, 3), worldTRS[i].At(2, 3)}
	}
	return rp, nil
}

// Skeleton returns the skeleton this rest pose was extracted from.
func (rp *RestPose) Skeleton() *skeleton.Skeleton {
	return rp.skel
}

// Local returns the effective local rest rotation of joint i.
func (rp *RestPose) Local(i int) mgl64.Quat {
	return rp.local[i]
}

// World returns the composed world rest rotation of joint i.
func (rp *RestPose) World(i int) mgl64.Quat {
	return rp.world[i]
}

// WorldPosition returns the composed world rest position of joint i.
func (rp *RestPose) WorldPosition(i int) mgl64.Vec3 {
	return rp.worldPos[i]
}

// LocalByName resolves a joint name and returns its local rest rotation.
func (rp *RestPose) LocalByName(name string) (mgl64.Quat, bool) {
	i, ok := rp.skel.Index(name)
	if !ok {
		return mgl64.Quat{}, false
	}
	return rp.local[i], true
}

// Require verifies that every named joint is present in the reference
// pose, failing with ErrMissingReferenceJoint otherwise. A joint can be
// present in the animated scene yet absent from the reference scene;
// its rest rotation would be undefined.
func (rp *RestPose) Require(names []string) error {
	for _, name := range names {
		if !rp.skel.Contains(name) {
			return fmt.Errorf("%w: %q in skeleton %q", ErrMissingReferenceJoint, name, rp.skel.Name())
		}
	}
	return nil
}
