package gltfscene

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mocapkit/retarget/pkg/anim"
)

// rotTrack holds one node's rotation keyframes in seconds.
type rotTrack struct {
	times []float64
	vals  []mgl64.Quat
	step  bool
}

// vecTrack holds one node's translation or scale keyframes.
type vecTrack struct {
	times []float64
	vals  []mgl64.Vec3
	step  bool
}

type nodeTracks struct {
	rot *rotTrack
	pos *vecTrack
	scl *vecTrack
}

// evaluator samples one animation's keyframe tracks. Channels a joint
// does not animate fall back to its rest transform; joints with no
// channels at all are reported as unsampled.
type evaluator struct {
	scene      *Scene
	tracks     map[string]*nodeTracks
	start, end float64
}

func newEvaluator(s *Scene, a *gltf.Animation) (*evaluator, error) {
	ev := &evaluator{
		scene:  s,
		tracks: make(map[string]*nodeTracks),
	}

	nameOf := make(map[uint32]string, len(s.nodeIndex))
	for name, n := range s.nodeIndex {
		nameOf[n] = name
	}

	first := true
	for ci, ch := range a.Channels {
		if ch.Sampler == nil || ch.Target.Node == nil {
			continue
		}
		name, ok := nameOf[*ch.Target.Node]
		if !ok {
			// Channel targets a node outside the skeleton, e.g. a morph
			// weight on a mesh node.
			continue
		}
		sampler := a.Samplers[*ch.Sampler]

		times, err := readTimes(s.doc, sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("%s: animation %q channel %d: %w", s.name, a.Name, ci, err)
		}
		if len(times) == 0 {
			continue
		}
		step := sampler.Interpolation == gltf.InterpolationStep
		cubic := sampler.Interpolation == gltf.InterpolationCubicSpline

		nt := ev.tracks[name]
		if nt == nil {
			nt = &nodeTracks{}
			ev.tracks[name] = nt
		}

		switch ch.Target.Path {
		case gltf.TRSRotation:
			vals, err := readQuats(s.doc, sampler.Output, cubic)
			if err != nil {
				return nil, fmt.Errorf("%s: animation %q channel %d: %w", s.name, a.Name, ci, err)
			}
			if len(vals) != len(times) {
				return nil, fmt.Errorf("%s: animation %q channel %d: %d keys, %d values", s.name, a.Name, ci, len(times), len(vals))
			}
			nt.rot = &rotTrack{times: times, vals: vals, step: step}
		case gltf.TRSTranslation, gltf.TRSScale:
			vals, err := readVec3s(s.doc, sampler.Output, cubic)
			if err != nil {
				return nil, fmt.Errorf("%s: animation %q channel %d: %w", s.name, a.Name, ci, err)
			}
			if len(vals) != len(times) {
				return nil, fmt.Errorf("%s: animation %q channel %d: %d keys, %d values", s.name, a.Name, ci, len(times), len(vals))
			}
			vt := &vecTrack{times: times, vals: vals, step: step}
			if ch.Target.Path == gltf.TRSTranslation {
				nt.pos = vt
			} else {
				nt.scl = vt
			}
		default:
			continue
		}

		if first {
			ev.start, ev.end = times[0], times[len(times)-1]
			first = false
		} else {
			if times[0] < ev.start {
				ev.start = times[0]
			}
			if last := times[len(times)-1]; last > ev.end {
				ev.end = last
			}
		}
	}

	if len(ev.tracks) == 0 {
		return nil, fmt.Errorf("%s: animation %q has no skeleton channels", s.name, a.Name)
	}
	return ev, nil
}

// Span returns the animation's time span in seconds.
func (ev *evaluator) Span() (start, end float64) {
	return ev.start, ev.end
}

// Sample interpolates the joint's local transform at time t. ok is
// false when the animation carries no channels for the joint.
func (ev *evaluator) Sample(joint string, t float64) (anim.Transform, bool) {
	nt := ev.tracks[joint]
	if nt == nil {
		return anim.Transform{}, false
	}

	idx, ok := ev.scene.skel.Index(joint)
	if !ok {
		return anim.Transform{}, false
	}
	j := ev.scene.skel.Joint(idx)
	tf := anim.Transform{
		Translation: j.Translation,
		Rotation:    j.Rotation,
		Scale:       j.Scale,
	}

	if nt.rot != nil {
		tf.Rotation = nt.rot.sample(t)
	}
	if nt.pos != nil {
		tf.Translation = nt.pos.sample(t)
	}
	if nt.scl != nil {
		tf.Scale = nt.scl.sample(t)
	}
	return tf, true
}

// surrounding returns the key indices bracketing t and the blend weight
// between them. Before the first key it holds the first, at or past the
// last key it holds the last.
func surrounding(times []float64, t float64) (prev, next int, w float64) {
	if t <= times[0] {
		return 0, 0, 0
	}
	last := len(times) - 1
	if t >= times[last] {
		return last, last, 0
	}
	next = sort.SearchFloat64s(times, t)
	prev = next - 1
	if times[next] == times[prev] {
		return prev, prev, 0
	}
	w = (t - times[prev]) / (times[next] - times[prev])
	return prev, next, w
}

func (tr *rotTrack) sample(t float64) mgl64.Quat {
	if len(tr.vals) == 1 {
		return tr.vals[0]
	}
	prev, next, w := surrounding(tr.times, t)
	if prev == next || tr.step {
		return tr.vals[prev]
	}
	q0, q1 := tr.vals[prev], tr.vals[next]
	// Take the short arc.
	if q0.Dot(q1) < 0 {
		q1 = q1.Scale(-1)
	}
	return mgl64.QuatSlerp(q0, q1, w).Normalize()
}

func (tr *vecTrack) sample(t float64) mgl64.Vec3 {
	if len(tr.vals) == 1 {
		return tr.vals[0]
	}
	prev, next, w := surrounding(tr.times, t)
	if prev == next || tr.step {
		return tr.vals[prev]
	}
	v0, v1 := tr.vals[prev], tr.vals[next]
	return v0.Add(v1.Sub(v0).Mul(w))
}

// animationSpan reads the time extent of an animation from its sampler
// input accessors.
func animationSpan(doc *gltf.Document, a *gltf.Animation) (start, end float64, err error) {
	first := true
	for si, sampler := range a.Samplers {
		times, err := readTimes(doc, sampler.Input)
		if err != nil {
			return 0, 0, fmt.Errorf("animation %q sampler %d: %w", a.Name, si, err)
		}
		if len(times) == 0 {
			continue
		}
		if first {
			start, end = times[0], times[len(times)-1]
			first = false
			continue
		}
		if times[0] < start {
			start = times[0]
		}
		if last := times[len(times)-1]; last > end {
			end = last
		}
	}
	return start, end, nil
}

func readTimes(doc *gltf.Document, acc uint32) ([]float64, error) {
	data, err := modeler.ReadAccessor(doc, doc.Accessors[acc], nil)
	if err != nil {
		return nil, err
	}
	raw, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("accessor %d: expected scalar float times, got %T", acc, data)
	}
	times := make([]float64, len(raw))
	for i, v := range raw {
		times[i] = float64(v)
	}
	return times, nil
}

func readQuats(doc *gltf.Document, acc uint32, cubic bool) ([]mgl64.Quat, error) {
	data, err := modeler.ReadAccessor(doc, doc.Accessors[acc], nil)
	if err != nil {
		return nil, err
	}
	raw, ok := data.([][4]float32)
	if !ok {
		return nil, fmt.Errorf("accessor %d: expected vec4 rotations, got %T", acc, data)
	}
	raw = dropTangents4(raw, cubic)
	vals := make([]mgl64.Quat, len(raw))
	for i, v := range raw {
		vals[i] = nodeQuat(v)
	}
	return vals, nil
}

func readVec3s(doc *gltf.Document, acc uint32, cubic bool) ([]mgl64.Vec3, error) {
	data, err := modeler.ReadAccessor(doc, doc.Accessors[acc], nil)
	if err != nil {
		return nil, err
	}
	raw, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("accessor %d: expected vec3 values, got %T", acc, data)
	}
	raw = dropTangents3(raw, cubic)
	vals := make([]mgl64.Vec3, len(raw))
	for i, v := range raw {
		vals[i] = mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
	}
	return vals, nil
}

// Cubic-spline output stores in-tangent, value, out-tangent per key;
// only the values are kept and blended linearly.
func dropTangents4(raw [][4]float32, cubic bool) [][4]float32 {
	if !cubic || len(raw)%3 != 0 {
		return raw
	}
	out := make([][4]float32, 0, len(raw)/3)
	for i := 1; i < len(raw); i += 3 {
		out = append(out, raw[i])
	}
	return out
}

func dropTangents3(raw [][3]float32, cubic bool) [][3]float32 {
	if !cubic || len(raw)%3 != 0 {
		return raw
	}
	out := make([][3]float32, 0, len(raw)/3)
	for i := 1; i < len(raw); i += 3 {
		out = append(out, raw[i])
	}
	return out
}
