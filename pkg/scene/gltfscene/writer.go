package gltfscene

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mocapkit/retarget/pkg/anim"
	"github.com/mocapkit/retarget/pkg/skeleton"
)

// Writer persists a skeleton plus one baked clip as a glTF file. The
// extension picks the container: .glb is binary, anything else is a
// JSON document with the buffer embedded.
type Writer struct {
	Generator string
}

// Write builds a fresh document with one node per joint, the joint
// hierarchy as node children and one animation holding the clip.
// Arena index equals node index, so channel targets are direct.
func (w Writer) Write(path string, skel *skeleton.Skeleton, clip *anim.Clip) error {
	if err := skel.Validate(); err != nil {
		return err
	}
	if err := clip.Validate(); err != nil {
		return err
	}

	doc := &gltf.Document{
		Asset: gltf.Asset{Version: "2.0", Generator: w.Generator},
	}

	for i := 0; i < skel.Len(); i++ {
		j := skel.Joint(i)
		node := &gltf.Node{
			Name:        j.Name,
			Translation: vec3Array(j.Translation),
			Rotation:    quatArray(restRotation(j)),
			Scale:       vec3Array(j.Scale),
		}
		doc.Nodes = append(doc.Nodes, node)
		if !j.IsRoot() {
			parent := doc.Nodes[j.Parent]
			parent.Children = append(parent.Children, uint32(i))
		}
	}
	doc.Scenes = append(doc.Scenes, &gltf.Scene{Nodes: []uint32{uint32(skel.Root())}})
	doc.Scene = gltf.Index(0)

	a := gltf.Animation{Name: clip.Name}

	keys := make([]float32, clip.Frames)
	for f := 0; f < clip.Frames; f++ {
		keys[f] = float32(clip.FrameTime(f))
	}
	// Animation accessors carry no buffer view target; ARRAY_BUFFER is
	// reserved for vertex attributes.
	keysAcc := modeler.WriteAccessor(doc, gltf.TargetNone, keys)

	for ci := range clip.Curves {
		curve := &clip.Curves[ci]
		ni, ok := skel.Index(curve.Joint)
		if !ok {
			return fmt.Errorf("clip %q: joint %q not in skeleton %q", clip.Name, curve.Joint, skel.Name())
		}
		j := skel.Joint(ni)

		if rotations, varying := rotationSamples(curve, restRotation(j)); varying {
			samplesAcc := modeler.WriteAccessor(doc, gltf.TargetNone, rotations)
			addChannel(&a, keysAcc, samplesAcc, uint32(ni), gltf.TRSRotation)
		}
		if translations, varying := vec3Samples(curve, j.Translation, pickTranslation); varying {
			samplesAcc := modeler.WriteAccessor(doc, gltf.TargetNone, translations)
			addChannel(&a, keysAcc, samplesAcc, uint32(ni), gltf.TRSTranslation)
		}
		if scales, varying := vec3Samples(curve, j.Scale, pickScale); varying {
			samplesAcc := modeler.WriteAccessor(doc, gltf.TargetNone, scales)
			addChannel(&a, keysAcc, samplesAcc, uint32(ni), gltf.TRSScale)
		}
	}

	if len(a.Channels) > 0 {
		doc.Animations = append(doc.Animations, &a)
	}

	if strings.HasSuffix(strings.ToLower(path), ".glb") {
		return gltf.SaveBinary(doc, path)
	}
	for _, b := range doc.Buffers {
		b.EmbeddedResource()
	}
	return gltf.Save(doc, path)
}

func addChannel(a *gltf.Animation, input, output, node uint32, path gltf.TRSProperty) {
	a.Samplers = append(a.Samplers, &gltf.AnimationSampler{
		Input:         input,
		Output:        output,
		Interpolation: gltf.InterpolationLinear,
	})
	a.Channels = append(a.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(a.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
}

// rotationSamples converts a curve's rotations to glTF layout, reporting
// whether any sample leaves the rest rotation. Constant-at-rest channels
// are omitted from the output.
func rotationSamples(curve *anim.JointCurve, rest mgl64.Quat) ([][4]float32, bool) {
	restArr := quatArray(rest)
	varying := false
	out := make([][4]float32, len(curve.Samples))
	for i := range curve.Samples {
		q := curve.Samples[i].Rotation.Normalize()
		// Keep neighboring keys on the same hemisphere so linear
		// playback does not take the long arc.
		if i > 0 && dot4(out[i-1], quatArray(q)) < 0 {
			q = q.Scale(-1)
		}
		out[i] = quatArray(q)
		if out[i] != restArr {
			varying = true
		}
	}
	return out, varying
}

func vec3Samples(curve *anim.JointCurve, rest mgl64.Vec3, pick func(anim.Transform) mgl64.Vec3) ([][3]float32, bool) {
	restArr := vec3Array(rest)
	varying := false
	out := make([][3]float32, len(curve.Samples))
	for i := range curve.Samples {
		out[i] = vec3Array(pick(curve.Samples[i]))
		if out[i] != restArr {
			varying = true
		}
	}
	return out, varying
}

func pickTranslation(tf anim.Transform) mgl64.Vec3 { return tf.Translation }
func pickScale(tf anim.Transform) mgl64.Vec3       { return tf.Scale }

// restRotation folds any pre/post offsets into the joint's stored rest
// rotation, since glTF nodes carry a single rotation.
func restRotation(j skeleton.Joint) mgl64.Quat {
	rot := j.Rotation.Mat4()
	if j.PreRotation != nil {
		rot = j.PreRotation.Mat4().Mul4(rot)
	}
	if j.PostRotation != nil {
		rot = rot.Mul4(j.PostRotation.Mat4())
	}
	return mgl64.Mat4ToQuat(rot).Normalize()
}

func quatArray(q mgl64.Quat) [4]float32 {
	return [4]float32{float32(q.V.X()), float32(q.V.Y()), float32(q.V.Z()), float32(q.W)}
}

func vec3Array(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v.X()), float32(v.Y()), float32(v.Z())}
}

func dot4(a, b [4]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}
