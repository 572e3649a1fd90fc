// Package gltfscene adapts glTF 2.0 documents to the scene contract.
// Skeletons come from the document's skin joints (or the node tree when
// no skin is present), takes from its animations. glTF fixes the axis
// convention at +Y up, +Z front, +X right, in meters.
package gltfscene

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"

	"github.com/mocapkit/retarget/pkg/scene"
	"github.com/mocapkit/retarget/pkg/skeleton"
)

// Scene is a loaded glTF document viewed through the scene contract.
type Scene struct {
	name string
	doc  *gltf.Document

	skel *skeleton.Skeleton
	// nodeIndex maps joint names back to document node indices.
	nodeIndex map[string]uint32
	takes     []scene.Take
}

// Open loads a .gltf or .glb file.
func Open(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return FromDocument(path, doc)
}

// FromDocument wraps an already-loaded document.
func FromDocument(name string, doc *gltf.Document) (*Scene, error) {
	s := &Scene{name: name, doc: doc}
	if err := s.buildSkeleton(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := s.buildTakes(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

// Name returns the scene's identifying name, typically its path.
func (s *Scene) Name() string {
	return s.name
}

// Skeleton returns the joint hierarchy extracted at load time.
func (s *Scene) Skeleton() (*skeleton.Skeleton, error) {
	return s.skel, nil
}

// Takes lists the document's animations with their time spans.
func (s *Scene) Takes() []scene.Take {
	return s.takes
}

// Axes returns the glTF convention.
func (s *Scene) Axes() scene.AxisSystem {
	a, _ := scene.Preset("gltf")
	return a
}

// Evaluator builds a keyframe evaluator for the named animation. An
// empty name selects the first one.
func (s *Scene) Evaluator(take string) (scene.Evaluator, error) {
	a, err := s.findAnimation(take)
	if err != nil {
		return nil, err
	}
	return newEvaluator(s, a)
}

func (s *Scene) findAnimation(take string) (*gltf.Animation, error) {
	if len(s.doc.Animations) == 0 {
		return nil, fmt.Errorf("%s: no animations", s.name)
	}
	if take == "" {
		return s.doc.Animations[0], nil
	}
	for _, a := range s.doc.Animations {
		if a.Name == take {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%s: no animation named %q", s.name, take)
}

// jointNodes returns the document node indices that make up the
// skeleton: the first skin's joints when a skin exists, otherwise every
// node reachable from the scene roots.
func (s *Scene) jointNodes() []uint32 {
	if len(s.doc.Skins) > 0 && len(s.doc.Skins[0].Joints) > 0 {
		return s.doc.Skins[0].Joints
	}
	var roots []uint32
	if len(s.doc.Scenes) > 0 {
		si := uint32(0)
		if s.doc.Scene != nil {
			si = *s.doc.Scene
		}
		roots = s.doc.Scenes[si].Nodes
	}
	seen := make(map[uint32]bool)
	var all []uint32
	var walk func(n uint32)
	walk = func(n uint32) {
		if seen[n] {
			return
		}
		seen[n] = true
		all = append(all, n)
		for _, c := range s.doc.Nodes[n].Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return all
}

func (s *Scene) buildSkeleton() error {
	nodes := s.jointNodes()
	if len(nodes) == 0 {
		return fmt.Errorf("no skeleton nodes")
	}

	inSet := make(map[uint32]bool, len(nodes))
	for _, n := range nodes {
		inSet[n] = true
	}
	parent := make(map[uint32]uint32)
	for ni, node := range s.doc.Nodes {
		if !inSet[uint32(ni)] {
			continue
		}
		for _, c := range node.Children {
			if inSet[c] {
				parent[c] = uint32(ni)
			}
		}
	}

	var roots []uint32
	for _, n := range nodes {
		if _, ok := parent[n]; !ok {
			roots = append(roots, n)
		}
	}
	if len(roots) != 1 {
		return fmt.Errorf("expected one joint root, found %d", len(roots))
	}

	children := make(map[uint32][]uint32)
	for _, n := range nodes {
		if p, ok := parent[n]; ok {
			children[p] = append(children[p], n)
		}
	}
	for _, cs := range children {
		sort.Slice(cs, func(i, j int) bool { return cs[i] < cs[j] })
	}

	skel := skeleton.New(s.name)
	s.nodeIndex = make(map[string]uint32, len(nodes))

	// Depth-first from the root so parents land before children in the
	// arena.
	arena := make(map[uint32]int, len(nodes))
	var walk func(n uint32, parentArena int) error
	walk = func(n uint32, parentArena int) error {
		node := s.doc.Nodes[n]
		name := node.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", n)
		}
		idx, err := skel.Add(skeleton.Joint{
			Name:        name,
			Parent:      parentArena,
			Translation: nodeVec3(node.TranslationOrDefault()),
			Rotation:    nodeQuat(node.RotationOrDefault()),
			Scale:       nodeVec3(node.ScaleOrDefault()),
		})
		if err != nil {
			return err
		}
		arena[n] = idx
		s.nodeIndex[name] = n
		for _, c := range children[n] {
			if err := walk(c, idx); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(roots[0], skeleton.NoParent); err != nil {
		return err
	}
	s.skel = skel
	return skel.Validate()
}

func (s *Scene) buildTakes() error {
	for _, a := range s.doc.Animations {
		start, end, err := animationSpan(s.doc, a)
		if err != nil {
			return err
		}
		s.takes = append(s.takes, scene.Take{Name: a.Name, Start: start, End: end})
	}
	return nil
}

// nodeQuat converts glTF's XYZW array layout.
func nodeQuat(r [4]float32) mgl64.Quat {
	q := mgl64.Quat{W: float64(r[3]), V: mgl64.Vec3{float64(r[0]), float64(r[1]), float64(r[2])}}
	if q.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}

func nodeVec3(v [3]float32) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}
