package retarget

import (
	"github.com/mocapkit/retarget/pkg/anim"
)

// curveBuffer accumulates one joint's output samples. Frame workers
// write disjoint frame-index slots; no slot is ever written twice.
type curveBuffer struct {
	joint   string
	samples []anim.Transform
}

func newCurveBuffer(joint string, frames int) *curveBuffer {
	return &curveBuffer{
		joint:   joint,
		samples: make([]anim.Transform, frames),
	}
}

func (b *curveBuffer) set(frame int, tf anim.Transform) {
	b.samples[frame] = tf
}

// baker assembles per-joint, per-frame results into ordered output
// curves and emits one finished clip. Every curve carries exactly one
// sample per frame index, in increasing order, across the full
// requested duration.
type baker struct {
	fps     float64
	frames  int
	buffers []*curveBuffer
}

func newBaker(fps float64, frames int) *baker {
	return &baker{fps: fps, frames: frames}
}

// addCurve allocates a buffer for one joint and returns it.
func (bk *baker) addCurve(joint string) *curveBuffer {
	buf := newCurveBuffer(joint, bk.frames)
	bk.buffers = append(bk.buffers, buf)
	return buf
}

// bake produces the final clip, checking the no-gaps guarantee.
func (bk *baker) bake(name string) (*anim.Clip, error) {
	clip := &anim.Clip{
		Name:   name,
		FPS:    bk.fps,
		Frames: bk.frames,
		Curves: make([]anim.JointCurve, 0, len(bk.buffers)),
	}
	for _, buf := range bk.buffers {
		clip.Curves = append(clip.Curves, anim.JointCurve{
			Joint:   buf.joint,
			Samples: buf.samples,
		})
	}
	if err := clip.Validate(); err != nil {
		return nil, err
	}
	return clip, nil
}
