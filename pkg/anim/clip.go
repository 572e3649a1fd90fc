// Package anim provides baked animation clip types: per-joint curves
// sampled at a fixed rate, one sample per frame index with no gaps.
package anim

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is one sampled local transform.
type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

// IdentityTransform returns a transform with identity rotation, zero
// translation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// JointCurve holds the baked samples for a single joint. Samples[i] is
// the joint's local transform at frame i.
type JointCurve struct {
	Joint   string
	Samples []Transform
}

// Clip is a baked animation: ordered joint curves at a fixed frame rate.
type Clip struct {
	Name   string
	FPS    float64
	Frames int
	Curves []JointCurve
}

// Duration returns the clip length in seconds. A clip with a single
// frame has zero duration.
func (c *Clip) Duration() float64 {
	if c.Frames <= 1 || c.FPS <= 0 {
		return 0
	}
	return float64(c.Frames-1) / c.FPS
}

// FrameTime returns the timestamp of frame i.
func (c *Clip) FrameTime(i int) float64 {
	if c.FPS <= 0 {
		return 0
	}
	return float64(i) / c.FPS
}

// Curve returns the curve for the named joint, or nil.
func (c *Clip) Curve(joint string) *JointCurve {
	for i := range c.Curves {
		if c.Curves[i].Joint == joint {
			return &c.Curves[i]
		}
	}
	return nil
}

// Validate checks that every curve carries exactly one sample per frame.
func (c *Clip) Validate() error {
	if c.Frames <= 0 {
		return fmt.Errorf("clip %q: no frames", c.Name)
	}
	for i := range c.Curves {
		if got := len(c.Curves[i].Samples); got != c.Frames {
			return fmt.Errorf("clip %q: joint %q has %d samples, want %d", c.Name, c.Curves[i].Joint, got, c.Frames)
		}
	}
	return nil
}

// FrameCount returns the number of output frames covering a duration at
// the given rate: round(duration*fps)+1, so both endpoints are sampled.
func FrameCount(duration, fps float64) int {
	if duration < 0 || fps <= 0 {
		return 0
	}
	return int(math.Floor(duration*fps+0.5)) + 1
}
