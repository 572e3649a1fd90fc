package scene

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// AxisSystem declares a scene's coordinate convention: signed up, front
// and right axes plus the number of scene units in one meter.
type AxisSystem struct {
	Up    mgl64.Vec3
	Front mgl64.Vec3
	Right mgl64.Vec3
	// UnitsPerMeter is the scene's unit scale; 100 means centimeters.
	UnitsPerMeter float64
}

// RightHanded reports whether the basis is proper (rotation-only
// convertible). A left-handed triple needs a handedness flip.
func (a AxisSystem) RightHanded() bool {
	return a.Right.Cross(a.Up).Dot(a.Front) > 0
}

// Basis returns the 3x3 matrix whose columns are right, up and front.
func (a AxisSystem) Basis() mgl64.Mat3 {
	return mgl64.Mat3FromCols(a.Right, a.Up, a.Front)
}

func (a AxisSystem) String() string {
	hand := "right-handed"
	if !a.RightHanded() {
		hand = "left-handed"
	}
	return fmt.Sprintf("up: %s, right: %s, front: %s, %s, %g units/m",
		formatAxis(a.Up), formatAxis(a.Right), formatAxis(a.Front), hand, a.UnitsPerMeter)
}

// ParseAxis parses a signed axis such as "+y" or "-z".
func ParseAxis(s string) (mgl64.Vec3, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	sign := 1.0
	switch {
	case strings.HasPrefix(t, "+"):
		t = t[1:]
	case strings.HasPrefix(t, "-"):
		sign = -1.0
		t = t[1:]
	}
	switch t {
	case "x":
		return mgl64.Vec3{sign, 0, 0}, nil
	case "y":
		return mgl64.Vec3{0, sign, 0}, nil
	case "z":
		return mgl64.Vec3{0, 0, sign}, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("unknown axis %q", s)
}

func formatAxis(v mgl64.Vec3) string {
	names := [3]string{"x", "y", "z"}
	for i := 0; i < 3; i++ {
		if v[i] > 0.5 {
			return "+" + names[i]
		}
		if v[i] < -0.5 {
			return "-" + names[i]
		}
	}
	return "?"
}

// Named axis-system presets matching the conventions of common
// authoring packages.
var presets = map[string]AxisSystem{
	"maya-y-up":  {Up: mgl64.Vec3{0, 1, 0}, Front: mgl64.Vec3{0, 0, 1}, Right: mgl64.Vec3{1, 0, 0}, UnitsPerMeter: 100},
	"maya-z-up":  {Up: mgl64.Vec3{0, 0, 1}, Front: mgl64.Vec3{0, -1, 0}, Right: mgl64.Vec3{1, 0, 0}, UnitsPerMeter: 100},
	"max":        {Up: mgl64.Vec3{0, 0, 1}, Front: mgl64.Vec3{0, -1, 0}, Right: mgl64.Vec3{1, 0, 0}, UnitsPerMeter: 100},
	"opengl":     {Up: mgl64.Vec3{0, 1, 0}, Front: mgl64.Vec3{0, 0, 1}, Right: mgl64.Vec3{1, 0, 0}, UnitsPerMeter: 100},
	"directx":    {Up: mgl64.Vec3{0, 1, 0}, Front: mgl64.Vec3{0, 0, 1}, Right: mgl64.Vec3{-1, 0, 0}, UnitsPerMeter: 100},
	"gltf":       {Up: mgl64.Vec3{0, 1, 0}, Front: mgl64.Vec3{0, 0, 1}, Right: mgl64.Vec3{1, 0, 0}, UnitsPerMeter: 1},
	"realitykit": {Up: mgl64.Vec3{0, 1, 0}, Front: mgl64.Vec3{0, 0, 1}, Right: mgl64.Vec3{1, 0, 0}, UnitsPerMeter: 1},
}

// Preset looks up a named axis system.
func Preset(name string) (AxisSystem, bool) {
	a, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// PresetNames returns the known preset names.
func PresetNames() []string {
	return []string{"maya-y-up", "maya-z-up", "max", "opengl", "directx", "gltf", "realitykit"}
}
