// Package texture provides the closed set of textures that parameterise
// BSDFs, emitters and bump maps.
package texture

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// Kind identifies a texture implementation
type Kind int

const (
	KindConstant Kind = iota
	KindChecker
	KindGradient
	KindBitmap
)

// Texture maps surface coordinates to a colour. Scalar lookups (roughness,
// opacity, bump height) use the average of the channels.
type Texture interface {
	Kind() Kind
	Evaluate(uv core.Vec2) core.Vec3
	Average() core.Vec3
	IsConstant() bool
	texture()
}

// Scalar returns the channel average of t at uv
func Scalar(t Texture, uv core.Vec2) float64 {
	return t.Evaluate(uv).Avg()
}

// derivativeStep is the finite-difference step in uv space
const derivativeStep = 1e-3

// Derivatives returns the partial derivatives of the scalar value of t with
// respect to u and v, computed with central differences
func Derivatives(t Texture, uv core.Vec2) core.Vec2 {
	if t.IsConstant() {
		return core.Vec2{}
	}
	h := derivativeStep
	du := Scalar(t, core.NewVec2(uv.X+h, uv.Y)) - Scalar(t, core.NewVec2(uv.X-h, uv.Y))
	dv := Scalar(t, core.NewVec2(uv.X, uv.Y+h)) - Scalar(t, core.NewVec2(uv.X, uv.Y-h))
	return core.NewVec2(du/(2*h), dv/(2*h))
}

// Constant returns the same value everywhere
type Constant struct {
	Value core.Vec3
}

// NewConstant creates a constant texture
func NewConstant(value core.Vec3) *Constant {
	return &Constant{Value: value}
}

// NewScalar creates a constant texture with all channels set to v
func NewScalar(v float64) *Constant {
	return &Constant{Value: core.Splat(v)}
}

func (c *Constant) Kind() Kind                      { return KindConstant }
func (c *Constant) Evaluate(uv core.Vec2) core.Vec3 { return c.Value }
func (c *Constant) Average() core.Vec3              { return c.Value }
func (c *Constant) IsConstant() bool                { return true }
func (c *Constant) texture()                        {}

// Checker alternates between two values on a ResU x ResV grid over [0,1]²
type Checker struct {
	On, Off    core.Vec3
	ResU, ResV int
}

// NewChecker creates a checkerboard texture
func NewChecker(on, off core.Vec3, resU, resV int) *Checker {
	return &Checker{On: on, Off: off, ResU: max(resU, 1), ResV: max(resV, 1)}
}

func (c *Checker) Kind() Kind { return KindChecker }

func (c *Checker) Evaluate(uv core.Vec2) core.Vec3 {
	u := int(math.Floor(uv.X * float64(c.ResU)))
	v := int(math.Floor(uv.Y * float64(c.ResV)))
	if (u+v)&1 == 0 {
		return c.On
	}
	return c.Off
}

func (c *Checker) Average() core.Vec3 { return c.On.Add(c.Off).Multiply(0.5) }
func (c *Checker) IsConstant() bool   { return false }
func (c *Checker) texture()           {}

// Gradient interpolates linearly from A to B along u (Axis 0) or v (Axis 1)
type Gradient struct {
	A, B core.Vec3
	Axis int
}

// NewGradient creates a gradient texture
func NewGradient(a, b core.Vec3, axis int) *Gradient {
	return &Gradient{A: a, B: b, Axis: axis}
}

func (g *Gradient) Kind() Kind { return KindGradient }

func (g *Gradient) Evaluate(uv core.Vec2) core.Vec3 {
	t := uv.X
	if g.Axis == 1 {
		t = uv.Y
	}
	t = math.Min(math.Max(t, 0), 1)
	return g.A.Multiply(1 - t).Add(g.B.Multiply(t))
}

func (g *Gradient) Average() core.Vec3 { return g.A.Add(g.B).Multiply(0.5) }
func (g *Gradient) IsConstant() bool   { return false }
func (g *Gradient) texture()           {}
