package core

import (
	"math"
)

const (
	InvPi     = 1.0 / math.Pi
	InvTwoPi  = 0.5 / math.Pi
	InvFourPi = 0.25 / math.Pi
	TwoPi     = 2.0 * math.Pi
)

// Warps map uniform samples to directions in a local frame where +Z is the
// normal. Callers move them to world space with a TangentFrame.

// CosineHemisphere samples a cosine-weighted direction around +Z
func CosineHemisphere(sample Vec2) Vec3 {
	phi := TwoPi * sample.X
	r := math.Sqrt(sample.Y)
	return Vec3{r * math.Cos(phi), r * math.Sin(phi), math.Sqrt(math.Max(0, 1.0-sample.Y))}
}

// CosineHemispherePdf returns the solid-angle density of CosineHemisphere
func CosineHemispherePdf(w Vec3) float64 {
	return math.Abs(w.Z) * InvPi
}

// UniformHemisphere samples a direction uniformly around +Z
func UniformHemisphere(sample Vec2) Vec3 {
	phi := TwoPi * sample.X
	z := sample.Y
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	return Vec3{r * math.Cos(phi), r * math.Sin(phi), z}
}

// UniformHemispherePdf returns the density of UniformHemisphere
func UniformHemispherePdf(w Vec3) float64 {
	return InvTwoPi
}

// UniformSphere generates a uniform random direction on the unit sphere
func UniformSphere(sample Vec2) Vec3 {
	z := 1.0 - 2.0*sample.X
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := TwoPi * sample.Y
	return Vec3{r * math.Cos(phi), r * math.Sin(phi), z}
}

// UniformSpherePdf returns the density of UniformSphere
func UniformSpherePdf() float64 {
	return InvFourPi
}

// UniformSphericalCap samples a direction uniformly within a cap of the given
// cosine around +Z
func UniformSphericalCap(sample Vec2, cosThetaMax float64) Vec3 {
	cosTheta := 1.0 - sample.X*(1.0-cosThetaMax)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))
	phi := TwoPi * sample.Y
	return Vec3{sinTheta * math.Cos(phi), sinTheta * math.Sin(phi), cosTheta}
}

// UniformSphericalCapPdf returns the density of UniformSphericalCap
func UniformSphericalCapPdf(cosThetaMax float64) float64 {
	return InvTwoPi / (1.0 - cosThetaMax)
}

// ConcentricDisk maps the unit square to the unit disk without rejection
func ConcentricDisk(sample Vec2) Vec2 {
	// Map sample to [-1,1]² and handle degeneracy at the origin
	ux := 2*sample.X - 1
	uy := 2*sample.Y - 1
	if ux == 0 && uy == 0 {
		return Vec2{}
	}

	var theta, r float64
	if math.Abs(ux) > math.Abs(uy) {
		r = ux
		theta = math.Pi / 4 * (uy / ux)
	} else {
		r = uy
		theta = math.Pi/2 - math.Pi/4*(ux/uy)
	}
	return Vec2{r * math.Cos(theta), r * math.Sin(theta)}
}

// UniformTriangle returns barycentric coordinates uniformly distributed over a triangle
func UniformTriangle(sample Vec2) Vec2 {
	uSqrt := math.Sqrt(sample.X)
	return Vec2{1.0 - uSqrt, sample.Y * uSqrt}
}

// PowerHeuristic implements the power heuristic with exponent 2 for MIS
func PowerHeuristic(pdf0, pdf1 float64) float64 {
	p0 := pdf0 * pdf0
	p1 := pdf1 * pdf1
	if p0+p1 == 0 {
		return 0
	}
	return p0 / (p0 + p1)
}

// BalanceHeuristic implements the balance heuristic for MIS
func BalanceHeuristic(pdf0, pdf1 float64) float64 {
	if pdf0+pdf1 == 0 {
		return 0
	}
	return pdf0 / (pdf0 + pdf1)
}
