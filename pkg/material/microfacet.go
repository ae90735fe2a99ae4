package material

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// Distribution selects a microfacet normal distribution
type Distribution int

const (
	Beckmann Distribution = iota
	Phong
	GGX
)

var distributionNames = map[string]Distribution{
	"beckmann": Beckmann,
	"phong":    Phong,
	"ggx":      GGX,
}

// ParseDistribution looks up a distribution by name. The empty name selects GGX.
func ParseDistribution(name string) (Distribution, error) {
	if name == "" {
		return GGX, nil
	}
	if d, ok := distributionNames[name]; ok {
		return d, nil
	}
	return 0, core.NewConfigError("microfacet distribution", name)
}

func (d Distribution) String() string {
	for name, dist := range distributionNames {
		if dist == d {
			return name
		}
	}
	return "unknown"
}

// RoughnessToAlpha maps a perceptual roughness to the distribution's width parameter
func RoughnessToAlpha(dist Distribution, roughness float64) float64 {
	roughness = math.Max(roughness, 1e-3)
	if dist == Phong {
		return 2/(roughness*roughness) - 2
	}
	return roughness
}

// MicrofacetD evaluates the normal distribution for microfacet normal m
func MicrofacetD(dist Distribution, alpha float64, m core.Vec3) float64 {
	if m.Z <= 0 {
		return 0
	}
	switch dist {
	case Beckmann:
		alphaSq := alpha * alpha
		cosThetaSq := m.Z * m.Z
		tanThetaSq := math.Max(1-cosThetaSq, 0) / cosThetaSq
		cosThetaQu := cosThetaSq * cosThetaSq
		return core.InvPi * math.Exp(-tanThetaSq/alphaSq) / (alphaSq * cosThetaQu)
	case Phong:
		return (alpha + 2) * core.InvTwoPi * math.Pow(m.Z, alpha)
	case GGX:
		alphaSq := alpha * alpha
		cosThetaSq := m.Z * m.Z
		tanThetaSq := math.Max(1-cosThetaSq, 0) / cosThetaSq
		cosThetaQu := cosThetaSq * cosThetaSq
		return alphaSq * core.InvPi / (cosThetaQu * sqr(alphaSq+tanThetaSq))
	}
	return 0
}

// MicrofacetG1 is the masking term for direction v and microfacet normal m
func MicrofacetG1(dist Distribution, alpha float64, v, m core.Vec3) float64 {
	if v.Dot(m)*v.Z <= 0 {
		return 0
	}
	switch dist {
	case Beckmann, Phong:
		cosThetaSq := v.Z * v.Z
		tanTheta := math.Abs(math.Sqrt(math.Max(1-cosThetaSq, 0)) / v.Z)
		var a float64
		if dist == Beckmann {
			a = 1 / (alpha * tanTheta)
		} else {
			a = math.Sqrt(0.5*alpha+1) / tanTheta
		}
		if a < 1.6 {
			return (3.535*a + 2.181*a*a) / (1 + 2.276*a + 2.577*a*a)
		}
		return 1
	case GGX:
		alphaSq := alpha * alpha
		cosThetaSq := v.Z * v.Z
		tanThetaSq := math.Max(1-cosThetaSq, 0) / cosThetaSq
		return 2 / (1 + math.Sqrt(1+alphaSq*tanThetaSq))
	}
	return 0
}

// MicrofacetG is the separable shadowing-masking term
func MicrofacetG(dist Distribution, alpha float64, i, o, m core.Vec3) float64 {
	return MicrofacetG1(dist, alpha, i, m) * MicrofacetG1(dist, alpha, o, m)
}

// MicrofacetPdf is the density of MicrofacetSample producing m
func MicrofacetPdf(dist Distribution, alpha float64, m core.Vec3) float64 {
	return MicrofacetD(dist, alpha, m) * m.Z
}

// MicrofacetSample draws a microfacet normal proportional to D(m) * m.z
func MicrofacetSample(dist Distribution, alpha float64, xi core.Vec2) core.Vec3 {
	phi := xi.Y * core.TwoPi
	var cosTheta float64
	switch dist {
	case Beckmann:
		tanThetaSq := -alpha * alpha * math.Log(1-xi.X)
		cosTheta = 1 / math.Sqrt(1+tanThetaSq)
	case Phong:
		cosTheta = math.Pow(xi.X, 1/(alpha+2))
	case GGX:
		tanThetaSq := alpha * alpha * xi.X / (1 - xi.X)
		cosTheta = 1 / math.Sqrt(1+tanThetaSq)
	}
	r := math.Sqrt(math.Max(1-cosTheta*cosTheta, 0))
	return core.NewVec3(math.Cos(phi)*r, math.Sin(phi)*r, cosTheta)
}
