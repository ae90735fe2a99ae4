package material

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// DielectricReflectance returns the unpolarised Fresnel reflectance for
// relative index eta (incident over transmitted) and the transmitted cosine.
// A negative cosThetaI means the ray arrives from the other side, which
// inverts eta. Total internal reflection returns 1 with cosThetaT 0.
func DielectricReflectance(eta, cosThetaI float64) (float64, float64) {
	if cosThetaI < 0 {
		eta = 1 / eta
		cosThetaI = -cosThetaI
	}
	sinThetaTSq := eta * eta * (1 - cosThetaI*cosThetaI)
	if sinThetaTSq > 1 {
		return 1, 0
	}
	cosThetaT := math.Sqrt(math.Max(1-sinThetaTSq, 0))

	rs := (eta*cosThetaI - cosThetaT) / (eta*cosThetaI + cosThetaT)
	rp := (eta*cosThetaT - cosThetaI) / (eta*cosThetaT + cosThetaI)
	return (rs*rs + rp*rp) * 0.5, cosThetaT
}

func dielectricReflectance(eta, cosThetaI float64) float64 {
	f, _ := DielectricReflectance(eta, cosThetaI)
	return f
}

// conductorReflectanceScalar is the Fresnel reflectance of a conductor with
// complex index eta + ik for one channel
func conductorReflectanceScalar(eta, k, cosThetaI float64) float64 {
	cosThetaISq := cosThetaI * cosThetaI
	sinThetaISq := math.Max(1-cosThetaISq, 0)
	sinThetaIQu := sinThetaISq * sinThetaISq

	innerTerm := eta*eta - k*k - sinThetaISq
	aSqPlusBSq := math.Sqrt(math.Max(innerTerm*innerTerm+4*eta*eta*k*k, 0))
	a := math.Sqrt(math.Max((aSqPlusBSq+innerTerm)*0.5, 0))

	rs := ((aSqPlusBSq + cosThetaISq) - (2 * a * cosThetaI)) /
		((aSqPlusBSq + cosThetaISq) + (2 * a * cosThetaI))
	rp := ((cosThetaISq*aSqPlusBSq + sinThetaIQu) - (2 * a * cosThetaI * sinThetaISq)) /
		((cosThetaISq*aSqPlusBSq + sinThetaIQu) + (2 * a * cosThetaI * sinThetaISq))

	return 0.5 * (rs + rs*rp)
}

// ConductorReflectance evaluates the conductor Fresnel term per channel
func ConductorReflectance(eta, k core.Vec3, cosThetaI float64) core.Vec3 {
	return core.NewVec3(
		conductorReflectanceScalar(eta.X, k.X, cosThetaI),
		conductorReflectanceScalar(eta.Y, k.Y, cosThetaI),
		conductorReflectanceScalar(eta.Z, k.Z, cosThetaI),
	)
}

// diffuseFresnelSamples is the integration resolution of ComputeDiffuseFresnel
const diffuseFresnelSamples = 100000

// ComputeDiffuseFresnel integrates the dielectric reflectance over the
// cosine-weighted hemisphere. It is the fraction of diffusely scattered
// light that a smooth interface reflects back.
func ComputeDiffuseFresnel(ior float64, sampleCount int) float64 {
	diffuseFresnel := 0.0
	fb := dielectricReflectance(ior, 0)
	for i := 1; i <= sampleCount; i++ {
		cosThetaSq := float64(i) / float64(sampleCount)
		fa := dielectricReflectance(ior, math.Min(math.Sqrt(cosThetaSq), 1))
		diffuseFresnel += (fa + fb) * (0.5 / float64(sampleCount))
		fb = fa
	}
	return diffuseFresnel
}
