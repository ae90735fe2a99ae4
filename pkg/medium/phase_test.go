package medium

import (
	"math"
	"testing"

	"github.com/df07/go-light-transport/pkg/core"
)

var phaseFunctions = map[string]PhaseFunction{
	"isotropic":   Isotropic{},
	"hg forward":  HenyeyGreenstein{G: 0.6},
	"hg backward": HenyeyGreenstein{G: -0.3},
	"hg zero":     HenyeyGreenstein{},
	"rayleigh":    Rayleigh{},
}

func TestPhaseFunctionsIntegrateToOne(t *testing.T) {
	wi := core.NewVec3(0.3, -0.5, 0.8).Normalize()
	for name, phase := range phaseFunctions {
		sampler := core.NewUniformSampler(2, 0)
		const n = 50000
		sum := 0.0
		for i := 0; i < n; i++ {
			wo := core.UniformSphere(sampler.Next2D())
			sum += phase.Eval(wi, wo).X / core.UniformSpherePdf()
		}
		if got := sum / n; math.Abs(got-1) > 0.03 {
			t.Errorf("%s: integral = %v, want 1", name, got)
		}
	}
}

func TestPhaseSamplesMatchPdf(t *testing.T) {
	wi := core.NewVec3(0, 0, 1)
	for name, phase := range phaseFunctions {
		sampler := core.NewUniformSampler(4, 0)
		meanCosine := 0.0
		const n = 20000
		for i := 0; i < n; i++ {
			var sample PhaseSample
			if !phase.Sample(sampler, wi, &sample) {
				t.Fatalf("%s: sampling failed", name)
			}
			if math.Abs(sample.W.Length()-1) > 1e-9 {
				t.Fatalf("%s: sampled direction not normalized: %v", name, sample.W)
			}
			if pdf := phase.Pdf(wi, sample.W); math.Abs(pdf-sample.Pdf) > 1e-6*math.Max(1, pdf) {
				t.Fatalf("%s: sample pdf %v, Pdf() %v", name, sample.Pdf, pdf)
			}
			// Phase functions are normalized, so eval equals pdf
			if eval := phase.Eval(wi, sample.W).X; math.Abs(eval-sample.Pdf) > 1e-6*math.Max(1, eval) {
				t.Fatalf("%s: eval %v, pdf %v", name, eval, sample.Pdf)
			}
			meanCosine += sample.W.Dot(wi)
		}
		meanCosine /= n

		want := 0.0
		if hg, ok := phase.(HenyeyGreenstein); ok {
			want = hg.G
		}
		if math.Abs(meanCosine-want) > 0.02 {
			t.Errorf("%s: mean cosine %v, want %v", name, meanCosine, want)
		}
	}
}

func TestPhaseFunctionSymmetry(t *testing.T) {
	a := core.NewVec3(1, 2, 3).Normalize()
	b := core.NewVec3(-2, 0.5, 1).Normalize()
	for name, phase := range phaseFunctions {
		if ab, ba := phase.Eval(a, b).X, phase.Eval(b, a).X; math.Abs(ab-ba) > 1e-12 {
			t.Errorf("%s: eval not symmetric: %v vs %v", name, ab, ba)
		}
	}
}
