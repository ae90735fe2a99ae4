package material

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/google/go-cmp/cmp"
)

func TestDielectricReflectance(t *testing.T) {
	tests := []struct {
		name      string
		eta, cosI float64
		wantF     float64
		wantCosT  float64
	}{
		{"normal incidence air to glass", 1 / 1.5, 1, 0.04, 1},
		{"normal incidence glass to air", 1.5, 1, 0.04, 1},
		{"total internal reflection", 1.5, 0.1, 1, 0},
		{"grazing", 1 / 1.5, 0, 1, math.Sqrt(1 - 1/2.25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, cosT := DielectricReflectance(tt.eta, tt.cosI)
			if math.Abs(f-tt.wantF) > 1e-9 {
				t.Errorf("F = %f, want %f", f, tt.wantF)
			}
			if math.Abs(cosT-tt.wantCosT) > 1e-9 {
				t.Errorf("cosT = %f, want %f", cosT, tt.wantCosT)
			}
		})
	}

	// A negative cosine is the same interface seen from the other side
	f1, _ := DielectricReflectance(1/1.5, -0.5)
	f2, _ := DielectricReflectance(1.5, 0.5)
	if math.Abs(f1-f2) > 1e-12 {
		t.Errorf("F(eta, -cos) = %f, F(1/eta, cos) = %f", f1, f2)
	}
}

func TestConductorReflectance(t *testing.T) {
	gold, err := LookupComplexIor("Au")
	if err != nil {
		t.Fatal(err)
	}
	normal := ConductorReflectance(gold.Eta, gold.K, 1)
	// Gold reflects red more than blue
	if normal.X <= normal.Z {
		t.Errorf("gold reflectance %v should favour red", normal)
	}
	grazing := ConductorReflectance(gold.Eta, gold.K, 1e-4)
	if grazing.MinComponent() < 0.99 {
		t.Errorf("grazing reflectance %v should approach 1", grazing)
	}
	for _, c := range []float64{1, 0.7, 0.3, 0.05} {
		f := ConductorReflectance(gold.Eta, gold.K, c)
		if f.MinComponent() < 0 || f.MaxComponent() > 1 {
			t.Errorf("cos=%f: reflectance %v outside [0, 1]", c, f)
		}
	}
}

func TestComputeDiffuseFresnel(t *testing.T) {
	// Internal diffuse reflectance of glass, dominated by total internal reflection
	got := ComputeDiffuseFresnel(1.5, diffuseFresnelSamples)
	if got < 0.55 || got > 0.65 {
		t.Errorf("diffuse Fresnel for ior 1.5 = %f, want about 0.6", got)
	}
	if lower := ComputeDiffuseFresnel(1.2, 10000); lower >= got {
		t.Errorf("diffuse Fresnel for ior 1.2 = %f, want less than %f", lower, got)
	}
}

// TestMicrofacetNormalization checks that D(m) * m.z integrates to one
func TestMicrofacetNormalization(t *testing.T) {
	for _, name := range []string{"beckmann", "phong", "ggx"} {
		t.Run(name, func(t *testing.T) {
			dist, err := ParseDistribution(name)
			if err != nil {
				t.Fatal(err)
			}
			alpha := RoughnessToAlpha(dist, 0.5)
			sampler := core.NewUniformSampler(13, 17)
			const n = 200000
			sum := 0.0
			for i := 0; i < n; i++ {
				m := core.UniformHemisphere(sampler.Next2D())
				sum += MicrofacetPdf(dist, alpha, m) / core.UniformHemispherePdf(m)
			}
			if integral := sum / n; math.Abs(integral-1) > 0.03 {
				t.Errorf("integral of D(m) cos = %f, want 1", integral)
			}
		})
	}
}

func TestMicrofacetSampleMatchesPdf(t *testing.T) {
	// The fraction of sampled normals within a cone must match the pdf's mass there
	dist := GGX
	alpha := 0.4
	cosCone := math.Cos(0.3)
	sampler := core.NewUniformSampler(2, 3)

	const n = 100000
	inside := 0
	for i := 0; i < n; i++ {
		if MicrofacetSample(dist, alpha, sampler.Next2D()).Z > cosCone {
			inside++
		}
	}

	mass := 0.0
	for i := 0; i < n; i++ {
		m := core.UniformSphericalCap(sampler.Next2D(), cosCone)
		mass += MicrofacetPdf(dist, alpha, m) / core.UniformSphericalCapPdf(cosCone)
	}
	mass /= n

	if got := float64(inside) / n; math.Abs(got-mass) > 0.01 {
		t.Errorf("sampled fraction %f, pdf mass %f", got, mass)
	}
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		bsdf Bsdf
		kind string
	}{
		{"unknown distribution", NewRoughConductor("Au", "blinn", 0.3), "microfacet distribution"},
		{"unknown conductor", NewConductor("Unobtainium"), "conductor"},
		{"unknown conductor in rough conductor", NewRoughConductor("Xx", "ggx", 0.3), "conductor"},
		{"nested unknown distribution", NewSmoothCoat(NewRoughPlastic(core.Splat(0.5), 1.5, "cook", 0.2), 1.5), "microfacet distribution"},
		{"mixed without child", &Mixed{Bsdf0: NewLambert(core.Splat(1))}, "mixed child"},
		{"zero dielectric ior", NewDielectric(0), "ior"},
		{"negative rough dielectric ior", NewRoughDielectric(-1.5, "ggx", 0.2), "ior"},
		{"zero plastic ior", NewPlastic(core.Splat(0.5), 0), "ior"},
		{"zero rough plastic ior", NewRoughPlastic(core.Splat(0.5), 0, "ggx", 0.2), "ior"},
		{"zero coat ior", NewSmoothCoat(NewLambert(core.Splat(0.5)), 0), "ior"},
		{"nan thin sheet ior", NewThinSheet(math.NaN()), "ior"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bsdf.Prepare()
			if err == nil {
				t.Fatal("Prepare succeeded")
			}
			if !errors.Is(err, core.ErrUnknownType) {
				t.Errorf("error %v does not wrap ErrUnknownType", err)
			}
			var configErr *core.ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("error %v is not a ConfigError", err)
			}
			if configErr.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", configErr.Kind, tt.kind)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for kind, name := range kindNames {
		got, err := ParseKind(name)
		if err != nil || got != kind {
			t.Errorf("ParseKind(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseKind("velvet"); !errors.Is(err, core.ErrUnknownType) {
		t.Errorf("unknown kind error = %v", err)
	}
}

func TestLobes(t *testing.T) {
	if AllLobes.HasForward() {
		t.Error("AllLobes must not include the forward lobe")
	}
	if AllButSpecular.HasSpecular() {
		t.Error("AllButSpecular includes a specular lobe")
	}

	type flags struct {
		PureSpecular, Transmissive, Reflective bool
	}
	got := map[string]flags{}
	for _, l := range []BsdfLobes{
		SpecularReflectionLobe,
		SpecularLobe | ForwardLobe,
		DiffuseReflectionLobe | SpecularReflectionLobe,
		GlossyTransmissionLobe,
		ForwardLobe,
	} {
		got[l.String()] = flags{l.IsPureSpecular(), l.IsTransmissive(), l.IsReflective()}
	}
	want := map[string]flags{
		"specular_r":                    {true, false, true},
		"specular_r|specular_t|forward": {true, true, true},
		"diffuse_r|specular_r":          {false, false, true},
		"glossy_t":                      {false, true, false},
		"forward":                       {true, true, false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lobe flags mismatch (-want +got):\n%s", diff)
	}
	if NullLobe.String() != "null" {
		t.Errorf("NullLobe.String() = %q", NullLobe.String())
	}
}
