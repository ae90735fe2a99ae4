package material

import "strings"

// BsdfLobes is a set of scattering lobes. A BSDF advertises the lobes it
// can produce, and callers request the subset they want sampled or evaluated.
type BsdfLobes uint32

const (
	NullLobe                 BsdfLobes = 0
	GlossyReflectionLobe     BsdfLobes = 1 << 0
	GlossyTransmissionLobe   BsdfLobes = 1 << 1
	DiffuseReflectionLobe    BsdfLobes = 1 << 2
	DiffuseTransmissionLobe  BsdfLobes = 1 << 3
	SpecularReflectionLobe   BsdfLobes = 1 << 4
	SpecularTransmissionLobe BsdfLobes = 1 << 5
	AnisotropicLobe          BsdfLobes = 1 << 6
	ForwardLobe              BsdfLobes = 1 << 7

	GlossyLobe   = GlossyReflectionLobe | GlossyTransmissionLobe
	DiffuseLobe  = DiffuseReflectionLobe | DiffuseTransmissionLobe
	SpecularLobe = SpecularReflectionLobe | SpecularTransmissionLobe

	TransmissiveLobe = GlossyTransmissionLobe | DiffuseTransmissionLobe | SpecularTransmissionLobe | ForwardLobe
	ReflectiveLobe   = GlossyReflectionLobe | DiffuseReflectionLobe | SpecularReflectionLobe

	// AllLobes is every lobe that is sampled through Bsdf.Sample. The forward
	// lobe is only ever taken by the stochastic transparency test.
	AllLobes       = (TransmissiveLobe | ReflectiveLobe | AnisotropicLobe) &^ ForwardLobe
	AllButSpecular = AllLobes &^ SpecularLobe
)

// Test reports whether any lobe of other is in the set
func (l BsdfLobes) Test(other BsdfLobes) bool {
	return l&other != 0
}

// IsPureSpecular reports whether every lobe is a Dirac lobe. Such BSDFs
// cannot be evaluated for an explicitly sampled light direction.
func (l BsdfLobes) IsPureSpecular() bool {
	return l&^(SpecularLobe|ForwardLobe) == 0
}

// IsForward reports whether the set is exactly the forward lobe
func (l BsdfLobes) IsForward() bool {
	return l == ForwardLobe
}

func (l BsdfLobes) HasSpecular() bool    { return l.Test(SpecularLobe) }
func (l BsdfLobes) HasForward() bool     { return l.Test(ForwardLobe) }
func (l BsdfLobes) IsTransmissive() bool { return l.Test(TransmissiveLobe) }
func (l BsdfLobes) IsReflective() bool   { return l.Test(ReflectiveLobe) }

var lobeNames = []struct {
	lobe BsdfLobes
	name string
}{
	{GlossyReflectionLobe, "glossy_r"},
	{GlossyTransmissionLobe, "glossy_t"},
	{DiffuseReflectionLobe, "diffuse_r"},
	{DiffuseTransmissionLobe, "diffuse_t"},
	{SpecularReflectionLobe, "specular_r"},
	{SpecularTransmissionLobe, "specular_t"},
	{AnisotropicLobe, "anisotropic"},
	{ForwardLobe, "forward"},
}

func (l BsdfLobes) String() string {
	if l == NullLobe {
		return "null"
	}
	var names []string
	for _, entry := range lobeNames {
		if l&entry.lobe != 0 {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, "|")
}
