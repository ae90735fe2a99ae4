package integrator

// DefaultMaxBounces is the path length limit when none is configured
const DefaultMaxBounces = 64

// Settings configure the path tracer
type Settings struct {
	MaxBounces int // Paths end after this many bounces
	MinBounces int // Emission is only counted from this bounce on

	EnableLightSampling       bool // Next-event estimation at surfaces
	EnableVolumeLightSampling bool // Next-event estimation inside media
	EnableTwoSidedShading     bool // Mirror the shading frame of opaque surfaces hit from behind
	EnableConsistencyChecks   bool // Reject directions whose shading and geometric sides disagree
}

// DefaultSettings returns the settings used for normal renders
func DefaultSettings() Settings {
	return Settings{
		MaxBounces:                DefaultMaxBounces,
		MinBounces:                0,
		EnableLightSampling:       true,
		EnableVolumeLightSampling: true,
		EnableTwoSidedShading:     true,
		EnableConsistencyChecks:   false,
	}
}

// WithMaxBounces returns a copy of the settings with a different bounce
// limit. Non-positive values keep the current limit.
func (s Settings) WithMaxBounces(n int) Settings {
	if n > 0 {
		s.MaxBounces = n
	}
	return s
}
