package core

// PositionSample is a point sampled on an emitter or lens
type PositionSample struct {
	P      Vec3
	Ng     Vec3
	UV     Vec2
	Weight Vec3
	Pdf    float64 // Area density
}

// DirectionSample is a direction sampled from a PositionSample
type DirectionSample struct {
	D      Vec3
	Weight Vec3
	Pdf    float64 // Solid-angle density
}

// LightSample is a direction from a shading point toward an emitter,
// produced for next-event estimation
type LightSample struct {
	D    Vec3    // Unit direction from the shading point to the light
	Dist float64 // Distance to the sampled point (Infinity for infinite lights)
	Pdf  float64 // Solid-angle density (1 for Dirac lights)
}
