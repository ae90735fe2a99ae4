package core

import (
	"fmt"
	"math/rand/v2"
)

// PathSampleGenerator provides the random numbers consumed while tracing a path.
// Implementations are deterministic for a given seed and are never shared
// between goroutines.
type PathSampleGenerator interface {
	Next1D() float64
	Next2D() Vec2
	NextBoolean(pTrue float64) bool
	NextDiscrete(n int) int
}

// UniformSampler draws independent uniform samples from a PCG stream.
// Its state can be saved and restored, which makes renders resumable.
type UniformSampler struct {
	pcg    *rand.PCG
	random *rand.Rand
}

// NewUniformSampler creates a sampler for the given seed and stream
func NewUniformSampler(seed, stream uint64) *UniformSampler {
	pcg := rand.NewPCG(seed, stream)
	return &UniformSampler{pcg: pcg, random: rand.New(pcg)}
}

// Next1D returns a float64 in [0, 1)
func (s *UniformSampler) Next1D() float64 {
	return s.random.Float64()
}

// Next2D returns two float64 values in [0, 1)
func (s *UniformSampler) Next2D() Vec2 {
	a := s.random.Float64()
	b := s.random.Float64()
	return Vec2{a, b}
}

// NextBoolean returns true with probability pTrue, consuming exactly one 1D sample
func (s *UniformSampler) NextBoolean(pTrue float64) bool {
	return s.Next1D() < pTrue
}

// NextDiscrete returns an integer in [0, n), consuming exactly one 1D sample
func (s *UniformSampler) NextDiscrete(n int) int {
	return min(int(s.Next1D()*float64(n)), n-1)
}

// MarshalBinary saves the generator state
func (s *UniformSampler) MarshalBinary() ([]byte, error) {
	return s.pcg.MarshalBinary()
}

// UnmarshalBinary restores a state produced by MarshalBinary
func (s *UniformSampler) UnmarshalBinary(data []byte) error {
	if err := s.pcg.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("restore sampler state: %w", err)
	}
	return nil
}
