package core

import "math"

// TangentFrame is an orthonormal basis used to move directions between world
// space and a surface-local space in which the normal is +Z.
type TangentFrame struct {
	Normal    Vec3
	Tangent   Vec3
	Bitangent Vec3
}

// NewTangentFrame builds a frame around n with an arbitrary tangent
func NewTangentFrame(n Vec3) TangentFrame {
	// Find a vector perpendicular to normal
	var nt Vec3
	if math.Abs(n.X) > 0.1 {
		nt = NewVec3(0, 1, 0)
	} else {
		nt = NewVec3(1, 0, 0)
	}
	tangent := nt.Cross(n).Normalize()
	bitangent := n.Cross(tangent)
	return TangentFrame{Normal: n, Tangent: tangent, Bitangent: bitangent}
}

// NewTangentFrameFromTangent builds a frame around n whose tangent follows t
// projected into the plane of n. Degenerate tangents fall back to NewTangentFrame.
func NewTangentFrameFromTangent(n, t Vec3) TangentFrame {
	tangent := t.Subtract(n.Multiply(n.Dot(t)))
	if tangent.LengthSquared() < 1e-12 {
		return NewTangentFrame(n)
	}
	tangent = tangent.Normalize()
	return TangentFrame{Normal: n, Tangent: tangent, Bitangent: n.Cross(tangent)}
}

// ToLocal expresses a world-space direction in the frame
func (f TangentFrame) ToLocal(v Vec3) Vec3 {
	return Vec3{f.Tangent.Dot(v), f.Bitangent.Dot(v), f.Normal.Dot(v)}
}

// ToGlobal expresses a local direction in world space
func (f TangentFrame) ToGlobal(v Vec3) Vec3 {
	return f.Tangent.Multiply(v.X).Add(f.Bitangent.Multiply(v.Y)).Add(f.Normal.Multiply(v.Z))
}

// Flip returns the frame mirrored to the other side of the surface
func (f TangentFrame) Flip() TangentFrame {
	return TangentFrame{Normal: f.Normal.Negate(), Tangent: f.Tangent.Negate(), Bitangent: f.Bitangent}
}
