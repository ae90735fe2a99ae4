package material

import "github.com/df07/go-light-transport/pkg/core"

// ComplexIor is the RGB complex index of refraction of a conductor
type ComplexIor struct {
	Eta core.Vec3
	K   core.Vec3
}

var complexIorTable = map[string]ComplexIor{
	"Ag": {core.NewVec3(0.1552646489, 0.1167232965, 0.1383806959), core.NewVec3(4.8283433224, 3.1222459278, 2.1469504455)},
	"Al": {core.NewVec3(1.6574599595, 0.8803689579, 0.5212287346), core.NewVec3(9.2238691996, 6.2695232477, 4.8370012281)},
	"Au": {core.NewVec3(0.1431189557, 0.3749570432, 1.4424785571), core.NewVec3(3.9831604247, 2.3857207478, 1.6032152899)},
	"Cr": {core.NewVec3(4.3696828663, 2.9167024892, 1.6547005413), core.NewVec3(5.2064337956, 4.2313645277, 3.7549467933)},
	"Cu": {core.NewVec3(0.2004376970, 0.9240334304, 1.1022119527), core.NewVec3(3.9129485033, 2.4528477015, 2.1421879552)},
	"Fe": {core.NewVec3(2.9114, 2.9497, 2.5845), core.NewVec3(3.0893, 2.9318, 2.7670)},
	"Ti": {core.NewVec3(2.1646, 1.9446, 1.7319), core.NewVec3(2.9424, 2.6897, 2.5236)},
}

// LookupComplexIor returns the complex index of a named conductor
func LookupComplexIor(name string) (ComplexIor, error) {
	if ior, ok := complexIorTable[name]; ok {
		return ior, nil
	}
	return ComplexIor{}, core.NewConfigError("conductor", name)
}
