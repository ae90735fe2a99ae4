package core

import (
	"errors"
	"fmt"
)

// ErrUnknownType is returned when a configuration names a BSDF, medium,
// primitive, distribution or material that does not exist
var ErrUnknownType = errors.New("unknown type")

// ConfigError identifies the offending entry of a bad configuration
type ConfigError struct {
	Kind string // What was being configured, e.g. "microfacet distribution"
	Name string // The name that could not be resolved
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Name, ErrUnknownType)
}

func (e *ConfigError) Unwrap() error {
	return ErrUnknownType
}

// NewConfigError reports an unknown name for the given kind of object
func NewConfigError(kind, name string) error {
	return &ConfigError{Kind: kind, Name: name}
}
