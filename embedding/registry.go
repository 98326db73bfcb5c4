// Package embedding implements the substitution embedding that compresses the last two
// layers of an octree sequence into one joint embedding sequence.
package embedding

import (
	"go.viam.com/shapegen/registry"
)

// Params configures a compressor.
type Params struct {
	NumVocab   int
	EmbedDim   int
	Resolution int
	SpatialDim int
	// ConvSize is the reduction ratio, 2^SpatialDim when zero.
	ConvSize int
	Seed     uint64
}

// A Constructor creates a compressor from params.
type Constructor func(p Params) (Compressor, error)

var compressors = registry.New[Constructor]("embedding")

func init() {
	Register("substitution", func(p Params) (Compressor, error) {
		s, err := NewSubstitution(p)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Register registers a compressor constructor under name.
func Register(name string, constructor Constructor) {
	compressors.Register(name, constructor)
}

// Lookup returns the registration for name or nil.
func Lookup(name string) *registry.Registration[Constructor] {
	return compressors.Lookup(name)
}

// Registered returns the sorted names of all registered compressors.
func Registered() []string {
	return compressors.Names()
}

// New creates the compressor registered under name.
func New(name string, p Params) (Compressor, error) {
	constructor, err := compressors.Constructor(name)
	if err != nil {
		return nil, err
	}
	return constructor(p)
}
