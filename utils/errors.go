// Package utils contains small helpers shared across shapegen packages.
package utils

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// UnsupportedConfigurationError is returned when a configuration names an architecture,
// embedding, head or model that has no registered constructor.
type UnsupportedConfigurationError struct {
	Kind  string
	Name  string
	Known []string
}

func (e *UnsupportedConfigurationError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unsupported %s %q", e.Kind, e.Name)
	}
	return fmt.Sprintf("unsupported %s %q (known: %s)", e.Kind, e.Name, strings.Join(e.Known, ", "))
}

// NewUnsupportedConfigurationError returns an UnsupportedConfigurationError listing the
// registered names in sorted order.
func NewUnsupportedConfigurationError(kind, name string, known []string) error {
	sorted := append([]string(nil), known...)
	sort.Strings(sorted)
	return &UnsupportedConfigurationError{Kind: kind, Name: name, Known: sorted}
}

// IsUnsupportedConfiguration reports whether err is or wraps an UnsupportedConfigurationError.
func IsUnsupportedConfiguration(err error) bool {
	var target *UnsupportedConfigurationError
	return errors.As(err, &target)
}

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError(expected interface{}, actual interface{}) error {
	return errors.Errorf("expected %T but got %T", expected, actual)
}
