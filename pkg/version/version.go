// Package version parses and validates the protocol's apiVersion string.
package version

import (
	hashiversion "github.com/hashicorp/go-version"

	"github.com/opendaq/streaming-protocol-go/pkg/protoerr"
)

const (
	// Source identifies this library for diagnostic purposes.
	Source = "streaming-protocol-go"

	// LibraryVersion is this library's own release version.
	LibraryVersion = "0.1.0"

	// FloorString is the minimum apiVersion a producer may announce, per
	// spec §6: MAJOR >= 1 || MINOR >= 6.
	FloorString = "0.6.0"
)

// Supported parses an apiVersion string of the form MAJOR.MINOR.PATCH and
// reports whether it is at or above the supported floor (MAJOR >= 1 or
// MINOR >= 6), per spec §4.10.
func Supported(apiVersion string) (bool, error) {
	v, err := hashiversion.NewVersion(apiVersion)
	if err != nil {
		return false, protoerr.Wrap(protoerr.KindEnum.UnsupportedVersion, err, "malformed apiVersion %q", apiVersion)
	}

	segments := v.Segments()
	major, minor := segments[0], 0

	if len(segments) > 1 {
		minor = segments[1]
	}

	return major >= 1 || minor >= 6, nil
}

// Check validates apiVersion and returns an UnsupportedVersion error when
// it falls below the floor.
func Check(apiVersion string) error {
	ok, err := Supported(apiVersion)
	if err != nil {
		return err
	}

	if !ok {
		return protoerr.New(protoerr.KindEnum.UnsupportedVersion, "apiVersion %q is below floor %q", apiVersion, FloorString)
	}

	return nil
}
