// Package version provides pump API version parsing and comparison.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Supported is the highest pump API version this library speaks.
var Supported = ApiVersion{Major: 2, Minor: 1}

// ErrBadEncoding is returned for an API version response of the wrong size.
var ErrBadEncoding = errors.New("version: api version cargo must be 2 bytes")

// ApiVersion represents a pump "major.minor" API version.
type ApiVersion struct {
	Major uint8
	Minor uint8
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ApiVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return ApiVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil || parts[0] == "" {
		return ApiVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil || parts[1] == "" {
		return ApiVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ApiVersion{Major: uint8(major), Minor: uint8(minor)}, nil
}

// Decode parses the two-byte cargo of an API version response.
func Decode(cargo []byte) (ApiVersion, error) {
	if len(cargo) != 2 {
		return ApiVersion{}, ErrBadEncoding
	}
	return ApiVersion{Major: cargo[0], Minor: cargo[1]}, nil
}

// Encode returns the version as API version response cargo.
func (v ApiVersion) Encode() []byte {
	return []byte{v.Major, v.Minor}
}

// String returns the version as "major.minor".
func (v ApiVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ApiVersion) Compatible(other ApiVersion) bool {
	return v.Major == other.Major
}
