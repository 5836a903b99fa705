// Package version parses UPnP architecture versions and builds the product
// tokens sent in USER-AGENT headers.
package version

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Library identifies this control point in product tokens.
const (
	Library        = "upnp-go"
	LibraryVersion = "0.4.0"
)

// Architecture is the UPnP Device Architecture version this control point speaks.
const Architecture = "1.1"

// SpecVersion represents a parsed "major.minor" UPnP architecture version,
// as found in a description document's <specVersion> element.
type SpecVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string. Surrounding whitespace is ignored.
func Parse(s string) (SpecVersion, error) {
	s = strings.TrimSpace(s)
	major, minor, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minor, ".") {
		return SpecVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	maj, err := strconv.ParseUint(major, 10, 16)
	if err != nil {
		return SpecVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}
	mnr, err := strconv.ParseUint(minor, 10, 16)
	if err != nil {
		return SpecVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return SpecVersion{Major: uint16(maj), Minor: uint16(mnr)}, nil
}

// String returns the version as "major.minor".
func (v SpecVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible reports whether a device announcing v can be driven by a control
// point speaking Architecture. UPnP keeps major versions backwards compatible.
func (v SpecVersion) Compatible(other SpecVersion) bool {
	return v.Major == other.Major
}

// ParseProduct extracts the UPnP version from a SERVER or USER-AGENT header of
// the form "OS/version UPnP/1.0 product/version".
func ParseProduct(header string) (SpecVersion, error) {
	for _, tok := range strings.Fields(header) {
		name, ver, ok := strings.Cut(tok, "/")
		if ok && strings.EqualFold(name, "UPnP") {
			return Parse(strings.TrimSuffix(ver, ","))
		}
	}
	return SpecVersion{}, fmt.Errorf("no UPnP token in %q", header)
}

// UserAgent returns the product token sent on outbound requests.
func UserAgent() string {
	return fmt.Sprintf("%s/%s UPnP/%s %s/%s", runtime.GOOS, strings.TrimPrefix(runtime.Version(), "go"),
		Architecture, Library, LibraryVersion)
}
