package boundary

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// EngineVersion is the server's own version string, reported by the
// VERSION primitive and offered as the core package's version during
// MCP negotiation.
const EngineVersion = "v1.0.0"

// NegotiateVersion implements spec.md §6's "packages have negotiated
// min/max versions": given a remote's advertised [min, max] range and
// this package's own supported [min, max], it picks the highest version
// both sides accept, the semver comparison the teacher's own go.mod
// tooling (golang.org/x/mod/semver) performs for module versions.
func NegotiateVersion(remoteMin, remoteMax, localMin, localMax string) (string, bool) {
	for _, v := range []string{remoteMax, localMax} {
		if !semver.IsValid(v) {
			return "", false
		}
	}
	lo := remoteMin
	if semver.Compare(localMin, lo) > 0 {
		lo = localMin
	}
	hi := remoteMax
	if semver.Compare(localMax, hi) < 0 {
		hi = localMax
	}
	if semver.Compare(lo, hi) > 0 {
		return "", false
	}
	return hi, true
}

// FormatVersionTag renders a package/version pair as the MCP negotiation
// wire form ("package-name version-min version-max").
func FormatVersionTag(pkg, min, max string) string {
	return fmt.Sprintf("%s %s %s", pkg, min, max)
}
