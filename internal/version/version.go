// Package version carries the build version, set with
// -ldflags "-X github.com/Alia5/padctl/internal/version.Version=v1.2.3".
package version

import (
	"fmt"
	"regexp"
)

var Version string

var semver = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

// Get returns the version, or "dev" for unversioned builds. An error is
// returned along with the raw value when it is not a semantic version.
func Get() (string, error) {
	if Version == "" {
		return "dev", nil
	}
	if !semver.MatchString(Version) {
		return Version, fmt.Errorf("invalid version %q", Version)
	}
	return Version, nil
}
