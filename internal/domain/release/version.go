package release

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Latest is the identifier of the newest published build.
// The index document publishes the newest build under this key, so the
// identifier is valid for lookups, install directories, and checksum records.
const Latest = "latest"

// ErrBadToken is returned for version tokens that are neither "latest" nor a
// dotted two- or three-component numeric version.
var ErrBadToken = errors.New("unrecognized version token")

// versionPattern accepts two- or three-component dotted versions.
// Components may have any number of digits; leading zeros are rejected
// except for a bare zero component.
var versionPattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)(?:\.(0|[1-9]\d*))?$`)

// Version is a parsed three-component version.
type Version struct {
	// Major is the first version component.
	Major int
	// Minor is the second version component.
	Minor int
	// Patch is the third version component, zero when the token omitted it.
	Patch int
}

// String renders the canonical dotted form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Parse converts a dotted version token into a Version.
// A two-component token is normalized to patch level zero.
func Parse(token string) (Version, error) {
	groups := versionPattern.FindStringSubmatch(token)
	if groups == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrBadToken, token)
	}

	var v Version

	// The pattern guarantees the captures are plain decimal numbers.
	v.Major, _ = strconv.Atoi(groups[1])
	v.Minor, _ = strconv.Atoi(groups[2])

	if groups[3] != "" {
		v.Patch, _ = strconv.Atoi(groups[3])
	}

	return v, nil
}

// Resolve maps a user-supplied token and the currently active identifier to
// the identifier to operate on. Rules, in priority order:
//  1. No token: reuse the active identifier when one exists, else Latest.
//  2. The literal "latest": Latest.
//  3. A valid dotted version: its canonical three-component form.
//  4. Anything else: ErrBadToken.
func Resolve(token, active string) (string, error) {
	if token == "" {
		if active != "" {
			return active, nil
		}

		return Latest, nil
	}

	if token == Latest {
		return Latest, nil
	}

	v, err := Parse(token)
	if err != nil {
		return "", err
	}

	return v.String(), nil
}
