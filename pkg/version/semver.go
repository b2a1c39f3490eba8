// Package version parses and compares the version strings found in
// package.json manifests: strict semantic versions, loosely written
// dependency ranges, and npm-style range expressions.
package version

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// semverRegex matches a semantic version with an optional "v" prefix,
// optional minor/patch components, prerelease and build metadata.
// Examples: "18.2.0", "v3", "2.7.14-beta.1+sha.abc"
var semverRegex = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?(?:\+([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?$`)

// Version is a parsed MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD] version.
//
// Missing minor or patch components parse as zero, so "18" and "18.0.0"
// are equal.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string // e.g. "rc.1"
	Build      string // ignored when comparing
}

// Parse parses a strict version string.
//
// Accepted forms:
//   - "18.2.0"
//   - "v18.2.0"
//   - "18.2" and "18" (missing parts are zero)
//   - "3.0.0-rc.1", "3.0.0+build.5", "3.0.0-rc.1+build.5"
//
// Range operators are rejected; use Coerce for dependency ranges.
func Parse(s string) (*Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("version string cannot be empty")
	}

	m := semverRegex.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("invalid version format: %q", s)
	}

	nums := [3]int{}
	for i, part := range m[1:4] {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid version component %q in %q", part, s)
		}
		nums[i] = n
	}

	return &Version{
		Major:      nums[0],
		Minor:      nums[1],
		Patch:      nums[2],
		Prerelease: m[4],
		Build:      m[5],
	}, nil
}

// MustParse is like Parse but panics on invalid input. Intended for
// package-level tables and tests.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("version.MustParse(%q): %v", s, err))
	}
	return v
}

// String formats the version without the "v" prefix.
func (v *Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		b.WriteString("-" + v.Prerelease)
	}
	if v.Build != "" {
		b.WriteString("+" + v.Build)
	}
	return b.String()
}

// Compare returns -1, 0 or 1 when v is lower than, equal to or higher
// than other.
//
// Numeric components are compared first. A prerelease sorts before the
// matching release (3.0.0-rc.1 < 3.0.0). Build metadata never affects
// ordering.
func (v *Version) Compare(other *Version) int {
	if c := cmp.Compare(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Patch, other.Patch); c != 0 {
		return c
	}

	switch {
	case v.Prerelease == other.Prerelease:
		return 0
	case v.Prerelease == "":
		return 1
	case other.Prerelease == "":
		return -1
	}
	return comparePrerelease(v.Prerelease, other.Prerelease)
}

// comparePrerelease orders dot-separated prerelease identifiers: numeric
// identifiers compare as integers and sort before alphanumeric ones, and a
// longer list wins when every shared identifier is equal.
func comparePrerelease(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aErr := strconv.Atoi(as[i])
		bn, bErr := strconv.Atoi(bs[i])

		var c int
		switch {
		case aErr == nil && bErr == nil:
			c = cmp.Compare(an, bn)
		case aErr == nil:
			c = -1
		case bErr == nil:
			c = 1
		default:
			c = strings.Compare(as[i], bs[i])
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(len(as), len(bs))
}

// LessThan reports whether v < other.
func (v *Version) LessThan(other *Version) bool {
	return v.Compare(other) < 0
}

// GreaterThan reports whether v > other.
func (v *Version) GreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}

// Equal reports whether v == other, ignoring build metadata.
func (v *Version) Equal(other *Version) bool {
	return v.Compare(other) == 0
}
