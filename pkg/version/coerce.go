package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// looseRegex finds the first numeric version run inside a range expression.
var looseRegex = regexp.MustCompile(`(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// nonRegistryPrefixes mark dependency specifiers that do not carry a
// registry version at all.
var nonRegistryPrefixes = []string{
	"workspace:", "file:", "link:", "portal:", "patch:",
	"git:", "git+", "github:", "gitlab:", "bitbucket:",
	"http:", "https:",
}

// Coerce extracts a version from a loosely written dependency specifier.
//
// Operators and prefixes are ignored and the first MAJOR[.MINOR[.PATCH]]
// run is taken:
//
//	Coerce("^3.2.1")      // 3.2.1
//	Coerce("~2")          // 2.0.0
//	Coerce(">=16.8 <19")  // 16.8.0
//	Coerce("18.x")        // 18.0.0
//	Coerce("npm:vue@^2.7") // 2.7.0
//
// Dist tags ("latest", "next"), wildcards and non-registry specifiers
// (workspace:, file:, git URLs) return an error.
func Coerce(s string) (*Version, error) {
	spec := strings.TrimSpace(s)
	if spec == "" {
		return nil, fmt.Errorf("version specifier cannot be empty")
	}

	lower := strings.ToLower(spec)
	if strings.HasPrefix(lower, "npm:") {
		at := strings.LastIndex(spec, "@")
		if at <= len("npm:") {
			return nil, fmt.Errorf("alias %q has no version", s)
		}
		spec = spec[at+1:]
		lower = strings.ToLower(spec)
	}
	for _, p := range nonRegistryPrefixes {
		if strings.HasPrefix(lower, p) {
			return nil, fmt.Errorf("specifier %q is not a registry version", s)
		}
	}
	if strings.Contains(lower, "://") || strings.Contains(lower, "/") {
		return nil, fmt.Errorf("specifier %q is not a registry version", s)
	}

	m := looseRegex.FindStringSubmatch(spec)
	if m == nil {
		return nil, fmt.Errorf("no version found in %q", s)
	}

	v := &Version{}
	parts := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, raw := range m[1:4] {
		if raw == "" {
			break
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid version component %q in %q", raw, s)
		}
		*parts[i] = n
	}
	return v, nil
}

// Major returns the major component of Coerce(s). The boolean is false
// when no version can be extracted.
func Major(s string) (int, bool) {
	v, err := Coerce(s)
	if err != nil {
		return 0, false
	}
	return v.Major, true
}
