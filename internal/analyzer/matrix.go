// Package analyzer recommends test tooling for a framework version and
// compares the recommendation with what a manifest already declares.
package analyzer

import (
	"strconv"
	"sync"

	"github.com/launchcg/testup/internal/project"
	"github.com/launchcg/testup/pkg/version"
)

// Entry is the tooling recommended for one framework major.
type Entry struct {
	TestingLibrary        string // package name
	TestingLibraryVersion string
	TestRunnerVersion     string // vitest
	DomEnvVersion         string // jsdom
	AdditionalDeps        []project.DependencySpec
}

// Matrix maps framework name -> major version -> Entry.
type Matrix map[string]map[string]Entry

var (
	defaultMatrix     Matrix
	defaultMatrixOnce sync.Once
)

// DefaultMatrix returns the built-in compatibility matrix. It is built
// once and must not be modified.
func DefaultMatrix() Matrix {
	defaultMatrixOnce.Do(func() {
		defaultMatrix = buildMatrix()
	})
	return defaultMatrix
}

func dev(name, rng string) project.DependencySpec {
	return project.DependencySpec{Name: name, VersionRange: rng, Dev: true}
}

func buildMatrix() Matrix {
	jestDom := dev("@testing-library/jest-dom", "^6.4.8")
	userEvent := dev("@testing-library/user-event", "^14.5.2")

	legacyReact := Entry{
		TestingLibrary:        "@testing-library/react",
		TestingLibraryVersion: "^12.1.5",
		TestRunnerVersion:     "^1.6.0",
		DomEnvVersion:         "^22.1.0",
		AdditionalDeps: []project.DependencySpec{
			dev("@vitejs/plugin-react", "^4.3.1"),
			dev("@testing-library/jest-dom", "^5.17.0"),
			dev("@testing-library/user-event", "^13.5.0"),
		},
	}

	return Matrix{
		"react": {
			"16": legacyReact,
			"17": legacyReact,
			"18": {
				TestingLibrary:        "@testing-library/react",
				TestingLibraryVersion: "^14.3.1",
				TestRunnerVersion:     "^2.1.0",
				DomEnvVersion:         "^25.0.0",
				AdditionalDeps: []project.DependencySpec{
					dev("@vitejs/plugin-react", "^4.3.1"),
					jestDom,
					userEvent,
				},
			},
			"19": {
				TestingLibrary:        "@testing-library/react",
				TestingLibraryVersion: "^16.1.0",
				TestRunnerVersion:     "^2.1.0",
				DomEnvVersion:         "^25.0.0",
				AdditionalDeps: []project.DependencySpec{
					dev("@testing-library/dom", "^10.4.0"),
					dev("@vitejs/plugin-react", "^4.3.4"),
					jestDom,
					userEvent,
				},
			},
		},
		"vue": {
			"2": {
				TestingLibrary:        "@testing-library/vue",
				TestingLibraryVersion: "^5.9.0",
				TestRunnerVersion:     "^1.6.0",
				DomEnvVersion:         "^22.1.0",
				AdditionalDeps: []project.DependencySpec{
					dev("@vitejs/plugin-vue2", "^2.3.1"),
					dev("@vue/test-utils", "^1.3.6"),
					jestDom,
					userEvent,
				},
			},
			"3": {
				TestingLibrary:        "@testing-library/vue",
				TestingLibraryVersion: "^8.1.0",
				TestRunnerVersion:     "^2.1.0",
				DomEnvVersion:         "^25.0.0",
				AdditionalDeps: []project.DependencySpec{
					dev("@vitejs/plugin-vue", "^5.1.4"),
					dev("@vue/test-utils", "^2.4.6"),
					jestDom,
					userEvent,
				},
			},
		},
	}
}

// Majors returns the supported majors of a framework, ascending.
func (m Matrix) Majors(framework string) []int {
	supported := m.versions(framework)
	majors := make([]int, len(supported))
	for i, v := range supported {
		majors[i] = v.Major
	}
	return majors
}

// versions returns the numeric keys of a framework as versions, ascending.
func (m Matrix) versions(framework string) []*version.Version {
	var out []*version.Version
	for key := range m[framework] {
		if n, err := strconv.Atoi(key); err == nil {
			out = append(out, &version.Version{Major: n})
		}
	}
	version.Sort(out)
	return out
}

// Lookup picks the entry for a declared framework range. An exact major
// wins; otherwise the closest supported major below it; a range below
// every supported major gets the oldest entry and an unparseable one the
// newest. The chosen key is returned alongside.
func (m Matrix) Lookup(framework, rng string) (Entry, string, bool) {
	supported := m.versions(framework)
	if len(supported) == 0 {
		return Entry{}, "", false
	}

	chosen := version.Latest(supported)
	if declared, ok := version.Major(rng); ok {
		if best := version.NearestBelow(&version.Version{Major: declared}, supported); best != nil {
			chosen = best
		} else {
			chosen = supported[0]
		}
	}

	k := strconv.Itoa(chosen.Major)
	return m[framework][k], k, true
}
