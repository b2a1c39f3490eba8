package analyzer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/project"
	"github.com/launchcg/testup/pkg/version"
)

// Analyzer turns a signature into dependency recommendations.
type Analyzer struct {
	matrix Matrix
}

// New creates an Analyzer; a nil matrix uses DefaultMatrix.
func New(matrix Matrix) *Analyzer {
	if matrix == nil {
		matrix = DefaultMatrix()
	}
	return &Analyzer{matrix: matrix}
}

// Analysis is the outcome of comparing recommendations with a manifest.
type Analysis struct {
	ExistingDependencies map[string]string
	Conflicts            []DependencyConflict
	Recommendations      []project.DependencySpec
}

// frameworkRange chooses the range used for the matrix lookup. Vue stacks
// are keyed by the detected major so an override or node_modules finding
// wins over an ambiguous declaration.
func frameworkRange(stack project.Stack, declared string) string {
	switch stack {
	case project.StackVue2:
		return "2"
	case project.StackVue3:
		return "3"
	}
	return declared
}

// Recommend lists the packages to install for a stack and framework
// version. Extra specs replace recommendations with the same name or are
// appended.
func (a *Analyzer) Recommend(stack project.Stack, frameworkVersion string, isTypeScript bool, extra ...project.DependencySpec) []project.DependencySpec {
	entry, _, ok := a.matrix.Lookup(stack.Framework(), frameworkRange(stack, frameworkVersion))
	if !ok {
		return slices.Clone(extra)
	}

	runnerMajor := strings.TrimLeft(entry.TestRunnerVersion, "^~")
	recs := []project.DependencySpec{
		dev("vitest", entry.TestRunnerVersion),
		dev("jsdom", entry.DomEnvVersion),
		dev(entry.TestingLibrary, entry.TestingLibraryVersion),
	}
	recs = append(recs, entry.AdditionalDeps...)
	recs = append(recs,
		project.DependencySpec{Name: "@vitest/ui", VersionRange: "^" + runnerMajor, Dev: true, Optional: true},
		project.DependencySpec{Name: "@vitest/coverage-v8", VersionRange: "^" + runnerMajor, Dev: true, Optional: true},
	)
	if isTypeScript {
		recs = append(recs, project.DependencySpec{Name: "@types/jsdom", VersionRange: "^21.1.7", Dev: true, Optional: true})
	}

	for _, e := range extra {
		i := slices.IndexFunc(recs, func(r project.DependencySpec) bool { return r.Name == e.Name })
		if i >= 0 {
			recs[i] = e
		} else {
			recs = append(recs, e)
		}
	}
	return recs
}

// RecommendFor is Recommend driven by a signature.
func (a *Analyzer) RecommendFor(sig *project.Signature, extra ...project.DependencySpec) []project.DependencySpec {
	return a.Recommend(sig.TechStack, sig.FrameworkVersion(), sig.IsTypeScript, extra...)
}

// Analyze compares recommendations with the manifest's dependencies and
// devDependencies.
func (a *Analyzer) Analyze(m *manifest.Manifest, recs []project.DependencySpec) Analysis {
	existing := map[string]string{}
	if m != nil {
		existing = m.AllDependencies()
	}

	analysis := Analysis{
		ExistingDependencies: existing,
		Recommendations:      recs,
	}
	for _, rec := range recs {
		current, ok := existing[rec.Name]
		if !ok {
			continue
		}
		if c, conflict := compareRanges(rec, current); conflict {
			analysis.Conflicts = append(analysis.Conflicts, c)
		}
	}
	return analysis
}

// compareRanges flags a declared range whose major differs from the
// recommended one, or whose lowest version falls below the recommended
// minimum. Ranges that cannot be coerced (tags, workspace links) are
// trusted.
func compareRanges(rec project.DependencySpec, declared string) (DependencyConflict, bool) {
	want, err := version.Coerce(rec.VersionRange)
	if err != nil {
		return DependencyConflict{}, false
	}
	have, err := version.Coerce(declared)
	if err != nil {
		return DependencyConflict{}, false
	}

	var resolution string
	switch {
	case have.Major > want.Major:
		resolution = fmt.Sprintf("keep %s %s; it is newer than the tested %s", rec.Name, declared, rec.VersionRange)
	case have.Major < want.Major:
		resolution = fmt.Sprintf("upgrade %s to %s", rec.Name, rec.VersionRange)
	default:
		constraint, err := version.ParseConstraint(rec.VersionRange)
		if err != nil || constraint.Match(have) {
			return DependencyConflict{}, false
		}
		resolution = fmt.Sprintf("upgrade %s to %s; %s allows %s", rec.Name, rec.VersionRange, declared, have)
	}

	return DependencyConflict{
		Package:     rec.Name,
		Existing:    declared,
		Recommended: rec.VersionRange,
		Resolution:  resolution,
	}, true
}

// FrameworkCompatible reports whether the declared framework version is
// supported for the stack, with a reason when it is not: React below 16,
// or a Vue major that disagrees with the detected Vue stack.
func FrameworkCompatible(stack project.Stack, declared string) (bool, string) {
	major, ok := version.Major(declared)
	if !ok {
		return true, ""
	}

	switch stack {
	case project.StackReact:
		if major < 16 {
			return false, fmt.Sprintf("React %s is older than 16, the oldest supported version", declared)
		}
	case project.StackVue2, project.StackVue3:
		want := 2
		if stack == project.StackVue3 {
			want = 3
		}
		if major != want {
			return false, fmt.Sprintf("declared vue %s does not match detected stack %s (expected major %d)", declared, stack, want)
		}
	}
	return true, ""
}
