package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/project"
)

func TestDefaultMatrix_BuiltOnce(t *testing.T) {
	a := DefaultMatrix()
	b := DefaultMatrix()
	assert.Equal(t, []int{16, 17, 18, 19}, a.Majors("react"))
	assert.Equal(t, []int{2, 3}, b.Majors("vue"))
	assert.Empty(t, a.Majors("svelte"))
}

func TestMatrix_Lookup(t *testing.T) {
	m := DefaultMatrix()
	tests := []struct {
		framework string
		rng       string
		wantKey   string
	}{
		{"react", "^18.2.0", "18"},
		{"react", "~17.0.2", "17"},
		{"react", "^20.0.0", "19"},
		{"react", "^15.6.0", "16"},
		{"react", "latest", "19"},
		{"react", "", "19"},
		{"vue", "2", "2"},
		{"vue", "^3.4.0", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.framework+"_"+tt.rng, func(t *testing.T) {
			_, key, ok := m.Lookup(tt.framework, tt.rng)
			require.True(t, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}

	_, _, ok := m.Lookup("angular", "^17.0.0")
	assert.False(t, ok)
}

func TestRecommend_React18(t *testing.T) {
	recs := New(nil).Recommend(project.StackReact, "^18.2.0", false)
	byName := index(recs)

	assert.Equal(t, "^2.1.0", byName["vitest"].VersionRange)
	assert.Equal(t, "^25.0.0", byName["jsdom"].VersionRange)
	assert.Equal(t, "^14.3.1", byName["@testing-library/react"].VersionRange)
	assert.Contains(t, byName, "@vitejs/plugin-react")
	assert.Equal(t, "^2.1.0", byName["@vitest/ui"].VersionRange)
	assert.True(t, byName["@vitest/coverage-v8"].Optional)
	assert.NotContains(t, byName, "@types/jsdom")

	for _, r := range recs {
		assert.True(t, r.Dev, r.Name)
	}
}

func TestRecommend_VueUsesDetectedStack(t *testing.T) {
	a := New(nil)

	vue2 := index(a.Recommend(project.StackVue2, "", true))
	assert.Equal(t, "^5.9.0", vue2["@testing-library/vue"].VersionRange)
	assert.Contains(t, vue2, "@vitejs/plugin-vue2")
	assert.Equal(t, "^1.3.6", vue2["@vue/test-utils"].VersionRange)
	assert.Contains(t, vue2, "@types/jsdom")

	vue3 := index(a.Recommend(project.StackVue3, "^2.7.0", false))
	assert.Contains(t, vue3, "@vitejs/plugin-vue")
	assert.Equal(t, "^2.4.6", vue3["@vue/test-utils"].VersionRange)
}

func TestRecommend_Extra(t *testing.T) {
	recs := New(nil).Recommend(project.StackReact, "^18.0.0", false,
		project.DependencySpec{Name: "vitest", VersionRange: "^3.0.0", Dev: true},
		project.DependencySpec{Name: "msw", VersionRange: "^2.2.0"},
	)
	byName := index(recs)
	assert.Equal(t, "^3.0.0", byName["vitest"].VersionRange)
	assert.False(t, byName["msw"].Dev)
	assert.Equal(t, "vitest", recs[0].Name, "replacement keeps position")
}

func TestAnalyze(t *testing.T) {
	m, err := manifest.Parse("package.json", []byte(`{
  "dependencies": {"react": "^18.2.0"},
  "devDependencies": {"vitest": "^0.34.0", "jsdom": "^26.0.0", "@testing-library/react": "^14.3.1", "@vitest/ui": "latest"}
}`))
	require.NoError(t, err)

	a := New(nil)
	recs := a.Recommend(project.StackReact, "^18.2.0", false)
	got := a.Analyze(m, recs)

	assert.Equal(t, "^18.2.0", got.ExistingDependencies["react"])
	assert.Equal(t, recs, got.Recommendations)
	require.Len(t, got.Conflicts, 2)

	assert.Equal(t, "vitest", got.Conflicts[0].Package)
	assert.Equal(t, "upgrade vitest to ^2.1.0", got.Conflicts[0].Resolution)
	assert.Equal(t, "jsdom", got.Conflicts[1].Package)
	assert.Contains(t, got.Conflicts[1].Resolution, "keep jsdom ^26.0.0")
	assert.Equal(t, "vitest: declared ^0.34.0, recommended ^2.1.0 (upgrade vitest to ^2.1.0)", got.Conflicts[0].String())
}

func TestAnalyze_BelowRecommendedMinimum(t *testing.T) {
	m, err := manifest.Parse("package.json", []byte(`{
  "dependencies": {"react": "^18.2.0"},
  "devDependencies": {"vitest": "^2.0.0", "@testing-library/react": "14.0.0", "jsdom": "^25.2.0"}
}`))
	require.NoError(t, err)

	a := New(nil)
	got := a.Analyze(m, a.Recommend(project.StackReact, "^18.2.0", false))

	byName := map[string]DependencyConflict{}
	for _, c := range got.Conflicts {
		byName[c.Package] = c
	}
	require.Len(t, byName, 2)
	assert.Equal(t, "upgrade vitest to ^2.1.0; ^2.0.0 allows 2.0.0", byName["vitest"].Resolution)
	assert.Equal(t, "^14.3.1", byName["@testing-library/react"].Recommended)
	assert.Contains(t, byName["@testing-library/react"].Resolution, "upgrade @testing-library/react")
	assert.NotContains(t, byName, "jsdom", "^25.2.0 is within ^25.0.0")
}

func TestCompareRanges_UnparseableRecommendation(t *testing.T) {
	_, conflict := compareRanges(project.DependencySpec{Name: "msw", VersionRange: "latest"}, "^1.0.0")
	assert.False(t, conflict)

	_, conflict = compareRanges(project.DependencySpec{Name: "vitest", VersionRange: "^2.1.0"}, "workspace:*")
	assert.False(t, conflict)
}

func TestAnalyze_NilManifest(t *testing.T) {
	got := New(nil).Analyze(nil, []project.DependencySpec{{Name: "vitest", VersionRange: "^2.1.0"}})
	assert.Empty(t, got.ExistingDependencies)
	assert.Empty(t, got.Conflicts)
}

func TestFrameworkCompatible(t *testing.T) {
	tests := []struct {
		name     string
		stack    project.Stack
		declared string
		want     bool
	}{
		{"react 18", project.StackReact, "^18.2.0", true},
		{"react 15", project.StackReact, "^15.6.2", false},
		{"react unknown", project.StackReact, "latest", true},
		{"vue2 matches", project.StackVue2, "^2.7.0", true},
		{"vue3 declared 2", project.StackVue3, "^2.7.0", false},
		{"vue2 declared 3", project.StackVue2, "3.4.0", false},
		{"vue without declaration", project.StackVue3, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := FrameworkCompatible(tt.stack, tt.declared)
			assert.Equal(t, tt.want, ok)
			if !tt.want {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

// Helper function to index recommendations by package name
func index(recs []project.DependencySpec) map[string]project.DependencySpec {
	out := make(map[string]project.DependencySpec, len(recs))
	for _, r := range recs {
		out[r.Name] = r
	}
	return out
}
