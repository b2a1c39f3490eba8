package detect

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/project"
	"github.com/launchcg/testup/pkg/version"
)

// Layer names the cascade step that produced a Detection.
type Layer string

const (
	LayerOverride  Layer = "override"
	LayerManifest  Layer = "manifest"
	LayerInstalled Layer = "node_modules"
	LayerSource    Layer = "source"
	LayerFallback  Layer = "fallback"
)

// Detection is the framework classification plus how it was reached.
type Detection struct {
	Stack    project.Stack
	Layer    Layer
	Evidence string
}

// Confirmed reports whether the stack rests on evidence rather than the
// react fallback.
func (d Detection) Confirmed() bool {
	return d.Layer != LayerFallback
}

// FrameworkInput is what the framework cascade inspects. RootManifest may
// be nil; directories may be empty when no filesystem context exists.
type FrameworkInput struct {
	Manifest     *manifest.Manifest
	RootManifest *manifest.Manifest
	CurrentDir   string
	RootDir      string
}

// frameworkLayer returns a classification and whether it found any signal.
type frameworkLayer func(FrameworkInput) (Detection, bool)

var frameworkLayers = []frameworkLayer{
	manifestLayer,
	installedLayer,
	sourceLayer,
}

// Framework classifies the project's UI framework.
//
// Layers run in order and the first non-react result wins. A react result
// cannot end the cascade because react is also the fallback; it is kept
// and returned only if no later layer finds Vue.
func Framework(in FrameworkInput) Detection {
	var react *Detection
	for _, layer := range frameworkLayers {
		d, ok := layer(in)
		if !ok {
			continue
		}
		if d.Stack != project.StackReact {
			return d
		}
		if react == nil {
			react = &d
		}
	}

	if react != nil {
		return *react
	}
	return Detection{Stack: project.StackReact, Layer: LayerFallback, Evidence: "no framework signal"}
}

// MergedDependencies overlays the current package's declared dependencies
// onto the workspace root's. Within one manifest dependencies beat
// devDependencies, which beat peerDependencies.
func MergedDependencies(in FrameworkInput) map[string]string {
	merged := make(map[string]string)
	overlay := func(m *manifest.Manifest) {
		if m == nil {
			return
		}
		for _, section := range []string{manifest.SectionPeerDependencies, manifest.SectionDevDependencies, manifest.SectionDependencies} {
			for k, v := range m.Section(section) {
				merged[k] = v
			}
		}
	}

	if in.RootManifest != nil && in.RootDir != "" && in.CurrentDir != in.RootDir {
		overlay(in.RootManifest)
	}
	overlay(in.Manifest)
	return merged
}

func manifestLayer(in FrameworkInput) (Detection, bool) {
	deps := MergedDependencies(in)
	found := func(stack project.Stack, evidence string) (Detection, bool) {
		return Detection{Stack: stack, Layer: LayerManifest, Evidence: evidence}, true
	}

	if _, ok := deps["react"]; ok {
		return found(project.StackReact, "react dependency")
	}
	if v, ok := deps["vue"]; ok {
		return found(VueStackFromRange(v), "vue dependency "+v)
	}
	for _, name := range []string{"@vue/cli-service", "@vitejs/plugin-vue"} {
		if _, ok := deps[name]; ok {
			return found(project.StackVue3, name+" dependency")
		}
	}
	for _, name := range []string{"vue-template-compiler", "@vue/composition-api"} {
		if _, ok := deps[name]; ok {
			return found(project.StackVue2, name+" dependency")
		}
	}
	return Detection{}, false
}

// VueStackFromRange classifies a declared vue range. The coerced major
// decides when it is 2 or 3; otherwise a "3." or "2." substring does, and
// anything else counts as Vue 3.
//
// The major is checked before the substrings, so ">=2.7 <3.0" is Vue 2
// even though it contains "3.". A substring-first order would call it
// Vue 3.
func VueStackFromRange(rng string) project.Stack {
	if major, ok := version.Major(rng); ok {
		switch major {
		case 3:
			return project.StackVue3
		case 2:
			return project.StackVue2
		}
	}
	switch {
	case strings.Contains(rng, "3."):
		return project.StackVue3
	case strings.Contains(rng, "2."):
		return project.StackVue2
	}
	return project.StackVue3
}

// maxAncestorSearch is how many directories above the root are searched
// for node_modules.
const maxAncestorSearch = 3

// nodeModulesDirs lists node_modules candidates: current directory, root,
// then up to three ancestors of the root.
func nodeModulesDirs(in FrameworkInput) []string {
	dirs := []string{in.CurrentDir, in.RootDir}

	base := in.RootDir
	if base == "" {
		base = in.CurrentDir
	}
	for i := 0; i < maxAncestorSearch && base != ""; i++ {
		parent := filepath.Dir(base)
		if parent == base {
			break
		}
		dirs = append(dirs, parent)
		base = parent
	}
	return uniqueDirs(dirs...)
}

func installedLayer(in FrameworkInput) (Detection, bool) {
	var react *Detection
	for _, dir := range nodeModulesDirs(in) {
		nm := filepath.Join(dir, "node_modules")
		if !dirExists(nm) {
			continue
		}

		d, ok := classifyInstalled(nm)
		if !ok {
			continue
		}
		if d.Stack != project.StackReact {
			return d, true
		}
		if react == nil {
			react = &d
		}
	}

	if react != nil {
		return *react, true
	}
	return Detection{}, false
}

func classifyInstalled(nodeModules string) (Detection, bool) {
	found := func(stack project.Stack, pkg string) (Detection, bool) {
		return Detection{Stack: stack, Layer: LayerInstalled, Evidence: filepath.Join(nodeModules, pkg)}, true
	}

	if m, err := manifest.Load(filepath.Join(nodeModules, "vue")); err == nil {
		if major, ok := version.Major(m.Version()); ok && major == 2 {
			return found(project.StackVue2, "vue")
		}
		return found(project.StackVue3, "vue")
	}
	if fileExists(filepath.Join(nodeModules, "vue-template-compiler", manifest.FileName)) {
		return found(project.StackVue2, "vue-template-compiler")
	}
	if fileExists(filepath.Join(nodeModules, "@vitejs", "plugin-vue", manifest.FileName)) {
		return found(project.StackVue3, "@vitejs/plugin-vue")
	}
	if fileExists(filepath.Join(nodeModules, "react", manifest.FileName)) {
		return found(project.StackReact, "react")
	}
	return Detection{}, false
}

var (
	entryFiles = []string{
		"src/main.js",
		"src/main.ts",
		"src/index.js",
		"src/index.ts",
		"main.js",
		"index.js",
	}
	componentFiles = []string{
		"src/App.vue",
		"src/App.js",
		"src/App.jsx",
		"src/App.tsx",
		"src/components/index.js",
	}

	entryPatterns = []struct {
		re    *regexp.Regexp
		stack project.Stack
	}{
		{regexp.MustCompile(`createApp\s*\(`), project.StackVue3},
		{regexp.MustCompile(`new\s+Vue\s*\(`), project.StackVue2},
		{regexp.MustCompile(`ReactDOM\.render|createRoot|React\.createElement`), project.StackReact},
	}

	vue3Markers  = []string{"defineComponent", "setup(", "<script setup"}
	vue2Markers  = []string{"export default {", "Vue.component"}
	reactIdioms  = []string{"React.Component", "useState", "useEffect", "function App()", "const App ="}
	vueSFCMarker = []string{"<template>", "<script"}
)

func sourceLayer(in FrameworkInput) (Detection, bool) {
	if in.CurrentDir == "" {
		return Detection{}, false
	}

	for _, rel := range entryFiles {
		content, ok := readHead(filepath.Join(in.CurrentDir, filepath.FromSlash(rel)))
		if !ok {
			continue
		}
		for _, p := range entryPatterns {
			if p.re.MatchString(content) {
				return Detection{Stack: p.stack, Layer: LayerSource, Evidence: rel}, true
			}
		}
	}

	for _, rel := range componentFiles {
		content, ok := readHead(filepath.Join(in.CurrentDir, filepath.FromSlash(rel)))
		if !ok {
			continue
		}
		if stack, ok := classifyComponent(rel, content); ok {
			return Detection{Stack: stack, Layer: LayerSource, Evidence: rel}, true
		}
	}
	return Detection{}, false
}

func classifyComponent(name, content string) (project.Stack, bool) {
	if strings.HasSuffix(name, ".vue") || containsAny(content, vueSFCMarker) {
		switch {
		case containsAny(content, vue3Markers):
			return project.StackVue3, true
		case containsAny(content, vue2Markers):
			return project.StackVue2, true
		}
		return project.StackVue3, true
	}
	if containsAny(content, reactIdioms) {
		return project.StackReact, true
	}
	return "", false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
