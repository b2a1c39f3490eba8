// Package project holds the detected facts about a frontend project: the
// ProjectSignature snapshot and the value types it is built from.
package project

import (
	"maps"
	"slices"

	"github.com/launchcg/testup/internal/manifest"
)

// Stack is the UI framework classification.
type Stack string

const (
	StackReact Stack = "react"
	StackVue2  Stack = "vue2"
	StackVue3  Stack = "vue3"
)

// Stacks lists every supported stack.
var Stacks = []Stack{StackReact, StackVue2, StackVue3}

// Framework returns the npm package name of the stack's framework.
func (s Stack) Framework() string {
	if s == StackReact {
		return "react"
	}
	return "vue"
}

// IsVue reports whether s is one of the Vue stacks.
func (s Stack) IsVue() bool {
	return s == StackVue2 || s == StackVue3
}

// Architecture is the project topology.
type Architecture string

const (
	ArchSingle        Architecture = "single"
	ArchPnpmWorkspace Architecture = "pnpm-workspace"
	ArchYarnWorkspace Architecture = "yarn-workspace"
)

// Architectures lists every supported topology.
var Architectures = []Architecture{ArchSingle, ArchPnpmWorkspace, ArchYarnWorkspace}

// PackageManager identifies the package manager driving the project.
type PackageManager string

const (
	NPM  PackageManager = "npm"
	Yarn PackageManager = "yarn"
	PNPM PackageManager = "pnpm"
)

// ConfigType classifies an existing test configuration.
type ConfigType string

const (
	ConfigVitest ConfigType = "vitest"
	ConfigJest   ConfigType = "jest"
	ConfigCustom ConfigType = "custom"
)

// Location says where inside a workspace the tool was invoked.
type Location string

const (
	LocationRoot    Location = "root"
	LocationPackage Location = "package"
)

// WorkspacePackage is one member of a workspace.
type WorkspacePackage struct {
	Name     string
	Path     string // relative to the workspace root, slash separated
	Manifest *manifest.Manifest
}

// WorkspaceInfo describes the workspace the project belongs to.
type WorkspaceInfo struct {
	Type            string // "pnpm" or "yarn"
	Packages        []WorkspacePackage
	RootManifest    *manifest.Manifest
	CurrentLocation Location
	CurrentPackage  *WorkspacePackage
}

// ExistingConfig is a test configuration already present in the project.
// Content holds raw file text, or the decoded object for inline manifest
// blocks such as "jest".
type ExistingConfig struct {
	Type      ConfigType
	FilePath  string
	Content   any
	Conflicts []string
}

// DependencySpec is a package the tool wants installed.
type DependencySpec struct {
	Name         string
	VersionRange string
	Dev          bool
	Optional     bool
}

// Signature is the snapshot of everything detected about a project.
// It is built once per invocation and read-only afterwards; accessors
// return copies of its collections.
type Signature struct {
	RootDir        string
	CurrentDir     string
	TechStack      Stack
	Architecture   Architecture
	PackageManager PackageManager
	IsTypeScript   bool
	NodeVersion    string

	// StackConfirmed is true when the stack came from positive evidence
	// rather than the react fallback.
	StackConfirmed bool
	StackEvidence  string

	HasExistingTests bool
	WorkspaceInfo    *WorkspaceInfo

	dependencyVersions     map[string]string
	existingTestFrameworks []string
	existingConfigs        []ExistingConfig
}

// Collections groups the collection-typed fields passed to NewSignature.
type Collections struct {
	DependencyVersions     map[string]string
	ExistingTestFrameworks []string
	ExistingConfigs        []ExistingConfig
}

// NewSignature builds a Signature, copying c so later changes to the
// caller's values do not leak in.
func NewSignature(sig Signature, c Collections) *Signature {
	sig.dependencyVersions = maps.Clone(c.DependencyVersions)
	if sig.dependencyVersions == nil {
		sig.dependencyVersions = map[string]string{}
	}

	frameworks := slices.Clone(c.ExistingTestFrameworks)
	slices.Sort(frameworks)
	sig.existingTestFrameworks = slices.Compact(frameworks)
	sig.existingConfigs = slices.Clone(c.ExistingConfigs)
	return &sig
}

// DependencyVersions returns the declared dependency ranges.
func (s *Signature) DependencyVersions() map[string]string {
	return maps.Clone(s.dependencyVersions)
}

// DependencyVersion returns the declared range for one package.
func (s *Signature) DependencyVersion(name string) (string, bool) {
	v, ok := s.dependencyVersions[name]
	return v, ok
}

// ExistingTestFrameworks returns the detected test frameworks, sorted.
func (s *Signature) ExistingTestFrameworks() []string {
	return slices.Clone(s.existingTestFrameworks)
}

// HasTestFramework reports whether name was detected.
func (s *Signature) HasTestFramework(name string) bool {
	return slices.Contains(s.existingTestFrameworks, name)
}

// ExistingConfigs returns the detected configurations in discovery order.
func (s *Signature) ExistingConfigs() []ExistingConfig {
	return slices.Clone(s.existingConfigs)
}

// InWorkspacePackage reports whether the invocation point is a workspace
// member rather than the workspace root.
func (s *Signature) InWorkspacePackage() bool {
	return s.WorkspaceInfo != nil &&
		s.WorkspaceInfo.CurrentLocation == LocationPackage &&
		s.WorkspaceInfo.CurrentPackage != nil
}

// FrameworkVersion returns the declared range of the stack's framework.
func (s *Signature) FrameworkVersion() string {
	return s.dependencyVersions[s.TechStack.Framework()]
}
