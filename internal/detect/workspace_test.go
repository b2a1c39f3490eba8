package detect

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/project"
)

func TestArchitecture(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		dir := t.TempDir()
		writePackage(t, dir, `{"name": "solo"}`)

		root, arch := Architecture(dir, nil)
		assert.Equal(t, dir, root)
		assert.Equal(t, project.ArchSingle, arch)
	})

	t.Run("pnpm from member", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, PnpmWorkspaceFile, "packages:\n  - 'packages/*'\n")
		writePackage(t, root, `{"name": "mono"}`)
		member := filepath.Join(root, "packages", "ui")
		writePackage(t, member, `{"name": "@mono/ui"}`)

		got, arch := Architecture(member, manifest.NewCache(8))
		assert.Equal(t, root, got)
		assert.Equal(t, project.ArchPnpmWorkspace, arch)
	})

	t.Run("yarn object form", func(t *testing.T) {
		root := t.TempDir()
		writePackage(t, root, `{"workspaces": {"packages": ["apps/*"]}}`)
		member := filepath.Join(root, "apps", "site")
		writePackage(t, member, `{"name": "site"}`)

		got, arch := Architecture(member, nil)
		assert.Equal(t, root, got)
		assert.Equal(t, project.ArchYarnWorkspace, arch)
	})
}

func TestWorkspace_PnpmMembers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, PnpmWorkspaceFile, `packages:
  - "packages/*"
  - "apps/**"
  - "!packages/legacy"
`)
	writePackage(t, root, `{"name": "mono", "private": true}`)
	writePackage(t, filepath.Join(root, "packages", "ui"), `{"name": "@mono/ui"}`)
	writePackage(t, filepath.Join(root, "packages", "legacy"), `{"name": "@mono/legacy"}`)
	writePackage(t, filepath.Join(root, "apps", "web"), `{"name": "web"}`)
	writePackage(t, filepath.Join(root, "apps", "web", "node_modules", "dep"), `{"name": "dep"}`)
	writeFile(t, root, "packages/empty/README.md", "no manifest here")

	current := filepath.Join(root, "apps", "web", "src")
	info := Workspace(root, current, project.ArchPnpmWorkspace, nil)
	require.NotNil(t, info)

	assert.Equal(t, "pnpm", info.Type)
	require.NotNil(t, info.RootManifest)
	assert.Equal(t, "mono", info.RootManifest.Name())

	var paths []string
	for _, p := range info.Packages {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{"apps/web", "packages/ui"}, paths)

	assert.Equal(t, project.LocationPackage, info.CurrentLocation)
	require.NotNil(t, info.CurrentPackage)
	assert.Equal(t, "web", info.CurrentPackage.Name)
}

func TestWorkspace_YarnAtRoot(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, `{"name": "mono", "workspaces": ["./libs/*"]}`)
	writePackage(t, filepath.Join(root, "libs", "core"), `{"name": "core"}`)

	info := Workspace(root, root, project.ArchYarnWorkspace, nil)
	require.NotNil(t, info)
	assert.Equal(t, "yarn", info.Type)
	require.Len(t, info.Packages, 1)
	assert.Equal(t, "libs/core", info.Packages[0].Path)
	assert.Equal(t, project.LocationRoot, info.CurrentLocation)
	assert.Nil(t, info.CurrentPackage)
}

func TestWorkspace_NestedMembersPickDeepest(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, `{"workspaces": ["packages/**"]}`)
	writePackage(t, filepath.Join(root, "packages", "shell"), `{"name": "shell"}`)
	writePackage(t, filepath.Join(root, "packages", "shell", "plugins", "auth"), `{"name": "auth"}`)

	info := Workspace(root, filepath.Join(root, "packages", "shell", "plugins", "auth"), project.ArchYarnWorkspace, nil)
	require.NotNil(t, info)
	require.NotNil(t, info.CurrentPackage)
	assert.Equal(t, "auth", info.CurrentPackage.Name)
}

func TestWorkspace_NonMemberDirectory(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, `{"workspaces": ["packages/*"]}`)
	writePackage(t, filepath.Join(root, "packages", "a"), `{"name": "a"}`)

	info := Workspace(root, filepath.Join(root, "tools"), project.ArchYarnWorkspace, nil)
	require.NotNil(t, info)
	assert.Equal(t, project.LocationRoot, info.CurrentLocation)
	assert.Nil(t, info.CurrentPackage)
}

func TestWorkspace_Single(t *testing.T) {
	assert.Nil(t, Workspace(t.TempDir(), t.TempDir(), project.ArchSingle, nil))
}

func TestWorkspaceGlobs_BadYAML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, PnpmWorkspaceFile, "packages: [unclosed")
	assert.Empty(t, WorkspaceGlobs(root, project.ArchPnpmWorkspace, nil))
}
