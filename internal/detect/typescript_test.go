package detect

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeScript(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		files    map[string]string
		want     bool
	}{
		{name: "dependency", manifest: `{"devDependencies": {"typescript": "^5.3.0"}}`, want: true},
		{name: "types field", manifest: `{"types": "index.d.ts"}`, want: true},
		{name: "typings field", manifest: `{"typings": "index.d.ts"}`, want: true},
		{name: "tsconfig", manifest: `{}`, files: map[string]string{"tsconfig.json": "{}"}, want: true},
		{name: "source file", manifest: `{}`, files: map[string]string{"src/main.ts": ""}, want: true},
		{name: "tsx app", manifest: `{}`, files: map[string]string{"src/App.tsx": ""}, want: true},
		{name: "plain js", manifest: `{}`, files: map[string]string{"src/main.js": ""}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			m := writePackage(t, dir, tt.manifest)
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}

			got, evidence := TypeScript(m, dir, dir)
			assert.Equal(t, tt.want, got)
			if tt.want {
				assert.NotEmpty(t, evidence)
			}
		})
	}
}

func TestTypeScript_RootTsconfig(t *testing.T) {
	root := t.TempDir()
	member := filepath.Join(root, "packages", "a")
	m := writePackage(t, member, `{}`)
	writeFile(t, root, "tsconfig.json", "{}")

	got, evidence := TypeScript(m, member, root)
	assert.True(t, got)
	assert.Equal(t, filepath.Join(root, "tsconfig.json"), evidence)
}
