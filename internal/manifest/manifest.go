// Package manifest reads and edits package.json files without disturbing
// their key order or indentation.
package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"

	"github.com/launchcg/testup/internal/errors"
)

// FileName is the manifest file looked up in every package directory.
const FileName = "package.json"

// Dependency sections of a manifest.
const (
	SectionDependencies     = "dependencies"
	SectionDevDependencies  = "devDependencies"
	SectionPeerDependencies = "peerDependencies"
)

var indentRegex = regexp.MustCompile(`\n([ \t]+)"`)

// Manifest is a parsed package.json.
type Manifest struct {
	path            string
	fields          *Object
	indent          string
	trailingNewline bool
}

// Load reads the package.json in dir.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads the manifest at path. A missing file, an unreadable file
// and malformed JSON all return a *errors.ManifestError.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewManifestError(path, "read", err)
	}
	return Parse(path, data)
}

// Parse builds a Manifest from raw bytes; path is recorded for Save.
func Parse(path string, data []byte) (*Manifest, error) {
	fields, err := ParseObject(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if err != nil {
		return nil, errors.NewManifestError(path, "parse", err)
	}

	m := &Manifest{
		path:            path,
		fields:          fields,
		indent:          "  ",
		trailingNewline: len(data) == 0 || bytes.HasSuffix(data, []byte("\n")),
	}
	if match := indentRegex.FindSubmatch(data); match != nil {
		m.indent = string(match[1])
	} else if !bytes.Contains(data, []byte("\n")) && len(data) > 0 {
		m.indent = ""
	}
	return m, nil
}

// Path returns the manifest's file path.
func (m *Manifest) Path() string { return m.path }

// Dir returns the directory holding the manifest.
func (m *Manifest) Dir() string { return filepath.Dir(m.path) }

// Fields exposes the ordered top-level object.
func (m *Manifest) Fields() *Object { return m.fields }

// Has reports whether a top-level field exists.
func (m *Manifest) Has(key string) bool { return m.fields.Has(key) }

func (m *Manifest) str(key string) string {
	var s string
	m.fields.Get(key, &s)
	return s
}

// Name returns the "name" field.
func (m *Manifest) Name() string { return m.str("name") }

// Version returns the "version" field.
func (m *Manifest) Version() string { return m.str("version") }

// PackageManager returns the "packageManager" field, e.g. "pnpm@8.15.0".
func (m *Manifest) PackageManager() string { return m.str("packageManager") }

// Types returns the "types" field, falling back to "typings".
func (m *Manifest) Types() string {
	if t := m.str("types"); t != "" {
		return t
	}
	return m.str("typings")
}

// EnginesNode returns engines.node.
func (m *Manifest) EnginesNode() string {
	var engines map[string]string
	m.fields.Get("engines", &engines)
	return engines["node"]
}

// Section returns a copy of a dependency-style string map such as
// "dependencies" or "scripts". Non-string values are skipped.
func (m *Manifest) Section(name string) map[string]string {
	out := make(map[string]string)
	var raw map[string]any
	if !m.fields.Get(name, &raw) {
		return out
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Dependencies returns the "dependencies" section.
func (m *Manifest) Dependencies() map[string]string { return m.Section(SectionDependencies) }

// DevDependencies returns the "devDependencies" section.
func (m *Manifest) DevDependencies() map[string]string { return m.Section(SectionDevDependencies) }

// PeerDependencies returns the "peerDependencies" section.
func (m *Manifest) PeerDependencies() map[string]string { return m.Section(SectionPeerDependencies) }

// Scripts returns the "scripts" section.
func (m *Manifest) Scripts() map[string]string { return m.Section("scripts") }

// AllDependencies merges dependencies and devDependencies; production
// entries win on duplicates.
func (m *Manifest) AllDependencies() map[string]string {
	out := m.DevDependencies()
	for k, v := range m.Dependencies() {
		out[k] = v
	}
	return out
}

// DeclaredVersion looks a package up in dependencies, devDependencies and
// peerDependencies, in that order.
func (m *Manifest) DeclaredVersion(pkg string) (string, bool) {
	for _, section := range []string{SectionDependencies, SectionDevDependencies, SectionPeerDependencies} {
		if v, ok := m.Section(section)[pkg]; ok {
			return v, true
		}
	}
	return "", false
}

// Workspaces returns the workspace globs declared in either the array form
// ("workspaces": [...]) or the object form ("workspaces": {"packages": [...]}).
// The boolean reports whether the field exists at all.
func (m *Manifest) Workspaces() ([]string, bool) {
	if !m.fields.Has("workspaces") {
		return nil, false
	}

	var list []string
	if m.fields.Get("workspaces", &list) {
		return list, true
	}

	var obj struct {
		Packages []string `json:"packages"`
	}
	m.fields.Get("workspaces", &obj)
	return obj.Packages, true
}

// SetEntry adds name=value to a string-map section, creating the section
// when needed. Existing entries are left alone; the return value reports
// whether anything changed.
func (m *Manifest) SetEntry(section, name, value string) (bool, error) {
	nested, ok := m.fields.Object(section)
	if !ok {
		nested = NewObject()
	}
	if nested.Has(name) {
		return false, nil
	}
	if err := nested.Set(name, value); err != nil {
		return false, err
	}
	return true, m.fields.Set(section, nested)
}

// Marshal renders the manifest with its original indentation.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := m.fields.MarshalIndent(m.indent)
	if err != nil {
		return nil, err
	}
	if m.trailingNewline {
		data = append(data, '\n')
	}
	return data, nil
}

// Save writes the manifest back to its path.
func (m *Manifest) Save() error {
	data, err := m.Marshal()
	if err != nil {
		return errors.NewManifestError(m.path, "write", err)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(m.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(m.path, data, mode); err != nil {
		return errors.NewManifestError(m.path, "write", err)
	}
	return nil
}
