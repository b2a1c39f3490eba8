package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Engine renders templates using Go's text/template.
type Engine struct {
	ctx     *Context
	funcMap template.FuncMap
}

// NewEngine creates a template engine for ctx.
func NewEngine(ctx *Context) *Engine {
	e := &Engine{ctx: ctx}
	e.funcMap = e.builtinFunctions()
	return e
}

// Render processes a template string with the context.
func (e *Engine) Render(content string) (string, error) {
	tmpl, err := template.New("content").Funcs(e.funcMap).Parse(content)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, e.ctx.ToMap()); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

// RenderWithVars renders a template string with additional variables.
// The additional vars are merged with the context's ExtraVars for this render only.
func (e *Engine) RenderWithVars(content string, vars map[string]any) (string, error) {
	cloned := e.ctx.Clone()
	for k, v := range vars {
		cloned.ExtraVars[k] = v
	}
	return NewEngine(cloned).Render(content)
}

func (e *Engine) readProjectFile(path string) (string, error) {
	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(e.ctx.ProjectRoot, path)
	}
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("reading file %s: %w", path, err)
	}
	return string(content), nil
}

// VitePlugin returns the vite plugin package for a stack name.
func VitePlugin(stack string) string {
	switch stack {
	case "react":
		return "@vitejs/plugin-react"
	case "vue2":
		return "@vitejs/plugin-vue2"
	default:
		return "@vitejs/plugin-vue"
	}
}

// builtinFunctions returns the built-in template functions.
func (e *Engine) builtinFunctions() template.FuncMap {
	return template.FuncMap{
		// file reads a file relative to the project root
		"file": e.readProjectFile,

		// env reads an environment variable with optional default
		"env": func(args ...string) string {
			if len(args) == 0 {
				return ""
			}
			value := os.Getenv(args[0])
			if value == "" && len(args) > 1 {
				value = args[1]
			}
			return value
		},

		// dict creates a map from key-value pairs
		// Usage: {{ dict "key1" "val1" "key2" "val2" }}
		"dict": func(values ...any) map[string]any {
			m := make(map[string]any)
			for i := 0; i < len(values)-1; i += 2 {
				key, ok := values[i].(string)
				if ok {
					m[key] = values[i+1]
				}
			}
			return m
		},

		"json": func(v any) (string, error) {
			data, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},

		// jsonIndent renders v as indented JSON nested depth levels deep,
		// for embedding in a generated JSON document.
		"jsonIndent": func(v any, depth int) (string, error) {
			data, err := json.MarshalIndent(v, strings.Repeat("  ", depth), "  ")
			if err != nil {
				return "", err
			}
			return string(data), nil
		},

		// plugin returns the vite plugin package for a stack
		"plugin": VitePlugin,

		// templatefile reads a project file and renders it with vars
		"templatefile": func(path string, vars map[string]any) (string, error) {
			content, err := e.readProjectFile(path)
			if err != nil {
				return "", err
			}
			return e.RenderWithVars(content, vars)
		},
	}
}
