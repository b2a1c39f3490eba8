// Package template renders generated artifacts with Go's text/template.
package template

import "maps"

// Context holds all variables available during template rendering.
type Context struct {
	// Stack is react, vue2 or vue3; Framework is react or vue.
	Stack     string
	Framework string

	TypeScript bool
	Extension  string // "ts" or "js"

	ProjectRoot string

	// SetupFile is the setup file path as referenced from the config,
	// e.g. "./src/setupTests.ts".
	SetupFile   string
	Environment string

	// Values for the package.json fragment. Anything json-encodable.
	Scripts         any
	DevDependencies any

	// Variables come from the user's configuration.
	Variables map[string]string

	// Additional vars passed to templatefile() calls
	ExtraVars map[string]any
}

// NewContext creates a template context for a stack.
func NewContext(stack, framework, projectRoot string, typeScript bool) *Context {
	ext := "js"
	if typeScript {
		ext = "ts"
	}
	return &Context{
		Stack:       stack,
		Framework:   framework,
		TypeScript:  typeScript,
		Extension:   ext,
		ProjectRoot: projectRoot,
		Environment: "jsdom",
		Variables:   make(map[string]string),
		ExtraVars:   make(map[string]any),
	}
}

// WithVariables sets user-defined variables and returns the context.
func (c *Context) WithVariables(vars map[string]string) *Context {
	c.Variables = vars
	return c
}

// ToMap converts the context to a map for template execution.
func (c *Context) ToMap() map[string]any {
	m := map[string]any{
		"Stack":           c.Stack,
		"Framework":       c.Framework,
		"TypeScript":      c.TypeScript,
		"Extension":       c.Extension,
		"ProjectRoot":     c.ProjectRoot,
		"SetupFile":       c.SetupFile,
		"Environment":     c.Environment,
		"Scripts":         c.Scripts,
		"DevDependencies": c.DevDependencies,
	}

	for k, v := range c.Variables {
		m[k] = v
	}
	for k, v := range c.ExtraVars {
		m[k] = v
	}

	return m
}

// Clone creates a copy of the context with independent maps.
func (c *Context) Clone() *Context {
	clone := *c
	clone.Variables = maps.Clone(c.Variables)
	clone.ExtraVars = maps.Clone(c.ExtraVars)
	if clone.Variables == nil {
		clone.Variables = make(map[string]string)
	}
	if clone.ExtraVars == nil {
		clone.ExtraVars = make(map[string]any)
	}
	return &clone
}
