// Package jsconfig locates the configuration object in a Vite or Vitest
// config file and splices new top-level members into it.
//
// Files are parsed with tree-sitter. When no object can be found in the
// syntax tree, a scanner that counts braces outside string literals and
// comments is used instead.
package jsconfig

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// maxTreeDepth bounds recursion when walking syntax trees.
const maxTreeDepth = 1000

var (
	jsLang   *sitter.Language
	tsLang   *sitter.Language
	langOnce sync.Once
)

func language(filename string) *sitter.Language {
	langOnce.Do(func() {
		jsLang = javascript.GetLanguage()
		tsLang = typescript.GetLanguage()
	})
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".js", ".mjs", ".cjs":
		return jsLang
	default:
		return tsLang
	}
}

// parse returns a fresh tree for src. Parsers are not reused because a
// cancelled ParseCtx leaves the parser unusable.
func parse(ctx context.Context, filename string, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(language(filename))

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(filename), err)
	}
	return tree, nil
}

func walk(node *sitter.Node, depth int, visit func(*sitter.Node) bool) {
	if node == nil || depth > maxTreeDepth {
		return
	}
	if !visit(node) {
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		walk(node.NamedChild(i), depth+1, visit)
	}
}

// configObject finds the object literal holding the config in tree order:
// the first defineConfig(...) argument, then export default {...}, then
// module.exports = {...}.
func configObject(root *sitter.Node, src []byte) *sitter.Node {
	var defined, exported, assigned *sitter.Node

	walk(root, 0, func(n *sitter.Node) bool {
		switch n.Type() {
		case "call_expression":
			if defined == nil && calleeName(n, src) == "defineConfig" {
				defined = firstArgObject(n)
			}
		case "export_statement":
			if exported == nil {
				if v := n.ChildByFieldName("value"); v != nil {
					exported = unwrapObject(v)
				}
			}
		case "assignment_expression":
			if assigned == nil {
				left := n.ChildByFieldName("left")
				if left != nil && left.Content(src) == "module.exports" {
					assigned = unwrapObject(n.ChildByFieldName("right"))
				}
			}
		}
		return defined == nil
	})

	switch {
	case defined != nil:
		return defined
	case exported != nil:
		return exported
	default:
		return assigned
	}
}

func calleeName(call *sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	return fn.Content(src)
}

func firstArgObject(call *sitter.Node) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return nil
	}
	return unwrapObject(args.NamedChild(0))
}

// unwrapObject accepts an object literal directly, wrapped in
// parentheses, or as the expression body of an arrow function.
func unwrapObject(n *sitter.Node) *sitter.Node {
	for depth := 0; n != nil && depth < 4; depth++ {
		switch n.Type() {
		case "object":
			return n
		case "parenthesized_expression":
			if n.NamedChildCount() == 0 {
				return nil
			}
			n = n.NamedChild(0)
		case "arrow_function":
			n = n.ChildByFieldName("body")
		default:
			return nil
		}
	}
	return nil
}

// hasKey reports whether obj has a direct member named key.
func hasKey(obj *sitter.Node, src []byte, key string) bool {
	return findKey(obj, src, key) != nil
}

// findKey returns the direct member of obj named key.
func findKey(obj *sitter.Node, src []byte, key string) *sitter.Node {
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		member := obj.NamedChild(i)
		switch member.Type() {
		case "pair", "method_definition":
			k := member.ChildByFieldName("key")
			if k == nil {
				k = member.ChildByFieldName("name")
			}
			if k != nil && strings.Trim(k.Content(src), `'"`+"`") == key {
				return member
			}
		case "shorthand_property_identifier":
			if member.Content(src) == key {
				return member
			}
		}
	}
	return nil
}
