package jsconfig

import (
	"bytes"
	"regexp"
)

// Byte classes produced by classify.
const (
	classComment byte = iota
	classCode
	classString
)

// codeMask marks the bytes of src that are outside string literals and
// comments.
func codeMask(src []byte) []bool {
	classes := classify(src)
	mask := make([]bool, len(src))
	for i, c := range classes {
		mask[i] = c == classCode
	}
	return mask
}

// classify labels every byte of src as code, string literal or comment.
// Regular expression literals are not recognised.
func classify(src []byte) []byte {
	classes := make([]byte, len(src))
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := bytes.Index(src[i+2:], []byte("*/"))
			if end < 0 {
				i = len(src)
			} else {
				i += end + 4
			}
		case c == '\'' || c == '"' || c == '`':
			start := i
			i++
			for i < len(src) && src[i] != c {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			i++
			for j := start; j < i && j < len(src); j++ {
				classes[j] = classString
			}
		default:
			classes[i] = classCode
			i++
		}
	}
	return classes
}

var (
	defineConfigOpen = regexp.MustCompile(`\bdefineConfig\s*\(\s*\{`)
	exportObjectOpen = regexp.MustCompile(`\bexport\s+default\s*\{`)
	moduleObjectOpen = regexp.MustCompile(`\bmodule\.exports\s*=\s*\{`)
	testKey          = regexp.MustCompile(`^test\s*:`)
)

// scan finds the config object by counting braces in code regions.
func scan(src []byte) (Object, bool) {
	mask := codeMask(src)

	for _, re := range []*regexp.Regexp{defineConfigOpen, exportObjectOpen, moduleObjectOpen} {
		for _, loc := range re.FindAllIndex(src, -1) {
			open := loc[1] - 1
			if !mask[loc[0]] || !mask[open] {
				continue
			}
			end := matchBrace(src, mask, open)
			if end < 0 {
				continue
			}
			return Object{
				Start:   open,
				End:     end,
				HasTest: scanHasTest(src, mask, open, end),
				Via:     ViaScanner,
			}, true
		}
	}
	return Object{}, false
}

// matchBrace returns the index of the brace closing src[open], or -1.
func matchBrace(src []byte, mask []bool, open int) int {
	depth := 0
	for i := open; i < len(src); i++ {
		if !mask[i] {
			continue
		}
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// scanHasTest looks for a test: member directly inside the object.
func scanHasTest(src []byte, mask []bool, open, end int) bool {
	depth := 0
	prev := byte('{')
	for i := open + 1; i < end; i++ {
		if !mask[i] {
			continue
		}
		c := src[i]
		switch c {
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		case ' ', '\t', '\n', '\r':
			continue
		default:
			if depth == 0 && (prev == '{' || prev == ',') && testKey.Match(src[i:end]) {
				return true
			}
		}
		prev = c
	}
	return false
}
