package jsconfig

import (
	"bytes"
	"context"
	"strings"

	"github.com/launchcg/testup/internal/errors"
)

// How an Object was located.
const (
	ViaTreeSitter = "tree-sitter"
	ViaScanner    = "scanner"
)

// Object is the config object literal inside a source file. Start and
// End are the byte offsets of its opening and closing braces.
type Object struct {
	Start   int
	End     int
	HasTest bool
	Via     string
}

// Locate finds the config object in src. filename selects the grammar.
func Locate(ctx context.Context, filename string, src []byte) (Object, error) {
	tree, err := parse(ctx, filename, src)
	if err == nil {
		defer tree.Close()
		if obj := configObject(tree.RootNode(), src); obj != nil {
			return Object{
				Start:   int(obj.StartByte()),
				End:     int(obj.EndByte()) - 1,
				HasTest: hasKey(obj, src, "test"),
				Via:     ViaTreeSitter,
			}, nil
		}
	}

	if obj, ok := scan(src); ok {
		return obj, nil
	}
	if err != nil {
		return Object{}, err
	}
	return Object{}, errors.NewNotFoundError("config object", filename)
}

// Insert splices member (for example "test: {\n  globals: true,\n}") as
// the last member of obj. A comma is added after the existing last member
// unless the body is empty or already ends with one. member is re-indented
// to match the object's existing members.
func Insert(src []byte, obj Object, member string) []byte {
	classes := classify(src)

	// Whitespace between the last code or comment and the closing brace.
	cut := obj.End
	for cut > obj.Start+1 && isSpace(src[cut-1]) {
		cut--
	}

	last := -1
	for i := cut - 1; i > obj.Start; i-- {
		if classes[i] != classComment && !isSpace(src[i]) {
			last = i
			break
		}
	}

	closing := string(src[cut:obj.End])
	if nl := strings.LastIndexByte(closing, '\n'); nl >= 0 {
		closing = closing[nl:]
	} else {
		closing = "\n" + lineIndent(src, obj.Start)
	}

	indent := memberIndent(src, obj, strings.TrimPrefix(closing, "\n"))
	trailingComma := last >= 0 && src[last] == ','

	var out bytes.Buffer
	out.Grow(len(src) + len(member) + 16)
	if last >= 0 && !trailingComma {
		out.Write(src[:last+1])
		out.WriteByte(',')
		out.Write(src[last+1 : cut])
	} else {
		out.Write(src[:cut])
	}
	out.WriteByte('\n')
	out.WriteString(reindent(member, indent))
	if trailingComma {
		out.WriteByte(',')
	}
	out.WriteString(closing)
	out.Write(src[obj.End:])
	return out.Bytes()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// lineIndent returns the leading whitespace of the line containing pos.
func lineIndent(src []byte, pos int) string {
	start := bytes.LastIndexByte(src[:pos], '\n') + 1
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[start:end])
}

// memberIndent uses the indentation of the first member line, falling
// back to two spaces deeper than the closing brace.
func memberIndent(src []byte, obj Object, closingIndent string) string {
	body := src[obj.Start+1 : obj.End]
	for _, line := range bytes.Split(body, []byte("\n"))[1:] {
		trimmed := bytes.TrimLeft(line, " \t")
		if len(bytes.TrimSpace(trimmed)) == 0 {
			continue
		}
		return string(line[:len(line)-len(trimmed)])
	}
	if strings.Contains(closingIndent, "\t") {
		return closingIndent + "\t"
	}
	return closingIndent + "  "
}

func reindent(member, indent string) string {
	lines := strings.Split(strings.TrimRight(member, "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}

// Member returns the source text of the top-level member key of the
// config object in src, with continuation lines dedented to the member's
// own column.
func Member(ctx context.Context, filename string, src []byte, key string) (string, bool) {
	tree, err := parse(ctx, filename, src)
	if err != nil {
		return "", false
	}
	defer tree.Close()

	obj := configObject(tree.RootNode(), src)
	if obj == nil {
		return "", false
	}
	member := findKey(obj, src, key)
	if member == nil {
		return "", false
	}

	start := int(member.StartByte())
	indent := lineIndent(src, start)
	lines := strings.Split(member.Content(src), "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = strings.TrimPrefix(lines[i], indent)
	}
	return strings.Join(lines, "\n"), true
}
