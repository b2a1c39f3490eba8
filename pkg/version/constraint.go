package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// opSpaceRegex joins an operator to the version that follows it, so
// ">= 16.8" tokenizes like ">=16.8".
var opSpaceRegex = regexp.MustCompile(`(>=|<=|>|<|=|~|\^)\s+`)

// comparatorRegex splits a comparator token into operator and partial
// version. Partial versions may use x, X or * wildcards.
var comparatorRegex = regexp.MustCompile(`^(>=|<=|>|<|=|~>|~|\^)?v?([0-9xX*]+)(?:\.([0-9xX*]+))?(?:\.([0-9xX*]+))?(?:-([0-9A-Za-z.-]+))?(?:\+[0-9A-Za-z.-]+)?$`)

// Constraint is a parsed npm-style range expression.
//
// Supported syntax:
//   - "18.2.0", "=18.2.0"      exact
//   - ">", "<", ">=", "<="     comparisons
//   - "^18.2.0"                same major (>=18.2.0 <19.0.0); ^0.y and ^0.0.z narrow further
//   - "~2.7.0"                 same minor (>=2.7.0 <2.8.0)
//   - "3", "3.x", "3.2.*"      x-ranges
//   - "*", "x", "latest", ""   any version
//   - ">=16.8 <19"             whitespace means AND
//   - "^2.6 || ^3.0"           || means OR
//   - "1.2.3 - 2.3.4"          hyphen range (inclusive)
type Constraint struct {
	Original string
	sets     [][]check // OR of ANDs
}

type check struct {
	op      string // "=", ">", "<", ">=", "<=", "*"
	version *Version
}

// ParseConstraint parses a range expression into a Constraint.
func ParseConstraint(s string) (*Constraint, error) {
	c := &Constraint{Original: s}

	for _, alt := range strings.Split(s, "||") {
		set, err := parseComparatorSet(strings.TrimSpace(alt))
		if err != nil {
			return nil, fmt.Errorf("invalid constraint %q: %w", s, err)
		}
		c.sets = append(c.sets, set)
	}
	return c, nil
}

// MustParseConstraint is like ParseConstraint but panics on invalid input.
func MustParseConstraint(s string) *Constraint {
	c, err := ParseConstraint(s)
	if err != nil {
		panic(fmt.Sprintf("version.MustParseConstraint(%q): %v", s, err))
	}
	return c
}

// Satisfies reports whether version satisfies rangeStr. Unparseable input
// on either side never satisfies.
func Satisfies(version, rangeStr string) bool {
	v, err := Parse(version)
	if err != nil {
		return false
	}
	c, err := ParseConstraint(rangeStr)
	if err != nil {
		return false
	}
	return c.Match(v)
}

func parseComparatorSet(s string) ([]check, error) {
	lower := strings.ToLower(s)
	if s == "" || lower == "latest" || s == "*" || lower == "x" {
		return []check{{op: "*"}}, nil
	}

	if parts := strings.SplitN(s, " - ", 2); len(parts) == 2 {
		return parseHyphen(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}

	var set []check
	for _, tok := range strings.Fields(opSpaceRegex.ReplaceAllString(s, "$1")) {
		checks, err := parseComparator(tok)
		if err != nil {
			return nil, err
		}
		set = append(set, checks...)
	}
	return set, nil
}

// partial is a version whose trailing components may be missing or
// wildcards; given counts the leading concrete components.
type partial struct {
	nums       [3]int
	given      int
	prerelease string
}

func (p partial) floor() *Version {
	return &Version{Major: p.nums[0], Minor: p.nums[1], Patch: p.nums[2], Prerelease: p.prerelease}
}

// bump returns the lowest version above every version matching p's
// concrete prefix, e.g. 3.2 -> 3.3.0 and 3 -> 4.0.0.
func (p partial) bump() *Version {
	switch p.given {
	case 1:
		return &Version{Major: p.nums[0] + 1}
	case 2:
		return &Version{Major: p.nums[0], Minor: p.nums[1] + 1}
	default:
		return &Version{Major: p.nums[0], Minor: p.nums[1], Patch: p.nums[2] + 1}
	}
}

func parsePartial(m []string) (partial, error) {
	var p partial
	for i, raw := range m {
		if raw == "" || raw == "x" || raw == "X" || raw == "*" {
			break
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("invalid version component %q", raw)
		}
		p.nums[i] = n
		p.given++
	}
	return p, nil
}

func parseComparator(tok string) ([]check, error) {
	m := comparatorRegex.FindStringSubmatch(tok)
	if m == nil {
		return nil, fmt.Errorf("invalid comparator %q", tok)
	}

	op := m[1]
	p, err := parsePartial(m[2:5])
	if err != nil {
		return nil, err
	}
	p.prerelease = m[5]

	if p.given == 0 {
		// "*", ">=x" and friends all collapse to "any", except "<x" which
		// nothing satisfies.
		if op == "<" || op == ">" {
			return []check{{op: "<", version: &Version{}}}, nil
		}
		return []check{{op: "*"}}, nil
	}

	switch op {
	case "", "=":
		if p.given == 3 {
			return []check{{op: "=", version: p.floor()}}, nil
		}
		return []check{{op: ">=", version: p.floor()}, {op: "<", version: p.bump()}}, nil
	case ">":
		if p.given == 3 {
			return []check{{op: ">", version: p.floor()}}, nil
		}
		return []check{{op: ">=", version: p.bump()}}, nil
	case ">=":
		return []check{{op: ">=", version: p.floor()}}, nil
	case "<":
		return []check{{op: "<", version: p.floor()}}, nil
	case "<=":
		if p.given == 3 {
			return []check{{op: "<=", version: p.floor()}}, nil
		}
		return []check{{op: "<", version: p.bump()}}, nil
	case "~", "~>":
		upper := &Version{Major: p.nums[0], Minor: p.nums[1] + 1}
		if p.given == 1 {
			upper = &Version{Major: p.nums[0] + 1}
		}
		return []check{{op: ">=", version: p.floor()}, {op: "<", version: upper}}, nil
	case "^":
		return caretChecks(p), nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

// caretChecks keeps the left-most non-zero component fixed:
//
//	^1.2.3 -> >=1.2.3 <2.0.0
//	^0.2.3 -> >=0.2.3 <0.3.0
//	^0.0.3 -> >=0.0.3 <0.0.4
//	^0.x   -> >=0.0.0 <1.0.0
func caretChecks(p partial) []check {
	lower := check{op: ">=", version: p.floor()}

	var upper *Version
	switch {
	case p.nums[0] != 0 || p.given == 1:
		upper = &Version{Major: p.nums[0] + 1}
	case p.nums[1] != 0 || p.given == 2:
		upper = &Version{Minor: p.nums[1] + 1}
	default:
		upper = &Version{Patch: p.nums[2] + 1}
	}
	return []check{lower, {op: "<", version: upper}}
}

func parseHyphen(from, to string) ([]check, error) {
	lo, err := parseComparator(from)
	if err != nil {
		return nil, err
	}
	hi, err := parseComparator("<=" + to)
	if err != nil {
		return nil, err
	}

	// The lower side of "3.2 - 4" is 3.2.0, not the x-range 3.2.x.
	if len(lo) > 0 && lo[0].op != "*" {
		lo = []check{{op: ">=", version: lo[0].version}}
	}
	return append(lo, hi...), nil
}

// Match reports whether v satisfies any alternative of the constraint.
func (c *Constraint) Match(v *Version) bool {
	if v == nil {
		return false
	}
	for _, set := range c.sets {
		if matchAll(set, v) {
			return true
		}
	}
	return false
}

func matchAll(set []check, v *Version) bool {
	for _, chk := range set {
		if !chk.match(v) {
			return false
		}
	}
	return true
}

func (chk check) match(v *Version) bool {
	switch chk.op {
	case "*":
		return true
	case "=":
		return v.Equal(chk.version)
	case ">":
		return v.GreaterThan(chk.version)
	case "<":
		return v.LessThan(chk.version)
	case ">=":
		return !v.LessThan(chk.version)
	case "<=":
		return !v.GreaterThan(chk.version)
	}
	return false
}

// String returns the original expression.
func (c *Constraint) String() string {
	return c.Original
}
