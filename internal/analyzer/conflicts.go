package analyzer

import (
	"fmt"
	"strings"
)

// DependencyConflict is a recommended package already declared at an
// incompatible major.
type DependencyConflict struct {
	Package     string
	Existing    string
	Recommended string
	Resolution  string
}

// String renders the conflict for reports.
func (c DependencyConflict) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: declared %s, recommended %s", c.Package, c.Existing, c.Recommended)
	if c.Resolution != "" {
		fmt.Fprintf(&sb, " (%s)", c.Resolution)
	}
	return sb.String()
}
