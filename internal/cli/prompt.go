package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/launchcg/testup/internal/config"
	"github.com/launchcg/testup/internal/conflict"
)

// prompter asks the user for a strategy per conflict group.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// newPrompter returns a prompter on stdin, or nil when stdin is not a
// terminal.
func newPrompter(out io.Writer) *prompter {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return &prompter{in: bufio.NewReader(os.Stdin), out: out}
}

// choose shows the group and reads a strategy. An empty answer takes the
// suggested one.
func (p *prompter) choose(g conflict.Group) (string, error) {
	available := groupStrategies(g)
	suggested := g.Suggested()

	printGroup(p.out, g)
	for i, s := range available {
		mark := " "
		if s == suggested {
			mark = "*"
		}
		fmt.Fprintf(p.out, "  %s %d) %s\n", mark, i+1, s)
	}

	for {
		fmt.Fprintf(p.out, "Strategy [%s]: ", suggested)
		line, err := p.in.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		choice, perr := parseStrategyChoice(line, available, suggested)
		if perr == nil {
			return choice, nil
		}
		fmt.Fprintf(p.out, "%s %v\n", yellow("⚠"), perr)
		if err != nil {
			return "", err
		}
	}
}

// groupStrategies lists the strategies every conflict in g allows, in the
// primary conflict's order, with manual always last.
func groupStrategies(g conflict.Group) []string {
	var out []string
	for _, s := range g.Primary().AvailableStrategies {
		if s == config.StrategyManual {
			continue
		}
		allowed := true
		for _, c := range g.Conflicts {
			if !c.Allows(s) {
				allowed = false
				break
			}
		}
		if allowed {
			out = append(out, s)
		}
	}
	return append(out, config.StrategyManual)
}

// parseStrategyChoice accepts a 1-based index into available or a
// strategy name.
func parseStrategyChoice(input string, available []string, suggested string) (string, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return suggested, nil
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(available) {
			return "", fmt.Errorf("choose 1-%d", len(available))
		}
		return available[n-1], nil
	}
	if slices.Contains(available, input) {
		return input, nil
	}
	return "", fmt.Errorf("unknown strategy %q, expected one of %s", input, strings.Join(available, ", "))
}
