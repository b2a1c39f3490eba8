package installer

import (
	"strings"

	"github.com/launchcg/testup/internal/project"
)

// batch is one package manager invocation.
type batch struct {
	name     string
	args     []string
	packages []string
	dev      bool
}

func (b batch) String() string {
	return strings.Join(append([]string{b.name}, b.args...), " ")
}

// partition splits specs into a production batch followed by a dev batch,
// omitting empty ones.
func partition(pm project.PackageManager, atWorkspaceRoot bool, specs []project.DependencySpec) []batch {
	var prod, dev []string
	for _, s := range specs {
		if s.Dev {
			dev = append(dev, specString(s))
		} else {
			prod = append(prod, specString(s))
		}
	}

	var out []batch
	if len(prod) > 0 {
		out = append(out, command(pm, false, atWorkspaceRoot, prod))
	}
	if len(dev) > 0 {
		out = append(out, command(pm, true, atWorkspaceRoot, dev))
	}
	return out
}

// command builds the add command for pm:
//
//	npm install --save[-dev] <pkgs>
//	yarn add [--dev] <pkgs>
//	pnpm add [-D] [-w] <pkgs>
//
// pnpm refuses to add to a workspace root without -w.
func command(pm project.PackageManager, dev, atWorkspaceRoot bool, packages []string) batch {
	b := batch{packages: packages, dev: dev}

	switch pm {
	case project.Yarn:
		b.name = "yarn"
		b.args = []string{"add"}
		if dev {
			b.args = append(b.args, "--dev")
		}
	case project.PNPM:
		b.name = "pnpm"
		b.args = []string{"add"}
		if dev {
			b.args = append(b.args, "-D")
		}
		if atWorkspaceRoot {
			b.args = append(b.args, "-w")
		}
	default:
		b.name = "npm"
		if dev {
			b.args = []string{"install", "--save-dev"}
		} else {
			b.args = []string{"install", "--save"}
		}
	}

	b.args = append(b.args, packages...)
	return b
}
