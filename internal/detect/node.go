package detect

import (
	"context"
	"strings"
	"time"

	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/runner"
)

const nodeVersionTimeout = 5 * time.Second

// NodeVersion asks the node binary for its version, falling back to the
// manifest's engines.node range. It returns "" when neither is available.
func NodeVersion(ctx context.Context, r runner.Runner, dir string, m *manifest.Manifest) string {
	if r != nil {
		ctx, cancel := context.WithTimeout(ctx, nodeVersionTimeout)
		defer cancel()

		if out, err := r.Run(ctx, dir, "node", "--version"); err == nil {
			if v := strings.TrimPrefix(strings.TrimSpace(string(out)), "v"); v != "" {
				return v
			}
		}
	}

	if m != nil {
		return m.EnginesNode()
	}
	return ""
}
