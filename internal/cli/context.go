package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vigil-project/vigil/internal/state"
	"github.com/vigil-project/vigil/pkg/errclass"
)

// resolveRoot turns the optional positional directory argument into an
// absolute path, defaulting to the current directory.
func resolveRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errclass.ErrTargetInvalid.WithMessagef("resolve %s: %v", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errclass.ErrTargetInvalid.WithMessagef("%s: %v", abs, err)
	}
	if !info.IsDir() {
		return "", errclass.ErrTargetInvalid.WithMessagef("%s is not a directory", abs)
	}
	return abs, nil
}

// requireState locates the state directory for the given target. With
// an explicit argument the directory itself must be monitored; without
// one the search walks up from the current directory, so subcommands
// work from anywhere inside a monitored tree.
func requireState(args []string) (*state.State, error) {
	root, err := resolveRoot(args)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return state.Discover(root)
	}
	s, err := state.Open(root)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'vigil %s' once to initialize)", err, root)
	}
	return s, nil
}
