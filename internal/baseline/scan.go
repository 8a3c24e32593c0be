package baseline

import (
	"io/fs"
	"path/filepath"

	"github.com/vigil-project/vigil/internal/integrity"
	"github.com/vigil-project/vigil/pkg/model"
	"github.com/vigil-project/vigil/pkg/pathutil"
	"github.com/vigil-project/vigil/pkg/progress"
)

// Build walks the monitored root and replaces the index contents with
// the hash of every file accepted by match (a relative-path predicate).
// Unreadable files are skipped, not fatal; the count of hashed files is
// returned.
func Build(root string, ix *Index, match func(rel string) bool, cb progress.Callback) (int, error) {
	var targets []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := pathutil.Relative(root, path)
		if relErr != nil {
			return nil
		}
		if match != nil && !match(rel) {
			return nil
		}
		targets = append(targets, rel)
		return nil
	})
	if err != nil {
		return 0, err
	}

	ix.entries = make(map[string]model.HashValue, len(targets))

	p := progress.New("baseline", len(targets), cb)
	hashed := 0
	for _, rel := range targets {
		hash, err := integrity.HashFile(filepath.Join(root, rel))
		if err != nil {
			// Vanished or unreadable between walk and hash; skip.
			p.Increment(rel)
			continue
		}
		ix.entries[rel] = hash
		hashed++
		p.Increment(rel)
	}
	p.Done("")

	if err := ix.Compact(); err != nil {
		return hashed, err
	}
	return hashed, nil
}
