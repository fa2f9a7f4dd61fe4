package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/aman-cerp/docretrieve/internal/config"
)

// WalkResult is one discovered file, or an error encountered while walking.
type WalkResult struct {
	Root config.RootConfig
	Path string
	Err  error
}

// WalkRoot streams files under root that pass the extension allow-list and
// max_mb size filter of spec §4.4, in the teacher scanner's
// channel-plus-filepath.WalkDir style, generalized from gitignore/language
// exclusion to the simpler extension+size filter this spec calls for.
func WalkRoot(ctx context.Context, root config.RootConfig, includeExtensions []string, maxMB float64) <-chan WalkResult {
	out := make(chan WalkResult, 64)
	allowed := make(map[string]struct{}, len(includeExtensions))
	for _, ext := range includeExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	maxBytes := int64(maxMB * 1024 * 1024)

	go func() {
		defer close(out)
		_ = filepath.WalkDir(root.Path, func(path string, d fs.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err != nil {
				select {
				case out <- WalkResult{Root: root, Path: path, Err: err}:
				case <-ctx.Done():
					return ctx.Err()
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := allowed[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if maxBytes > 0 && info.Size() > maxBytes {
				return nil
			}
			select {
			case out <- WalkResult{Root: root, Path: path}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}()

	return out
}
