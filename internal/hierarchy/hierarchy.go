// Package hierarchy implements the Hierarchy Labeler described in spec §3
// (Root) / §4 ("hierarchy fields derived from the root configuration"): it
// derives module/submodule metadata fields from a file's position under a
// configured ingestion root.
package hierarchy

import (
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Rule selects how a Root derives hierarchy fields from a file's path.
type Rule string

const (
	// RulePathSegments labels a chunk by directory depth under the root:
	// segment 0 becomes "module", segment 1 becomes "submodule", and so on
	// (named "segment_2", "segment_3", ... beyond that).
	RulePathSegments Rule = "path-segments"
	// RuleFlat assigns no hierarchy fields beyond the root's App.
	RuleFlat Rule = "flat"
)

// Root is a configured ingestion directory bound to one app and a
// hierarchy-labeling rule, per spec §3.
type Root struct {
	Path string
	App  string
	Rule Rule
}

// Labeler derives hierarchy fields for files under configured Roots,
// caching per-directory results with an LRU (grounded on the teacher's
// gitignore-matcher LRU cache pattern) since the same directory is
// labeled repeatedly while walking a root.
type Labeler struct {
	cache *lru.Cache[string, map[string]string]
}

// NewLabeler creates a Labeler with the given per-directory cache size.
func NewLabeler(cacheSize int) (*Labeler, error) {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	c, err := lru.New[string, map[string]string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Labeler{cache: c}, nil
}

// Label derives the hierarchy extension fields for sourcePath under root.
// Results are cached by (root, directory) since files that share a
// directory share the same hierarchy labels.
func (l *Labeler) Label(root Root, sourcePath string) map[string]string {
	dir := filepath.Dir(sourcePath)
	key := root.Path + "\x00" + dir
	if cached, ok := l.cache.Get(key); ok {
		return cached
	}

	fields := map[string]string{}
	switch root.Rule {
	case RuleFlat, "":
		// no hierarchy fields beyond App
	default: // RulePathSegments
		rel, err := filepath.Rel(root.Path, dir)
		if err != nil || rel == "." {
			break
		}
		segments := strings.Split(filepath.ToSlash(rel), "/")
		for i, seg := range segments {
			if seg == "" {
				continue
			}
			switch i {
			case 0:
				fields["module"] = seg
			case 1:
				fields["submodule"] = seg
			default:
				fields["segment_"+itoa(i)] = seg
			}
		}
	}

	l.cache.Add(key, fields)
	return fields
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
