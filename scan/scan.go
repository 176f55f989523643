// Package scan walks a local directory for recordings that are eligible for
// upload: files matching the caller's glob patterns whose suffix is on the
// upload allow-list.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/guildrec/go-vodutils/transfer"
)

// Candidate is one uploadable file.
type Candidate struct {
	Path string
	Size int64
}

// Scanner ...
type Scanner struct {
	logger log.Logger
}

// NewScanner ...
func NewScanner(logger log.Logger) *Scanner {
	return &Scanner{logger: logger}
}

// Scan evaluates the glob patterns under root and returns the matching files
// that pass the upload allow-list, in deterministic path order. Empty files
// are skipped: the gateway will not sign a zero-length upload. A pattern that
// fails to evaluate is logged and skipped, matching nothing.
func (s *Scanner) Scan(root string, patterns []string) ([]Candidate, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scan root: %w", err)
	}

	seen := map[string]bool{}
	var candidates []Candidate
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(os.DirFS(absRoot), pattern, doublestar.WithNoFollow())
		if err != nil {
			s.logger.Warnf("Error in path pattern '%s': %s", pattern, err)
			continue
		}
		if matches == nil {
			s.logger.Debugf("No match for path pattern: %s", pattern)
			continue
		}

		for _, match := range matches {
			path := filepath.Join(absRoot, match)
			if seen[path] {
				continue
			}
			seen[path] = true

			candidate, ok := s.examine(path)
			if ok {
				candidates = append(candidates, candidate)
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Path < candidates[j].Path
	})
	return candidates, nil
}

func (s *Scanner) examine(path string) (Candidate, bool) {
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warnf("Failed to stat %s: %s", path, err)
		return Candidate{}, false
	}
	if info.IsDir() {
		return Candidate{}, false
	}
	if info.Size() == 0 {
		s.logger.Debugf("Skipping empty file: %s", path)
		return Candidate{}, false
	}
	if _, err := transfer.ContentTypeForKey(filepath.Base(path)); err != nil {
		return Candidate{}, false
	}
	return Candidate{Path: path, Size: info.Size()}, true
}
