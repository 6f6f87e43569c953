package logparse

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// FileMD5 returns the hex MD5 digest of a file's contents. The digest
// keys the dataset's processed-file ledger, so an already-ingested log
// is skipped even if renamed or re-listed.
func FileMD5(file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", file, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// ExpandGlobs expands the given file specs (plain paths or glob
// patterns) into a deduplicated, sorted file list. Sorting keeps
// ingestion order chronological for date-named log rotations.
func ExpandGlobs(specs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, spec := range specs {
		matches, err := filepath.Glob(spec)
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", spec, err)
		}
		if len(matches) == 0 {
			// A literal path that doesn't exist should fail loudly
			// rather than be silently dropped.
			if _, statErr := os.Stat(spec); statErr != nil {
				return nil, fmt.Errorf("no log files match %q", spec)
			}
			matches = []string{spec}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}

	sort.Strings(files)
	return files, nil
}
