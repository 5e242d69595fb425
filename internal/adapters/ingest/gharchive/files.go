package gharchive

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	perr "ghscore/internal/platform/errors"
)

// SelectFiles lists regular files directly under dir whose name starts with prefix
// and whose final extension is ext ("gz" and ".gz" are equivalent). Sorted by name
func SelectFiles(dir, prefix, ext string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, perr.InvalidArgf("gharchive: source directory is required")
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return nil, perr.InvalidArgf("gharchive: file extension is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, perr.FromFS(err, "gharchive: list %s", dir)
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || filepath.Ext(name) != "."+ext {
			continue
		}
		if !e.Type().IsRegular() {
			// follow symlinks, skip directories and devices
			fi, err := os.Stat(filepath.Join(dir, name))
			if err != nil || !fi.Mode().IsRegular() {
				continue
			}
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}
