package utils

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// PathInfo describes a path given on the command line.
type PathInfo struct {
	Full   string
	Parent string
	Exists bool
	IsDir  bool
}

// GetPathInfo resolves relPath to a clean absolute path and stats it. A
// path that does not exist is reported through Exists, not as an error.
func GetPathInfo(relPath string) (PathInfo, error) {
	full, err := filepath.Abs(relPath)
	if err != nil {
		return PathInfo{}, errors.Wrapf(err, "resolving %s", relPath)
	}
	info := PathInfo{Full: full, Parent: filepath.Dir(full)}
	fi, err := os.Stat(full)
	switch {
	case err == nil:
		info.Exists, info.IsDir = true, fi.IsDir()
	case !os.IsNotExist(err):
		return PathInfo{}, errors.Wrapf(err, "stat %s", relPath)
	}
	return info, nil
}
