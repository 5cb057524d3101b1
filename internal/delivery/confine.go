package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// confinedPath joins name onto dir and makes sure the result stays inside
// dir, symlinks included. name must be a bare file name.
func confinedPath(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name ||
		strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory: %w", err)
	}
	absDir = filepath.Clean(absDir)
	path := filepath.Join(absDir, name)

	ok, err := within(absDir, path)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %q resolves outside %s", ErrInvalidName, name, dir)
	}
	return path, nil
}

// within reports whether path lies in dir after resolving symlinks on both.
func within(dir, path string) (bool, error) {
	realDir := dir
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		realDir = resolved
	}

	realPath := path
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return false, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		realPath = resolved
	}

	inside := func(p, d string) bool {
		return strings.HasPrefix(p, strings.TrimSuffix(d, string(filepath.Separator))+string(filepath.Separator))
	}
	pathOk := inside(path, dir) || inside(path, realDir)
	realOk := inside(realPath, dir) || inside(realPath, realDir)
	return pathOk && realOk, nil
}
