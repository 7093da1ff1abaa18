package catalogue

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultAppDataRoot is where flatpak keeps per-application data
const DefaultAppDataRoot = "~/.var/app"

// ErrDiscoveryRootMissing is returned when the application data root does not exist
var ErrDiscoveryRootMissing = errors.New("application data root does not exist")

// DiscoverApplications lists the names of the immediate subdirectories of
// root, sorted. Symlinks pointing at directories count as applications.
func DiscoverApplications(root string) ([]string, error) {
	dir, err := ExpandHome(root)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrDiscoveryRootMissing, err)
		}
		return nil, fmt.Errorf("failed to read application data root: %w", err)
	}

	apps := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			apps = append(apps, entry.Name())
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(dir, entry.Name())); err == nil && info.IsDir() {
				apps = append(apps, entry.Name())
			}
		}
	}

	return apps, nil
}

// AppPaths returns one path specifier per application below root. The root
// keeps its home shorthand so the remote side mirrors the same layout.
func AppPaths(root string, apps []string) []PathSpec {
	paths := make([]PathSpec, 0, len(apps))
	for _, app := range apps {
		paths = append(paths, PathSpec{Source: filepath.Join(root, app)})
	}
	return paths
}
