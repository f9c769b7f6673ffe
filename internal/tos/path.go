// Package tos implements Terms of Service metadata storage, caching, and
// retrieval for channels.
package tos

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"tosctl/internal/models"
	"tosctl/internal/structures"
)

// Built-in acceptance storage roots, highest to lowest priority. Roots may
// contain environment variables and "~"; entries whose variables are unset
// stay unexpanded and are skipped when scanning.
const (
	// SiteToSRoot is the site-wide storage location.
	SiteToSRoot = "/etc/tosctl/tos"
	// SiteToSRootWindows replaces SiteToSRoot on Windows.
	SiteToSRootWindows = "C:/ProgramData/tosctl/tos"
	// LegacyToSRoot is the legacy system location, POSIX only.
	LegacyToSRoot = "/var/lib/tosctl/tos"
	// SystemToSRoot sits inside the installation.
	SystemToSRoot = "$TOSCTL_HOME/tos"
	// UserToSRoot is the per-user storage location and default write root.
	UserToSRoot = "~/.tosctl/tos"
	// EnvToSRoot is scoped to the active environment.
	EnvToSRoot = "$TOSCTL_PREFIX/tos"
)

// tosGlob matches acceptance record files inside a channel directory.
const tosGlob = "*.json"

// DefaultSearchPath returns the built-in roots in descending priority.
func DefaultSearchPath() []string {
	var path []string
	if runtime.GOOS == "windows" {
		path = append(path, SiteToSRootWindows)
	} else {
		path = append(path, SiteToSRoot, LegacyToSRoot)
	}
	return append(path,
		SystemToSRoot,
		"$XDG_CONFIG_HOME/tosctl/tos",
		"~/.config/tosctl/tos",
		UserToSRoot,
		EnvToSRoot,
		// mirrors the config file override variable
		"$TOSCTL",
	)
}

// PathResolver computes storage roots and per-channel paths. Channel
// directories are named by a cryptographic hash of the channel's location
// and name, which keeps paths collision-free and filesystem-safe.
type PathResolver struct {
	searchPath []string
	cacheDir   string
}

func NewPathResolver(conf *structures.Config) (*PathResolver, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine cache directory: %w", err)
	}
	return &PathResolver{
		searchPath: append(DefaultSearchPath(), conf.Storage.ExtraRoots...),
		cacheDir:   filepath.Join(base, "tosctl"),
	}, nil
}

// NewCustomPathResolver builds a resolver with an explicit search path and
// cache directory. Hosts embedding the engine use this to scope storage.
func NewCustomPathResolver(searchPath []string, cacheDir string) *PathResolver {
	return &PathResolver{searchPath: searchPath, cacheDir: cacheDir}
}

// ExpandPath expands "~" and $VAR placeholders. Referencing an unset
// variable is an error so callers can decide to skip or fail.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot expand %q: %w", path, err)
		}
		path = filepath.Join(home, path[1:])
	}

	var unset []string
	expanded := os.Expand(path, func(name string) string {
		value, ok := os.LookupEnv(name)
		if !ok || value == "" {
			unset = append(unset, name)
		}
		return value
	})
	if len(unset) > 0 {
		return "", fmt.Errorf("path %q references unset variable %s", path, unset[0])
	}
	return expanded, nil
}

// HashChannel derives the filesystem-safe channel identifier from the
// channel's location and name.
func (r *PathResolver) HashChannel(channel models.Channel) string {
	hasher := sha256.New()
	hasher.Write([]byte(channel.Location()))
	hasher.Write([]byte(channel.Name()))
	return hex.EncodeToString(hasher.Sum(nil))
}

// SearchRoots returns the existing storage roots in descending priority,
// with extend appended at the lowest priority. Roots that do not expand or
// are not directories are skipped.
func (r *PathResolver) SearchRoots(extend ...string) []string {
	seen := make(map[string]struct{})
	var roots []string
	for _, entry := range append(append([]string{}, r.searchPath...), extend...) {
		path, err := ExpandPath(entry)
		if err != nil {
			continue
		}
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		roots = append(roots, path)
	}
	return roots
}

// ChannelDir returns the per-channel directory under the given root. The
// root must expand; it is not required to exist.
func (r *PathResolver) ChannelDir(root string, channel models.Channel) (string, error) {
	path, err := ExpandPath(root)
	if err != nil {
		return "", err
	}
	return filepath.Join(path, r.HashChannel(channel)), nil
}

// MetadataPath returns the acceptance record path for a channel and version.
// Records are named by version epoch so distinct versions never collide and
// rewrites of the same version overwrite.
func (r *PathResolver) MetadataPath(root string, channel models.Channel, version models.Timestamp) (string, error) {
	dir, err := r.ChannelDir(root, channel)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("%d.json", version.Epoch())), nil
}

// ChannelPaths returns every acceptance record path for the channel across
// the search path, in descending root priority.
func (r *PathResolver) ChannelPaths(channel models.Channel, extend ...string) []string {
	var paths []string
	for _, root := range r.SearchRoots(extend...) {
		matches, err := filepath.Glob(filepath.Join(root, r.HashChannel(channel), tosGlob))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return paths
}

// AllChannelPaths returns every acceptance record path for every channel
// across the search path, in descending root priority.
func (r *PathResolver) AllChannelPaths(extend ...string) []string {
	var paths []string
	for _, root := range r.SearchRoots(extend...) {
		matches, err := filepath.Glob(filepath.Join(root, "*", tosGlob))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return paths
}

// CacheDir returns the endpoint cache directory. It is distinct from the
// acceptance storage roots and follows the OS user-cache convention.
func (r *PathResolver) CacheDir() string { return r.cacheDir }

// CachePath returns the endpoint cache file for the channel.
func (r *PathResolver) CachePath(channel models.Channel) string {
	return filepath.Join(r.cacheDir, r.HashChannel(channel)+".cache")
}

// CachePaths returns every endpoint cache file.
func (r *PathResolver) CachePaths() []string {
	matches, err := filepath.Glob(filepath.Join(r.cacheDir, "*.cache"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

// SearchPath returns the configured (unexpanded) search path entries.
func (r *PathResolver) SearchPath() []string {
	return append([]string{}, r.searchPath...)
}
