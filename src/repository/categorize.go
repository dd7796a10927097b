package repository

import (
	"fmt"
	"strings"
)

const (
	DefaultHomeRoot         = "/home"
	DefaultDockerVolumeRoot = "/mnt/docker-data/volumes"
)

// reservedVolumeEntries live in the docker volume root but are not volumes.
var reservedVolumeEntries = map[string]struct{}{
	"backingFsBlockDev": {},
	"metadata.db":       {},
}

// IsReservedVolumeEntry reports whether name is a docker volume-root artifact
// that callers enumerating volumes must skip.
func IsReservedVolumeEntry(name string) bool {
	_, ok := reservedVolumeEntries[name]
	return ok
}

// InvalidPathError is returned for paths that cannot be categorized.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// Categorizer maps filesystem paths to repository categories and segments.
type Categorizer struct {
	HomeRoot         string
	DockerVolumeRoot string
}

// NewCategorizer returns a Categorizer, substituting defaults for empty roots.
func NewCategorizer(homeRoot, dockerVolumeRoot string) Categorizer {
	if homeRoot == "" {
		homeRoot = DefaultHomeRoot
	}
	if dockerVolumeRoot == "" {
		dockerVolumeRoot = DefaultDockerVolumeRoot
	}
	return Categorizer{HomeRoot: homeRoot, DockerVolumeRoot: dockerVolumeRoot}
}

// Categorize is Categorize with the receiver's roots.
func (c Categorizer) Categorize(path string) (Category, string, error) {
	return Categorize(path, c.HomeRoot, c.DockerVolumeRoot)
}

// Address categorizes path and combines the result with host.
func (c Categorizer) Address(host, path string) (Address, error) {
	cat, seg, err := c.Categorize(path)
	if err != nil {
		return Address{}, err
	}
	return Address{Host: host, Category: cat, Segment: seg}, nil
}

// Categorize maps an absolute path to its category and encoded segment.
// It is a pure string transform: symlinks are not resolved and the path does
// not need to exist.
func Categorize(path, homeRoot, dockerVolumeRoot string) (Category, string, error) {
	if path == "" {
		return "", "", &InvalidPathError{Path: path, Reason: "path is empty"}
	}
	if !strings.HasPrefix(path, "/") {
		return "", "", &InvalidPathError{Path: path, Reason: "path is not absolute"}
	}
	p := trimTrailing(path)
	if p == "" {
		return "", "", &InvalidPathError{Path: path, Reason: "path has no components"}
	}
	if strings.Contains(p, "//") {
		return "", "", &InvalidPathError{Path: path, Reason: "path has an empty component"}
	}
	dockerRoot := trimTrailing(dockerVolumeRoot)
	home := trimTrailing(homeRoot)

	if rest, ok := below(p, dockerRoot); ok {
		if rest == "" {
			return "", "", &InvalidPathError{Path: path, Reason: "path is the docker volume root"}
		}
		return DockerVolume, encode(rest), nil
	}
	if rest, ok := below(p, home); ok {
		if rest == "" {
			return "", "", &InvalidPathError{Path: path, Reason: "path is the home root"}
		}
		user, remainder, found := strings.Cut(rest, "/")
		if !found || remainder == "" {
			return UserHome, user, nil
		}
		return UserHome, user + "/" + encode(remainder), nil
	}
	return System, encode(strings.TrimPrefix(p, "/")), nil
}

// below returns the part of p under root. ok is true when p equals root
// (rest is empty) or lies beneath it.
func below(p, root string) (string, bool) {
	if root == "" {
		return "", false
	}
	if p == root {
		return "", true
	}
	if strings.HasPrefix(p, root+"/") {
		return p[len(root)+1:], true
	}
	return "", false
}

func trimTrailing(p string) string {
	return strings.TrimRight(p, "/")
}

func encode(s string) string {
	return strings.ReplaceAll(s, "/", "_")
}
