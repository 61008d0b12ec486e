package ldd

import (
	"os"
	"path/filepath"

	"github.com/rmohr/elfdeps/pkg/elfio"
	"github.com/sirupsen/logrus"
)

// StandardDirs are the fixed loader directories probed for every object,
// before LD_LIBRARY_PATH directories and embedded RPATH/RUNPATH hints.
var StandardDirs = []string{
	"/usr/lib",
	"/lib64",
	"/lib/x86_64-linux-gnu",
	"/lib",
	"/usr/lib64",
}

// Resolver holds the search configuration for dependency traversals. The
// configuration is captured once per traversal; nothing is re-read from the
// process environment while recursing.
type Resolver struct {
	// StandardDirs overrides the fixed directory list when non-nil.
	StandardDirs []string
	// LibraryPath contains the directories from LD_LIBRARY_PATH, in order.
	// Entries which do not exist on disk are dropped at traversal start.
	LibraryPath []string
}

func NewResolver(libraryPath []string) *Resolver {
	return &Resolver{
		StandardDirs: StandardDirs,
		LibraryPath:  libraryPath,
	}
}

// Resolve returns the transitive closure of shared-library dependencies of
// the given object, in depth-first declaration order and without duplicates.
// The object itself is not part of the result. Any unreadable or malformed
// object and any unresolvable dependency fails the whole traversal; no
// partial result is returned.
func (r *Resolver) Resolve(object string) ([]string, error) {
	standardDirs := r.StandardDirs
	if standardDirs == nil {
		standardDirs = StandardDirs
	}
	t := &traversal{
		standardDirs: standardDirs,
		libraryPath:  existingDirs(r.LibraryPath),
		visited:      map[string]struct{}{object: {}},
	}
	if err := t.collect(object); err != nil {
		return nil, err
	}
	return t.results, nil
}

// Resolve determines the shared-library closure of several objects at once,
// deduplicating libraries shared between them while keeping the per-object
// resolution order.
func Resolve(objects []string, libraryPath []string) (finalFiles []string, err error) {
	resolver := NewResolver(libraryPath)
	discovered := map[string]struct{}{}
	for _, obj := range objects {
		files, err := resolver.Resolve(obj)
		if err != nil {
			return nil, err
		}
		for _, l := range files {
			if _, exists := discovered[l]; !exists {
				discovered[l] = struct{}{}
				finalFiles = append(finalFiles, l)
			}
		}
	}
	return finalFiles, nil
}

// traversal is the mutable state of one Resolve call. It is owned exclusively
// by that call; visited only ever grows and every results entry is also in
// visited.
type traversal struct {
	standardDirs []string
	libraryPath  []string
	visited      map[string]struct{}
	results      []string
}

func (t *traversal) collect(path string) error {
	meta, err := elfio.Parse(path)
	if err != nil {
		return err
	}
	needed, hints, err := meta.DependenciesAndHints()
	if err != nil {
		return err
	}

	searchDirs := make([]string, 0, len(t.standardDirs)+len(t.libraryPath)+len(hints))
	searchDirs = append(searchDirs, t.standardDirs...)
	searchDirs = append(searchDirs, t.libraryPath...)
	searchDirs = append(searchDirs, hints...)

	for _, lib := range needed {
		candidate, found := find(lib, searchDirs, meta.WordSize())
		if !found {
			return &NotFoundError{Library: lib, Referrer: path, SearchPath: searchDirs}
		}
		if _, seen := t.visited[candidate]; seen {
			logrus.Debugf("%s wants %s which is already resolved to %s", path, lib, candidate)
			continue
		}
		t.visited[candidate] = struct{}{}
		t.results = append(t.results, candidate)
		if err := t.collect(candidate); err != nil {
			return err
		}
	}
	return nil
}

// find probes the search directories in order and returns the first candidate
// which exists and matches the requested word size. Candidates which cannot
// be classified count as mismatches.
func find(lib string, searchDirs []string, word elfio.WordSize) (string, bool) {
	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, lib)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		candidateWord, err := elfio.ClassifyFile(candidate)
		if err != nil || candidateWord != word {
			logrus.Debugf("skipping %s: word size mismatch for %s", candidate, lib)
			continue
		}
		return candidate, true
	}
	return "", false
}

func existingDirs(dirs []string) []string {
	existing := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err == nil {
			existing = append(existing, dir)
		}
	}
	return existing
}
