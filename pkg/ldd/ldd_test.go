package ldd

import (
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/rmohr/elfdeps/pkg/elfio"
	"github.com/rmohr/elfdeps/pkg/elfio/elfiotest"
)

func writeObject(t *testing.T, dir string, name string, o elfiotest.Object) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := elfiotest.WriteFile(path, o); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveNoDependencies(t *testing.T) {
	g := NewGomegaWithT(t)
	dir := t.TempDir()
	app := writeObject(t, dir, "app", elfiotest.Object{})

	resolver := &Resolver{StandardDirs: []string{dir}}
	libs, err := resolver.Resolve(app)
	g.Expect(err).Should(BeNil())
	g.Expect(libs).Should(BeEmpty())
}

func TestResolveSingleDependency(t *testing.T) {
	g := NewGomegaWithT(t)
	dir := t.TempDir()
	app := writeObject(t, dir, "app", elfiotest.Object{Needed: []string{"libfoo.so"}})
	libfoo := writeObject(t, dir, "libfoo.so", elfiotest.Object{})

	resolver := &Resolver{StandardDirs: []string{dir}}
	libs, err := resolver.Resolve(app)
	g.Expect(err).Should(BeNil())
	g.Expect(libs).Should(Equal([]string{libfoo}))
}

func TestResolveWordSizeMismatchFails(t *testing.T) {
	g := NewGomegaWithT(t)
	dir := t.TempDir()
	app := writeObject(t, dir, "app", elfiotest.Object{Needed: []string{"libfoo.so"}})
	writeObject(t, dir, "libfoo.so", elfiotest.Object{Word32: true})

	resolver := &Resolver{StandardDirs: []string{dir}}
	_, err := resolver.Resolve(app)
	g.Expect(err).Should(BeAssignableToTypeOf(&NotFoundError{}))
	g.Expect(err.(*NotFoundError).Library).Should(Equal("libfoo.so"))
}

func TestResolveSkipsWordSizeMismatch(t *testing.T) {
	g := NewGomegaWithT(t)
	dir32 := t.TempDir()
	dir64 := t.TempDir()
	app := writeObject(t, dir32, "app", elfiotest.Object{Needed: []string{"libfoo.so"}})
	writeObject(t, dir32, "libfoo.so", elfiotest.Object{Word32: true})
	libfoo64 := writeObject(t, dir64, "libfoo.so", elfiotest.Object{})

	resolver := &Resolver{StandardDirs: []string{dir32, dir64}}
	libs, err := resolver.Resolve(app)
	g.Expect(err).Should(BeNil())
	g.Expect(libs).Should(Equal([]string{libfoo64}))
}

func TestResolveStandardDirsBeforeLibraryPath(t *testing.T) {
	g := NewGomegaWithT(t)
	standard := t.TempDir()
	extra := t.TempDir()
	app := writeObject(t, standard, "app", elfiotest.Object{Needed: []string{"libfoo.so"}})
	fromStandard := writeObject(t, standard, "libfoo.so", elfiotest.Object{})
	writeObject(t, extra, "libfoo.so", elfiotest.Object{})

	resolver := &Resolver{StandardDirs: []string{standard}, LibraryPath: []string{extra}}
	libs, err := resolver.Resolve(app)
	g.Expect(err).Should(BeNil())
	g.Expect(libs).Should(Equal([]string{fromStandard}))
}

func TestResolveLibraryPathBeforeHints(t *testing.T) {
	g := NewGomegaWithT(t)
	standard := t.TempDir()
	libraryPath := t.TempDir()
	hinted := t.TempDir()
	app := writeObject(t, standard, "app", elfiotest.Object{
		Needed:  []string{"libfoo.so"},
		RunPath: hinted,
	})
	fromLibraryPath := writeObject(t, libraryPath, "libfoo.so", elfiotest.Object{})
	writeObject(t, hinted, "libfoo.so", elfiotest.Object{})

	resolver := &Resolver{StandardDirs: []string{standard}, LibraryPath: []string{libraryPath}}
	libs, err := resolver.Resolve(app)
	g.Expect(err).Should(BeNil())
	g.Expect(libs).Should(Equal([]string{fromLibraryPath}))
}

func TestResolveThroughEmbeddedHints(t *testing.T) {
	g := NewGomegaWithT(t)
	standard := t.TempDir()
	rpathDir := t.TempDir()
	runpathDir := t.TempDir()
	app := writeObject(t, standard, "app", elfiotest.Object{
		Needed:  []string{"libfoo.so", "libbar.so"},
		RPath:   rpathDir,
		RunPath: runpathDir,
	})
	libfoo := writeObject(t, rpathDir, "libfoo.so", elfiotest.Object{})
	libbar := writeObject(t, runpathDir, "libbar.so", elfiotest.Object{})

	resolver := &Resolver{StandardDirs: []string{standard}}
	libs, err := resolver.Resolve(app)
	g.Expect(err).Should(BeNil())
	g.Expect(libs).Should(Equal([]string{libfoo, libbar}))
}

func TestResolveNonExistingLibraryPathEntriesAreDropped(t *testing.T) {
	g := NewGomegaWithT(t)
	standard := t.TempDir()
	libraryPath := t.TempDir()
	app := writeObject(t, standard, "app", elfiotest.Object{Needed: []string{"libfoo.so"}})
	libfoo := writeObject(t, libraryPath, "libfoo.so", elfiotest.Object{})

	resolver := &Resolver{
		StandardDirs: []string{standard},
		LibraryPath:  []string{filepath.Join(standard, "does-not-exist"), libraryPath},
	}
	libs, err := resolver.Resolve(app)
	g.Expect(err).Should(BeNil())
	g.Expect(libs).Should(Equal([]string{libfoo}))
}

func TestResolveTransitiveDepthFirst(t *testing.T) {
	g := NewGomegaWithT(t)
	dir := t.TempDir()
	app := writeObject(t, dir, "app", elfiotest.Object{Needed: []string{"liba.so", "libb.so"}})
	liba := writeObject(t, dir, "liba.so", elfiotest.Object{Needed: []string{"libc.so.6"}})
	libb := writeObject(t, dir, "libb.so", elfiotest.Object{Needed: []string{"libc.so.6"}})
	libc := writeObject(t, dir, "libc.so.6", elfiotest.Object{})

	resolver := &Resolver{StandardDirs: []string{dir}}
	libs, err := resolver.Resolve(app)
	g.Expect(err).Should(BeNil())
	g.Expect(libs).Should(Equal([]string{liba, libc, libb}))
}

func TestResolveCycleTerminates(t *testing.T) {
	g := NewGomegaWithT(t)
	dir := t.TempDir()
	app := writeObject(t, dir, "app", elfiotest.Object{Needed: []string{"liba.so"}})
	liba := writeObject(t, dir, "liba.so", elfiotest.Object{Needed: []string{"libb.so"}})
	libb := writeObject(t, dir, "libb.so", elfiotest.Object{Needed: []string{"liba.so"}})

	resolver := &Resolver{StandardDirs: []string{dir}}
	libs, err := resolver.Resolve(app)
	g.Expect(err).Should(BeNil())
	g.Expect(libs).Should(Equal([]string{liba, libb}))
}

func TestResolveMissingTransitiveDependencyFails(t *testing.T) {
	g := NewGomegaWithT(t)
	dir := t.TempDir()
	app := writeObject(t, dir, "app", elfiotest.Object{Needed: []string{"liba.so"}})
	writeObject(t, dir, "liba.so", elfiotest.Object{Needed: []string{"libmissing.so"}})

	resolver := &Resolver{StandardDirs: []string{dir}}
	libs, err := resolver.Resolve(app)
	g.Expect(err).Should(BeAssignableToTypeOf(&NotFoundError{}))
	g.Expect(err.(*NotFoundError).Library).Should(Equal("libmissing.so"))
	g.Expect(libs).Should(BeNil())
}

func TestResolveInvalidDependencyNameFails(t *testing.T) {
	g := NewGomegaWithT(t)
	dir := t.TempDir()
	app := writeObject(t, dir, "app", elfiotest.Object{Needed: []string{"liba.so"}})
	writeObject(t, dir, "liba.so", elfiotest.Object{RawNeeded: [][]byte{[]byte("libgarbage")}})

	resolver := &Resolver{StandardDirs: []string{dir}}
	_, err := resolver.Resolve(app)
	g.Expect(err).Should(BeAssignableToTypeOf(&elfio.InvalidStringError{}))
}

func TestResolveIsIdempotent(t *testing.T) {
	g := NewGomegaWithT(t)
	dir := t.TempDir()
	app := writeObject(t, dir, "app", elfiotest.Object{Needed: []string{"liba.so", "libb.so"}})
	writeObject(t, dir, "liba.so", elfiotest.Object{Needed: []string{"libc.so.6"}})
	writeObject(t, dir, "libb.so", elfiotest.Object{})
	writeObject(t, dir, "libc.so.6", elfiotest.Object{})

	resolver := &Resolver{StandardDirs: []string{dir}}
	first, err := resolver.Resolve(app)
	g.Expect(err).Should(BeNil())
	second, err := resolver.Resolve(app)
	g.Expect(err).Should(BeNil())
	g.Expect(second).Should(Equal(first))
}

func TestResolveManyObjectsDeduplicates(t *testing.T) {
	g := NewGomegaWithT(t)
	dir := t.TempDir()
	app1 := writeObject(t, dir, "app1", elfiotest.Object{Needed: []string{"libelfdepsshared.so"}})
	app2 := writeObject(t, dir, "app2", elfiotest.Object{Needed: []string{"libelfdepsshared.so"}})
	libshared := writeObject(t, dir, "libelfdepsshared.so", elfiotest.Object{})

	libs, err := Resolve([]string{app1, app2}, []string{dir})
	g.Expect(err).Should(BeNil())
	g.Expect(libs).Should(Equal([]string{libshared}))
}
