// Package sysroot extracts a file-system tarball into a scratch root so that
// binaries from an image or build output can be resolved against the
// libraries they ship with.
package sysroot

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Untar extracts the given tar file below root. Absolute symlink targets are
// rebased into the root, entries escaping the root are rejected and hard
// links are created in a second pass once their targets exist.
func Untar(root string, tarFile string) error {
	reader, err := os.Open(tarFile)
	if err != nil {
		return err
	}
	defer reader.Close()
	tarReader := tar.NewReader(reader)
	hardLinks := map[string]string{}

	for {
		entry, err := tarReader.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}

		target := filepath.Join(root, entry.Name)
		if err := ensureInside(root, target); err != nil {
			return err
		}
		switch entry.Typeflag {
		case tar.TypeDir:
			err := os.MkdirAll(target, os.ModePerm)
			if err != nil {
				return err
			}
		case tar.TypeReg:
			dir := filepath.Dir(target)
			err := os.MkdirAll(dir, os.ModePerm)
			if err != nil {
				return err
			}
			err = func() error {
				writer, err := os.Create(target)
				if err != nil {
					return err
				}
				defer writer.Close()
				if _, err := io.Copy(writer, tarReader); err != nil {
					return err
				}
				return os.Chmod(target, os.FileMode(entry.Mode))
			}()
			if err != nil {
				return err
			}
		case tar.TypeSymlink:
			dir := filepath.Dir(target)
			err := os.MkdirAll(dir, os.ModePerm)
			if err != nil {
				return err
			}
			linkname := entry.Linkname
			if strings.HasPrefix(linkname, "/") {
				linkname = filepath.Join(root, linkname)
				linkname, err = filepath.Rel(dir, linkname)
				if err != nil {
					return err
				}
			}
			if err := ensureInside(root, filepath.Join(dir, linkname)); err != nil {
				return err
			}
			if err = os.Symlink(linkname, target); err != nil {
				return err
			}
		case tar.TypeLink:
			err := os.MkdirAll(filepath.Dir(target), os.ModePerm)
			if err != nil {
				return err
			}
			hardLinks[target] = entry.Linkname
		default:
			log.Debugf("Skipping %s with type %v", entry.Name, entry.Typeflag)
		}
	}

	for target, source := range hardLinks {
		source := filepath.Join(root, source)
		if err := os.Link(source, target); err != nil {
			return fmt.Errorf("failed to create hard link from %s to %s: %v", target, source, err)
		}
	}
	return nil
}

func ensureInside(root string, path string) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("entry %s escapes the extraction root", path)
	}
	return nil
}
