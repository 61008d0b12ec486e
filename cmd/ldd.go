package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rmohr/elfdeps/pkg/config"
	"github.com/rmohr/elfdeps/pkg/ldd"
	"github.com/rmohr/elfdeps/pkg/sysroot"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

type lddOpts struct {
	tar         string
	configFile  string
	libraryPath string
}

var lddopts = lddOpts{}

func NewlddCmd() *cobra.Command {

	lddCmd := &cobra.Command{
		Use:   "ldd",
		Short: "Determine shared library dependencies of binaries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, objects []string) error {
			libraryPath := filepath.SplitList(os.Getenv("LD_LIBRARY_PATH"))
			if lddopts.libraryPath != "" {
				libraryPath = strings.Split(lddopts.libraryPath, ":")
			}
			standardDirs := ldd.StandardDirs
			if lddopts.configFile != "" {
				conf, err := config.Load(lddopts.configFile)
				if err != nil {
					return err
				}
				if len(conf.StandardDirs) > 0 {
					standardDirs = conf.StandardDirs
				}
				libraryPath = append(conf.LibraryPath, libraryPath...)
			}

			root := ""
			if lddopts.tar != "" {
				tmpRoot, err := os.MkdirTemp("", "elfdeps-ldd")
				if err != nil {
					return err
				}
				defer os.RemoveAll(tmpRoot)

				logrus.Infof("Extracting %s.", lddopts.tar)
				if err := sysroot.Untar(tmpRoot, lddopts.tar); err != nil {
					return err
				}
				root = tmpRoot
				for i := range objects {
					objects[i] = filepath.Join(tmpRoot, objects[i])
				}
				standardDirs = rebase(standardDirs, tmpRoot)
				libraryPath = rebase(libraryPath, tmpRoot)
			}

			resolver := &ldd.Resolver{StandardDirs: standardDirs, LibraryPath: libraryPath}
			files := []string{}
			for _, obj := range objects {
				dependencies, err := resolver.Resolve(obj)
				if err != nil {
					return err
				}
				for _, dep := range dependencies {
					if root != "" {
						dep = strings.TrimPrefix(dep, root)
					}
					if !slices.Contains(files, dep) {
						files = append(files, dep)
					}
				}
			}
			for _, file := range files {
				fmt.Println(file)
			}
			logrus.Debugf("resolved %d libraries", len(files))
			return nil
		},
	}

	lddCmd.Flags().StringVarP(&lddopts.tar, "input", "i", "", "Tar file to extract and resolve the binaries in")
	lddCmd.Flags().StringVarP(&lddopts.configFile, "config", "c", "", "YAML file with additional search directories")
	lddCmd.Flags().StringVarP(&lddopts.libraryPath, "library-path", "l", "", "Colon-separated directory list overriding LD_LIBRARY_PATH")
	return lddCmd
}

func rebase(dirs []string, root string) []string {
	rebased := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		rebased = append(rebased, filepath.Join(root, dir))
	}
	return rebased
}
