package main

import (
	"fmt"

	"github.com/rmohr/elfdeps/pkg/elfio"
	"github.com/spf13/cobra"
)

func NewInspectCmd() *cobra.Command {

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the declared dependencies and search hints of a binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := elfio.Parse(args[0])
			if err != nil {
				return err
			}
			needed, hints, err := meta.DependenciesAndHints()
			if err != nil {
				return err
			}
			fmt.Printf("class: %v\n", meta.WordSize())
			for _, lib := range needed {
				fmt.Printf("needed: %s\n", lib)
			}
			for _, dir := range hints {
				fmt.Printf("searchpath: %s\n", dir)
			}
			return nil
		},
	}
	return inspectCmd
}
