package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose = false

var rootCmd = &cobra.Command{
	Use:   "elfdeps",
	Short: "elfdeps is a tool which determines the shared library dependencies of ELF binaries",
	Long:  `The tool resolves the full transitive closure of shared-library dependencies of ELF executables and libraries with loader-like search path rules, without loading or executing any code`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
	},
}

func Execute() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose traversal output")
	rootCmd.AddCommand(NewlddCmd())
	rootCmd.AddCommand(NewInspectCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
