package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func execute() error {
	// glog reads its own flags (-v, -logtostderr, ...) off the stdlib flag
	// package; cobra uses pflag and never touches it, so glog needs a
	// separate Parse before the rootCmd's own -v (verbosity) flag takes
	// over and re-sets the glog level in PersistentPreRunE below.
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	rootCmd := newRootCmd()
	return rootCmd.Execute()
}

func newRootCmd() *cobra.Command {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:   "gofhir",
		Short: "GoFHIR - FHIR Toolkit for Go",
		Long: `GoFHIR is a production-grade FHIR toolkit for Go.

It provides:
  - FHIRPath expression parsing and evaluation
  - A CQL-to-ELM compiler
  - Structural validation of FHIR resources against StructureDefinitions

For more information, visit: https://github.com/fhirlang/gofhir`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return flag.Set("v", strconv.Itoa(verbosity))
		},
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (glog -v level, repeatable)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newFHIRPathCmd())
	rootCmd.AddCommand(newCQLCmd())
	rootCmd.AddCommand(newValidateCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("gofhir version %s\n", version)
		},
	}
}
