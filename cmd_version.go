package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

const nilanVersion = "0.1.0"

// versionCmd implements the "version" subcommand.
type versionCmd struct{}

func (*versionCmd) Name() string     { return "version" }
func (*versionCmd) Synopsis() string { return "Print the Nilan version" }
func (*versionCmd) Usage() string {
	return `version:
  Print the Nilan version.
`
}
func (*versionCmd) SetFlags(f *flag.FlagSet) {}

func (*versionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Println("nilan " + nilanVersion)
	return subcommands.ExitSuccess
}
