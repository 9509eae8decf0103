package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"nilan/repl"
)

// replCmd implements the "repl" subcommand: an interactive session
// over either the compiled VM backend (default) or the evaluator.
type replCmd struct {
	useEval bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive REPL session" }
func (*replCmd) Usage() string {
	return `repl [-eval]:
  Start an interactive REPL session.
`
}
func (r *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.useEval, "eval", false, "run the REPL against the tree-walking evaluator instead of the VM")
}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	session := repl.New(os.Stdout)
	session.UseEvaluator = r.useEval
	if err := session.Start(); err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
