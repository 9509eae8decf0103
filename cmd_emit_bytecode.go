package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"nilan/compiler"
	"nilan/lexer"
	"nilan/parser"
)

// emitBytecodeCmd implements the "emit" subcommand: compile a source
// file and write its disassembly (.dnic) and raw bytecode (.nic)
// alongside it, without executing anything.
type emitBytecodeCmd struct {
	disassemble  bool
	dumpBytecode bool
}

func (*emitBytecodeCmd) Name() string { return "emit" }
func (*emitBytecodeCmd) Synopsis() string {
	return "Emit the bytecode representation from a source file"
}
func (*emitBytecodeCmd) Usage() string {
	return `nilan emit <file>`
}

func (cmd *emitBytecodeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disassemble", true, "disassemble the bytecode and dump it to a .dnic file")
	f.BoolVar(&cmd.dumpBytecode, "dumpBytecode", true, "write the encoded bytecode as raw bytes to a .nic file")
}

func (cmd *emitBytecodeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	nilanFile := args[0]
	data, err := os.ReadFile(nilanFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	lex := lexer.New(string(data))
	p := parser.New(lex)
	program, parseErrs := p.Parse()
	if len(parseErrs) > 0 {
		fmt.Fprintf(os.Stderr, "💥 Parsing error:\n")
		for _, pErr := range parseErrs {
			fmt.Fprintf(os.Stderr, "\t%v\n", pErr)
		}
		return subcommands.ExitFailure
	}

	comp := compiler.New()
	if err := comp.Compile(program); err != nil {
		fmt.Fprintf(os.Stderr, "💥 Compilation error:\n\t%v\n", err)
		return subcommands.ExitFailure
	}
	bytecode := comp.Bytecode()

	baseName := strings.TrimSuffix(nilanFile, ".nil")
	if idx := strings.LastIndex(baseName, "."); idx >= 0 {
		baseName = baseName[:idx]
	}

	if cmd.disassemble {
		disPath := baseName + ".dnic"
		if err := os.WriteFile(disPath, []byte(compiler.Disassemble(bytecode.Instructions)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "💥 Bytecode disassemble error:\n\t%s\n", err)
			return subcommands.ExitFailure
		}
	}

	if cmd.dumpBytecode {
		bcPath := baseName + ".nic"
		if err := os.WriteFile(bcPath, bytecode.Instructions, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "💥 Dump bytecode error:\n\t%s\n", err)
			return subcommands.ExitFailure
		}
	}

	return subcommands.ExitSuccess
}
