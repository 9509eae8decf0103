// Package repl implements the interactive Read-Eval-Print Loop for
// Nilan, fronting either the compiled VM backend or the tree-walking
// evaluator backend behind the same prompt.
package repl

import (
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"nilan/compiler"
	"nilan/eval"
	"nilan/lexer"
	"nilan/object"
	"nilan/parser"
	"nilan/token"
	"nilan/vm"
)

var (
	blueColor   = color.New(color.FgBlue)
	yellowColor = color.New(color.FgYellow)
	redColor    = color.New(color.FgRed)
	greenColor  = color.New(color.FgGreen)
	cyanColor   = color.New(color.FgCyan)
)

func init() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

const banner = `
 _______ _____ __    _____ _____
|   |   |     |  |  |  _  |   | |
|   | | |-   -|  |__|     | | | |
|_______|_____|_____|__|__|_|___|
`

// Repl ties the session's compiler/VM state (or evaluator state) to a
// readline-backed line editor. Constructed fresh per session; Start
// runs until EOF/exit.
type Repl struct {
	UseEvaluator bool
	Out          io.Writer
}

// New returns a Repl targeting the compiled VM backend by default.
func New(out io.Writer) *Repl {
	return &Repl{Out: out}
}

func (r *Repl) printBanner() {
	blueColor.Fprintln(r.Out, strings.Repeat("-", 40))
	greenColor.Fprintln(r.Out, banner)
	backend := "VM"
	if r.UseEvaluator {
		backend = "evaluator"
	}
	cyanColor.Fprintf(r.Out, "Welcome to Nilan! (%s backend)\n", backend)
	cyanColor.Fprintln(r.Out, "Type 'exit' or press Ctrl-D to quit.")
	blueColor.Fprintln(r.Out, strings.Repeat("-", 40))
}

// Start runs the REPL loop until EOF, Ctrl-D, or the user types exit.
func (r *Repl) Start() error {
	r.printBanner()

	rl, err := readline.New(">>> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	// REPL state persists across successive lines, but each line needs
	// its own Compiler instance (one with an empty top-level
	// instruction buffer) or Bytecode() would re-emit, and the VM would
	// re-execute, every previously entered line on every keystroke.
	// NewWithState carries the symbol table and constants pool forward
	// instead, so globals and previously compiled functions stay live.
	symbolTable := compiler.New().SymbolTable()
	var constants []object.Object
	globals := make([]object.Object, 65536)
	evaluator := eval.NewWithOutput(r.Out)

	var buffer strings.Builder

	for {
		if buffer.Len() == 0 {
			rl.SetPrompt(">>> ")
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if err != nil {
			r.Out.Write([]byte("\nGood bye!\n"))
			return nil
		}

		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			r.Out.Write([]byte("Good bye!\n"))
			return nil
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		lex := lexer.New(source)
		tokens := lex.Scan()

		if !isInputReady(tokens) {
			continue
		}

		rl.SaveHistory(source)

		p := parser.New(lexer.New(source))
		program, errs := p.Parse()
		if len(errs) > 0 {
			if allParseErrorsAtEOF(errs, tokens[len(tokens)-1]) {
				continue
			}
			for _, e := range errs {
				redColor.Fprintf(r.Out, "%s\n", e)
			}
			buffer.Reset()
			continue
		}
		buffer.Reset()

		if r.UseEvaluator {
			result := evaluator.Eval(program)
			r.printResult(result)
			continue
		}

		comp := compiler.NewWithState(symbolTable, constants)
		if err := comp.Compile(program); err != nil {
			redColor.Fprintf(r.Out, "%s\n", err)
			continue
		}
		constants = comp.Constants()

		machine := vm.New(comp.Bytecode(), vm.WithGlobalsStore(globals), vm.WithOutput(r.Out))
		if err := machine.Run(); err != nil {
			redColor.Fprintf(r.Out, "%s\n", err)
			continue
		}
		r.printResult(machine.LastPoppedStackElem())
	}
}

func (r *Repl) printResult(result object.Object) {
	if result == nil || result == object.NULL {
		return
	}
	if errObj, ok := result.(*object.Error); ok {
		redColor.Fprintf(r.Out, "%s\n", errObj.Message)
		return
	}
	yellowColor.Fprintf(r.Out, "%s\n", result.Inspect())
}

// isInputReady reports whether tokens form a balanced, complete enough
// statement to attempt a parse, generalizing the teacher's brace-only
// check to every bracket kind and every token that implies a
// continuation line (a trailing binary operator, an unclosed keyword
// header, a dangling comma).
func isInputReady(tokens []token.Token) bool {
	balance := 0
	for _, tok := range tokens {
		switch tok.TokenType {
		case token.LCUR, token.LPA, token.LBRACKET:
			balance++
		case token.RCUR, token.RPA, token.RBRACKET:
			balance--
		}
	}
	if balance > 0 {
		return false
	}

	last := lastNonEOF(tokens)
	if last == nil {
		return true
	}

	switch last.TokenType {
	case token.ASSIGN, token.ADD, token.SUB, token.MULT, token.DIV, token.MOD,
		token.BANG, token.EQUAL_EQUAL, token.NOT_EQUAL,
		token.LESS, token.LESS_EQUAL, token.LARGER, token.LARGER_EQUAL,
		token.AND_AND, token.OR_OR,
		token.COMMA, token.COLON,
		token.LPA, token.LCUR, token.LBRACKET,
		token.IF, token.ELSE, token.WHILE, token.FOR, token.FUNC,
		token.RETURN, token.LET, token.BREAK, token.CONTINUE:
		return false
	}
	return true
}

func lastNonEOF(tokens []token.Token) *token.Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].TokenType != token.EOF {
			return &tokens[i]
		}
	}
	return nil
}

// allParseErrorsAtEOF reports whether every syntax error landed at the
// final token's position, meaning the user simply hasn't finished
// typing yet rather than having made a real mistake.
func allParseErrorsAtEOF(errs []error, eof token.Token) bool {
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		se, ok := e.(parser.SyntaxError)
		if !ok {
			return false
		}
		if se.Line != eof.Line || se.Column != eof.Column {
			return false
		}
	}
	return true
}
