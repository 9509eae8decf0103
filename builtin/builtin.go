// Package builtin implements the fixed table of functions callable from
// Nilan source without an import: len, puts, type, int, array_push,
// array_pop, str_split, and file_get_contents. The table's order is
// part of the compiler/VM contract (OP_GET_BUILTIN indexes into it), so
// Names is exported for the compiler's symbol table and New is the only
// thing that builds the runtime-callable slice.
package builtin

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"nilan/object"
)

// Names lists the builtins in the fixed order their OP_GET_BUILTIN
// index refers to. Appending a new name here and to New's switch is the
// only place a new builtin needs to be wired in.
var Names = []string{
	"len",
	"puts",
	"type",
	"int",
	"array_push",
	"array_pop",
	"str_split",
	"file_get_contents",
}

// New builds the runtime builtin table, in Names order, with puts
// writing to out (a real REPL passes os.Stdout; a test harness can
// capture output with a bytes.Buffer).
func New(out io.Writer) []*object.Builtin {
	table := make([]*object.Builtin, len(Names))
	for i, name := range Names {
		table[i] = &object.Builtin{Name: name, Fn: lookup(name, out)}
	}
	return table
}

func lookup(name string, out io.Writer) object.BuiltinFunction {
	switch name {
	case "len":
		return builtinLen
	case "puts":
		return builtinPuts(out)
	case "type":
		return builtinType
	case "int":
		return builtinInt
	case "array_push":
		return builtinArrayPush
	case "array_pop":
		return builtinArrayPop
	case "str_split":
		return builtinStrSplit
	case "file_get_contents":
		return builtinFileGetContents
	default:
		return func(args ...object.Object) object.Object {
			return object.NewError("unknown builtin: %s", name)
		}
	}
}

func wrongArgCount(got, want int) *object.Error {
	return object.NewError("wrong number of arguments. got=%d, want=%d", got, want)
}

func builtinLen(args ...object.Object) object.Object {
	if len(args) != 1 {
		return wrongArgCount(len(args), 1)
	}
	switch arg := args[0].(type) {
	case *object.String:
		return &object.Integer{Value: int64(len(arg.Value))}
	case *object.Array:
		return &object.Integer{Value: int64(len(arg.Elements))}
	default:
		return object.NewError("argument to len() not supported: got %s", arg.Type())
	}
}

func builtinPuts(out io.Writer) object.BuiltinFunction {
	return func(args ...object.Object) object.Object {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = arg.Inspect()
		}
		fmt.Fprintln(out, strings.Join(parts, " "))
		return object.NULL
	}
}

func builtinType(args ...object.Object) object.Object {
	if len(args) != 1 {
		return wrongArgCount(len(args), 1)
	}
	return &object.String{Value: string(args[0].Type())}
}

func builtinInt(args ...object.Object) object.Object {
	if len(args) != 1 {
		return wrongArgCount(len(args), 1)
	}
	switch arg := args[0].(type) {
	case *object.Integer:
		return arg
	case *object.String:
		value, err := strconv.ParseInt(strings.TrimSpace(arg.Value), 10, 64)
		if err != nil {
			return object.NewError("could not parse %q as integer", arg.Value)
		}
		return &object.Integer{Value: value}
	default:
		return object.NewError("argument to `int` not supported, got %s", arg.Type())
	}
}

// builtinArrayPush appends value onto the array in place and returns
// the new length, matching Nilan arrays being reference types.
func builtinArrayPush(args ...object.Object) object.Object {
	if len(args) != 2 {
		return wrongArgCount(len(args), 2)
	}
	arr, ok := args[0].(*object.Array)
	if !ok {
		return object.NewError("argument to `array_push` must be ARRAY, got %s", args[0].Type())
	}
	arr.Elements = append(arr.Elements, args[1])
	return &object.Integer{Value: int64(len(arr.Elements))}
}

func builtinArrayPop(args ...object.Object) object.Object {
	if len(args) != 1 {
		return wrongArgCount(len(args), 1)
	}
	arr, ok := args[0].(*object.Array)
	if !ok {
		return object.NewError("argument to `array_pop` must be ARRAY, got %s", args[0].Type())
	}
	if len(arr.Elements) == 0 {
		return object.NULL
	}
	last := arr.Elements[len(arr.Elements)-1]
	arr.Elements = arr.Elements[:len(arr.Elements)-1]
	return last
}

func builtinStrSplit(args ...object.Object) object.Object {
	if len(args) != 2 {
		return wrongArgCount(len(args), 2)
	}
	str, ok := args[0].(*object.String)
	if !ok {
		return object.NewError("first argument to `str_split` must be STRING, got %s", args[0].Type())
	}
	sep, ok := args[1].(*object.String)
	if !ok {
		return object.NewError("second argument to `str_split` must be STRING, got %s", args[1].Type())
	}
	parts := strings.Split(str.Value, sep.Value)
	elements := make([]object.Object, len(parts))
	for i, p := range parts {
		elements[i] = &object.String{Value: p}
	}
	return &object.Array{Elements: elements}
}

func builtinFileGetContents(args ...object.Object) object.Object {
	if len(args) != 1 {
		return wrongArgCount(len(args), 1)
	}
	path, ok := args[0].(*object.String)
	if !ok {
		return object.NewError("argument to `file_get_contents` must be STRING, got %s", args[0].Type())
	}
	data, err := os.ReadFile(path.Value)
	if err != nil {
		return object.NewError("could not read file %q: %s", path.Value, err)
	}
	return &object.String{Value: string(data)}
}
