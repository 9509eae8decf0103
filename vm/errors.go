package vm

import "fmt"

// RuntimeError signals a host-level impossibility the running Nilan
// program can never itself observe or recover from: stack overflow,
// frame-stack overflow, or an opcode with no dispatch case. Ordinary
// guest-level failures (type errors, wrong arity, division by zero)
// are object.Error values on the stack instead, following the split
// between host errors and guest errors used throughout the package.
type RuntimeError struct {
	Message string
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("💥 RuntimeError: %s", e.Message)
}

func newStackOverflowError() RuntimeError {
	return RuntimeError{Message: "stack overflow"}
}

func newFrameOverflowError() RuntimeError {
	return RuntimeError{Message: "call stack exceeded maximum frame depth"}
}

func newUnknownOpcodeError(op byte) RuntimeError {
	return RuntimeError{Message: fmt.Sprintf("unknown opcode %d", op)}
}
