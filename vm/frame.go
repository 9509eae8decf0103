package vm

import "nilan/object"

// Frame is one activation record on the VM's call stack: the closure
// being executed, where execution is up to within it, and the stack
// position its locals are based at.
type Frame struct {
	closure     *object.Closure
	ip          int
	basePointer int
}

// NewFrame constructs a Frame for invoking cl, with its locals region
// starting at basePointer.
func NewFrame(cl *object.Closure, basePointer int) *Frame {
	return &Frame{closure: cl, basePointer: basePointer}
}

// Instructions returns the bytecode this frame is executing.
func (f *Frame) Instructions() []byte {
	return f.closure.Fn.Instructions
}
