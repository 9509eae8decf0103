package vm

import (
	"io"
	"os"

	"nilan/builtin"
	"nilan/compiler"
	"nilan/object"
)

const (
	defaultStackSize   = 2048
	defaultGlobalsSize = 65536
	maxFrameDepth      = 1024
	defaultGCThreshold = 0.8
	defaultHeapInitCap = 64
)

// VM is the stack-based runtime that executes compiled Nilan bytecode:
// a fixed-capacity value stack, a fixed-capacity globals array, a frame
// stack for calls, the shared constants pool, the builtin table, and a
// mark-sweep Heap tracking every object allocated while running.
type VM struct {
	constants []object.Object
	builtins  []*object.Builtin

	stack   *Stack
	globals []object.Object

	frames     []*Frame
	frameIndex int

	heap         *object.Heap
	gcThreshold  float64
	heapCapacity int

	out io.Writer

	lastPopped object.Object
}

// Option configures a VM at construction time (functional options).
type Option func(*VM)

// WithStackSize overrides the default value-stack capacity (2048).
func WithStackSize(size int) Option {
	return func(vm *VM) { vm.stack = NewStack(size) }
}

// WithGlobalsSize overrides the default globals-array capacity (65536).
func WithGlobalsSize(size int) Option {
	return func(vm *VM) { vm.globals = make([]object.Object, size) }
}

// WithGlobalsStore installs a pre-existing globals array, letting a
// REPL carry global bindings across successive VM runs.
func WithGlobalsStore(globals []object.Object) Option {
	return func(vm *VM) { vm.globals = globals }
}

// WithGCThreshold overrides the heap-occupancy fraction (default 0.8)
// that triggers a mark-sweep after an allocation.
func WithGCThreshold(threshold float64) Option {
	return func(vm *VM) { vm.gcThreshold = threshold }
}

// WithHeapCapacity overrides the initial heap capacity (default 64)
// that WithGCThreshold's fraction is measured against; the capacity
// doubles whenever a sweep fails to bring occupancy back under the
// threshold, so long-running programs with a genuinely large live set
// don't thrash collecting on every allocation.
func WithHeapCapacity(capacity int) Option {
	return func(vm *VM) { vm.heapCapacity = capacity }
}

// WithOutput overrides where `puts` writes (default os.Stdout).
func WithOutput(out io.Writer) Option {
	return func(vm *VM) { vm.out = out }
}

// New constructs a VM ready to run bytecode, applying any Options over
// the defaults.
func New(bytecode *compiler.Bytecode, opts ...Option) *VM {
	vm := &VM{
		constants:   bytecode.ConstantsPool,
		stack:       NewStack(defaultStackSize),
		globals:     make([]object.Object, defaultGlobalsSize),
		frames:      make([]*Frame, maxFrameDepth),
		heap:         object.NewHeap(),
		gcThreshold:  defaultGCThreshold,
		heapCapacity: defaultHeapInitCap,
		out:          os.Stdout,
	}

	for _, opt := range opts {
		opt(vm)
	}

	vm.builtins = builtin.New(vm.out)

	mainFn := &object.CompiledFunction{Instructions: bytecode.Instructions}
	mainClosure := &object.Closure{Fn: mainFn}
	vm.frames[0] = NewFrame(mainClosure, 0)
	vm.frameIndex = 1

	return vm
}

func (vm *VM) currentFrame() *Frame {
	return vm.frames[vm.frameIndex-1]
}

func (vm *VM) pushFrame(f *Frame) error {
	if vm.frameIndex >= maxFrameDepth {
		return newFrameOverflowError()
	}
	vm.frames[vm.frameIndex] = f
	vm.frameIndex++
	return nil
}

func (vm *VM) popFrame() *Frame {
	vm.frameIndex--
	return vm.frames[vm.frameIndex]
}

// LastPoppedStackElem exposes the value most recently popped off the
// stack — after Run returns, this is the program's final result, which
// the REPL prints and which tests compare against the evaluator.
func (vm *VM) LastPoppedStackElem() object.Object {
	return vm.lastPopped
}

func (vm *VM) push(obj object.Object) error {
	if !vm.stack.Push(obj) {
		return newStackOverflowError()
	}
	return nil
}

func (vm *VM) pop() object.Object {
	obj, _ := vm.stack.Pop()
	vm.lastPopped = obj
	return obj
}

// track registers a freshly allocated heap object with the GC and
// triggers a mark-sweep once occupancy crosses the configured
// threshold, per the VM's allocation-triggered GC contract.
func (vm *VM) track(obj object.Object) object.Object {
	tracked := vm.heap.Track(obj)
	if float64(vm.heap.Len()) >= float64(vm.heapCapacity)*vm.gcThreshold {
		vm.collect()
	}
	return tracked
}

func (vm *VM) collect() {
	roots := vm.collectRoots()
	vm.heap.Mark(roots)
	vm.heap.Sweep()
	if float64(vm.heap.Len()) >= float64(vm.heapCapacity)*vm.gcThreshold {
		vm.heapCapacity *= 2
	}
}

// collectRoots gathers every currently-reachable object per the GC's
// mark-roots rule: the live stack, every defined global, every
// constant, and each active frame's closure (locals live on the stack
// and are covered by it already).
func (vm *VM) collectRoots() []object.Object {
	roots := make([]object.Object, 0, vm.stack.Len()+len(vm.globals)+len(vm.constants)+vm.frameIndex)
	roots = append(roots, vm.stack.Elements()...)
	for _, g := range vm.globals {
		if g != nil {
			roots = append(roots, g)
		}
	}
	roots = append(roots, vm.constants...)
	for i := 0; i < vm.frameIndex; i++ {
		roots = append(roots, vm.frames[i].closure)
	}
	return roots
}

// Run executes the VM's bytecode to completion, dispatching one opcode
// at a time from the current frame until the outermost frame returns.
func (vm *VM) Run() error {
	for vm.currentFrame().ip < len(vm.currentFrame().Instructions()) {
		frame := vm.currentFrame()
		ins := frame.Instructions()
		opCode := compiler.Opcode(ins[frame.ip])
		frame.ip++

		switch opCode {
		case compiler.OP_CONSTANT:
			idx := int(compiler.ReadUint16(ins[frame.ip:]))
			frame.ip += 2
			if err := vm.push(vm.constants[idx]); err != nil {
				return err
			}

		case compiler.OP_POP:
			vm.pop()

		case compiler.OP_TRUE:
			if err := vm.push(object.TRUE); err != nil {
				return err
			}
		case compiler.OP_FALSE:
			if err := vm.push(object.FALSE); err != nil {
				return err
			}
		case compiler.OP_NULL:
			if err := vm.push(object.NULL); err != nil {
				return err
			}

		case compiler.OP_ADD, compiler.OP_SUB, compiler.OP_MUL, compiler.OP_DIV, compiler.OP_MOD:
			if err := vm.execBinaryArithmetic(opCode); err != nil {
				return err
			}

		case compiler.OP_EQUAL, compiler.OP_NOT_EQUAL, compiler.OP_GREATER_THAN,
			compiler.OP_LESS_THAN, compiler.OP_GREATER_EQUAL, compiler.OP_LESS_EQUAL:
			if err := vm.execComparison(opCode); err != nil {
				return err
			}

		case compiler.OP_BANG:
			if err := vm.execBang(); err != nil {
				return err
			}
		case compiler.OP_MINUS:
			if err := vm.execMinus(); err != nil {
				return err
			}

		case compiler.OP_JUMP:
			tgt := int(compiler.ReadUint16(ins[frame.ip:]))
			frame.ip = tgt

		case compiler.OP_JUMP_NOT_TRUE:
			tgt := int(compiler.ReadUint16(ins[frame.ip:]))
			frame.ip += 2
			condition := vm.pop()
			if !isTruthy(condition) {
				frame.ip = tgt
			}

		case compiler.OP_GET_GLOBAL:
			idx := int(compiler.ReadUint16(ins[frame.ip:]))
			frame.ip += 2
			if err := vm.push(vm.globals[idx]); err != nil {
				return err
			}
		case compiler.OP_SET_GLOBAL:
			idx := int(compiler.ReadUint16(ins[frame.ip:]))
			frame.ip += 2
			vm.globals[idx] = vm.pop()

		case compiler.OP_GET_LOCAL:
			k := int(compiler.ReadUint8(ins[frame.ip:]))
			frame.ip++
			if err := vm.push(vm.stack.At(frame.basePointer + k)); err != nil {
				return err
			}
		case compiler.OP_SET_LOCAL:
			k := int(compiler.ReadUint8(ins[frame.ip:]))
			frame.ip++
			vm.stack.Set(frame.basePointer+k, vm.pop())

		case compiler.OP_GET_BUILTIN:
			idx := int(compiler.ReadUint8(ins[frame.ip:]))
			frame.ip++
			if err := vm.push(vm.builtins[idx]); err != nil {
				return err
			}

		case compiler.OP_ARRAY:
			n := int(compiler.ReadUint16(ins[frame.ip:]))
			frame.ip += 2
			if err := vm.execArray(n); err != nil {
				return err
			}

		case compiler.OP_INDEX:
			if err := vm.execIndex(); err != nil {
				return err
			}
		case compiler.OP_SLICE:
			if err := vm.execSlice(); err != nil {
				return err
			}
		case compiler.OP_SET_INDEX:
			if err := vm.execSetIndex(); err != nil {
				return err
			}

		case compiler.OP_CALL:
			argc := int(compiler.ReadUint8(ins[frame.ip:]))
			frame.ip++
			if err := vm.execCall(argc); err != nil {
				return err
			}

		case compiler.OP_RETURN_VALUE:
			returnValue := vm.pop()
			f := vm.popFrame()
			vm.stack.Truncate(f.basePointer - 1)
			if err := vm.push(returnValue); err != nil {
				return err
			}

		case compiler.OP_RETURN:
			f := vm.popFrame()
			vm.stack.Truncate(f.basePointer - 1)
			if err := vm.push(object.NULL); err != nil {
				return err
			}

		case compiler.OP_CLOSURE:
			constIdx := int(compiler.ReadUint16(ins[frame.ip:]))
			numFree := int(compiler.ReadUint8(ins[frame.ip+2:]))
			frame.ip += 3
			if err := vm.execClosure(constIdx, numFree); err != nil {
				return err
			}

		case compiler.OP_GET_FREE:
			idx := int(compiler.ReadUint8(ins[frame.ip:]))
			frame.ip++
			freeVar := vm.currentFrame().closure.Free[idx]
			if err := vm.push(freeVar); err != nil {
				return err
			}

		case compiler.OP_CURRENT_CLOSURE:
			if err := vm.push(vm.currentFrame().closure); err != nil {
				return err
			}

		default:
			return newUnknownOpcodeError(byte(opCode))
		}
	}

	return nil
}

// isTruthy implements the language's truthiness rule: null and false
// are false, everything else (including the integer 0) is true.
func isTruthy(obj object.Object) bool {
	switch obj {
	case object.NULL, object.FALSE:
		return false
	default:
		return true
	}
}

func (vm *VM) execBinaryArithmetic(op compiler.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	if errObj, ok := left.(*object.Error); ok {
		return vm.push(errObj)
	}
	if errObj, ok := right.(*object.Error); ok {
		return vm.push(errObj)
	}

	leftInt, leftIsInt := left.(*object.Integer)
	rightInt, rightIsInt := right.(*object.Integer)

	if leftIsInt && rightIsInt {
		return vm.execIntegerArithmetic(op, leftInt, rightInt)
	}

	leftStr, leftIsStr := left.(*object.String)
	rightStr, rightIsStr := right.(*object.String)
	if op == compiler.OP_ADD && leftIsStr && rightIsStr {
		return vm.push(vm.track(&object.String{Value: leftStr.Value + rightStr.Value}))
	}

	return vm.push(object.NewError("unsupported operand types for %s: %s and %s", arithmeticName(op), left.Type(), right.Type()))
}

func arithmeticName(op compiler.Opcode) string {
	switch op {
	case compiler.OP_ADD:
		return "+"
	case compiler.OP_SUB:
		return "-"
	case compiler.OP_MUL:
		return "*"
	case compiler.OP_DIV:
		return "/"
	case compiler.OP_MOD:
		return "%"
	default:
		return "?"
	}
}

func (vm *VM) execIntegerArithmetic(op compiler.Opcode, left, right *object.Integer) error {
	switch op {
	case compiler.OP_ADD:
		return vm.push(&object.Integer{Value: left.Value + right.Value})
	case compiler.OP_SUB:
		return vm.push(&object.Integer{Value: left.Value - right.Value})
	case compiler.OP_MUL:
		return vm.push(&object.Integer{Value: left.Value * right.Value})
	case compiler.OP_DIV:
		if right.Value == 0 {
			return vm.push(object.NewError("division by zero"))
		}
		return vm.push(&object.Integer{Value: left.Value / right.Value})
	case compiler.OP_MOD:
		if right.Value == 0 {
			return vm.push(object.NewError("modulo by zero"))
		}
		return vm.push(&object.Integer{Value: left.Value % right.Value})
	default:
		return newUnknownOpcodeError(byte(op))
	}
}

func (vm *VM) execComparison(op compiler.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	if errObj, ok := left.(*object.Error); ok {
		return vm.push(errObj)
	}
	if errObj, ok := right.(*object.Error); ok {
		return vm.push(errObj)
	}

	if leftInt, ok := left.(*object.Integer); ok {
		if rightInt, ok := right.(*object.Integer); ok {
			return vm.execIntegerComparison(op, leftInt, rightInt)
		}
	}
	if leftBool, ok := left.(*object.Boolean); ok {
		if rightBool, ok := right.(*object.Boolean); ok {
			return vm.execBooleanComparison(op, leftBool, rightBool)
		}
	}
	if leftStr, ok := left.(*object.String); ok {
		if rightStr, ok := right.(*object.String); ok {
			return vm.execStringComparison(op, leftStr, rightStr)
		}
	}

	return vm.push(object.NewError("unsupported operand types for comparison: %s and %s", left.Type(), right.Type()))
}

func (vm *VM) execIntegerComparison(op compiler.Opcode, left, right *object.Integer) error {
	switch op {
	case compiler.OP_EQUAL:
		return vm.push(object.NativeBool(left.Value == right.Value))
	case compiler.OP_NOT_EQUAL:
		return vm.push(object.NativeBool(left.Value != right.Value))
	case compiler.OP_GREATER_THAN:
		return vm.push(object.NativeBool(left.Value > right.Value))
	case compiler.OP_LESS_THAN:
		return vm.push(object.NativeBool(left.Value < right.Value))
	case compiler.OP_GREATER_EQUAL:
		return vm.push(object.NativeBool(left.Value >= right.Value))
	case compiler.OP_LESS_EQUAL:
		return vm.push(object.NativeBool(left.Value <= right.Value))
	default:
		return newUnknownOpcodeError(byte(op))
	}
}

func (vm *VM) execBooleanComparison(op compiler.Opcode, left, right *object.Boolean) error {
	switch op {
	case compiler.OP_EQUAL:
		return vm.push(object.NativeBool(left == right))
	case compiler.OP_NOT_EQUAL:
		return vm.push(object.NativeBool(left != right))
	default:
		return vm.push(object.NewError("unsupported operator for BOOLEAN operands"))
	}
}

func (vm *VM) execStringComparison(op compiler.Opcode, left, right *object.String) error {
	switch op {
	case compiler.OP_EQUAL:
		return vm.push(object.NativeBool(left.Value == right.Value))
	case compiler.OP_NOT_EQUAL:
		return vm.push(object.NativeBool(left.Value != right.Value))
	default:
		return vm.push(object.NewError("unsupported operator for STRING operands"))
	}
}

func (vm *VM) execBang() error {
	operand := vm.pop()
	return vm.push(object.NativeBool(!isTruthy(operand)))
}

func (vm *VM) execMinus() error {
	operand := vm.pop()
	intObj, ok := operand.(*object.Integer)
	if !ok {
		return vm.push(object.NewError("unsupported operand type for -: %s", operand.Type()))
	}
	return vm.push(&object.Integer{Value: -intObj.Value})
}

func (vm *VM) execArray(n int) error {
	elements := make([]object.Object, n)
	for i := n - 1; i >= 0; i-- {
		elements[i] = vm.pop()
	}
	return vm.push(vm.track(&object.Array{Elements: elements}))
}

func (vm *VM) execIndex() error {
	index := vm.pop()
	left := vm.pop()

	idx, ok := index.(*object.Integer)
	if !ok {
		return vm.push(object.NewError("index operator not supported for index type: %s", index.Type()))
	}

	switch container := left.(type) {
	case *object.Array:
		if idx.Value < 0 || idx.Value >= int64(len(container.Elements)) {
			return vm.push(object.NULL)
		}
		return vm.push(container.Elements[idx.Value])
	case *object.String:
		if idx.Value < 0 || idx.Value >= int64(len(container.Value)) {
			return vm.push(object.NULL)
		}
		return vm.push(vm.track(&object.String{Value: string(container.Value[idx.Value])}))
	default:
		return vm.push(object.NewError("index operator not supported: %s", left.Type()))
	}
}

func (vm *VM) execSlice() error {
	end := vm.pop()
	start := vm.pop()
	left := vm.pop()

	startIdx, ok := start.(*object.Integer)
	if !ok {
		return vm.push(object.NewError("slice start must be INTEGER, got %s", start.Type()))
	}
	endIdx, ok := end.(*object.Integer)
	if !ok {
		return vm.push(object.NewError("slice end must be INTEGER, got %s", end.Type()))
	}

	switch container := left.(type) {
	case *object.Array:
		length := int64(len(container.Elements))
		s, e := clampSlice(startIdx.Value, endIdx.Value, length)
		sliced := make([]object.Object, e-s)
		copy(sliced, container.Elements[s:e])
		return vm.push(vm.track(&object.Array{Elements: sliced}))
	case *object.String:
		length := int64(len(container.Value))
		s, e := clampSlice(startIdx.Value, endIdx.Value, length)
		return vm.push(vm.track(&object.String{Value: container.Value[s:e]}))
	default:
		return vm.push(object.NewError("slice operator not supported: %s", left.Type()))
	}
}

// clampSlice clamps start/end to [0, length]; a negative end is the
// compiler's "through the end of the collection" sentinel.
func clampSlice(start, end, length int64) (int64, int64) {
	if end < 0 || end > length {
		end = length
	}
	if start < 0 {
		start = 0
	}
	if start > length {
		start = length
	}
	if end < start {
		end = start
	}
	return start, end
}

func (vm *VM) execSetIndex() error {
	value := vm.pop()
	index := vm.pop()
	left := vm.pop()

	arr, ok := left.(*object.Array)
	if !ok {
		return vm.push(object.NewError("index assignment not supported: %s", left.Type()))
	}
	idx, ok := index.(*object.Integer)
	if !ok {
		return vm.push(object.NewError("index assignment requires INTEGER index, got %s", index.Type()))
	}
	if idx.Value < 0 || idx.Value >= int64(len(arr.Elements)) {
		return vm.push(object.NewError("index out of range: %d", idx.Value))
	}
	arr.Elements[idx.Value] = value
	return vm.push(value)
}

func (vm *VM) execCall(argc int) error {
	calleeIdx := vm.stack.Len() - 1 - argc
	callee := vm.stack.At(calleeIdx)

	switch fn := callee.(type) {
	case *object.Closure:
		if argc != fn.Fn.NumParameters {
			vm.stack.Truncate(calleeIdx)
			return vm.push(object.NewError("wrong number of arguments: want=%d, got=%d", fn.Fn.NumParameters, argc))
		}
		frame := NewFrame(fn, calleeIdx+1)
		if err := vm.pushFrame(frame); err != nil {
			return err
		}
		vm.stack.Truncate(frame.basePointer + fn.Fn.NumLocals)
		return nil

	case *object.Builtin:
		args := make([]object.Object, argc)
		for i := 0; i < argc; i++ {
			args[i] = vm.stack.At(calleeIdx + 1 + i)
		}
		result := fn.Fn(args...)
		vm.stack.Truncate(calleeIdx)
		if result == nil {
			result = object.NULL
		}
		return vm.push(result)

	default:
		vm.stack.Truncate(calleeIdx)
		return vm.push(object.NewError("calling non-function: %s", callee.Type()))
	}
}

func (vm *VM) execClosure(constIdx, numFree int) error {
	constant := vm.constants[constIdx]
	fn, ok := constant.(*object.CompiledFunction)
	if !ok {
		return newUnknownOpcodeError(byte(compiler.OP_CLOSURE))
	}

	free := make([]object.Object, numFree)
	base := vm.stack.Len() - numFree
	for i := 0; i < numFree; i++ {
		free[i] = vm.stack.At(base + i)
	}
	vm.stack.Truncate(base)

	return vm.push(vm.track(&object.Closure{Fn: fn, Free: free}))
}
