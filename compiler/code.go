package compiler

import (
	"encoding/binary"
	"fmt"
	"nilan/object"
	"strings"
)

// Bytecode is what the compiler hands to the Virtual Machine (VM) to
// execute.
//
// Fields:
//   - Instructions: an array of instructions defined by opcodes and
//     their operands
//   - ConstantsPool: an array containing all the constant values from
//     the source code
type Bytecode struct {
	Instructions  Instructions
	ConstantsPool []object.Object
}

type Opcode byte

type Instructions []byte

// opcodes
// iota generates a distinct byte for each bytecode
const (
	// OP_CONSTANT has a single operand with a size of 2 bytes, a
	// `uint16` index into the constants pool. This restricts a nilan
	// program to 65536 constants — not a hard constraint, could be
	// widened to uint32 if needed.
	OP_CONSTANT Opcode = iota
	OP_POP
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_TRUE
	OP_FALSE
	OP_EQUAL
	OP_NOT_EQUAL
	OP_GREATER_THAN
	OP_LESS_THAN
	OP_GREATER_EQUAL
	OP_LESS_EQUAL
	OP_MINUS
	OP_BANG
	OP_JUMP
	OP_JUMP_NOT_TRUE
	OP_NULL
	OP_GET_GLOBAL
	OP_SET_GLOBAL
	OP_ARRAY
	OP_INDEX
	OP_SLICE
	OP_SET_INDEX
	OP_CALL
	OP_RETURN_VALUE
	OP_RETURN
	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_GET_BUILTIN
	// OP_CLOSURE wraps constants[operand0] (a CompiledFunction) together
	// with the top operand1 values on the stack into a Closure object.
	// This and the two opcodes below give the VM backend first-class
	// closures without an evaluator-style environment chain.
	OP_CLOSURE
	OP_GET_FREE
	OP_CURRENT_CLOSURE
)

// OpCodeDefinition describes an opcode: its mnemonic and the byte width
// of each of its operands, in order.
//
// Fields:
//   - Name: the human-readable name for the opcode, e.g. "OP_CONSTANT"
//   - OperandWidths: the number of bytes each operand takes up
type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*OpCodeDefinition{
	OP_CONSTANT:        {Name: "OP_CONSTANT", OperandWidths: []int{2}},
	OP_POP:             {Name: "OP_POP", OperandWidths: []int{}},
	OP_ADD:             {Name: "OP_ADD", OperandWidths: []int{}},
	OP_SUB:             {Name: "OP_SUB", OperandWidths: []int{}},
	OP_MUL:             {Name: "OP_MUL", OperandWidths: []int{}},
	OP_DIV:             {Name: "OP_DIV", OperandWidths: []int{}},
	OP_MOD:             {Name: "OP_MOD", OperandWidths: []int{}},
	OP_TRUE:            {Name: "OP_TRUE", OperandWidths: []int{}},
	OP_FALSE:           {Name: "OP_FALSE", OperandWidths: []int{}},
	OP_EQUAL:           {Name: "OP_EQUAL", OperandWidths: []int{}},
	OP_NOT_EQUAL:       {Name: "OP_NOT_EQUAL", OperandWidths: []int{}},
	OP_GREATER_THAN:    {Name: "OP_GREATER_THAN", OperandWidths: []int{}},
	OP_LESS_THAN:       {Name: "OP_LESS_THAN", OperandWidths: []int{}},
	OP_GREATER_EQUAL:   {Name: "OP_GREATER_EQUAL", OperandWidths: []int{}},
	OP_LESS_EQUAL:      {Name: "OP_LESS_EQUAL", OperandWidths: []int{}},
	OP_MINUS:           {Name: "OP_MINUS", OperandWidths: []int{}},
	OP_BANG:            {Name: "OP_BANG", OperandWidths: []int{}},
	OP_JUMP:            {Name: "OP_JUMP", OperandWidths: []int{2}},
	OP_JUMP_NOT_TRUE:   {Name: "OP_JUMP_NOT_TRUE", OperandWidths: []int{2}},
	OP_NULL:            {Name: "OP_NULL", OperandWidths: []int{}},
	OP_GET_GLOBAL:      {Name: "OP_GET_GLOBAL", OperandWidths: []int{2}},
	OP_SET_GLOBAL:      {Name: "OP_SET_GLOBAL", OperandWidths: []int{2}},
	OP_ARRAY:           {Name: "OP_ARRAY", OperandWidths: []int{2}},
	OP_INDEX:           {Name: "OP_INDEX", OperandWidths: []int{}},
	OP_SLICE:           {Name: "OP_SLICE", OperandWidths: []int{}},
	OP_SET_INDEX:       {Name: "OP_SET_INDEX", OperandWidths: []int{}},
	OP_CALL:            {Name: "OP_CALL", OperandWidths: []int{1}},
	OP_RETURN_VALUE:    {Name: "OP_RETURN_VALUE", OperandWidths: []int{}},
	OP_RETURN:          {Name: "OP_RETURN", OperandWidths: []int{}},
	OP_GET_LOCAL:       {Name: "OP_GET_LOCAL", OperandWidths: []int{1}},
	OP_SET_LOCAL:       {Name: "OP_SET_LOCAL", OperandWidths: []int{1}},
	OP_GET_BUILTIN:     {Name: "OP_GET_BUILTIN", OperandWidths: []int{1}},
	OP_CLOSURE:         {Name: "OP_CLOSURE", OperandWidths: []int{2, 1}},
	OP_GET_FREE:        {Name: "OP_GET_FREE", OperandWidths: []int{1}},
	OP_CURRENT_CLOSURE: {Name: "OP_CURRENT_CLOSURE", OperandWidths: []int{}},
}

func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode: '%d' undefined", op)
	}
	return def, nil
}

// MakeInstruction constructs a bytecode instruction from an opcode and
// its operands. The bytecode operands are encoded in BigEndian order:
// the resulting byte slice always begins with the opcode, followed by
// each operand encoded according to its defined width, most significant
// byte first.
//
// Example: for OP_CONSTANT (a single 2-byte operand):
//
//	instr := MakeInstruction(OP_CONSTANT, 42)
//	// instr == [<opcode for OP_CONSTANT>, 0x00, 0x2A]
func MakeInstruction(op Opcode, operands ...int) []byte {
	def, err := Get(op)
	if err != nil {
		return []byte{}
	}

	byteOffset := 1
	instructionLength := byteOffset // starts at one for the opcode
	for _, width := range def.OperandWidths {
		instructionLength += width
	}

	instruction := make([]byte, instructionLength)
	instruction[0] = byte(op)

	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instruction[byteOffset:], uint16(o))
		case 1:
			instruction[byteOffset] = byte(o)
		}
		byteOffset += width
	}
	return instruction
}

// ReadOperands decodes every operand of an instruction whose definition
// is given, returning the operand values and how many bytes were
// consumed (not counting the opcode byte itself). Used by the
// disassembler and by backpatching logic that needs to read an operand
// back out of already-emitted instructions.
func ReadOperands(def *OpCodeDefinition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 1:
			operands[i] = int(ReadUint8(ins[offset:]))
		}
		offset += width
	}

	return operands, offset
}

func ReadUint16(ins Instructions) uint16 {
	return binary.BigEndian.Uint16(ins)
}

func ReadUint8(ins Instructions) uint8 {
	return uint8(ins[0])
}

// Disassemble renders an instruction buffer into the fixed textual form
// `NNNN OpName operand1 operand2`, offset padded to 4 digits, one
// instruction per line.
func Disassemble(ins Instructions) string {
	var out strings.Builder

	i := 0
	for i < len(ins) {
		def, err := Get(Opcode(ins[i]))
		if err != nil {
			fmt.Fprintf(&out, "%04d ERROR: %s\n", i, err)
			i++
			continue
		}

		operands, read := ReadOperands(def, ins[i+1:])
		fmt.Fprintf(&out, "%04d %s\n", i, formatInstruction(def, operands))
		i += 1 + read
	}

	return out.String()
}

func formatInstruction(def *OpCodeDefinition, operands []int) string {
	operandCount := len(def.OperandWidths)
	if len(operands) != operandCount {
		return fmt.Sprintf("ERROR: operand count %d does not match defined %d", len(operands), operandCount)
	}

	switch operandCount {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	}
	return fmt.Sprintf("ERROR: unhandled operandCount for %s", def.Name)
}
