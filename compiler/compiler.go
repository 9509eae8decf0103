// Package compiler walks the AST and emits bytecode instructions for
// the virtual machine: one scope for top-level code, one more for each
// nested function body, plus a constants pool shared across all scopes.
package compiler

import (
	"nilan/ast"
	"nilan/builtin"
	"nilan/object"
	"nilan/symtable"
)

// EmittedInstruction remembers an instruction's opcode and position so
// the compiler can look back (last_instruction_is) or rewrite it
// (replace the trailing Pop of an if-branch with nothing, etc.).
type EmittedInstruction struct {
	Opcode   Opcode
	Position int
}

// CompilationScope holds the instruction buffer being built for one
// function body (or the top level) plus enough history to backpatch the
// two most recently emitted instructions.
type CompilationScope struct {
	instructions        Instructions
	lastInstruction     EmittedInstruction
	previousInstruction EmittedInstruction
}

// loopContext tracks the placeholder jump positions emitted by break/
// continue statements lexically inside the current innermost loop, so
// they can be patched once the loop's exit and re-test offsets are
// known. A stack of these (rather than a single value) is what lets
// break/continue inside an if-nested-in-a-loop still target the correct
// innermost loop regardless of if-nesting depth.
type loopContext struct {
	breaks    []int
	continues []int
}

// Compiler is constructed fresh per compilation; Compile aborts and
// returns the first CompileError encountered rather than collecting
// diagnostics like the parser does.
type Compiler struct {
	constants []object.Object

	symbolTable *symtable.SymbolTable

	scopes     []CompilationScope
	scopeIndex int

	loops []*loopContext
	err   error
}

// New constructs a Compiler with the fixed builtin table already
// resolvable via GetBuiltin, and a fresh global symbol table.
func New() *Compiler {
	mainScope := CompilationScope{instructions: Instructions{}}

	symbolTable := symtable.New()
	for i, name := range builtin.Names {
		symbolTable.DefineBuiltin(i, name)
	}

	return &Compiler{
		symbolTable: symbolTable,
		scopes:      []CompilationScope{mainScope},
	}
}

// NewWithState constructs a Compiler reusing an existing symbol table
// and constants pool, so a REPL can compile successive inputs while
// keeping previously defined globals and constants alive.
func NewWithState(symbolTable *symtable.SymbolTable, constants []object.Object) *Compiler {
	c := New()
	c.symbolTable = symbolTable
	c.constants = constants
	return c
}

// Compile compiles an entire program, returning the first CompileError
// encountered, if any.
func (c *Compiler) Compile(program *ast.Program) error {
	for _, stmt := range program.Statements {
		c.compileStatement(stmt)
		if c.err != nil {
			return c.err
		}
	}
	return nil
}

// Bytecode returns the top-level scope's instructions paired with the
// accumulated constants pool.
func (c *Compiler) Bytecode() *Bytecode {
	return &Bytecode{
		Instructions:  c.currentInstructions(),
		ConstantsPool: c.constants,
	}
}

// SymbolTable exposes the compiler's current symbol table, so a REPL
// driver can thread it into the next compilation.
func (c *Compiler) SymbolTable() *symtable.SymbolTable { return c.symbolTable }

// Constants exposes the accumulated constants pool for the same reason.
func (c *Compiler) Constants() []object.Object { return c.constants }

func (c *Compiler) currentInstructions() Instructions {
	return c.scopes[c.scopeIndex].instructions
}

func (c *Compiler) emit(op Opcode, operands ...int) int {
	ins := MakeInstruction(op, operands...)
	pos := c.addInstruction(ins)
	c.setLastInstruction(op, pos)
	return pos
}

func (c *Compiler) addInstruction(ins []byte) int {
	pos := len(c.currentInstructions())
	updated := append(c.currentInstructions(), ins...)
	c.scopes[c.scopeIndex].instructions = updated
	return pos
}

func (c *Compiler) setLastInstruction(op Opcode, pos int) {
	scope := &c.scopes[c.scopeIndex]
	scope.previousInstruction = scope.lastInstruction
	scope.lastInstruction = EmittedInstruction{Opcode: op, Position: pos}
}

func (c *Compiler) lastInstructionIs(op Opcode) bool {
	if len(c.currentInstructions()) == 0 {
		return false
	}
	return c.scopes[c.scopeIndex].lastInstruction.Opcode == op
}

func (c *Compiler) removeLastPop() {
	scope := &c.scopes[c.scopeIndex]
	scope.instructions = scope.instructions[:scope.lastInstruction.Position]
	scope.lastInstruction = scope.previousInstruction
}

// replaceInstruction overwrites the instruction at pos in place; it
// must be the same total width as what is already there (used for
// backpatching jump operands and for swapping a trailing Pop for a
// Return*).
func (c *Compiler) replaceInstruction(pos int, newInstruction []byte) {
	ins := c.currentInstructions()
	for i := 0; i < len(newInstruction); i++ {
		ins[pos+i] = newInstruction[i]
	}
}

func (c *Compiler) changeOperand(opPos int, operand int) {
	op := Opcode(c.currentInstructions()[opPos])
	newInstruction := MakeInstruction(op, operand)
	c.replaceInstruction(opPos, newInstruction)
}

func (c *Compiler) replaceLastPopWithReturn() {
	lastPos := c.scopes[c.scopeIndex].lastInstruction.Position
	newInstruction := MakeInstruction(OP_RETURN_VALUE)
	c.replaceInstruction(lastPos, newInstruction)
	c.scopes[c.scopeIndex].lastInstruction.Opcode = OP_RETURN_VALUE
}

func (c *Compiler) enterScope() {
	c.scopes = append(c.scopes, CompilationScope{instructions: Instructions{}})
	c.scopeIndex++
	c.symbolTable = symtable.NewEnclosed(c.symbolTable)
}

func (c *Compiler) leaveScope() Instructions {
	ins := c.currentInstructions()
	c.scopes = c.scopes[:len(c.scopes)-1]
	c.scopeIndex--
	c.symbolTable = c.symbolTable.Outer
	return ins
}

func (c *Compiler) addConstant(obj object.Object) int {
	c.constants = append(c.constants, obj)
	return len(c.constants) - 1
}

func (c *Compiler) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// loadSymbol emits the opcode that pushes sym's value onto the stack,
// appropriate to whichever scope it was resolved in.
func (c *Compiler) loadSymbol(sym symtable.Symbol) {
	switch sym.Scope {
	case symtable.GlobalScope:
		c.emit(OP_GET_GLOBAL, sym.Index)
	case symtable.LocalScope:
		c.emit(OP_GET_LOCAL, sym.Index)
	case symtable.BuiltinScope:
		c.emit(OP_GET_BUILTIN, sym.Index)
	case symtable.FreeScope:
		c.emit(OP_GET_FREE, sym.Index)
	}
}

// --- Statement lowering -----------------------------------------------

func (c *Compiler) compileStatement(stmt ast.Statement) {
	if c.err != nil || stmt == nil {
		return
	}
	stmt.Accept(c)
}

func (c *Compiler) VisitLetStmt(node *ast.LetStmt) any {
	if c.err != nil {
		return nil
	}

	// The symbol's slot is reserved before compiling the value so a
	// `fn` literal can refer to itself for recursion, and so that in
	// general the slot exists before the defining expression runs (it
	// is only actually *written* once SetGlobal/SetLocal executes).
	symbol := c.symbolTable.Define(node.Name.Name)

	if fn, ok := node.Value.(*ast.FunctionLiteral); ok && fn.Name == "" {
		fn.Name = node.Name.Name
	}

	c.compileExpression(node.Value)
	if c.err != nil {
		return nil
	}

	if symbol.Scope == symtable.GlobalScope {
		c.emit(OP_SET_GLOBAL, symbol.Index)
	} else {
		c.emit(OP_SET_LOCAL, symbol.Index)
	}
	// SetGlobal/SetLocal consume the value; a let statement has no
	// expression result to leave on the stack, unlike an assignment
	// expression, so no trailing Pop is needed here.
	return nil
}

func (c *Compiler) VisitReturnStmt(node *ast.ReturnStmt) any {
	if c.err != nil {
		return nil
	}
	if node.Value != nil {
		c.compileExpression(node.Value)
		if c.err != nil {
			return nil
		}
		c.emit(OP_RETURN_VALUE)
	} else {
		c.emit(OP_RETURN)
	}
	return nil
}

func (c *Compiler) VisitExpressionStmt(node *ast.ExpressionStmt) any {
	if c.err != nil {
		return nil
	}
	c.compileExpression(node.Expression)
	if c.err != nil {
		return nil
	}
	c.emit(OP_POP)
	return nil
}

func (c *Compiler) VisitBlockStmt(node *ast.BlockStmt) any {
	for _, stmt := range node.Statements {
		c.compileStatement(stmt)
		if c.err != nil {
			return nil
		}
	}
	return nil
}

func (c *Compiler) VisitBreakStmt(node *ast.BreakStmt) any {
	if len(c.loops) == 0 {
		// A break outside any loop is lexically meaningless; the parser
		// does not enforce loop-nesting, so the compiler simply drops
		// it rather than adding a new error kind for it.
		return nil
	}
	pos := c.emit(OP_JUMP, 9999)
	loop := c.loops[len(c.loops)-1]
	loop.breaks = append(loop.breaks, pos)
	return nil
}

func (c *Compiler) VisitContinueStmt(node *ast.ContinueStmt) any {
	if len(c.loops) == 0 {
		return nil
	}
	pos := c.emit(OP_JUMP, 9999)
	loop := c.loops[len(c.loops)-1]
	loop.continues = append(loop.continues, pos)
	return nil
}

// --- Expression lowering -----------------------------------------------

func (c *Compiler) compileExpression(expr ast.Expression) {
	if c.err != nil || expr == nil {
		return
	}
	expr.Accept(c)
}

func (c *Compiler) VisitIntegerLiteral(node *ast.IntegerLiteral) any {
	idx := c.addConstant(&object.Integer{Value: node.Value})
	c.emit(OP_CONSTANT, idx)
	return nil
}

func (c *Compiler) VisitBooleanLiteral(node *ast.BooleanLiteral) any {
	if node.Value {
		c.emit(OP_TRUE)
	} else {
		c.emit(OP_FALSE)
	}
	return nil
}

func (c *Compiler) VisitStringLiteral(node *ast.StringLiteral) any {
	idx := c.addConstant(&object.String{Value: node.Value})
	c.emit(OP_CONSTANT, idx)
	return nil
}

func (c *Compiler) VisitIdentifier(node *ast.Identifier) any {
	symbol, ok := c.symbolTable.Resolve(node.Name)
	if !ok {
		// Silent undefined-becomes-null is deliberate: an unresolved
		// name compiles to Null rather than a compile error.
		c.emit(OP_NULL)
		return nil
	}
	c.loadSymbol(symbol)
	return nil
}

func (c *Compiler) VisitArrayLiteral(node *ast.ArrayLiteral) any {
	for _, elem := range node.Elements {
		c.compileExpression(elem)
		if c.err != nil {
			return nil
		}
	}
	c.emit(OP_ARRAY, len(node.Elements))
	return nil
}

func (c *Compiler) VisitPrefixExpression(node *ast.PrefixExpression) any {
	c.compileExpression(node.Right)
	if c.err != nil {
		return nil
	}
	switch node.Operator {
	case "!":
		c.emit(OP_BANG)
	case "-":
		c.emit(OP_MINUS)
	default:
		c.fail(newUnknownOperatorError(node.Operator))
	}
	return nil
}

func (c *Compiler) VisitInfixExpression(node *ast.InfixExpression) any {
	if node.Operator == "&&" || node.Operator == "||" {
		c.compileShortCircuit(node)
		return nil
	}

	// `<` is compiled by swapping operands and emitting `>`; `<=`/`>=`
	// need dedicated opcodes rather than the same swap-and-reuse trick,
	// since swapping would double the work already done compiling the
	// operands (no observable effect here, but it would for operands
	// with side effects, so the rule is applied uniformly instead).
	if node.Operator == "<" {
		c.compileExpression(node.Right)
		if c.err != nil {
			return nil
		}
		c.compileExpression(node.Left)
		if c.err != nil {
			return nil
		}
		c.emit(OP_GREATER_THAN)
		return nil
	}

	c.compileExpression(node.Left)
	if c.err != nil {
		return nil
	}
	c.compileExpression(node.Right)
	if c.err != nil {
		return nil
	}

	switch node.Operator {
	case "+":
		c.emit(OP_ADD)
	case "-":
		c.emit(OP_SUB)
	case "*":
		c.emit(OP_MUL)
	case "/":
		c.emit(OP_DIV)
	case "%":
		c.emit(OP_MOD)
	case "==":
		c.emit(OP_EQUAL)
	case "!=":
		c.emit(OP_NOT_EQUAL)
	case ">":
		c.emit(OP_GREATER_THAN)
	case "<=":
		c.emit(OP_LESS_EQUAL)
	case ">=":
		c.emit(OP_GREATER_EQUAL)
	default:
		c.fail(newUnknownOperatorError(node.Operator))
	}
	return nil
}

// compileShortCircuit lowers && and || so the right operand is only
// evaluated when its value could change the result.
func (c *Compiler) compileShortCircuit(node *ast.InfixExpression) {
	c.compileExpression(node.Left)
	if c.err != nil {
		return
	}

	if node.Operator == "&&" {
		// left && right: if left is falsy, skip right and leave left's
		// (falsy) value... but the contract is "leave a boolean on the
		// stack", so false/null collapses to OP_FALSE on the short path.
		jumpNotTruePos := c.emit(OP_JUMP_NOT_TRUE, 9999)
		c.compileExpression(node.Right)
		if c.err != nil {
			return
		}
		jumpEndPos := c.emit(OP_JUMP, 9999)
		falsePos := len(c.currentInstructions())
		c.changeOperand(jumpNotTruePos, falsePos)
		c.emit(OP_FALSE)
		endPos := len(c.currentInstructions())
		c.changeOperand(jumpEndPos, endPos)
		return
	}

	// left || right: if left is truthy, skip straight to OP_TRUE.
	jumpNotTruePos := c.emit(OP_JUMP_NOT_TRUE, 9999)
	truePos := c.emit(OP_TRUE)
	jumpEndPos := c.emit(OP_JUMP, 9999)
	rightPos := len(c.currentInstructions())
	c.changeOperand(jumpNotTruePos, rightPos)
	c.compileExpression(node.Right)
	if c.err != nil {
		return
	}
	endPos := len(c.currentInstructions())
	c.changeOperand(jumpEndPos, endPos)
	_ = truePos
}

func (c *Compiler) VisitPostfixExpression(node *ast.PostfixExpression) any {
	ident, ok := node.Left.(*ast.Identifier)
	if !ok {
		c.fail(newUnknownExpressionTypeError(node))
		return nil
	}

	delta := int64(1)
	if node.Operator == "--" {
		delta = -1
	}

	symbol, ok := c.symbolTable.Resolve(ident.Name)
	if !ok {
		c.emit(OP_NULL)
		return nil
	}

	// ident++ / ident-- desugars to `ident = ident +/- 1`, but as a
	// *postfix* it must leave ident's pre-increment value on the stack.
	c.loadSymbol(symbol)
	c.loadSymbol(symbol)
	idx := c.addConstant(&object.Integer{Value: delta})
	c.emit(OP_CONSTANT, idx)
	c.emit(OP_ADD)
	if symbol.Scope == symtable.GlobalScope {
		c.emit(OP_SET_GLOBAL, symbol.Index)
	} else {
		c.emit(OP_SET_LOCAL, symbol.Index)
	}
	return nil
}

func (c *Compiler) VisitIfExpression(node *ast.IfExpression) any {
	c.compileExpression(node.Condition)
	if c.err != nil {
		return nil
	}

	jumpNotTruePos := c.emit(OP_JUMP_NOT_TRUE, 9999)

	c.compileBlockAsExpression(node.Consequence)
	if c.err != nil {
		return nil
	}

	jumpPos := c.emit(OP_JUMP, 9999)

	afterConsequence := len(c.currentInstructions())
	c.changeOperand(jumpNotTruePos, afterConsequence)

	if node.Alternative == nil {
		c.emit(OP_NULL)
	} else {
		c.compileBlockAsExpression(node.Alternative)
		if c.err != nil {
			return nil
		}
	}

	afterAlternative := len(c.currentInstructions())
	c.changeOperand(jumpPos, afterAlternative)

	return nil
}

// compileBlockAsExpression compiles a block whose trailing Pop (from
// its last ExpressionStmt) must be removed, since an if-expression's
// branch needs to leave its value on the stack for the surrounding
// expression to consume.
func (c *Compiler) compileBlockAsExpression(block *ast.BlockStmt) {
	if len(block.Statements) == 0 {
		c.emit(OP_NULL)
		return
	}
	c.VisitBlockStmt(block)
	if c.err != nil {
		return
	}
	if c.lastInstructionIs(OP_POP) {
		c.removeLastPop()
	}
}

func (c *Compiler) pushLoop() *loopContext {
	loop := &loopContext{}
	c.loops = append(c.loops, loop)
	return loop
}

func (c *Compiler) popLoop() *loopContext {
	loop := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	return loop
}

func (c *Compiler) VisitWhileExpression(node *ast.WhileExpression) any {
	loopStart := len(c.currentInstructions())

	c.compileExpression(node.Condition)
	if c.err != nil {
		return nil
	}
	jumpNotTruePos := c.emit(OP_JUMP_NOT_TRUE, 9999)

	c.pushLoop()
	c.VisitBlockStmt(node.Body)
	loop := c.popLoop()
	if c.err != nil {
		return nil
	}
	if c.lastInstructionIs(OP_POP) {
		// while is a statement-flavored expression: its body's trailing
		// value is always discarded, and the expression itself
		// evaluates to null, emitted below.
	}

	c.emit(OP_JUMP, loopStart)

	loopEnd := len(c.currentInstructions())
	c.changeOperand(jumpNotTruePos, loopEnd)
	for _, pos := range loop.breaks {
		c.changeOperand(pos, loopEnd)
	}
	for _, pos := range loop.continues {
		c.changeOperand(pos, loopStart)
	}

	c.emit(OP_NULL)
	return nil
}

func (c *Compiler) VisitForExpression(node *ast.ForExpression) any {
	if node.Init != nil {
		c.compileStatement(node.Init)
		if c.err != nil {
			return nil
		}
	}

	condPos := len(c.currentInstructions())
	if node.Condition != nil {
		c.compileExpression(node.Condition)
	} else {
		c.emit(OP_TRUE)
	}
	if c.err != nil {
		return nil
	}
	jumpNotTruePos := c.emit(OP_JUMP_NOT_TRUE, 9999)

	c.pushLoop()
	c.VisitBlockStmt(node.Body)
	loop := c.popLoop()
	if c.err != nil {
		return nil
	}

	postPos := len(c.currentInstructions())
	for _, pos := range loop.continues {
		c.changeOperand(pos, postPos)
	}

	if node.Post != nil {
		c.compileStatement(node.Post)
		if c.err != nil {
			return nil
		}
	}
	c.emit(OP_JUMP, condPos)

	afterLoop := len(c.currentInstructions())
	c.changeOperand(jumpNotTruePos, afterLoop)
	for _, pos := range loop.breaks {
		c.changeOperand(pos, afterLoop)
	}

	c.emit(OP_NULL)
	return nil
}

func (c *Compiler) VisitFunctionLiteral(node *ast.FunctionLiteral) any {
	c.enterScope()

	for _, param := range node.Parameters {
		c.symbolTable.Define(param.Name)
	}

	if node.Name != "" {
		// The function's own name takes the local slot after its
		// parameters (arguments occupy slots 0..n-1) and is filled from
		// OP_CURRENT_CLOSURE on entry, so self-reference resolves inside
		// its own scope without being treated as a captured free
		// variable of the *outer* scope.
		self := c.symbolTable.Define(node.Name)
		c.emit(OP_CURRENT_CLOSURE)
		c.emit(OP_SET_LOCAL, self.Index)
	}

	c.VisitBlockStmt(node.Body)
	if c.err != nil {
		c.leaveScope()
		return nil
	}

	if c.lastInstructionIs(OP_POP) {
		c.replaceLastPopWithReturn()
	}
	if !c.lastInstructionIs(OP_RETURN_VALUE) {
		c.emit(OP_RETURN)
	}

	freeSymbols := c.symbolTable.FreeSymbols
	numLocals := c.symbolTable.NumDefinitions()
	instructions := c.leaveScope()

	for _, sym := range freeSymbols {
		c.loadSymbol(sym)
	}

	compiledFn := &object.CompiledFunction{
		Instructions:  []byte(instructions),
		NumLocals:     numLocals,
		NumParameters: len(node.Parameters),
	}
	idx := c.addConstant(compiledFn)

	if len(freeSymbols) > 0 {
		c.emit(OP_CLOSURE, idx, len(freeSymbols))
	} else {
		c.emit(OP_CLOSURE, idx, 0)
	}
	return nil
}

func (c *Compiler) VisitCallExpression(node *ast.CallExpression) any {
	c.compileExpression(node.Function)
	if c.err != nil {
		return nil
	}
	for _, arg := range node.Arguments {
		c.compileExpression(arg)
		if c.err != nil {
			return nil
		}
	}
	c.emit(OP_CALL, len(node.Arguments))
	return nil
}

func (c *Compiler) VisitIndexExpression(node *ast.IndexExpression) any {
	c.compileExpression(node.Left)
	if c.err != nil {
		return nil
	}
	c.compileExpression(node.Index)
	if c.err != nil {
		return nil
	}
	c.emit(OP_INDEX)
	return nil
}

func (c *Compiler) VisitSliceExpression(node *ast.SliceExpression) any {
	c.compileExpression(node.Left)
	if c.err != nil {
		return nil
	}

	if node.Start != nil {
		c.compileExpression(node.Start)
	} else {
		idx := c.addConstant(&object.Integer{Value: 0})
		c.emit(OP_CONSTANT, idx)
	}
	if c.err != nil {
		return nil
	}

	if node.End != nil {
		c.compileExpression(node.End)
	} else {
		// The "length" sentinel: the VM treats a negative end as
		// "through the end of the collection" so the compiler needn't
		// know the runtime length.
		idx := c.addConstant(&object.Integer{Value: -1})
		c.emit(OP_CONSTANT, idx)
	}
	if c.err != nil {
		return nil
	}

	c.emit(OP_SLICE)
	return nil
}

func (c *Compiler) VisitAssignExpression(node *ast.AssignExpression) any {
	switch target := node.Target.(type) {
	case *ast.Identifier:
		symbol, ok := c.symbolTable.Resolve(target.Name)
		if !ok {
			symbol = c.symbolTable.Define(target.Name)
		}
		c.compileExpression(node.Value)
		if c.err != nil {
			return nil
		}
		switch symbol.Scope {
		case symtable.GlobalScope:
			c.emit(OP_SET_GLOBAL, symbol.Index)
		case symtable.LocalScope:
			c.emit(OP_SET_LOCAL, symbol.Index)
		default:
			c.fail(newUnknownExpressionTypeError(node))
			return nil
		}
		// SetGlobal/SetLocal consumed the value; re-push it so the
		// assignment expression itself yields a value (the enclosing
		// ExpressionStmt, if any, is the one that pops it).
		c.loadSymbol(symbol)

	case *ast.IndexExpression:
		c.compileExpression(target.Left)
		if c.err != nil {
			return nil
		}
		c.compileExpression(target.Index)
		if c.err != nil {
			return nil
		}
		c.compileExpression(node.Value)
		if c.err != nil {
			return nil
		}
		c.emit(OP_SET_INDEX)

	default:
		c.fail(newUnknownExpressionTypeError(node))
	}
	return nil
}
