// Package symtable tracks identifier bindings and their scope during
// compilation, mirroring the lexical nesting of function literals.
package symtable

// Scope tags where a symbol's value lives at runtime.
type Scope string

const (
	GlobalScope  Scope = "GLOBAL"
	LocalScope   Scope = "LOCAL"
	BuiltinScope Scope = "BUILTIN"
	FreeScope    Scope = "FREE"
)

// Symbol is a resolved binding: its scope and the slot index to access
// it at runtime (a globals-array index, a stack-relative local slot, or
// a builtin-table index).
type Symbol struct {
	Name  string
	Scope Scope
	Index int
}

// SymbolTable maps names to symbols within one lexical scope, chained to
// its enclosing scope via Outer.
type SymbolTable struct {
	Outer *SymbolTable

	// FreeSymbols records, in discovery order, the outer-scope symbols
	// this function body closes over; its index doubles as the operand
	// to OpGetFree and as the free-variable index a Closure opcode reads
	// from the enclosing frame at closure-creation time.
	FreeSymbols []Symbol

	store          map[string]Symbol
	numDefinitions int
}

// New creates a top-level symbol table with no enclosing scope; symbols
// defined in it are Global.
func New() *SymbolTable {
	return &SymbolTable{store: make(map[string]Symbol)}
}

// NewEnclosed creates a symbol table for a nested scope (a function
// body), whose locals resolve against it before falling back to outer.
func NewEnclosed(outer *SymbolTable) *SymbolTable {
	st := New()
	st.Outer = outer
	return st
}

// Define assigns the next index in the current scope and tags it Global
// iff this table has no outer scope, else Local.
func (st *SymbolTable) Define(name string) Symbol {
	symbol := Symbol{Name: name, Index: st.numDefinitions}
	if st.Outer == nil {
		symbol.Scope = GlobalScope
	} else {
		symbol.Scope = LocalScope
	}
	st.store[name] = symbol
	st.numDefinitions++
	return symbol
}

// DefineBuiltin registers a fixed-index builtin function name, visible
// from every scope since builtin resolution falls through to the
// outermost table via the normal Outer walk... except builtins have no
// outer table of their own: they are defined directly on the top-level
// table so Resolve finds them like any other name once the walk reaches
// global scope.
func (st *SymbolTable) DefineBuiltin(index int, name string) Symbol {
	symbol := Symbol{Name: name, Index: index, Scope: BuiltinScope}
	st.store[name] = symbol
	return symbol
}

// Resolve walks the Outer chain looking for name. A name found in an
// enclosing *function* scope (Local or already-Free there) is not
// returned as-is: it is recorded as a free variable of every
// intermediate scope between here and its definition, so the compiler
// can emit a chain of OpGetFree/OpClosure instructions that thread the
// captured value down into this function's closure. Names resolved at
// Global or Builtin scope need no such threading, since those are
// reachable directly from any frame.
func (st *SymbolTable) Resolve(name string) (Symbol, bool) {
	symbol, ok := st.store[name]
	if ok {
		return symbol, true
	}
	if st.Outer == nil {
		return Symbol{}, false
	}

	outerSymbol, ok := st.Outer.Resolve(name)
	if !ok {
		return Symbol{}, false
	}
	if outerSymbol.Scope == GlobalScope || outerSymbol.Scope == BuiltinScope {
		return outerSymbol, true
	}
	return st.defineFree(outerSymbol), true
}

// defineFree records outerSymbol as captured and returns the local
// FreeScope symbol that replaces it in this scope's own bindings.
func (st *SymbolTable) defineFree(outerSymbol Symbol) Symbol {
	st.FreeSymbols = append(st.FreeSymbols, outerSymbol)
	symbol := Symbol{Name: outerSymbol.Name, Index: len(st.FreeSymbols) - 1, Scope: FreeScope}
	st.store[outerSymbol.Name] = symbol
	return symbol
}

// NumDefinitions reports the count of locals (or globals, at the top
// level) defined directly in this scope.
func (st *SymbolTable) NumDefinitions() int {
	return st.numDefinitions
}
