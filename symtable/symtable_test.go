package symtable

import "testing"

func TestDefineGlobalAndLocal(t *testing.T) {
	global := New()
	a := global.Define("a")
	if a.Scope != GlobalScope || a.Index != 0 {
		t.Fatalf("a = %+v, want {GLOBAL 0}", a)
	}
	b := global.Define("b")
	if b.Scope != GlobalScope || b.Index != 1 {
		t.Fatalf("b = %+v, want {GLOBAL 1}", b)
	}

	local := NewEnclosed(global)
	c := local.Define("c")
	if c.Scope != LocalScope || c.Index != 0 {
		t.Fatalf("c = %+v, want {LOCAL 0}", c)
	}
}

func TestResolveGlobal(t *testing.T) {
	global := New()
	global.Define("a")
	global.Define("b")

	sym, ok := global.Resolve("a")
	if !ok || sym.Scope != GlobalScope || sym.Index != 0 {
		t.Fatalf("resolve a = %+v, ok=%v", sym, ok)
	}

	if _, ok := global.Resolve("missing"); ok {
		t.Fatalf("expected missing to not resolve")
	}
}

func TestResolveLocalFallsThroughToGlobal(t *testing.T) {
	global := New()
	global.Define("a")

	local := NewEnclosed(global)
	local.Define("b")

	symA, ok := local.Resolve("a")
	if !ok || symA.Scope != GlobalScope {
		t.Fatalf("resolve a = %+v, ok=%v", symA, ok)
	}
	symB, ok := local.Resolve("b")
	if !ok || symB.Scope != LocalScope {
		t.Fatalf("resolve b = %+v, ok=%v", symB, ok)
	}
}

func TestResolveBuiltin(t *testing.T) {
	global := New()
	global.DefineBuiltin(0, "len")

	local := NewEnclosed(global)
	nested := NewEnclosed(local)

	sym, ok := nested.Resolve("len")
	if !ok || sym.Scope != BuiltinScope || sym.Index != 0 {
		t.Fatalf("resolve len = %+v, ok=%v", sym, ok)
	}
}

func TestResolveFreeVariables(t *testing.T) {
	global := New()
	global.Define("a")

	firstLocal := NewEnclosed(global)
	firstLocal.Define("b")

	secondLocal := NewEnclosed(firstLocal)
	secondLocal.Define("c")
	secondLocal.Define("d")

	symB, ok := secondLocal.Resolve("b")
	if !ok || symB.Scope != FreeScope || symB.Index != 0 {
		t.Fatalf("resolve b = %+v, ok=%v, want FreeScope index 0", symB, ok)
	}
	if len(secondLocal.FreeSymbols) != 1 || secondLocal.FreeSymbols[0].Name != "b" {
		t.Fatalf("FreeSymbols = %+v, want [b]", secondLocal.FreeSymbols)
	}

	symA, ok := secondLocal.Resolve("a")
	if !ok || symA.Scope != GlobalScope {
		t.Fatalf("resolve a = %+v, want GlobalScope (global names aren't captured as free)", symA)
	}

	symC, ok := secondLocal.Resolve("c")
	if !ok || symC.Scope != LocalScope || symC.Index != 0 {
		t.Fatalf("resolve c = %+v, want local index 0", symC)
	}
}

func TestUnresolvableFreeVariable(t *testing.T) {
	global := New()
	local := NewEnclosed(global)
	if _, ok := local.Resolve("nope"); ok {
		t.Fatalf("expected 'nope' to be unresolvable")
	}
}

func TestNumDefinitions(t *testing.T) {
	global := New()
	global.Define("a")
	global.Define("b")
	if global.NumDefinitions() != 2 {
		t.Fatalf("NumDefinitions = %d, want 2", global.NumDefinitions())
	}
}
