package parser

import (
	"nilan/ast"
	"nilan/lexer"
	"testing"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	program, errs := p.Parse()
	if len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	return program
}

func TestOperatorPrecedenceRoundTrip(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a + b * c", "(a + (b * c))"},
		{"-a * b", "((-a) * b)"},
		{"!-a", "(!(-a))"},
		{"a + b + c", "((a + b) + c)"},
		{"a + b - c", "((a + b) - c)"},
		{"a * b * c", "((a * b) * c)"},
		{"a * b / c", "((a * b) / c)"},
		{"a + b / c", "(a + (b / c))"},
		{"a + b * c + d / e - f", "(((a + (b * c)) + (d / e)) - f)"},
		{"5 > 4 == 3 < 4", "((5 > 4) == (3 < 4))"},
		{"3 + 4 * 5 == 3 * 1 + 4 * 5", "((3 + (4 * 5)) == ((3 * 1) + (4 * 5)))"},
		{"1 + (2 + 3) + 4", "((1 + (2 + 3)) + 4)"},
		{"(5 + 5) * 2", "((5 + 5) * 2)"},
		{"-(5 + 5)", "(-(5 + 5))"},
		{"a && b || c", "((a && b) || c)"},
		{"a + b == c && d", "(((a + b) == c) && d)"},
	}

	for _, tt := range tests {
		program := parseProgram(t, tt.input+";")
		if len(program.Statements) != 1 {
			t.Fatalf("input %q: expected 1 statement, got %d", tt.input, len(program.Statements))
		}
		stmt, ok := program.Statements[0].(*ast.ExpressionStmt)
		if !ok {
			t.Fatalf("input %q: expected ExpressionStmt, got %T", tt.input, program.Statements[0])
		}
		got := stmt.Expression.String()
		if got != tt.want {
			t.Errorf("input %q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLetStatement(t *testing.T) {
	program := parseProgram(t, "let five = 5;")
	stmt, ok := program.Statements[0].(*ast.LetStmt)
	if !ok {
		t.Fatalf("expected LetStmt, got %T", program.Statements[0])
	}
	if stmt.Name.Name != "five" {
		t.Errorf("name = %q, want five", stmt.Name.Name)
	}
	lit, ok := stmt.Value.(*ast.IntegerLiteral)
	if !ok || lit.Value != 5 {
		t.Errorf("value = %v, want IntegerLiteral(5)", stmt.Value)
	}
}

func TestLetFunctionBackfillsName(t *testing.T) {
	program := parseProgram(t, "let fact = fn(n) { return n; };")
	stmt := program.Statements[0].(*ast.LetStmt)
	fn := stmt.Value.(*ast.FunctionLiteral)
	if fn.Name != "fact" {
		t.Errorf("function name = %q, want fact", fn.Name)
	}
}

func TestIfElseExpression(t *testing.T) {
	program := parseProgram(t, "if (x < y) { x } else { y }")
	stmt := program.Statements[0].(*ast.ExpressionStmt)
	ifExpr, ok := stmt.Expression.(*ast.IfExpression)
	if !ok {
		t.Fatalf("expected IfExpression, got %T", stmt.Expression)
	}
	if len(ifExpr.Consequence.Statements) != 1 {
		t.Fatalf("consequence statement count = %d, want 1", len(ifExpr.Consequence.Statements))
	}
	if ifExpr.Alternative == nil || len(ifExpr.Alternative.Statements) != 1 {
		t.Fatalf("expected alternative with 1 statement")
	}
}

func TestElseIfChain(t *testing.T) {
	program := parseProgram(t, "if (a) { 1 } else if (b) { 2 } else { 3 }")
	stmt := program.Statements[0].(*ast.ExpressionStmt)
	outer := stmt.Expression.(*ast.IfExpression)
	if outer.Alternative == nil || len(outer.Alternative.Statements) != 1 {
		t.Fatalf("expected nested else-if wrapped in a single-statement block")
	}
	nestedStmt := outer.Alternative.Statements[0].(*ast.ExpressionStmt)
	if _, ok := nestedStmt.Expression.(*ast.IfExpression); !ok {
		t.Fatalf("expected nested IfExpression, got %T", nestedStmt.Expression)
	}
}

func TestForStatementHeader(t *testing.T) {
	program := parseProgram(t, "for (let i = 0; i < 5; i = i + 1) { i; }")
	stmt := program.Statements[0].(*ast.ExpressionStmt)
	forExpr, ok := stmt.Expression.(*ast.ForExpression)
	if !ok {
		t.Fatalf("expected ForExpression, got %T", stmt.Expression)
	}
	if forExpr.Init == nil || forExpr.Condition == nil || forExpr.Post == nil {
		t.Fatalf("expected all three for-header clauses to be populated")
	}
}

func TestOmittedForClauses(t *testing.T) {
	program := parseProgram(t, "for (;;) { break; }")
	stmt := program.Statements[0].(*ast.ExpressionStmt)
	forExpr := stmt.Expression.(*ast.ForExpression)
	if forExpr.Init != nil || forExpr.Condition != nil || forExpr.Post != nil {
		t.Fatalf("expected all clauses to be nil when omitted")
	}
}

func TestCallExpressionArguments(t *testing.T) {
	program := parseProgram(t, "add(1, 2 * 3, 4 + 5);")
	stmt := program.Statements[0].(*ast.ExpressionStmt)
	call, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected CallExpression, got %T", stmt.Expression)
	}
	if len(call.Arguments) != 3 {
		t.Fatalf("argument count = %d, want 3", len(call.Arguments))
	}
}

func TestIndexAndSliceExpressions(t *testing.T) {
	program := parseProgram(t, "a[1]; a[1:2]; a[:2]; a[1:];")
	if len(program.Statements) != 4 {
		t.Fatalf("statement count = %d, want 4", len(program.Statements))
	}
	if _, ok := program.Statements[0].(*ast.ExpressionStmt).Expression.(*ast.IndexExpression); !ok {
		t.Errorf("statement 0: expected IndexExpression")
	}
	for i := 1; i <= 3; i++ {
		if _, ok := program.Statements[i].(*ast.ExpressionStmt).Expression.(*ast.SliceExpression); !ok {
			t.Errorf("statement %d: expected SliceExpression, got %T", i, program.Statements[i].(*ast.ExpressionStmt).Expression)
		}
	}
}

func TestAssignExpressionIsRightAssociative(t *testing.T) {
	program := parseProgram(t, "a = b = 3;")
	stmt := program.Statements[0].(*ast.ExpressionStmt)
	outer, ok := stmt.Expression.(*ast.AssignExpression)
	if !ok {
		t.Fatalf("expected AssignExpression, got %T", stmt.Expression)
	}
	if _, ok := outer.Value.(*ast.AssignExpression); !ok {
		t.Fatalf("expected nested AssignExpression on the right, got %T", outer.Value)
	}
}

func TestIndexAssignExpression(t *testing.T) {
	program := parseProgram(t, "a[0] = 5;")
	stmt := program.Statements[0].(*ast.ExpressionStmt)
	assign, ok := stmt.Expression.(*ast.AssignExpression)
	if !ok {
		t.Fatalf("expected AssignExpression, got %T", stmt.Expression)
	}
	if _, ok := assign.Target.(*ast.IndexExpression); !ok {
		t.Fatalf("expected IndexExpression target, got %T", assign.Target)
	}
}

func TestPostfixIncrementDecrement(t *testing.T) {
	program := parseProgram(t, "i++; i--;")
	incr := program.Statements[0].(*ast.ExpressionStmt).Expression.(*ast.PostfixExpression)
	if incr.Operator != "++" {
		t.Errorf("operator = %q, want ++", incr.Operator)
	}
	decr := program.Statements[1].(*ast.ExpressionStmt).Expression.(*ast.PostfixExpression)
	if decr.Operator != "--" {
		t.Errorf("operator = %q, want --", decr.Operator)
	}
}

func TestSyntaxErrorRecoveryContinuesParsing(t *testing.T) {
	p := New(lexer.New("let = 5; let x = 10;"))
	program, errs := p.Parse()
	if len(errs) == 0 {
		t.Fatalf("expected at least one syntax error")
	}
	found := false
	for _, s := range program.Statements {
		if let, ok := s.(*ast.LetStmt); ok && let.Name.Name == "x" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected recovery to still parse 'let x = 10;'")
	}
}

func TestArrayLiteral(t *testing.T) {
	program := parseProgram(t, "[1, 2 * 2, 3 + 3]")
	stmt := program.Statements[0].(*ast.ExpressionStmt)
	arr, ok := stmt.Expression.(*ast.ArrayLiteral)
	if !ok {
		t.Fatalf("expected ArrayLiteral, got %T", stmt.Expression)
	}
	if len(arr.Elements) != 3 {
		t.Fatalf("element count = %d, want 3", len(arr.Elements))
	}
}

func TestBreakAndContinueInsideWhile(t *testing.T) {
	program := parseProgram(t, "while (true) { break; continue; }")
	stmt := program.Statements[0].(*ast.ExpressionStmt)
	while, ok := stmt.Expression.(*ast.WhileExpression)
	if !ok {
		t.Fatalf("expected WhileExpression, got %T", stmt.Expression)
	}
	if len(while.Body.Statements) != 2 {
		t.Fatalf("body statement count = %d, want 2", len(while.Body.Statements))
	}
	if _, ok := while.Body.Statements[0].(*ast.BreakStmt); !ok {
		t.Errorf("statement 0: expected BreakStmt")
	}
	if _, ok := while.Body.Statements[1].(*ast.ContinueStmt); !ok {
		t.Errorf("statement 1: expected ContinueStmt")
	}
}
