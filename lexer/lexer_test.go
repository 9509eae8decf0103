package lexer

import (
	"nilan/token"
	"testing"
)

func typesOf(tokens []token.Token) []token.TokenType {
	types := make([]token.TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.TokenType
	}
	return types
}

func assertTypes(t *testing.T, got []token.Token, want []token.TokenType) {
	t.Helper()
	gotTypes := typesOf(got)
	if len(gotTypes) != len(want) {
		t.Fatalf("token count = %d, want %d (%v)", len(gotTypes), len(want), gotTypes)
	}
	for i := range want {
		if gotTypes[i] != want[i] {
			t.Errorf("token[%d] = %v, want %v", i, gotTypes[i], want[i])
		}
	}
}

func TestOperatorsSuccess(t *testing.T) {
	lex := New("==/=*+>-<!=<=>=!! && || % ++ --")
	got := lex.Scan()
	want := []token.TokenType{
		token.EQUAL_EQUAL, token.DIV, token.ASSIGN, token.MULT, token.ADD,
		token.LARGER, token.SUB, token.LESS, token.NOT_EQUAL, token.LESS_EQUAL,
		token.LARGER_EQUAL, token.BANG, token.BANG,
		token.AND_AND, token.OR_OR, token.MOD, token.INCREMENT, token.DECREMENT,
		token.EOF,
	}
	assertTypes(t, got, want)
}

func TestScanSuccess(t *testing.T) {
	lex := New("(){}[]**;+!=<=,:")
	got := lex.Scan()
	want := []token.TokenType{
		token.LPA, token.RPA, token.LCUR, token.RCUR, token.LBRACKET, token.RBRACKET,
		token.MULT, token.MULT, token.SEMICOLON, token.ADD, token.NOT_EQUAL,
		token.LESS_EQUAL, token.COMMA, token.COLON, token.EOF,
	}
	assertTypes(t, got, want)
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	lex := New("let five = 5; fn add(x, y) { return x + y; } if (true) { } else { while (false) { } } for (;;) { break; continue; }")
	got := lex.Scan()
	want := []token.TokenType{
		token.LET, token.IDENTIFIER, token.ASSIGN, token.INT, token.SEMICOLON,
		token.FUNC, token.IDENTIFIER, token.LPA, token.IDENTIFIER, token.COMMA, token.IDENTIFIER, token.RPA,
		token.LCUR, token.RETURN, token.IDENTIFIER, token.ADD, token.IDENTIFIER, token.SEMICOLON, token.RCUR,
		token.IF, token.LPA, token.TRUE, token.RPA, token.LCUR, token.RCUR,
		token.ELSE, token.LCUR, token.WHILE, token.LPA, token.FALSE, token.RPA, token.LCUR, token.RCUR, token.RCUR,
		token.FOR, token.LPA, token.SEMICOLON, token.SEMICOLON, token.RPA, token.LCUR,
		token.BREAK, token.SEMICOLON, token.CONTINUE, token.SEMICOLON, token.RCUR,
		token.EOF,
	}
	assertTypes(t, got, want)
}

func TestStringLiteralWithEscape(t *testing.T) {
	lex := New(`"hello \"world\""`)
	got := lex.Scan()
	if len(got) != 2 {
		t.Fatalf("token count = %d, want 2", len(got))
	}
	if got[0].TokenType != token.STRING {
		t.Fatalf("token type = %v, want STRING", got[0].TokenType)
	}
	want := `hello "world"`
	if got[0].Literal != want {
		t.Errorf("literal = %q, want %q", got[0].Literal, want)
	}
}

func TestUnterminatedStringIsIllegal(t *testing.T) {
	lex := New(`"never closed`)
	got := lex.Scan()
	if got[0].TokenType != token.ILLEGAL {
		t.Fatalf("token type = %v, want ILLEGAL", got[0].TokenType)
	}
}

func TestIllegalCharacterContinuesScanning(t *testing.T) {
	lex := New("1 @ 2")
	got := lex.Scan()
	want := []token.TokenType{token.INT, token.ILLEGAL, token.INT, token.EOF}
	assertTypes(t, got, want)
}

func TestLineComment(t *testing.T) {
	lex := New("1 // this is a comment\n2")
	got := lex.Scan()
	want := []token.TokenType{token.INT, token.INT, token.EOF}
	assertTypes(t, got, want)
	if got[1].Line != 1 {
		t.Errorf("second INT line = %d, want 1", got[1].Line)
	}
}

func TestCRLFCountsAsOneNewline(t *testing.T) {
	lex := New("1\r\n2\r\n3")
	got := lex.Scan()
	if got[1].Line != 1 || got[2].Line != 2 {
		t.Errorf("lines = %d, %d; want 1, 2", got[1].Line, got[2].Line)
	}
}

func TestIntegerLiteralValue(t *testing.T) {
	lex := New("12345")
	got := lex.Scan()
	if got[0].Literal != int64(12345) {
		t.Errorf("literal = %v, want 12345", got[0].Literal)
	}
}
