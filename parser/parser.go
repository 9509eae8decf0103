// Package parser turns a token stream into an AST. Statements are parsed
// by recursive descent; expressions are parsed with a Pratt
// (precedence-climbing) scheme driven by per-token prefix and infix
// parse functions.
package parser

import (
	"fmt"
	"nilan/ast"
	"nilan/lexer"
	"nilan/token"
	"strconv"
)

// Operator precedence levels, lowest to highest.
const (
	LOWEST int = iota
	ASSIGN
	OR
	AND
	EQUALS
	LESSGREATER
	SUM
	PRODUCT
	PREFIX
	CALLINDEX
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:        ASSIGN,
	token.OR_OR:         OR,
	token.AND_AND:       AND,
	token.EQUAL_EQUAL:   EQUALS,
	token.NOT_EQUAL:     EQUALS,
	token.LESS:          LESSGREATER,
	token.LESS_EQUAL:    LESSGREATER,
	token.LARGER:        LESSGREATER,
	token.LARGER_EQUAL:  LESSGREATER,
	token.ADD:           SUM,
	token.SUB:           SUM,
	token.MULT:          PRODUCT,
	token.DIV:           PRODUCT,
	token.MOD:           PRODUCT,
	token.LPA:           CALLINDEX,
	token.LBRACKET:      CALLINDEX,
	token.INCREMENT:     CALLINDEX,
	token.DECREMENT:     CALLINDEX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser consumes a token stream produced by the lexer and builds an
// AST, collecting diagnostics along the way rather than aborting on the
// first one.
type Parser struct {
	tokens   []token.Token
	position int
	errors   []error

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

// New constructs a Parser over the given lexer's full token stream.
func New(lex *lexer.Lexer) *Parser {
	p := &Parser{tokens: lex.Scan()}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{}
	p.infixParseFns = map[token.TokenType]infixParseFn{}

	p.registerPrefix(token.IDENTIFIER, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(token.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.SUB, p.parsePrefixExpression)
	p.registerPrefix(token.LPA, p.parseGroupedExpression)
	p.registerPrefix(token.IF, p.parseIfExpression)
	p.registerPrefix(token.WHILE, p.parseWhileExpression)
	p.registerPrefix(token.FOR, p.parseForExpression)
	p.registerPrefix(token.FUNC, p.parseFunctionLiteral)
	p.registerPrefix(token.LBRACKET, p.parseArrayLiteral)

	p.registerInfix(token.ADD, p.parseInfixExpression)
	p.registerInfix(token.SUB, p.parseInfixExpression)
	p.registerInfix(token.MULT, p.parseInfixExpression)
	p.registerInfix(token.DIV, p.parseInfixExpression)
	p.registerInfix(token.MOD, p.parseInfixExpression)
	p.registerInfix(token.EQUAL_EQUAL, p.parseInfixExpression)
	p.registerInfix(token.NOT_EQUAL, p.parseInfixExpression)
	p.registerInfix(token.LESS, p.parseInfixExpression)
	p.registerInfix(token.LESS_EQUAL, p.parseInfixExpression)
	p.registerInfix(token.LARGER, p.parseInfixExpression)
	p.registerInfix(token.LARGER_EQUAL, p.parseInfixExpression)
	p.registerInfix(token.AND_AND, p.parseInfixExpression)
	p.registerInfix(token.OR_OR, p.parseInfixExpression)
	p.registerInfix(token.LPA, p.parseCallExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexOrSliceExpression)
	p.registerInfix(token.ASSIGN, p.parseAssignExpression)
	p.registerInfix(token.INCREMENT, p.parsePostfixExpression)
	p.registerInfix(token.DECREMENT, p.parsePostfixExpression)

	return p
}

func (p *Parser) registerPrefix(t token.TokenType, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.TokenType, fn infixParseFn)   { p.infixParseFns[t] = fn }

func (p *Parser) current() token.Token {
	return p.tokens[p.position]
}

func (p *Parser) advance() token.Token {
	tok := p.current()
	if p.position < len(p.tokens)-1 {
		p.position++
	}
	return tok
}

func (p *Parser) currentIs(t token.TokenType) bool { return p.current().TokenType == t }

// expect advances past the current token if it matches t, else records a
// diagnostic and leaves the cursor in place.
func (p *Parser) expect(t token.TokenType) bool {
	if p.currentIs(t) {
		p.advance()
		return true
	}
	p.addError(fmt.Sprintf("expected next token to be %s, got %s instead", t, p.current().TokenType))
	return false
}

func (p *Parser) addError(msg string) {
	tok := p.current()
	p.errors = append(p.errors, CreateSyntaxError(tok.Line, tok.Column, msg))
}

func (p *Parser) currentPrecedence() int {
	if prec, ok := precedences[p.current().TokenType]; ok {
		return prec
	}
	return LOWEST
}

// Parse consumes the full token stream and returns the parsed program
// together with any diagnostics collected along the way. A non-empty
// error slice is fatal to downstream stages, but the returned program is
// still as complete as best-effort single-token recovery could make it.
func (p *Parser) Parse() (*ast.Program, []error) {
	program := &ast.Program{}

	for !p.currentIs(token.EOF) {
		before := p.position
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		if p.position == before {
			// parseStatement made no progress; force recovery so Parse
			// cannot loop forever on an unrecognized token.
			p.advance()
		}
	}

	return program, p.errors
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.current().TokenType {
	case token.LET:
		return p.parseLetStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK:
		return p.parseBreakStmt()
	case token.CONTINUE:
		return p.parseContinueStmt()
	default:
		return p.parseExpressionStmt()
	}
}

func (p *Parser) parseLetStmt() ast.Statement {
	tok := p.advance() // consume 'let'

	if !p.currentIs(token.IDENTIFIER) {
		p.addError(fmt.Sprintf("expected identifier after 'let', got %s instead", p.current().TokenType))
		return nil
	}
	nameTok := p.advance()
	name := &ast.Identifier{Token: nameTok, Name: nameTok.Lexeme}

	if !p.expect(token.ASSIGN) {
		return nil
	}

	value := p.parseExpression(LOWEST)
	if fn, ok := value.(*ast.FunctionLiteral); ok {
		fn.Name = name.Name
	}

	if p.currentIs(token.SEMICOLON) {
		p.advance()
	}

	return &ast.LetStmt{Token: tok, Name: name, Value: value}
}

func (p *Parser) parseReturnStmt() ast.Statement {
	tok := p.advance() // consume 'return'

	var value ast.Expression
	if !p.currentIs(token.SEMICOLON) && !p.currentIs(token.RCUR) && !p.currentIs(token.EOF) {
		value = p.parseExpression(LOWEST)
	}

	if p.currentIs(token.SEMICOLON) {
		p.advance()
	}

	return &ast.ReturnStmt{Token: tok, Value: value}
}

func (p *Parser) parseBreakStmt() ast.Statement {
	tok := p.advance()
	if p.currentIs(token.SEMICOLON) {
		p.advance()
	}
	return &ast.BreakStmt{Token: tok}
}

func (p *Parser) parseContinueStmt() ast.Statement {
	tok := p.advance()
	if p.currentIs(token.SEMICOLON) {
		p.advance()
	}
	return &ast.ContinueStmt{Token: tok}
}

func (p *Parser) parseExpressionStmt() ast.Statement {
	tok := p.current()
	expr := p.parseExpression(LOWEST)
	if p.currentIs(token.SEMICOLON) {
		p.advance()
	}
	return &ast.ExpressionStmt{Token: tok, Expression: expr}
}

func (p *Parser) parseBlockStmt() *ast.BlockStmt {
	tok := p.current()
	block := &ast.BlockStmt{Token: tok}

	if !p.expect(token.LCUR) {
		return block
	}

	for !p.currentIs(token.RCUR) && !p.currentIs(token.EOF) {
		before := p.position
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if p.position == before {
			p.advance()
		}
	}

	p.expect(token.RCUR)
	return block
}

// parseExpression is the Pratt loop: find a prefix rule for the current
// token, then repeatedly fold in infix operators whose precedence
// exceeds minPrecedence.
func (p *Parser) parseExpression(minPrecedence int) ast.Expression {
	prefix, ok := p.prefixParseFns[p.current().TokenType]
	if !ok {
		p.addError(fmt.Sprintf("no prefix parse function for %s found", p.current().TokenType))
		return nil
	}
	left := prefix()

	for !p.currentIs(token.SEMICOLON) && minPrecedence < p.currentPrecedence() {
		infix, ok := p.infixParseFns[p.current().TokenType]
		if !ok {
			return left
		}
		left = infix(left)
	}

	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	tok := p.advance()
	return &ast.Identifier{Token: tok, Name: tok.Lexeme}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	tok := p.advance()
	value, ok := tok.Literal.(int64)
	if !ok {
		parsed, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			p.addError(fmt.Sprintf("could not parse %q as integer", tok.Lexeme))
			return nil
		}
		value = parsed
	}
	return &ast.IntegerLiteral{Token: tok, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	tok := p.advance()
	value, _ := tok.Literal.(string)
	return &ast.StringLiteral{Token: tok, Value: value}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	tok := p.advance()
	return &ast.BooleanLiteral{Token: tok, Value: tok.TokenType == token.TRUE}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	tok := p.advance()
	expr := &ast.PrefixExpression{Token: tok, Operator: tok.Lexeme}
	expr.Right = p.parseExpression(PREFIX)
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	tok := p.advance()
	precedence := p.precedenceOf(tok.TokenType)
	expr := &ast.InfixExpression{Token: tok, Left: left, Operator: tok.Lexeme}
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *Parser) precedenceOf(t token.TokenType) int {
	if prec, ok := precedences[t]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) parsePostfixExpression(left ast.Expression) ast.Expression {
	tok := p.advance()
	if _, ok := left.(*ast.Identifier); !ok {
		p.addError(fmt.Sprintf("operator %s may only follow an identifier", tok.Lexeme))
	}
	return &ast.PostfixExpression{Token: tok, Left: left, Operator: tok.Lexeme}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.advance() // consume '('
	expr := p.parseExpression(LOWEST)
	p.expect(token.RPA)
	return expr
}

func (p *Parser) parseIfExpression() ast.Expression {
	tok := p.advance() // consume 'if'
	expr := &ast.IfExpression{Token: tok}

	if !p.expect(token.LPA) {
		return expr
	}
	expr.Condition = p.parseExpression(LOWEST)
	if !p.expect(token.RPA) {
		return expr
	}

	expr.Consequence = p.parseBlockStmt()

	if p.currentIs(token.ELSE) {
		p.advance()
		if p.currentIs(token.IF) {
			// Chained "else if": wrap the nested IfExpression in a
			// single-statement block so Alternative stays *BlockStmt.
			elseTok := p.current()
			nested := p.parseIfExpression()
			expr.Alternative = &ast.BlockStmt{
				Token:      elseTok,
				Statements: []ast.Statement{&ast.ExpressionStmt{Token: elseTok, Expression: nested}},
			}
		} else {
			expr.Alternative = p.parseBlockStmt()
		}
	}

	return expr
}

func (p *Parser) parseWhileExpression() ast.Expression {
	tok := p.advance() // consume 'while'
	expr := &ast.WhileExpression{Token: tok}

	if !p.expect(token.LPA) {
		return expr
	}
	expr.Condition = p.parseExpression(LOWEST)
	if !p.expect(token.RPA) {
		return expr
	}

	expr.Body = p.parseBlockStmt()
	return expr
}

func (p *Parser) parseForExpression() ast.Expression {
	tok := p.advance() // consume 'for'
	expr := &ast.ForExpression{Token: tok}

	if !p.expect(token.LPA) {
		return expr
	}

	if !p.currentIs(token.SEMICOLON) {
		expr.Init = p.parseStatement()
	} else {
		p.advance()
	}

	if !p.currentIs(token.SEMICOLON) {
		expr.Condition = p.parseExpression(LOWEST)
	}
	if p.currentIs(token.SEMICOLON) {
		p.advance()
	}

	if !p.currentIs(token.RPA) {
		// The post-clause is an expression, but represented in the AST
		// uniformly with Init/Body as a Statement; wrap it.
		postTok := p.current()
		postExpr := p.parseExpression(LOWEST)
		expr.Post = &ast.ExpressionStmt{Token: postTok, Expression: postExpr}
	}
	if !p.expect(token.RPA) {
		return expr
	}

	expr.Body = p.parseBlockStmt()
	return expr
}

func (p *Parser) parseFunctionLiteral() ast.Expression {
	tok := p.advance() // consume 'fn'
	fn := &ast.FunctionLiteral{Token: tok}

	if !p.expect(token.LPA) {
		return fn
	}

	fn.Parameters = p.parseFunctionParameters()

	fn.Body = p.parseBlockStmt()
	return fn
}

func (p *Parser) parseFunctionParameters() []*ast.Identifier {
	var params []*ast.Identifier

	if p.currentIs(token.RPA) {
		p.advance()
		return params
	}

	tok := p.advance()
	params = append(params, &ast.Identifier{Token: tok, Name: tok.Lexeme})

	for p.currentIs(token.COMMA) {
		p.advance()
		tok := p.advance()
		params = append(params, &ast.Identifier{Token: tok, Name: tok.Lexeme})
	}

	p.expect(token.RPA)
	return params
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	tok := p.advance() // consume '['
	arr := &ast.ArrayLiteral{Token: tok}
	arr.Elements = p.parseExpressionList(token.RBRACKET)
	return arr
}

func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	var list []ast.Expression

	if p.currentIs(end) {
		p.advance()
		return list
	}

	list = append(list, p.parseExpression(LOWEST))
	for p.currentIs(token.COMMA) {
		p.advance()
		list = append(list, p.parseExpression(LOWEST))
	}

	p.expect(end)
	return list
}

func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	tok := p.advance() // consume '('
	call := &ast.CallExpression{Token: tok, Function: fn}
	call.Arguments = p.parseExpressionList(token.RPA)
	return call
}

// parseIndexOrSliceExpression handles "left[index]" and "left[start:end]"
// after having already seen the opening '['.
func (p *Parser) parseIndexOrSliceExpression(left ast.Expression) ast.Expression {
	tok := p.advance() // consume '['

	var start ast.Expression
	if !p.currentIs(token.COLON) {
		start = p.parseExpression(LOWEST)
	}

	if p.currentIs(token.COLON) {
		p.advance()
		slice := &ast.SliceExpression{Token: tok, Left: left, Start: start}
		if !p.currentIs(token.RBRACKET) {
			slice.End = p.parseExpression(LOWEST)
		}
		p.expect(token.RBRACKET)
		return slice
	}

	p.expect(token.RBRACKET)
	return &ast.IndexExpression{Token: tok, Left: left, Index: start}
}

func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	tok := p.advance() // consume '='

	switch left.(type) {
	case *ast.Identifier, *ast.IndexExpression:
		// legal assignment targets
	default:
		p.addError("invalid assignment target")
	}

	assign := &ast.AssignExpression{Token: tok, Target: left}
	// Assignment is right-associative: recursing at ASSIGN-1 (LOWEST)
	// lets a chained "a = b = c" fold the next '=' back into this call
	// instead of returning control to the outer Pratt loop.
	assign.Value = p.parseExpression(ASSIGN - 1)
	return assign
}
