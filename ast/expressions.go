// expressions.go contains all the expression AST nodes. An expression
// node always evaluates to a value.
package ast

import (
	"bytes"
	"nilan/token"
	"strings"
)

// IntegerLiteral represents an integer literal, e.g. "5".
type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (n *IntegerLiteral) expressionNode()      {}
func (n *IntegerLiteral) TokenLiteral() string { return n.Token.Lexeme }
func (n *IntegerLiteral) String() string       { return n.Token.Lexeme }
func (n *IntegerLiteral) Accept(v ExpressionVisitor) any {
	return v.VisitIntegerLiteral(n)
}

// BooleanLiteral represents "true" or "false".
type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (n *BooleanLiteral) expressionNode()      {}
func (n *BooleanLiteral) TokenLiteral() string { return n.Token.Lexeme }
func (n *BooleanLiteral) String() string       { return n.Token.Lexeme }
func (n *BooleanLiteral) Accept(v ExpressionVisitor) any {
	return v.VisitBooleanLiteral(n)
}

// StringLiteral represents a double-quoted string literal.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (n *StringLiteral) expressionNode()      {}
func (n *StringLiteral) TokenLiteral() string { return n.Token.Lexeme }
func (n *StringLiteral) String() string       { return `"` + n.Value + `"` }
func (n *StringLiteral) Accept(v ExpressionVisitor) any {
	return v.VisitStringLiteral(n)
}

// Identifier represents a reference to a bound name.
type Identifier struct {
	Token token.Token
	Name  string
}

func (n *Identifier) expressionNode()      {}
func (n *Identifier) TokenLiteral() string { return n.Token.Lexeme }
func (n *Identifier) String() string       { return n.Name }
func (n *Identifier) Accept(v ExpressionVisitor) any {
	return v.VisitIdentifier(n)
}

// ArrayLiteral represents "[e1, e2, ...]".
type ArrayLiteral struct {
	Token    token.Token
	Elements []Expression
}

func (n *ArrayLiteral) expressionNode()      {}
func (n *ArrayLiteral) TokenLiteral() string { return n.Token.Lexeme }
func (n *ArrayLiteral) String() string {
	elems := make([]string, len(n.Elements))
	for i, e := range n.Elements {
		elems[i] = e.String()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}
func (n *ArrayLiteral) Accept(v ExpressionVisitor) any {
	return v.VisitArrayLiteral(n)
}

// PrefixExpression represents "!expr" or "-expr".
type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (n *PrefixExpression) expressionNode()      {}
func (n *PrefixExpression) TokenLiteral() string { return n.Token.Lexeme }
func (n *PrefixExpression) String() string {
	return "(" + n.Operator + n.Right.String() + ")"
}
func (n *PrefixExpression) Accept(v ExpressionVisitor) any {
	return v.VisitPrefixExpression(n)
}

// InfixExpression represents "left OP right".
type InfixExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (n *InfixExpression) expressionNode()      {}
func (n *InfixExpression) TokenLiteral() string { return n.Token.Lexeme }
func (n *InfixExpression) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(n.Left.String())
	out.WriteString(" " + n.Operator + " ")
	out.WriteString(n.Right.String())
	out.WriteString(")")
	return out.String()
}
func (n *InfixExpression) Accept(v ExpressionVisitor) any {
	return v.VisitInfixExpression(n)
}

// PostfixExpression represents "ident++" or "ident--". The parser only
// ever populates Left with an Identifier; lowering into the equivalent
// assignment (`ident = ident +/- 1`) is the compiler's responsibility,
// per spec.
type PostfixExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
}

func (n *PostfixExpression) expressionNode()      {}
func (n *PostfixExpression) TokenLiteral() string { return n.Token.Lexeme }
func (n *PostfixExpression) String() string {
	return "(" + n.Left.String() + n.Operator + ")"
}
func (n *PostfixExpression) Accept(v ExpressionVisitor) any {
	return v.VisitPostfixExpression(n)
}

// IfExpression represents "if (cond) { ... } else { ... }". Else may
// itself wrap an IfExpression (via a single-statement BlockStmt) to
// model "else if" chains.
type IfExpression struct {
	Token       token.Token
	Condition   Expression
	Consequence *BlockStmt
	Alternative *BlockStmt
}

func (n *IfExpression) expressionNode()      {}
func (n *IfExpression) TokenLiteral() string { return n.Token.Lexeme }
func (n *IfExpression) String() string {
	var out bytes.Buffer
	out.WriteString("if")
	out.WriteString(n.Condition.String())
	out.WriteString(" ")
	out.WriteString(n.Consequence.String())
	if n.Alternative != nil {
		out.WriteString("else ")
		out.WriteString(n.Alternative.String())
	}
	return out.String()
}
func (n *IfExpression) Accept(v ExpressionVisitor) any {
	return v.VisitIfExpression(n)
}

// WhileExpression represents "while (cond) { body }".
type WhileExpression struct {
	Token     token.Token
	Condition Expression
	Body      *BlockStmt
}

func (n *WhileExpression) expressionNode()      {}
func (n *WhileExpression) TokenLiteral() string { return n.Token.Lexeme }
func (n *WhileExpression) String() string {
	return "while(" + n.Condition.String() + ") " + n.Body.String()
}
func (n *WhileExpression) Accept(v ExpressionVisitor) any {
	return v.VisitWhileExpression(n)
}

// ForExpression represents "for (init; cond; post) { body }". Init and
// Post may be nil (an omitted clause); Condition may be nil, meaning
// "always true".
type ForExpression struct {
	Token     token.Token
	Init      Statement
	Condition Expression
	Post      Statement
	Body      *BlockStmt
}

func (n *ForExpression) expressionNode()      {}
func (n *ForExpression) TokenLiteral() string { return n.Token.Lexeme }
func (n *ForExpression) String() string {
	var out bytes.Buffer
	out.WriteString("for(")
	if n.Init != nil {
		out.WriteString(n.Init.String())
	}
	out.WriteString(";")
	if n.Condition != nil {
		out.WriteString(n.Condition.String())
	}
	out.WriteString(";")
	if n.Post != nil {
		out.WriteString(n.Post.String())
	}
	out.WriteString(") ")
	out.WriteString(n.Body.String())
	return out.String()
}
func (n *ForExpression) Accept(v ExpressionVisitor) any {
	return v.VisitForExpression(n)
}

// FunctionLiteral represents "fn(params) { body }", optionally named
// when it is the right-hand side of a `let name = fn ...` statement (the
// parser back-fills Name in that case so the function can refer to
// itself for recursion).
type FunctionLiteral struct {
	Token      token.Token
	Name       string
	Parameters []*Identifier
	Body       *BlockStmt
}

func (n *FunctionLiteral) expressionNode()      {}
func (n *FunctionLiteral) TokenLiteral() string { return n.Token.Lexeme }
func (n *FunctionLiteral) String() string {
	params := make([]string, len(n.Parameters))
	for i, p := range n.Parameters {
		params[i] = p.String()
	}
	var out bytes.Buffer
	out.WriteString("fn")
	if n.Name != "" {
		out.WriteString("<" + n.Name + ">")
	}
	out.WriteString("(" + strings.Join(params, ", ") + ") ")
	out.WriteString(n.Body.String())
	return out.String()
}
func (n *FunctionLiteral) Accept(v ExpressionVisitor) any {
	return v.VisitFunctionLiteral(n)
}

// CallExpression represents "callee(args...)".
type CallExpression struct {
	Token     token.Token
	Function  Expression
	Arguments []Expression
}

func (n *CallExpression) expressionNode()      {}
func (n *CallExpression) TokenLiteral() string { return n.Token.Lexeme }
func (n *CallExpression) String() string {
	args := make([]string, len(n.Arguments))
	for i, a := range n.Arguments {
		args[i] = a.String()
	}
	return n.Function.String() + "(" + strings.Join(args, ", ") + ")"
}
func (n *CallExpression) Accept(v ExpressionVisitor) any {
	return v.VisitCallExpression(n)
}

// IndexExpression represents "left[index]".
type IndexExpression struct {
	Token token.Token
	Left  Expression
	Index Expression
}

func (n *IndexExpression) expressionNode()      {}
func (n *IndexExpression) TokenLiteral() string { return n.Token.Lexeme }
func (n *IndexExpression) String() string {
	return "(" + n.Left.String() + "[" + n.Index.String() + "])"
}
func (n *IndexExpression) Accept(v ExpressionVisitor) any {
	return v.VisitIndexExpression(n)
}

// SliceExpression represents "left[start:end]"; Start and End may each
// be nil, meaning "0" and "length" respectively.
type SliceExpression struct {
	Token token.Token
	Left  Expression
	Start Expression
	End   Expression
}

func (n *SliceExpression) expressionNode()      {}
func (n *SliceExpression) TokenLiteral() string { return n.Token.Lexeme }
func (n *SliceExpression) String() string {
	var out bytes.Buffer
	out.WriteString("(" + n.Left.String() + "[")
	if n.Start != nil {
		out.WriteString(n.Start.String())
	}
	out.WriteString(":")
	if n.End != nil {
		out.WriteString(n.End.String())
	}
	out.WriteString("])")
	return out.String()
}
func (n *SliceExpression) Accept(v ExpressionVisitor) any {
	return v.VisitSliceExpression(n)
}

// AssignExpression represents "target = value", where target is either
// an Identifier or an IndexExpression.
type AssignExpression struct {
	Token  token.Token
	Target Expression
	Value  Expression
}

func (n *AssignExpression) expressionNode()      {}
func (n *AssignExpression) TokenLiteral() string { return n.Token.Lexeme }
func (n *AssignExpression) String() string {
	return "(" + n.Target.String() + " = " + n.Value.String() + ")"
}
func (n *AssignExpression) Accept(v ExpressionVisitor) any {
	return v.VisitAssignExpression(n)
}
