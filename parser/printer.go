package parser

import (
	"encoding/json"
	"fmt"
	"nilan/ast"
	"os"
)

const (
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// astPrinter implements both Visitor interfaces and builds a
// JSON-friendly representation of the AST using maps and slices. Each
// Visit method returns a value that can be marshaled to JSON.
type astPrinter struct{}

func (p astPrinter) VisitLetStmt(n *ast.LetStmt) any {
	return map[string]any{
		"type":  "LetStmt",
		"name":  n.Name.Name,
		"value": nilOrAcceptExpr(n.Value, p),
	}
}

func (p astPrinter) VisitReturnStmt(n *ast.ReturnStmt) any {
	return map[string]any{
		"type":  "ReturnStmt",
		"value": nilOrAcceptExpr(n.Value, p),
	}
}

func (p astPrinter) VisitExpressionStmt(n *ast.ExpressionStmt) any {
	return map[string]any{
		"type":       "ExpressionStmt",
		"expression": nilOrAcceptExpr(n.Expression, p),
	}
}

func (p astPrinter) VisitBlockStmt(n *ast.BlockStmt) any {
	stmts := make([]any, 0, len(n.Statements))
	for _, s := range n.Statements {
		stmts = append(stmts, s.Accept(p))
	}
	return map[string]any{"type": "BlockStmt", "statements": stmts}
}

func (p astPrinter) VisitBreakStmt(n *ast.BreakStmt) any {
	return map[string]any{"type": "BreakStmt"}
}

func (p astPrinter) VisitContinueStmt(n *ast.ContinueStmt) any {
	return map[string]any{"type": "ContinueStmt"}
}

func (p astPrinter) VisitIntegerLiteral(n *ast.IntegerLiteral) any { return n.Value }
func (p astPrinter) VisitBooleanLiteral(n *ast.BooleanLiteral) any { return n.Value }
func (p astPrinter) VisitStringLiteral(n *ast.StringLiteral) any  { return n.Value }

func (p astPrinter) VisitIdentifier(n *ast.Identifier) any {
	return map[string]any{"type": "Identifier", "name": n.Name}
}

func (p astPrinter) VisitArrayLiteral(n *ast.ArrayLiteral) any {
	elems := make([]any, 0, len(n.Elements))
	for _, e := range n.Elements {
		elems = append(elems, e.Accept(p))
	}
	return map[string]any{"type": "ArrayLiteral", "elements": elems}
}

func (p astPrinter) VisitPrefixExpression(n *ast.PrefixExpression) any {
	return map[string]any{
		"type":     "PrefixExpression",
		"operator": n.Operator,
		"right":    n.Right.Accept(p),
	}
}

func (p astPrinter) VisitInfixExpression(n *ast.InfixExpression) any {
	return map[string]any{
		"type":     "InfixExpression",
		"operator": n.Operator,
		"left":     n.Left.Accept(p),
		"right":    n.Right.Accept(p),
	}
}

func (p astPrinter) VisitPostfixExpression(n *ast.PostfixExpression) any {
	return map[string]any{
		"type":     "PostfixExpression",
		"operator": n.Operator,
		"left":     n.Left.Accept(p),
	}
}

func (p astPrinter) VisitIfExpression(n *ast.IfExpression) any {
	var alt any
	if n.Alternative != nil {
		alt = n.Alternative.Accept(p)
	}
	return map[string]any{
		"type":        "IfExpression",
		"condition":   n.Condition.Accept(p),
		"consequence": n.Consequence.Accept(p),
		"alternative": alt,
	}
}

func (p astPrinter) VisitWhileExpression(n *ast.WhileExpression) any {
	return map[string]any{
		"type":      "WhileExpression",
		"condition": n.Condition.Accept(p),
		"body":      n.Body.Accept(p),
	}
}

func (p astPrinter) VisitForExpression(n *ast.ForExpression) any {
	var init, post any
	if n.Init != nil {
		init = n.Init.Accept(p)
	}
	if n.Post != nil {
		post = n.Post.Accept(p)
	}
	return map[string]any{
		"type":      "ForExpression",
		"init":      init,
		"condition": nilOrAcceptExpr(n.Condition, p),
		"post":      post,
		"body":      n.Body.Accept(p),
	}
}

func (p astPrinter) VisitFunctionLiteral(n *ast.FunctionLiteral) any {
	params := make([]string, 0, len(n.Parameters))
	for _, param := range n.Parameters {
		params = append(params, param.Name)
	}
	return map[string]any{
		"type":       "FunctionLiteral",
		"name":       n.Name,
		"parameters": params,
		"body":       n.Body.Accept(p),
	}
}

func (p astPrinter) VisitCallExpression(n *ast.CallExpression) any {
	args := make([]any, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		args = append(args, a.Accept(p))
	}
	return map[string]any{
		"type":     "CallExpression",
		"function": n.Function.Accept(p),
		"args":     args,
	}
}

func (p astPrinter) VisitIndexExpression(n *ast.IndexExpression) any {
	return map[string]any{
		"type":  "IndexExpression",
		"left":  n.Left.Accept(p),
		"index": n.Index.Accept(p),
	}
}

func (p astPrinter) VisitSliceExpression(n *ast.SliceExpression) any {
	return map[string]any{
		"type":  "SliceExpression",
		"left":  n.Left.Accept(p),
		"start": nilOrAcceptExpr(n.Start, p),
		"end":   nilOrAcceptExpr(n.End, p),
	}
}

func (p astPrinter) VisitAssignExpression(n *ast.AssignExpression) any {
	return map[string]any{
		"type":   "AssignExpression",
		"target": n.Target.Accept(p),
		"value":  n.Value.Accept(p),
	}
}

// nilOrAcceptExpr returns nil if expr is nil, otherwise it continues
// processing the expression and returns the result.
func nilOrAcceptExpr(expr ast.Expression, v ast.ExpressionVisitor) any {
	if expr == nil {
		return nil
	}
	return expr.Accept(v)
}

// PrintASTJSON converts a parsed program into a prettified JSON string
// and echoes it to stdout in yellow.
func PrintASTJSON(program *ast.Program) (string, error) {
	printer := astPrinter{}
	out := make([]any, 0, len(program.Statements))
	for _, s := range program.Statements {
		out = append(out, s.Accept(printer))
	}
	bytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}

	jsonStr := string(bytes)
	fmt.Println(colorYellow + "----- AST JSON -----")
	fmt.Println(colorYellow + jsonStr)
	fmt.Println(colorYellow + "-----" + colorReset)
	fmt.Println("")
	return jsonStr, nil
}

// WriteASTJSONToFile writes the prettified AST JSON to the given file path.
func WriteASTJSONToFile(program *ast.Program, path string) error {
	s, err := PrintASTJSON(program)
	if err != nil {
		return err
	}
	fDescriptor, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating AST file: %s", err.Error())
	}
	defer fDescriptor.Close()

	if _, err := fDescriptor.Write([]byte(s)); err != nil {
		return fmt.Errorf("error writing AST to file: %s", err.Error())
	}
	return nil
}
