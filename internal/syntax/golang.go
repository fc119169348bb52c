package syntax

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/term"
)

// lowerGoFile lowers a Go source_file. Top-level function and value
// declarations become let bindings scoping over the rest of the file;
// package and import clauses carry no analyzed meaning and are skipped.
func lowerGoFile(src []byte, root *sitter.Node) (term.Term, error) {
	var stmts []stmtResult
	for _, n := range namedChildren(root) {
		switch n.Type() {
		case "package_clause", "import_declaration", "comment":
			continue
		}
		s, err := lowerGoStmt(src, n)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return chain(stmts), nil
}

func lowerGoStmt(src []byte, n *sitter.Node) (stmtResult, error) {
	switch n.Type() {
	case "function_declaration":
		name := text(n.ChildByFieldName("name"), src)
		lam, err := lowerGoFunc(src, n)
		if err != nil {
			return stmtResult{}, err
		}
		return bindStmt(name, lam), nil

	case "var_declaration", "const_declaration":
		spec := n.NamedChild(0)
		if spec == nil || spec.ChildByFieldName("value") == nil {
			return stmtResult{}, unsupported("go", n, src)
		}
		name := text(spec.ChildByFieldName("name"), src)
		value, err := lowerGoExpr(src, firstGoExpr(spec.ChildByFieldName("value")))
		if err != nil {
			return stmtResult{}, err
		}
		return bindStmt(name, value), nil

	case "short_var_declaration", "assignment_statement":
		left := firstGoExpr(n.ChildByFieldName("left"))
		right := firstGoExpr(n.ChildByFieldName("right"))
		if left == nil || right == nil || left.Type() != "identifier" {
			return stmtResult{}, unsupported("go", n, src)
		}
		value, err := lowerGoExpr(src, right)
		if err != nil {
			return stmtResult{}, err
		}
		return bindStmt(text(left, src), value), nil

	case "if_statement":
		t, err := lowerGoIf(src, n)
		if err != nil {
			return stmtResult{}, err
		}
		return exprStmt(t), nil

	case "return_statement":
		if n.NamedChildCount() == 0 {
			return exprStmt(term.Unit{}), nil
		}
		t, err := lowerGoExpr(src, firstGoExpr(n.NamedChild(0)))
		if err != nil {
			return stmtResult{}, err
		}
		return exprStmt(t), nil

	case "expression_statement":
		t, err := lowerGoExpr(src, n.NamedChild(0))
		if err != nil {
			return stmtResult{}, err
		}
		return exprStmt(t), nil
	}
	return stmtResult{}, unsupported("go", n, src)
}

// firstGoExpr unwraps expression_list nodes, which hold the actual
// expression as their first named child.
func firstGoExpr(n *sitter.Node) *sitter.Node {
	if n != nil && n.Type() == "expression_list" {
		return n.NamedChild(0)
	}
	return n
}

func lowerGoBlock(src []byte, n *sitter.Node) (term.Term, error) {
	var stmts []stmtResult
	for _, child := range namedChildren(n) {
		if child.Type() == "comment" {
			continue
		}
		s, err := lowerGoStmt(src, child)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return chain(stmts), nil
}

func lowerGoIf(src []byte, n *sitter.Node) (term.Term, error) {
	cond, err := lowerGoExpr(src, n.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	then, err := lowerGoBlock(src, n.ChildByFieldName("consequence"))
	if err != nil {
		return nil, err
	}
	var alt term.Term = term.Unit{}
	if e := n.ChildByFieldName("alternative"); e != nil {
		switch e.Type() {
		case "block":
			alt, err = lowerGoBlock(src, e)
		case "if_statement":
			alt, err = lowerGoIf(src, e)
		default:
			err = unsupported("go", e, src)
		}
		if err != nil {
			return nil, err
		}
	}
	return term.If{Cond: cond, Then: then, Else: alt}, nil
}

// lowerGoFunc lowers function declarations and func literals to a Lam.
// Parameter and result types are ignored: the type domain reconstructs
// them.
func lowerGoFunc(src []byte, n *sitter.Node) (term.Term, error) {
	var params []string
	if plist := n.ChildByFieldName("parameters"); plist != nil {
		for _, decl := range namedChildren(plist) {
			for _, id := range namedChildren(decl) {
				if id.Type() == "identifier" {
					params = append(params, text(id, src))
				}
			}
		}
	}
	body, err := lowerGoBlock(src, n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	return term.Lam{Params: params, Body: body}, nil
}

func lowerGoExpr(src []byte, n *sitter.Node) (term.Term, error) {
	if n == nil {
		return nil, &Error{Lang: "go", NodeType: "nil", Reason: "missing expression"}
	}
	switch n.Type() {
	case "parenthesized_expression":
		return lowerGoExpr(src, n.NamedChild(0))

	case "identifier":
		return term.Var{Name: text(n, src)}, nil

	case "true":
		return term.Bool{Value: true}, nil
	case "false":
		return term.Bool{Value: false}, nil

	case "int_literal":
		return intTerm("go", n, src)
	case "float_literal":
		return floatTerm("go", n, src)

	case "interpreted_string_literal":
		s, err := strconv.Unquote(text(n, src))
		if err != nil {
			return nil, nodeErr("go", n, src, "malformed string literal")
		}
		return term.String{Value: s}, nil
	case "raw_string_literal":
		return term.String{Value: stripQuotes(text(n, src))}, nil

	case "binary_expression":
		op := text(n.ChildByFieldName("operator"), src)
		if !numericOps[op] {
			return nil, unsupported("go", n, src)
		}
		left, err := lowerGoExpr(src, n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := lowerGoExpr(src, n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		return term.Binary{Op: op, Left: left, Right: right}, nil

	case "unary_expression":
		op := text(n.ChildByFieldName("operator"), src)
		if op != "-" {
			return nil, unsupported("go", n, src)
		}
		operand, err := lowerGoExpr(src, n.ChildByFieldName("operand"))
		if err != nil {
			return nil, err
		}
		return term.Unary{Op: op, Operand: operand}, nil

	case "call_expression":
		fn, err := lowerGoExpr(src, n.ChildByFieldName("function"))
		if err != nil {
			return nil, err
		}
		var args []term.Term
		if alist := n.ChildByFieldName("arguments"); alist != nil {
			for _, a := range namedChildren(alist) {
				t, err := lowerGoExpr(src, a)
				if err != nil {
					return nil, err
				}
				args = append(args, t)
			}
		}
		return term.App{Fn: fn, Args: args}, nil

	case "func_literal":
		return lowerGoFunc(src, n)
	}
	return nil, unsupported("go", n, src)
}
