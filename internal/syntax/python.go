package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/term"
)

// lowerPythonFile lowers a Python module. Assignments and defs become let
// bindings scoping over the rest of the module.
func lowerPythonFile(src []byte, root *sitter.Node) (term.Term, error) {
	return lowerPyBlock(src, namedChildren(root))
}

func lowerPyBlock(src []byte, nodes []*sitter.Node) (term.Term, error) {
	var stmts []stmtResult
	for _, n := range nodes {
		if n.Type() == "comment" {
			continue
		}
		s, err := lowerPyStmt(src, n)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return chain(stmts), nil
}

func lowerPyStmt(src []byte, n *sitter.Node) (stmtResult, error) {
	switch n.Type() {
	case "function_definition":
		name := text(n.ChildByFieldName("name"), src)
		var params []string
		if plist := n.ChildByFieldName("parameters"); plist != nil {
			for _, p := range namedChildren(plist) {
				if p.Type() != "identifier" {
					return stmtResult{}, unsupported("python", p, src)
				}
				params = append(params, text(p, src))
			}
		}
		body, err := lowerPyBlock(src, namedChildren(n.ChildByFieldName("body")))
		if err != nil {
			return stmtResult{}, err
		}
		return bindStmt(name, term.Lam{Params: params, Body: body}), nil

	case "expression_statement":
		inner := n.NamedChild(0)
		if inner != nil && inner.Type() == "assignment" {
			left := inner.ChildByFieldName("left")
			right := inner.ChildByFieldName("right")
			if left == nil || right == nil || left.Type() != "identifier" {
				return stmtResult{}, unsupported("python", inner, src)
			}
			value, err := lowerPyExpr(src, right)
			if err != nil {
				return stmtResult{}, err
			}
			return bindStmt(text(left, src), value), nil
		}
		t, err := lowerPyExpr(src, inner)
		if err != nil {
			return stmtResult{}, err
		}
		return exprStmt(t), nil

	case "if_statement":
		t, err := lowerPyIf(src, n)
		if err != nil {
			return stmtResult{}, err
		}
		return exprStmt(t), nil

	case "return_statement":
		if n.NamedChildCount() == 0 {
			return exprStmt(term.Unit{}), nil
		}
		t, err := lowerPyExpr(src, n.NamedChild(0))
		if err != nil {
			return stmtResult{}, err
		}
		return exprStmt(t), nil

	case "pass_statement":
		return exprStmt(term.Unit{}), nil
	}
	return stmtResult{}, unsupported("python", n, src)
}

func lowerPyIf(src []byte, n *sitter.Node) (term.Term, error) {
	cond, err := lowerPyExpr(src, n.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	then, err := lowerPyBlock(src, namedChildren(n.ChildByFieldName("consequence")))
	if err != nil {
		return nil, err
	}
	var alt term.Term = term.Unit{}
	if e := n.ChildByFieldName("alternative"); e != nil {
		switch e.Type() {
		case "else_clause":
			alt, err = lowerPyBlock(src, namedChildren(e.ChildByFieldName("body")))
		case "elif_clause":
			alt, err = lowerPyIf(src, e)
		default:
			err = unsupported("python", e, src)
		}
		if err != nil {
			return nil, err
		}
	}
	return term.If{Cond: cond, Then: then, Else: alt}, nil
}

func lowerPyExpr(src []byte, n *sitter.Node) (term.Term, error) {
	if n == nil {
		return nil, &Error{Lang: "python", NodeType: "nil", Reason: "missing expression"}
	}
	switch n.Type() {
	case "parenthesized_expression":
		return lowerPyExpr(src, n.NamedChild(0))

	case "identifier":
		return term.Var{Name: text(n, src)}, nil

	case "true":
		return term.Bool{Value: true}, nil
	case "false":
		return term.Bool{Value: false}, nil

	case "integer":
		return intTerm("python", n, src)
	case "float":
		return floatTerm("python", n, src)
	case "string":
		return term.String{Value: stripQuotes(text(n, src))}, nil

	case "binary_operator":
		op := text(n.ChildByFieldName("operator"), src)
		if !numericOps[op] {
			return nil, unsupported("python", n, src)
		}
		left, err := lowerPyExpr(src, n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := lowerPyExpr(src, n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		return term.Binary{Op: op, Left: left, Right: right}, nil

	case "unary_operator":
		op := text(n.ChildByFieldName("operator"), src)
		if op != "-" {
			return nil, unsupported("python", n, src)
		}
		operand, err := lowerPyExpr(src, n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		return term.Unary{Op: op, Operand: operand}, nil

	case "call":
		fn, err := lowerPyExpr(src, n.ChildByFieldName("function"))
		if err != nil {
			return nil, err
		}
		var args []term.Term
		if alist := n.ChildByFieldName("arguments"); alist != nil {
			for _, a := range namedChildren(alist) {
				t, err := lowerPyExpr(src, a)
				if err != nil {
					return nil, err
				}
				args = append(args, t)
			}
		}
		return term.App{Fn: fn, Args: args}, nil

	case "conditional_expression":
		// Python spells it "a if cond else b": named children are
		// consequence, condition, alternative in that order.
		if n.NamedChildCount() != 3 {
			return nil, unsupported("python", n, src)
		}
		then, err := lowerPyExpr(src, n.NamedChild(0))
		if err != nil {
			return nil, err
		}
		cond, err := lowerPyExpr(src, n.NamedChild(1))
		if err != nil {
			return nil, err
		}
		alt, err := lowerPyExpr(src, n.NamedChild(2))
		if err != nil {
			return nil, err
		}
		return term.If{Cond: cond, Then: then, Else: alt}, nil

	case "lambda":
		var params []string
		if plist := n.ChildByFieldName("parameters"); plist != nil {
			for _, p := range namedChildren(plist) {
				if p.Type() != "identifier" {
					return nil, unsupported("python", p, src)
				}
				params = append(params, text(p, src))
			}
		}
		body, err := lowerPyExpr(src, n.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		return term.Lam{Params: params, Body: body}, nil
	}
	return nil, unsupported("python", n, src)
}
