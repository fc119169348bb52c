package syntax

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/term"
)

// lowerJavaScriptFile lowers a JavaScript program. const/let declarations
// and function declarations become let bindings scoping over the rest of
// the program.
func lowerJavaScriptFile(src []byte, root *sitter.Node) (term.Term, error) {
	return lowerJSBlock(src, namedChildren(root))
}

func lowerJSBlock(src []byte, nodes []*sitter.Node) (term.Term, error) {
	var stmts []stmtResult
	for _, n := range nodes {
		if n.Type() == "comment" {
			continue
		}
		s, err := lowerJSStmt(src, n)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return chain(stmts), nil
}

func lowerJSStmt(src []byte, n *sitter.Node) (stmtResult, error) {
	switch n.Type() {
	case "lexical_declaration", "variable_declaration":
		decl := n.NamedChild(0)
		if decl == nil || decl.Type() != "variable_declarator" {
			return stmtResult{}, unsupported("javascript", n, src)
		}
		name := decl.ChildByFieldName("name")
		value := decl.ChildByFieldName("value")
		if name == nil || value == nil || name.Type() != "identifier" {
			return stmtResult{}, unsupported("javascript", decl, src)
		}
		t, err := lowerJSExpr(src, value)
		if err != nil {
			return stmtResult{}, err
		}
		return bindStmt(text(name, src), t), nil

	case "function_declaration":
		name := text(n.ChildByFieldName("name"), src)
		lam, err := lowerJSFunc(src, n)
		if err != nil {
			return stmtResult{}, err
		}
		return bindStmt(name, lam), nil

	case "if_statement":
		t, err := lowerJSIf(src, n)
		if err != nil {
			return stmtResult{}, err
		}
		return exprStmt(t), nil

	case "return_statement":
		if n.NamedChildCount() == 0 {
			return exprStmt(term.Unit{}), nil
		}
		t, err := lowerJSExpr(src, n.NamedChild(0))
		if err != nil {
			return stmtResult{}, err
		}
		return exprStmt(t), nil

	case "expression_statement":
		t, err := lowerJSExpr(src, n.NamedChild(0))
		if err != nil {
			return stmtResult{}, err
		}
		return exprStmt(t), nil

	case "statement_block":
		t, err := lowerJSBlock(src, namedChildren(n))
		if err != nil {
			return stmtResult{}, err
		}
		return exprStmt(t), nil
	}
	return stmtResult{}, unsupported("javascript", n, src)
}

func lowerJSIf(src []byte, n *sitter.Node) (term.Term, error) {
	cond, err := lowerJSExpr(src, n.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	thenStmt, err := lowerJSStmt(src, n.ChildByFieldName("consequence"))
	if err != nil {
		return nil, err
	}
	var alt term.Term = term.Unit{}
	if e := n.ChildByFieldName("alternative"); e != nil {
		// alternative is an else_clause wrapping a statement or another if.
		inner := e.NamedChild(0)
		if inner == nil {
			return nil, unsupported("javascript", e, src)
		}
		altStmt, err := lowerJSStmt(src, inner)
		if err != nil {
			return nil, err
		}
		alt = stmtTerm(altStmt)
	}
	return term.If{Cond: cond, Then: stmtTerm(thenStmt), Else: alt}, nil
}

// stmtTerm converts a lone statement result into a term; a bare binding
// evaluates its value for effect and yields Unit.
func stmtTerm(s stmtResult) term.Term {
	if s.bind != nil {
		return term.Let{Name: s.bind.name, Value: s.bind.value, Body: term.Unit{}}
	}
	return s.expr
}

func lowerJSFunc(src []byte, n *sitter.Node) (term.Term, error) {
	var params []string
	if plist := n.ChildByFieldName("parameters"); plist != nil {
		for _, p := range namedChildren(plist) {
			if p.Type() != "identifier" {
				return nil, unsupported("javascript", p, src)
			}
			params = append(params, text(p, src))
		}
	}
	body, err := lowerJSBlock(src, namedChildren(n.ChildByFieldName("body")))
	if err != nil {
		return nil, err
	}
	return term.Lam{Params: params, Body: body}, nil
}

func lowerJSExpr(src []byte, n *sitter.Node) (term.Term, error) {
	if n == nil {
		return nil, &Error{Lang: "javascript", NodeType: "nil", Reason: "missing expression"}
	}
	switch n.Type() {
	case "parenthesized_expression":
		return lowerJSExpr(src, n.NamedChild(0))

	case "identifier":
		return term.Var{Name: text(n, src)}, nil

	case "true":
		return term.Bool{Value: true}, nil
	case "false":
		return term.Bool{Value: false}, nil

	case "number":
		lit := text(n, src)
		if strings.ContainsAny(lit, ".eE") && !strings.HasPrefix(lit, "0x") {
			return floatTerm("javascript", n, src)
		}
		return intTerm("javascript", n, src)

	case "string":
		return term.String{Value: stripQuotes(text(n, src))}, nil

	case "binary_expression":
		op := text(n.ChildByFieldName("operator"), src)
		if !numericOps[op] {
			return nil, unsupported("javascript", n, src)
		}
		left, err := lowerJSExpr(src, n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := lowerJSExpr(src, n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		return term.Binary{Op: op, Left: left, Right: right}, nil

	case "unary_expression":
		op := text(n.ChildByFieldName("operator"), src)
		if op != "-" {
			return nil, unsupported("javascript", n, src)
		}
		operand, err := lowerJSExpr(src, n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		return term.Unary{Op: op, Operand: operand}, nil

	case "ternary_expression":
		cond, err := lowerJSExpr(src, n.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}
		then, err := lowerJSExpr(src, n.ChildByFieldName("consequence"))
		if err != nil {
			return nil, err
		}
		alt, err := lowerJSExpr(src, n.ChildByFieldName("alternative"))
		if err != nil {
			return nil, err
		}
		return term.If{Cond: cond, Then: then, Else: alt}, nil

	case "call_expression":
		fn, err := lowerJSExpr(src, n.ChildByFieldName("function"))
		if err != nil {
			return nil, err
		}
		var args []term.Term
		if alist := n.ChildByFieldName("arguments"); alist != nil {
			for _, a := range namedChildren(alist) {
				t, err := lowerJSExpr(src, a)
				if err != nil {
					return nil, err
				}
				args = append(args, t)
			}
		}
		return term.App{Fn: fn, Args: args}, nil

	case "function_expression", "function":
		return lowerJSFunc(src, n)

	case "arrow_function":
		var params []string
		if p := n.ChildByFieldName("parameter"); p != nil {
			params = append(params, text(p, src))
		} else if plist := n.ChildByFieldName("parameters"); plist != nil {
			for _, p := range namedChildren(plist) {
				if p.Type() != "identifier" {
					return nil, unsupported("javascript", p, src)
				}
				params = append(params, text(p, src))
			}
		}
		bodyNode := n.ChildByFieldName("body")
		var body term.Term
		var err error
		if bodyNode.Type() == "statement_block" {
			body, err = lowerJSBlock(src, namedChildren(bodyNode))
		} else {
			body, err = lowerJSExpr(src, bodyNode)
		}
		if err != nil {
			return nil, err
		}
		return term.Lam{Params: params, Body: body}, nil
	}
	return nil, unsupported("javascript", n, src)
}
