package syntax

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/term"
)

// Error reports a parse or lowering failure with the source position of the
// offending node.
type Error struct {
	Lang     string
	NodeType string
	Line     int
	Col      int
	Reason   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s (%s)", e.Lang, e.Line, e.Col, e.Reason, e.NodeType)
}

// lowerFn lowers one language's root node to a term.
type lowerFn func(src []byte, root *sitter.Node) (term.Term, error)

var lowerers = map[string]lowerFn{
	"go":         lowerGoFile,
	"python":     lowerPythonFile,
	"javascript": lowerJavaScriptFile,
}

// FileTerm parses src as lang and lowers it to a single term: the file's
// top-level statements as a let-chained sequence. Callers that want
// module-as-interface semantics wrap the result in term.Module themselves.
func FileTerm(ctx context.Context, src []byte, lang string) (term.Term, error) {
	lower, ok := lowerers[lang]
	if !ok {
		return nil, fmt.Errorf("syntax: unsupported language %q", lang)
	}
	grammar, ok := GrammarForLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("syntax: no grammar for language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: parse %s: %w", lang, err)
	}
	root := tree.RootNode()
	if root.HasError() {
		n := firstErrorNode(root)
		return nil, nodeErr(lang, n, src, "syntax error")
	}
	return lower(src, root)
}

// firstErrorNode finds the shallowest ERROR node under root, falling back
// to root itself.
func firstErrorNode(root *sitter.Node) *sitter.Node {
	var find func(n *sitter.Node) *sitter.Node
	find = func(n *sitter.Node) *sitter.Node {
		if n.Type() == "ERROR" || n.IsMissing() {
			return n
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if found := find(n.NamedChild(i)); found != nil {
				return found
			}
		}
		return nil
	}
	if found := find(root); found != nil {
		return found
	}
	return root
}

// nodeErr builds an Error pointing at n.
func nodeErr(lang string, n *sitter.Node, _ []byte, reason string) error {
	p := n.StartPoint()
	return &Error{
		Lang:     lang,
		NodeType: n.Type(),
		Line:     int(p.Row) + 1,
		Col:      int(p.Column) + 1,
		Reason:   reason,
	}
}

// unsupported is the standard failure for constructs outside the lowered
// subset.
func unsupported(lang string, n *sitter.Node, src []byte) error {
	return nodeErr(lang, n, src, "construct is outside the analyzed subset")
}

// text returns n's source text.
func text(n *sitter.Node, src []byte) string {
	return n.Content(src)
}

// namedChildren collects n's named children.
func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	nodes := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		nodes = append(nodes, n.NamedChild(i))
	}
	return nodes
}

// intTerm parses an integer literal of any base.
func intTerm(lang string, n *sitter.Node, src []byte) (term.Term, error) {
	v, ok := new(big.Int).SetString(text(n, src), 0)
	if !ok {
		return nil, nodeErr(lang, n, src, "malformed integer literal")
	}
	return term.Int{Value: v}, nil
}

// floatTerm parses a floating literal, keeping its exact decimal value.
func floatTerm(lang string, n *sitter.Node, src []byte) (term.Term, error) {
	d, err := decimal.NewFromString(text(n, src))
	if err != nil {
		return nil, nodeErr(lang, n, src, "malformed float literal")
	}
	return term.Float{Value: d}, nil
}

// stripQuotes removes one layer of matching quotes from a literal.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// numericOps is the binary operator set the evaluator understands.
var numericOps = map[string]bool{
	"+": true,
	"-": true,
	"*": true,
	"/": true,
	"%": true,
}

// binding is a top-level or block-level name definition produced by
// statement lowering.
type binding struct {
	name  string
	value term.Term
}

// chain folds a statement list into nested terms: a binding scopes over
// everything after it, and plain expressions are sequenced. An empty list
// is Unit.
func chain(stmts []stmtResult) term.Term {
	if len(stmts) == 0 {
		return term.Unit{}
	}
	head, rest := stmts[0], stmts[1:]
	if head.bind != nil {
		return term.Let{
			Name:  head.bind.name,
			Value: head.bind.value,
			Body:  chain(rest),
		}
	}
	if len(rest) == 0 {
		return head.expr
	}
	return term.Seq{Terms: []term.Term{head.expr, chain(rest)}}
}

// stmtResult is one lowered statement: either a binding or an expression.
type stmtResult struct {
	bind *binding
	expr term.Term
}

func exprStmt(t term.Term) stmtResult {
	return stmtResult{expr: t}
}

func bindStmt(name string, value term.Term) stmtResult {
	return stmtResult{bind: &binding{name: name, value: value}}
}
