package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/lmorg/readline"
	"github.com/spf13/cobra"

	"github.com/jward/taproot/internal/eval"
	"github.com/jward/taproot/internal/eval/concrete"
	"github.com/jward/taproot/internal/eval/typeinf"
	"github.com/jward/taproot/internal/syntax"
)

var flagReplLang string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive session over both domains",
	Long:  "Reads lines of source in the selected language, evaluates each under the concrete and type domains, and prints \"value : type\". Top-level bindings persist across lines.",
	Args:  cobra.NoArgs,
	RunE:  runRepl,
}

func init() {
	replCmd.Flags().StringVar(&flagReplLang, "lang", "python", "input language: "+strings.Join(syntax.Languages(), "|"))
}

// replSession holds the per-domain state that persists across inputs.
// Top-level bindings advance each session's global environment, so a name
// bound on one line is visible on the next.
type replSession struct {
	lang string

	concreteCtx *eval.Context
	concreteDom concrete.Domain

	typeCtx *eval.Context
	typeDom *typeinf.Domain
}

func newReplSession(lang string) *replSession {
	s := &replSession{
		lang:        lang,
		concreteCtx: eval.NewContext(),
		concreteDom: concrete.New(),
		typeCtx:     eval.NewContext(),
		typeDom:     typeinf.New(),
	}
	s.concreteCtx.SetGlobal(eval.EmptyEnvironment())
	s.typeCtx.SetGlobal(eval.EmptyEnvironment())
	return s
}

// evalLine lowers one input line and runs it under both domains, returning
// the rendered value and type.
func (s *replSession) evalLine(ctx context.Context, line string) (string, string, error) {
	t, err := syntax.FileTerm(ctx, []byte(line+"\n"), s.lang)
	if err != nil {
		return "", "", err
	}

	cv, err := eval.Evaluate(s.concreteCtx, s.concreteDom, t)
	if err != nil {
		return "", "", err
	}
	tv, err := eval.Evaluate(s.typeCtx, s.typeDom, t)
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("%v", cv), fmt.Sprintf("%v", s.typeDom.Canonical(tv)), nil
}

func runRepl(cmd *cobra.Command, args []string) error {
	if _, ok := syntax.GrammarForLanguage(flagReplLang); !ok {
		return fmt.Errorf("unknown language %q (want %s)", flagReplLang, strings.Join(syntax.Languages(), ", "))
	}

	session := newReplSession(flagReplLang)
	rl := readline.NewInstance()
	rl.SetPrompt(flagReplLang + "> ")
	ctx := context.Background()

	fmt.Printf("taproot repl (%s). Ctrl-D to exit.\n", flagReplLang)
	for {
		line, err := rl.Readline()
		if err != nil {
			// EOF or interrupt ends the session.
			fmt.Println()
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		val, typ, err := session.evalLine(ctx, line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Printf("%s : %s\n", val, typ)
	}
}
