package policy

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/taproot/internal/eval"
	"github.com/jward/taproot/internal/eval/concrete"
	"github.com/jward/taproot/internal/eval/typeinf"
	"github.com/jward/taproot/internal/store"
	"github.com/jward/taproot/internal/syntax"
)

// makeInferSrcFn creates the "infer_src" host function.
//
// infer_src(source, language) → string
//
// Runs type inference on a source snippet and returns the rendered
// result type. Lets policy scripts check types of code fragments that
// are not stored files.
func makeInferSrcFn() *object.Builtin {
	return object.NewBuiltin("infer_src", func(ctx context.Context, args ...object.Object) object.Object {
		src, lang, errObj := sourceArgs("infer_src", args)
		if errObj != nil {
			return errObj
		}

		t, err := syntax.FileTerm(ctx, []byte(src), lang)
		if err != nil {
			return object.Errorf("infer_src: %v", err)
		}

		ectx := eval.NewContext()
		ectx.SetGlobal(eval.EmptyEnvironment())
		d := typeinf.New()
		v, err := eval.Evaluate(ectx, d, t)
		if err != nil {
			return object.Errorf("infer_src: %v", err)
		}
		return object.NewString(fmt.Sprintf("%v", d.Canonical(v)))
	})
}

// makeEvalSrcFn creates the "eval_src" host function.
//
// eval_src(source, language) → string
//
// Concretely evaluates a source snippet and returns the rendered value.
func makeEvalSrcFn() *object.Builtin {
	return object.NewBuiltin("eval_src", func(ctx context.Context, args ...object.Object) object.Object {
		src, lang, errObj := sourceArgs("eval_src", args)
		if errObj != nil {
			return errObj
		}

		t, err := syntax.FileTerm(ctx, []byte(src), lang)
		if err != nil {
			return object.Errorf("eval_src: %v", err)
		}

		ectx := eval.NewContext()
		ectx.SetGlobal(eval.EmptyEnvironment())
		v, err := eval.Evaluate(ectx, concrete.New(), t)
		if err != nil {
			return object.Errorf("eval_src: %v", err)
		}
		return object.NewString(fmt.Sprintf("%v", v))
	})
}

func sourceArgs(name string, args []object.Object) (string, string, object.Object) {
	if len(args) != 2 {
		return "", "", object.NewArgsError(name, 2, len(args))
	}
	src, ok := args[0].(*object.String)
	if !ok {
		return "", "", object.Errorf("%s: source must be a string, got %s", name, args[0].Type())
	}
	lang, ok := args[1].(*object.String)
	if !ok {
		return "", "", object.Errorf("%s: language must be a string, got %s", name, args[1].Type())
	}
	return src.Value(), lang.Value(), nil
}

// makeFilesFn creates the "files" host function returning all analyzed files.
func makeFilesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		files, err := s.AllFiles()
		if err != nil {
			return object.Errorf("files: %v", err)
		}
		return filesToList(files)
	})
}

// makeFilesByLanguageFn creates "files_by_language".
//
// files_by_language(language) → list of file maps
func makeFilesByLanguageFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("files_by_language", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("files_by_language", 1, len(args))
		}
		lang, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("files_by_language: expected string, got %s", args[0].Type())
		}
		files, err := s.FilesByLanguage(lang.Value())
		if err != nil {
			return object.Errorf("files_by_language: %v", err)
		}
		return filesToList(files)
	})
}

// makeAnalysesFn creates "analyses".
//
// analyses(file_id) → list of analysis maps
func makeAnalysesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("analyses", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("analyses", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("analyses: %v", err)
		}
		rows, queryErr := s.AnalysesByFile(fileID)
		if queryErr != nil {
			return object.Errorf("analyses: %v", queryErr)
		}

		var results []object.Object
		for _, a := range rows {
			results = append(results, object.NewMap(map[string]object.Object{
				"id":          object.NewInt(a.ID),
				"file_id":     object.NewInt(a.FileID),
				"domain":      object.NewString(a.Domain),
				"result":      object.NewString(a.Result),
				"duration_us": object.NewInt(a.Duration.Microseconds()),
			}))
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// makeDiagnosticsFn creates "diagnostics".
//
// diagnostics(file_id) → list of diagnostic maps
func makeDiagnosticsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("diagnostics", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("diagnostics", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("diagnostics: %v", err)
		}
		rows, queryErr := s.DiagnosticsByFile(fileID)
		if queryErr != nil {
			return object.Errorf("diagnostics: %v", queryErr)
		}

		var results []object.Object
		for _, d := range rows {
			results = append(results, object.NewMap(map[string]object.Object{
				"id":      object.NewInt(d.ID),
				"file_id": object.NewInt(d.FileID),
				"domain":  object.NewString(d.Domain),
				"kind":    object.NewString(d.Kind),
				"message": object.NewString(d.Message),
			}))
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// makeTypeOfFn creates "type_of".
//
// type_of(path) → string
//
// Returns the stored type-domain result for a file, or nil if the file
// has no type analysis.
func makeTypeOfFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("type_of", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("type_of", 1, len(args))
		}
		path, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("type_of: expected string, got %s", args[0].Type())
		}

		f, err := s.FileByPath(path.Value())
		if err != nil {
			return object.Errorf("type_of: %v", err)
		}
		if f == nil {
			return object.Errorf("type_of: no analyzed file %q", path.Value())
		}
		rows, err := s.AnalysesByFile(f.ID)
		if err != nil {
			return object.Errorf("type_of: %v", err)
		}
		for _, a := range rows {
			if a.Domain == "type" {
				return object.NewString(a.Result)
			}
		}
		return object.Nil
	})
}

// makeReportFn creates "report", which records a policy finding as a
// diagnostic with domain "policy".
//
// report({"file_id": ..., "kind": ..., "message": ...}) → int
func makeReportFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("report", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("report: %v", err)
		}

		d := &store.Diagnostic{
			FileID:  getInt64(m, "file_id"),
			Domain:  "policy",
			Kind:    getStringDefault(m, "kind", "PolicyViolation"),
			Message: getString(m, "message"),
		}
		id, insertErr := s.InsertDiagnostic(d)
		if insertErr != nil {
			return object.Errorf("report: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

// filesToList converts a slice of store.File to a Risor list of maps.
func filesToList(files []*store.File) object.Object {
	var results []object.Object
	for _, f := range files {
		results = append(results, object.NewMap(map[string]object.Object{
			"id":         object.NewInt(f.ID),
			"path":       object.NewString(f.Path),
			"language":   object.NewString(f.Language),
			"hash":       object.NewString(f.Hash),
			"line_count": object.NewInt(int64(f.LineCount)),
		}))
	}
	if results == nil {
		results = []object.Object{}
	}
	return object.NewList(results)
}

// --- Map extraction helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getStringDefault(m map[string]object.Object, key, def string) string {
	v := getString(m, key)
	if v == "" {
		return def
	}
	return v
}

func getInt64(m map[string]object.Object, key string) int64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	if i, ok := v.(*object.Int); ok {
		return i.Value()
	}
	if f, ok := v.(*object.Float); ok {
		return int64(f.Value())
	}
	return 0
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

type logObject struct {
	prefix string
}

func (l *logObject) Info(msg string) {
	fmt.Printf("[%s] INFO: %s\n", l.prefix, msg)
}

func (l *logObject) Warn(msg string) {
	fmt.Printf("[%s] WARN: %s\n", l.prefix, msg)
}

func (l *logObject) Error(msg string) {
	fmt.Printf("[%s] ERROR: %s\n", l.prefix, msg)
}
