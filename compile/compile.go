// Package compile wires the lexer, parser, semantic analyzer and bytecode
// emitter into one pipeline (spec.md §2): source text in, a finished
// bytecode buffer (or accumulated diagnostics) out. It is the one place
// that knows the full pass order; callers needing less (e.g. a
// syntax-check-only tool) can use the sub-packages directly.
package compile

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/f12lang/f12/internal/ast"
	"github.com/f12lang/f12/internal/diag"
	"github.com/f12lang/f12/internal/emitter"
	"github.com/f12lang/f12/internal/lexer"
	"github.com/f12lang/f12/internal/panicerr"
	"github.com/f12lang/f12/internal/parser"
	"github.com/f12lang/f12/internal/sema"
	"github.com/f12lang/f12/internal/source"
)

// options collects the pipeline's configurable knobs, set via Option values
// modeled directly on the teacher's VMOption/New pattern (api.go/options.go).
type options struct {
	includeDirs []string
}

// Option configures Compile.
type Option func(*options)

// WithIncludeDirs adds search directories consulted for `>include "path";`
// after the including file's own directory (SPEC_FULL.md §3's include-path
// supplement, implemented by internal/sema/include.go).
func WithIncludeDirs(dirs ...string) Option {
	return func(o *options) { o.includeDirs = append(o.includeDirs, dirs...) }
}

// Result is the outcome of a successful Compile: the finished bytecode
// buffer plus the resolved, type-annotated program it was lowered from (the
// latter mainly useful to callers that want to inspect declarations, e.g.
// a future pretty-printer, without re-running the front end).
type Result struct {
	Code    []byte
	Program *ast.Program
}

// Compile runs the full pipeline (spec.md §4: lex, parse, the three
// semantic passes, then emission) over the named source text. name is used
// only for diagnostics and to resolve relative includes against its
// directory; it need not be a real path when src comes from memory.
//
// Lexing and parsing errors are fatal and returned immediately. Semantic
// errors accumulate (spec.md §4.3: "emission is skipped if the counter is
// nonzero") and are returned together as a SemaErrors once the counter is
// nonzero, without attempting emission. An emitter panic -- an internal
// invariant violation, never a user error -- is recovered via
// internal/panicerr and returned as a normal error rather than crashing the
// host process.
func Compile(name, src string, opts ...Option) (Result, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	in := &source.Input{}
	in.Push(source.NewNamedString(name, src))
	lx := lexer.New(in)
	p := parser.New(lx, in)

	prog, err := p.ParseProgram()
	if err != nil {
		return Result{}, err
	}

	baseDir := filepath.Dir(name)
	result, err := sema.Analyze(prog, baseDir, o.includeDirs)
	if err != nil {
		return Result{}, err
	}
	if result.Errors.Count() > 0 {
		return Result{}, SemaErrors{Diagnostics: result.Errors.Diagnostics()}
	}

	var code []byte
	if err := panicerr.Recover("emitter.Emit", func() error {
		c, emitErr := emitter.Emit(result.Program)
		if emitErr != nil {
			return emitErr
		}
		code = c
		return nil
	}); err != nil {
		return Result{}, err
	}

	return Result{Code: code, Program: result.Program}, nil
}

// SemaErrors wraps every diagnostic the semantic passes accumulated in one
// run (spec.md §7 taxonomy 3: many are reported, none individually fatal).
type SemaErrors struct {
	Diagnostics []diag.Diagnostic
}

func (e SemaErrors) Error() string {
	if len(e.Diagnostics) == 1 {
		return e.Diagnostics[0].Error()
	}
	return fmt.Sprintf("%d semantic errors, first: %s", len(e.Diagnostics), e.Diagnostics[0].Error())
}

// CompileFile reads path and compiles it, using its own directory as the
// base for relative includes -- the common case for a CLI driver.
func CompileFile(r io.Reader, path string, opts ...Option) (Result, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("compile: cannot read %s: %w", path, err)
	}
	return Compile(path, string(src), opts...)
}
