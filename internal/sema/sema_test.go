package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f12lang/f12/internal/ast"
	"github.com/f12lang/f12/internal/diag"
	"github.com/f12lang/f12/internal/lexer"
	"github.com/f12lang/f12/internal/parser"
	"github.com/f12lang/f12/internal/source"
)

func parseSrc(t *testing.T, src string) *ast.Program {
	t.Helper()
	in := &source.Input{}
	in.Push(source.NewNamedString("test.f12", src))
	lx := lexer.New(in)
	p := parser.New(lx, in)
	prog, err := p.ParseProgram()
	require.NoError(t, err)
	return prog
}

func analyze(t *testing.T, src string) Result {
	t.Helper()
	prog := parseSrc(t, src)
	result, err := Analyze(prog, ".", nil)
	require.NoError(t, err)
	return result
}

func diagKinds(diags []diag.Diagnostic) []diag.Kind {
	ks := make([]diag.Kind, len(diags))
	for i, d := range diags {
		ks[i] = d.Kind
	}
	return ks
}

func TestAnalyze_wellTypedProgramHasNoErrors(t *testing.T) {
	result := analyze(t, `
fun fib(int n) => int {
	if n < 2 {
		ret n;
	}
	ret fib(n - 1) + fib(n - 2);
}

fun main() {
	--> fib(10);
}
`)
	assert.Equal(t, 0, result.Errors.Count())
}

func TestAnalyze_unknownNameIsReportedButDoesNotPanic(t *testing.T) {
	result := analyze(t, `
fun main() {
	--> missing;
}
`)
	require.Equal(t, 1, result.Errors.Count())
	assert.Contains(t, diagKinds(result.Errors.Diagnostics()), diag.Semantic)
}

func TestAnalyze_unknownNameAssignmentStillTypeChecksWithoutPanicking(t *testing.T) {
	// declType(nil) must stay safe: name resolution leaves Var.Decl nil on
	// an unresolved reference, and the type checker still runs over it.
	result := analyze(t, `
fun main() {
	missing = 1;
}
`)
	assert.GreaterOrEqual(t, result.Errors.Count(), 1)
}

func TestAnalyze_duplicateDeclarationInSameScopeIsAnError(t *testing.T) {
	result := analyze(t, `
fun main() {
	int i = 0;
	int i = 1;
}
`)
	found := false
	for _, d := range result.Errors.Diagnostics() {
		if d.Kind == diag.Semantic {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyze_typeMismatchOnDeclInitIsReported(t *testing.T) {
	result := analyze(t, `
fun main() {
	int i = "hello";
}
`)
	require.GreaterOrEqual(t, result.Errors.Count(), 1)
	assert.Contains(t, diagKinds(result.Errors.Diagnostics()), diag.TypeError)
}

func TestAnalyze_whileConditionMustBeBool(t *testing.T) {
	result := analyze(t, `
fun main() {
	while 1 {
		break;
	}
}
`)
	assert.Contains(t, diagKinds(result.Errors.Diagnostics()), diag.TypeError)
}

func TestAnalyze_wrongArgumentCountIsAnError(t *testing.T) {
	result := analyze(t, `
fun add(int a, int b) => int {
	ret a + b;
}

fun main() {
	--> add(1);
}
`)
	assert.Contains(t, diagKinds(result.Errors.Diagnostics()), diag.TypeError)
}

func TestAnalyze_missingMainIsAnEntryPointError(t *testing.T) {
	result := analyze(t, `
fun notMain() {
}
`)
	require.Equal(t, 1, result.Errors.Count())
	assert.Equal(t, diag.EntryPt, result.Errors.Diagnostics()[0].Kind)
}

func TestAnalyze_duplicateMainIsAnEntryPointError(t *testing.T) {
	result := analyze(t, `
fun main() { }
fun main() { }
`)
	kinds := diagKinds(result.Errors.Diagnostics())
	assert.Contains(t, kinds, diag.EntryPt)
}

func TestAnalyze_mainWithParamsIsAnEntryPointError(t *testing.T) {
	result := analyze(t, `
fun main(int n) {
}
`)
	found := false
	for _, d := range result.Errors.Diagnostics() {
		if d.Kind == diag.EntryPt {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyze_unitFieldAccessAndCreateUnitAreTypeChecked(t *testing.T) {
	result := analyze(t, `
unit Point {
	int x;
	int y;
}

fun main() {
	Point p = new Point|x: 1, y: 2|;
	--> p.x, p.y;
}
`)
	assert.Equal(t, 0, result.Errors.Count())
}

func TestAnalyze_unitFieldAccessOnUnknownFieldIsAnError(t *testing.T) {
	result := analyze(t, `
unit Point {
	int x;
}

fun main() {
	Point p = new Point|x: 1|;
	--> p.z;
}
`)
	assert.Contains(t, diagKinds(result.Errors.Diagnostics()), diag.TypeError)
}

func TestAnalyze_lenBuiltinRequiresAnArray(t *testing.T) {
	result := analyze(t, `
fun main() {
	int i = 0;
	--> len(i);
}
`)
	assert.Contains(t, diagKinds(result.Errors.Diagnostics()), diag.TypeError)
}

func TestAnalyze_lenBuiltinOnArrayIsFine(t *testing.T) {
	result := analyze(t, `
fun main() {
	int[] a = new int[4];
	--> len(a);
}
`)
	assert.Equal(t, 0, result.Errors.Count())
}

func TestAnalyze_globalAndLocalSlotsAdvanceBySize(t *testing.T) {
	result := analyze(t, `
int g1 = 0;
float g2 = 1.5;

fun main() {
	int a = 0;
	float b = 1.0;
}
`)
	require.Equal(t, 0, result.Errors.Count())

	var globals []*ast.DeclVar
	var main *ast.DeclFun
	for _, d := range result.Program.Decls {
		switch decl := d.(type) {
		case *ast.DeclVar:
			globals = append(globals, decl)
		case *ast.DeclFun:
			main = decl
		}
	}
	require.Len(t, globals, 2)
	assert.Equal(t, 0, globals[0].Slot)
	assert.Equal(t, 4, globals[1].Slot) // g1 is a 4-byte int

	require.NotNil(t, main)
	local0 := main.Body.Stmts[0].(*ast.StmntDeclVar)
	local1 := main.Body.Stmts[1].(*ast.StmntDeclVar)
	assert.Equal(t, 0, local0.Slot)
	assert.Equal(t, 4, local1.Slot)
	assert.Equal(t, 12, main.LocalsSize) // 4-byte int + 8-byte float
}

func TestAnalyze_freeRequiresAHeapReference(t *testing.T) {
	result := analyze(t, `
fun main() {
	int i = 0;
	free i;
}
`)
	assert.Contains(t, diagKinds(result.Errors.Diagnostics()), diag.TypeError)
}

func TestAnalyze_freeOnArrayIsFine(t *testing.T) {
	result := analyze(t, `
fun main() {
	int[] a = new int[4];
	free a;
}
`)
	assert.Equal(t, 0, result.Errors.Count())
}
