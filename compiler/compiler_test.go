package compiler

import (
	"strings"
	"testing"

	"github.com/slc-lang/slc/ast"
	"github.com/slc-lang/slc/lexer"
	"github.com/slc-lang/slc/parser"
	"github.com/slc-lang/slc/sema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/go-llvm"
)

func analyzeSource(t *testing.T, input string) *ast.Node {
	t.Helper()
	p := parser.New(lexer.New(input))
	root := p.Parse()
	require.Empty(t, p.Errors())
	require.NoError(t, sema.NewAnalyzer().Analyze(root))
	return root
}

// compileSource lowers the input and verifies the module, so every test
// also exercises the LLVM verifier on the produced IR.
func compileSource(t *testing.T, name, input string) string {
	t.Helper()
	root := analyzeSource(t, input)

	ctx := llvm.NewContext()
	defer ctx.Dispose()
	c := NewCompiler(ctx, name)
	require.NoError(t, c.Compile(root))
	require.NoError(t, c.Verify())
	return c.GenerateIR()
}

// compileError runs lowering on an analyzable program and returns the
// generator's error.
func compileError(t *testing.T, name, input string) error {
	t.Helper()
	root := analyzeSource(t, input)

	ctx := llvm.NewContext()
	defer ctx.Dispose()
	c := NewCompiler(ctx, name)
	return c.Compile(root)
}

func TestRuntimeDeclarations(t *testing.T) {
	ir := compileSource(t, "testRuntimeDecls", `(define x 1)`)
	for _, name := range []string{
		"slc_int_list_create", "slc_int_list_destroy", "slc_int_list_init",
		"slc_int_list_fini", "slc_int_list_set_head", "slc_int_list_set_tail",
		"slc_int_list_car", "slc_int_list_cdr", "slc_int_list_cons",
		"slc_int_list_append", "slc_int_list_add", "slc_int_list_subtract",
		"slc_int_list_multiply", "slc_int_list_divide",
		"slc_double_list_create", "slc_double_list_cons", "slc_double_list_add",
		"print_int", "print_double",
	} {
		assert.Contains(t, ir, "declare", "no extern declarations emitted")
		assert.Contains(t, ir, "@"+name, "missing runtime declaration %s", name)
	}
}

func TestSquareFunction(t *testing.T) {
	ir := compileSource(t, "testSquare", `(define (sq x:int) (* x x)) (print_int (sq 7))`)
	assert.Contains(t, ir, "@sq(i64 %x)")
	assert.Contains(t, ir, "@slc_int_list_multiply")
	assert.Contains(t, ir, "call i32 @print_int")
	assert.Contains(t, ir, "define i32 @main()")
	// function bodies are kept out of the optimizer's reach
	assert.Contains(t, ir, "noinline")
	assert.Contains(t, ir, "optnone")
}

func TestRecursiveFactorial(t *testing.T) {
	ir := compileSource(t, "testFact",
		`(define (fact n:int) (if (< n 2) 1 (* n (fact (- n 1))))) (print_int (fact 5))`)
	assert.Contains(t, ir, "@fact(i64 %n)")
	// the if expression merges through a PHI in the cont block
	assert.Contains(t, ir, "phi")
	assert.Contains(t, ir, "then:")
	assert.Contains(t, ir, "else:")
	assert.Contains(t, ir, "cont:")
	assert.Contains(t, ir, "icmp slt")
}

func TestIntListSum(t *testing.T) {
	ir := compileSource(t, "testIntSum", `(print_int (+ (list 1 2 3 4)))`)
	assert.Contains(t, ir, "@slc_int_list_create")
	assert.Contains(t, ir, "@slc_int_list_init")
	assert.Contains(t, ir, "@slc_int_list_set_head")
	assert.Contains(t, ir, "@slc_int_list_cons")
	assert.Contains(t, ir, "@slc_int_list_add")
	assert.Contains(t, ir, "call i32 @print_int")
}

func TestDoubleListSum(t *testing.T) {
	ir := compileSource(t, "testDoubleSum", `(print_double (+ (list 1.0 2.5 3.5)))`)
	assert.Contains(t, ir, "@slc_double_list_create")
	assert.Contains(t, ir, "@slc_double_list_add")
	assert.Contains(t, ir, "call i64 @print_double")
	assert.Contains(t, ir, "double 2.5")
}

func TestListElementsAreConverted(t *testing.T) {
	// int elements flow into a float list through sitofp
	ir := compileSource(t, "testListConv",
		`(define (f x:int) (+ (list 1.0 x))) (print_double (f 2))`)
	assert.Contains(t, ir, "sitofp")
}

func TestDoLoop(t *testing.T) {
	ir := compileSource(t, "testDoLoop", `(do ((i in (list 1 2 3))) (print_int i))`)
	assert.Contains(t, ir, "check:")
	assert.Contains(t, ir, "loopbody:")
	assert.Contains(t, ir, "loopend:")
	assert.Contains(t, ir, "@slc_int_list_car")
	assert.Contains(t, ir, "@slc_int_list_cdr")
	assert.Contains(t, ir, "loopret.mem")
	assert.Contains(t, ir, "list_tail.mem")
}

func TestCollectLoop(t *testing.T) {
	ir := compileSource(t, "testCollect", `(collect ((i in (list 1 2))) (* i i))`)
	assert.Contains(t, ir, "@slc_int_list_append")
	assert.Contains(t, ir, "check:")
	assert.Contains(t, ir, "loopend:")
}

func TestGlobalVariable(t *testing.T) {
	ir := compileSource(t, "testGlobal", `(define x 1) (print_int x)`)
	assert.Contains(t, ir, "@x = common global i64")
}

func TestLocalVariableUsesAlloca(t *testing.T) {
	ir := compileSource(t, "testLocal", `(define (f a:int) (define b (* a a)) (+ (list a b)))`)
	assert.Contains(t, ir, "alloca")
	assert.Contains(t, ir, "b.mem")
}

func TestSetExpression(t *testing.T) {
	ir := compileSource(t, "testSet", `(define x 1) (set x 5) (print_int x)`)
	assert.Contains(t, ir, "store i64 5")
}

func TestConsCall(t *testing.T) {
	ir := compileSource(t, "testCons", `(print_int (car (cons 0 (list 1 2))))`)
	assert.Contains(t, ir, "@slc_int_list_cons")
	assert.Contains(t, ir, "@slc_int_list_car")
}

func TestCarLoadsThroughPointer(t *testing.T) {
	ir := compileSource(t, "testCar", `(print_int (car (list 7 8)))`)
	// car returns a pointer to the element; the value is loaded out
	assert.Contains(t, ir, "@slc_int_list_car")
	assert.Contains(t, ir, "load i64")
}

func TestIfConversionToResultType(t *testing.T) {
	// else branch is float, if type is int: the branch converts via fptosi
	ir := compileSource(t, "testIfConv",
		`(define (g n:int) (if (< n 2) 3 (/ (list 2.5 0.5)))) (print_int (g 5))`)
	assert.Contains(t, ir, "fptosi")
	assert.Contains(t, ir, "phi i64")
}

func TestFloatComparison(t *testing.T) {
	ir := compileSource(t, "testFCmp",
		`(define (f x:float) (if (< x 2.5) 1 0)) (print_int (f 1.5))`)
	assert.Contains(t, ir, "fcmp ult")
}

func TestNilComparison(t *testing.T) {
	ir := compileSource(t, "testNilCmp", `(print_int (if (= nil (cdr (list 1))) 1 0))`)
	assert.Contains(t, ir, "icmp eq ptr")
}

func TestStringLiteralGlobal(t *testing.T) {
	ir := compileSource(t, "testStr", `(print "value: %ld\n" 42)`)
	assert.Contains(t, ir, "private constant")
	assert.Contains(t, ir, `c"value: %ld\0A\00"`)
	assert.Contains(t, ir, "@printf")
}

func TestLambdaLowering(t *testing.T) {
	ir := compileSource(t, "testLambda", `(define f (lambda (x:int) (* x x))) (print_int (f 3))`)
	assert.Contains(t, ir, "@lambda_0(i64 %x)")
	assert.Contains(t, ir, "call i64 @lambda_0")
}

func TestNestedLambdaRestoresInsertPoint(t *testing.T) {
	// the lambda is emitted while main is being lowered; the print after it
	// must land back in main
	ir := compileSource(t, "testNested",
		`(define f (lambda (x:int) x)) (print_int (f 1)) (print_int 2)`)
	mainIdx := strings.Index(ir, "define i32 @main()")
	require.GreaterOrEqual(t, mainIdx, 0)
	mainBody := ir[mainIdx:]
	assert.Equal(t, 2, strings.Count(mainBody[:strings.Index(mainBody, "\n}")], "@print_int"))
}

func TestUserExtern(t *testing.T) {
	ir := compileSource(t, "testExtern", `(extern my_fn (a:int) int) (print_int (my_fn 1))`)
	assert.Contains(t, ir, "declare i64 @my_fn(i64)")
	assert.Contains(t, ir, "call i64 @my_fn")
}

func TestPrintIntReturnWidens(t *testing.T) {
	// print_int declares i32 per the runtime ABI; the language-level int is
	// i64, so call results widen before use
	ir := compileSource(t, "testWiden", `(do ((i in (list 1))) (print_int i))`)
	assert.Contains(t, ir, "sext i32")
}

func TestGlobalListsRejected(t *testing.T) {
	err := compileError(t, "testGlobalList", `(define l (list 1 2))`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "global lists are unimplemented")
}

func TestWhenLoopRejected(t *testing.T) {
	err := compileError(t, "testWhen", `(when (< 1 2) (print_int 1))`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'when' loops are not supported")
}

func TestInfiniteLoopRejected(t *testing.T) {
	err := compileError(t, "testLoop", `(loop (print_int 1))`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "infinite loops are not supported")
}

func TestLogicalListOpRejected(t *testing.T) {
	err := compileError(t, "testLogical", `(print_int (if (and (list 1 2)) 1 0))`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported by the code generator")
}
