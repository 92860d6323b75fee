package parser

import (
	"testing"

	"github.com/slc-lang/slc/ast"
	"github.com/slc-lang/slc/lexer"
	"github.com/slc-lang/slc/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) *ast.Node {
	t.Helper()
	p := New(lexer.New(input))
	root := p.Parse()
	require.Empty(t, p.Errors())
	return root
}

// userForms strips the builtin extern declarations off the root children.
func userForms(root *ast.Node) []*ast.Node {
	return root.Children[len(Builtins()):]
}

func TestParseFunctionDefinition(t *testing.T) {
	root := mustParse(t, `(define (sq x:int) (* x x))`)
	forms := userForms(root)
	require.Len(t, forms, 1)

	fn := forms[0]
	assert.Equal(t, ast.KindFunctionDefinition, fn.Kind)
	assert.Equal(t, "sq", fn.Name)
	require.Len(t, fn.Formals(), 1)
	formal := fn.Formals()[0]
	assert.Equal(t, "x", formal.Name)
	require.NotNil(t, formal.Type)
	assert.Equal(t, types.Int, formal.Type.Kind)

	body := fn.Body()
	require.NotNil(t, body)
	require.NotNil(t, body.Return)
	assert.Equal(t, ast.KindListOp, body.Return.Kind)
	assert.Equal(t, ast.OpTimes, body.Return.Op)
}

func TestParseVariableDefinition(t *testing.T) {
	root := mustParse(t, `(define x 1)`)
	def := userForms(root)[0]
	assert.Equal(t, ast.KindVariableDefinition, def.Kind)
	assert.Equal(t, "x", def.Name)
	require.Len(t, def.Children, 1)
	assert.Equal(t, ast.KindLiteral, def.Children[0].Kind)
	assert.Equal(t, int64(1), def.Children[0].Value.Int)
}

func TestParserSetsNoTypesOrScopes(t *testing.T) {
	root := mustParse(t, `(define x 1) (print_int x)`)
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		assert.Nil(t, n.Scope, "scope set on %s", n.Kind)
		// declared types on formals and extern returns are the contract's
		// exceptions
		if n.Kind != ast.KindFormal && n.Kind != ast.KindExternFunction {
			assert.Nil(t, n.Type, "type set on %s", n.Kind)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
}

func TestParseListLiteral(t *testing.T) {
	root := mustParse(t, `(list 1 2 3)`)
	l := userForms(root)[0]
	require.Equal(t, ast.KindList, l.Kind)

	var elems []int64
	for cell := l; cell != nil; cell = cell.Tail() {
		elems = append(elems, cell.Head().Value.Int)
	}
	assert.Equal(t, []int64{1, 2, 3}, elems)
}

func TestParseEmptyListIsNil(t *testing.T) {
	root := mustParse(t, `(list)`)
	l := userForms(root)[0]
	assert.Equal(t, ast.KindLiteral, l.Kind)
	assert.Equal(t, ast.LitNil, l.Value.Kind)
}

func TestImplicitListForOperator(t *testing.T) {
	root := mustParse(t, `(* x x)`)
	op := userForms(root)[0]
	require.Equal(t, ast.KindListOp, op.Kind)
	require.Len(t, op.Children, 1)
	assert.Equal(t, ast.KindList, op.Children[0].Kind)
	assert.Equal(t, ast.KindVariable, op.Children[0].Head().Kind)
}

func TestParseIf(t *testing.T) {
	root := mustParse(t, `(if (< 1 2) 3 4)`)
	n := userForms(root)[0]
	require.Equal(t, ast.KindIfExpr, n.Kind)
	require.Len(t, n.Children, 3)
	assert.Equal(t, ast.KindBinaryOp, n.Condition().Kind)
	assert.Equal(t, ast.OpLess, n.Condition().Op)
	assert.Equal(t, int64(3), n.Affirmative().Value.Int)
	assert.Equal(t, int64(4), n.Else().Value.Int)
}

func TestParseGreaterThan(t *testing.T) {
	root := mustParse(t, `(> 2 1)`)
	n := userForms(root)[0]
	require.Equal(t, ast.KindBinaryOp, n.Kind)
	assert.Equal(t, ast.OpGreater, n.Op)
}

func TestParseDoLoop(t *testing.T) {
	root := mustParse(t, `(do ((i in (list 1 2 3))) (print_int i))`)
	loop := userForms(root)[0]
	require.Equal(t, ast.KindDoLoop, loop.Kind)

	iter := loop.Iterator()
	require.NotNil(t, iter)
	assert.Equal(t, "i", iter.Name)
	require.Len(t, iter.Children, 1)
	assert.Equal(t, ast.KindList, iter.Children[0].Kind)

	body := loop.LoopBody()
	require.NotNil(t, body)
	require.NotNil(t, body.Return)
	assert.Equal(t, ast.KindFunctionCall, body.Return.Kind)
}

func TestParseCollectLoop(t *testing.T) {
	root := mustParse(t, `(collect ((i in (list 1 2))) (* i i))`)
	loop := userForms(root)[0]
	assert.Equal(t, ast.KindCollectLoop, loop.Kind)
	assert.NotNil(t, loop.Iterator())
	assert.NotNil(t, loop.LoopBody())
}

func TestParseLambda(t *testing.T) {
	root := mustParse(t, `(define f (lambda (x:int) (* x x)))`)
	def := userForms(root)[0]
	require.Equal(t, ast.KindVariableDefinition, def.Kind)
	lam := def.Children[0]
	require.Equal(t, ast.KindLambda, lam.Kind)
	assert.NotEmpty(t, lam.Name)
	assert.Len(t, lam.Formals(), 1)
	assert.NotNil(t, lam.Body())
}

func TestLambdaNamesAreUnique(t *testing.T) {
	root := mustParse(t, `(define f (lambda (x:int) x)) (define g (lambda (y:int) y))`)
	forms := userForms(root)
	assert.NotEqual(t, forms[0].Children[0].Name, forms[1].Children[0].Name)
}

func TestParseExtern(t *testing.T) {
	root := mustParse(t, `(extern my_fn (a:int b:float) float)`)
	fn := userForms(root)[0]
	require.Equal(t, ast.KindExternFunction, fn.Kind)
	assert.Equal(t, "my_fn", fn.Name)
	require.Len(t, fn.Formals(), 2)
	assert.Equal(t, types.Float, fn.Formals()[1].Type.Kind)
	require.NotNil(t, fn.Type)
	assert.Equal(t, types.Float, fn.Type.Kind)
	assert.Nil(t, fn.Body())
}

func TestParseNestedListType(t *testing.T) {
	root := mustParse(t, `(define (f l:list<list<int>>) l)`)
	formal := userForms(root)[0].Formals()[0]
	require.NotNil(t, formal.Type)
	assert.Equal(t, "list<list<int>>", formal.Type.String())
}

func TestBuiltinsArePrepended(t *testing.T) {
	root := mustParse(t, `(define x 1)`)
	require.GreaterOrEqual(t, len(root.Children), 3)
	assert.Equal(t, ast.KindExternFunction, root.Children[0].Kind)
	assert.Equal(t, "print_int", root.Children[0].Name)
	assert.Equal(t, "print_double", root.Children[1].Name)
}

func TestLocationsAreSet(t *testing.T) {
	root := mustParse(t, "(define x 1)\n(define y 2)")
	forms := userForms(root)
	assert.Equal(t, 1, forms[0].Pos.Line)
	assert.Equal(t, 2, forms[1].Pos.Line)
}

func TestParseErrorHasPosition(t *testing.T) {
	p := New(lexer.New(`(define 1 2)`))
	p.Parse()
	require.NotEmpty(t, p.Errors())
	assert.True(t, p.Errors()[0].Pos.IsValid())
}

func TestSetExpression(t *testing.T) {
	root := mustParse(t, `(set x 5)`)
	n := userForms(root)[0]
	require.Equal(t, ast.KindSetExpression, n.Kind)
	assert.Equal(t, "x", n.Name)
	require.Len(t, n.Children, 1)
}

func TestParentLinks(t *testing.T) {
	root := mustParse(t, `(if (< 1 2) 3 4)`)
	n := userForms(root)[0]
	assert.Same(t, root, n.Parent)
	for _, c := range n.Children {
		assert.Same(t, n, c.Parent)
	}
}
