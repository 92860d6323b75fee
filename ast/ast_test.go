package ast

import (
	"testing"

	"github.com/slc-lang/slc/token"
	"github.com/slc-lang/slc/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeLookupWalksParents(t *testing.T) {
	global := NewScope(nil)
	inner := NewScope(global)

	x := New(KindVariableDefinition, "x", token.Position{})
	global.DefineVariable(x)
	f := New(KindFunctionDefinition, "f", token.Position{})
	global.DefineFunction(f)

	assert.Same(t, x, inner.LookupVariable("x"))
	assert.Same(t, f, inner.LookupFunction("f"))
	assert.Same(t, x, inner.LookupDefinition("x"))
	assert.Nil(t, inner.LookupVariable("y"))

	// same-scope check does not walk parents
	assert.Nil(t, inner.HasVariable("x"))
	assert.NotNil(t, global.HasDefinition("f"))
}

func TestScopeFirstHitWins(t *testing.T) {
	global := NewScope(nil)
	inner := NewScope(global)

	outer := New(KindVariableDefinition, "x", token.Position{})
	shadow := New(KindFormal, "x", token.Position{})
	global.DefineVariable(outer)
	inner.DefineVariable(shadow)

	assert.Same(t, shadow, inner.LookupVariable("x"))
	assert.Same(t, outer, global.LookupVariable("x"))
}

func TestIsAncestorOf(t *testing.T) {
	root := NewRoot()
	fn := New(KindFunctionDefinition, "f", token.Position{})
	body := New(KindFunctionBody, "body", token.Position{})
	call := New(KindFunctionCall, "f", token.Position{})
	root.AddChild(fn)
	fn.AddChild(body)
	body.AddChild(call)

	assert.True(t, fn.IsAncestorOf(call))
	assert.True(t, fn.IsAncestorOf(fn))
	assert.False(t, call.IsAncestorOf(fn))
}

func TestFQN(t *testing.T) {
	root := NewRoot()
	fn := New(KindFunctionDefinition, "f", token.Position{})
	body := New(KindFunctionBody, "body", token.Position{})
	lit := New(KindLiteral, "string", token.Position{})
	root.AddChild(fn)
	fn.AddChild(body)
	body.AddChild(lit)

	assert.Equal(t, "f.body.string", lit.FQN("."))
}

func TestVisitStates(t *testing.T) {
	n := New(KindLiteral, "", token.Position{})
	assert.False(t, n.IsVisiting())
	assert.False(t, n.IsVisited())
	n.MarkVisiting()
	assert.True(t, n.IsVisiting())
	n.MarkVisited()
	assert.True(t, n.IsVisited())
	assert.False(t, n.IsVisiting())
}

func TestDump(t *testing.T) {
	root := NewRoot()
	def := New(KindVariableDefinition, "x", token.Position{Line: 1, Column: 1})
	lit := New(KindLiteral, "", token.Position{Line: 1, Column: 11})
	lit.Value = LitValue{Kind: LitInt, Int: 1}
	def.AddChild(lit)
	root.AddChild(def)

	out, err := root.Dump()
	require.NoError(t, err)
	assert.Contains(t, out, "Root:")
	assert.Contains(t, out, "variable_definition(x)")
	assert.Contains(t, out, "1")
}

func TestListAccessors(t *testing.T) {
	cell := New(KindList, "list", token.Position{})
	head := New(KindLiteral, "", token.Position{})
	tail := New(KindList, "list", token.Position{})
	tailHead := New(KindLiteral, "", token.Position{})
	tail.AddChild(tailHead)
	cell.AddChild(head)
	cell.AddChild(tail)

	assert.Same(t, head, cell.Head())
	assert.Same(t, tail, cell.Tail())
	assert.Nil(t, tail.Tail())
}

func TestCallableAccessors(t *testing.T) {
	fn := New(KindFunctionDefinition, "f", token.Position{})
	formal := New(KindFormal, "x", token.Position{})
	formal.Type = types.New(types.Int)
	body := New(KindFunctionBody, "body", token.Position{})
	fn.AddChild(formal)
	fn.AddChild(body)

	require.Len(t, fn.Formals(), 1)
	assert.Same(t, formal, fn.Formals()[0])
	assert.Same(t, body, fn.Body())
}
