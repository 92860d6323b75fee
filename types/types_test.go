package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversionTable(t *testing.T) {
	numericAndBool := []*Type{IntType, FloatType, BoolType}
	for _, from := range numericAndBool {
		for _, to := range []*Type{IntType, FloatType, BoolType, StringType} {
			assert.True(t, from.ConvertsTo(to), "%s -> %s", from, to)
		}
		assert.False(t, from.ConvertsTo(LambdaType), "%s -> lambda", from)
		assert.False(t, from.ConvertsTo(NilType), "%s -> nil", from)
		assert.False(t, from.ConvertsTo(NewList(IntType)), "%s -> list<int>", from)
	}

	assert.True(t, StringType.ConvertsTo(BoolType))
	assert.True(t, StringType.ConvertsTo(StringType))
	assert.False(t, StringType.ConvertsTo(IntType))
	assert.False(t, StringType.ConvertsTo(FloatType))

	assert.True(t, LambdaType.ConvertsTo(LambdaType))
	assert.False(t, LambdaType.ConvertsTo(BoolType))

	assert.True(t, NilType.ConvertsTo(BoolType))
	assert.False(t, NilType.ConvertsTo(IntType))
	assert.False(t, NilType.ConvertsTo(StringType))

	assert.True(t, NewList(IntType).ConvertsTo(BoolType))
	assert.False(t, NewList(IntType).ConvertsTo(IntType))

	for _, to := range []*Type{IntType, FloatType, BoolType, StringType, NilType} {
		assert.False(t, InvalidType.ConvertsTo(to), "invalid -> %s", to)
	}
}

func TestConversionReflexive(t *testing.T) {
	primitives := []*Type{IntType, FloatType, StringType, BoolType, LambdaType}
	for _, p := range primitives {
		assert.True(t, p.ConvertsTo(p), "%s -> %s", p, p)
	}
	assert.True(t, NewList(IntType).ConvertsTo(NewList(IntType)))
	assert.True(t, NewList(NewList(FloatType)).ConvertsTo(NewList(NewList(FloatType))))
}

func TestListConversionIsElementwise(t *testing.T) {
	// list(T) -> list(U) iff T -> U
	assert.True(t, NewList(IntType).ConvertsTo(NewList(FloatType)))
	assert.True(t, NewList(FloatType).ConvertsTo(NewList(IntType)))
	assert.True(t, NewList(IntType).ConvertsTo(NewList(StringType)))
	assert.False(t, NewList(StringType).ConvertsTo(NewList(IntType)))
	assert.False(t, NewList(NilType).ConvertsTo(NewList(IntType)))
	assert.True(t, NewList(NewList(IntType)).ConvertsTo(NewList(NewList(FloatType))))
}

func TestStructuralEquality(t *testing.T) {
	assert.True(t, IntType.Equal(New(Int)))
	assert.False(t, IntType.Equal(FloatType))
	assert.True(t, NewList(IntType).Equal(NewList(IntType)))
	assert.False(t, NewList(IntType).Equal(NewList(FloatType)))
	assert.True(t, NewList(NewList(IntType)).Equal(NewList(NewList(IntType))))
	assert.False(t, NewList(NewList(IntType)).Equal(NewList(IntType)))
}

func TestCopyIsDeep(t *testing.T) {
	orig := NewList(NewList(IntType))
	cp := orig.Copy()
	require.True(t, orig.Equal(cp))

	cp.Subtype.Subtype.Kind = Float
	assert.Equal(t, Int, orig.Subtype.Subtype.Kind)
	assert.False(t, orig.Equal(cp))
}

func TestString(t *testing.T) {
	assert.Equal(t, "int", IntType.String())
	assert.Equal(t, "list<int>", NewList(IntType).String())
	assert.Equal(t, "list<list<float>>", NewList(NewList(FloatType)).String())
}

func TestSubtypeInvariant(t *testing.T) {
	// subtype is non-nil iff the tag is List
	assert.Nil(t, IntType.Subtype)
	require.NotNil(t, NewList(IntType).Subtype)
	assert.Equal(t, Int, NewList(IntType).Subtype.Kind)
}
