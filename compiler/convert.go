package compiler

import (
	"github.com/slc-lang/slc/ast"
	"github.com/slc-lang/slc/token"
	"github.com/slc-lang/slc/types"
	"tinygo.org/x/go-llvm"
)

// visitConverted lowers n and converts the result to the target type.
func (c *Compiler) visitConverted(n *ast.Node, target *types.Type) (llvm.Value, error) {
	val, err := c.visit(n)
	if err != nil {
		return llvm.Value{}, err
	}
	return c.maybeConvert(val, n.Type, target, n.Pos)
}

// maybeConvert inserts a numeric or truthiness conversion when the source
// and target types differ. Conversions the table does not allow are errors.
func (c *Compiler) maybeConvert(val llvm.Value, from, to *types.Type, pos token.Position) (llvm.Value, error) {
	if from.Kind == to.Kind {
		if from.Kind == types.List && !from.Equal(to) {
			return llvm.Value{}, token.Errorf(pos,
				"unimplemented conversion between list types '%s' and '%s'", from, to)
		}
		return val, nil
	}
	switch to.Kind {
	case types.Int:
		return c.convertToInt(val, from, pos)
	case types.Float:
		return c.convertToFloat(val, from, pos)
	case types.Bool:
		return c.convertToBool(val, from, pos)
	}
	return llvm.Value{}, token.Errorf(pos, "cannot convert type '%s' to '%s'", from, to)
}

func (c *Compiler) convertToInt(val llvm.Value, from *types.Type, pos token.Position) (llvm.Value, error) {
	i64 := c.Context.Int64Type()
	switch from.Kind {
	case types.Int:
		return val, nil
	case types.Bool:
		return c.builder.CreateZExt(val, i64, "inttmp"), nil
	case types.Float:
		return c.builder.CreateFPToSI(val, i64, "inttmp"), nil
	}
	return llvm.Value{}, token.Errorf(pos, "conversion from invalid type '%s'", from)
}

func (c *Compiler) convertToFloat(val llvm.Value, from *types.Type, pos token.Position) (llvm.Value, error) {
	f64 := c.Context.DoubleType()
	switch from.Kind {
	case types.Float:
		return val, nil
	case types.Int:
		return c.builder.CreateSIToFP(val, f64, "doubletmp"), nil
	case types.Bool:
		return c.builder.CreateUIToFP(val, f64, "booltmp"), nil
	case types.String:
		return llvm.Value{}, token.Errorf(pos, "strings are not implemented in float conversion")
	}
	return llvm.Value{}, token.Errorf(pos, "conversion from invalid type '%s'", from)
}

// convertToBool is truthiness by value: nonzero numbers and non-null
// pointers are true.
func (c *Compiler) convertToBool(val llvm.Value, from *types.Type, pos token.Position) (llvm.Value, error) {
	switch from.Kind {
	case types.Bool:
		return val, nil
	case types.Int:
		zero := llvm.ConstInt(c.Context.Int64Type(), 0, false)
		return c.builder.CreateICmp(llvm.IntNE, val, zero, "booltmp"), nil
	case types.Float:
		return c.builder.CreateFPToUI(val, c.Context.Int1Type(), "booltmp"), nil
	case types.String, types.List, types.Nil:
		null := llvm.ConstPointerNull(llvm.PointerType(c.Context.Int8Type(), 0))
		return c.builder.CreateICmp(llvm.IntNE, val, null, "booltmp"), nil
	}
	return llvm.Value{}, token.Errorf(pos, "conversion from invalid type '%s'", from)
}

// adjustIntWidth reconciles an integer value with the expected integer
// width, sign-extending or truncating as needed. Non-integers pass through.
func (c *Compiler) adjustIntWidth(val llvm.Value, expected llvm.Type) llvm.Value {
	actual := val.Type()
	if actual.TypeKind() != llvm.IntegerTypeKind || expected.TypeKind() != llvm.IntegerTypeKind {
		return val
	}
	aw, ew := actual.IntTypeWidth(), expected.IntTypeWidth()
	if aw == ew {
		return val
	}
	if aw < ew {
		return c.builder.CreateSExt(val, expected, "rettmp")
	}
	return c.builder.CreateTrunc(val, expected, "rettmp")
}
