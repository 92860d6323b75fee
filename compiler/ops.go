package compiler

import (
	"github.com/slc-lang/slc/ast"
	"github.com/slc-lang/slc/token"
	"github.com/slc-lang/slc/types"
	"tinygo.org/x/go-llvm"
)

// comparison predicate sets, indexed eq, gt, lt, ge, le
var signedPreds = []llvm.IntPredicate{llvm.IntEQ, llvm.IntSGT, llvm.IntSLT, llvm.IntSGE, llvm.IntSLE}
var unsignedPreds = []llvm.IntPredicate{llvm.IntEQ, llvm.IntUGT, llvm.IntULT, llvm.IntUGE, llvm.IntULE}
var floatPreds = []llvm.FloatPredicate{llvm.FloatUEQ, llvm.FloatUGT, llvm.FloatULT, llvm.FloatUGE, llvm.FloatULE}

func predIndex(op ast.OpID) int {
	switch op {
	case ast.OpEqual:
		return 0
	case ast.OpGreater:
		return 1
	case ast.OpLess:
		return 2
	case ast.OpGreaterEq:
		return 3
	case ast.OpLessEq:
		return 4
	}
	return -1
}

// visitBinaryOp lowers cons and the comparisons. Comparisons switch on the
// left-hand type: signed integer, unsigned (bool), float-unordered, or
// pointer (string, list, nil) predicates. For int, bool and float the
// right-hand side is converted to the left-hand type first; pointer
// operands are compared as they are.
func (c *Compiler) visitBinaryOp(n *ast.Node) (llvm.Value, error) {
	lhs, rhs := n.Children[0], n.Children[1]
	if n.Op == ast.OpCons {
		return c.createCons(n, lhs, rhs)
	}
	idx := predIndex(n.Op)
	if idx < 0 {
		return llvm.Value{}, token.InternalErrorf("operator '%s' is not a binary operator", n.Op)
	}

	left, err := c.visit(lhs)
	if err != nil {
		return llvm.Value{}, err
	}

	switch lhs.Type.Kind {
	case types.Int:
		right, err := c.visitConverted(rhs, types.IntType)
		if err != nil {
			return llvm.Value{}, err
		}
		return c.builder.CreateICmp(signedPreds[idx], left, right, "cmptmp"), nil
	case types.Bool:
		right, err := c.visitConverted(rhs, types.BoolType)
		if err != nil {
			return llvm.Value{}, err
		}
		return c.builder.CreateICmp(unsignedPreds[idx], left, right, "cmptmp"), nil
	case types.Float:
		right, err := c.visitConverted(rhs, types.FloatType)
		if err != nil {
			return llvm.Value{}, err
		}
		return c.builder.CreateFCmp(floatPreds[idx], left, right, "cmptmp"), nil
	case types.Nil, types.List, types.String:
		// pointer comparison; nil literals and lists share the opaque
		// pointer representation
		right, err := c.visit(rhs)
		if err != nil {
			return llvm.Value{}, err
		}
		return c.builder.CreateICmp(unsignedPreds[idx], left, right, "cmptmp"), nil
	}
	return llvm.Value{}, token.Errorf(n.Pos, "invalid operands for binary operator '%s'", n.Op)
}

func (c *Compiler) createCons(n, lhs, rhs *ast.Node) (llvm.Value, error) {
	subtype := rhs.Type.Subtype
	if !subtype.IsNumeric() {
		return llvm.Value{}, token.Errorf(n.Pos, "unimplemented list type '%s'", rhs.Type)
	}
	left, err := c.visitConverted(lhs, subtype)
	if err != nil {
		return llvm.Value{}, err
	}
	right, err := c.visit(rhs)
	if err != nil {
		return llvm.Value{}, err
	}
	fnType, fn := c.GetRFunc(listFunc(subtype.Kind, "cons"))
	return c.builder.CreateCall(fnType, fn, []llvm.Value{left, right}, "binop_cons"), nil
}

func (c *Compiler) visitUnaryOp(n *ast.Node) (llvm.Value, error) {
	child := n.Children[0]
	if n.Op == ast.OpNot {
		val, err := c.visitConverted(child, types.BoolType)
		if err != nil {
			return llvm.Value{}, err
		}
		return c.builder.CreateNot(val, "nottmp"), nil
	}

	if !child.Type.IsList() || !child.Type.Subtype.IsNumeric() {
		return llvm.Value{}, token.Errorf(n.Pos, "unimplemented unary op '%s' on type '%s'", n.Op, child.Type)
	}
	elemKind := child.Type.Subtype.Kind
	arg, err := c.visit(child)
	if err != nil {
		return llvm.Value{}, err
	}
	switch n.Op {
	case ast.OpCar:
		fnType, fn := c.GetRFunc(listFunc(elemKind, "car"))
		elemPtr := c.builder.CreateCall(fnType, fn, []llvm.Value{arg}, "cartmp")
		return c.builder.CreateLoad(c.mapToLLVMType(child.Type.Subtype), elemPtr, "carval"), nil
	case ast.OpCdr:
		fnType, fn := c.GetRFunc(listFunc(elemKind, "cdr"))
		return c.builder.CreateCall(fnType, fn, []llvm.Value{arg}, "cdrtmp"), nil
	}
	return llvm.Value{}, token.InternalErrorf("invalid unary operator '%s'", n.Op)
}

var listOpNames = map[ast.OpID]string{
	ast.OpPlus:   "add",
	ast.OpMinus:  "subtract",
	ast.OpTimes:  "multiply",
	ast.OpDivide: "divide",
}

func (c *Compiler) visitListOp(n *ast.Node) (llvm.Value, error) {
	list := n.Children[0]
	switch n.Op {
	case ast.OpPlus, ast.OpMinus, ast.OpTimes, ast.OpDivide:
		if !n.Type.IsNumeric() {
			return llvm.Value{}, token.Errorf(n.Pos, "unimplemented list type '%s'", list.Type)
		}
		arg, err := c.visit(list)
		if err != nil {
			return llvm.Value{}, err
		}
		fnType, fn := c.GetRFunc(listFunc(n.Type.Kind, listOpNames[n.Op]))
		return c.builder.CreateCall(fnType, fn, []llvm.Value{arg}, "listop"), nil
	case ast.OpPrint:
		return c.createPrint(n, list)
	case ast.OpAnd, ast.OpOr, ast.OpXor, ast.OpNot:
		return llvm.Value{}, token.Errorf(n.Pos,
			"list operator '%s' is not supported by the code generator", n.Op)
	}
	return llvm.Value{}, token.InternalErrorf("operator '%s' is not a list operator", n.Op)
}

// createPrint lowers '(print "fmt" args...)' to a variadic printf call.
// The list head is the format string; the remaining elements are passed
// through as varargs.
func (c *Compiler) createPrint(n, list *ast.Node) (llvm.Value, error) {
	fnType, fn := c.GetRFunc(PRINTF)
	var args []llvm.Value
	for cell := list; cell != nil; cell = cell.Tail() {
		val, err := c.visit(cell.Head())
		if err != nil {
			return llvm.Value{}, err
		}
		args = append(args, val)
	}
	call := c.builder.CreateCall(fnType, fn, args, "printtmp")
	return c.adjustIntWidth(call, c.mapToLLVMType(n.Type)), nil
}
