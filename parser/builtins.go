package parser

import (
	"github.com/slc-lang/slc/ast"
	"github.com/slc-lang/slc/token"
	"github.com/slc-lang/slc/types"
)

// Builtins returns extern declarations for the runtime's print entry
// points. Parse prepends them to the root so calls to print_int and
// print_double resolve like calls to any user-declared extern.
func Builtins() []*ast.Node {
	return []*ast.Node{
		builtinExtern("print_int", types.New(types.Int), types.New(types.Int)),
		builtinExtern("print_double", types.New(types.Float), types.New(types.Int)),
	}
}

func builtinExtern(name string, argType, retType *types.Type) *ast.Node {
	fn := ast.New(ast.KindExternFunction, name, token.Position{})
	fn.Type = retType
	formal := ast.New(ast.KindFormal, "x", token.Position{})
	formal.Type = argType
	fn.AddChild(formal)
	return fn
}
