package compiler

import (
	"github.com/slc-lang/slc/ast"
	"github.com/slc-lang/slc/token"
	"tinygo.org/x/go-llvm"
)

// visitList lowers a cons-list literal. Elements are evaluated left to
// right and converted to the list's element type; the cells are then built
// back to front: create/init/set_head for the last cell, cons for the rest.
func (c *Compiler) visitList(n *ast.Node) (llvm.Value, error) {
	subtype := n.Type.Subtype
	if subtype == nil {
		return llvm.Value{}, token.InternalErrorf("unresolved subtype for list '%s'", n.Name)
	}
	if !subtype.IsNumeric() {
		return llvm.Value{}, token.Errorf(n.Pos, "unimplemented list type '%s'", n.Type)
	}

	var vals []llvm.Value
	for cell := n; cell != nil; cell = cell.Tail() {
		val, err := c.visitConverted(cell.Head(), subtype)
		if err != nil {
			return llvm.Value{}, err
		}
		vals = append(vals, val)
	}

	createType, create := c.GetRFunc(listFunc(subtype.Kind, "create"))
	initType, initFn := c.GetRFunc(listFunc(subtype.Kind, "init"))
	setHeadType, setHead := c.GetRFunc(listFunc(subtype.Kind, "set_head"))
	consType, cons := c.GetRFunc(listFunc(subtype.Kind, "cons"))

	list := c.builder.CreateCall(createType, create, nil, "listtmp")
	c.builder.CreateCall(initType, initFn, []llvm.Value{list}, "calltmp")
	c.builder.CreateCall(setHeadType, setHead, []llvm.Value{list, vals[len(vals)-1]}, "calltmp")
	for i := len(vals) - 2; i >= 0; i-- {
		list = c.builder.CreateCall(consType, cons, []llvm.Value{vals[i], list}, "constmp")
	}
	return list, nil
}
