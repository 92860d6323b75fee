package compiler

import (
	"github.com/slc-lang/slc/ast"
	"github.com/slc-lang/slc/token"
	"tinygo.org/x/go-llvm"
)

// loopFrame carries the allocas shared by the do and collect lowerings:
// a cursor over the remaining list, the iteration variable's slot, and
// the slot for the last body value.
type loopFrame struct {
	cur     llvm.Value
	iter    llvm.Value
	loopret llvm.Value

	check llvm.BasicBlock
	body  llvm.BasicBlock
	end   llvm.BasicBlock
}

// beginLoop lowers the iterated list, sets up the allocas, and emits the
// check block: when the cursor goes null, control jumps to loopend.
func (c *Compiler) beginLoop(n *ast.Node, retType llvm.Type) (*loopFrame, error) {
	iter := n.Iterator()
	listExpr := iter.Children[0]
	if !listExpr.Type.Subtype.IsNumeric() {
		return nil, token.Errorf(n.Pos, "unimplemented list type '%s'", listExpr.Type)
	}
	listVal, err := c.visit(listExpr)
	if err != nil {
		return nil, err
	}

	listPtr := llvm.PointerType(c.Context.Int8Type(), 0)
	elemType := c.mapToLLVMType(iter.Type)

	frame := &loopFrame{}
	frame.cur = c.createEntryBlockAlloca(listPtr, "list_tail.mem")
	frame.iter = c.createEntryBlockAlloca(elemType, iter.Name+".mem")
	frame.loopret = c.createEntryBlockAlloca(retType, "loopret.mem")
	c.builder.CreateStore(listVal, frame.cur)
	c.builder.CreateStore(llvm.ConstNull(retType), frame.loopret)

	fn := c.builder.GetInsertBlock().Parent()
	frame.check = c.Context.AddBasicBlock(fn, "check")
	frame.body = c.Context.AddBasicBlock(fn, "loopbody")
	frame.end = c.Context.AddBasicBlock(fn, "loopend")

	c.builder.CreateBr(frame.check)
	c.builder.SetInsertPointAtEnd(frame.check)
	cur := c.builder.CreateLoad(listPtr, frame.cur, "list_cur")
	done := c.builder.CreateICmp(llvm.IntEQ, cur, llvm.ConstPointerNull(listPtr), "list_done")
	c.builder.CreateCondBr(done, frame.end, frame.body)
	return frame, nil
}

// lowerLoopBody emits one iteration: load the current element through car,
// bind the iterator name, lower the body, and step the cursor with cdr.
// The body value is handed to emit before the back edge.
func (c *Compiler) lowerLoopBody(n *ast.Node, frame *loopFrame, emit func(bodyVal llvm.Value) error) error {
	iter := n.Iterator()
	listExpr := iter.Children[0]
	elemKind := listExpr.Type.Subtype.Kind
	elemType := c.mapToLLVMType(iter.Type)
	listPtr := llvm.PointerType(c.Context.Int8Type(), 0)

	c.builder.SetInsertPointAtEnd(frame.body)
	cur := c.builder.CreateLoad(listPtr, frame.cur, "list_cur")
	carType, car := c.GetRFunc(listFunc(elemKind, "car"))
	elemPtr := c.builder.CreateCall(carType, car, []llvm.Value{cur}, "cartmp")
	elemVal := c.builder.CreateLoad(elemType, elemPtr, iter.Name)
	c.builder.CreateStore(elemVal, frame.iter)

	// iteration variable shadows any same-named binding for the body only
	shadowedVal, shadowed := c.namedValues[iter.Name]
	c.namedValues[iter.Name] = elemVal

	bodyVal, err := c.visit(n.LoopBody())
	if err != nil {
		return err
	}
	if err := emit(bodyVal); err != nil {
		return err
	}

	if shadowed {
		c.namedValues[iter.Name] = shadowedVal
	} else {
		delete(c.namedValues, iter.Name)
	}

	cdrType, cdr := c.GetRFunc(listFunc(elemKind, "cdr"))
	stepped := c.builder.CreateLoad(listPtr, frame.cur, "list_cur")
	next := c.builder.CreateCall(cdrType, cdr, []llvm.Value{stepped}, "cdrtmp")
	c.builder.CreateStore(next, frame.cur)
	c.builder.CreateBr(frame.check)

	c.builder.SetInsertPointAtEnd(frame.end)
	return nil
}

// visitDoLoop runs the body once per element; the loop's value is the last
// body value (zero of the body type for an empty list).
func (c *Compiler) visitDoLoop(n *ast.Node) (llvm.Value, error) {
	retType := c.mapToLLVMType(n.Type)
	frame, err := c.beginLoop(n, retType)
	if err != nil {
		return llvm.Value{}, err
	}
	err = c.lowerLoopBody(n, frame, func(bodyVal llvm.Value) error {
		c.builder.CreateStore(bodyVal, frame.loopret)
		return nil
	})
	if err != nil {
		return llvm.Value{}, err
	}
	return c.builder.CreateLoad(retType, frame.loopret, "loopret"), nil
}

// visitCollectLoop yields a list of the body values, built with the
// runtime append of the element width. Appending to null creates the
// list, so an empty input collects to nil.
func (c *Compiler) visitCollectLoop(n *ast.Node) (llvm.Value, error) {
	if !n.Type.Subtype.IsNumeric() {
		return llvm.Value{}, token.Errorf(n.Pos, "unimplemented list type '%s'", n.Type)
	}
	listPtr := llvm.PointerType(c.Context.Int8Type(), 0)
	frame, err := c.beginLoop(n, listPtr)
	if err != nil {
		return llvm.Value{}, err
	}
	elemKind := n.Type.Subtype.Kind
	body := n.LoopBody()
	err = c.lowerLoopBody(n, frame, func(bodyVal llvm.Value) error {
		converted, err := c.maybeConvert(bodyVal, body.Return.Type, n.Type.Subtype, n.Pos)
		if err != nil {
			return err
		}
		appendType, appendFn := c.GetRFunc(listFunc(elemKind, "append"))
		result := c.builder.CreateLoad(listPtr, frame.loopret, "collect_cur")
		next := c.builder.CreateCall(appendType, appendFn, []llvm.Value{result, converted}, "appendtmp")
		c.builder.CreateStore(next, frame.loopret)
		return nil
	})
	if err != nil {
		return llvm.Value{}, err
	}
	return c.builder.CreateLoad(listPtr, frame.loopret, "collect_list"), nil
}
