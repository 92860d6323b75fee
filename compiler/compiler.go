package compiler

import (
	"fmt"

	"github.com/slc-lang/slc/ast"
	"github.com/slc-lang/slc/token"
	"github.com/slc-lang/slc/types"
	"tinygo.org/x/go-llvm"
)

// Compiler lowers a fully typed AST to LLVM IR. It owns the context, module
// and builder for the lifetime of a compilation; none of them are safe for
// concurrent use.
type Compiler struct {
	Context llvm.Context
	Module  llvm.Module
	builder llvm.Builder

	// SSA values: function parameters and loop iterators, keyed by name.
	namedValues map[string]llvm.Value
	// Alloca (or global) storage per scope x name.
	allocas map[*ast.Scope]map[string]llvm.Value
	// Function types per symbol name, recorded at declaration time so call
	// sites agree with the declared signature.
	fnTypes map[string]llvm.Type

	strCounter int
}

func NewCompiler(ctx llvm.Context, moduleName string) *Compiler {
	module := ctx.NewModule(moduleName)
	builder := ctx.NewBuilder()
	return &Compiler{
		Context:     ctx,
		Module:      module,
		builder:     builder,
		namedValues: make(map[string]llvm.Value),
		allocas:     make(map[*ast.Scope]map[string]llvm.Value),
		fnTypes:     make(map[string]llvm.Type),
	}
}

// Compile lowers the whole tree. Top-level expressions run, in order,
// inside a synthesized main function returning 0. Analysis must have
// completed: every node is assumed to carry a resolved type and scope.
func (c *Compiler) Compile(root *ast.Node) error {
	if !root.IsRoot() {
		return token.InternalErrorf("Compile called for non-root node '%s'", root.Name)
	}
	c.declareRuntime()

	mainType := llvm.FunctionType(c.Context.Int32Type(), []llvm.Type{}, false)
	mainFunc := llvm.AddFunction(c.Module, "main", mainType)
	entry := c.Context.AddBasicBlock(mainFunc, "entry")
	c.builder.SetInsertPointAtEnd(entry)

	for _, child := range root.Children {
		if _, err := c.visit(child); err != nil {
			return err
		}
	}
	c.builder.CreateRet(llvm.ConstInt(c.Context.Int32Type(), 0, false))
	return nil
}

// GenerateIR returns the textual IR for the module.
func (c *Compiler) GenerateIR() string {
	return c.Module.String()
}

// Verify runs the LLVM module verifier.
func (c *Compiler) Verify() error {
	return llvm.VerifyModule(c.Module, llvm.ReturnStatusAction)
}

func (c *Compiler) visit(n *ast.Node) (llvm.Value, error) {
	switch n.Kind {
	case ast.KindLiteral:
		return c.visitLiteral(n)
	case ast.KindVariable:
		return c.visitVariable(n)
	case ast.KindBinaryOp:
		return c.visitBinaryOp(n)
	case ast.KindUnaryOp:
		return c.visitUnaryOp(n)
	case ast.KindListOp:
		return c.visitListOp(n)
	case ast.KindIfExpr:
		return c.visitIfExpr(n)
	case ast.KindList:
		return c.visitList(n)
	case ast.KindVariableDefinition:
		return c.visitVariableDefinition(n)
	case ast.KindFunctionDefinition, ast.KindLambda:
		return c.visitFunction(n)
	case ast.KindExternFunction:
		return c.visitExternFunction(n)
	case ast.KindFunctionCall:
		return c.visitFunctionCall(n)
	case ast.KindFunctionBody:
		return c.visitFunctionBody(n)
	case ast.KindSetExpression:
		return c.visitSetExpression(n)
	case ast.KindDoLoop:
		return c.visitDoLoop(n)
	case ast.KindCollectLoop:
		return c.visitCollectLoop(n)
	case ast.KindWhenLoop:
		return llvm.Value{}, token.Errorf(n.Pos, "'when' loops are not supported by the code generator")
	case ast.KindInfiniteLoop:
		return llvm.Value{}, token.Errorf(n.Pos, "infinite loops are not supported by the code generator")
	case ast.KindSimpleExpression:
		return llvm.Value{}, token.InternalErrorf("no lowering for bare simple expression")
	}
	return llvm.Value{}, token.InternalErrorf("no lowering for node kind '%s'", n.Kind)
}

// mapToLLVMType maps a type descriptor to its IR representation.
// Strings and lists are opaque pointers into the runtime.
func (c *Compiler) mapToLLVMType(t *types.Type) llvm.Type {
	switch t.Kind {
	case types.Int:
		return c.Context.Int64Type()
	case types.Float:
		return c.Context.DoubleType()
	case types.Bool:
		return c.Context.Int1Type()
	case types.String, types.List, types.Nil, types.Lambda:
		return llvm.PointerType(c.Context.Int8Type(), 0)
	default:
		panic("unknown type in mapToLLVMType: " + t.String())
	}
}

func (c *Compiler) visitLiteral(n *ast.Node) (llvm.Value, error) {
	switch n.Value.Kind {
	case ast.LitInt:
		return llvm.ConstInt(c.Context.Int64Type(), uint64(n.Value.Int), true), nil
	case ast.LitFloat:
		return llvm.ConstFloat(c.Context.DoubleType(), n.Value.Float), nil
	case ast.LitString:
		return c.constCString(n), nil
	case ast.LitNil:
		return llvm.ConstPointerNull(llvm.PointerType(c.Context.Int8Type(), 0)), nil
	}
	return llvm.Value{}, token.Errorf(n.Pos, "unknown literal")
}

// constCString emits a private global constant for a string literal and
// returns a pointer to its first byte. The global is named by the node's
// fully qualified name when one exists.
func (c *Compiler) constCString(n *ast.Node) llvm.Value {
	name := n.FQN(".")
	if name == "" || name == n.Name {
		name = fmt.Sprintf("static_str_%d", c.strCounter)
		c.strCounter++
	}
	value := n.Value.Str
	strConst := llvm.ConstString(value, true)
	arrayType := llvm.ArrayType(c.Context.Int8Type(), len(value)+1)
	global := llvm.AddGlobal(c.Module, arrayType, name)
	global.SetInitializer(strConst)
	global.SetGlobalConstant(true)
	global.SetLinkage(llvm.PrivateLinkage)

	zero := llvm.ConstInt(c.Context.Int64Type(), 0, false)
	return c.builder.CreateGEP(arrayType, global, []llvm.Value{zero, zero}, "static_str_ptr")
}

func (c *Compiler) visitVariable(n *ast.Node) (llvm.Value, error) {
	if val, ok := c.namedValues[n.Name]; ok {
		return val, nil
	}
	def := n.Resolution
	if def == nil {
		return llvm.Value{}, token.InternalErrorf("unresolved variable '%s'", n.Name)
	}
	if ptr, ok := c.allocas[def.Scope][def.Name]; ok {
		return c.builder.CreateLoad(c.mapToLLVMType(def.Type), ptr, n.Name), nil
	}
	if def.Scope.IsGlobal() {
		if gv := c.Module.NamedGlobal(def.Name); !gv.IsNil() {
			return c.builder.CreateLoad(c.mapToLLVMType(def.Type), gv, n.Name), nil
		}
	}
	return llvm.Value{}, token.InternalErrorf("unknown variable '%s'", n.Name)
}

func (c *Compiler) visitVariableDefinition(n *ast.Node) (llvm.Value, error) {
	if len(n.Children) == 0 {
		return llvm.Value{}, token.InternalErrorf("variable definition '%s' has no initializer", n.Name)
	}
	if n.Children[0].Kind == ast.KindLambda {
		// a lambda binding has no storage; calls resolve straight to the
		// emitted function
		return c.visit(n.Children[0])
	}
	if n.Scope.IsGlobal() {
		return c.defineGlobal(n)
	}
	val, err := c.visit(n.Children[0])
	if err != nil {
		return llvm.Value{}, err
	}
	alloca := c.createEntryBlockAlloca(c.mapToLLVMType(n.Type), n.Name+".mem")
	c.builder.CreateStore(val, alloca)
	c.scopeAllocas(n.Scope)[n.Name] = alloca
	return val, nil
}

// defineGlobal emits a common-linkage zero-initialized global and stores
// the lowered initializer into it from the current insert point (inside
// main, since globals are root-level definitions).
func (c *Compiler) defineGlobal(n *ast.Node) (llvm.Value, error) {
	if n.Type.IsList() {
		return llvm.Value{}, token.Errorf(n.Pos, "global lists are unimplemented")
	}
	switch n.Type.Kind {
	case types.Int, types.Float:
	default:
		return llvm.Value{}, token.Errorf(n.Pos, "unimplemented global type '%s'", n.Type)
	}
	ty := c.mapToLLVMType(n.Type)
	gv := llvm.AddGlobal(c.Module, ty, n.Name)
	gv.SetLinkage(llvm.CommonLinkage)
	gv.SetInitializer(llvm.ConstNull(ty))

	val, err := c.visitConverted(n.Children[0], n.Type)
	if err != nil {
		return llvm.Value{}, err
	}
	c.builder.CreateStore(val, gv)
	return gv, nil
}

func (c *Compiler) visitSetExpression(n *ast.Node) (llvm.Value, error) {
	def := n.Resolution
	if def == nil {
		return llvm.Value{}, token.InternalErrorf("unresolved set target '%s'", n.Name)
	}
	val, err := c.visitConverted(n.Children[0], def.Type)
	if err != nil {
		return llvm.Value{}, err
	}
	if ptr, ok := c.allocas[def.Scope][def.Name]; ok {
		c.builder.CreateStore(val, ptr)
		return val, nil
	}
	if def.Scope.IsGlobal() {
		if gv := c.Module.NamedGlobal(def.Name); !gv.IsNil() {
			c.builder.CreateStore(val, gv)
			return val, nil
		}
	}
	return llvm.Value{}, token.Errorf(n.Pos, "cannot assign to '%s': no storage location", n.Name)
}

// callableFnType builds (and memoizes) the IR function type of a callable
// node from its formal types and return type.
func (c *Compiler) callableFnType(callable *ast.Node) llvm.Type {
	if fnType, ok := c.fnTypes[callable.Name]; ok {
		return fnType
	}
	formals := callable.Formals()
	paramTypes := make([]llvm.Type, len(formals))
	for i, formal := range formals {
		paramTypes[i] = c.mapToLLVMType(formal.Type)
	}
	fnType := llvm.FunctionType(c.mapToLLVMType(callable.Type), paramTypes, false)
	c.fnTypes[callable.Name] = fnType
	return fnType
}

// visitFunction lowers a function definition or lambda. The builder's
// insert point is restored on exit so lowering continues in the enclosing
// function; a lambda's value is the emitted function itself.
func (c *Compiler) visitFunction(n *ast.Node) (llvm.Value, error) {
	fnType := c.callableFnType(n)
	fn := llvm.AddFunction(c.Module, n.Name, fnType)
	// -1 is LLVMAttributeFunctionIndex
	fn.AddAttributeAtIndex(-1, c.Context.CreateEnumAttribute(llvm.AttributeKindID("noinline"), 0))
	fn.AddAttributeAtIndex(-1, c.Context.CreateEnumAttribute(llvm.AttributeKindID("optnone"), 0))

	formals := n.Formals()
	shadowed := make(map[string]llvm.Value)
	defined := make(map[string]bool)
	for i, formal := range formals {
		param := fn.Param(i)
		param.SetName(formal.Name)
		if old, ok := c.namedValues[formal.Name]; ok {
			shadowed[formal.Name] = old
		}
		defined[formal.Name] = true
		c.namedValues[formal.Name] = param
	}

	savedBlock := c.builder.GetInsertBlock()
	entry := c.Context.AddBasicBlock(fn, "entry")
	c.builder.SetInsertPointAtEnd(entry)

	ret, err := c.visit(n.Body())
	if err != nil {
		return llvm.Value{}, err
	}
	c.builder.CreateRet(ret)

	for name := range defined {
		if old, ok := shadowed[name]; ok {
			c.namedValues[name] = old
		} else {
			delete(c.namedValues, name)
		}
	}
	if !savedBlock.IsNil() {
		c.builder.SetInsertPointAtEnd(savedBlock)
	}
	return fn, nil
}

func (c *Compiler) visitExternFunction(n *ast.Node) (llvm.Value, error) {
	if fn := c.Module.NamedFunction(n.Name); !fn.IsNil() {
		// already declared (runtime print entry points)
		return fn, nil
	}
	fnType := c.callableFnType(n)
	return llvm.AddFunction(c.Module, n.Name, fnType), nil
}

func (c *Compiler) visitFunctionCall(n *ast.Node) (llvm.Value, error) {
	callee := n.Resolution
	if callee == nil {
		return llvm.Value{}, token.InternalErrorf("unresolved call to '%s'", n.Name)
	}
	name := n.Name
	if callee.Kind == ast.KindLambda {
		name = callee.Name
	}
	fn := c.Module.NamedFunction(name)
	if fn.IsNil() {
		return llvm.Value{}, token.Errorf(n.Pos, "unknown function called: '%s'", name)
	}
	fnType, ok := c.fnTypes[name]
	if !ok {
		fnType = c.callableFnType(callee)
	}

	formals := callee.Formals()
	args := make([]llvm.Value, len(n.Children))
	for i, arg := range n.Children {
		val, err := c.visitConverted(arg, formals[i].Type)
		if err != nil {
			return llvm.Value{}, err
		}
		args[i] = val
	}
	call := c.builder.CreateCall(fnType, fn, args, "calltmp")
	// runtime entry points may declare a narrower integer return than the
	// language-level type (print_int returns i32, SLC int is i64)
	return c.adjustIntWidth(call, c.mapToLLVMType(n.Type)), nil
}

func (c *Compiler) visitFunctionBody(n *ast.Node) (llvm.Value, error) {
	for _, child := range n.Children {
		if child == n.Return {
			continue
		}
		if _, err := c.visit(child); err != nil {
			return llvm.Value{}, err
		}
	}
	if n.Return == nil {
		return llvm.Value{}, token.InternalErrorf("function body has no return expression")
	}
	return c.visit(n.Return)
}

func (c *Compiler) visitIfExpr(n *ast.Node) (llvm.Value, error) {
	cond, err := c.visitConverted(n.Condition(), types.BoolType)
	if err != nil {
		return llvm.Value{}, err
	}

	fn := c.builder.GetInsertBlock().Parent()
	thenBlock := c.Context.AddBasicBlock(fn, "then")
	elseBlock := c.Context.AddBasicBlock(fn, "else")
	contBlock := c.Context.AddBasicBlock(fn, "cont")
	c.builder.CreateCondBr(cond, thenBlock, elseBlock)

	c.builder.SetInsertPointAtEnd(thenBlock)
	affirmative, err := c.visitConverted(n.Affirmative(), n.Type)
	if err != nil {
		return llvm.Value{}, err
	}
	c.builder.CreateBr(contBlock)
	// branch lowering can move the current block; repoint for the PHI
	thenBlock = c.builder.GetInsertBlock()

	c.builder.SetInsertPointAtEnd(elseBlock)
	elseValue, err := c.visitConverted(n.Else(), n.Type)
	if err != nil {
		return llvm.Value{}, err
	}
	c.builder.CreateBr(contBlock)
	elseBlock = c.builder.GetInsertBlock()

	c.builder.SetInsertPointAtEnd(contBlock)
	phi := c.builder.CreatePHI(c.mapToLLVMType(n.Type), "iftmp")
	phi.AddIncoming([]llvm.Value{affirmative, elseValue}, []llvm.BasicBlock{thenBlock, elseBlock})
	return phi, nil
}

func (c *Compiler) scopeAllocas(scope *ast.Scope) map[string]llvm.Value {
	m, ok := c.allocas[scope]
	if !ok {
		m = make(map[string]llvm.Value)
		c.allocas[scope] = m
	}
	return m
}

// createEntryBlockAlloca emits the alloca in the entry block of the current
// function so every local has a single stack slot.
func (c *Compiler) createEntryBlockAlloca(ty llvm.Type, name string) llvm.Value {
	current := c.builder.GetInsertBlock()
	fn := current.Parent()
	entry := fn.EntryBasicBlock()
	first := entry.FirstInstruction()

	if first.IsNil() {
		c.builder.SetInsertPointAtEnd(entry)
	} else {
		c.builder.SetInsertPointBefore(first)
	}
	alloca := c.builder.CreateAlloca(ty, name)
	c.builder.SetInsertPointAtEnd(current)
	return alloca
}
