package compiler

import (
	"strings"

	"github.com/slc-lang/slc/types"
	"tinygo.org/x/go-llvm"
)

const (
	// System functions
	PRINTF = "printf"

	// Runtime print entry points
	PRINT_INT    = "print_int"
	PRINT_DOUBLE = "print_double"

	INT_LIST_PREFIX    = "slc_int_list_"
	DOUBLE_LIST_PREFIX = "slc_double_list_"
)

// listOps is every per-element-width primitive the runtime provides.
var listOps = []string{
	"create", "destroy", "init", "fini",
	"set_head", "set_tail",
	"car", "cdr",
	"cons", "append",
	"add", "subtract", "multiply", "divide",
}

// listFunc maps an element kind and primitive name to the runtime symbol,
// e.g. (Int, "cons") -> "slc_int_list_cons".
func listFunc(elem types.Kind, op string) string {
	if elem == types.Float {
		return DOUBLE_LIST_PREFIX + op
	}
	return INT_LIST_PREFIX + op
}

// GetFnType returns the LLVM FunctionType for a runtime helper name, like
// "printf", "print_int", or "slc_double_list_cons".
func (c *Compiler) GetFnType(name string) llvm.Type {
	charPtr := llvm.PointerType(c.Context.Int8Type(), 0)
	i8 := c.Context.Int8Type()
	i32 := c.Context.Int32Type()
	i64 := c.Context.Int64Type()
	f64 := c.Context.DoubleType()
	// cons lists are opaque runtime structs; model them as i8*
	listPtr := charPtr

	switch name {
	case PRINTF:
		return llvm.FunctionType(i32, []llvm.Type{charPtr}, true)
	case PRINT_INT:
		return llvm.FunctionType(i32, []llvm.Type{i64}, false)
	case PRINT_DOUBLE:
		return llvm.FunctionType(i64, []llvm.Type{f64}, false)
	}

	var elem llvm.Type
	var op string
	switch {
	case strings.HasPrefix(name, INT_LIST_PREFIX):
		elem = i64
		op = strings.TrimPrefix(name, INT_LIST_PREFIX)
	case strings.HasPrefix(name, DOUBLE_LIST_PREFIX):
		elem = f64
		op = strings.TrimPrefix(name, DOUBLE_LIST_PREFIX)
	default:
		panic("unknown runtime function " + name)
	}

	switch op {
	case "create":
		return llvm.FunctionType(listPtr, nil, false)
	case "destroy", "init", "fini":
		return llvm.FunctionType(i8, []llvm.Type{listPtr}, false)
	case "set_head":
		return llvm.FunctionType(i8, []llvm.Type{listPtr, elem}, false)
	case "set_tail":
		return llvm.FunctionType(i8, []llvm.Type{listPtr, listPtr}, false)
	case "car":
		return llvm.FunctionType(llvm.PointerType(elem, 0), []llvm.Type{listPtr}, false)
	case "cdr":
		return llvm.FunctionType(listPtr, []llvm.Type{listPtr}, false)
	case "cons":
		return llvm.FunctionType(listPtr, []llvm.Type{elem, listPtr}, false)
	case "append":
		return llvm.FunctionType(listPtr, []llvm.Type{listPtr, elem}, false)
	case "add", "subtract", "multiply", "divide":
		return llvm.FunctionType(elem, []llvm.Type{listPtr}, false)
	default:
		panic("unknown runtime function " + name)
	}
}

// GetRFunc returns the declaration for a runtime helper, adding it to the
// module on first use.
func (c *Compiler) GetRFunc(name string) (llvm.Type, llvm.Value) {
	fnType := c.GetFnType(name)
	fn := c.Module.NamedFunction(name)
	if fn.IsNil() {
		fn = llvm.AddFunction(c.Module, name, fnType)
	}
	c.fnTypes[name] = fnType
	return fnType, fn
}

// declareRuntime emits extern declarations for every runtime primitive.
// Runs once, on entry at the root.
func (c *Compiler) declareRuntime() {
	for _, op := range listOps {
		c.GetRFunc(INT_LIST_PREFIX + op)
		c.GetRFunc(DOUBLE_LIST_PREFIX + op)
	}
	c.GetRFunc(PRINT_INT)
	c.GetRFunc(PRINT_DOUBLE)
}
