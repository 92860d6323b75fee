package ast

import (
	"fmt"
	"strings"

	"github.com/slc-lang/slc/token"
	"github.com/slc-lang/slc/types"
)

type NodeKind int

const (
	KindRoot NodeKind = iota
	KindLiteral
	KindVariable
	KindBinaryOp
	KindUnaryOp
	KindListOp
	KindIfExpr
	KindList
	KindFormal
	KindVariableDefinition
	KindFunctionDefinition
	KindExternFunction
	KindLambda
	KindFunctionCall
	KindFunctionBody
	KindSimpleExpression
	KindSetExpression
	KindIteratorDefinition
	KindDoLoop
	KindCollectLoop
	KindWhenLoop
	KindInfiniteLoop
)

var kindNames = map[NodeKind]string{
	KindRoot:               "root",
	KindLiteral:            "literal",
	KindVariable:           "variable",
	KindBinaryOp:           "binary_op",
	KindUnaryOp:            "unary_op",
	KindListOp:             "list_op",
	KindIfExpr:             "if",
	KindList:               "list",
	KindFormal:             "formal",
	KindVariableDefinition: "variable_definition",
	KindFunctionDefinition: "function_definition",
	KindExternFunction:     "extern_function",
	KindLambda:             "lambda",
	KindFunctionCall:       "function_call",
	KindFunctionBody:       "function_body",
	KindSimpleExpression:   "expression",
	KindSetExpression:      "set",
	KindIteratorDefinition: "iterator",
	KindDoLoop:             "do",
	KindCollectLoop:        "collect",
	KindWhenLoop:           "when",
	KindInfiniteLoop:       "loop",
}

func (k NodeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("node(%d)", int(k))
}

type OpID int

const (
	OpInvalid OpID = iota
	OpPlus
	OpMinus
	OpTimes
	OpDivide
	OpGreater
	OpGreaterEq
	OpLess
	OpLessEq
	OpEqual
	OpNot
	OpOr
	OpAnd
	OpXor
	OpCar
	OpCdr
	OpCons
	OpPrint
)

var opNames = map[OpID]string{
	OpInvalid:   "invalid",
	OpPlus:      "+",
	OpMinus:     "-",
	OpTimes:     "*",
	OpDivide:    "/",
	OpGreater:   ">",
	OpGreaterEq: ">=",
	OpLess:      "<",
	OpLessEq:    "<=",
	OpEqual:     "=",
	OpNot:       "not",
	OpOr:        "or",
	OpAnd:       "and",
	OpXor:       "xor",
	OpCar:       "car",
	OpCdr:       "cdr",
	OpCons:      "cons",
	OpPrint:     "print",
}

func (op OpID) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "unknown_op"
}

// VisitState is the three-state mark used to detect recursion and cycles
// during a traversal. The marks are private to a single traversal.
type VisitState int

const (
	NotVisited VisitState = iota
	Visiting
	Visited
)

// LitKind discriminates the literal payload.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitNil
)

type LitValue struct {
	Kind  LitKind
	Int   int64
	Float float64
	Str   string
}

func (v LitValue) String() string {
	switch v.Kind {
	case LitInt:
		return fmt.Sprintf("%d", v.Int)
	case LitFloat:
		return fmt.Sprintf("%g", v.Float)
	case LitString:
		return v.Str
	case LitNil:
		return "nil"
	}
	return "?"
}

// Node is the single AST node type; Kind discriminates the variant.
// A node owns its children. Resolution is a non-owning back-reference
// set by the analyzer: for a variable use or set expression it points at
// the variable_definition; for a function call it points at the resolved
// callable (function_definition, extern_function, or lambda).
type Node struct {
	Kind     NodeKind
	Name     string
	Pos      token.Position
	Type     *types.Type
	Scope    *Scope
	Children []*Node
	Parent   *Node
	State    VisitState

	Op         OpID     // binary_op, unary_op, list_op
	Value      LitValue // literal
	Resolution *Node
	Return     *Node // function_body: the designated return expression
}

func NewRoot() *Node {
	return &Node{Kind: KindRoot, Name: "Root"}
}

func New(kind NodeKind, name string, pos token.Position) *Node {
	return &Node{Kind: kind, Name: name, Pos: pos}
}

func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

func (n *Node) PrependChild(child *Node) {
	child.Parent = n
	n.Children = append([]*Node{child}, n.Children...)
}

func (n *Node) IsRoot() bool {
	return n.Kind == KindRoot
}

// IsExpression reports whether the node produces a value.
func (n *Node) IsExpression() bool {
	switch n.Kind {
	case KindLiteral, KindVariable, KindBinaryOp, KindUnaryOp, KindListOp,
		KindIfExpr, KindList, KindLambda, KindFunctionCall,
		KindSimpleExpression, KindSetExpression, KindDoLoop, KindCollectLoop:
		return true
	}
	return false
}

// IsDefinition reports whether the node binds a name in a scope.
func (n *Node) IsDefinition() bool {
	switch n.Kind {
	case KindVariableDefinition, KindFormal, KindIteratorDefinition,
		KindFunctionDefinition, KindExternFunction:
		return true
	}
	return false
}

// IsCallable reports whether a function call may resolve to the node.
func (n *Node) IsCallable() bool {
	switch n.Kind {
	case KindFunctionDefinition, KindExternFunction, KindLambda:
		return true
	}
	return false
}

// IsVariableDefinition covers every definition that binds a value name:
// plain definitions, formals, and loop iterators.
func (n *Node) IsVariableDefinition() bool {
	switch n.Kind {
	case KindVariableDefinition, KindFormal, KindIteratorDefinition:
		return true
	}
	return false
}

func (n *Node) MarkVisiting() { n.State = Visiting }
func (n *Node) MarkVisited()  { n.State = Visited }
func (n *Node) IsVisiting() bool {
	return n.State == Visiting
}
func (n *Node) IsVisited() bool {
	return n.State == Visited
}

// IsAncestorOf reports whether n lies on other's parent chain (or is other).
func (n *Node) IsAncestorOf(other *Node) bool {
	for m := other; m != nil; m = m.Parent {
		if m == n {
			return true
		}
	}
	return false
}

// FQN joins the names on the path from the root down to n with delim.
// Used to derive stable names for emitted globals.
func (n *Node) FQN(delim string) string {
	var path []string
	for m := n; m != nil && !m.IsRoot(); m = m.Parent {
		if m.Name != "" {
			path = append([]string{m.Name}, path...)
		}
	}
	return strings.Join(path, delim)
}

// --- variant accessors ---

// Condition, Affirmative and Else address the three children of an if
// expression.
func (n *Node) Condition() *Node   { return n.Children[0] }
func (n *Node) Affirmative() *Node { return n.Children[1] }
func (n *Node) Else() *Node        { return n.Children[2] }

// Head returns the first element of a list node.
func (n *Node) Head() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

// Tail returns the rest of a list node, or nil for the last cell.
func (n *Node) Tail() *Node {
	if len(n.Children) < 2 {
		return nil
	}
	return n.Children[1]
}

// Formals returns the parameter declarations of a callable, in order.
func (n *Node) Formals() []*Node {
	var formals []*Node
	for _, c := range n.Children {
		if c.Kind == KindFormal {
			formals = append(formals, c)
		}
	}
	return formals
}

// Body returns the function_body child of a callable, or nil for externs.
func (n *Node) Body() *Node {
	for _, c := range n.Children {
		if c.Kind == KindFunctionBody {
			return c
		}
	}
	return nil
}

// Iterator returns the iterator_definition of a do or collect loop.
func (n *Node) Iterator() *Node {
	for _, c := range n.Children {
		if c.Kind == KindIteratorDefinition {
			return c
		}
	}
	return nil
}

// LoopBody returns the function_body of a loop node.
func (n *Node) LoopBody() *Node {
	return n.Body()
}
