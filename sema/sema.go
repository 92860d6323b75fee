package sema

import (
	"github.com/slc-lang/slc/ast"
	"github.com/slc-lang/slc/token"
	"github.com/slc-lang/slc/types"
)

// Analyzer assigns scopes and types to a parsed AST. It is a single-pass
// depth-first walker; the per-node visit marks are what recursive type
// resolution keys off, so a node is never dispatched twice.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze runs the analyzer over the root node. On the first diagnostic the
// traversal short-circuits and the error is returned; the AST may then be
// partially annotated and must not be lowered.
func (a *Analyzer) Analyze(root *ast.Node) error {
	if !root.IsRoot() {
		return token.InternalErrorf("visit_node called for non-root node '%s'", root.Name)
	}
	return a.Visit(root)
}

// Visit dispatches a single node. Already-visited nodes are skipped, which
// also makes a second Analyze over the same tree a no-op.
func (a *Analyzer) Visit(n *ast.Node) error {
	if n.IsVisited() {
		return nil
	}
	n.MarkVisiting()
	if err := a.dispatch(n); err != nil {
		return err
	}
	n.MarkVisited()
	return nil
}

func (a *Analyzer) visitChildren(n *ast.Node) error {
	for _, child := range n.Children {
		if err := a.Visit(child); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) dispatch(n *ast.Node) error {
	if !n.IsRoot() && n.Scope == nil {
		enclosing, err := a.enclosingScope(n)
		if err != nil {
			return err
		}
		n.Scope = enclosing
	}
	switch n.Kind {
	case ast.KindRoot:
		return a.visitRoot(n)
	case ast.KindLiteral:
		return a.visitLiteral(n)
	case ast.KindVariable:
		return a.visitVariable(n)
	case ast.KindBinaryOp:
		return a.visitBinaryOp(n)
	case ast.KindUnaryOp:
		return a.visitUnaryOp(n)
	case ast.KindListOp:
		return a.visitListOp(n)
	case ast.KindIfExpr:
		return a.visitIfExpr(n)
	case ast.KindList:
		return a.visitList(n)
	case ast.KindFormal:
		return a.visitFormal(n)
	case ast.KindVariableDefinition:
		return a.visitVariableDefinition(n)
	case ast.KindFunctionDefinition:
		return a.visitFunctionDefinition(n)
	case ast.KindExternFunction:
		return a.visitExternFunction(n)
	case ast.KindLambda:
		return a.visitLambda(n)
	case ast.KindFunctionCall:
		return a.visitFunctionCall(n)
	case ast.KindFunctionBody:
		return a.visitFunctionBody(n)
	case ast.KindSimpleExpression:
		return a.visitChildren(n)
	case ast.KindSetExpression:
		return a.visitSetExpression(n)
	case ast.KindIteratorDefinition:
		return a.visitIteratorDefinition(n)
	case ast.KindDoLoop:
		return a.visitDoLoop(n)
	case ast.KindCollectLoop:
		return a.visitCollectLoop(n)
	case ast.KindWhenLoop, ast.KindInfiniteLoop:
		return a.visitChildren(n)
	}
	return token.InternalErrorf("no analyzer for node kind '%s'", n.Kind)
}

// enclosingScope climbs the parent chain (never the scope chain: scopes may
// not be set yet mid-analysis) to the nearest node with a scope.
func (a *Analyzer) enclosingScope(n *ast.Node) (*ast.Scope, error) {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Scope != nil {
			return p.Scope, nil
		}
	}
	return nil, token.InternalErrorf(
		"traversed to root node before finding a scope for '%s'", n.Name)
}

func (a *Analyzer) visitRoot(n *ast.Node) error {
	n.Scope = ast.NewScope(nil)
	return a.visitChildren(n)
}

func (a *Analyzer) visitLiteral(n *ast.Node) error {
	switch n.Value.Kind {
	case ast.LitInt:
		n.Type = types.New(types.Int)
	case ast.LitFloat:
		n.Type = types.New(types.Float)
	case ast.LitString:
		n.Type = types.New(types.String)
	case ast.LitNil:
		n.Type = types.New(types.Nil)
	default:
		return token.Errorf(n.Pos, "unsupported literal")
	}
	n.Name = n.Type.String()
	return nil
}

func (a *Analyzer) visitVariable(n *ast.Node) error {
	resolved := n.Scope.LookupVariable(n.Name)
	if resolved == nil {
		return token.Errorf(n.Pos, "undefined reference to variable '%s'", n.Name)
	}
	n.Resolution = resolved
	n.Type = resolved.Type.Copy()
	return nil
}

func (a *Analyzer) visitBinaryOp(n *ast.Node) error {
	if err := a.visitChildren(n); err != nil {
		return err
	}
	lhs, rhs := n.Children[0], n.Children[1]
	switch n.Op {
	case ast.OpGreater, ast.OpGreaterEq, ast.OpLess, ast.OpLessEq, ast.OpEqual:
		numericMix := (lhs.Type.Kind == types.Int && rhs.Type.Kind == types.Float) ||
			(lhs.Type.Kind == types.Float && rhs.Type.Kind == types.Int)
		nilListMix := (lhs.Type.Kind == types.Nil && rhs.Type.Kind == types.List) ||
			(lhs.Type.Kind == types.List && rhs.Type.Kind == types.Nil)
		if numericMix || nilListMix || lhs.Type.Kind == rhs.Type.Kind {
			n.Type = types.New(types.Bool)
			return nil
		}
		return token.Errorf(n.Pos, "invalid operands for binary operator '%s'", n.Op)
	case ast.OpCons:
		if !rhs.Type.IsList() {
			return token.Errorf(n.Pos, "invalid operands for binary operator 'cons'")
		}
		if !lhs.Type.ConvertsTo(rhs.Type.Subtype) {
			return token.Errorf(lhs.Pos, "cannot convert type '%s' to '%s' in 'cons'",
				lhs.Type, rhs.Type.Subtype)
		}
		n.Type = rhs.Type.Copy()
		return nil
	}
	return token.InternalErrorf("operator '%s' is not a binary operator", n.Op)
}

func (a *Analyzer) visitUnaryOp(n *ast.Node) error {
	if err := a.visitChildren(n); err != nil {
		return err
	}
	if len(n.Children) != 1 {
		return token.Errorf(n.Pos, "too many operands for unary operator")
	}
	child := n.Children[0]
	switch n.Op {
	case ast.OpNot:
		if child.Type.Kind == types.Invalid || child.Type.Kind == types.Variable {
			return token.InternalErrorf("unresolved type for not operator")
		}
		n.Type = types.New(types.Bool)
		return nil
	case ast.OpCar:
		if !child.Type.IsList() {
			return token.Errorf(n.Pos, "attempted car operation on non-list type '%s'", child.Type)
		}
		n.Type = child.Type.Subtype.Copy()
		return nil
	case ast.OpCdr:
		if !child.Type.IsList() {
			return token.Errorf(n.Pos, "attempted cdr operation on non-list type '%s'", child.Type)
		}
		n.Type = child.Type.Copy()
		return nil
	}
	return token.InternalErrorf("invalid unary operator '%s'", n.Op)
}

func (a *Analyzer) visitListOp(n *ast.Node) error {
	if len(n.Children) != 1 {
		return token.InternalErrorf("too many children (%d) for list operation", len(n.Children))
	}
	if n.Children[0].Kind != ast.KindList {
		return token.Errorf(n.Pos, "invalid arguments for list operation")
	}
	if err := a.visitChildren(n); err != nil {
		return err
	}
	list := n.Children[0]
	if list.Type.Subtype == nil {
		return token.InternalErrorf("unresolved subtype for list '%s'", list.Name)
	}
	subtype := list.Type.Subtype
	switch n.Op {
	case ast.OpPlus:
		if subtype.Kind == types.Int || subtype.Kind == types.Float ||
			subtype.Kind == types.Bool || subtype.Kind == types.String ||
			subtype.Kind == types.List {
			n.Type = subtype.Copy()
			return nil
		}
		return token.Errorf(n.Pos, "invalid operands for list operator '%s'", n.Op)
	case ast.OpMinus, ast.OpTimes, ast.OpDivide:
		if subtype.IsNumeric() {
			n.Type = subtype.Copy()
			return nil
		}
		return token.Errorf(n.Pos,
			"invalid operands for list operator '%s': expected numeric list, but got '%s'",
			n.Op, list.Type)
	case ast.OpOr, ast.OpAnd, ast.OpXor, ast.OpNot:
		n.Type = types.New(types.Bool)
		return nil
	case ast.OpPrint:
		// the head element is the printf-style format string
		if list.Head().Type.Kind != types.String {
			return token.Errorf(n.Pos, "print expects a format string, got '%s'", list.Head().Type)
		}
		n.Type = types.New(types.Int)
		return nil
	}
	return token.InternalErrorf("operator '%s' is not a list operator", n.Op)
}

func (a *Analyzer) visitIfExpr(n *ast.Node) error {
	n.Scope = ast.NewScope(n.Scope)
	if len(n.Children) != 3 {
		return token.InternalErrorf(
			"wrong number of children (%d) processing if expression", len(n.Children))
	}
	for _, child := range n.Children {
		if !child.IsExpression() {
			return token.Errorf(child.Pos, "expected expression")
		}
	}
	if err := a.visitChildren(n); err != nil {
		return err
	}
	if !n.Condition().Type.ConvertsTo(types.BoolType) {
		return token.Errorf(n.Condition().Pos, "expression does not evaluate to a boolean")
	}
	affirmativeType := n.Affirmative().Type
	elseType := n.Else().Type
	if !elseType.ConvertsTo(affirmativeType) {
		return token.Errorf(n.Else().Pos,
			"type of else expression ('%s') does not convert to expected type '%s'",
			elseType, affirmativeType)
	}
	n.Type = affirmativeType.Copy()
	return nil
}

func (a *Analyzer) visitList(n *ast.Node) error {
	if err := a.visitChildren(n); err != nil {
		return err
	}
	if n.Head() == nil {
		return token.InternalErrorf("list node without a head element")
	}
	if n.Type == nil || n.Type.Subtype == nil {
		// subtype not explicitly annotated: derive from the first element
		n.Type = types.NewList(n.Head().Type)
	}
	subtype := n.Type.Subtype
	if !n.Head().Type.ConvertsTo(subtype) {
		return token.Errorf(n.Head().Pos,
			"child type '%s' is incompatible with list of type '%s'", n.Head().Type, n.Type)
	}
	for iter := n.Tail(); iter != nil; iter = iter.Tail() {
		if !iter.Head().Type.ConvertsTo(subtype) {
			return token.Errorf(iter.Head().Pos,
				"child type '%s' is incompatible with list of type '%s'", iter.Head().Type, n.Type)
		}
	}
	return nil
}

func (a *Analyzer) visitFormal(n *ast.Node) error {
	parent := n.Parent
	if parent == nil {
		return token.InternalErrorf("parent is null visiting formal")
	}
	if !parent.IsCallable() {
		return token.InternalErrorf("parent is not a callable visiting formal '%s'", n.Name)
	}
	if n.Type == nil {
		return token.InternalErrorf("formal '%s' has no declared type", n.Name)
	}
	if err := a.checkConflict(n, parent.Scope, "parameter"); err != nil {
		return err
	}
	parent.Scope.DefineVariable(n)
	return nil
}

func (a *Analyzer) visitVariableDefinition(n *ast.Node) error {
	if err := a.checkConflict(n, n.Scope, "variable"); err != nil {
		return err
	}
	n.Scope.DefineVariable(n)
	if len(n.Children) > 1 {
		return token.Errorf(n.Pos, "too many expressions provided for variable definition '%s'", n.Name)
	}
	if err := a.visitChildren(n); err != nil {
		return err
	}
	if len(n.Children) == 1 {
		init := n.Children[0]
		if !init.IsExpression() {
			return token.Errorf(init.Pos, "expected expression")
		}
		n.Type = init.Type.Copy()
	}
	return nil
}

func (a *Analyzer) visitFunctionDefinition(n *ast.Node) error {
	parentScope := n.Scope
	if err := a.checkConflict(n, parentScope, "function"); err != nil {
		return err
	}
	parentScope.DefineFunction(n)
	n.Scope = ast.NewScope(parentScope)
	if err := a.visitChildren(n); err != nil {
		return err
	}
	body := n.Body()
	if body == nil || body.Return == nil {
		return token.InternalErrorf("missing return expression for function '%s'", n.Name)
	}
	n.Type = body.Return.Type.Copy()
	return nil
}

func (a *Analyzer) visitExternFunction(n *ast.Node) error {
	parentScope := n.Scope
	if err := a.checkConflict(n, parentScope, "function"); err != nil {
		return err
	}
	parentScope.DefineFunction(n)
	if n.Type == nil {
		return token.InternalErrorf("extern function '%s' has no declared return type", n.Name)
	}
	n.Scope = ast.NewScope(parentScope)
	return a.visitChildren(n)
}

func (a *Analyzer) visitLambda(n *ast.Node) error {
	// a lambda does not insert itself into the enclosing scope by name
	n.Scope = ast.NewScope(n.Scope)
	if err := a.visitChildren(n); err != nil {
		return err
	}
	body := n.Body()
	if body == nil || body.Return == nil {
		return token.InternalErrorf("missing return expression for lambda '%s'", n.Name)
	}
	n.Type = body.Return.Type.Copy()
	return nil
}

func (a *Analyzer) visitFunctionBody(n *ast.Node) error {
	// scope already inherited from the enclosing callable or loop
	return a.visitChildren(n)
}

func (a *Analyzer) visitSetExpression(n *ast.Node) error {
	if err := a.visitChildren(n); err != nil {
		return err
	}
	resolved := n.Scope.LookupVariable(n.Name)
	if resolved == nil {
		return token.Errorf(n.Pos, "undefined reference to variable '%s'", n.Name)
	}
	n.Resolution = resolved
	n.Type = resolved.Type.Copy()
	return nil
}

func (a *Analyzer) visitIteratorDefinition(n *ast.Node) error {
	if err := a.visitChildren(n); err != nil {
		return err
	}
	listExpr := n.Children[0]
	if !listExpr.IsExpression() {
		return token.Errorf(listExpr.Pos, "expected an expression for the iterated list")
	}
	if !listExpr.Type.IsList() {
		return token.Errorf(listExpr.Pos, "cannot iterate over type '%s'", listExpr.Type)
	}
	// the iterator resolves to the type inside the list
	n.Type = listExpr.Type.Subtype.Copy()
	if err := a.checkConflict(n, n.Scope, "variable"); err != nil {
		return err
	}
	n.Scope.DefineVariable(n)
	return nil
}

func (a *Analyzer) visitDoLoop(n *ast.Node) error {
	n.Scope = ast.NewScope(n.Scope)
	if err := a.visitChildren(n); err != nil {
		return err
	}
	body := n.LoopBody()
	if body == nil || body.Return == nil {
		return token.InternalErrorf("missing return expression for do loop")
	}
	n.Type = body.Return.Type.Copy()
	return nil
}

func (a *Analyzer) visitCollectLoop(n *ast.Node) error {
	n.Scope = ast.NewScope(n.Scope)
	if err := a.visitChildren(n); err != nil {
		return err
	}
	body := n.LoopBody()
	if body == nil || body.Return == nil {
		return token.InternalErrorf("missing return expression for collect loop")
	}
	n.Type = types.NewList(body.Return.Type)
	return nil
}

// checkConflict reports a duplicate name in scope. Variables and functions
// share the namespace, so both kinds are checked.
func (a *Analyzer) checkConflict(n *ast.Node, scope *ast.Scope, what string) error {
	if conflict := scope.HasFunction(n.Name); conflict != nil {
		return token.Errorf(n.Pos,
			"conflicting definition for %s '%s' (original on %s): %s",
			what, n.Name, conflict.Pos, conflict.Pos.Text)
	}
	if conflict := scope.HasVariable(n.Name); conflict != nil {
		return token.Errorf(n.Pos,
			"conflicting definition for %s '%s' (original on %s): %s",
			what, n.Name, conflict.Pos, conflict.Pos.Text)
	}
	return nil
}
