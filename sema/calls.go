package sema

import (
	"github.com/slc-lang/slc/ast"
	"github.com/slc-lang/slc/token"
)

// visitFunctionCall resolves the callee, checks the arguments, and
// resolves the call's result type. A resolved variable whose initializer
// is a lambda counts as a callable; so does a function definition or
// extern. Calls into a callee that is still being analyzed are recursive
// and resolve their type through a sibling if branch (see resolveRecursive).
func (a *Analyzer) visitFunctionCall(n *ast.Node) error {
	var resolved *ast.Node // the definition found by name lookup
	var callee *ast.Node   // the callable it denotes
	resolved = n.Scope.LookupDefinition(n.Name)
	if resolved == nil {
		return token.Errorf(n.Pos, "undefined reference to function '%s'", n.Name)
	}
	switch {
	case resolved.Kind == ast.KindVariableDefinition:
		if len(resolved.Children) == 0 || resolved.Children[0].Kind != ast.KindLambda {
			return token.Errorf(n.Pos, "attempted to call a variable as a function")
		}
		callee = resolved.Children[0]
	case resolved.IsCallable():
		callee = resolved
	default:
		return token.Errorf(n.Pos, "attempted to call a variable as a function")
	}
	n.Resolution = callee

	formals := callee.Formals()
	if len(n.Children) < len(formals) {
		return token.Errorf(n.Pos, "too few arguments for function '%s': got '%d' expected '%d'",
			n.Name, len(n.Children), len(formals))
	}
	if len(n.Children) > len(formals) {
		return token.Errorf(n.Pos, "too many arguments for function '%s': got '%d' expected '%d'",
			n.Name, len(n.Children), len(formals))
	}
	for i, arg := range n.Children {
		if err := a.Visit(arg); err != nil {
			return err
		}
		if !arg.Type.ConvertsTo(formals[i].Type) {
			return token.Errorf(arg.Pos,
				"invalid argument passed to function '%s': got '%s' expected '%s'",
				n.Name, arg.Type, formals[i].Type)
		}
	}

	if !resolved.IsVisiting() {
		n.Type = resolved.Type.Copy()
		return nil
	}
	return a.resolveRecursive(n, resolved)
}

// resolveRecursive types a call whose callee is currently being analyzed.
// The call climbs to the enclosing function body collecting the innermost
// enclosing if expression; the branch that does not contain the call site
// is the type witness. A visited witness hands over its type directly; a
// witness that is itself mid-visit means neither branch can bottom out.
func (a *Analyzer) resolveRecursive(call, resolved *ast.Node) error {
	if !resolved.IsAncestorOf(call) {
		return token.InternalErrorf("visiting function in a non-recursive context")
	}
	var pif *ast.Node
	for m := call; m != nil && m.Kind != ast.KindFunctionBody; m = m.Parent {
		if m.Kind == ast.KindIfExpr {
			pif = m
			break
		}
	}
	if pif == nil {
		return token.Errorf(call.Pos, "detected recursive call without any if statements")
	}

	witness := pif.Affirmative()
	if pif.Affirmative().IsAncestorOf(call) {
		witness = pif.Else()
	}
	if witness.IsVisited() {
		call.Type = witness.Type.Copy()
		return nil
	}
	if witness.IsVisiting() {
		return token.Errorf(pif.Pos, "no type resolution for either branch in recursive call")
	}
	if err := a.Visit(witness); err != nil {
		return err
	}
	if witness.Type == nil {
		return token.Errorf(pif.Pos, "no type resolution for either branch in recursive call")
	}
	call.Type = witness.Type.Copy()
	return nil
}
