package ast

// Scope is a symbol table with a parent link forming a lexical chain.
// Variables and functions share one namespace: a name conflicts with any
// existing definition of either kind in the same scope. Insertion is
// append-only; lookup walks the parent chain and the first hit wins.
type Scope struct {
	Parent    *Scope
	Variables []*Node // variable_definition, formal, iterator_definition
	Functions []*Node // function_definition, extern_function
}

func NewScope(parent *Scope) *Scope {
	return &Scope{Parent: parent}
}

func (s *Scope) DefineVariable(def *Node) {
	s.Variables = append(s.Variables, def)
}

func (s *Scope) DefineFunction(def *Node) {
	s.Functions = append(s.Functions, def)
}

// HasVariable searches this scope only.
func (s *Scope) HasVariable(name string) *Node {
	for _, v := range s.Variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// HasFunction searches this scope only.
func (s *Scope) HasFunction(name string) *Node {
	for _, f := range s.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasDefinition searches this scope only, across both namespaces.
func (s *Scope) HasDefinition(name string) *Node {
	if v := s.HasVariable(name); v != nil {
		return v
	}
	return s.HasFunction(name)
}

// LookupVariable walks the parent chain.
func (s *Scope) LookupVariable(name string) *Node {
	for sc := s; sc != nil; sc = sc.Parent {
		if v := sc.HasVariable(name); v != nil {
			return v
		}
	}
	return nil
}

// LookupFunction walks the parent chain.
func (s *Scope) LookupFunction(name string) *Node {
	for sc := s; sc != nil; sc = sc.Parent {
		if f := sc.HasFunction(name); f != nil {
			return f
		}
	}
	return nil
}

// LookupDefinition walks the parent chain across both namespaces. Within a
// scope, variables shadow functions.
func (s *Scope) LookupDefinition(name string) *Node {
	for sc := s; sc != nil; sc = sc.Parent {
		if d := sc.HasDefinition(name); d != nil {
			return d
		}
	}
	return nil
}

// IsGlobal reports whether s is the root scope.
func (s *Scope) IsGlobal() bool {
	return s.Parent == nil
}
