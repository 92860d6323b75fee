package types

type Kind int

const (
	Int Kind = iota
	Float
	String
	Bool
	Lambda
	Variable
	Nil
	List
	Invalid
)

var kinds = map[Kind]string{
	Int:      "int",
	Float:    "float",
	String:   "string",
	Bool:     "bool",
	Lambda:   "lambda",
	Variable: "variable",
	Nil:      "nil",
	List:     "list",
	Invalid:  "invalid",
}

func (k Kind) String() string {
	if s, ok := kinds[k]; ok {
		return s
	}
	return "unknown_type"
}

// Type is a monomorphic type descriptor. Subtype is non-nil iff Kind is List.
type Type struct {
	Kind    Kind
	Subtype *Type
}

// Value-typed singletons for the payload-free kinds. Always Copy before
// storing one into a node slot.
var (
	IntType     = &Type{Kind: Int}
	FloatType   = &Type{Kind: Float}
	StringType  = &Type{Kind: String}
	BoolType    = &Type{Kind: Bool}
	LambdaType  = &Type{Kind: Lambda}
	NilType     = &Type{Kind: Nil}
	InvalidType = &Type{Kind: Invalid}
)

// New returns a fresh descriptor for a payload-free kind.
func New(k Kind) *Type {
	return &Type{Kind: k}
}

// NewList returns list<elem>. The element descriptor is deep-copied so the
// list owns its subtype.
func NewList(elem *Type) *Type {
	return &Type{Kind: List, Subtype: elem.Copy()}
}

// Copy returns a deep copy.
func (t *Type) Copy() *Type {
	if t == nil {
		return nil
	}
	return &Type{Kind: t.Kind, Subtype: t.Subtype.Copy()}
}

// Equal is structural: lists compare subtypes recursively.
func (t *Type) Equal(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind != List {
		return true
	}
	return t.Subtype != nil && other.Subtype != nil && t.Subtype.Equal(other.Subtype)
}

// ConvertsTo implements the directed convertibility relation. list -> list
// holds iff the element subtypes convert; everything else follows the
// primitive table. Invalid converts to nothing.
func (t *Type) ConvertsTo(other *Type) bool {
	if t == nil || other == nil {
		return false
	}
	if t.Kind == List && other.Kind == List {
		if t.Equal(other) {
			return true
		}
		return t.Subtype != nil && other.Subtype != nil && t.Subtype.ConvertsTo(other.Subtype)
	}
	switch t.Kind {
	case Int, Float, Bool:
		return compatible(other.Kind, String, Int, Float, Bool)
	case String:
		return compatible(other.Kind, String, Bool)
	case Lambda:
		return other.Kind == Lambda
	case Variable, Nil, List:
		return other.Kind == Bool
	case Invalid:
		return false
	}
	return false
}

func compatible(k Kind, among ...Kind) bool {
	for _, a := range among {
		if k == a {
			return true
		}
	}
	return false
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind == List {
		return "list<" + t.Subtype.String() + ">"
	}
	return t.Kind.String()
}

// IsNumeric reports whether t is int or float.
func (t *Type) IsNumeric() bool {
	return t != nil && (t.Kind == Int || t.Kind == Float)
}

// IsList reports whether t is a list type.
func (t *Type) IsList() bool {
	return t != nil && t.Kind == List
}
