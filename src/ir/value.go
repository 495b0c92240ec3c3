package ir

import "fmt"

// Value is an instruction operand: a Symbol, a Literal, or a Label.
type Value interface {
	fmt.Stringer
	isValue()
}

// Symbol is a named source variable or compiler-introduced temporary
// register. Symbol also doubles as the entry type stored in a Function's
// symbol table, keyed by Title.
type Symbol struct {
	Title    string
	Datatype DataType
}

func (Symbol) isValue() {}

func (s Symbol) String() string {
	return fmt.Sprintf("%%%s (%s)", s.Title, s.Datatype)
}

// Literal is a constant integer operand. Raw may be Unknown until the type
// corrector propagates a type into it from the other operand of its
// instruction.
type Literal struct {
	Int      int64
	Datatype DataType
}

func (Literal) isValue() {}

func (l Literal) String() string {
	return fmt.Sprintf("%d (%s)", l.Int, l.Datatype)
}

// Label names a jump target: a compiler-generated loop/branch label (Lk),
// or, as a Call operand, the called function's name.
type Label struct {
	Name string
}

func (Label) isValue() {}

func (l Label) String() string {
	return l.Name
}

// ValueType returns the DataType carried by v, or ok=false if v is a Label
// (labels carry no type).
func ValueType(v Value) (DataType, bool) {
	switch t := v.(type) {
	case Symbol:
		return t.Datatype, true
	case Literal:
		return t.Datatype, true
	default:
		return DataType{}, false
	}
}

// HasUnknownType reports whether v's type is still the inference
// placeholder (or v is untyped, i.e. a Label).
func HasUnknownType(v Value) bool {
	dt, ok := ValueType(v)
	return !ok || dt.Raw == Unknown
}

// WithType returns a copy of v with its DataType replaced by dt when v's
// current type is Unknown. Labels are returned unchanged.
func WithType(v Value, dt DataType) Value {
	switch t := v.(type) {
	case Symbol:
		if t.Datatype.Raw == Unknown {
			t.Datatype = dt.WithoutRef()
		}
		return t
	case Literal:
		if t.Datatype.Raw == Unknown {
			t.Datatype = dt.WithoutRef()
		}
		return t
	default:
		return v
	}
}
